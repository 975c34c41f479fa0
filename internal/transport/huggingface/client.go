// Package huggingface is a client for the Hugging Face Inference API: image captioning,
// object detection and pairwise sentence similarity.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pictag/internal/domain"
	"github.com/kailas-cloud/pictag/internal/metrics"
)

const (
	defaultBaseURL = "https://api-inference.huggingface.co/models"
	defaultTimeout = 30 * time.Second

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 4 << 20

	taskCaption    = "caption"
	taskDetection  = "detection"
	taskSimilarity = "similarity"
)

// Config holds Inference API settings.
type Config struct {
	APIKey          string
	BaseURL         string
	CaptionModel    string
	DetectionModel  string
	SimilarityModel string
	Timeout         time.Duration
	HTTPClient      *http.Client
	Logger          *zap.Logger
}

// Client calls hosted models over HTTP. It never retries.
type Client struct {
	http            *http.Client
	baseURL         string
	apiKey          string
	captionModel    string
	detectionModel  string
	similarityModel string
	logger          *zap.Logger
}

// NewClient creates an Inference API client.
func NewClient(cfg *Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http:            hc,
		baseURL:         base,
		apiKey:          cfg.APIKey,
		captionModel:    cfg.CaptionModel,
		detectionModel:  cfg.DetectionModel,
		similarityModel: cfg.SimilarityModel,
		logger:          log,
	}
}

// apiError is the error body shape returned by the Inference API.
type apiError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

// post sends body to the model endpoint and decodes a JSON response into out.
// Transport and status failures wrap unavailable; undecodable bodies wrap domain.ErrMalformedResponse.
func (c *Client) post(
	ctx context.Context, task, model, contentType string, body []byte, out any, unavailable error,
) error {
	url := c.baseURL + "/" + model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new %s request: %w", task, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Wait-For-Model", "true")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.InferenceRequestDuration.WithLabelValues(task, model).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.InferenceRequestsTotal.WithLabelValues(task, model, "error").Inc()
		return fmt.Errorf("%s request: %w: %w", task, unavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.InferenceRequestsTotal.WithLabelValues(task, model, "error").Inc()
		return fmt.Errorf("read %s response: %w: %w", task, unavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.InferenceRequestsTotal.WithLabelValues(task, model, "error").Inc()
		return fmt.Errorf("%s API status %d: %s: %w", task, resp.StatusCode, errorDetail(data), unavailable)
	}

	if err := json.Unmarshal(data, out); err != nil {
		metrics.InferenceRequestsTotal.WithLabelValues(task, model, "malformed").Inc()
		return fmt.Errorf("decode %s response: %w: %w", task, domain.ErrMalformedResponse, err)
	}

	metrics.InferenceRequestsTotal.WithLabelValues(task, model, "success").Inc()
	return nil
}

// errorDetail extracts a readable message from an error body.
func errorDetail(body []byte) string {
	var parsed apiError
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
		if parsed.EstimatedTime > 0 {
			return fmt.Sprintf("%s (estimated %.0fs)", parsed.Error, parsed.EstimatedTime)
		}
		return parsed.Error
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// HealthCheck verifies the API is reachable. Any HTTP response counts as reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/"+c.similarityModel, http.NoBody)
	if err != nil {
		return fmt.Errorf("new health request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("inference API unreachable: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("inference API status %d", resp.StatusCode)
	}
	return nil
}

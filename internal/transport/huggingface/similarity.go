package huggingface

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/kailas-cloud/pictag/internal/domain"
)

type similarityInputs struct {
	SourceSentence string   `json:"source_sentence"`
	Sentences      []string `json:"sentences"`
}

type similarityRequest struct {
	Inputs similarityInputs `json:"inputs"`
}

// Similarity scores a against b with the sentence-similarity model.
// The result is clamped to [0,1].
func (c *Client) Similarity(ctx context.Context, a, b string) (float64, error) {
	if domain.IsBlank(a) || domain.IsBlank(b) {
		return 0, fmt.Errorf("similarity of blank text: %w", domain.ErrInvalidInput)
	}

	body, err := json.Marshal(similarityRequest{
		Inputs: similarityInputs{SourceSentence: a, Sentences: []string{b}},
	})
	if err != nil {
		return 0, fmt.Errorf("marshal similarity request: %w", err)
	}

	var scores []float64
	err = c.post(ctx, taskSimilarity, c.similarityModel, "application/json", body, &scores,
		domain.ErrScoringUnavailable)
	if err != nil {
		return 0, err
	}
	if len(scores) != 1 {
		return 0, fmt.Errorf("similarity response has %d scores, want 1: %w",
			len(scores), domain.ErrMalformedResponse)
	}
	s := scores[0]
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0, fmt.Errorf("similarity score %v: %w", s, domain.ErrMalformedResponse)
	}
	return clamp01(s), nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

package chi

import (
	"time"

	domimage "github.com/kailas-cloud/pictag/internal/domain/image"
	"github.com/kailas-cloud/pictag/internal/domain/search/result"
	"github.com/kailas-cloud/pictag/internal/usecase/tagging"
)

// ErrorResponseCode is a machine-readable error code.
type ErrorResponseCode string

// Error codes returned in ErrorResponse.Code.
const (
	ErrorResponseCodeBadRequest         ErrorResponseCode = "bad_request"
	ErrorResponseCodeValidationFailed   ErrorResponseCode = "validation_failed"
	ErrorResponseCodeImageNotFound      ErrorResponseCode = "image_not_found"
	ErrorResponseCodePayloadTooLarge    ErrorResponseCode = "payload_too_large"
	ErrorResponseCodeStorageUnavailable ErrorResponseCode = "storage_unavailable"
	ErrorResponseCodeTaggingUnavailable ErrorResponseCode = "tagging_unavailable"
	ErrorResponseCodeRequestCancelled   ErrorResponseCode = "request_cancelled"
	ErrorResponseCodeInternalError      ErrorResponseCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// CreateImageRequest is the body of POST /images.
type CreateImageRequest struct {
	URL      string   `json:"url"`
	Filename string   `json:"filename"`
	Tags     []string `json:"tags"`
	Captions []string `json:"captions"`
}

// ImageResponse is one stored image record.
type ImageResponse struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	Tags      []string  `json:"tags"`
	Captions  []string  `json:"captions"`
	Timestamp time.Time `json:"timestamp"`
}

// ImageListResponse is the body of GET /images.
type ImageListResponse struct {
	Items []ImageResponse `json:"items"`
	Total int             `json:"total"`
}

// SearchResultItem is one ranked image.
type SearchResultItem struct {
	ID       int64    `json:"id"`
	URL      string   `json:"url"`
	Filename string   `json:"filename"`
	Tags     []string `json:"tags"`
	Captions []string `json:"captions"`
	Score    float64  `json:"score"`
	Exact    bool     `json:"exact_match"`
}

// SearchResponse is the body of GET /search.
type SearchResponse struct {
	Query string             `json:"query"`
	Items []SearchResultItem `json:"items"`
	Total int                `json:"total"`
}

// TagResultItem is the model output for one uploaded file.
type TagResultItem struct {
	Filename  string   `json:"filename"`
	Tags      []string `json:"tags"`
	Captions  []string `json:"captions"`
	ImageSize int      `json:"image_size"`
}

// TagResponse is the body of POST /images/tags.
type TagResponse struct {
	Error bool            `json:"error"`
	Data  []TagResultItem `json:"data"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func imageToResponse(r *domimage.Record) ImageResponse {
	return ImageResponse{
		ID:        r.ID(),
		URL:       r.URL(),
		Filename:  r.Filename(),
		Tags:      nonNil(r.Tags()),
		Captions:  nonNil(r.Captions()),
		Timestamp: r.CreatedAt(),
	}
}

func searchResultToResponse(r *result.Result) SearchResultItem {
	return SearchResultItem{
		ID:       r.ID(),
		URL:      r.URL(),
		Filename: r.Filename(),
		Tags:     nonNil(r.Tags()),
		Captions: nonNil(r.Captions()),
		Score:    r.Score(),
		Exact:    r.Exact(),
	}
}

func taggedToResponse(t tagging.Tagged) TagResultItem {
	return TagResultItem{
		Filename:  t.Filename,
		Tags:      nonNil(t.Tags),
		Captions:  nonNil(t.Captions),
		ImageSize: t.ImageSize,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

package domain

import "errors"

var (
	// ErrInvalidRequest signals a missing or malformed client request (e.g. empty search query).
	ErrInvalidRequest = errors.New("invalid request")
	// ErrStorageUnavailable signals that the image corpus cannot be read.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrImageNotFound signals a missing image record.
	ErrImageNotFound = errors.New("image not found")

	// ErrEmbeddingUnavailable signals an embedding provider failure.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrScoringUnavailable signals that a similarity score could not be produced.
	ErrScoringUnavailable = errors.New("scoring unavailable")
	// ErrInvalidInput signals input that has no well-defined embedding (empty text).
	ErrInvalidInput = errors.New("invalid input")
	// ErrMalformedResponse signals a remote response that failed boundary validation.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrTaggingUnavailable signals that no vision model produced output for an image.
	ErrTaggingUnavailable = errors.New("tagging unavailable")
)

// IsCandidateFailure reports whether err is one of the per-candidate failures that the
// search engine recovers from locally.
func IsCandidateFailure(err error) bool {
	return errors.Is(err, ErrEmbeddingUnavailable) ||
		errors.Is(err, ErrScoringUnavailable) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrMalformedResponse)
}

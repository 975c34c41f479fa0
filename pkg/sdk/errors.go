package pictag

import "github.com/kailas-cloud/pictag/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidRequest       = domain.ErrInvalidRequest
	ErrImageNotFound        = domain.ErrImageNotFound
	ErrStorageUnavailable   = domain.ErrStorageUnavailable
	ErrEmbeddingUnavailable = domain.ErrEmbeddingUnavailable
	ErrTaggingUnavailable   = domain.ErrTaggingUnavailable
)

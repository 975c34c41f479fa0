package similarity

import (
	"context"

	"github.com/kailas-cloud/pictag/internal/domain"
)

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// PairwiseClient scores two texts with a remote sentence-similarity model.
type PairwiseClient interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

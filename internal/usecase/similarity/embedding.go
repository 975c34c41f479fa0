package similarity

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/pictag/internal/domain"
)

// EmbeddingScorer scores texts by cosine similarity of their embeddings.
type EmbeddingScorer struct {
	embed Embedder
}

// NewEmbeddingScorer creates a scorer backed by an embedding provider.
func NewEmbeddingScorer(embed Embedder) *EmbeddingScorer {
	return &EmbeddingScorer{embed: embed}
}

// NewSession starts a scoring session for query. Within a session every distinct string,
// the query included, is embedded at most once.
func (s *EmbeddingScorer) NewSession(query string) domain.ScoringSession {
	return &embeddingSession{
		embed:   s.embed,
		query:   query,
		vectors: newMemo[[]float32](),
	}
}

type embeddingSession struct {
	embed   Embedder
	query   string
	vectors *memo[[]float32]
}

func (s *embeddingSession) Score(ctx context.Context, candidate string) (float64, error) {
	if domain.IsBlank(candidate) {
		return 0, fmt.Errorf("score blank candidate: %w", domain.ErrInvalidInput)
	}

	q, err := s.vector(ctx, s.query)
	if err != nil {
		return 0, fmt.Errorf("embed query: %w", err)
	}
	c, err := s.vector(ctx, candidate)
	if err != nil {
		return 0, fmt.Errorf("embed candidate: %w", err)
	}
	return Cosine(q, c)
}

func (s *embeddingSession) vector(ctx context.Context, text string) ([]float32, error) {
	return s.vectors.get(ctx, text, func(ctx context.Context) ([]float32, error) {
		res, err := s.embed.Embed(ctx, text)
		if err != nil {
			return nil, err //nolint:wrapcheck // wrapped by Score
		}
		if len(res.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding: %w", domain.ErrMalformedResponse)
		}
		return res.Embedding, nil
	})
}

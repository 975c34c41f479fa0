package similarity

import (
	"context"
	"fmt"
	"math"

	"github.com/kailas-cloud/pictag/internal/domain"
)

// PairwiseScorer scores texts with one remote similarity call per distinct candidate.
type PairwiseScorer struct {
	client PairwiseClient
}

// NewPairwiseScorer creates a scorer backed by a sentence-similarity service.
func NewPairwiseScorer(client PairwiseClient) *PairwiseScorer {
	return &PairwiseScorer{client: client}
}

// NewSession starts a scoring session for query.
func (s *PairwiseScorer) NewSession(query string) domain.ScoringSession {
	return &pairwiseSession{
		client: s.client,
		query:  query,
		scores: newMemo[float64](),
	}
}

type pairwiseSession struct {
	client PairwiseClient
	query  string
	scores *memo[float64]
}

func (s *pairwiseSession) Score(ctx context.Context, candidate string) (float64, error) {
	if domain.IsBlank(s.query) || domain.IsBlank(candidate) {
		return 0, fmt.Errorf("score blank text: %w", domain.ErrInvalidInput)
	}

	return s.scores.get(ctx, candidate, func(ctx context.Context) (float64, error) {
		v, err := s.client.Similarity(ctx, s.query, candidate)
		if err != nil {
			return 0, fmt.Errorf("pairwise similarity: %w", err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("pairwise score %v: %w", v, domain.ErrMalformedResponse)
		}
		return clamp01(v), nil
	})
}

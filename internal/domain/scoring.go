package domain

import "context"

// ScoringSession scores candidate strings against one fixed query.
// Implementations are safe for concurrent use.
type ScoringSession interface {
	Score(ctx context.Context, candidate string) (float64, error)
}

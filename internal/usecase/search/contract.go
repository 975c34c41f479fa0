package search

import (
	"context"

	"github.com/kailas-cloud/pictag/internal/domain"
	domimage "github.com/kailas-cloud/pictag/internal/domain/image"
)

// CorpusProvider loads every image record, ordered by ascending ID.
type CorpusProvider interface {
	ListAll(ctx context.Context) ([]domimage.Record, error)
}

// Scorer opens a similarity session for one query.
type Scorer interface {
	NewSession(query string) domain.ScoringSession
}

// Pool runs scoring tasks with bounded parallelism (ants.Pool satisfies it).
type Pool interface {
	Submit(task func()) error
}

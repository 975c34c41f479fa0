package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kailas-cloud/pictag/internal/domain"
	domimage "github.com/kailas-cloud/pictag/internal/domain/image"
	"github.com/kailas-cloud/pictag/internal/domain/search/result"
)

// --- Mocks ---

type mockCorpus struct {
	records []domimage.Record
	err     error
	calls   int
}

func (m *mockCorpus) ListAll(_ context.Context) ([]domimage.Record, error) {
	m.calls++
	return m.records, m.err
}

// mockScorer returns fixed scores per (query, candidate) and records every call.
type mockScorer struct {
	mu       sync.Mutex
	scores   map[string]float64
	errs     map[string]error
	delay    time.Duration
	sessions int
	calls    []string
}

func newMockScorer() *mockScorer {
	return &mockScorer{scores: map[string]float64{}, errs: map[string]error{}}
}

func (m *mockScorer) NewSession(query string) domain.ScoringSession {
	m.mu.Lock()
	m.sessions++
	m.mu.Unlock()
	return &mockSession{parent: m, query: query}
}

func (m *mockScorer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockScorer) callsFor(candidate string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == candidate {
			n++
		}
	}
	return n
}

type mockSession struct {
	parent *mockScorer
	query  string
}

func (s *mockSession) Score(ctx context.Context, candidate string) (float64, error) {
	m := s.parent
	m.mu.Lock()
	m.calls = append(m.calls, candidate)
	key := s.query + "|" + candidate
	score, err := m.scores[key], m.errs[key]
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return score, err
}

// mockEmbedder maps words to fixed vectors for the end-to-end test.
type mockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   map[string]int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[text]++
	v, ok := m.vectors[text]
	if !ok {
		return domain.EmbeddingResult{}, domain.ErrEmbeddingUnavailable
	}
	return domain.EmbeddingResult{Embedding: v}, nil
}

func rec(id int64, tags, captions []string) domimage.Record {
	return domimage.Reconstruct(id, fmt.Sprintf("https://img.example/%d.jpg", id), fmt.Sprintf("%d.jpg", id),
		tags, captions, time.Time{})
}

func resultIDs(results []result.Result) []int64 {
	out := make([]int64, len(results))
	for i := range results {
		out[i] = results[i].ID()
	}
	return out
}

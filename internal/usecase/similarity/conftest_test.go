package similarity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kailas-cloud/pictag/internal/domain"
)

// mockEmbedder returns fixed vectors per text and counts calls per text.
type mockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	errs    map[string]error
	calls   map[string]int
	delay   time.Duration
}

func newMockEmbedder(vectors map[string][]float32) *mockEmbedder {
	return &mockEmbedder{
		vectors: vectors,
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls[text]++
	err := m.errs[text]
	vec, ok := m.vectors[text]
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return domain.EmbeddingResult{}, ctx.Err()
		}
	}
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	if !ok {
		return domain.EmbeddingResult{}, fmt.Errorf("no vector for %q: %w", text, domain.ErrEmbeddingUnavailable)
	}
	return domain.EmbeddingResult{Embedding: vec, TotalTokens: 1}, nil
}

func (m *mockEmbedder) callsFor(text string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[text]
}

func (m *mockEmbedder) setErr(text string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[text] = err
}

// mockPairwise returns fixed scores per (a, b) pair.
type mockPairwise struct {
	mu     sync.Mutex
	scores map[string]float64
	err    error
	calls  int
}

func (m *mockPairwise) Similarity(_ context.Context, a, b string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return m.scores[a+"|"+b], nil
}

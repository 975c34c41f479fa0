package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pictag/internal/domain"
	domimage "github.com/kailas-cloud/pictag/internal/domain/image"
	"github.com/kailas-cloud/pictag/internal/domain/search/result"
	"github.com/kailas-cloud/pictag/internal/logger"
	"github.com/kailas-cloud/pictag/internal/metrics"
)

// DefaultThreshold is the similarity a candidate must exceed to count as a match.
const DefaultThreshold = 0.5

// Options tunes the search engine.
type Options struct {
	Strategy    string        // metrics label only
	Threshold   *float64      // accepted when score > Threshold; nil = DefaultThreshold
	CallTimeout time.Duration // per similarity call; 0 = bounded by the request context only
}

// Service ranks images by how well their tags and captions match a free-text query.
type Service struct {
	corpus    CorpusProvider
	scorer    Scorer
	pool      Pool
	opts      Options
	threshold float64
	logger    *zap.Logger
}

// New creates a search service. A nil pool scores candidates sequentially on the caller goroutine.
func New(corpus CorpusProvider, scorer Scorer, pool Pool, opts Options, logger *zap.Logger) *Service {
	threshold := DefaultThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{corpus: corpus, scorer: scorer, pool: pool, opts: opts, threshold: threshold, logger: logger}
}

// candidate is one string of one image that needs similarity scoring.
type candidate struct {
	record int
	field  domimage.Field
	text   string
}

// outcome is the slot a scoring task writes into.
type outcome struct {
	score float64
	err   error
}

// Search returns images whose tags or captions match query, best first.
// A substring hit scores 1.0; otherwise the best similarity above the threshold counts.
// limit > 0 truncates the ranked list.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]result.Result, error) {
	start := time.Now()
	results, err := s.search(ctx, query, limit)
	metrics.SearchDuration.WithLabelValues(s.opts.Strategy, outcomeLabel(err)).Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.SearchResultsReturned.Observe(float64(len(results)))
	}
	return results, err
}

func (s *Service) search(ctx context.Context, query string, limit int) ([]result.Result, error) {
	q := normalize(query)
	if q == "" {
		return nil, fmt.Errorf("empty search query: %w", domain.ErrInvalidRequest)
	}
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context errors pass through unchanged
	}

	records, err := s.corpus.ListAll(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr //nolint:wrapcheck // context errors pass through unchanged
		}
		if errors.Is(err, domain.ErrStorageUnavailable) {
			return nil, fmt.Errorf("load corpus: %w", err)
		}
		return nil, fmt.Errorf("load corpus: %w: %w", domain.ErrStorageUnavailable, err)
	}

	best := make([]float64, len(records))
	exact := make([]bool, len(records))
	pending := s.collect(records, q, best, exact)

	outcomes, err := s.score(ctx, q, pending)
	if err != nil {
		return nil, err
	}

	log := logger.FromContextOr(ctx, s.logger)
	for i, o := range outcomes {
		c := pending[i]
		if o.err != nil {
			metrics.SearchScorerFailuresTotal.WithLabelValues(failureKind(o.err)).Inc()
			log.Warn("Candidate scoring failed",
				zap.Int64("image_id", records[c.record].ID()),
				zap.String("field", string(c.field)),
				zap.Error(o.err),
			)
			continue
		}
		if o.score > s.threshold && o.score > best[c.record] {
			best[c.record] = o.score
		}
	}

	// One result per image ID even if the corpus repeats a record; the first
	// occurrence fixes the tie order and the higher score wins.
	results := make([]result.Result, 0, len(records))
	pos := make(map[int64]int, len(records))
	for i := range records {
		if best[i] <= 0 {
			continue
		}
		id := records[i].ID()
		if j, dup := pos[id]; dup {
			if best[i] > results[j].Score() {
				results[j] = result.New(&records[i], best[i], exact[i])
			}
			continue
		}
		pos[id] = len(results)
		results = append(results, result.New(&records[i], best[i], exact[i]))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score() > results[j].Score()
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// collect resolves substring hits in place and returns the candidates that need scoring.
// Tags are visited before captions. Within one image each distinct string is scored once.
func (s *Service) collect(records []domimage.Record, q string, best []float64, exact []bool) []candidate {
	var pending []candidate
	var nExact, nSkipped int

	for i := range records {
		seen := make(map[string]struct{})
		var own []candidate
		hit := false

		records[i].EachText(func(field domimage.Field, text string) bool {
			c := normalize(text)
			if c == "" {
				nSkipped++
				return true
			}
			if strings.Contains(c, q) {
				hit = true
				return false
			}
			if _, dup := seen[c]; dup {
				return true
			}
			seen[c] = struct{}{}
			own = append(own, candidate{record: i, field: field, text: c})
			return true
		})

		if hit {
			best[i], exact[i] = 1, true
			nExact++
			continue
		}
		pending = append(pending, own...)
	}

	metrics.SearchCandidatesTotal.WithLabelValues("exact").Add(float64(nExact))
	metrics.SearchCandidatesTotal.WithLabelValues("skipped").Add(float64(nSkipped))
	metrics.SearchCandidatesTotal.WithLabelValues("similarity").Add(float64(len(pending)))
	return pending
}

// score runs one similarity call per candidate and returns outcomes in candidate order.
// Cancellation of ctx abandons queued tasks and fails the whole search.
func (s *Service) score(ctx context.Context, q string, pending []candidate) ([]outcome, error) {
	outcomes := make([]outcome, len(pending))
	if len(pending) == 0 {
		return outcomes, nil
	}

	session := s.scorer.NewSession(q)
	task := func(i int) {
		if err := ctx.Err(); err != nil {
			outcomes[i].err = err
			return
		}
		callCtx, cancel := s.callContext(ctx)
		defer cancel()
		outcomes[i].score, outcomes[i].err = session.Score(callCtx, pending[i].text)
	}

	if s.pool == nil {
		for i := range pending {
			task(i)
		}
	} else {
		var wg sync.WaitGroup
		for i := range pending {
			if ctx.Err() != nil {
				break
			}
			wg.Add(1)
			err := s.pool.Submit(func() {
				defer wg.Done()
				task(i)
			})
			if err != nil {
				wg.Done()
				outcomes[i].err = fmt.Errorf("submit scoring task: %w: %w", domain.ErrScoringUnavailable, err)
			}
		}
		wg.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context errors pass through unchanged
	}
	return outcomes, nil
}

func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.CallTimeout)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return "embedding_unavailable"
	case errors.Is(err, domain.ErrScoringUnavailable):
		return "scoring_unavailable"
	default:
		return "other"
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, domain.ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

package pictag

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for pictag_sdk_calls_total.
const (
	outcomeOK          = "ok"
	outcomeNotFound    = "not_found"
	outcomeInvalid     = "invalid"
	outcomeUnavailable = "unavailable"
	outcomeFailed      = "failed"
)

// clientMetrics are the collectors a Client reports to when WithPrometheus is set.
type clientMetrics struct {
	calls       *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	searchHits  prometheus.Histogram
	exactHits   prometheus.Counter
	taggedFiles prometheus.Counter
}

func newClientMetrics(reg prometheus.Registerer) (*clientMetrics, error) {
	m := &clientMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pictag_sdk_calls_total",
			Help: "Client calls by call name and outcome (ok, not_found, invalid, unavailable, failed).",
		}, []string{"call", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "pictag_sdk_call_latency_seconds",
			Help: "Client call latency; search and tag include model round trips.",
			// 5ms .. ~20s
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"call"}),
		searchHits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pictag_sdk_search_hits",
			Help:    "Images returned per successful search.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
		exactHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pictag_sdk_search_exact_hits_total",
			Help: "Search hits that came from a substring match rather than similarity.",
		}),
		taggedFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pictag_sdk_tagged_files_total",
			Help: "Files captioned and labelled through Client.Tag.",
		}),
	}

	var err error
	if m.calls, err = shared(reg, m.calls); err != nil {
		return nil, err
	}
	if m.latency, err = shared(reg, m.latency); err != nil {
		return nil, err
	}
	if m.searchHits, err = shared(reg, m.searchHits); err != nil {
		return nil, err
	}
	if m.exactHits, err = shared(reg, m.exactHits); err != nil {
		return nil, err
	}
	if m.taggedFiles, err = shared(reg, m.taggedFiles); err != nil {
		return nil, err
	}
	return m, nil
}

// shared registers c, or returns the collector already registered under the
// same descriptor so several clients can report to one registry.
func shared[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, fmt.Errorf("pictag: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(C)
	if !ok {
		return c, fmt.Errorf("pictag: metric registered with a different type %T", are.ExistingCollector)
	}
	return existing, nil
}

// outcome maps an error to its calls_total label.
func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrImageNotFound):
		return outcomeNotFound
	case errors.Is(err, ErrInvalidRequest):
		return outcomeInvalid
	case errors.Is(err, ErrStorageUnavailable),
		errors.Is(err, ErrEmbeddingUnavailable),
		errors.Is(err, ErrTaggingUnavailable):
		return outcomeUnavailable
	default:
		return outcomeFailed
	}
}

// observer logs and counts client calls. A nil observer is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *clientMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newClientMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// observe records one finished call. attrs are extra slog key/value pairs.
func (o *observer) observe(call string, start time.Time, err error, attrs ...any) {
	if o == nil {
		return
	}
	took := time.Since(start)
	result := outcome(err)

	if o.metrics != nil {
		o.metrics.calls.WithLabelValues(call, result).Inc()
		o.metrics.latency.WithLabelValues(call).Observe(took.Seconds())
	}
	if o.logger == nil {
		return
	}
	args := append([]any{"call", call, "outcome", result, "took", took}, attrs...)
	switch result {
	case outcomeOK, outcomeNotFound:
		o.logger.Debug("pictag call", args...)
	default:
		o.logger.Warn("pictag call failed", append(args, "error", err)...)
	}
}

// searched records the size and exact share of a successful search.
func (o *observer) searched(hits []SearchHit) {
	if o == nil || o.metrics == nil {
		return
	}
	o.metrics.searchHits.Observe(float64(len(hits)))
	for i := range hits {
		if hits[i].Exact {
			o.metrics.exactHits.Inc()
		}
	}
}

// tagged records how many files a Tag call processed.
func (o *observer) tagged(files int) {
	if o == nil || o.metrics == nil {
		return
	}
	o.metrics.taggedFiles.Add(float64(files))
}

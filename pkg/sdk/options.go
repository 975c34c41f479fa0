package pictag

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey", "redis" or "badger"
	addrs    []string
	password string
	path     string

	embedder    Embedder
	openAIKey   string
	openAIModel string
	hfKey       string
	pairwise    bool

	threshold *float64
	workers   int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey stores image metadata in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis stores image metadata in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithBadger stores image metadata in a local Badger directory.
// An empty path keeps everything in memory.
func WithBadger(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "badger"
		c.addrs = nil
		c.path = path
	})
}

// WithEmbedder sets the text embedding provider used for similarity scoring.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithOpenAI embeds text with an OpenAI embedding model.
// Ignored when WithEmbedder is also given.
func WithOpenAI(apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAIKey = apiKey
		c.openAIModel = model
	})
}

// WithHuggingFace sets the Inference API token used for tagging and pairwise scoring.
func WithHuggingFace(apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.hfKey = apiKey
	})
}

// WithPairwiseSimilarity scores every (query, candidate) pair with the hosted
// sentence-similarity model instead of comparing embeddings.
func WithPairwiseSimilarity() Option {
	return optionFunc(func(c *clientConfig) {
		c.pairwise = true
	})
}

// WithThreshold sets the minimum similarity a candidate must exceed. Default: 0.5.
// Zero accepts every candidate with a positive score.
func WithThreshold(t float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.threshold = &t
	})
}

// WithWorkers bounds concurrent similarity calls per client. Default: 8.
func WithWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workers = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// Package app is the composition root shared by the API server and the CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pictag/internal/config"
	"github.com/kailas-cloud/pictag/internal/db"
	dbBadger "github.com/kailas-cloud/pictag/internal/db/badger"
	dbRedis "github.com/kailas-cloud/pictag/internal/db/redis"
	"github.com/kailas-cloud/pictag/internal/domain"
	logpkg "github.com/kailas-cloud/pictag/internal/logger"
	"github.com/kailas-cloud/pictag/internal/metrics"
	"github.com/kailas-cloud/pictag/internal/repository/embcache"
	imagerepo "github.com/kailas-cloud/pictag/internal/repository/image"
	"github.com/kailas-cloud/pictag/internal/transport/huggingface"
	openaiEmb "github.com/kailas-cloud/pictag/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/pictag/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/pictag/internal/usecase/health"
	imageuc "github.com/kailas-cloud/pictag/internal/usecase/image"
	searchuc "github.com/kailas-cloud/pictag/internal/usecase/search"
	"github.com/kailas-cloud/pictag/internal/usecase/similarity"
	"github.com/kailas-cloud/pictag/internal/usecase/tagging"
)

// App holds the wired services.
type App struct {
	Images  *imageuc.Service
	Search  *searchuc.Service
	Tagging *tagging.Service
	Health  *healthuc.Service

	store     db.Store
	ownsStore bool
	pool      *ants.Pool
}

// Option customizes wiring.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) { f(o) }

type options struct {
	store    db.Store
	embedder domain.Embedder
	pairwise similarity.PairwiseClient
	vision   vision
}

type vision interface {
	tagging.Captioner
	tagging.Detector
}

// WithStore uses an already opened store. The App does not close it.
func WithStore(s db.Store) Option {
	return optionFunc(func(o *options) { o.store = s })
}

// WithEmbedder replaces the OpenAI-compatible provider at the base of the embedder chain.
func WithEmbedder(e domain.Embedder) Option {
	return optionFunc(func(o *options) { o.embedder = e })
}

// WithPairwise replaces the remote sentence-similarity client.
func WithPairwise(c similarity.PairwiseClient) Option {
	return optionFunc(func(o *options) { o.pairwise = c })
}

// WithVision replaces the remote captioning and detection client.
func WithVision(v interface {
	tagging.Captioner
	tagging.Detector
},
) Option {
	return optionFunc(func(o *options) { o.vision = v })
}

// New opens the store, waits for it and wires all services.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt.apply(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	store, owns := o.store, false
	if store == nil {
		s, err := OpenStore(&cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		store, owns = s, true
	}

	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		if owns {
			store.Close()
		}
		return nil, fmt.Errorf("database not ready: %w", err)
	}

	hf := huggingface.NewClient(&huggingface.Config{
		APIKey:          cfg.HuggingFace.APIKey,
		BaseURL:         cfg.HuggingFace.BaseURL,
		CaptionModel:    cfg.HuggingFace.CaptionModel,
		DetectionModel:  cfg.HuggingFace.DetectionModel,
		SimilarityModel: cfg.HuggingFace.SimilarityModel,
		Timeout:         time.Duration(cfg.HuggingFace.TimeoutSec) * time.Second,
		Logger:          logger,
	})

	providers := map[string]healthuc.ProviderChecker{"inference": hf}
	var scorer searchuc.Scorer
	switch cfg.Search.Strategy {
	case config.StrategyPairwise:
		var client similarity.PairwiseClient = hf
		if o.pairwise != nil {
			client = o.pairwise
		}
		scorer = similarity.NewPairwiseScorer(client)
	default:
		emb := buildEmbedder(&cfg.Embedding, o.embedder, store, cfg.Database.KeyPrefix, logger)
		providers["embedding"] = emb
		scorer = similarity.NewEmbeddingScorer(emb)
	}

	pool, err := ants.NewPool(cfg.Search.Workers,
		ants.WithLogger(logpkg.NewPrintf(logger.Named("pool"))),
		ants.WithPanicHandler(func(p any) {
			logger.Error("scoring task panicked", zap.Any("panic", p), zap.Stack("stacktrace"))
		}),
	)
	if err != nil {
		if owns {
			store.Close()
		}
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	repo := imagerepo.New(store, cfg.Database.KeyPrefix, logger)

	var vis vision = hf
	if o.vision != nil {
		vis = o.vision
	}

	return &App{
		Images: imageuc.New(repo),
		Search: searchuc.New(repo, scorer, pool, searchuc.Options{
			Strategy:    cfg.Search.Strategy,
			Threshold:   cfg.Search.Threshold,
			CallTimeout: cfg.Search.CallTimeout(),
		}, logger),
		Tagging:   tagging.New(vis, vis, 0, logger),
		Health:    healthuc.New(store, providers),
		store:     store,
		ownsStore: owns,
		pool:      pool,
	}, nil
}

// Ping checks store connectivity.
func (a *App) Ping(ctx context.Context) error {
	if err := a.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the worker pool and, when the App opened it, the store.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Release()
	}
	if a.ownsStore && a.store != nil {
		a.store.Close()
	}
}

// OpenStore creates the metadata store for the configured driver.
func OpenStore(cfg *config.DatabaseConfig, logger *zap.Logger) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverValkey, config.DriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
		}
		return s, nil
	case config.DriverBadger:
		s, err := dbBadger.Open(dbBadger.Config{
			Path:   cfg.Path,
			Logger: logger.Named("badger"),
		})
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// embedder is the chain head: embedding plus health reporting.
type embedder interface {
	domain.Embedder
	domain.HealthChecker
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func buildEmbedder(
	cfg *config.EmbeddingConfig,
	base domain.Embedder,
	store db.Store,
	keyPrefix string,
	logger *zap.Logger,
) embedder {
	if base == nil {
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			Timeout:    time.Duration(cfg.TimeoutSec) * time.Second,
			Logger:     logger,
		})
	}

	cached := embcache.New(base, store, embcache.Options{
		KeyPrefix:  keyPrefix,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		TTL:        time.Duration(cfg.CacheTTLSec) * time.Second,
		CacheTotal: metrics.EmbeddingCacheTotal,
	}, logger)

	return embeddinguc.NewInstrumentedEmbedder(cached, cfg.Provider, cfg.Model, logger)
}

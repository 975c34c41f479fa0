package pictag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pictag/internal/app"
	"github.com/kailas-cloud/pictag/internal/config"
	"github.com/kailas-cloud/pictag/internal/domain"
	domimage "github.com/kailas-cloud/pictag/internal/domain/image"
	"github.com/kailas-cloud/pictag/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/pictag/internal/usecase/health"
	"github.com/kailas-cloud/pictag/internal/usecase/tagging"
)

// Internal interfaces so tests can substitute the services.
type imageUseCase interface {
	Create(ctx context.Context, d domimage.Draft) (domimage.Record, error)
	Get(ctx context.Context, id int64) (domimage.Record, error)
	List(ctx context.Context) ([]domimage.Record, error)
	Delete(ctx context.Context, id int64) error
}

type searchUseCase interface {
	Search(ctx context.Context, query string, limit int) ([]result.Result, error)
}

type taggingUseCase interface {
	Tag(ctx context.Context, uploads []tagging.Upload) ([]tagging.Tagged, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the pictag SDK entry point.
type Client struct {
	app        *app.App
	pinger     interface{ Ping(ctx context.Context) error }
	imageSvc   imageUseCase
	searchSvc  searchUseCase
	taggingSvc taggingUseCase
	healthSvc  healthUseCase
	obs        *observer
}

// New creates a pictag Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	appCfg, err := buildConfig(cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var appOpts []app.Option
	switch {
	case cfg.embedder != nil:
		appOpts = append(appOpts, app.WithEmbedder(&embedderAdapter{inner: cfg.embedder}))
	case cfg.openAIKey == "" && !cfg.pairwise:
		appOpts = append(appOpts, app.WithEmbedder(noopEmbedder{}))
	}

	a, err := app.New(ctx, appCfg, zap.NewNop(), appOpts...)
	if err != nil {
		return nil, fmt.Errorf("pictag: %w", err)
	}

	return &Client{
		app:        a,
		pinger:     a,
		imageSvc:   a.Images,
		searchSvc:  a.Search,
		taggingSvc: a.Tagging,
		healthSvc:  a.Health,
		obs:        obs,
	}, nil
}

// buildConfig maps client options onto the service configuration.
func buildConfig(c *clientConfig) (*config.Config, error) {
	if c.driver == "" {
		return nil, errors.New("pictag: storage required (use WithValkey, WithRedis or WithBadger)")
	}
	if c.driver != config.DriverBadger && len(c.addrs) == 0 {
		return nil, errors.New("pictag: database address required")
	}

	cfg := &config.Config{}
	cfg.Database.Driver = c.driver
	cfg.Database.Addrs = c.addrs
	cfg.Database.Password = c.password
	cfg.Database.Path = c.path
	cfg.Embedding.APIKey = c.openAIKey
	cfg.Embedding.Model = c.openAIModel
	cfg.HuggingFace.APIKey = c.hfKey
	cfg.Search.Threshold = c.threshold
	cfg.Search.Workers = c.workers
	if c.pairwise {
		cfg.Search.Strategy = config.StrategyPairwise
	}
	if c.embedder != nil && cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "custom"
	}
	cfg.ApplyDefaults()

	if th := cfg.Search.MinScore(); th < 0 || th >= 1 {
		return nil, fmt.Errorf("pictag: threshold must be in [0, 1), got %g", th)
	}
	return cfg, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.app != nil {
		c.app.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	return c.pinger.Ping(ctx) //nolint:wrapcheck // already wrapped by app
}

// Images returns the image record service.
func (c *Client) Images() *ImageService {
	return &ImageService{svc: c.imageSvc, obs: c.obs}
}

// Search ranks stored images against query. limit <= 0 returns every match.
func (c *Client) Search(ctx context.Context, query string, limit int) (hits []SearchHit, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err, "hits", len(hits)) }()

	results, err := c.searchSvc.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	hits = make([]SearchHit, len(results))
	for i := range results {
		r := &results[i]
		hits[i] = SearchHit{
			Image: Image{
				ID:       r.ID(),
				URL:      r.URL(),
				Filename: r.Filename(),
				Tags:     r.Tags(),
				Captions: r.Captions(),
			},
			Score: r.Score(),
			Exact: r.Exact(),
		}
	}
	c.obs.searched(hits)
	return hits, nil
}

// Tag captions and labels raw images. Nothing is stored.
func (c *Client) Tag(ctx context.Context, uploads []Upload) (out []TagResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("tag", start, err, "files", len(uploads)) }()

	in := make([]tagging.Upload, len(uploads))
	for i, u := range uploads {
		in[i] = tagging.Upload{Filename: u.Filename, Data: u.Data}
	}
	tagged, err := c.taggingSvc.Tag(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("tag: %w", err)
	}
	out = make([]TagResult, len(tagged))
	for i, t := range tagged {
		out[i] = TagResult{Filename: t.Filename, Tags: t.Tags, Captions: t.Captions, ImageSize: t.ImageSize}
	}
	c.obs.tagged(len(out))
	return out, nil
}

// noopEmbedder fails every call; exact matches still work without a provider.
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, fmt.Errorf("no embedder configured: %w", domain.ErrEmbeddingUnavailable)
}

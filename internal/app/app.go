// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/JakeFAU/gradcafe-crawler/internal/config"
	"github.com/JakeFAU/gradcafe-crawler/internal/crawler"
	"github.com/JakeFAU/gradcafe-crawler/internal/dashboard"
	collyfetcher "github.com/JakeFAU/gradcafe-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/gradcafe-crawler/internal/fetcher/escalating"
	"github.com/JakeFAU/gradcafe-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/gradcafe-crawler/internal/headless/detector"
	"github.com/JakeFAU/gradcafe-crawler/internal/id/uuid"
	"github.com/JakeFAU/gradcafe-crawler/internal/metrics"
	"github.com/JakeFAU/gradcafe-crawler/internal/parser"
	"github.com/JakeFAU/gradcafe-crawler/internal/pipeline"
	"github.com/JakeFAU/gradcafe-crawler/internal/policy/ratelimit"
	pubsubpublisher "github.com/JakeFAU/gradcafe-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/gradcafe-crawler/internal/snapshot"
	gcsstore "github.com/JakeFAU/gradcafe-crawler/internal/storage/gcs"
	localstore "github.com/JakeFAU/gradcafe-crawler/internal/storage/local"
	memorystore "github.com/JakeFAU/gradcafe-crawler/internal/storage/memory"
	"github.com/JakeFAU/gradcafe-crawler/internal/storage/postgres"
)

// ErrDatabaseDisabled is returned by accessors that need db.dsn.
var ErrDatabaseDisabled = errors.New("database is not configured (set db.dsn)")

// App holds the shared, long-lived services for one process: the snapshot store, the
// pipeline, the applicant store and analyzer, and the dashboard.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	snapshots  snapshot.Store
	pipeline   *pipeline.Pipeline
	applicants *postgres.ApplicantStore
	analyzer   *postgres.Analyzer
	dashboard  *dashboard.Server

	closers []closer
}

type closer struct {
	name  string
	close func() error
}

// Option customizes App construction.
type Option func(*options)

type options struct {
	clientOpts []option.ClientOption
}

// WithClientOptions passes options to the GCS and Pub/Sub clients, e.g. an emulator
// endpoint.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(o *options) {
		o.clientOpts = append(o.clientOpts, opts...)
	}
}

// NewApp builds every service cfg asks for. It fails fast; anything opened before the
// failure is closed again.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	metrics.Init()

	a := &App{cfg: cfg, logger: logger}
	if err := a.init(ctx, o); err != nil {
		a.Close()
		return nil, err
	}
	logger.Info("application services initialized",
		zap.String("snapshot_backend", cfg.Snapshot.Backend),
		zap.Bool("database", a.applicants != nil),
		zap.String("headless", cfg.Headless.Mode),
		zap.String("topic", cfg.PubSub.TopicName),
	)
	return a, nil
}

func (a *App) init(ctx context.Context, o options) error {
	store, err := a.buildSnapshotStore(ctx, o)
	if err != nil {
		return fmt.Errorf("init snapshot store: %w", err)
	}
	a.snapshots = store

	c, err := a.buildCrawler()
	if err != nil {
		return fmt.Errorf("init crawler: %w", err)
	}

	pipelineOpts := []pipeline.Option{pipeline.WithIDGenerator(uuid.New())}

	if a.cfg.DatabaseEnabled() {
		if err := a.buildDatabase(ctx); err != nil {
			return fmt.Errorf("init database: %w", err)
		}
		pipelineOpts = append(pipelineOpts, pipeline.WithSink(a.applicants))
	}

	if a.cfg.PubSub.TopicName != "" {
		pub, err := a.buildPublisher(ctx, o)
		if err != nil {
			return fmt.Errorf("init publisher: %w", err)
		}
		pipelineOpts = append(pipelineOpts, pipeline.WithPublisher(pub, a.cfg.PubSub.TopicName))
	}

	p, err := pipeline.New(store, c, a.logger.Named("pipeline"), pipelineOpts...)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}
	a.pipeline = p

	if a.analyzer != nil {
		srv, err := dashboard.NewServer(p, a.analyzer, &dashboard.RunLock{}, a.logger.Named("dashboard"))
		if err != nil {
			return fmt.Errorf("init dashboard: %w", err)
		}
		a.dashboard = srv
	}
	return nil
}

func (a *App) buildSnapshotStore(ctx context.Context, o options) (snapshot.Store, error) {
	switch a.cfg.Snapshot.Backend {
	case config.SnapshotLocal:
		return localstore.New(localstore.Config{Path: a.cfg.Snapshot.Path})
	case config.SnapshotMemory:
		a.logger.Warn("using in-memory snapshot store; data is lost on exit")
		return memorystore.NewSnapshotStore(), nil
	case config.SnapshotGCS:
		client, err := storage.NewClient(ctx, o.clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		a.onClose("gcs client", client.Close)
		return gcsstore.New(client, gcsstore.Config{
			Bucket: a.cfg.Snapshot.GCSBucket,
			Object: a.cfg.Snapshot.GCSObject,
		})
	default:
		return nil, fmt.Errorf("unknown snapshot backend: %s", a.cfg.Snapshot.Backend)
	}
}

func (a *App) buildCrawler() (*crawler.Crawler, error) {
	p, err := parser.New(a.cfg.Scrape.BaseURL)
	if err != nil {
		return nil, err
	}

	var fetcher crawler.Fetcher = collyfetcher.New(collyfetcher.Config{
		UserAgent:     a.cfg.Scrape.UserAgent,
		RespectRobots: a.cfg.Scrape.RespectRobots,
		Timeout:       a.cfg.ScrapeTimeout(),
	})
	if a.cfg.HeadlessEnabled() {
		hf, err := headless.NewChromedp(headless.Config{
			UserAgent:         a.cfg.Scrape.UserAgent,
			NavigationTimeout: time.Duration(a.cfg.Headless.NavTimeoutSec) * time.Second,
			WaitSelector:      a.cfg.Headless.WaitSelector,
			Settle:            time.Duration(a.cfg.Headless.SettleMillis) * time.Millisecond,
		})
		if err != nil {
			return nil, err
		}
		a.onClose("headless browser", func() error {
			hf.Close()
			return nil
		})
		if a.cfg.Headless.Mode == config.HeadlessAlways {
			fetcher = hf
		} else {
			fetcher, err = escalating.New(fetcher, hf, detector.NewHeuristic(0), a.logger.Named("escalating"))
			if err != nil {
				return nil, err
			}
		}
	}
	fetcher = ratelimit.Wrap(fetcher, ratelimit.New(ratelimit.Config{RPS: a.cfg.Scrape.RequestsPerSecond}))

	return crawler.New(crawler.Config{
		BaseURL:    a.cfg.Scrape.BaseURL,
		MaxEntries: a.cfg.Scrape.MaxEntries,
	}, fetcher, p, a.logger.Named("crawler"))
}

func (a *App) buildDatabase(ctx context.Context) error {
	pool, err := postgres.NewPool(ctx, postgres.Config{
		DSN:             a.cfg.DB.DSN,
		Table:           a.cfg.DB.Table,
		MaxConns:        a.cfg.DB.MaxConns,
		MinConns:        a.cfg.DB.MinConns,
		MaxConnLifetime: time.Duration(a.cfg.DB.MaxConnLifetimeMinutes) * time.Minute,
	})
	if err != nil {
		return err
	}
	a.onClose("postgres pool", func() error {
		pool.Close()
		return nil
	})

	applicants, err := postgres.NewApplicantStore(pool, a.cfg.DB.Table)
	if err != nil {
		return err
	}
	if err := applicants.EnsureSchema(ctx); err != nil {
		return err
	}
	analyzer, err := postgres.NewAnalyzer(pool, a.cfg.DB.Table)
	if err != nil {
		return err
	}
	a.applicants = applicants
	a.analyzer = analyzer
	return nil
}

func (a *App) buildPublisher(ctx context.Context, o options) (*pubsubpublisher.Publisher, error) {
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID, o.clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	a.onClose("pubsub client", client.Close)
	pub := pubsubpublisher.New(client)
	// Topics must be flushed before the client goes away; closers run in reverse.
	a.onClose("pubsub topics", func() error {
		pub.Close()
		return nil
	})
	return pub, nil
}

func (a *App) onClose(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, close: fn})
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Snapshots returns the configured snapshot store.
func (a *App) Snapshots() snapshot.Store {
	return a.snapshots
}

// Pipeline returns the scrape/clean/merge pipeline.
func (a *App) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// Applicants returns the applicant store, or ErrDatabaseDisabled.
func (a *App) Applicants() (*postgres.ApplicantStore, error) {
	if a.applicants == nil {
		return nil, ErrDatabaseDisabled
	}
	return a.applicants, nil
}

// Analyzer returns the analysis query runner, or ErrDatabaseDisabled.
func (a *App) Analyzer() (*postgres.Analyzer, error) {
	if a.analyzer == nil {
		return nil, ErrDatabaseDisabled
	}
	return a.analyzer, nil
}

// Dashboard returns the HTTP dashboard, or ErrDatabaseDisabled since it needs the
// analysis queries.
func (a *App) Dashboard() (*dashboard.Server, error) {
	if a.dashboard == nil {
		return nil, ErrDatabaseDisabled
	}
	return a.dashboard, nil
}

// Close releases resources in reverse order of acquisition. Errors are logged.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.logger.Warn("error closing resource", zap.String("resource", c.name), zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
}

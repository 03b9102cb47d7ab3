// Package pipeline runs one scrape: load the snapshot, crawl for new rows, clean them,
// append them to the dataset and save it once. A relational reload and a run
// notification can follow the save.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/gradcafe-crawler/internal/cleaner"
	"github.com/JakeFAU/gradcafe-crawler/internal/crawler"
	"github.com/JakeFAU/gradcafe-crawler/internal/metrics"
	"github.com/JakeFAU/gradcafe-crawler/internal/snapshot"
	"github.com/JakeFAU/gradcafe-crawler/internal/survey"
)

// Crawler collects raw rows not present in known.
type Crawler interface {
	Crawl(ctx context.Context, known survey.URLSet) crawler.Result
}

// Sink receives the full dataset after every successful save.
type Sink interface {
	Reload(ctx context.Context, dataset survey.Dataset) error
}

// Publisher sends run notifications.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// IDGenerator creates run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Result summarizes a pipeline run.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Existing   int
	New        int
	Total      int
	Pages      int
	StopReason crawler.StopReason
	// CrawlErr is the fetch error that ended the crawl early, if any. The run still
	// saves what was collected.
	CrawlErr  error
	Reloaded  bool
	Published bool
}

// Duration is the wall time of the run.
func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Pipeline wires the crawl to persistence.
type Pipeline struct {
	store     snapshot.Store
	crawler   Crawler
	sink      Sink
	publisher Publisher
	topic     string
	ids       IDGenerator
	logger    *zap.Logger
	now       func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithSink reloads sink with the merged dataset after each save.
func WithSink(sink Sink) Option {
	return func(p *Pipeline) {
		p.sink = sink
	}
}

// WithPublisher publishes a RunEvent to topic after each run.
func WithPublisher(pub Publisher, topic string) Option {
	return func(p *Pipeline) {
		p.publisher = pub
		p.topic = topic
	}
}

// WithIDGenerator sets the run id source.
func WithIDGenerator(ids IDGenerator) Option {
	return func(p *Pipeline) {
		p.ids = ids
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New builds a Pipeline. store and c are required.
func New(store snapshot.Store, c Crawler, logger *zap.Logger, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, errors.New("snapshot store is required")
	}
	if c == nil {
		return nil, errors.New("crawler is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		store:   store,
		crawler: c,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.publisher != nil && p.topic == "" {
		return nil, errors.New("publisher topic is required")
	}
	return p, nil
}

// Run executes one pipeline run. Load, save and reload failures are returned; a crawl
// that stops on a fetch failure is not an error.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	res := Result{StartedAt: p.now()}
	if p.ids != nil {
		id, err := p.ids.NewID()
		if err != nil {
			return p.fail(res, fmt.Errorf("generate run id: %w", err))
		}
		res.RunID = id
	}
	logger := p.logger.With(zap.String("run_id", res.RunID))
	logger.Info("pipeline run started")

	existing, err := p.store.Load(ctx)
	if err != nil {
		return p.fail(res, fmt.Errorf("load snapshot: %w", err))
	}
	res.Existing = len(existing)

	crawled := p.crawler.Crawl(ctx, existing.KnownURLs())
	res.Pages = crawled.Pages
	res.StopReason = crawled.Reason
	res.CrawlErr = crawled.Err
	if crawled.Err != nil {
		logger.Warn("crawl ended early", zap.String("reason", string(crawled.Reason)), zap.Error(crawled.Err))
	}

	fresh := cleaner.CleanAll(crawled.Entries)
	merged := survey.Merge(existing, fresh)
	res.New = len(fresh)
	res.Total = len(merged)

	if err := p.store.Save(ctx, merged); err != nil {
		return p.fail(res, fmt.Errorf("save snapshot: %w", err))
	}
	logger.Info("snapshot saved", zap.Int("existing", res.Existing), zap.Int("new", res.New), zap.Int("total", res.Total))

	if p.sink != nil {
		if err := p.sink.Reload(ctx, merged); err != nil {
			return p.fail(res, fmt.Errorf("reload database: %w", err))
		}
		res.Reloaded = true
		logger.Info("database reloaded", zap.Int("rows", res.Total))
	}

	res.FinishedAt = p.now()
	p.notify(ctx, logger, &res)
	metrics.ObservePipelineRun("success", res.Duration(), res.Total)
	logger.Info("pipeline run finished",
		zap.String("reason", string(res.StopReason)),
		zap.Int("pages", res.Pages),
		zap.Int("new", res.New),
		zap.Duration("duration", res.Duration()),
	)
	return res, nil
}

// notify publishes the run event. Notification failures are logged only.
func (p *Pipeline) notify(ctx context.Context, logger *zap.Logger, res *Result) {
	if p.publisher == nil {
		return
	}
	id, err := p.publisher.Publish(ctx, p.topic, NewRunEvent(*res))
	if err != nil {
		logger.Warn("run notification failed", zap.String("topic", p.topic), zap.Error(err))
		return
	}
	res.Published = true
	logger.Debug("run notification published", zap.String("topic", p.topic), zap.String("message_id", id))
}

func (p *Pipeline) fail(res Result, err error) (Result, error) {
	res.FinishedAt = p.now()
	metrics.ObservePipelineRun("failure", res.Duration(), -1)
	p.logger.Error("pipeline run failed", zap.String("run_id", res.RunID), zap.Error(err))
	return res, err
}

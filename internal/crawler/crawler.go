// Package crawler walks the paginated survey listing and collects rows that are not
// yet part of the dataset.
//
// The crawl is a small state machine:
//
//	Idle -> FetchingPage -> ExtractingRows -> Filtering -> FetchingPage (next page)
//
// and any state may move to Stopped with one of the StopReason values. Pages are
// fetched one at a time with no retries; whatever was collected before a stop is
// returned.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/JakeFAU/gradcafe-crawler/internal/metrics"
	"github.com/JakeFAU/gradcafe-crawler/internal/survey"
)

// State is a crawl state.
type State string

// Crawl states.
const (
	StateIdle           State = "idle"
	StateFetchingPage   State = "fetching-page"
	StateExtractingRows State = "extracting-rows"
	StateFiltering      State = "filtering"
	StateStopped        State = "stopped"
)

// StopReason explains why a crawl ended.
type StopReason string

// Stop reasons.
const (
	StopFetchFailed  StopReason = "fetch-failed"
	StopNoMoreRows   StopReason = "no-more-rows"
	StopSeenPrevious StopReason = "seen-previous"
	StopCapReached   StopReason = "cap-reached"
)

// ErrUnexpectedStatus marks a listing page that answered with something other than 200.
var ErrUnexpectedStatus = errors.New("unexpected status code")

// Config holds the settings for a crawl.
type Config struct {
	// BaseURL is the listing URL; page N is requested as BaseURL?page=N.
	BaseURL string
	// MaxEntries caps the number of new records collected per crawl.
	MaxEntries int
}

// Result is the outcome of one crawl.
type Result struct {
	Entries []survey.RawEntry
	Reason  StopReason
	Pages   int
	// Err is set when the crawl stopped on a fetch failure.
	Err error
}

// Crawler drives a Fetcher and a PageParser across listing pages.
type Crawler struct {
	cfg     Config
	base    *url.URL
	fetcher Fetcher
	parser  PageParser
	logger  *zap.Logger
}

// New validates cfg and builds a Crawler.
func New(cfg Config, fetcher Fetcher, parser PageParser, logger *zap.Logger) (*Crawler, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if parser == nil {
		return nil, errors.New("parser is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{
		cfg:     cfg,
		base:    base,
		fetcher: fetcher,
		parser:  parser,
		logger:  logger,
	}, nil
}

// PageURL returns the listing URL for page n, keeping any existing query parameters.
func (c *Crawler) PageURL(n int) string {
	u := *c.base
	q := u.Query()
	q.Set("page", strconv.Itoa(n))
	u.RawQuery = q.Encode()
	return u.String()
}

// Crawl collects rows whose URL is not in known, newest first, until a stop condition
// is hit. An empty known set performs a full crawl bounded only by MaxEntries.
func (c *Crawler) Crawl(ctx context.Context, known survey.URLSet) Result {
	run := &crawlRun{crawler: c, known: known, collected: survey.URLSet{}, state: StateIdle}
	for run.state != StateStopped {
		run.step(ctx)
	}
	c.logger.Info("crawl finished",
		zap.String("reason", string(run.result.Reason)),
		zap.Int("pages", run.result.Pages),
		zap.Int("new_entries", len(run.result.Entries)),
		zap.Error(run.result.Err),
	)
	metrics.ObserveCrawl(string(run.result.Reason), len(run.result.Entries))
	return run.result
}

// crawlRun carries the mutable state of a single Crawl call.
type crawlRun struct {
	crawler *Crawler
	known   survey.URLSet
	// collected holds URLs returned so far in this run; listings shift while we page.
	collected survey.URLSet
	state     State
	page      int
	body      []byte
	rows      []survey.RawEntry
	result    Result
}

func (r *crawlRun) step(ctx context.Context) {
	switch r.state {
	case StateIdle:
		if r.crawler.cfg.MaxEntries <= 0 {
			r.stop(StopCapReached, nil)
			return
		}
		r.page = 1
		r.state = StateFetchingPage
	case StateFetchingPage:
		r.fetch(ctx)
	case StateExtractingRows:
		r.extract()
	case StateFiltering:
		r.filter()
	case StateStopped:
	}
}

func (r *crawlRun) fetch(ctx context.Context) {
	pageURL := r.crawler.PageURL(r.page)
	logger := r.crawler.logger.With(zap.Int("page", r.page), zap.String("url", pageURL))
	logger.Info("fetching listing page", zap.Int("collected", len(r.result.Entries)))

	resp, err := r.crawler.fetcher.Fetch(ctx, FetchRequest{URL: pageURL, Page: r.page})
	if err == nil && resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if err != nil {
		logger.Warn("listing fetch failed", zap.Error(err))
		metrics.ObservePage(pageURL, "error", 0)
		r.stop(StopFetchFailed, fmt.Errorf("fetch page %d: %w", r.page, err))
		return
	}
	metrics.ObservePage(pageURL, "ok", len(resp.Body))
	r.result.Pages++
	r.body = resp.Body
	r.state = StateExtractingRows
}

func (r *crawlRun) extract() {
	r.rows = r.crawler.parser.Parse(r.body)
	r.body = nil
	if len(r.rows) == 0 {
		r.crawler.logger.Info("no rows on listing page", zap.Int("page", r.page))
		r.stop(StopNoMoreRows, nil)
		return
	}
	r.state = StateFiltering
}

func (r *crawlRun) filter() {
	for _, row := range r.rows {
		if r.known.Contains(row.URLRaw) {
			r.crawler.logger.Info("reached previously seen entry", zap.String("url", row.URLRaw))
			r.stop(StopSeenPrevious, nil)
			return
		}
		if r.collected.Contains(row.URLRaw) {
			r.crawler.logger.Debug("skipping row repeated by a shifted page", zap.String("url", row.URLRaw))
			continue
		}
		if row.URLRaw != "" {
			r.collected[row.URLRaw] = struct{}{}
		}
		r.result.Entries = append(r.result.Entries, row)
		if len(r.result.Entries) >= r.crawler.cfg.MaxEntries {
			r.stop(StopCapReached, nil)
			return
		}
	}
	r.rows = nil
	r.page++
	r.state = StateFetchingPage
}

func (r *crawlRun) stop(reason StopReason, err error) {
	r.result.Reason = reason
	r.result.Err = err
	r.state = StateStopped
}

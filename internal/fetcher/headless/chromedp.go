// Package headless fetches listing pages through headless Chrome for the cases where
// the survey table is rendered client-side.
package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/gradcafe-crawler/internal/crawler"
)

const (
	defaultNavigationTimeout = 45 * time.Second
	defaultWaitSelector      = "table"
)

// Config controls the behavior of the headless fetcher.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
	// WaitSelector is the CSS selector that must be ready before the DOM is captured.
	WaitSelector string
	// Settle is an extra pause after WaitSelector is ready, for late table rows.
	Settle time.Duration
}

// Fetcher implements crawler.Fetcher using chromedp.
type Fetcher struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
	// startBrowser launches the browser behind a fresh browser context.
	startBrowser func(ctx context.Context) error

	mu            sync.Mutex
	browser       context.Context
	browserCancel context.CancelFunc
}

// NewChromedp creates a headless fetcher backed by chromedp. One browser process is
// started on the first Fetch and shared by later fetches, each in its own tab; Close
// shuts it down.
func NewChromedp(cfg Config) (*Fetcher, error) {
	if cfg.NavigationTimeout < 0 {
		return nil, errors.New("navigation timeout must be >= 0")
	}
	if cfg.Settle < 0 {
		return nil, errors.New("settle delay must be >= 0")
	}
	if cfg.NavigationTimeout == 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	if cfg.WaitSelector == "" {
		cfg.WaitSelector = defaultWaitSelector
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Fetcher{
		cfg:          cfg,
		allocator:    allocCtx,
		allocCancel:  allocCancel,
		startBrowser: func(ctx context.Context) error { return chromedp.Run(ctx) },
	}, nil
}

// Close shuts the browser down.
func (f *Fetcher) Close() {
	f.mu.Lock()
	if f.browserCancel != nil {
		f.browserCancel()
		f.browser, f.browserCancel = nil, nil
	}
	f.mu.Unlock()
	f.allocCancel()
}

// browserContext returns the shared browser context, launching the browser if needed.
// A failed launch is not cached.
func (f *Fetcher) browserContext() (context.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browser != nil {
		return f.browser, nil
	}
	browserCtx, cancel := chromedp.NewContext(f.allocator)
	if err := f.startBrowser(browserCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	f.browser, f.browserCancel = browserCtx, cancel
	return browserCtx, nil
}

// Fetch navigates to the listing page and returns the rendered DOM. The status code
// is taken from the main document response.
func (f *Fetcher) Fetch(ctx context.Context, request crawler.FetchRequest) (crawler.FetchResponse, error) {
	browserCtx, err := f.browserContext()
	if err != nil {
		return crawler.FetchResponse{}, err
	}
	// A context derived from the browser context opens a new tab; cancelling it closes
	// only that tab.
	taskCtx, taskCancel := chromedp.NewContext(browserCtx)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, f.cfg.NavigationTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	meta := newDocumentMeta()
	chromedp.ListenTarget(taskCtx, meta.captureEvent)

	start := time.Now()
	html, finalURL, err := f.render(taskCtx, request)
	if err != nil {
		if ctx.Err() != nil {
			return crawler.FetchResponse{}, fmt.Errorf("headless fetch canceled: %w", ctx.Err())
		}
		return crawler.FetchResponse{}, err
	}

	status, headers, responseURL := meta.resolve(request.URL, finalURL)
	return crawler.FetchResponse{
		URL:          responseURL,
		StatusCode:   status,
		Headers:      headers,
		Body:         []byte(html),
		Duration:     time.Since(start),
		UsedHeadless: true,
	}, nil
}

func (f *Fetcher) render(ctx context.Context, request crawler.FetchRequest) (string, string, error) {
	var (
		html     string
		finalURL string
	)
	actions := []chromedp.Action{
		f.setupAction(request.Headers),
		chromedp.Navigate(request.URL),
		chromedp.WaitReady(f.cfg.WaitSelector, chromedp.ByQuery),
	}
	if f.cfg.Settle > 0 {
		actions = append(actions, chromedp.Sleep(f.cfg.Settle))
	}
	actions = append(actions,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err := chromedp.Run(ctx, actions...); err != nil {
		return "", "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, finalURL, nil
}

func (f *Fetcher) setupAction(headers http.Header) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if f.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if len(headers) > 0 {
			if err := network.SetExtraHTTPHeaders(toNetworkHeaders(headers)).Do(ctx); err != nil {
				return fmt.Errorf("set extra headers: %w", err)
			}
		}
		return nil
	})
}

// documentMeta records the main document response seen by the browser.
type documentMeta struct {
	mu      sync.Mutex
	status  int
	headers http.Header
	url     string
}

func newDocumentMeta() *documentMeta {
	return &documentMeta{headers: http.Header{}}
}

func (m *documentMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	headers := http.Header{}
	for key, value := range resp.Response.Headers {
		switch v := value.(type) {
		case string:
			headers.Add(key, v)
		case []any:
			for _, entry := range v {
				headers.Add(key, fmt.Sprint(entry))
			}
		default:
			headers.Add(key, fmt.Sprint(v))
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Once a successful document response is recorded, later frames cannot replace it.
	if m.status != 0 && m.status < 300 {
		return
	}
	m.status = int(resp.Response.Status)
	m.headers = headers
	m.url = resp.Response.URL
}

// resolve returns status, headers and URL, falling back to the browser location and
// finally the request URL. A page rendered without a captured response counts as 200.
func (m *documentMeta) resolve(requestURL, finalURL string) (int, http.Header, string) {
	m.mu.Lock()
	status, headers, url := m.status, m.headers.Clone(), m.url
	m.mu.Unlock()

	switch {
	case url != "":
	case finalURL != "":
		url = finalURL
	default:
		url = requestURL
	}
	if status == 0 {
		status = http.StatusOK
	}
	if headers == nil {
		headers = http.Header{}
	}
	return status, headers, url
}

func toNetworkHeaders(h http.Header) network.Headers {
	headers := network.Headers{}
	for key, values := range h {
		switch len(values) {
		case 0:
		case 1:
			headers[key] = values[0]
		default:
			headers[key] = append([]string(nil), values...)
		}
	}
	return headers
}

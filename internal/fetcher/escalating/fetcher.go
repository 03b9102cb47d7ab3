// Package escalating retries a plain HTTP fetch through a rendering fetcher when the
// page turns out to be a client-rendered shell.
package escalating

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/gradcafe-crawler/internal/crawler"
)

// Detector decides whether a response needs rendering.
type Detector interface {
	ShouldPromote(crawler.FetchResponse) bool
}

// Fetcher tries fast first and promotes to render when the detector asks for it.
type Fetcher struct {
	fast     crawler.Fetcher
	render   crawler.Fetcher
	detector Detector
	logger   *zap.Logger
}

// New builds an escalating fetcher.
func New(fast, render crawler.Fetcher, detector Detector, logger *zap.Logger) (*Fetcher, error) {
	if fast == nil || render == nil {
		return nil, errors.New("fast and render fetchers are required")
	}
	if detector == nil {
		return nil, errors.New("detector is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{fast: fast, render: render, detector: detector, logger: logger}, nil
}

// Fetch implements crawler.Fetcher. A transport error from the fast path is returned
// as-is; it is not a reason to render.
func (f *Fetcher) Fetch(ctx context.Context, req crawler.FetchRequest) (crawler.FetchResponse, error) {
	resp, err := f.fast.Fetch(ctx, req)
	if err != nil {
		return resp, err
	}
	if !f.detector.ShouldPromote(resp) {
		return resp, nil
	}
	f.logger.Info("promoting page to headless fetch", zap.String("url", req.URL), zap.Int("page", req.Page))
	rendered, err := f.render.Fetch(ctx, req)
	if err != nil {
		return rendered, fmt.Errorf("headless fetch: %w", err)
	}
	return rendered, nil
}

package escalating

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/JakeFAU/gradcafe-crawler/internal/crawler"
	"github.com/JakeFAU/gradcafe-crawler/internal/headless/detector"
)

type stubFetcher struct {
	resp  crawler.FetchResponse
	err   error
	calls int
}

func (s *stubFetcher) Fetch(context.Context, crawler.FetchRequest) (crawler.FetchResponse, error) {
	s.calls++
	return s.resp, s.err
}

func TestNewValidation(t *testing.T) {
	f := &stubFetcher{}
	_, err := New(nil, f, detector.NewHeuristic(0), nil)
	require.Error(t, err)
	_, err = New(f, f, nil, nil)
	require.Error(t, err)
}

func TestFetchKeepsServerRenderedPage(t *testing.T) {
	fast := &stubFetcher{resp: crawler.FetchResponse{StatusCode: 200, Body: []byte(`<table><tr><td><a href="/result/1">x</a></td></tr></table>`)}}
	render := &stubFetcher{}
	f, err := New(fast, render, detector.NewHeuristic(0), zaptest.NewLogger(t))
	require.NoError(t, err)

	resp, err := f.Fetch(context.Background(), crawler.FetchRequest{URL: "https://example.com/survey/?page=1", Page: 1})
	require.NoError(t, err)
	assert.False(t, resp.UsedHeadless)
	assert.Zero(t, render.calls)
}

func TestFetchPromotesShell(t *testing.T) {
	fast := &stubFetcher{resp: crawler.FetchResponse{StatusCode: 200, Body: []byte(`<div id="__next"></div>`)}}
	render := &stubFetcher{resp: crawler.FetchResponse{StatusCode: 200, Body: []byte("<table></table>"), UsedHeadless: true}}
	f, err := New(fast, render, detector.NewHeuristic(0), zaptest.NewLogger(t))
	require.NoError(t, err)

	resp, err := f.Fetch(context.Background(), crawler.FetchRequest{URL: "https://example.com/survey/?page=1", Page: 1})
	require.NoError(t, err)
	assert.True(t, resp.UsedHeadless)
	assert.Equal(t, 1, fast.calls)
	assert.Equal(t, 1, render.calls)
}

func TestFetchFastErrorIsNotPromoted(t *testing.T) {
	boom := errors.New("connection refused")
	fast := &stubFetcher{err: boom}
	render := &stubFetcher{}
	f, err := New(fast, render, detector.NewHeuristic(0), nil)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), crawler.FetchRequest{URL: "https://example.com/"})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, render.calls)
}

func TestFetchRenderError(t *testing.T) {
	boom := errors.New("chrome crashed")
	fast := &stubFetcher{resp: crawler.FetchResponse{StatusCode: 200}}
	render := &stubFetcher{err: boom}
	f, err := New(fast, render, detector.NewHeuristic(0), nil)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), crawler.FetchRequest{URL: "https://example.com/"})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "headless fetch")
}

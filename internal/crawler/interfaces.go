package crawler

import (
	"context"
	"net/http"
	"time"

	"github.com/JakeFAU/gradcafe-crawler/internal/survey"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// PageParser extracts raw survey rows from one listing page.
type PageParser interface {
	Parse(body []byte) []survey.RawEntry
}

// FetchRequest captures everything needed to fetch a listing page.
type FetchRequest struct {
	URL     string
	Page    int
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

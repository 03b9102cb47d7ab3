// Package metrics exposes Prometheus collectors for the scrape pipeline and dashboard.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scraperPagesTotal          *prometheus.CounterVec
	scraperBytesTotal          *prometheus.CounterVec
	scraperRecordsTotal        prometheus.Counter
	scraperStopsTotal          *prometheus.CounterVec
	pipelineRunsTotal          *prometheus.CounterVec
	pipelineDurationSeconds    prometheus.Histogram
	datasetEntries             prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	rateLimitDelaySeconds      *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scraperPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gradcafe_scraper_pages_total",
				Help: "Listing pages fetched, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		scraperBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gradcafe_scraper_bytes_total",
				Help: "Bytes of listing HTML fetched, labeled by site.",
			},
			[]string{"site"},
		)

		scraperRecordsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gradcafe_scraper_new_records_total",
				Help: "New survey records accepted by the crawler.",
			},
		)

		scraperStopsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gradcafe_scraper_stops_total",
				Help: "Finished crawls, labeled by stop reason.",
			},
			[]string{"reason"},
		)

		pipelineRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gradcafe_pipeline_runs_total",
				Help: "Pipeline runs, labeled by result.",
			},
			[]string{"result"},
		)

		pipelineDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gradcafe_pipeline_duration_seconds",
				Help:    "Wall time of complete pipeline runs.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 900},
			},
		)

		datasetEntries = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "gradcafe_dataset_entries",
				Help: "Entries in the most recently saved snapshot.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120},
			},
			[]string{"method", "route"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gradcafe_scraper_rate_limit_delay_seconds",
				Help:    "Time spent waiting on the per-host fetch limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"site"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage records one listing page fetch.
func ObservePage(site, outcome string, bytesFetched int) {
	Init()
	sanitized := SanitizeSite(site)
	scraperPagesTotal.WithLabelValues(sanitized, outcome).Inc()
	if bytesFetched > 0 {
		scraperBytesTotal.WithLabelValues(sanitized).Add(float64(bytesFetched))
	}
}

// ObserveCrawl records the end of a crawl and the number of new records it produced.
func ObserveCrawl(reason string, newRecords int) {
	Init()
	scraperStopsTotal.WithLabelValues(reason).Inc()
	scraperRecordsTotal.Add(float64(newRecords))
}

// ObservePipelineRun records a finished pipeline run.
func ObservePipelineRun(result string, duration time.Duration, totalEntries int) {
	Init()
	pipelineRunsTotal.WithLabelValues(result).Inc()
	pipelineDurationSeconds.Observe(duration.Seconds())
	if totalEntries >= 0 {
		datasetEntries.Set(float64(totalEntries))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records time spent waiting for a fetch slot.
func ObserveRateLimitDelay(site string, delay time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(SanitizeSite(site)).Observe(delay.Seconds())
}

// Package metrics exposes Prometheus collectors for the story pipeline.
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
	frontierTransitionsTotal   *prometheus.CounterVec
	discoveryCandidatesTotal   *prometheus.CounterVec
	classificationsTotal       *prometheus.CounterVec
	extractionsTotal           *prometheus.CounterVec
	fetchesTotal               *prometheus.CounterVec
	fetchBytesTotal            *prometheus.CounterVec
	sideEffectFailuresTotal    *prometheus.CounterVec
	reclassifyChangesTotal     *prometheus.CounterVec
	robotsFallbackTotal        prometheus.Counter
	rateLimitDelaysSeconds     *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry. It is safe to call repeatedly.
func Init() {
	once.Do(func() {
		frontierTransitionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stories_frontier_transitions_total",
				Help: "Frontier status transitions, labeled by source and new status.",
			},
			[]string{"source", "status"},
		)
		discoveryCandidatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stories_discovery_candidates_total",
				Help: "Listing links seen during discovery, labeled by source and result (new, known, rejected).",
			},
			[]string{"source", "result"},
		)
		classificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stories_classifications_total",
				Help: "Classification verdicts, labeled by method and category.",
			},
			[]string{"method", "category"},
		)
		extractionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stories_extractions_total",
				Help: "Extraction service calls, labeled by outcome.",
			},
			[]string{"outcome"},
		)
		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stories_fetches_total",
				Help: "Page fetches, labeled by site and result kind.",
			},
			[]string{"site", "result"},
		)
		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stories_fetch_bytes_total",
				Help: "Bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)
		sideEffectFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stories_side_effect_failures_total",
				Help: "Best-effort archive and notification failures.",
			},
			[]string{"kind"},
		)
		reclassifyChangesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stories_reclassify_changes_total",
				Help: "Reclassification changes, labeled by outcome (applied, skipped, reported).",
			},
			[]string{"outcome"},
		)
		robotsFallbackTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "stories_robots_fallback_total",
				Help: "robots.txt fetches that fell back to allow-all after repeated TLS timeouts.",
			},
		)
		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stories_rate_limit_delays_seconds",
				Help:    "Time spent waiting on the politeness limiter.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite reduces a URL to its lowercase hostname, or "unknown".
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

// ObserveTransition counts a frontier status change.
func ObserveTransition(source, status string) {
	Init()
	frontierTransitionsTotal.WithLabelValues(source, status).Inc()
}

// ObserveCandidate counts one listing link seen during discovery.
func ObserveCandidate(source, result string) {
	Init()
	discoveryCandidatesTotal.WithLabelValues(source, result).Inc()
}

// ObserveClassification counts a verdict.
func ObserveClassification(method, category string) {
	Init()
	classificationsTotal.WithLabelValues(method, category).Inc()
}

// ObserveExtraction counts an extraction call outcome.
func ObserveExtraction(outcome string) {
	Init()
	extractionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch counts a fetch and the bytes it returned.
func ObserveFetch(site, result string, bytesFetched int) {
	Init()
	sanitized := SanitizeSite(site)
	fetchesTotal.WithLabelValues(sanitized, result).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(sanitized).Add(float64(bytesFetched))
	}
}

// ObserveSideEffectFailure counts a failed archive or notification.
func ObserveSideEffectFailure(kind string) {
	Init()
	sideEffectFailuresTotal.WithLabelValues(kind).Inc()
}

// ObserveReclassifyChange counts a reclassification change by outcome.
func ObserveReclassifyChange(outcome string) {
	Init()
	reclassifyChangesTotal.WithLabelValues(outcome).Inc()
}

// ObserveRobotsFallback counts an allow-all robots.txt fallback.
func ObserveRobotsFallback() {
	Init()
	robotsFallbackTotal.Inc()
}

// ObserveRateLimitDelay records the duration of a politeness wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveHTTPRequest records one ops API request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Package collyfetcher fetches story pages and static listing pages with gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/metrics"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

// Name identifies this fetcher in stored scraping info.
const Name = "colly"

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	Headers       http.Header
}

// Fetcher implements story.PageFetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

var _ story.PageFetcher = (*Fetcher)(nil)

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	transport := &robotsAwareTransport{base: newHTTPTransport()}
	c.WithTransport(transport)
	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET. Non-2xx responses and network failures
// come back as *story.FetchError so callers can tell transient from permanent.
func (f *Fetcher) Fetch(ctx context.Context, url string) (story.FetchResult, error) {
	var (
		result   story.FetchResult
		fetchErr error
		status   int
	)
	start := time.Now()
	collector := f.buildCollector(start, &result, &fetchErr, &status)

	if code, err := f.runCollector(ctx, collector, url, &fetchErr, &status); err != nil {
		fe := story.NewFetchError(url, code, err)
		metrics.ObserveFetch(url, string(fe.Kind), 0)
		return story.FetchResult{}, fe
	}
	metrics.ObserveFetch(url, "ok", len(result.Body))
	return result, nil
}

func (f *Fetcher) buildCollector(start time.Time, result *story.FetchResult, fetchErr *error, status *int) *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	collector.WithTransport(f.transport)

	f.configureCollectorHooks(collector, start, result, fetchErr, status)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	result *story.FetchResult,
	fetchErr *error,
	status *int,
) {
	hooks.OnRequest(func(r *colly.Request) {
		for key, values := range f.cfg.Headers {
			for _, v := range values {
				r.Headers.Add(key, v)
			}
		}
	})

	hooks.OnResponse(func(r *colly.Response) {
		*status = r.StatusCode
		*result = story.FetchResult{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    r.Headers.Clone(),
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
			Fetcher:    Name,
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			*status = r.StatusCode
		}
		*fetchErr = err
	})
}

// runCollector visits url and returns the observed status code. On cancellation
// the visit keeps running in the background and still owns fetchErr and status,
// so neither is read.
func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error, status *int) (int, error) {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return *status, fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		if err != nil {
			return *status, fmt.Errorf("colly visit failed: %w", err)
		}
		return *status, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

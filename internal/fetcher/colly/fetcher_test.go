package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/require"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

func TestFetchReturnsBody(t *testing.T) {
	t.Parallel()

	var gotAgent, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent, gotLang = r.UserAgent(), r.Header.Get("Accept-Language")
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body>ok</body></html>")
	}))
	defer srv.Close()

	f := New(Config{
		UserAgent: "story-bot/1.0",
		Timeout:   5 * time.Second,
		Headers:   http.Header{"Accept-Language": {"en-US"}},
	})
	res, err := f.Fetch(context.Background(), srv.URL+"/customers/acme")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "<html><body>ok</body></html>", string(res.Body))
	require.Equal(t, Name, res.Fetcher)
	require.Equal(t, "story-bot/1.0", gotAgent)
	require.Equal(t, "en-US", gotLang)
}

func TestFetchClassifiesStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gone":
			w.WriteHeader(http.StatusNotFound)
		case "/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})
	tests := []struct {
		path string
		kind story.ErrorKind
		gone bool
	}{
		{"/gone", story.KindPermanentFetch, true},
		{"/busy", story.KindTransientFetch, false},
		{"/private", story.KindPermanentFetch, false},
	}
	for _, tt := range tests {
		_, err := f.Fetch(context.Background(), srv.URL+tt.path)
		require.Error(t, err, tt.path)
		var fe *story.FetchError
		require.True(t, errors.As(err, &fe), tt.path)
		require.Equal(t, tt.kind, fe.Kind, tt.path)
		require.Equal(t, tt.gone, fe.Gone(), tt.path)
	}
}

func TestFetchHonorsContext(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-block
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(Config{Timeout: 5 * time.Second}).Fetch(ctx, srv.URL)
	// The abandoned visit now completes and runs its hooks after Fetch returned.
	close(block)

	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, story.KindTransientFetch, story.KindOf(err))
	var fe *story.FetchError
	require.ErrorAs(t, err, &fe)
	require.Zero(t, fe.StatusCode)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{Headers: http.Header{"X-Trace": {"yes"}}})
	var (
		result   story.FetchResult
		fetchErr error
		status   int
	)
	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, time.Unix(0, 0), &result, &fetchErr, &status)

	collyReq := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(collyReq)
	require.Equal(t, "yes", collyReq.Headers.Get("X-Trace"))

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusCreated,
		Body:       []byte("body"),
		Headers:    &http.Header{"X-Resp": {"ok"}},
		Request:    &colly.Request{URL: mustParseURL(t, "https://example.com")},
	})
	require.Equal(t, http.StatusCreated, result.StatusCode)
	require.Equal(t, "ok", result.Headers.Get("X-Resp"))

	hooks.onError(&colly.Response{StatusCode: http.StatusTooManyRequests}, errors.New("boom"))
	require.EqualError(t, fetchErr, "boom")
	require.Equal(t, http.StatusTooManyRequests, status)
}

func TestListingFollowsNextLinks(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/customers", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `<a href="/customers/a">A</a><a class="next" href="/customers?page=2">Next</a>`)
	})
	mux.HandleFunc("/customers/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/customers" && r.URL.Query().Get("page") == "2" {
			_, _ = fmt.Fprint(w, `<a href="/customers/b">B</a><a class="next" href="/customers?page=2">Next</a>`)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})
	page, err := f.OpenListing(context.Background(), srv.URL+"/customers", story.ListingOptions{NextSelector: "a.next"})
	require.NoError(t, err)
	defer func() { require.NoError(t, page.Close()) }()

	html, _, err := page.Snapshot(context.Background())
	require.NoError(t, err)
	require.Contains(t, html, "/customers/a")

	more, err := page.Advance(context.Background())
	require.NoError(t, err)
	require.True(t, more)
	html, pageURL, err := page.Snapshot(context.Background())
	require.NoError(t, err)
	require.Contains(t, html, "/customers/b")
	require.Contains(t, pageURL, "page=2")

	more, err = page.Advance(context.Background())
	require.NoError(t, err)
	require.False(t, more, "next link points at a page already visited")
}

func TestListingWithoutNextSelector(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `<a class="next" href="/p2">Next</a>`)
	}))
	defer srv.Close()

	page, err := New(Config{}).OpenListing(context.Background(), srv.URL, story.ListingOptions{})
	require.NoError(t, err)
	more, err := page.Advance(context.Background())
	require.NoError(t, err)
	require.False(t, more)
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback)   { s.onRequest = cb }
func (s *stubHooks) OnResponse(cb colly.ResponseCallback) { s.onResponse = cb }
func (s *stubHooks) OnError(cb colly.ErrorCallback)       { s.onError = cb }

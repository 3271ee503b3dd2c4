package collyfetcher

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

var _ story.ListingOpener = (*Fetcher)(nil)

// OpenListing fetches the first page of a statically paginated listing.
// Advance follows the element matched by opts.NextSelector.
func (f *Fetcher) OpenListing(ctx context.Context, listingURL string, opts story.ListingOptions) (story.ListingPage, error) {
	res, err := f.Fetch(ctx, listingURL)
	if err != nil {
		return nil, err
	}
	return &listingPage{
		fetcher: f,
		opts:    opts,
		html:    string(res.Body),
		pageURL: res.URL,
		visited: map[string]struct{}{res.URL: {}},
	}, nil
}

type listingPage struct {
	fetcher story.PageFetcher
	opts    story.ListingOptions
	html    string
	pageURL string
	visited map[string]struct{}
}

func (p *listingPage) Snapshot(context.Context) (string, string, error) {
	return p.html, p.pageURL, nil
}

// Advance loads the next page. It reports false when there is no next link,
// the link points at a page already seen, or the new page is identical.
func (p *listingPage) Advance(ctx context.Context) (bool, error) {
	if p.opts.NextSelector == "" {
		return false, nil
	}
	next, ok, err := nextPageURL(p.html, p.pageURL, p.opts.NextSelector)
	if err != nil || !ok {
		return false, err
	}
	if _, seen := p.visited[next]; seen {
		return false, nil
	}
	p.visited[next] = struct{}{}

	res, err := p.fetcher.Fetch(ctx, next)
	if err != nil {
		return false, fmt.Errorf("advance listing: %w", err)
	}
	body := string(res.Body)
	if body == p.html {
		return false, nil
	}
	p.html = body
	p.pageURL = res.URL
	return true, nil
}

func (p *listingPage) Close() error { return nil }

func nextPageURL(html, base, selector string) (string, bool, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(html))
	if err != nil {
		return "", false, fmt.Errorf("parse listing html: %w", err)
	}
	href, ok := doc.Find(selector).First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" || strings.HasPrefix(href, "#") {
		return "", false, nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false, fmt.Errorf("parse listing url: %w", err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false, nil
	}
	return baseURL.ResolveReference(ref).String(), true, nil
}

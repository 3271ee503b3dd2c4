package headless

import (
	"context"
	"fmt"
	"strconv"

	"github.com/chromedp/chromedp"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

const linkCountJS = `document.querySelectorAll('a[href]').length`

const scrollJS = `window.scrollTo(0, document.body.scrollHeight); true`

// loadMoreJS clicks the first visible, enabled element matching selector and
// reports whether it found one.
func loadMoreJS(selector string) string {
	return `(() => {
	const el = document.querySelector(` + strconv.Quote(selector) + `);
	if (!el || el.disabled || el.offsetParent === null) { return false; }
	el.scrollIntoView({block: "center"});
	el.click();
	return true;
})()`
}

// OpenListing renders the listing page in its own tab. The tab stays open
// until Close so Advance can keep revealing content.
func (f *Fetcher) OpenListing(ctx context.Context, url string, opts story.ListingOptions) (story.ListingPage, error) {
	if err := f.acquire(ctx); err != nil {
		return nil, err
	}
	tab, closeTab := chromedp.NewContext(f.allocator)
	session := &listingSession{fetcher: f, tab: tab, closeTab: closeTab, opts: opts}
	if err := chromedp.Run(tab); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	err := runBounded(ctx, tab, f.navTimeout(),
		f.networkSetupAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.cfg.SettleDelay),
	)
	if err != nil {
		_ = session.Close()
		return nil, story.NewFetchError(url, 0, err)
	}
	return session, nil
}

type listingSession struct {
	fetcher  *Fetcher
	tab      context.Context
	closeTab context.CancelFunc
	opts     story.ListingOptions
	closed   bool
}

func (s *listingSession) Snapshot(ctx context.Context) (string, string, error) {
	var html, location string
	err := runBounded(ctx, s.tab, s.fetcher.navTimeout(),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", "", fmt.Errorf("snapshot listing: %w", err)
	}
	return html, location, nil
}

// Advance clicks the load-more control when one is configured and visible,
// otherwise scrolls to the bottom. It reports whether the number of links grew.
func (s *listingSession) Advance(ctx context.Context) (bool, error) {
	var before, after int
	if err := runBounded(ctx, s.tab, s.fetcher.navTimeout(), chromedp.Evaluate(linkCountJS, &before)); err != nil {
		return false, fmt.Errorf("count links: %w", err)
	}

	clicked := false
	if s.opts.LoadMoreSelector != "" {
		if err := runBounded(ctx, s.tab, s.fetcher.navTimeout(), chromedp.Evaluate(loadMoreJS(s.opts.LoadMoreSelector), &clicked)); err != nil {
			return false, fmt.Errorf("click load more: %w", err)
		}
	}
	if !clicked {
		var ignored bool
		if err := runBounded(ctx, s.tab, s.fetcher.navTimeout(), chromedp.Evaluate(scrollJS, &ignored)); err != nil {
			return false, fmt.Errorf("scroll listing: %w", err)
		}
	}

	err := runBounded(ctx, s.tab, s.fetcher.navTimeout()+s.fetcher.cfg.SettleDelay,
		chromedp.Sleep(s.fetcher.cfg.SettleDelay),
		chromedp.Evaluate(linkCountJS, &after),
	)
	if err != nil {
		return false, fmt.Errorf("count links: %w", err)
	}
	return after > before, nil
}

func (s *listingSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.closeTab()
	s.fetcher.release()
	return nil
}

package sources

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/content"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

const maxTitleLen = 200

var spaceRe = regexp.MustCompile(`\s+`)

// Limiter delays calls to keep request rates polite.
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Promoter decides whether a fetched story page should be fetched again
// through a browser.
type Promoter interface {
	ShouldPromote(statusCode int, body []byte) bool
}

// Deps are the collaborators shared by every Provider.
type Deps struct {
	Pages           story.PageFetcher
	RenderedPages   story.PageFetcher
	Promoter        Promoter
	StaticListing   story.ListingOpener
	RenderedListing story.ListingOpener
	Limiter         Limiter
	Clock           story.Clock
}

// Provider binds a Definition to the fetch collaborators.
type Provider struct {
	def  Definition
	deps Deps
}

// NewProvider builds a Provider. Rendered listings fall back to the static opener
// when no browser is configured.
func NewProvider(def Definition, deps Deps) *Provider {
	return &Provider{def: def, deps: deps}
}

// ID returns the source ID.
func (p *Provider) ID() string { return p.def.ID }

// Definition returns the source definition.
func (p *Provider) Definition() Definition { return p.def }

// ValidStoryURL implements the discovery URL-shape check.
func (p *Provider) ValidStoryURL(rawURL string) bool { return p.def.ValidStoryURL(rawURL) }

// OpenListing opens the source's listing page.
func (p *Provider) OpenListing(ctx context.Context) (story.ListingPage, error) {
	opener := p.deps.StaticListing
	if p.def.Headless && p.deps.RenderedListing != nil {
		opener = p.deps.RenderedListing
	}
	if opener == nil {
		return nil, errors.New("no listing opener configured")
	}
	if err := p.wait(ctx, p.def.ListingURL); err != nil {
		return nil, err
	}
	page, err := opener.OpenListing(ctx, p.def.ListingURL, story.ListingOptions{
		NextSelector:     p.def.NextSelector,
		LoadMoreSelector: p.def.LoadMoreSelector,
	})
	if err != nil {
		return nil, fmt.Errorf("open listing %s: %w", p.def.ListingURL, err)
	}
	return page, nil
}

// Links extracts the candidate anchors from a rendered listing. URLs are returned
// as found in the page; validation and normalization belong to the caller.
func (p *Provider) Links(html, pageURL string) ([]story.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing %s: %w", pageURL, err)
	}
	var out []story.Candidate
	doc.Find(p.def.LinkSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		out = append(out, story.Candidate{
			URL:         strings.TrimSpace(href),
			Title:       cardTitle(s),
			PublishDate: p.cardDate(s),
			Notes:       "discovered via " + pageURL,
		})
	})
	return out, nil
}

// FetchStory fetches and shapes one story page.
func (p *Provider) FetchStory(ctx context.Context, rawURL string) (story.Page, error) {
	if p.deps.Pages == nil {
		return story.Page{}, errors.New("no page fetcher configured")
	}
	if err := p.wait(ctx, rawURL); err != nil {
		return story.Page{}, err
	}
	res, err := p.deps.Pages.Fetch(ctx, rawURL)
	if err != nil {
		return story.Page{}, err
	}
	res = p.maybeRender(ctx, rawURL, res)
	finalURL := res.URL
	if finalURL == "" {
		finalURL = rawURL
	}
	raw, err := content.Shape(finalURL, res.Body)
	if err != nil {
		return story.Page{}, fmt.Errorf("shape %s: %w", rawURL, err)
	}
	page := story.Page{
		URL:        finalURL,
		StatusCode: res.StatusCode,
		HTML:       raw.HTML,
		Text:       raw.Text,
		Metadata:   raw.Metadata,
		Fetcher:    res.Fetcher,
	}
	if p.deps.Clock != nil {
		page.FetchedAt = p.deps.Clock.Now()
	}
	return page, nil
}

// maybeRender re-fetches a client-rendered page through the browser. The static
// result is kept when the rendered fetch fails.
func (p *Provider) maybeRender(ctx context.Context, rawURL string, res story.FetchResult) story.FetchResult {
	if p.deps.RenderedPages == nil || p.deps.Promoter == nil {
		return res
	}
	if !p.deps.Promoter.ShouldPromote(res.StatusCode, res.Body) {
		return res
	}
	rendered, err := p.deps.RenderedPages.Fetch(ctx, rawURL)
	if err != nil || rendered.StatusCode != res.StatusCode {
		return res
	}
	return rendered
}

func (p *Provider) wait(ctx context.Context, rawURL string) error {
	if p.deps.Limiter == nil {
		return nil
	}
	if err := p.deps.Limiter.Wait(ctx, rawURL); err != nil {
		return fmt.Errorf("politeness wait: %w", err)
	}
	return nil
}

func cardTitle(s *goquery.Selection) string {
	title := s.Find("h1, h2, h3, h4, h5, h6").First().Text()
	if strings.TrimSpace(title) == "" {
		title = s.Parent().Find("h1, h2, h3, h4, h5, h6").First().Text()
	}
	if strings.TrimSpace(title) == "" {
		title = s.Text()
	}
	if strings.TrimSpace(title) == "" {
		title, _ = s.Attr("aria-label")
	}
	title = strings.TrimSpace(spaceRe.ReplaceAllString(title, " "))
	if r := []rune(title); len(r) > maxTitleLen {
		title = string(r[:maxTitleLen])
	}
	return title
}

func (p *Provider) cardDate(s *goquery.Selection) *time.Time {
	if p.def.DateSelector == "" {
		return nil
	}
	for _, scope := range []*goquery.Selection{s, s.Parent()} {
		el := scope.Find(p.def.DateSelector).First()
		if el.Length() == 0 {
			continue
		}
		if v, ok := el.Attr("datetime"); ok {
			if t := content.ParseDate(v); t != nil {
				return t
			}
		}
		if t := content.ParseDate(el.Text()); t != nil {
			return t
		}
	}
	return nil
}

// Package content turns fetched story HTML into the raw_content document:
// readable text, page metadata and a best-effort publish date.
package content

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

const (
	maxImages        = 10
	maxExternalLinks = 20
)

// Elements whose text never belongs to the story body.
const strippedSelector = "script, style, noscript, nav, footer, header, svg, iframe, template"

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	longDateRe   = regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},\s+\d{4}\b`)
	shortDateRe  = regexp.MustCompile(`\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)\.?\s+\d{1,2},\s+\d{4}\b`)
	isoDateRe    = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan. 2, 2006",
	"Mon, 02 Jan 2006 15:04:05 MST",
}

// Shape parses html fetched from pageURL. ScrapingInfo is left for the caller.
func Shape(pageURL string, html []byte) (story.RawContent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return story.RawContent{}, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return story.RawContent{}, fmt.Errorf("parse page url: %w", err)
	}

	meta := story.Metadata{
		Title:         Title(doc),
		Description:   description(doc),
		Images:        images(doc, base),
		ExternalLinks: externalLinks(doc, base),
		PublishDate:   PublishDate(doc),
	}
	text := Text(doc)
	meta.WordCount = len(strings.Fields(text))
	if meta.PublishDate == nil {
		meta.PublishDate = dateFromText(text)
	}

	return story.RawContent{
		HTML:     string(html),
		Text:     text,
		Metadata: meta,
	}, nil
}

// Text returns the body text with chrome elements removed and whitespace collapsed.
// The document is not modified.
func Text(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	body = body.Clone()
	body.Find(strippedSelector).Remove()

	var parts []string
	body.Find("h1, h2, h3, h4, h5, h6, p, li, blockquote, td, figcaption").Each(func(_ int, s *goquery.Selection) {
		// Nested blocks are visited through their innermost element only.
		if s.Find("p, li, blockquote").Length() > 0 {
			return
		}
		if t := collapse(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return collapse(body.Text())
	}
	return strings.Join(parts, " ")
}

// Title prefers the document title up to the first " | " separator and falls back to the first h1.
func Title(doc *goquery.Document) string {
	if t := collapse(doc.Find("head title").First().Text()); t != "" {
		if i := strings.Index(t, " | "); i > 0 {
			t = strings.TrimSpace(t[:i])
		}
		if t != "" {
			return t
		}
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(og) != "" {
		return collapse(og)
	}
	return collapse(doc.Find("h1").First().Text())
}

func description(doc *goquery.Document) string {
	for _, sel := range []string{`meta[name="description"]`, `meta[property="og:description"]`, `meta[name="twitter:description"]`} {
		if v, ok := doc.Find(sel).Attr("content"); ok && strings.TrimSpace(v) != "" {
			return collapse(v)
		}
	}
	return ""
}

func images(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]struct{})
	var out []string
	doc.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		abs := resolve(base, src)
		if abs == "" || strings.HasPrefix(src, "data:") {
			return true
		}
		if _, dup := seen[abs]; dup {
			return true
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
		return len(out) < maxImages
	})
	return out
}

func externalLinks(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]struct{})
	var out []string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		abs := resolve(base, href)
		if abs == "" {
			return true
		}
		u, err := url.Parse(abs)
		if err != nil || strings.EqualFold(u.Hostname(), base.Hostname()) {
			return true
		}
		if _, dup := seen[abs]; dup {
			return true
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
		return len(out) < maxExternalLinks
	})
	return out
}

// PublishDate looks for a publish date in time elements, article meta tags and JSON-LD, in that order.
func PublishDate(doc *goquery.Document) *time.Time {
	var found *time.Time
	doc.Find("time[datetime]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("datetime")
		found = ParseDate(v)
		return found == nil
	})
	if found != nil {
		return found
	}

	for _, sel := range []string{
		`meta[property="article:published_time"]`,
		`meta[name="publish_date"]`,
		`meta[name="date"]`,
		`meta[itemprop="datePublished"]`,
	} {
		if v, ok := doc.Find(sel).Attr("content"); ok {
			if t := ParseDate(v); t != nil {
				return t
			}
		}
	}

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = jsonLDDate(s.Text())
		return found == nil
	})
	return found
}

// jsonLDDate reads datePublished from a JSON-LD object, an array of objects or an @graph.
func jsonLDDate(raw string) *time.Time {
	if !gjson.Valid(raw) {
		return nil
	}
	root := gjson.Parse(raw)
	var nodes []gjson.Result
	if root.IsArray() {
		nodes = root.Array()
	} else {
		nodes = append(nodes, root)
		if graph, ok := root.Map()["@graph"]; ok {
			nodes = append(nodes, graph.Array()...)
		}
	}
	for _, node := range nodes {
		if !node.IsObject() {
			continue
		}
		if t := ParseDate(node.Get("datePublished").String()); t != nil {
			return t
		}
	}
	return nil
}

func dateFromText(text string) *time.Time {
	for _, re := range []*regexp.Regexp{longDateRe, shortDateRe, isoDateRe} {
		if m := re.FindString(text); m != "" {
			if t := ParseDate(m); t != nil {
				return t
			}
		}
	}
	return nil
}

// ParseDate accepts the date formats seen on listing cards and story pages.
// The result is normalized to UTC; nil means the value was not recognized.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	raw = strings.Replace(raw, "Sept ", "Sep ", 1)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(u)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	return abs.String()
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

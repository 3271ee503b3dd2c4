// Package sources describes the customer-story sites the pipeline crawls and
// composes the shared fetch behavior each of them uses.
package sources

import (
	"net/url"
	"sort"
	"strings"
)

// Definition is the data that distinguishes one story source from another.
type Definition struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	BaseURL    string `json:"base_url"`
	ListingURL string `json:"listing_url"`
	// Hosts accepted for story URLs. The BaseURL host is always accepted.
	Hosts []string `json:"hosts,omitempty"`
	// StoryPrefixes are lowercase path prefixes a story URL must start with.
	StoryPrefixes []string `json:"story_prefixes"`
	// SingleSegment requires exactly one path segment after the prefix.
	SingleSegment   bool     `json:"single_segment,omitempty"`
	InvalidPatterns []string `json:"invalid_patterns,omitempty"`
	LinkSelector    string   `json:"link_selector"`
	DateSelector    string   `json:"date_selector,omitempty"`
	// NextSelector drives static pagination; LoadMoreSelector is clicked in a rendered listing.
	NextSelector     string `json:"next_selector,omitempty"`
	LoadMoreSelector string `json:"load_more_selector,omitempty"`
	Headless         bool   `json:"headless"`
	// SlugWords caps how many slug words are used when guessing a customer name.
	SlugWords int `json:"slug_words,omitempty"`
}

var commonInvalid = []string{
	"javascript:", "mailto:", "tel:",
	"/privacy", "/terms", "/support", "/legal",
	"/contact", "/signup", "/pricing", "/console",
	"/search", "/filter", "/tag/", "/category/",
}

func builtin() []Definition {
	return []Definition{
		{
			ID:              "anthropic",
			Name:            "Anthropic",
			BaseURL:         "https://www.anthropic.com",
			ListingURL:      "https://www.anthropic.com/customers",
			Hosts:           []string{"anthropic.com"},
			StoryPrefixes:   []string{"/customers/"},
			SingleSegment:   true,
			InvalidPatterns: commonInvalid,
			LinkSelector:    `a[href*="/customers/"]`,
			DateSelector:    "time",
			SlugWords:       3,
		},
		{
			ID:               "openai",
			Name:             "OpenAI",
			BaseURL:          "https://openai.com",
			ListingURL:       "https://openai.com/stories",
			Hosts:            []string{"www.openai.com"},
			StoryPrefixes:    []string{"/index/"},
			SingleSegment:    true,
			InvalidPatterns:  append([]string{"system-card", "sora", "/research", "/api/", "/docs"}, commonInvalid...),
			LinkSelector:     `a[href*="/index/"]`,
			DateSelector:     "time",
			LoadMoreSelector: `button[aria-label*="Load more"], button.load-more`,
			Headless:         true,
			SlugWords:        2,
		},
		{
			ID:              "aws",
			Name:            "AWS",
			BaseURL:         "https://aws.amazon.com",
			ListingURL:      "https://aws.amazon.com/ai/generative-ai/customers/",
			StoryPrefixes:   []string{"/solutions/case-studies/", "/ai/generative-ai/customers/", "/machine-learning/customers/"},
			InvalidPatterns: commonInvalid,
			LinkSelector:    `a[href*="case-stud"], a[href*="/customers/"]`,
			DateSelector:    "time, .date",
			NextSelector:    `a[rel="next"], .pagination a.next`,
			Headless:        true,
			SlugWords:       2,
		},
		{
			ID:              "googlecloud",
			Name:            "Google Cloud",
			BaseURL:         "https://cloud.google.com",
			ListingURL:      "https://cloud.google.com/ai/generative-ai/stories",
			StoryPrefixes:   []string{"/customers/"},
			SingleSegment:   true,
			InvalidPatterns: commonInvalid,
			LinkSelector:    `a[href*="/customers/"]`,
			DateSelector:    "time",
			NextSelector:    `a[rel="next"]`,
			SlugWords:       2,
		},
		{
			ID:               "microsoft",
			Name:             "Microsoft",
			BaseURL:          "https://www.microsoft.com",
			ListingURL:       "https://www.microsoft.com/en-us/ai/ai-customer-stories",
			Hosts:            []string{"customers.microsoft.com"},
			StoryPrefixes:    []string{"/en/customers/story/", "/en-us/customers/story/"},
			InvalidPatterns:  commonInvalid,
			LinkSelector:     `a[href*="/customers/story/"]`,
			DateSelector:     "time",
			LoadMoreSelector: `button[aria-label*="more"], button.load-more`,
			Headless:         true,
			SlugWords:        2,
		},
	}
}

// Builtin returns the built-in source definitions ordered by ID.
func Builtin() []Definition {
	defs := builtin()
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

// Lookup finds a built-in definition by ID.
func Lookup(id string) (Definition, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, def := range builtin() {
		if def.ID == id {
			return def, true
		}
	}
	return Definition{}, false
}

// IDs lists the built-in source IDs.
func IDs() []string {
	defs := Builtin()
	ids := make([]string, 0, len(defs))
	for _, def := range defs {
		ids = append(ids, def.ID)
	}
	return ids
}

// ValidStoryURL reports whether rawURL looks like a story page of this source:
// an accepted host, a path under a story prefix with something after it, no
// invalid pattern, and not the listing page itself.
func (d Definition) ValidStoryURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if !d.acceptsHost(u.Hostname()) {
		return false
	}
	lower := strings.ToLower(rawURL)
	for _, pattern := range d.InvalidPatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}
	p := strings.ToLower(u.Path)
	if listing, err := url.Parse(d.ListingURL); err == nil && strings.TrimRight(strings.ToLower(listing.Path), "/") == strings.TrimRight(p, "/") {
		return false
	}
	for _, prefix := range d.StoryPrefixes {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.Trim(p[len(prefix):], "/")
		if rest == "" {
			continue
		}
		if d.SingleSegment && strings.Contains(rest, "/") {
			continue
		}
		return true
	}
	return false
}

func (d Definition) acceptsHost(host string) bool {
	host = strings.ToLower(host)
	if base, err := url.Parse(d.BaseURL); err == nil && strings.EqualFold(base.Hostname(), host) {
		return true
	}
	for _, h := range d.Hosts {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}

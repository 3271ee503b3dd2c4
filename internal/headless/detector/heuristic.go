// Package detector decides when a statically fetched story page needs a
// rendered re-fetch.
package detector

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/content"
)

// DefaultMinWords is the visible word count below which a page counts as thin.
const DefaultMinWords = 80

// Heuristic promotes pages that look like client-rendered shells.
type Heuristic struct {
	// MinWords is the visible word count a page needs to be kept as fetched.
	MinWords int
}

// NewHeuristic creates a new detector.
func NewHeuristic(minWords int) *Heuristic {
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	return &Heuristic{MinWords: minWords}
}

var spaMarkers = [][]byte{
	[]byte(`id="__next"`),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
	[]byte("ng-version"),
}

// ShouldPromote reports whether a rendered fetch is worth trying for a page
// that came back with the given status and body. Non-200 responses are never
// promoted; their outcome is decided by the status alone.
func (h *Heuristic) ShouldPromote(statusCode int, body []byte) bool {
	if statusCode != http.StatusOK {
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	if scriptDensityHigh(body) {
		return true
	}
	words := visibleWords(body)
	if words >= h.MinWords {
		return false
	}
	// A thin page only needs rendering when it looks like an app shell.
	lower := bytes.ToLower(body)
	for _, marker := range spaMarkers {
		if bytes.Contains(lower, marker) {
			return true
		}
	}
	return words == 0
}

func visibleWords(body []byte) int {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0
	}
	return len(strings.Fields(content.Text(doc)))
}

func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	coverage := 0
	pos := 0
	for {
		rel := strings.Index(lower[pos:], openTag)
		if rel == -1 {
			break
		}
		start := pos + rel
		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			coverage += total - start
			break
		}
		bodyStart := start + tagClose + 1
		end := total
		if relEnd := strings.Index(lower[bodyStart:], closeTag); relEnd != -1 {
			end = bodyStart + relEnd + len(closeTag)
		}
		coverage += end - start
		pos = end
	}
	return coverage*100/total >= 60
}

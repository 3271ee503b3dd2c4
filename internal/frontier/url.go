// Package frontier holds the URL helpers shared by discovery and the frontier stores.
package frontier

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"msclkid":      {},
	"ocid":         {},
	"icid":         {},
}

// NormalizeURL resolves ref against base and returns a canonical absolute URL:
// lowercased scheme and host, no default port, no fragment, no trailing slash,
// tracking parameters stripped and the remaining query sorted.
func NormalizeURL(base, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(strings.ToLower(ref), "javascript:") ||
		strings.HasPrefix(strings.ToLower(ref), "mailto:") {
		return "", fmt.Errorf("%w: %q", story.ErrInvalidURL, ref)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", story.ErrInvalidURL, err)
	}
	if base != "" {
		b, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("%w: base: %v", story.ErrInvalidURL, err)
		}
		u = b.ResolveReference(u)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not an absolute http(s) url", story.ErrInvalidURL, ref)
	}

	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !(u.Scheme == "http" && port == "80") && !(u.Scheme == "https" && port == "443") {
		host += ":" + port
	}
	u.Host = host
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	q := u.Query()
	for key := range q {
		if _, drop := trackingParams[strings.ToLower(key)]; drop {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()

	if u.Path != "" && u.Path != "/" {
		u.Path = strings.TrimRight(path.Clean(u.Path), "/")
		u.RawPath = ""
	}
	return u.String(), nil
}

// Slug returns the last non-empty path segment of rawURL without any file extension.
func Slug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg == "" {
			continue
		}
		if ext := path.Ext(seg); ext != "" {
			seg = strings.TrimSuffix(seg, ext)
		}
		return seg
	}
	return ""
}

// CustomerNameFromSlug turns "acme-corp-boosts-sales" style slugs into a display
// name. Leading numeric ids are skipped. words caps the number of slug words used;
// zero keeps them all.
func CustomerNameFromSlug(slug string, words int) string {
	parts := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	})
	for len(parts) > 0 && isNumeric(parts[0]) {
		parts = parts[1:]
	}
	if words > 0 && len(parts) > words {
		parts = parts[:words]
	}
	return cases.Title(language.English).String(strings.Join(parts, " "))
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

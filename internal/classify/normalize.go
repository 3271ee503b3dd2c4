package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText folds text into the form matched by the phrase automaton:
// accents stripped, lowercased, every run of non letter/digit characters
// collapsed to one space, and a single space on both ends. Padding lets
// " gpt 4 " match as a whole phrase without substring false positives.
func NormalizeText(text string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		text,
	)
	if err != nil {
		folded = text
	}
	var b strings.Builder
	b.Grow(len(folded) + 2)
	b.WriteByte(' ')
	pendingSpace := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
			continue
		}
		if b.Len() > 1 {
			pendingSpace = true
		}
	}
	if b.Len() > 1 {
		b.WriteByte(' ')
	}
	return b.String()
}

package classify

import (
	"strings"
	"unicode/utf8"
)

// CleanBody strips navigation chrome from scraped page text and keeps the
// leading content sentences. The result is lowercased.
func CleanBody(body string, nav Navigation) string {
	text := strings.ToLower(body)
	for _, section := range nav.Sections {
		text = strings.ReplaceAll(text, section, " ")
	}

	var kept []string
	for _, sentence := range strings.Split(text, ".") {
		if nav.MaxSentences > 0 && len(kept) >= nav.MaxSentences {
			break
		}
		sentence = strings.Join(strings.Fields(sentence), " ")
		if len(sentence) < nav.MinSentenceChars {
			continue
		}
		hits := 0
		for _, indicator := range nav.Indicators {
			if strings.Contains(sentence, indicator) {
				hits++
			}
		}
		if hits >= 2 || (hits == 1 && len(sentence) < nav.ShortSentenceChars) {
			continue
		}
		kept = append(kept, sentence)
	}

	out := strings.Join(kept, ". ")
	if nav.MaxChars > 0 && len(out) > nav.MaxChars {
		out = out[:nav.MaxChars]
		for !utf8.ValidString(out) {
			out = out[:len(out)-1]
		}
	}
	return out
}

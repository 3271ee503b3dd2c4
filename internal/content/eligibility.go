package content

import (
	"fmt"
	"strings"
)

// Default eligibility thresholds.
const (
	DefaultMinWords              = 100
	DefaultMinCustomerIndicators = 3
)

var customerIndicators = []string{
	"customer",
	"company",
	"business",
	"organization",
	"team",
	"case study",
	"implementation",
	"implemented",
	"deployed",
	"solution",
	"challenge",
	"results",
	"success",
	"improved",
}

var nonStoryKeywords = []string{
	"system-card",
	"technical-report",
	"api-reference",
	"documentation",
	"research",
}

// Eligibility decides whether a fetched page is a customer story worth keeping.
type Eligibility struct {
	MinWords              int
	MinCustomerIndicators int
}

// Check returns an empty reason when the page is eligible.
func (e Eligibility) Check(pageURL, text string, wordCount int) string {
	lower := strings.ToLower(pageURL)
	for _, kw := range nonStoryKeywords {
		if strings.Contains(lower, kw) {
			return fmt.Sprintf("non-story url keyword %q", kw)
		}
	}
	if e.MinWords > 0 && wordCount < e.MinWords {
		return fmt.Sprintf("too short: %d words (min %d)", wordCount, e.MinWords)
	}
	if e.MinCustomerIndicators > 0 {
		if n := CustomerIndicators(text); n < e.MinCustomerIndicators {
			return fmt.Sprintf("not a customer story: %d indicators (min %d)", n, e.MinCustomerIndicators)
		}
	}
	return ""
}

// CustomerIndicators counts how many distinct customer-story terms appear in text.
func CustomerIndicators(text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, term := range customerIndicators {
		if strings.Contains(lower, term) {
			n++
		}
	}
	return n
}

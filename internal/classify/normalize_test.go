package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":                       " ",
		"GPT-4":                  " gpt 4 ",
		"  Café   Société!! ":    " cafe societe ",
		"speech-to-text, NLP.":   " speech to text nlp ",
		"https://x.io/a-b?c=1":   " https x io a b c 1 ",
		"what's new":             " what s new ",
	}
	for in, want := range tests {
		require.Equal(t, want, NormalizeText(in), "input %q", in)
	}
}

func TestCleanBody(t *testing.T) {
	t.Parallel()

	nav := Navigation{
		Sections:           []string{"skip to main content"},
		Indicators:         []string{"customer stories", "all stories", "azure"},
		MinSentenceChars:   30,
		ShortSentenceChars: 100,
		MaxSentences:       2,
		MaxChars:           500,
	}
	body := "Skip to main content. Customer stories and all stories for everyone here. " +
		"Short one. Azure powers the small reporting dashboard. " +
		"Northwind rebuilt its claims process around a new assistant. " +
		"Adjusters now close files in half the time they used to need. " +
		"A third long sentence that should be dropped by the cap."

	got := CleanBody(body, nav)
	require.Equal(t, "northwind rebuilt its claims process around a new assistant. "+
		"adjusters now close files in half the time they used to need", got)

	nav.MaxChars = 20
	require.Len(t, CleanBody(body, nav), 20)
}

func TestCleanBodyTruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	nav := Navigation{MinSentenceChars: 1, MaxChars: 33}
	got := CleanBody(strings.Repeat("é", 40), nav)
	require.Len(t, got, 32)
}

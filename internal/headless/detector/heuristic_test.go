package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func article(words int) []byte {
	return []byte("<html><body><article><p>" + strings.Repeat("word ", words) + "</p></article></body></html>")
}

func TestHeuristic_ShouldPromote(t *testing.T) {
	t.Parallel()

	bundle := "<script>" + strings.Repeat("window.__data={};", 200) + "</script>"
	tests := []struct {
		name   string
		status int
		body   []byte
		want   bool
	}{
		{name: "empty body", status: 200, body: []byte("  \n"), want: true},
		{name: "next shell", status: 200, body: []byte(`<html><body><div id="__next"></div></body></html>`), want: true},
		{name: "thin react root", status: 200, body: []byte(`<div ID="root"><p>Loading</p></div>`), want: true},
		{name: "script heavy", status: 200, body: []byte("<html><body>" + bundle + "<p>hi</p></body></html>"), want: true},
		{name: "full article", status: 200, body: article(120), want: false},
		{name: "full article in app shell", status: 200, body: []byte(`<div id="app">` + string(article(120)) + `</div>`), want: false},
		{name: "short static page", status: 200, body: article(20), want: false},
		{name: "not found", status: 404, body: []byte("not found"), want: false},
		{name: "server error with empty body", status: 500, body: nil, want: false},
	}
	h := NewHeuristic(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, h.ShouldPromote(tt.status, tt.body))
		})
	}
}

func TestNewHeuristicDefaults(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultMinWords, NewHeuristic(-1).MinWords)
	require.Equal(t, 10, NewHeuristic(10).MinWords)
	require.False(t, NewHeuristic(10).ShouldPromote(200, []byte(`<div id="root">`+string(article(15))+`</div>`)))
}

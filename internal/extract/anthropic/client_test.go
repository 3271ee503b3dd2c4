package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

func messageJSON(text string) string {
	body := map[string]any{
		"id":            "msg_01",
		"type":          "message",
		"role":          "assistant",
		"model":         DefaultModel,
		"content":       []map[string]any{{"type": "text", "text": text}},
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"usage":         map[string]any{"input_tokens": 120, "output_tokens": 80},
	}
	raw, _ := json.Marshal(body)
	return string(raw)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{APIKey: "test-key", BaseURL: srv.URL, MaxRetries: -1, MaxChars: 50}, nil)
	require.NoError(t, err)
	return c
}

const reply = "```json\n" + `{
  "customer_name": "Acme Bank",
  "industry": "finance",
  "use_cases": ["customer_service"],
  "gen_ai_classification": {
    "category": "GenAI",
    "confidence": 1.4,
    "reasoning": "Uses Claude to draft answers.",
    "key_indicators": ["drafts answers", " ", "claude"]
  }
}` + "\n```"

func TestExtractParsesVerdictAndFields(t *testing.T) {
	t.Parallel()

	var sent string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		sent = string(body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, messageJSON(reply))
	})

	ext, err := c.Extract(context.Background(), story.ExtractionRequest{
		URL:          "https://www.anthropic.com/customers/acme",
		Title:        "Acme Bank",
		CustomerName: "Acme",
		Text:         strings.Repeat("word ", 40),
	})
	require.NoError(t, err)
	require.Equal(t, story.CategoryGenAI, ext.Category)
	require.Equal(t, 1.0, ext.Confidence)
	require.Equal(t, "Uses Claude to draft answers.", ext.Reasoning)
	require.Equal(t, []string{"drafts answers", "claude"}, ext.KeyIndicators)
	require.Equal(t, "Acme Bank", gjson.GetBytes(ext.Fields, "customer_name").String())
	require.False(t, gjson.GetBytes(ext.Fields, classificationKey).Exists())

	require.Equal(t, DefaultModel, gjson.Get(sent, "model").String())
	prompt := gjson.Get(sent, "messages.0.content.0.text").String()
	require.Contains(t, prompt, "Likely customer: Acme")
	require.Contains(t, prompt, truncatedMarker)
}

func TestExtractWrapsAPIErrors(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	})

	_, err := c.Extract(context.Background(), story.ExtractionRequest{Text: "some text"})
	require.Error(t, err)
	var extErr *story.ExtractionError
	require.True(t, errors.As(err, &extErr))
	require.Equal(t, story.KindExtraction, story.KindOf(err))
}

func TestExtractRejectsReplyWithoutVerdict(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, messageJSON(`{"customer_name":"Acme"}`))
	})

	_, err := c.Extract(context.Background(), story.ExtractionRequest{Text: "some text"})
	require.ErrorContains(t, err, "no gen_ai_classification block")
}

func TestExtractRejectsEmptyText(t *testing.T) {
	t.Parallel()

	c, err := New(Config{APIKey: "k"}, nil)
	require.NoError(t, err)
	_, err = c.Extract(context.Background(), story.ExtractionRequest{Text: "  "})
	require.Equal(t, story.KindExtraction, story.KindOf(err))
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, nil)
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestParseReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		reply   string
		want    story.Category
		conf    float64
		wantErr bool
	}{
		{name: "prose around object", reply: `Here you go: {"gen_ai_classification":{"category":"Traditional","confidence":0.8}} thanks`, want: story.CategoryTraditional, conf: 0.8},
		{name: "legacy flag", reply: `{"gen_ai_classification":{"is_gen_ai":true}}`, want: story.CategoryGenAI, conf: 0.5},
		{name: "negative confidence", reply: `{"gen_ai_classification":{"category":"unclear","confidence":-2}}`, want: story.CategoryUnclear, conf: 0},
		{name: "unknown category", reply: `{"gen_ai_classification":{"category":"robots"}}`, wantErr: true},
		{name: "not json", reply: "I cannot help with that.", wantErr: true},
		{name: "truncated", reply: `{"gen_ai_classification":{"category":"GenAI"`, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ext, err := parseReply(tc.reply)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, ext.Category)
			require.InDelta(t, tc.conf, ext.Confidence, 1e-9)
		})
	}
}

func TestTruncateIsRuneSafe(t *testing.T) {
	t.Parallel()

	require.Equal(t, "héllo", truncate("héllo", 10))
	require.Equal(t, "hé"+truncatedMarker, truncate("héllo", 2))
	require.Equal(t, "héllo", truncate("héllo", 0))
}

// Package anthropic implements story.Extractor on top of the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

// Defaults applied by New.
const (
	DefaultModel     = "claude-3-5-sonnet-20241022"
	DefaultMaxTokens = 2000
	DefaultMaxChars  = 32000
	DefaultTimeout   = 60 * time.Second
	DefaultRetries   = 3
)

const classificationKey = "gen_ai_classification"

// ErrMissingAPIKey is returned by New when no key is configured.
var ErrMissingAPIKey = errors.New("anthropic api key is required")

// Config configures the extraction client.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64
	Timeout   time.Duration
	// MaxChars caps the story text sent in the prompt.
	MaxChars int
	// BaseURL overrides the API endpoint; tests point it at an httptest server.
	BaseURL string
	// MaxRetries is the SDK retry budget for 429/5xx/connection errors. Negative disables retries.
	MaxRetries int
}

// Client calls the Messages API and parses the structured record out of the reply.
type Client struct {
	api       sdk.Client
	model     string
	maxTokens int64
	maxChars  int
	logger    *zap.Logger
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	retries := cfg.MaxRetries
	switch {
	case retries == 0:
		retries = DefaultRetries
	case retries < 0:
		retries = 0
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(retries),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		api:       sdk.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		maxChars:  cfg.MaxChars,
		logger:    logger,
	}, nil
}

// Extract sends the story to the model and returns its verdict and business fields.
// Every failure is a *story.ExtractionError.
func (c *Client) Extract(ctx context.Context, req story.ExtractionRequest) (story.Extraction, error) {
	if strings.TrimSpace(req.Text) == "" {
		return story.Extraction{}, &story.ExtractionError{Err: errors.New("empty story text")}
	}

	start := time.Now()
	msg, err := c.api.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: sdk.Float(0.1),
		System:      []sdk.TextBlockParam{{Text: systemPrompt}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(buildPrompt(req, c.maxChars))),
		},
	})
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			c.logger.Warn("extraction api error",
				zap.String("url", req.URL),
				zap.Int("status", apiErr.StatusCode),
			)
		}
		return story.Extraction{}, &story.ExtractionError{Err: fmt.Errorf("messages call: %w", err)}
	}

	var reply strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	ext, err := parseReply(reply.String())
	if err != nil {
		c.logger.Warn("extraction reply rejected",
			zap.String("url", req.URL),
			zap.String("stop_reason", string(msg.StopReason)),
			zap.Error(err),
		)
		return story.Extraction{}, &story.ExtractionError{Err: err}
	}

	c.logger.Debug("extraction complete",
		zap.String("url", req.URL),
		zap.String("category", string(ext.Category)),
		zap.Float64("confidence", ext.Confidence),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return ext, nil
}

// parseReply pulls the JSON object out of the model's reply and validates the verdict.
func parseReply(reply string) (story.Extraction, error) {
	raw := jsonObject(reply)
	if raw == "" || !gjson.Valid(raw) {
		return story.Extraction{}, errors.New("reply is not a JSON object")
	}

	verdict := gjson.Get(raw, classificationKey)
	if !verdict.IsObject() {
		return story.Extraction{}, fmt.Errorf("reply has no %s block", classificationKey)
	}
	category, ok := parseCategory(verdict.Get("category").String())
	if !ok {
		// Older prompt revisions answered with a boolean flag.
		flag := verdict.Get("is_gen_ai")
		if !flag.IsBool() {
			return story.Extraction{}, fmt.Errorf("unknown category %q", verdict.Get("category").String())
		}
		v := flag.Bool()
		category = story.CategoryFromFlag(&v)
	}

	confidence := 0.5
	if c := verdict.Get("confidence"); c.Exists() {
		confidence = clamp(c.Float())
	}

	var indicators []string
	for _, v := range verdict.Get("key_indicators").Array() {
		if s := strings.TrimSpace(v.String()); s != "" {
			indicators = append(indicators, s)
		}
	}

	fields, err := sjson.Delete(raw, classificationKey)
	if err != nil {
		return story.Extraction{}, fmt.Errorf("strip %s: %w", classificationKey, err)
	}

	return story.Extraction{
		Category:      category,
		Confidence:    confidence,
		Reasoning:     strings.TrimSpace(verdict.Get("reasoning").String()),
		KeyIndicators: indicators,
		Fields:        []byte(fields),
	}, nil
}

// jsonObject strips markdown fences and returns the outermost {...} span.
func jsonObject(reply string) string {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

func parseCategory(raw string) (story.Category, bool) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), " ", "")) {
	case "genai", "generative", "generativeai":
		return story.CategoryGenAI, true
	case "traditional", "traditionalai":
		return story.CategoryTraditional, true
	case "unclear", "unknown":
		return story.CategoryUnclear, true
	default:
		return "", false
	}
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/sources"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

const (
	defaultReviewLimit = 50
	maxReviewLimit     = 500
	storeTimeout       = 3 * time.Second
)

// StoryHandler exposes read-only frontier and review queue endpoints.
type StoryHandler struct {
	frontier story.FrontierAdmin
	review   story.ReviewQueue
	timeout  time.Duration
	logger   *zap.Logger
}

// NewStoryHandler wires the stores and logger. Either store may be nil.
func NewStoryHandler(frontier story.FrontierAdmin, review story.ReviewQueue, logger *zap.Logger) *StoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoryHandler{
		frontier: frontier,
		review:   review,
		timeout:  storeTimeout,
		logger:   logger,
	}
}

// FrontierStats handles GET /v1/frontier/stats?source=&status=. It returns
// {"counts": [...], "total": n}; 400 for an unknown source or status.
func (h *StoryHandler) FrontierStats(w http.ResponseWriter, r *http.Request) {
	if h.frontier == nil {
		writeError(w, http.StatusServiceUnavailable, "frontier store unavailable")
		return
	}
	sourceID, err := parseSource(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var status story.FrontierStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		parsed, ok := story.ParseStatus(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		status = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	counts, err := h.frontier.Stats(ctx, sourceID)
	if err != nil {
		h.logger.Error("frontier stats failed", zap.String("source", sourceID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load frontier stats")
		return
	}

	out := make([]story.StatusCount, 0, len(counts))
	total := 0
	for _, c := range counts {
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, c)
		total += c.Count
	}
	writeJSON(w, http.StatusOK, map[string]any{"counts": out, "total": total})
}

// ReviewQueue handles GET /v1/stories/review?source=&limit=. Raw page content is
// never returned.
func (h *StoryHandler) ReviewQueue(w http.ResponseWriter, r *http.Request) {
	if h.review == nil {
		writeError(w, http.StatusServiceUnavailable, "story store unavailable")
		return
	}
	sourceID, err := parseSource(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(r, defaultReviewLimit, maxReviewLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	stories, err := h.review.ListNeedingReview(ctx, sourceID, limit)
	if err != nil {
		h.logger.Error("list review queue failed", zap.String("source", sourceID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list review queue")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stories": toReviewDTOs(stories)})
}

func parseSource(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("source"))
	if raw == "" {
		return "", nil
	}
	def, ok := sources.Lookup(raw)
	if !ok {
		return "", errors.New("unknown source")
	}
	return def.ID, nil
}

func parseLimit(r *http.Request, def, maxLimit int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		return 0, errors.New("invalid limit")
	}
	return min(val, maxLimit), nil
}

type reviewDTO struct {
	ID           int64          `json:"id"`
	SourceID     string         `json:"source_id"`
	CustomerName string         `json:"customer_name"`
	Title        string         `json:"title"`
	URL          string         `json:"url"`
	Category     story.Category `json:"category"`
	Confidence   float64        `json:"confidence"`
	Method       story.Method   `json:"method"`
	Evidence     []string       `json:"evidence"`
	Reasoning    string         `json:"reasoning,omitempty"`
	ScrapedAt    time.Time      `json:"scraped_at"`
	ArchiveURI   string         `json:"archive_uri,omitempty"`
}

func toReviewDTOs(in []story.Story) []reviewDTO {
	out := make([]reviewDTO, 0, len(in))
	for _, st := range in {
		out = append(out, reviewDTO{
			ID:           st.ID,
			SourceID:     st.SourceID,
			CustomerName: st.CustomerName,
			Title:        st.Title,
			URL:          st.URL,
			Category:     st.Category(),
			Confidence:   st.Classification.Confidence,
			Method:       st.Classification.Method,
			Evidence:     st.Classification.Evidence,
			Reasoning:    st.Classification.Reasoning,
			ScrapedAt:    st.ScrapedAt,
			ArchiveURI:   st.RawContent.ScrapingInfo.ArchiveURI,
		})
	}
	return out
}

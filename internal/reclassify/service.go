// Package reclassify re-runs the classification engine over stored stories.
//
// A dry run only reports what would change. An apply run writes every change whose
// confidence reaches the threshold and appends one audit entry per write. A verdict
// that still requires escalation is not a decision and is never written.
package reclassify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/classify"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/metrics"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

// DefaultMinConfidence gates apply runs when no threshold is given.
const DefaultMinConfidence = 0.8

const defaultExtractTimeout = 90 * time.Second

// Change outcomes.
const (
	OutcomeProposed = "proposed"
	OutcomeApplied  = "applied"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
	// OutcomeNeedsEscalation marks a tier-4 verdict the extraction service did not resolve.
	OutcomeNeedsEscalation = "needs_escalation"
)

// Classifier is the rule engine used for the pass.
type Classifier interface {
	Classify(in classify.Input) story.Verdict
}

// Options selects the stories and the write policy for one pass.
type Options struct {
	Filter story.StoryFilter
	Apply  bool
	// MinConfidence gates writes. Zero selects DefaultMinConfidence.
	MinConfidence float64
	// Escalate sends verdicts that still require escalation to the extraction service.
	Escalate bool
}

// Deps are the collaborators of a Service. Extractor may be nil.
type Deps struct {
	Stories        story.ReclassifyStore
	Audit          story.AuditLog
	Classifier     Classifier
	Extractor      story.Extractor
	Clock          story.Clock
	IDs            story.IDGenerator
	ExtractTimeout time.Duration
}

// Change is one story whose category differs under the new verdict.
type Change struct {
	StoryID     int64          `json:"story_id"`
	SourceID    string         `json:"source_id"`
	Title       string         `json:"title"`
	URL         string         `json:"url"`
	OldCategory story.Category `json:"old_category"`
	Verdict     story.Verdict  `json:"verdict"`
	Outcome     string         `json:"outcome"`
	Error       string         `json:"error,omitempty"`
}

// Report summarizes a pass.
type Report struct {
	RunID              string        `json:"run_id"`
	RuleSetVersion     string        `json:"rule_set_version"`
	DryRun             bool          `json:"dry_run"`
	MinConfidence      float64       `json:"min_confidence"`
	Examined           int           `json:"examined"`
	Unchanged          int           `json:"unchanged"`
	Applied            int           `json:"applied"`
	Skipped            int           `json:"skipped"`
	NeedsEscalation    int           `json:"needs_escalation"`
	Failed             int           `json:"failed"`
	AuditFailures      int           `json:"audit_failures"`
	Escalated          int           `json:"escalated"`
	ExtractionFailures int           `json:"extraction_failures"`
	Changes            []Change      `json:"changes"`
	Duration           time.Duration `json:"duration"`
}

// Service runs reclassification passes.
type Service struct {
	deps   Deps
	logger *zap.Logger
}

// New constructs a Service.
func New(deps Deps, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.ExtractTimeout <= 0 {
		deps.ExtractTimeout = defaultExtractTimeout
	}
	return &Service{deps: deps, logger: logger}
}

// Run performs one pass. Per-story write failures are counted; listing failures
// and cancellation end the pass with an error.
func (s *Service) Run(ctx context.Context, opts Options) (rep Report, err error) {
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = DefaultMinConfidence
	}
	rep = Report{DryRun: !opts.Apply, MinConfidence: opts.MinConfidence}
	if s.deps.IDs != nil {
		runID, err := s.deps.IDs.NewID()
		if err != nil {
			return rep, fmt.Errorf("new run id: %w", err)
		}
		rep.RunID = runID
	}
	start := s.deps.Clock.Now()
	defer func() { rep.Duration = s.deps.Clock.Now().Sub(start) }()

	logger := s.logger.With(zap.String("run_id", rep.RunID), zap.Bool("dry_run", rep.DryRun))

	stories, err := s.deps.Stories.ListForReclassification(ctx, opts.Filter)
	if err != nil {
		return rep, fmt.Errorf("list stories: %w", err)
	}

	for _, st := range stories {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		rep.Examined++

		verdict := s.classify(ctx, st, opts, &rep, logger)
		if rep.RuleSetVersion == "" {
			rep.RuleSetVersion = verdict.RuleSetVersion
		}
		old := st.Category()
		if verdict.Category == old {
			rep.Unchanged++
			continue
		}

		change := Change{
			StoryID:     st.ID,
			SourceID:    st.SourceID,
			Title:       st.Title,
			URL:         st.URL,
			OldCategory: old,
			Verdict:     verdict,
		}
		switch {
		case verdict.RequiresEscalation:
			change.Outcome = OutcomeNeedsEscalation
			rep.NeedsEscalation++
		case !opts.Apply:
			change.Outcome = OutcomeProposed
		case verdict.Confidence < opts.MinConfidence:
			change.Outcome = OutcomeSkipped
			rep.Skipped++
		default:
			s.apply(ctx, &change, rep.RunID, &rep, logger)
		}
		metrics.ObserveReclassifyChange(change.Outcome)
		rep.Changes = append(rep.Changes, change)
	}

	logger.Info("reclassification finished",
		zap.String("rule_set", rep.RuleSetVersion),
		zap.Int("examined", rep.Examined),
		zap.Int("changes", len(rep.Changes)),
		zap.Int("applied", rep.Applied),
		zap.Int("skipped", rep.Skipped),
		zap.Int("needs_escalation", rep.NeedsEscalation),
		zap.Int("failed", rep.Failed),
	)
	return rep, nil
}

func (s *Service) classify(ctx context.Context, st story.Story, opts Options, rep *Report, logger *zap.Logger) story.Verdict {
	verdict := s.deps.Classifier.Classify(classify.Input{Title: st.Title, URL: st.URL, Body: st.RawContent.Text})
	if !verdict.RequiresEscalation || !opts.Escalate || s.deps.Extractor == nil {
		return verdict
	}
	rep.Escalated++

	extractCtx, cancel := context.WithTimeout(ctx, s.deps.ExtractTimeout)
	defer cancel()
	ext, err := s.deps.Extractor.Extract(extractCtx, story.ExtractionRequest{
		URL:          st.URL,
		Title:        st.Title,
		CustomerName: st.CustomerName,
		Text:         st.RawContent.Text,
	})
	if err != nil {
		rep.ExtractionFailures++
		metrics.ObserveExtraction("error")
		logger.Warn("extraction failed", zap.Int64("story_id", st.ID), zap.Error(err))
		return verdict
	}
	metrics.ObserveExtraction("ok")
	return classify.AdoptExtraction(verdict, ext)
}

// apply writes one change and its audit entry.
func (s *Service) apply(ctx context.Context, change *Change, runID string, rep *Report, logger *zap.Logger) {
	v := change.Verdict
	if err := s.deps.Stories.UpdateClassification(ctx, change.StoryID, v, v.Category == story.CategoryUnclear); err != nil {
		change.Outcome = OutcomeFailed
		change.Error = err.Error()
		rep.Failed++
		logger.Warn("update classification failed", zap.Int64("story_id", change.StoryID), zap.Error(err))
		return
	}
	change.Outcome = OutcomeApplied
	rep.Applied++

	entry := story.AuditEntry{
		RunID:          runID,
		StoryID:        change.StoryID,
		OldCategory:    change.OldCategory,
		NewCategory:    v.Category,
		Confidence:     v.Confidence,
		Method:         v.Method,
		Evidence:       v.Evidence,
		RuleSetVersion: v.RuleSetVersion,
		CreatedAt:      s.deps.Clock.Now(),
	}
	if err := s.deps.Audit.Record(ctx, entry); err != nil {
		rep.AuditFailures++
		metrics.ObserveSideEffectFailure("audit")
		logger.Error("audit record failed", zap.Int64("story_id", change.StoryID), zap.Error(err))
	}
}

// Package classify decides whether a customer story describes generative or
// traditional AI using a tiered phrase-matching procedure.
package classify

import (
	"math"
	"strings"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

// Input is the raw material for one classification.
type Input struct {
	Title string
	URL   string
	Body  string
}

// Engine applies one rule set. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	rules *RuleSet
}

// New returns an engine bound to rules.
func New(rules *RuleSet) *Engine {
	return &Engine{rules: rules}
}

// RuleSet returns the rule set the engine was built with.
func (e *Engine) RuleSet() *RuleSet {
	return e.rules
}

// Classify checks the title and URL for definitive terms first and only
// scans the cleaned body when they are inconclusive.
func (e *Engine) Classify(in Input) story.Verdict {
	primary := strings.TrimSpace(in.Title + " " + in.URL)
	if primary != "" {
		hits := e.rules.matcher.scan(NormalizeText(primary))
		if v, ok := e.definitive(hits); ok {
			v.PrimaryMatch = true
			return v
		}
	}
	body := CleanBody(in.Body, e.rules.spec.Navigation)
	return e.decide(e.rules.matcher.scan(NormalizeText(primary + " " + body)))
}

// ClassifyText runs the tiers over text as given, without body cleaning.
func (e *Engine) ClassifyText(text string) story.Verdict {
	return e.decide(e.rules.matcher.scan(NormalizeText(text)))
}

func (e *Engine) decide(hits matches) story.Verdict {
	if v, ok := e.definitive(hits); ok {
		return v
	}
	if v, ok := e.contextual(hits); ok {
		return v
	}
	return e.verdict(story.CategoryUnclear, e.rules.spec.Scoring.UnclearConfidence, story.MethodTier4, ambiguousEvidence(hits), true)
}

func (e *Engine) definitive(hits matches) (story.Verdict, bool) {
	sc := e.rules.spec.Scoring
	if len(hits[tierGenAI]) > 0 {
		return e.verdict(story.CategoryGenAI, sc.GenAIConfidence, story.MethodTier1, evidence(hits[tierGenAI], ""), false), true
	}
	if len(hits[tierTraditional]) > 0 {
		return e.verdict(story.CategoryTraditional, sc.TraditionalConfidence, story.MethodTier2, evidence(hits[tierTraditional], ""), false), true
	}
	return story.Verdict{}, false
}

// contextual resolves ambiguous terms from the surrounding context. A side
// wins only when it reaches the threshold and strictly beats the other.
func (e *Engine) contextual(hits matches) (story.Verdict, bool) {
	if len(hits[tierAmbiguous]) == 0 {
		return story.Verdict{}, false
	}
	sc := e.rules.spec.Scoring
	genai := score(hits[tierGenAIContext])
	traditional := score(hits[tierTraditionalContext])

	var category story.Category
	var winner float64
	switch {
	case genai >= sc.ContextThreshold && genai > traditional:
		category, winner = story.CategoryGenAI, genai
	case traditional >= sc.ContextThreshold && traditional > genai:
		category, winner = story.CategoryTraditional, traditional
	default:
		return story.Verdict{}, false
	}
	confidence := math.Min(sc.ContextCap, sc.ContextFloor+winner*sc.ContextScale)
	return e.verdict(category, round4(confidence), story.MethodTier3, ambiguousEvidence(hits), false), true
}

func (e *Engine) verdict(category story.Category, confidence float64, method story.Method, ev []string, escalate bool) story.Verdict {
	if ev == nil {
		ev = []string{}
	}
	return story.Verdict{
		Category:           category,
		Confidence:         confidence,
		Method:             method,
		Evidence:           ev,
		RequiresEscalation: escalate,
		RuleSetVersion:     e.rules.spec.Version,
	}
}

func ambiguousEvidence(hits matches) []string {
	ev := evidence(hits[tierAmbiguous], "")
	ev = append(ev, evidence(hits[tierGenAIContext], "context:")...)
	return append(ev, evidence(hits[tierTraditionalContext], "context:")...)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// AdoptExtraction replaces an escalated rule verdict with the extraction service's
// verdict. The rule evidence is kept ahead of the service's key indicators.
func AdoptExtraction(rule story.Verdict, ext story.Extraction) story.Verdict {
	evidence := make([]string, 0, len(rule.Evidence)+len(ext.KeyIndicators))
	evidence = append(evidence, rule.Evidence...)
	for _, k := range ext.KeyIndicators {
		evidence = append(evidence, "extraction:"+k)
	}
	return story.Verdict{
		Category:       ext.Category,
		Confidence:     ext.Confidence,
		Method:         story.MethodExtraction,
		Evidence:       evidence,
		RuleSetVersion: rule.RuleSetVersion,
		Reasoning:      ext.Reasoning,
	}
}

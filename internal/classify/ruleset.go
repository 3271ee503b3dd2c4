package classify

import (
	"errors"
	"fmt"
	"sort"
)

// TermGroup is a named list of phrases. Weight only matters for context groups.
type TermGroup struct {
	Category string
	Weight   float64
	Terms    []string
}

// Scoring holds the fixed confidences and the context-score formula.
type Scoring struct {
	GenAIConfidence       float64
	TraditionalConfidence float64
	UnclearConfidence     float64
	ContextThreshold      float64
	ContextFloor          float64
	ContextScale          float64
	ContextCap            float64
}

// Navigation describes how page chrome is stripped from body text before scanning.
type Navigation struct {
	Sections           []string
	Indicators         []string
	MinSentenceChars   int
	ShortSentenceChars int
	MaxSentences       int
	MaxChars           int
}

// RuleSetSpec is the editable description of a rule set.
type RuleSetSpec struct {
	Version            string
	GenAI              []TermGroup
	Traditional        []TermGroup
	Ambiguous          []TermGroup
	GenAIContext       []TermGroup
	TraditionalContext []TermGroup
	Scoring            Scoring
	Navigation         Navigation
}

// RuleSet is an immutable, versioned set of classification rules.
// Build one with NewRuleSet or LoadRuleSet; it is safe for concurrent use.
type RuleSet struct {
	spec    RuleSetSpec
	matcher *phraseMatcher
}

// NewRuleSet validates spec and compiles it.
func NewRuleSet(spec RuleSetSpec) (*RuleSet, error) {
	if spec.Version == "" {
		return nil, errors.New("rule set version is required")
	}
	if len(spec.GenAI) == 0 || len(spec.Traditional) == 0 {
		return nil, fmt.Errorf("rule set %s: tier 1 and tier 2 terms are required", spec.Version)
	}
	sc := spec.Scoring
	if sc.ContextThreshold <= 0 || sc.ContextScale <= 0 || sc.ContextCap <= 0 {
		return nil, fmt.Errorf("rule set %s: context scoring must be positive", spec.Version)
	}
	for _, group := range append(append([]TermGroup{}, spec.GenAIContext...), spec.TraditionalContext...) {
		if group.Weight <= 0 {
			return nil, fmt.Errorf("rule set %s: context group %q needs a positive weight", spec.Version, group.Category)
		}
	}
	owned := cloneSpec(spec)
	return &RuleSet{
		spec:    owned,
		matcher: newPhraseMatcher(owned),
	}, nil
}

// Version identifies the rule set.
func (r *RuleSet) Version() string {
	return r.spec.Version
}

// Scoring returns the scoring parameters.
func (r *RuleSet) Scoring() Scoring {
	return r.spec.Scoring
}

// Spec returns a copy of the rule set definition.
func (r *RuleSet) Spec() RuleSetSpec {
	return cloneSpec(r.spec)
}

func cloneSpec(spec RuleSetSpec) RuleSetSpec {
	out := spec
	out.GenAI = cloneGroups(spec.GenAI)
	out.Traditional = cloneGroups(spec.Traditional)
	out.Ambiguous = cloneGroups(spec.Ambiguous)
	out.GenAIContext = cloneGroups(spec.GenAIContext)
	out.TraditionalContext = cloneGroups(spec.TraditionalContext)
	out.Navigation.Sections = append([]string(nil), spec.Navigation.Sections...)
	out.Navigation.Indicators = append([]string(nil), spec.Navigation.Indicators...)
	return out
}

func cloneGroups(groups []TermGroup) []TermGroup {
	out := make([]TermGroup, len(groups))
	for i, g := range groups {
		out[i] = TermGroup{Category: g.Category, Weight: g.Weight, Terms: append([]string(nil), g.Terms...)}
	}
	return out
}

// DefaultRuleSetVersion is used when configuration does not pick one.
const DefaultRuleSetVersion = "v2"

var builtinRuleSets = map[string]func() RuleSetSpec{
	"v1": legacyRules,
	"v2": refinedRules,
}

// RuleSetVersions lists the built-in versions.
func RuleSetVersions() []string {
	out := make([]string, 0, len(builtinRuleSets))
	for v := range builtinRuleSets {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// LoadRuleSet compiles a built-in rule set. An empty version selects the default.
func LoadRuleSet(version string) (*RuleSet, error) {
	if version == "" {
		version = DefaultRuleSetVersion
	}
	build, ok := builtinRuleSets[version]
	if !ok {
		return nil, fmt.Errorf("unknown rule set %q (have %v)", version, RuleSetVersions())
	}
	return NewRuleSet(build())
}

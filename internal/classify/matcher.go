package classify

import (
	"sort"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

type tier int

const (
	tierGenAI tier = iota
	tierTraditional
	tierAmbiguous
	tierGenAIContext
	tierTraditionalContext
	tierCount
)

// termTag attributes a compiled keyword back to the rule it came from.
type termTag struct {
	tier     tier
	group    int
	term     int
	category string
	weight   float64
	raw      string
}

// phraseMatcher runs every term of a rule set through one Aho-Corasick automaton.
// Keywords are normalized and space padded so hits always fall on word boundaries.
type phraseMatcher struct {
	automaton *ahocorasick.Matcher
	tags      [][]termTag
}

func newPhraseMatcher(spec RuleSetSpec) *phraseMatcher {
	index := make(map[string]int)
	var keywords []string
	var tags [][]termTag

	add := func(t tier, groups []TermGroup) {
		for gi, group := range groups {
			for ti, raw := range group.Terms {
				key := NormalizeText(raw)
				if strings.TrimSpace(key) == "" {
					continue
				}
				pos, ok := index[key]
				if !ok {
					pos = len(keywords)
					index[key] = pos
					keywords = append(keywords, key)
					tags = append(tags, nil)
				}
				tags[pos] = append(tags[pos], termTag{
					tier:     t,
					group:    gi,
					term:     ti,
					category: group.Category,
					weight:   group.Weight,
					raw:      raw,
				})
			}
		}
	}
	add(tierGenAI, spec.GenAI)
	add(tierTraditional, spec.Traditional)
	add(tierAmbiguous, spec.Ambiguous)
	add(tierGenAIContext, spec.GenAIContext)
	add(tierTraditionalContext, spec.TraditionalContext)

	return &phraseMatcher{
		automaton: ahocorasick.NewStringMatcher(keywords),
		tags:      tags,
	}
}

// matches holds the hits of one scan grouped by tier, in rule definition order.
type matches [tierCount][]termTag

func (m *phraseMatcher) scan(normalized string) matches {
	var out matches
	if strings.TrimSpace(normalized) == "" {
		return out
	}
	seen := make(map[termTag]struct{})
	for _, pos := range m.automaton.MatchThreadSafe([]byte(normalized)) {
		for _, tag := range m.tags[pos] {
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			out[tag.tier] = append(out[tag.tier], tag)
		}
	}
	for i := range out {
		hits := out[i]
		sort.Slice(hits, func(a, b int) bool {
			if hits[a].group != hits[b].group {
				return hits[a].group < hits[b].group
			}
			return hits[a].term < hits[b].term
		})
	}
	return out
}

// score sums the group weight of every hit.
func score(hits []termTag) float64 {
	total := 0.0
	for _, h := range hits {
		total += h.weight
	}
	return total
}

func evidence(hits []termTag, prefix string) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, prefix+h.category+":"+h.raw)
	}
	return out
}

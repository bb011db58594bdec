// Package intent classifies utterances into action intents with ordered,
// position-weighted regexp tables.
package intent

import (
	"sort"

	"github.com/nadzzz/domus/internal/message"
	"github.com/nadzzz/domus/internal/nlp/normalize"
)

// Match is the best intent found in an utterance.
type Match struct {
	Intent     message.Intent `json:"intent"`
	Confidence float64        `json:"confidence"`

	// Text is the matched substring of the normalized utterance.
	Text string `json:"matched_text"`
}

// multiMatchConfidence is the fixed score AllMatches reports.
const multiMatchConfidence = 0.8

// Matcher scores utterances against the intent tables. It is stateless and
// safe for concurrent use.
type Matcher struct {
	norm *normalize.Normalizer
}

// New creates a Matcher that normalizes its input with n.
// A nil n uses the default normalizer.
func New(n *normalize.Normalizer) *Matcher {
	if n == nil {
		n = normalize.Default()
	}
	return &Matcher{norm: n}
}

// Match returns the single highest-confidence intent of text. Patterns are
// scored as
//
//	min(0.95, 0.7*(1-0.05*index) + 0.3*min(1, len(match)/15))
//
// and only a strictly better score replaces the current best, so ties go to
// the earlier intent and pattern. No match yields unknown with confidence 0.
func (m *Matcher) Match(text string) Match {
	s := m.norm.Normalize(text)
	best := Match{Intent: message.IntentUnknown}
	if s == "" {
		return best
	}

	for _, ip := range table {
		for i, p := range ip.patterns {
			loc := p.find(s)
			if loc == nil {
				continue
			}
			if c := score(i, loc[1]-loc[0]); c > best.Confidence {
				best = Match{Intent: ip.intent, Confidence: c, Text: s[loc[0]:loc[1]]}
			}
		}
	}
	return best
}

// AllMatches returns one match per intent that has any hit, using the first
// matching pattern of each, sorted by confidence descending.
func (m *Matcher) AllMatches(text string) []Match {
	s := m.norm.Normalize(text)
	var out []Match
	if s == "" {
		return out
	}

	for _, ip := range table {
		for _, p := range ip.patterns {
			if loc := p.find(s); loc != nil {
				out = append(out, Match{Intent: ip.intent, Confidence: multiMatchConfidence, Text: s[loc[0]:loc[1]]})
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

func score(index, length int) float64 {
	position := 1.0 - 0.05*float64(index)
	lengthFactor := min(1.0, float64(length)/15)
	return min(0.95, 0.7*position+0.3*lengthFactor)
}

package pipeline

import (
	"strings"

	"github.com/nadzzz/domus/internal/message"
	"github.com/nadzzz/domus/internal/nlp/alias"
	"github.com/nadzzz/domus/internal/nlp/entity"
	"github.com/nadzzz/domus/internal/nlp/intent"
	"github.com/nadzzz/domus/internal/nlp/negation"
	"github.com/nadzzz/domus/internal/nlp/normalize"
)

// Explanation traces the rule path for one utterance.
type Explanation struct {
	Analysis   normalize.Analysis     `json:"analysis"`
	Negation   negation.Result        `json:"negation"`
	Residual   string                 `json:"residual_text"`
	Intent     intent.Match           `json:"intent"`
	AllIntents []intent.Match         `json:"all_intents"`
	Entities   entity.Entities        `json:"entities"`
	Actions    []string               `json:"actions"`
	Result     message.Interpretation `json:"result"`

	// Accepted reports whether the rule result would skip the fallback.
	Accepted bool   `json:"accepted"`
	Note     string `json:"confidence_note,omitempty"`
}

// Explain runs the rule path only and reports every intermediate step.
// The fallback is never consulted.
func (p *Pipeline) Explain(text string) Explanation {
	rr := p.rules(p.entities.Snapshot(), text)
	result := rr.interpretation()

	e := Explanation{
		Analysis:   p.norm.Analyze(text),
		Negation:   rr.negation,
		Residual:   rr.residual,
		Intent:     rr.intent,
		AllIntents: p.intents.AllMatches(rr.residual),
		Entities:   rr.entities,
		Actions:    actionsIn(p.norm.Normalize(rr.residual)),
		Result:     result,
		Accepted:   rr.accepted(),
	}
	if !e.Accepted {
		e.Note = ruleNote(result, false)
	}
	return e
}

// actionsIn returns the canonical action verbs found in s, longest phrase
// first at each position, in order of appearance.
func actionsIn(s string) []string {
	actions := alias.Actions()
	words := strings.Fields(s)
	seen := map[string]bool{}
	out := []string{}

	for i := 0; i < len(words); {
		step := 1
		for n := min(3, len(words)-i); n >= 1; n-- {
			c, ok := actions.Lookup(strings.Join(words[i:i+n], " "))
			if !ok {
				continue
			}
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
			step = n
			break
		}
		i += step
	}
	return out
}

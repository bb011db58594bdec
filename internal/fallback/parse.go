package fallback

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/nadzzz/domus/internal/message"
)

// intentNegated is the extra intent the model may answer for a negative
// command without a recoverable action.
const intentNegated = "negated"

var (
	codeFence = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

	// candidates are tried in order; the first that decodes and carries an
	// intent wins.
	candidates = []*regexp.Regexp{
		regexp.MustCompile(`(?is)\{[^{}]*"intent"\s*:\s*"[^"]+"\s*,\s*"device"\s*:\s*(?:"[^"]+"|null)[^{}]*\}`),
		regexp.MustCompile(`(?is)\{[^{}]*"device"\s*:\s*(?:"[^"]+"|null)\s*,\s*"intent"\s*:\s*"[^"]+"\s*[^{}]*\}`),
		regexp.MustCompile(`(?is)\{[^}]+\}`),
	}

	intentField  = regexp.MustCompile(`(?i)"intent"\s*:\s*"([^"]+)"`)
	deviceField  = regexp.MustCompile(`(?i)"device"\s*:\s*"([^"]+)"`)
	negatedField = regexp.MustCompile(`(?i)"negated"\s*:\s*(true|false)`)
)

// Parse extracts an interpretation from free-form model output. It never
// fails: each tier is tried in turn (strict JSON, JSON-shaped substrings,
// independent fields) and anything unrecognized degrades to unknown.
func Parse(raw string) message.Interpretation {
	text := strings.TrimSpace(raw)
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	if g, ok := parseStrict(text); ok {
		return g
	}
	if g, ok := parseCandidates(text); ok {
		return g
	}
	return parseFields(text)
}

func parseStrict(text string) (message.Interpretation, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return message.Interpretation{}, false
	}
	return fromObject(obj)
}

func parseCandidates(text string) (message.Interpretation, bool) {
	for _, re := range candidates {
		for _, m := range re.FindAllString(text, -1) {
			if g, ok := parseStrict(m); ok {
				return g, true
			}
		}
	}
	return message.Interpretation{}, false
}

func parseFields(text string) message.Interpretation {
	g := message.Interpretation{Intent: message.IntentUnknown}
	if m := intentField.FindStringSubmatch(text); m != nil {
		g.Intent, g.Negated = intentOf(m[1])
	}
	if m := deviceField.FindStringSubmatch(text); m != nil {
		g.Device = m[1]
	}
	if m := negatedField.FindStringSubmatch(text); m != nil {
		g.Negated = g.Negated || strings.EqualFold(m[1], "true")
	}
	return g
}

// fromObject reads a decoded object. It requires an "intent" key.
func fromObject(obj map[string]any) (message.Interpretation, bool) {
	rawIntent, ok := obj["intent"]
	if !ok {
		return message.Interpretation{}, false
	}

	g := message.Interpretation{Intent: message.IntentUnknown}
	if s, ok := rawIntent.(string); ok {
		g.Intent, g.Negated = intentOf(s)
	}
	if s, ok := obj["device"].(string); ok {
		g.Device = strings.TrimSpace(s)
	}
	switch v := obj["negated"].(type) {
	case bool:
		g.Negated = g.Negated || v
	case string:
		g.Negated = g.Negated || strings.EqualFold(v, "true")
	}
	return g, true
}

// intentOf maps a model intent name onto a known intent. The "negated"
// pseudo-intent becomes unknown with the negation flag set.
func intentOf(s string) (message.Intent, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == intentNegated {
		return message.IntentUnknown, true
	}
	return message.ParseIntent(s), false
}

package entity

import (
	"strings"

	"github.com/nadzzz/domus/internal/message"
)

// Confidence levels of the matching tiers.
const (
	confidencePhrase = 0.95
	confidenceWord   = 0.85
	confidenceRoom   = 0.80
	confidenceLoose  = 0.70
)

const maxNGram = 4

// looseDenylist holds filler words never used for loose matching.
var looseDenylist = map[string]bool{
	"por": true, "para": true, "con": true, "sin": true, "que": true,
	"del": true, "las": true, "los": true, "una": true, "uno": true,
}

// DeviceMatch is a resolved device mention. An empty Key means no device.
type DeviceMatch struct {
	Key        string             `json:"device_key"`
	Type       message.DeviceType `json:"device_type,omitempty"`
	Confidence float64            `json:"confidence"`

	// Alias is the indexed phrase (or device name) that matched.
	Alias string `json:"matched_alias"`

	// Room is the device's configured room.
	Room string `json:"room,omitempty"`
}

// Found reports whether a device was resolved.
func (d DeviceMatch) Found() bool { return d.Key != "" }

// Match resolves the device mentioned in text. Multi-word phrases of up to
// four words are preferred over single words, skip-word-stripped text is
// tried before the raw text, and a loose word match is the last resort.
func (m *Matcher) Match(text string) DeviceMatch {
	return m.idx.Load().match(m.norm.Normalize(text))
}

func (ix *index) match(s string) DeviceMatch {
	if s == "" || len(ix.phrases) == 0 {
		return DeviceMatch{}
	}

	tokens := strings.Fields(s)
	clean := strings.Fields(stripSkipWords(s))

	if dm, ok := ix.scan(clean); ok {
		return dm
	}
	if dm, ok := ix.scan(tokens); ok {
		return dm
	}
	return ix.loose(clean)
}

// scan looks up n-grams from the longest down, left to right.
func (ix *index) scan(tokens []string) (DeviceMatch, bool) {
	for n := min(maxNGram, len(tokens)); n >= 1; n-- {
		for i := 0; i+n <= len(tokens); i++ {
			phrase := strings.Join(tokens[i:i+n], " ")
			dev, ok := ix.phrases[phrase]
			if !ok {
				continue
			}
			confidence := confidenceWord
			if n >= 2 {
				confidence = confidencePhrase
			}
			return ix.result(dev, phrase, confidence), true
		}
	}
	return DeviceMatch{}, false
}

func (ix *index) loose(tokens []string) DeviceMatch {
	for _, tok := range tokens {
		if len(tok) < 4 || looseDenylist[tok] {
			continue
		}
		for _, phrase := range ix.order {
			if containsWord(phrase, tok) || strings.Contains(tok, phrase) {
				return ix.result(ix.phrases[phrase], phrase, confidenceLoose)
			}
		}
	}
	return DeviceMatch{}
}

func containsWord(phrase, word string) bool {
	for _, w := range strings.Fields(phrase) {
		if w == word {
			return true
		}
	}
	return false
}

func (ix *index) result(dev int, phrase string, confidence float64) DeviceMatch {
	e := ix.entries[dev]
	return DeviceMatch{
		Key:        e.key,
		Type:       e.typ,
		Confidence: confidence,
		Alias:      phrase,
		Room:       e.room,
	}
}

// Package normalize canonicalizes raw Spanish/English utterances for matching.
//
// Normalized text is lowercase, accent-stripped except for ñ, single-spaced and
// free of non-semantic punctuation. Normalize is deterministic, total and
// idempotent, so every matcher can normalize its input again without care.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Options toggles the optional normalization steps.
type Options struct {
	RemoveAccents    bool
	FixTypos         bool
	ExpandColloquial bool
	// PreserveNumbers keeps the percent sign next to numbers.
	PreserveNumbers bool
}

// DefaultOptions enables every step.
func DefaultOptions() Options {
	return Options{
		RemoveAccents:    true,
		FixTypos:         true,
		ExpandColloquial: true,
		PreserveNumbers:  true,
	}
}

// Normalizer applies the normalization steps configured by Options.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	opts Options
}

// New creates a Normalizer.
func New(opts Options) *Normalizer {
	return &Normalizer{opts: opts}
}

var std = New(DefaultOptions())

// Default returns the shared Normalizer with DefaultOptions.
func Default() *Normalizer { return std }

// Normalize normalizes text with DefaultOptions.
func Normalize(text string) string { return std.Normalize(text) }

// Tokenize tokenizes text with DefaultOptions.
func Tokenize(text string) []string { return std.Tokenize(text) }

var (
	questionMarks = regexp.MustCompile(`[¿?¡!]+`)
	punctuation   = regexp.MustCompile(`[.,;:'"()\[\]{}«»“”‘’—–-]+`)
	numberLiteral = regexp.MustCompile(`\d+(?:\.\d+)?(?:\s*%)?`)
)

// colloquial expands informal Spanish shorthand, token by token.
var colloquial = map[string]string{
	"porfa":    "por favor",
	"porfavor": "por favor",
	"xfa":      "por favor",
	"xfavor":   "por favor",
	"q":        "que",
	"k":        "que",
	"xq":       "porque",
	"pq":       "porque",
	"tb":       "también",
	"tmb":      "también",
	"x":        "por",
	"d":        "de",
	"dl":       "del",
	"pa":       "para",
	"pal":      "para el",
	"toy":      "estoy",
	"ta":       "está",
	"tan":      "están",
}

// typos are replaced as substrings, in this order, until nothing changes.
var typos = []struct{ from, to string }{
	{"ensender", "encender"},
	{"ensendido", "encendido"},
	{"presder", "prender"},
	{"preder", "prender"},
	{"cerarr", "cerrar"},
	{"lus", "luz"},
	{"puertta", "puerta"},
	{"ventanna", "ventana"},
	{"cocinaa", "cocina"},
	{"cuuarto", "cuarto"},
	{"dormitiorio", "dormitorio"},
	{"habiitacion", "habitacion"},
	{"vanio", "baño"},
	{"bano", "baño"},
	{"slaa", "sala"},
}

// maxTypoPasses bounds the typo fixpoint loop.
const maxTypoPasses = 8

// enyeMark stands in for ñ while combining marks are dropped.
const enyeMark = '\uE000'

// Normalize returns the canonical form of text. Empty input yields "".
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return ""
	}

	s := strings.ToLower(text)
	if n.opts.RemoveAccents {
		// Folding before punctuation and expansion keeps compatibility forms
		// (fullwidth letters, accented shorthand) from surviving one pass.
		s = strings.ToLower(foldAccents(s))
	}
	s = collapse(s)
	s = n.stripPunctuation(s)

	if n.opts.ExpandColloquial {
		s = expandColloquial(s)
	}
	if n.opts.FixTypos {
		s = fixTypos(s)
	}
	if n.opts.RemoveAccents {
		s = foldAccents(s)
	}
	return collapse(s)
}

// Tokenize splits the normalized text on spaces.
func (n *Normalizer) Tokenize(text string) []string {
	return strings.Fields(n.Normalize(text))
}

// ExtractNumbers returns the numeric literals of text, with an optional
// trailing percent sign.
func (n *Normalizer) ExtractNumbers(text string) []string {
	return numberLiteral.FindAllString(text, -1)
}

func (n *Normalizer) stripPunctuation(s string) string {
	s = questionMarks.ReplaceAllString(s, " ")
	s = punctuation.ReplaceAllString(s, " ")
	if !n.opts.PreserveNumbers {
		s = strings.ReplaceAll(s, "%", "")
	}
	return s
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func expandColloquial(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if full, ok := colloquial[w]; ok {
			words[i] = full
		}
	}
	return strings.Join(words, " ")
}

func fixTypos(s string) string {
	for range maxTypoPasses {
		prev := s
		for _, t := range typos {
			s = strings.ReplaceAll(s, t.from, t.to)
		}
		if s == prev {
			break
		}
	}
	return s
}

// foldAccents drops combining marks after NFKD decomposition, keeping ñ.
func foldAccents(s string) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		if r == 'ñ' {
			return enyeMark
		}
		return r
	}, s)

	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	return strings.Map(func(r rune) rune {
		if r == enyeMark {
			return 'ñ'
		}
		return r
	}, folded)
}

// Package negation detects negated commands in Spanish and English and strips
// the negating phrase so the remaining text can be matched as an affirmative
// command.
//
// All patterns run over normalized text, so they are written without accents.
package negation

import (
	"regexp"
	"strings"

	"github.com/nadzzz/domus/internal/message"
	"github.com/nadzzz/domus/internal/nlp/normalize"
)

// Type is the negation category that fired.
type Type string

const (
	TypeNone        Type = "none"
	TypeDirect      Type = "direct"
	TypePronoun     Type = "pronoun"
	TypeCompound    Type = "compound"
	TypeProhibitive Type = "prohibitive"
	TypeImplicit    Type = "implicit"
	TypeKeyword     Type = "keyword"
)

// Result is the outcome of Detect.
type Result struct {
	Negated bool `json:"negated"`
	Type    Type `json:"type"`

	// IntentHint is the intent being negated, guessed from verb stems in the
	// matched span. Empty for keyword matches, unknown when no stem was found.
	IntentHint message.Intent `json:"intent_hint,omitempty"`

	// Word is the negating word ("no", "deja", "never", ...).
	Word string `json:"word,omitempty"`

	Confidence float64 `json:"confidence"`

	// Span holds byte offsets of the match within the normalized text.
	Span [2]int `json:"span"`
}

type category struct {
	typ        Type
	confidence float64
	patterns   []*regexp.Regexp
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

var falsePositives = compile(
	`\bno\s+se\s+(si|como|que)\b`,
	`\bno\s+(puedes|podrias|podes)\b`,
	`\bpor\s+que\s+no\b`,
	`\bcomo\s+no\b`,
	`\b(ya|que)\s+no\s+(esta|funciona)\b`,

	`\bi\s+(don\s*t|do\s+not)\s+know\s+(if|whether|how)\b`,
	`\bwhy\s+not\b`,
	`\bno\s+problem\b`,
	`\b(can\s*t|cannot|can\s+not|couldn\s*t|won\s*t)\s+you\b`,
)

var categories = []category{
	{typ: TypeDirect, confidence: 0.95, patterns: compile(
		`\bno\s+(enciendas?|prendas?|actives?|inicies?)\b`,
		`\bno\s+(apagues?|desactives?|detengas?|pares?)\b`,
		`\bno\s+(abras?|despejes?|descorras?|levantes?)\b`,
		`\bno\s+(cierres?|corras?|bajes?|tapes?|bloquees?)\b`,

		`\bno\s+(encender|prender|activar|iniciar)\b`,
		`\bno\s+(apagar|desactivar|detener|parar)\b`,
		`\bno\s+(abrir|despejar|descorrer|levantar)\b`,
		`\bno\s+(cerrar|correr|bajar|tapar|bloquear)\b`,

		// voseo
		`\bno\s+(encendas|prendas|actives|inicies)\b`,
		`\bno\s+(apagues|desactives|detengas|pares)\b`,
		`\bno\s+(abras|despejes|descorras|levantes)\b`,
		`\bno\s+(cerres|corras|bajes|tapes|bloquees)\b`,

		`\b(don\s*t|do\s+not)\s+(turn|switch|power)\s+(on|off)\b`,
		`\b(don\s*t|do\s+not)\s+(turn|switch|power)\s+the(\s+[a-z]+){1,3}\s+(on|off)\b`,
		`\b(don\s*t|do\s+not)\s+(open|close|shut|lock|unlock|start|stop|activate|deactivate|enable|disable)\b`,
	)},
	{typ: TypePronoun, confidence: 0.90, patterns: compile(
		`\bno\s+(la|lo|las|los|le|les|me)\s+(enciendas?|prendas?|actives?)\b`,
		`\bno\s+(la|lo|las|los|le|les|me)\s+(apagues?|desactives?)\b`,
		`\bno\s+(la|lo|las|los|le|les|me)\s+(abras?|cierres?)\b`,

		`\bno\s+me\s+(la|lo|las|los)\s+(enciendas?|prendas?|apagues?|abras?|cierres?)\b`,
		`\bno\s+te\s+(la|lo|las|los)\s+(enciendas?|prendas?|apagues?|abras?|cierres?)\b`,

		`\b(don\s*t|do\s+not)\s+(turn|switch|power)\s+(it|them|this|that)\s+(on|off)\b`,
		`\b(don\s*t|do\s+not)\s+(open|close|shut|lock|unlock)\s+(it|them|this|that)\b`,
	)},
	{typ: TypeCompound, confidence: 0.85, patterns: compile(
		`\bno\s+(quiero|deseo|necesito|me\s+gustaria)\s+(que\s+)?(se\s+)?(encienda|prenda|active)\b`,
		`\bno\s+(quiero|deseo|necesito|me\s+gustaria)\s+(que\s+)?(se\s+)?(apague|desactive)\b`,
		`\bno\s+(quiero|deseo|necesito|me\s+gustaria)\s+(que\s+)?(se\s+)?(abra|cierre)\b`,

		`\bque\s+no\s+se\s+(encienda|prenda|active|apague|desactive|abra|cierre)\b`,

		`\bprefiero\s+(que\s+)?no\s+(enciendas?|prendas?|apagues?|abras?|cierres?)\b`,
		`\bprefiero\s+(que\s+)?no\s+se\s+(encienda|prenda|apague|abra|cierre)\b`,

		`\bi\s+(don\s*t|do\s+not)\s+(want|need)\s+(you\s+to\s+|to\s+)?((turn|switch|power)(\s+(it|them))?\s+(on|off)|open|close|shut|lock|unlock)\b`,
		`\bi\s*(would|d)\s+rather\s+(you\s+)?not\s+((turn|switch|power)(\s+(it|them))?\s+(on|off)|open|close|shut|lock|unlock)\b`,
	)},
	{typ: TypeProhibitive, confidence: 0.85, patterns: compile(
		`\bdeja\s+de\s+(encender|prender|activar|apagar|abrir|cerrar)\b`,
		`\bpara\s+de\s+(encender|prender|activar|apagar|abrir|cerrar)\b`,
		`\bevita(r)?\s+(encender|prender|activar|apagar|abrir|cerrar)\b`,
		`\bsin\s+(encender|prender|activar|apagar|abrir|cerrar)\b`,

		`\b(stop|avoid)\s+(turning|switching|powering)(\s+(it|them))?\s+(on|off)\b`,
		`\b(stop|avoid)\s+(opening|closing|shutting|locking|unlocking)\b`,
	)},
	{typ: TypeImplicit, confidence: 0.75, patterns: compile(
		`\bmejor\s+no\b`,
		`\bmejor\s+que\s+no\b`,
		`\b(todavia|aun)\s+no\b`,
		`\bnunca\s+(enciendas?|prendas?|apagues?|abras?|cierres?)\b`,
		`\bjamas\s+(enciendas?|prendas?|apagues?|abras?|cierres?)\b`,
		`\bnada\s+de\s+(encender|prender|apagar|abrir|cerrar)\b`,

		`\bnever\s+(turn|switch|power|open|close|shut|lock|unlock)\b`,
		`\b(keep|leave)\s+(it|them|the(\s+[a-z]+){1,3})\s+(off|closed|shut|locked)\b`,
		`\bnot\s+yet\b`,
		`\bbetter\s+not\b`,
	)},
}

// keywords are bare negation words, matched as whole words.
var keywords = []string{
	"no", "ni", "nunca", "jamas", "tampoco",
	"ninguno", "ninguna", "nada", "nadie",
	"sin", "apenas", "dificilmente",
	"not", "never", "dont",
}

// phrasal catches English particle verbs, also when the particle is split
// from the verb ("turn the light off").
var phrasal = regexp.MustCompile(`\b(turn|turning|switch|switching|power|powering|shut|shutting)\b(\s+[a-z]+){0,3}?\s+(on|off)\b`)

// stems map verb-stem substrings to the intent they express. Order matters:
// the first stem found in the matched span wins.
var stems = []struct {
	intent message.Intent
	stems  []string
}{
	{message.IntentTurnOff, []string{"desactiv", "deactiv", "disabl"}},
	{message.IntentTurnOn, []string{"enciend", "encend", "prend", "activ", "inici", "enabl", "start"}},
	{message.IntentTurnOff, []string{"apag", "deteng", "deten", "stop"}},
	{message.IntentOpen, []string{"descorr", "abr", "despej", "levant", "unlock"}},
	{message.IntentClose, []string{"cierr", "cerr", "corr", "baj", "tap", "bloque"}},
	{message.IntentOpen, []string{"open"}},
	{message.IntentClose, []string{"clos", "shut", "lock"}},
	{message.IntentTurnOff, []string{"par"}},
}

// Detector classifies utterances as negated or not. It is stateless and safe
// for concurrent use.
type Detector struct {
	norm *normalize.Normalizer
}

// New creates a Detector that normalizes its input with n.
// A nil n uses the default normalizer.
func New(n *normalize.Normalizer) *Detector {
	if n == nil {
		n = normalize.Default()
	}
	return &Detector{norm: n}
}

// Detect reports whether text is negated. Exclusion phrases such as
// "no se si" win over every negation category; then direct, pronoun,
// compound, prohibitive and implicit patterns are tried in that order, and a
// bare keyword is the last resort.
func (d *Detector) Detect(text string) Result {
	s := d.norm.Normalize(text)
	none := Result{Type: TypeNone}
	if s == "" {
		return none
	}

	for _, re := range falsePositives {
		if re.MatchString(s) {
			return none
		}
	}

	for _, c := range categories {
		for _, re := range c.patterns {
			loc := re.FindStringIndex(s)
			if loc == nil {
				continue
			}
			span := s[loc[0]:loc[1]]
			return Result{
				Negated:    true,
				Type:       c.typ,
				IntentHint: hint(span),
				Word:       word(c.typ, span),
				Confidence: c.confidence,
				Span:       [2]int{loc[0], loc[1]},
			}
		}
	}

	padded := " " + s + " "
	for _, kw := range keywords {
		// The index in padded is the keyword's offset in s.
		if i := strings.Index(padded, " "+kw+" "); i >= 0 {
			return Result{
				Negated:    true,
				Type:       TypeKeyword,
				Word:       kw,
				Confidence: 0.60,
				Span:       [2]int{i, i + len(kw)},
			}
		}
	}
	return none
}

func word(t Type, span string) string {
	f := strings.Fields(span)
	if len(f) == 0 {
		return ""
	}
	if t == TypeProhibitive || t == TypeImplicit {
		return f[0]
	}
	for i, w := range f {
		switch w {
		case "no":
			if t == TypeCompound && i+1 < len(f) {
				return "no " + f[i+1]
			}
			return "no"
		case "don", "dont":
			return "don't"
		case "do":
			if i+1 < len(f) && f[i+1] == "not" {
				return "do not"
			}
		}
	}
	return f[0]
}

func hint(span string) message.Intent {
	if m := phrasal.FindStringSubmatch(span); m != nil {
		if m[3] == "on" {
			return message.IntentTurnOn
		}
		return message.IntentTurnOff
	}
	for _, group := range stems {
		for _, stem := range group.stems {
			if strings.Contains(span, stem) {
				return group.intent
			}
		}
	}
	return message.IntentUnknown
}

type removal struct {
	re   *regexp.Regexp
	repl string
}

// removals strip negating phrases, most specific first. Order matters: the
// bare negators must run last or they leave fragments of longer framings.
var removals = []removal{
	{regexp.MustCompile(`\bno\s+(quiero|deseo|necesito)\s+(que\s+)?(se\s+)?`), ""},
	{regexp.MustCompile(`\bi\s+(don\s*t|do\s+not)\s+(want|need)\s+(you\s+to\s+|to\s+)?`), ""},
	{regexp.MustCompile(`\bi\s*(would|d)\s+rather\s+(you\s+)?not\s+`), ""},
	{regexp.MustCompile(`\bprefiero\s+(que\s+)?no\s+`), ""},
	{regexp.MustCompile(`\bdeja\s+de\s+`), ""},
	{regexp.MustCompile(`\bpara\s+de\s+`), ""},
	{regexp.MustCompile(`\b(stop|avoid)\s+turning\b`), "turn"},
	{regexp.MustCompile(`\b(stop|avoid)\s+switching\b`), "switch"},
	{regexp.MustCompile(`\b(stop|avoid)\s+opening\b`), "open"},
	{regexp.MustCompile(`\b(stop|avoid)\s+closing\b`), "close"},
	{regexp.MustCompile(`\bmejor\s+(que\s+)?no\s+`), ""},
	{regexp.MustCompile(`\bnunca\s+`), ""},
	{regexp.MustCompile(`\bjamas\s+`), ""},
	{regexp.MustCompile(`\bnever\s+`), ""},
	{regexp.MustCompile(`\bno\s+(la|lo|las|los|le|les|me|te)\s+`), ""},
	{regexp.MustCompile(`\bno\s+`), ""},
	{regexp.MustCompile(`\b(don\s*t|do\s+not)\s+`), ""},
	{regexp.MustCompile(`\bnot\s+`), ""},
}

// RemoveNegation returns the normalized text with negating phrases removed.
// The result is lossy and meant only for re-running the matchers.
func (d *Detector) RemoveNegation(text string) string {
	s := d.norm.Normalize(text)
	for _, r := range removals {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return strings.Join(strings.Fields(s), " ")
}

var responses = map[message.Intent]string{
	message.IntentTurnOn:  "Entendido, NO encenderé el dispositivo.",
	message.IntentTurnOff: "Entendido, NO apagaré el dispositivo.",
	message.IntentOpen:    "Entendido, NO abriré el dispositivo.",
	message.IntentClose:   "Entendido, NO cerraré el dispositivo.",
}

// NegatedResponse returns the acknowledgment for a cancelled command.
func NegatedResponse(intent message.Intent) string {
	if r, ok := responses[intent]; ok {
		return r
	}
	return "Entendido, cancelaré la acción."
}

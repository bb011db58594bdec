package normalize

import (
	"regexp"
	"strings"
)

// Stopwords are connectors ignored by RemoveStopwords when no list is given.
var Stopwords = []string{
	"el", "la", "los", "las", "un", "una", "unos", "unas",
	"de", "del", "al", "a", "en", "por", "para", "con",
	"mi", "tu", "su", "mis", "tus", "sus",
	"me", "te", "se", "nos", "les",
	"que", "cual", "cuales", "como", "donde",
	"favor", "porfa", "porfavor", "please",
	"the", "my", "to", "in", "of",
}

// RemoveStopwords drops every whitespace-separated word found in stopwords.
// A nil list means Stopwords.
func RemoveStopwords(text string, stopwords []string) string {
	if stopwords == nil {
		stopwords = Stopwords
	}
	skip := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		skip[strings.ToLower(w)] = struct{}{}
	}

	var kept []string
	for _, w := range strings.Fields(text) {
		if _, ok := skip[strings.ToLower(w)]; ok {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// Analysis is a preprocessing summary of one utterance.
type Analysis struct {
	Original   string   `json:"original"`
	Normalized string   `json:"normalized"`
	Tokens     []string `json:"tokens"`
	Numbers    []string `json:"numbers"`
	WordCount  int      `json:"word_count"`
	CharCount  int      `json:"char_count"`
	Sentence   string   `json:"sentence_type"`
}

// Analyze normalizes, tokenizes and classifies text.
func (n *Normalizer) Analyze(text string) Analysis {
	normalized := n.Normalize(text)
	tokens := strings.Fields(normalized)
	return Analysis{
		Original:   text,
		Normalized: normalized,
		Tokens:     tokens,
		Numbers:    n.ExtractNumbers(text),
		WordCount:  len(tokens),
		CharCount:  len([]rune(text)),
		Sentence:   n.SentenceType(text),
	}
}

// Sentence types returned by SentenceType.
const (
	SentenceQuestion  = "question"
	SentenceCommand   = "command"
	SentenceStatement = "statement"
	SentenceUnknown   = "unknown"
)

var (
	questionMarkers = []*regexp.Regexp{
		regexp.MustCompile(`\b(como|que|cual|donde|cuando|quien)\b`),
		regexp.MustCompile(`\b(esta|estan|es|son)\s+(encendid|apagad|abiert|cerrad)`),
		regexp.MustCompile(`^(is|are|what|how|which|where|when|who)\b`),
	}
	commandMarkers = []*regexp.Regexp{
		regexp.MustCompile(`\b(enciende|apaga|abre|cierra|prende|activa|desactiva)\b`),
		regexp.MustCompile(`\bpor\s+favor\s+(enciende|apaga|abre|cierra)\b`),
		regexp.MustCompile(`^(enciende|apaga|abre|cierra|prende)`),
		regexp.MustCompile(`^(please\s+)?(turn|switch|open|close|shut|lock|unlock)\b`),
	}
)

// IsQuestion reports whether text reads as a question.
func (n *Normalizer) IsQuestion(text string) bool {
	raw := strings.TrimSpace(strings.ToLower(text))
	if strings.HasPrefix(raw, "¿") || strings.HasSuffix(raw, "?") {
		return true
	}
	normalized := n.Normalize(text)
	for _, re := range questionMarkers {
		if re.MatchString(normalized) {
			return true
		}
	}
	return false
}

// IsCommand reports whether text reads as an imperative command.
func (n *Normalizer) IsCommand(text string) bool {
	normalized := n.Normalize(text)
	for _, re := range commandMarkers {
		if re.MatchString(normalized) {
			return true
		}
	}
	return false
}

// SentenceType classifies text as a question, command, statement or unknown.
func (n *Normalizer) SentenceType(text string) string {
	switch {
	case n.IsQuestion(text):
		return SentenceQuestion
	case n.IsCommand(text):
		return SentenceCommand
	case strings.TrimSpace(text) != "":
		return SentenceStatement
	default:
		return SentenceUnknown
	}
}

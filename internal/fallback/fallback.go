// Package fallback defines the language-model collaborator consulted when the
// rule-based interpretation is not confident enough.
//
// A Completer turns a prompt into free-form text. Client owns everything
// around that call: the compact device catalog, the prompt, the lenient
// parsing of whatever the model answered and the validation of the device
// key it proposed. Backends live in the ollama and openai subpackages.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nadzzz/domus/internal/message"
	"github.com/nadzzz/domus/internal/nlp/normalize"
)

// Completer is a text completion backend.
type Completer interface {
	// Name returns the backend identifier (e.g., "ollama", "openai").
	Name() string

	// Complete sends the prompt and returns the raw model output.
	Complete(ctx context.Context, prompt string) (string, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// ErrEmptyResponse is returned when the backend answered with no text.
var ErrEmptyResponse = errors.New("empty response from model")

// CatalogEntry is one line of the device catalog shown to the model.
type CatalogEntry struct {
	Key  string
	Type message.DeviceType
	Room string
}

// Catalog builds the prompt catalog from a device snapshot, keeping its order.
func Catalog(devices []message.Device) []CatalogEntry {
	out := make([]CatalogEntry, 0, len(devices))
	for _, d := range devices {
		out = append(out, CatalogEntry{Key: d.Key, Type: d.Type, Room: d.Room})
	}
	return out
}

// SystemPrompt renders the instructions, the catalog as "key|type|room"
// lines and a few worked examples.
func SystemPrompt(catalog []CatalogEntry) string {
	var sb strings.Builder
	sb.WriteString("Eres un parser de comandos domóticos. Extrae intent y device del comando en español.\n\n")
	sb.WriteString("INTENTS: turn_on, turn_off, open, close, status, negated, unknown\n\n")

	sb.WriteString("DEVICES (key|type|room):\n")
	for _, e := range catalog {
		sb.WriteString(e.Key + "|" + string(e.Type) + "|" + e.Room + "\n")
	}

	sb.WriteString(`
REGLAS:
- Responde SOLO JSON: {"intent":"X","device":"Y","negated":false}
- device=null si no se identifica
- intent=unknown si no es comando domótico
- negated=true si el comando es negativo ("no enciendas", "no abras")
- turn_on/turn_off: luces, ventiladores, alarmas
- open/close: puertas, ventanas, cortinas

EJEMPLOS:
"enciende luz comedor" → {"intent":"turn_on","device":"luz_comedor","negated":false}
"no enciendas la luz" → {"intent":"turn_on","device":"luz_sala","negated":true}
"apaga ventilador sala" → {"intent":"turn_off","device":"ventilador_sala","negated":false}
"no apagues el ventilador" → {"intent":"turn_off","device":"ventilador_sala","negated":true}
"abre puerta garage" → {"intent":"open","device":"puerta_garage","negated":false}
"no abras la puerta" → {"intent":"open","device":"puerta_principal","negated":true}
"estado luz cocina" → {"intent":"status","device":"luz_cocina","negated":false}

Solo JSON, sin explicaciones.`)
	return sb.String()
}

// BuildPrompt appends the user utterance to the system prompt.
func BuildPrompt(system, text string) string {
	return system + "\n\nComando: \"" + text + "\"\nJSON:"
}

// Client interprets utterances through a Completer.
type Client struct {
	completer Completer
	norm      *normalize.Normalizer
}

// New creates a Client. A nil normalizer means the default one.
func New(c Completer, n *normalize.Normalizer) *Client {
	if n == nil {
		n = normalize.Default()
	}
	return &Client{completer: c, norm: n}
}

// Name returns the backend identifier.
func (c *Client) Name() string { return c.completer.Name() }

// Ping reports whether the backend is reachable.
func (c *Client) Ping(ctx context.Context) error { return c.completer.Ping(ctx) }

// Interpret asks the model about text. The returned device is always empty
// or a key of devices. Transport failures and empty answers are errors; an
// unparseable answer is not, it yields an unknown interpretation.
func (c *Client) Interpret(ctx context.Context, text string, devices []message.Device) (message.Interpretation, error) {
	prompt := BuildPrompt(SystemPrompt(Catalog(devices)), text)

	start := time.Now()
	raw, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		return message.Interpretation{Intent: message.IntentUnknown}, fmt.Errorf("%s completion: %w", c.completer.Name(), err)
	}
	if strings.TrimSpace(raw) == "" {
		return message.Interpretation{Intent: message.IntentUnknown}, fmt.Errorf("%s completion: %w", c.completer.Name(), ErrEmptyResponse)
	}

	guess := Parse(raw)
	guess.Device = ResolveDevice(guess.Device, devices, c.norm)

	slog.Debug("fallback interpretation complete",
		"backend", c.completer.Name(),
		"intent", guess.Intent,
		"device", guess.Device,
		"negated", guess.Negated,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return guess, nil
}

// ResolveDevice maps a model-proposed device onto a known key: the exact key,
// else the first key whose normalized form contains, or is contained in, the
// normalized proposal, underscores read as spaces. Anything else resolves to "".
func ResolveDevice(proposed string, devices []message.Device, n *normalize.Normalizer) string {
	if proposed == "" {
		return ""
	}
	for _, d := range devices {
		if d.Key == proposed {
			return d.Key
		}
	}

	want := n.Normalize(strings.ReplaceAll(proposed, "_", " "))
	if want == "" {
		return ""
	}
	for _, d := range devices {
		key := n.Normalize(strings.ReplaceAll(d.Key, "_", " "))
		if key == "" {
			continue
		}
		if strings.Contains(key, want) || strings.Contains(want, key) {
			return d.Key
		}
	}
	return ""
}

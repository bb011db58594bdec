package fallback

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/domus/internal/message"
	"github.com/nadzzz/domus/internal/nlp/normalize"
)

type stubCompleter struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubCompleter) Name() string { return "stub" }

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

func (s *stubCompleter) Ping(context.Context) error { return s.err }

var testDevices = []message.Device{
	{Key: "luz_comedor", Type: message.DeviceLight, Room: "comedor"},
	{Key: "luz_sala", Type: message.DeviceLight, Room: "sala"},
	{Key: "puerta_garage", Type: message.DeviceDoor, Room: "garage"},
}

func TestSystemPromptListsCatalog(t *testing.T) {
	p := SystemPrompt(Catalog(testDevices))

	assert.Contains(t, p, "DEVICES (key|type|room):\nluz_comedor|light|comedor\nluz_sala|light|sala\npuerta_garage|door|garage\n")
	assert.Contains(t, p, "INTENTS: turn_on, turn_off, open, close, status, negated, unknown")
	assert.True(t, strings.HasSuffix(p, "Solo JSON, sin explicaciones."))
}

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t, "SYS\n\nComando: \"abre la puerta\"\nJSON:", BuildPrompt("SYS", "abre la puerta"))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want message.Interpretation
	}{
		{
			name: "strict",
			raw:  `{"intent":"turn_on","device":"luz_comedor","negated":false}`,
			want: message.Interpretation{Intent: message.IntentTurnOn, Device: "luz_comedor"},
		},
		{
			name: "strict without negated",
			raw:  ` {"intent": "open", "device": null} `,
			want: message.Interpretation{Intent: message.IntentOpen},
		},
		{
			name: "code fence",
			raw:  "```json\n{\"intent\":\"close\",\"device\":\"puerta_garage\",\"negated\":true}\n```",
			want: message.Interpretation{Intent: message.IntentClose, Device: "puerta_garage", Negated: true},
		},
		{
			name: "embedded in prose",
			raw:  `Claro: {"intent":"turn_off","device":"luz_sala","negated":false} espero que ayude`,
			want: message.Interpretation{Intent: message.IntentTurnOff, Device: "luz_sala"},
		},
		{
			name: "device first",
			raw:  `respuesta {"device": null, "intent": "status"} fin`,
			want: message.Interpretation{Intent: message.IntentStatus},
		},
		{
			name: "skips object without intent",
			raw:  `{"note":"x"} {"intent":"open","device":"puerta_garage"}`,
			want: message.Interpretation{Intent: message.IntentOpen, Device: "puerta_garage"},
		},
		{
			name: "field by field",
			raw:  `"intent": "TURN_ON", "device": "luz_sala", "negated": TRUE`,
			want: message.Interpretation{Intent: message.IntentTurnOn, Device: "luz_sala", Negated: true},
		},
		{
			name: "truncated object",
			raw:  `{"intent":"turn_off","device":"luz_comedor","neg`,
			want: message.Interpretation{Intent: message.IntentTurnOff, Device: "luz_comedor"},
		},
		{
			name: "negated pseudo intent",
			raw:  `{"intent":"negated","device":"luz_sala"}`,
			want: message.Interpretation{Intent: message.IntentUnknown, Device: "luz_sala", Negated: true},
		},
		{
			name: "unknown intent name",
			raw:  `{"intent":"dim","device":"luz_sala","negated":false}`,
			want: message.Interpretation{Intent: message.IntentUnknown, Device: "luz_sala"},
		},
		{
			name: "garbage",
			raw:  "no tengo idea",
			want: message.Interpretation{Intent: message.IntentUnknown},
		},
		{
			name: "json array",
			raw:  `["turn_on"]`,
			want: message.Interpretation{Intent: message.IntentUnknown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw))
		})
	}
}

func TestParseTiers(t *testing.T) {
	_, ok := parseStrict(`texto {"intent":"open"}`)
	assert.False(t, ok)

	g, ok := parseCandidates(`texto {"intent":"open","device":null}`)
	require.True(t, ok)
	assert.Equal(t, message.IntentOpen, g.Intent)

	_, ok = parseCandidates(`"intent":"open"`)
	assert.False(t, ok)

	g = parseFields(`"intent":"close"`)
	assert.Equal(t, message.IntentClose, g.Intent)
}

func TestResolveDevice(t *testing.T) {
	n := normalize.Default()
	tests := []struct {
		proposed string
		want     string
	}{
		{"luz_sala", "luz_sala"},
		{"", ""},
		{"Luz Comedor", "luz_comedor"},
		{"garage", "puerta_garage"},
		{"la puerta_garage principal", "puerta_garage"},
		{"ventilador", ""},
		{"¿?", ""},
	}
	for _, tt := range tests {
		t.Run(tt.proposed, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveDevice(tt.proposed, testDevices, n))
		})
	}
}

func TestClientInterpret(t *testing.T) {
	stub := &stubCompleter{reply: `{"intent":"turn_on","device":"comedor","negated":false}`}
	c := New(stub, nil)

	got, err := c.Interpret(context.Background(), "prende lo del comedor", testDevices)
	require.NoError(t, err)
	assert.Equal(t, message.Interpretation{Intent: message.IntentTurnOn, Device: "luz_comedor"}, got)

	require.Len(t, stub.prompts, 1)
	assert.True(t, strings.HasSuffix(stub.prompts[0], "Comando: \"prende lo del comedor\"\nJSON:"))
	assert.Equal(t, "stub", c.Name())
}

func TestClientInterpretErrors(t *testing.T) {
	boom := errors.New("connection refused")

	c := New(&stubCompleter{err: boom}, nil)
	got, err := c.Interpret(context.Background(), "algo", testDevices)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, message.IntentUnknown, got.Intent)

	c = New(&stubCompleter{reply: "  \n"}, nil)
	_, err = c.Interpret(context.Background(), "algo", testDevices)
	require.ErrorIs(t, err, ErrEmptyResponse)
}

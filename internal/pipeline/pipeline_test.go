package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/domus/internal/cache"
	"github.com/nadzzz/domus/internal/config"
	"github.com/nadzzz/domus/internal/executor"
	"github.com/nadzzz/domus/internal/message"
	"github.com/nadzzz/domus/internal/metrics"
)

func fixture() []message.Device {
	return []message.Device{
		{Key: "luz_comedor", Name: "Luz del Comedor", Type: message.DeviceLight, Room: "comedor", Aliases: []string{"luz del comedor", "dining room light"}},
		{Key: "luz_sala", Name: "Luz de la Sala", Type: message.DeviceLight, Room: "sala", Aliases: []string{"luz", "light"}},
		{Key: "luz_cocina", Name: "Lámpara de la cocina", Type: message.DeviceLight, Room: "cocina", Aliases: []string{"lampara cocina"}},
		{Key: "ventilador_dormitorio", Name: "Ventilador principal", Type: message.DeviceFan, Room: "Dormitorio", Aliases: []string{"ventilador grande"}},
		{Key: "puerta_garage", Name: "Portón", Type: message.DeviceDoor, Room: "garage", Aliases: []string{"porton del garage"}},
	}
}

// stubFallback returns a fixed answer and counts calls.
type stubFallback struct {
	answer message.Interpretation
	err    error
	block  bool

	calls   atomic.Int32
	devices atomic.Int32
	text    atomic.Value
}

func (s *stubFallback) Name() string { return "stub" }

func (s *stubFallback) Interpret(ctx context.Context, text string, devices []message.Device) (message.Interpretation, error) {
	s.calls.Add(1)
	s.devices.Store(int32(len(devices)))
	s.text.Store(text)
	if s.block {
		<-ctx.Done()
		return message.Interpretation{}, ctx.Err()
	}
	return s.answer, s.err
}

// stubAvailability is a settable availability flag.
type stubAvailability struct {
	available atomic.Bool
	marked    atomic.Int32
}

func newAvailability(v bool) *stubAvailability {
	a := &stubAvailability{}
	a.available.Store(v)
	return a
}

func (a *stubAvailability) Available() bool { return a.available.Load() }

func (a *stubAvailability) MarkUnavailable(error) {
	a.marked.Add(1)
	a.available.Store(false)
}

func newPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	p := New(opts)
	require.NoError(t, p.Reload(fixture()))
	return p
}

func TestInterpretWithoutFallback(t *testing.T) {
	p := newPipeline(t, Options{})

	tests := []struct {
		name string
		text string
		want message.Interpretation
		note string
		path string
	}{
		{
			name: "high confidence accepted",
			text: "enciende la luz del comedor",
			want: message.Interpretation{Intent: message.IntentTurnOn, Device: "luz_comedor"},
			path: metrics.PathRules,
		},
		{
			name: "direct negation",
			text: "no enciendas la luz",
			want: message.Interpretation{Intent: message.IntentTurnOn, Device: "luz_sala", Negated: true},
			note: "low confidence rule-based match (fallback unavailable)",
			path: metrics.PathDegraded,
		},
		{
			name: "english with room",
			text: "turn on the living room light",
			want: message.Interpretation{Intent: message.IntentTurnOn, Device: "luz_sala"},
			note: "low confidence rule-based match (fallback unavailable)",
			path: metrics.PathDegraded,
		},
		{
			name: "unknown command",
			text: "quiero pizza",
			want: message.Interpretation{Intent: message.IntentUnknown},
			note: "intent not identified (fallback unavailable)",
			path: metrics.PathDegraded,
		},
		{
			name: "intent without device",
			text: "abre la ventana",
			want: message.Interpretation{Intent: message.IntentOpen},
			note: "device not specified (fallback unavailable)",
			path: metrics.PathDegraded,
		},
		{
			name: "empty input",
			text: "",
			want: message.Interpretation{Intent: message.IntentUnknown},
			note: "intent not identified (fallback unavailable)",
			path: metrics.PathDegraded,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Interpret(context.Background(), tt.text)
			assert.Equal(t, tt.want, got.Interpretation)
			assert.Equal(t, tt.note, got.Note)
			assert.Equal(t, tt.path, got.Path)
		})
	}
}

func TestHighConfidenceSkipsFallback(t *testing.T) {
	fb := &stubFallback{answer: message.Interpretation{Intent: message.IntentTurnOff, Device: "luz_sala"}}
	p := newPipeline(t, Options{Fallback: fb, Availability: newAvailability(true)})

	got := p.Interpret(context.Background(), "enciende la luz del comedor")
	assert.Equal(t, message.Interpretation{Intent: message.IntentTurnOn, Device: "luz_comedor"}, got.Interpretation)
	assert.Empty(t, got.Note)
	assert.Zero(t, fb.calls.Load())
}

func TestFallbackMerge(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		answer message.Interpretation
		want   message.Interpretation
		note   string
		path   string
	}{
		{
			name:   "fallback preferred",
			text:   "turn on the living room light",
			answer: message.Interpretation{Intent: message.IntentTurnOn, Device: "luz_comedor"},
			want:   message.Interpretation{Intent: message.IntentTurnOn, Device: "luz_comedor"},
			note:   NoteFallback,
			path:   metrics.PathFallback,
		},
		{
			name:   "rule negation forced",
			text:   "no enciendas la luz",
			answer: message.Interpretation{Intent: message.IntentTurnOn, Device: "luz_sala"},
			want:   message.Interpretation{Intent: message.IntentTurnOn, Device: "luz_sala", Negated: true},
			note:   NoteFallback,
			path:   metrics.PathFallback,
		},
		{
			name:   "unknown fallback keeps rule result",
			text:   "turn on the living room light",
			answer: message.Interpretation{Intent: message.IntentUnknown},
			want:   message.Interpretation{Intent: message.IntentTurnOn, Device: "luz_sala"},
			note:   NoteLowConfidence,
			path:   metrics.PathRules,
		},
		{
			name:   "both unknown",
			text:   "quiero pizza",
			answer: message.Interpretation{Intent: message.IntentUnknown},
			want:   message.Interpretation{Intent: message.IntentUnknown},
			note:   NoteFallbackNoIntent,
			path:   metrics.PathFallback,
		},
		{
			name:   "fallback without device",
			text:   "abre algo",
			answer: message.Interpretation{Intent: message.IntentOpen},
			want:   message.Interpretation{Intent: message.IntentOpen},
			note:   NoteNoDevice,
			path:   metrics.PathFallback,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &stubFallback{answer: tt.answer}
			p := newPipeline(t, Options{Fallback: fb, Availability: newAvailability(true)})

			got := p.Interpret(context.Background(), tt.text)
			assert.Equal(t, tt.want, got.Interpretation)
			assert.Equal(t, tt.note, got.Note)
			assert.Equal(t, tt.path, got.Path)
			assert.Equal(t, int32(1), fb.calls.Load())
			assert.Equal(t, tt.text, fb.text.Load(), "fallback sees the raw text")
			assert.Equal(t, int32(len(fixture())), fb.devices.Load())
		})
	}
}

func TestFallbackFailureDegrades(t *testing.T) {
	tests := []struct {
		name string
		fb   *stubFallback
	}{
		{name: "error", fb: &stubFallback{err: errors.New("connection refused")}},
		{name: "timeout", fb: &stubFallback{block: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avail := newAvailability(true)
			p := newPipeline(t, Options{Fallback: tt.fb, Availability: avail, FallbackTimeout: 20 * time.Millisecond})

			got := p.Interpret(context.Background(), "algo ambiguo")
			assert.Equal(t, message.IntentUnknown, got.Interpretation.Intent)
			assert.Contains(t, got.Note, "fallback unavailable")
			assert.Equal(t, metrics.PathDegraded, got.Path)
			assert.Equal(t, int32(1), avail.marked.Load())
			assert.False(t, avail.Available())

			got = p.Interpret(context.Background(), "algo ambiguo")
			assert.Contains(t, got.Note, "fallback unavailable")
			assert.Equal(t, int32(1), tt.fb.calls.Load(), "no calls while unavailable")
		})
	}
}

func TestFallbackWithoutAvailabilityIsAlwaysTried(t *testing.T) {
	fb := &stubFallback{answer: message.Interpretation{Intent: message.IntentStatus, Device: "puerta_garage"}}
	p := newPipeline(t, Options{Fallback: fb})

	got := p.Interpret(context.Background(), "el porton")
	assert.Equal(t, message.Interpretation{Intent: message.IntentStatus, Device: "puerta_garage"}, got.Interpretation)
	assert.Equal(t, int32(1), fb.calls.Load())
}

func TestFallbackAnswersAreCached(t *testing.T) {
	fb := &stubFallback{answer: message.Interpretation{Intent: message.IntentTurnOn, Device: "luz_comedor"}}
	c := cache.NewLRU(16, time.Minute)
	t.Cleanup(func() { _ = c.Close() })
	p := newPipeline(t, Options{Fallback: fb, Availability: newAvailability(true), Cache: c})
	ctx := context.Background()

	first := p.Interpret(ctx, "turn on the living room light")
	second := p.Interpret(ctx, "Turn on the living room light!")
	assert.Equal(t, first.Interpretation, second.Interpretation)
	assert.Equal(t, metrics.PathCached, second.Path)
	assert.Equal(t, int32(1), fb.calls.Load())

	require.NoError(t, p.Reload(fixture()))
	third := p.Interpret(ctx, "turn on the living room light")
	assert.Equal(t, metrics.PathFallback, third.Path, "reload invalidates cached answers")
	assert.Equal(t, int32(2), fb.calls.Load())
}

func TestReload(t *testing.T) {
	p := newPipeline(t, Options{})
	assert.Equal(t, uint64(1), p.Version())
	assert.Len(t, p.Devices(), len(fixture()))

	bad := append(fixture(), message.Device{Key: "luz_sala", Type: message.DeviceLight})
	require.Error(t, p.Reload(bad))
	assert.Equal(t, uint64(1), p.Version(), "failed reload keeps the published index")
	assert.Len(t, p.Devices(), len(fixture()))

	d, ok := p.Device("puerta_garage")
	require.True(t, ok)
	assert.Equal(t, message.DeviceDoor, d.Type)
	_, ok = p.Device("nope")
	assert.False(t, ok)
}

type stubSource struct {
	devices []message.Device
	err     error
}

func (s stubSource) Load(context.Context) ([]message.Device, error) { return s.devices, s.err }

func TestReloadFromSource(t *testing.T) {
	ctx := context.Background()

	_, err := New(Options{}).ReloadFromSource(ctx)
	assert.ErrorIs(t, err, ErrNoSource)

	p := New(Options{Source: stubSource{devices: fixture()[:2]}})
	n, err := p.ReloadFromSource(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, p.Devices(), 2)

	p.source = stubSource{err: errors.New("disk on fire")}
	_, err = p.ReloadFromSource(ctx)
	require.Error(t, err)
	assert.Len(t, p.Devices(), 2)
}

func TestReloadIsAtomicForReaders(t *testing.T) {
	snapA := fixture()[:2] // luz_comedor, luz_sala
	snapB := []message.Device{
		{Key: "lampara_sala", Name: "Lampara", Type: message.DeviceLight, Room: "sala", Aliases: []string{"luz", "light"}},
		{Key: "comedor_luz", Name: "Comedor", Type: message.DeviceLight, Room: "comedor", Aliases: []string{"luz del comedor"}},
	}
	valid := map[string]bool{}
	for _, d := range append(append([]message.Device{}, snapA...), snapB...) {
		valid[d.Key] = true
	}

	p := New(Options{})
	require.NoError(t, p.Reload(snapA))

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ctx.Err() == nil; i++ {
			snap := snapA
			if i%2 == 0 {
				snap = snapB
			}
			_ = p.Reload(snap)
		}
	}()

	inputs := []string{"enciende la luz del comedor", "apaga la luz", "turn on the light"}
	var readers sync.WaitGroup
	for r := range 8 {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for i := range 200 {
				got := p.Interpret(context.Background(), inputs[(r+i)%len(inputs)])
				if key := got.Interpretation.Device; key != "" && !valid[key] {
					t.Errorf("device %q is in neither snapshot", key)
					return
				}
			}
		}()
	}
	readers.Wait()
	cancel()
	wg.Wait()
}

func TestExplain(t *testing.T) {
	fb := &stubFallback{}
	p := newPipeline(t, Options{Fallback: fb, Availability: newAvailability(true)})

	e := p.Explain("enciende la luz del comedor")
	assert.True(t, e.Accepted)
	assert.Empty(t, e.Note)
	assert.Equal(t, message.Interpretation{Intent: message.IntentTurnOn, Device: "luz_comedor"}, e.Result)
	assert.Equal(t, "comedor", e.Entities.Room)
	assert.Equal(t, 5, e.Analysis.WordCount)

	e = p.Explain("don't turn on the light")
	assert.False(t, e.Accepted)
	assert.True(t, e.Negation.Negated)
	assert.Equal(t, "turn on the light", e.Residual)
	assert.Equal(t, []string{"encender"}, e.Actions)
	assert.Equal(t, "luz_sala", e.Result.Device)
	assert.Equal(t, NoteLowConfidence, e.Note)
	require.NotEmpty(t, e.AllIntents)
	assert.Equal(t, message.IntentTurnOn, e.AllIntents[0].Intent)

	assert.Zero(t, fb.calls.Load())
}

func TestActionsIn(t *testing.T) {
	assert.Equal(t, []string{"encender", "apagar"}, actionsIn("prender y luego turn off y apagar"))
	assert.Empty(t, actionsIn("quiero pizza"))
}

func TestExecute(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	devices := fixture()
	devices[0].Endpoints.On = srv.URL + "/comedor/on"

	p := New(Options{Executor: executor.New(config.ExecutorConfig{BackendURL: srv.URL})})
	require.NoError(t, p.Reload(devices))
	ctx := context.Background()

	res, exec := p.Execute(ctx, "enciende la luz del comedor")
	assert.Equal(t, "luz_comedor", res.Interpretation.Device)
	assert.True(t, exec.Executed)
	assert.Equal(t, srv.URL+"/comedor/on", exec.EndpointCalled)

	res, exec = p.Execute(ctx, "no enciendas la luz")
	assert.True(t, res.Interpretation.Negated)
	assert.False(t, exec.Executed)
	assert.Equal(t, executor.ReasonNegated, exec.Reason)

	_, exec = p.Execute(ctx, "quiero pizza")
	assert.Equal(t, executor.ReasonUnresolved, exec.Reason)
	assert.Equal(t, int32(1), hits.Load())
}

func TestExecuteWithoutExecutor(t *testing.T) {
	p := newPipeline(t, Options{})
	_, exec := p.Execute(context.Background(), "enciende la luz del comedor")
	assert.False(t, exec.Executed)
	assert.Equal(t, executor.ReasonNoBackend, exec.Reason)
}

func ExamplePipeline_Interpret() {
	p := New(Options{})
	_ = p.Reload(fixture())
	res := p.Interpret(context.Background(), "enciende la luz del comedor")
	fmt.Println(res.Interpretation.Intent, res.Interpretation.Device, res.Interpretation.Negated)
	// Output: turn_on luz_comedor false
}

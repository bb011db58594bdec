package entity

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/domus/internal/message"
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

func newFixtureMatcher(t *testing.T) *Matcher {
	t.Helper()
	m := New(nil)
	require.NoError(t, m.Reload(fixture()))
	return m
}

func TestMatch(t *testing.T) {
	m := newFixtureMatcher(t)

	tests := []struct {
		input      string
		key        string
		confidence float64
		alias      string
	}{
		{"enciende la luz del comedor", "luz_comedor", 0.95, "luz comedor"},
		{"prende la luz", "luz_sala", 0.85, "luz"},
		{"turn on the light", "luz_sala", 0.85, "light"},
		{"turn on the dining room light", "luz_comedor", 0.95, "dining room light"},
		{"abre el portón del garage", "puerta_garage", 0.95, "porton garage"},
		{"apaga luz_sala", "luz_sala", 0.85, "luz_sala"},
		{"apaga el ventilador", "ventilador_dormitorio", 0.70, "ventilador principal"},
		{"quiero pizza", "", 0, ""},
		{"", "", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := m.Match(tt.input)
			assert.Equal(t, tt.key, got.Key)
			assert.InDelta(t, tt.confidence, got.Confidence, 1e-9)
			assert.Equal(t, tt.alias, got.Alias)
			assert.Equal(t, tt.key != "", got.Found())
		})
	}
}

func TestMatchPrefersLongerPhrase(t *testing.T) {
	m := New(nil)
	require.NoError(t, m.Reload([]message.Device{
		{Key: "luz_sala", Name: "Luz", Type: message.DeviceLight, Room: "sala", Aliases: []string{"luz"}},
		{Key: "luz_comedor", Name: "Luz Comedor", Type: message.DeviceLight, Room: "comedor", Aliases: []string{"luz del comedor"}},
	}))

	got := m.Match("enciende la luz del comedor")
	assert.Equal(t, "luz_comedor", got.Key)
	assert.InDelta(t, 0.95, got.Confidence, 1e-9)
}

func TestMatchEmptyIndex(t *testing.T) {
	m := New(nil)
	assert.False(t, m.Match("enciende la luz").Found())
	assert.Zero(t, m.Version())
	assert.Empty(t, m.Devices())
}

func TestExplicitPhrasesWin(t *testing.T) {
	m := New(nil)
	require.NoError(t, m.Reload([]message.Device{
		{Key: "a", Name: "Luz de la cocina", Type: message.DeviceLight, Aliases: []string{"lampara"}},
		{Key: "b", Name: "luz cocina", Type: message.DeviceLight, Aliases: []string{"lampara"}},
	}))

	assert.Equal(t, "b", m.Match("luz cocina").Key, "explicit name beats derived variant")
	assert.Equal(t, "b", m.Match("lampara").Key, "later alias wins")
	assert.Equal(t, "a", m.Match("a").Key)
}

func TestMatchRoom(t *testing.T) {
	m := newFixtureMatcher(t)

	tests := []struct {
		input string
		want  string
	}{
		{"enciende la luz del comedor", "comedor"},
		{"apaga el ventilador de la habitación principal", "dormitorio_principal"},
		{"turn on the living room light", "sala"},
		{"la luz del cuarto de invitados", "dormitorio_invitados"},
		{"en el baño", "bano"},
		{"enciende la luz", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, m.MatchRoom(tt.input))
		})
	}
}

func TestExtract(t *testing.T) {
	m := newFixtureMatcher(t)

	tests := []struct {
		name       string
		input      string
		key        string
		confidence float64
		room       string
		inherited  bool
	}{
		{name: "explicit room matches device", input: "enciende la luz del comedor", key: "luz_comedor", confidence: 0.95, room: "comedor"},
		{name: "room inherited", input: "prende la luz", key: "luz_sala", confidence: 0.85, room: "sala", inherited: true},
		{name: "english room", input: "turn on the living room light", key: "luz_sala", confidence: 0.85, room: "sala"},
		{name: "retarget to mentioned room", input: "light in the kitchen", key: "luz_cocina", confidence: 0.80, room: "cocina"},
		{name: "device noun plus room", input: "apaga el abanico del cuarto", key: "ventilador_dormitorio", confidence: 0.80, room: "dormitorio"},
		{name: "loose word in room", input: "que hay en la cocina", key: "luz_cocina", confidence: 0.70, room: "cocina"},
		{name: "nothing", input: "quiero pizza"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Extract(tt.input)
			assert.Equal(t, tt.key, got.Device.Key)
			assert.InDelta(t, tt.confidence, got.Device.Confidence, 1e-9)
			assert.Equal(t, tt.room, got.Room)
			assert.Equal(t, tt.inherited, got.RoomInherited)
		})
	}
}

func TestDeviceByRoom(t *testing.T) {
	m := newFixtureMatcher(t)

	got, ok := m.DeviceByRoom("Sala", message.DeviceLight)
	require.True(t, ok)
	assert.Equal(t, "luz_sala", got.Key)
	assert.InDelta(t, 0.80, got.Confidence, 1e-9)
	assert.Equal(t, "Luz de la Sala", got.Alias)

	got, ok = m.DeviceByRoom("living", message.DeviceLight)
	require.True(t, ok)
	assert.Equal(t, "luz_sala", got.Key)

	got, ok = m.DeviceByRoom("dorm", message.DeviceFan)
	require.True(t, ok)
	assert.Equal(t, "ventilador_dormitorio", got.Key)

	_, ok = m.DeviceByRoom("cocina", message.DeviceFan)
	assert.False(t, ok)

	_, ok = m.DeviceByRoom("", message.DeviceLight)
	assert.False(t, ok)
}

func TestReloadRejectsInvalidSnapshot(t *testing.T) {
	m := newFixtureMatcher(t)
	version := m.Version()

	err := m.Reload([]message.Device{{Key: "ok", Type: message.DeviceLight}, {Key: " "}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSnapshot))

	err = m.Reload([]message.Device{{Key: "dup"}, {Key: "dup"}})
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	assert.Equal(t, version, m.Version(), "failed reload keeps the index")
	assert.Equal(t, "luz_comedor", m.Match("luz del comedor").Key)
}

func TestReloadReplacesIndex(t *testing.T) {
	m := newFixtureMatcher(t)
	assert.Equal(t, uint64(1), m.Version())

	require.NoError(t, m.Reload([]message.Device{{Key: "tv", Name: "Tele", Aliases: []string{"television"}}}))
	assert.Equal(t, uint64(2), m.Version())
	assert.False(t, m.Match("enciende la luz").Found())

	d, ok := m.Device("tv")
	require.True(t, ok)
	assert.Equal(t, message.DeviceOther, d.Type, "missing type defaults to other")
}

func TestDevicesAreCopies(t *testing.T) {
	m := newFixtureMatcher(t)

	devices := m.Devices()
	want := fixture()
	if diff := cmp.Diff(want, devices); diff != "" {
		t.Fatalf("Devices() mismatch (-want +got):\n%s", diff)
	}

	devices[1].Aliases[0] = "changed"
	d, ok := m.Device("luz_sala")
	require.True(t, ok)
	assert.Equal(t, "luz", d.Aliases[0])

	_, ok = m.Device("missing")
	assert.False(t, ok)
}

func TestReloadIsAtomic(t *testing.T) {
	snapshot := func(prefix string) []message.Device {
		return []message.Device{
			{Key: prefix + "_luz", Name: "Luz " + prefix, Type: message.DeviceLight, Room: "sala", Aliases: []string{"luz"}},
			{Key: prefix + "_ventilador", Name: "Ventilador " + prefix, Type: message.DeviceFan, Room: "sala", Aliases: []string{"ventilador"}},
		}
	}
	a, b := snapshot("a"), snapshot("b")
	known := map[string]bool{}
	for _, d := range append(append([]message.Device{}, a...), b...) {
		known[d.Key] = true
	}

	m := New(nil)
	require.NoError(t, m.Reload(a))

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				got := m.Extract("enciende la luz")
				if !got.Device.Found() || !known[got.Device.Key] {
					errs <- fmt.Errorf("unexpected device %q", got.Device.Key)
					return
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			next := a
			if i%2 == 0 {
				next = b
			}
			if err := m.Reload(next); err != nil {
				errs <- err
				return
			}
		}
	}()

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestSnapshotIsPinned(t *testing.T) {
	m := newFixtureMatcher(t)
	snap := m.Snapshot()

	require.NoError(t, m.Reload([]message.Device{{Key: "alarma_casa", Type: message.DeviceAlarm, Aliases: []string{"alarma"}}}))

	assert.Equal(t, uint64(1), snap.Version())
	assert.Equal(t, 5, snap.Len())
	assert.Equal(t, "luz_comedor", snap.Match("la luz del comedor").Key)
	assert.Equal(t, "puerta_garage", snap.Extract("abre el porton del garage").Device.Key)
	assert.Len(t, snap.Devices(), 5)

	now := m.Snapshot()
	assert.Equal(t, uint64(2), now.Version())
	assert.Equal(t, "alarma_casa", now.Match("activa la alarma").Key)
	assert.False(t, now.Match("la luz del comedor").Found())
}

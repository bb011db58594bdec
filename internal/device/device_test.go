package device

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nadzzz/domus/internal/message"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const mappingJSON = `{
  "devices": {
    "luz_sala": {
      "name": "Luz de la Sala",
      "type": "light",
      "room": "sala",
      "aliases": ["lampara de la sala"],
      "endpoints": {"on": "http://hub/sala/on", "off": "http://hub/sala/off"}
    },
    "puerta_principal": {"name": "Puerta Principal", "type": "door", "room": "entrada"},
    "sensor_viejo": {"name": "Sensor", "type": "sensor", "active": false}
  }
}`

const sequenceYAML = `
devices:
  - device_key: ventilador_cuarto
    name: Ventilador del Cuarto
    type: fan
    room: cuarto
  - device_key: alarma_casa
    name: Alarma
    aliases: [alarma]
`

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		data string
		keys []string
	}{
		{name: "mapping keeps order", data: mappingJSON, keys: []string{"luz_sala", "puerta_principal", "sensor_viejo"}},
		{name: "sequence", data: sequenceYAML, keys: []string{"ventilador_cuarto", "alarma_casa"}},
		{name: "root list", data: `[{"device_key": "x", "type": "switch"}]`, keys: []string{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devices, err := Parse([]byte(tt.data))
			require.NoError(t, err)
			var keys []string
			for _, d := range devices {
				keys = append(keys, d.Key)
			}
			assert.Equal(t, tt.keys, keys)
		})
	}
}

func TestParseFields(t *testing.T) {
	devices, err := Parse([]byte(mappingJSON))
	require.NoError(t, err)

	want := message.Device{
		Key:     "luz_sala",
		Name:    "Luz de la Sala",
		Type:    message.DeviceLight,
		Room:    "sala",
		Aliases: []string{"lampara de la sala"},
		Endpoints: message.Endpoints{
			On:  "http://hub/sala/on",
			Off: "http://hub/sala/off",
		},
		Active: true,
	}
	if diff := cmp.Diff(want, devices[0]); diff != "" {
		t.Errorf("device mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, devices[2].Active)

	devices, err = Parse([]byte(sequenceYAML))
	require.NoError(t, err)
	assert.Equal(t, message.DeviceOther, devices[1].Type, "missing type defaults to other")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: ``},
		{name: "no devices key", data: `{"things": []}`},
		{name: "scalar devices", data: `{"devices": 3}`},
		{name: "bad type", data: `{"devices": {"x": {"type": "toaster"}}}`},
		{name: "duplicate key", data: `[{"device_key": "x", "type": "fan"}, {"device_key": "x", "type": "fan"}]`},
		{name: "missing key", data: `[{"type": "fan"}]`},
		{name: "empty alias", data: `[{"device_key": "x", "type": "fan", "aliases": [""]}]`},
		{name: "malformed", data: `{"devices": [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestFileSourceLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.json")
	require.NoError(t, os.WriteFile(path, []byte(mappingJSON), 0o644))

	devices, err := NewFileSource(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2, "inactive devices are dropped")
	assert.Equal(t, "puerta_principal", devices[1].Key)

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.json")).Load(context.Background())
	assert.Error(t, err)
}

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()
	repo, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "domus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Migrate(ctx), "migrate is idempotent")
	return repo
}

func TestRepositoryImportAndList(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	devices, err := Parse([]byte(mappingJSON))
	require.NoError(t, err)
	n, err := repo.Import(ctx, devices)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	active, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "luz_sala", active[0].Key)
	assert.Equal(t, []string{"lampara de la sala"}, active[0].Aliases)
	assert.Equal(t, "http://hub/sala/off", active[0].Endpoints.Off)

	all, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "sensor_viejo", all[2].Key)
	assert.Empty(t, all[1].Aliases)
}

func TestRepositoryImportIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	bad := []message.Device{
		{Key: "ok", Type: message.DeviceFan, Active: true},
		{Key: "bad", Type: "toaster", Active: true},
	}
	_, err := repo.Import(ctx, bad)
	require.Error(t, err)

	all, err := repo.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRepositoryUpsertGetDelete(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	fan := message.Device{Key: "ventilador", Name: "Ventilador", Type: message.DeviceFan, Room: "cuarto", Active: true}
	door := message.Device{Key: "puerta", Type: message.DeviceDoor, Active: true}
	require.NoError(t, repo.Upsert(ctx, fan))
	require.NoError(t, repo.Upsert(ctx, door))

	fan.Name = "Ventilador de Techo"
	require.NoError(t, repo.Upsert(ctx, fan))

	got, err := repo.Get(ctx, "ventilador")
	require.NoError(t, err)
	assert.Equal(t, "Ventilador de Techo", got.Name)

	list, err := repo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ventilador", list[0].Key, "update keeps position")

	require.NoError(t, repo.Delete(ctx, "ventilador", true))
	got, err = repo.Get(ctx, "ventilador")
	require.NoError(t, err)
	assert.False(t, got.Active)

	require.NoError(t, repo.Delete(ctx, "puerta", false))
	_, err = repo.Get(ctx, "puerta")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "puerta", false), ErrNotFound)

	assert.Error(t, repo.Upsert(ctx, message.Device{Key: "x", Type: "toaster"}))
}

func TestWatcherDebounces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devices.json")
	require.NoError(t, os.WriteFile(path, []byte(mappingJSON), 0o644))

	var calls atomic.Int32
	w, err := NewWatcher(path, 50*time.Millisecond, func(context.Context) { calls.Add(1) })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644))
	for range 3 {
		require.NoError(t, os.WriteFile(path, []byte(sequenceYAML), 0o644))
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	require.NoError(t, <-done)
}

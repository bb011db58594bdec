// Package entity resolves device and room mentions against an inverted index
// built from the current device snapshot.
//
// The index is immutable once built. Reload builds a complete replacement and
// publishes it with a single atomic pointer swap, so concurrent lookups see
// either the old or the new snapshot and never block on a reload.
package entity

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nadzzz/domus/internal/message"
	"github.com/nadzzz/domus/internal/nlp/alias"
	"github.com/nadzzz/domus/internal/nlp/normalize"
)

// ErrInvalidSnapshot is returned by Reload when the device batch cannot be
// indexed. The previously published index stays in place.
var ErrInvalidSnapshot = errors.New("invalid device snapshot")

// skipWords are dropped before the first n-gram scan.
var skipWords = map[string]bool{
	"del": true, "de": true, "la": true, "el": true, "los": true, "las": true,
	"un": true, "una": true, "unos": true, "unas": true, "en": true, "al": true,
}

// entry is what an indexed phrase resolves to.
type entry struct {
	key  string
	name string
	typ  message.DeviceType
	room string

	// roomKey is the canonical room (or the normalized room when it is not
	// a known room alias).
	roomKey string
	// normRoom is the normalized room text.
	normRoom string
}

// index is one immutable device snapshot with its phrase lookup table.
type index struct {
	version uint64
	devices []message.Device
	entries []entry
	byKey   map[string]int

	phrases map[string]int
	// order lists phrases in insertion order for deterministic loose scans.
	order []string
}

// Matcher resolves device and room mentions. It is safe for concurrent use.
type Matcher struct {
	norm  *normalize.Normalizer
	rooms *alias.Registry
	nouns *alias.Registry

	reloadMu sync.Mutex
	idx      atomic.Pointer[index]
}

// New creates a Matcher with an empty device index. A nil n uses the default
// normalizer.
func New(n *normalize.Normalizer) *Matcher {
	if n == nil {
		n = normalize.Default()
	}
	m := &Matcher{
		norm:  n,
		rooms: alias.Rooms(),
		nouns: alias.Devices(),
	}
	m.idx.Store(&index{byKey: map[string]int{}, phrases: map[string]int{}})
	return m
}

// Reload rebuilds the index from devices and publishes it atomically.
// Reloads are serialized; readers are never blocked. On error the current
// index is kept.
func (m *Matcher) Reload(devices []message.Device) error {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	next, err := m.build(devices, m.idx.Load().version+1)
	if err != nil {
		return err
	}
	m.idx.Store(next)

	slog.Debug("device index rebuilt",
		"version", next.version,
		"devices", len(next.devices),
		"phrases", len(next.phrases),
	)
	return nil
}

func (m *Matcher) build(devices []message.Device, version uint64) (*index, error) {
	ix := &index{
		version: version,
		devices: make([]message.Device, len(devices)),
		entries: make([]entry, len(devices)),
		byKey:   make(map[string]int, len(devices)),
		phrases: make(map[string]int),
	}

	for i, d := range devices {
		if strings.TrimSpace(d.Key) == "" {
			return nil, fmt.Errorf("%w: device %d has no key", ErrInvalidSnapshot, i)
		}
		if _, dup := ix.byKey[d.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate device key %q", ErrInvalidSnapshot, d.Key)
		}
		d.Aliases = append([]string(nil), d.Aliases...)
		if d.Type == "" {
			d.Type = message.DeviceOther
		}
		ix.devices[i] = d
		ix.byKey[d.Key] = i

		normRoom := m.norm.Normalize(d.Room)
		ix.entries[i] = entry{
			key:      d.Key,
			name:     d.Name,
			typ:      d.Type,
			room:     d.Room,
			roomKey:  m.roomKey(normRoom),
			normRoom: normRoom,
		}
	}

	// Explicit phrases overwrite each other in snapshot order; derived
	// variants only fill gaps.
	explicit := make([][]string, len(devices))
	for i, d := range ix.devices {
		phrases := []string{m.norm.Normalize(d.Name)}
		for _, a := range d.Aliases {
			phrases = append(phrases, m.norm.Normalize(a))
		}
		phrases = append(phrases, m.norm.Normalize(d.Key))
		explicit[i] = phrases

		for _, p := range phrases {
			ix.put(p, i, true)
		}
	}
	for i, d := range ix.devices {
		for _, p := range explicit[i] {
			ix.put(stripSkipWords(p), i, false)
		}
		ix.put(strings.ReplaceAll(m.norm.Normalize(d.Key), "_", " "), i, false)
	}
	return ix, nil
}

func (ix *index) put(phrase string, device int, overwrite bool) {
	if phrase == "" {
		return
	}
	if _, ok := ix.phrases[phrase]; ok {
		if overwrite {
			ix.phrases[phrase] = device
		}
		return
	}
	ix.phrases[phrase] = device
	ix.order = append(ix.order, phrase)
}

func (m *Matcher) roomKey(normRoom string) string {
	if c, ok := m.rooms.Lookup(normRoom); ok {
		return c
	}
	return normRoom
}

func stripSkipWords(s string) string {
	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if !skipWords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// Version returns the version of the published index. It increases by one on
// every successful Reload.
func (m *Matcher) Version() uint64 { return m.idx.Load().version }

// Devices returns a copy of the current snapshot in its original order.
func (m *Matcher) Devices() []message.Device {
	return m.idx.Load().copyDevices()
}

func (ix *index) copyDevices() []message.Device {
	out := make([]message.Device, len(ix.devices))
	for i, d := range ix.devices {
		d.Aliases = append([]string(nil), d.Aliases...)
		out[i] = d
	}
	return out
}

// Device returns the device with key from the current snapshot.
func (m *Matcher) Device(key string) (message.Device, bool) {
	return m.idx.Load().device(key)
}

func (ix *index) device(key string) (message.Device, bool) {
	i, ok := ix.byKey[key]
	if !ok {
		return message.Device{}, false
	}
	d := ix.devices[i]
	d.Aliases = append([]string(nil), d.Aliases...)
	return d, true
}

package entity

import "github.com/nadzzz/domus/internal/message"

// Snapshot is a read-only view of one published index. Every call on a
// Snapshot sees the same devices, whatever reloads happen meanwhile.
type Snapshot struct {
	m  *Matcher
	ix *index
}

// Snapshot pins the currently published index.
func (m *Matcher) Snapshot() Snapshot {
	return Snapshot{m: m, ix: m.idx.Load()}
}

// Version returns the index version.
func (s Snapshot) Version() uint64 { return s.ix.version }

// Len returns the number of devices.
func (s Snapshot) Len() int { return len(s.ix.devices) }

// Devices returns a copy of the devices in snapshot order.
func (s Snapshot) Devices() []message.Device { return s.ix.copyDevices() }

// Device returns the device with key.
func (s Snapshot) Device(key string) (message.Device, bool) { return s.ix.device(key) }

// Match resolves the device mentioned in text.
func (s Snapshot) Match(text string) DeviceMatch {
	return s.ix.match(s.m.norm.Normalize(text))
}

// Extract resolves the device and room of text.
func (s Snapshot) Extract(text string) Entities {
	return s.ix.extract(s.m, text)
}

// Package alias holds the static bilingual synonym tables for device nouns,
// rooms and action verbs, and their reverse lookup indexes.
//
// Tables mix Spanish (including regional variants) and English entries with
// no language tag. Every key is stored normalized, so callers must normalize
// lookups the same way.
package alias

import (
	"github.com/nadzzz/domus/internal/message"
	"github.com/nadzzz/domus/internal/nlp/normalize"
)

// Group is one canonical name with its synonyms.
type Group struct {
	Canonical string
	Aliases   []string

	// Type is the device category of a device-noun group.
	Type message.DeviceType
}

// Registry is a read-only reverse lookup from synonym to canonical name.
type Registry struct {
	name    string
	groups  []Group
	reverse map[string]string
	types   map[string]message.DeviceType
}

// NewRegistry builds a registry from groups. Aliases declared later win over
// earlier duplicates, and every canonical name always maps to itself.
func NewRegistry(name string, groups []Group) *Registry {
	r := &Registry{
		name:    name,
		groups:  groups,
		reverse: make(map[string]string),
		types:   make(map[string]message.DeviceType),
	}
	for _, g := range groups {
		for _, a := range g.Aliases {
			if key := normalize.Normalize(a); key != "" {
				r.reverse[key] = g.Canonical
			}
		}
	}
	for _, g := range groups {
		r.reverse[normalize.Normalize(g.Canonical)] = g.Canonical
		if g.Type != "" {
			r.types[g.Canonical] = g.Type
		}
	}
	return r
}

// Name returns the registry category ("device", "room", "action").
func (r *Registry) Name() string { return r.name }

// Lookup resolves a normalized phrase to its canonical name.
func (r *Registry) Lookup(phrase string) (string, bool) {
	c, ok := r.reverse[phrase]
	return c, ok
}

// TypeOf returns the device category recorded for a canonical name.
func (r *Registry) TypeOf(canonical string) (message.DeviceType, bool) {
	t, ok := r.types[canonical]
	return t, ok
}

// ReverseLookup returns a copy of the synonym to canonical mapping.
func (r *Registry) ReverseLookup() map[string]string {
	out := make(map[string]string, len(r.reverse))
	for k, v := range r.reverse {
		out[k] = v
	}
	return out
}

// Canonicals lists the canonical names in declaration order.
func (r *Registry) Canonicals() []string {
	out := make([]string, 0, len(r.groups))
	seen := make(map[string]bool, len(r.groups))
	for _, g := range r.groups {
		if !seen[g.Canonical] {
			seen[g.Canonical] = true
			out = append(out, g.Canonical)
		}
	}
	return out
}

var (
	devices = NewRegistry("device", deviceGroups())
	rooms   = NewRegistry("room", roomGroups)
	actions = NewRegistry("action", actionGroups)
)

// Devices returns the device-noun registry.
func Devices() *Registry { return devices }

// Rooms returns the room registry.
func Rooms() *Registry { return rooms }

// Actions returns the action-verb registry.
func Actions() *Registry { return actions }

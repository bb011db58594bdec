package entity

import (
	"strings"

	"github.com/nadzzz/domus/internal/message"
)

// Entities is a device mention combined with its room.
type Entities struct {
	Device DeviceMatch `json:"device"`

	// Room is the canonical room mentioned in the text or, when none was
	// mentioned, the matched device's own room.
	Room string `json:"room,omitempty"`

	// RoomText is the text the room was resolved from.
	RoomText string `json:"room_text,omitempty"`

	// RoomInherited is true when Room comes from the device.
	RoomInherited bool `json:"room_inherited,omitempty"`
}

var (
	roomPrepositions = map[string]bool{"en": true, "de": true, "del": true}
	roomArticles     = map[string]bool{"el": true, "la": true, "los": true, "las": true}
	roomNouns        = map[string]bool{"habitacion": true, "cuarto": true, "sala": true}
)

// MatchRoom returns the canonical room mentioned in text, or "".
func (m *Matcher) MatchRoom(text string) string {
	room, _ := m.extractRoom(strings.Fields(m.norm.Normalize(text)))
	return room
}

// extractRoom tries, in order, phrases of up to three words led by en/de/del,
// the word following a room noun ("cuarto de ..."), and any 1-3 word phrase.
// Longer phrases are tried first.
func (m *Matcher) extractRoom(words []string) (room, text string) {
	for i, w := range words {
		if !roomPrepositions[w] {
			continue
		}
		j := i + 1
		if j < len(words) && roomArticles[words[j]] {
			j++
		}
		for n := min(3, len(words)-j); n >= 1; n-- {
			phrase := strings.Join(words[j:j+n], " ")
			if c, ok := m.rooms.Lookup(phrase); ok {
				return c, phrase
			}
		}
	}

	for i, w := range words {
		if !roomNouns[w] {
			continue
		}
		j := i + 1
		if j < len(words) && (words[j] == "de" || words[j] == "del") {
			j++
		}
		if j < len(words) {
			if c, ok := m.rooms.Lookup(words[j]); ok {
				return c, words[j]
			}
		}
	}

	for i := range words {
		for n := min(3, len(words)-i); n >= 1; n-- {
			phrase := strings.Join(words[i:i+n], " ")
			if c, ok := m.rooms.Lookup(phrase); ok {
				return c, phrase
			}
		}
	}
	return "", ""
}

// Extract resolves the device and room of text against a single snapshot.
// An explicit room wins over the device's own room: a match in another room
// is moved to the device of the same type in the mentioned room, and a bare
// device noun ("lampara") plus a room resolves to the device of that type in
// that room.
func (m *Matcher) Extract(text string) Entities {
	return m.Snapshot().Extract(text)
}

func (ix *index) extract(m *Matcher, text string) Entities {
	s := m.norm.Normalize(text)
	words := strings.Fields(s)

	dm := ix.match(s)
	room, roomText := m.extractRoom(words)

	switch {
	case dm.Found() && room != "":
		if room != m.roomKey(m.norm.Normalize(dm.Room)) {
			if alt, ok := ix.byRoom(m, room, dm.Type); ok {
				dm = alt
			}
		}
	case !dm.Found() && room != "":
		if typ, ok := m.nounType(words); ok {
			if alt, ok := ix.byRoom(m, room, typ); ok {
				dm = alt
			}
		}
	}

	out := Entities{Device: dm, Room: room, RoomText: roomText}
	if room == "" && dm.Found() && dm.Room != "" {
		out.Room = dm.Room
		out.RoomInherited = true
	}
	return out
}

// nounType finds a generic device noun in words and returns its type.
func (m *Matcher) nounType(words []string) (message.DeviceType, bool) {
	for i := range words {
		for n := min(3, len(words)-i); n >= 1; n-- {
			c, ok := m.nouns.Lookup(strings.Join(words[i:i+n], " "))
			if !ok {
				continue
			}
			if typ, ok := m.nouns.TypeOf(c); ok {
				return typ, true
			}
		}
	}
	return "", false
}

// DeviceByRoom returns the first device of type typ located in room. The room
// may be a canonical room, an alias, or free text contained in the device's
// room.
func (m *Matcher) DeviceByRoom(room string, typ message.DeviceType) (DeviceMatch, bool) {
	return m.idx.Load().byRoom(m, room, typ)
}

func (ix *index) byRoom(m *Matcher, room string, typ message.DeviceType) (DeviceMatch, bool) {
	normRoom := m.norm.Normalize(room)
	if normRoom == "" {
		return DeviceMatch{}, false
	}
	key := m.roomKey(normRoom)

	for i, e := range ix.entries {
		if e.typ != typ {
			continue
		}
		if e.roomKey == key || strings.Contains(e.normRoom, normRoom) {
			dm := ix.result(i, e.name, confidenceRoom)
			if dm.Alias == "" {
				dm.Alias = e.key
			}
			return dm, true
		}
	}
	return DeviceMatch{}, false
}

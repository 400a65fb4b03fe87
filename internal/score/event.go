// Package score defines the note-event model consumed by the fingering
// engine and builds event sequences from Standard MIDI Files.
package score

import "github.com/akkordio/akkordio/internal/layout"

// Bellows is the air-direction hint attached to an event. It is an input
// signal (scores rarely encode it); the engine never infers it.
type Bellows int

const (
	BellowsUnspecified Bellows = iota
	BellowsNeutral
	BellowsPush
	BellowsPull
)

func (b Bellows) String() string {
	switch b {
	case BellowsNeutral:
		return "neutral"
	case BellowsPush:
		return "push"
	case BellowsPull:
		return "pull"
	default:
		return "unspecified"
	}
}

// ParseBellows maps a textual bellows hint to its enum value. Unknown or
// empty strings parse as unspecified.
func ParseBellows(s string) Bellows {
	switch s {
	case "neutral":
		return BellowsNeutral
	case "push":
		return BellowsPush
	case "pull":
		return BellowsPull
	default:
		return BellowsUnspecified
	}
}

// Note is one pitch within an event. TiedFromPrev marks a pitch that must be
// held continuously from the previous event by the same finger.
type Note struct {
	MIDI         int    `json:"midi"`
	Name         string `json:"note"`
	TiedFromPrev bool   `json:"tiedFromPrev,omitempty"`
}

// Event is one time-slice of the score for one hand: every pitch sounding at
// that onset, with tie flags, an optional bellows hint and a metric-strength
// flag. Events are immutable once produced.
type Event struct {
	Index    int     `json:"index"`
	Notes    []Note  `json:"notes"`
	Bellows  Bellows `json:"-"`
	Downbeat bool    `json:"downbeat,omitempty"`

	Measure  int     `json:"measure,omitempty"`
	Beat     float64 `json:"beat,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// FromNotes builds an event sequence from groups of simultaneous pitches,
// one group per onset. Useful for callers that already hold parsed notes;
// ties, bellows hints and metric positions must be set afterwards.
func FromNotes(groups ...[]int) []Event {
	events := make([]Event, 0, len(groups))
	for i, group := range groups {
		ev := Event{Index: i, Bellows: BellowsUnspecified}
		for _, midi := range group {
			ev.Notes = append(ev.Notes, Note{MIDI: midi, Name: layout.MIDIToNoteName(midi)})
		}
		events = append(events, ev)
	}
	return events
}

// Pitches returns the MIDI pitches of the event in note order.
func (e Event) Pitches() []int {
	out := make([]int, len(e.Notes))
	for i, n := range e.Notes {
		out[i] = n.MIDI
	}
	return out
}

// HeldPitches returns the pitches flagged as tied from the previous event.
func (e Event) HeldPitches() []int {
	var out []int
	for _, n := range e.Notes {
		if n.TiedFromPrev {
			out = append(out, n.MIDI)
		}
	}
	return out
}

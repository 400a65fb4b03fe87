package layout

import (
	"fmt"
	"strings"
)

// SystemType identifies an accordion keyboard system.
type SystemType string

const (
	SystemC         SystemType = "c-system"
	SystemB         SystemType = "b-system"
	SystemFreebassC SystemType = "freebass-c"
	SystemFreebassB SystemType = "freebass-b"
	SystemStradella SystemType = "stradella"
)

// Position is an integer (row, column) coordinate on a keyboard layout.
type Position struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Button is one physical button on the keyboard.
type Button struct {
	Row        int      `json:"row"`
	Column     int      `json:"column"`
	Note       string   `json:"note"`
	MIDI       int      `json:"midi"`
	Enharmonic []string `json:"enharmonic,omitempty"`
	Color      string   `json:"color"`
	Type       string   `json:"type"`
	Label      string   `json:"label,omitempty"`
}

// Geometry holds the physical spacing constants of a layout in millimeters.
type Geometry struct {
	ButtonRadiusMM  float64 `json:"buttonRadius"`
	RowSpacingMM    float64 `json:"rowSpacing"`
	ColSpacingMM    float64 `json:"columnSpacing"`
	Staggered       bool    `json:"staggered"`
	StaggerOffsetMM float64 `json:"staggerOffset,omitempty"`
}

// Layout is a fully resolved keyboard: every button with its pitch, plus a
// pitch index for reverse lookup. Layouts are immutable after generation and
// safe for concurrent reads.
type Layout struct {
	System    SystemType `json:"system"`
	Rows      int        `json:"rows"`
	Columns   int        `json:"columns"`
	StartMIDI int        `json:"startMidi,omitempty"`
	Buttons   []Button   `json:"buttons"`
	Geometry  Geometry   `json:"geometry"`

	noteIndex map[int][]Position
}

// New assembles a layout from explicit buttons, indexing them by pitch.
// Generated layouts should come from the Generate functions; New exists for
// custom or irregular instruments.
func New(system SystemType, rows, columns int, geometry Geometry, buttons []Button) *Layout {
	l := &Layout{
		System:    system,
		Rows:      rows,
		Columns:   columns,
		Buttons:   buttons,
		Geometry:  geometry,
		noteIndex: make(map[int][]Position),
	}
	for _, b := range buttons {
		l.noteIndex[b.MIDI] = append(l.noteIndex[b.MIDI], Position{Row: b.Row, Column: b.Column})
	}
	return l
}

// UnmappablePitchError reports a MIDI pitch with no button on the layout.
type UnmappablePitchError struct {
	MIDI   int
	System SystemType
}

func (e *UnmappablePitchError) Error() string {
	return fmt.Sprintf("midi %d (%s) has no button on %s layout", e.MIDI, MIDIToNoteName(e.MIDI), e.System)
}

// PositionsFor returns every button position producing the given MIDI pitch,
// in generation order. The returned slice must not be modified.
func (l *Layout) PositionsFor(midi int) ([]Position, error) {
	positions, ok := l.noteIndex[midi]
	if !ok || len(positions) == 0 {
		return nil, &UnmappablePitchError{MIDI: midi, System: l.System}
	}
	return positions, nil
}

// Mappable reports whether the given MIDI pitch exists on the layout.
func (l *Layout) Mappable(midi int) bool {
	return len(l.noteIndex[midi]) > 0
}

// NoteIndex returns a copy of the pitch index, keyed by MIDI note number.
// Used for JSON export to the frontend.
func (l *Layout) NoteIndex() map[int][]Position {
	index := make(map[int][]Position, len(l.noteIndex))
	for midi, positions := range l.noteIndex {
		index[midi] = append([]Position(nil), positions...)
	}
	return index
}

// noteNames indexed by pitch class.
var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var enharmonicMap = map[string]string{
	"C#": "Db", "D#": "Eb", "F#": "Gb", "G#": "Ab", "A#": "Bb",
	"E": "Fb", "B": "Cb", "C": "B#", "F": "E#",
}

// pitchClassColors maps pitch class (0-11) to the frontend display color.
var pitchClassColors = map[int]string{
	0: "white", 1: "dark", 2: "blue", 3: "dark", 4: "green", 5: "yellow",
	6: "orange", 7: "red", 8: "gray", 9: "purple", 10: "purple", 11: "teal",
}

// MIDIToNoteName converts a MIDI note number to a name with octave,
// e.g. 60 -> "C4".
func MIDIToNoteName(midi int) string {
	octave := midi/12 - 1
	return fmt.Sprintf("%s%d", noteNames[((midi%12)+12)%12], octave)
}

// pitchClassColor returns the display color for a note name (octave ignored).
func pitchClassColor(note string) string {
	base := strings.TrimRight(note, "0123456789-")
	for pc, name := range noteNames {
		if name == base {
			return pitchClassColors[pc]
		}
	}
	// Enharmonic spellings resolve through the sharp name.
	for sharp, flat := range enharmonicMap {
		if base == flat {
			for pc, name := range noteNames {
				if name == sharp {
					return pitchClassColors[pc]
				}
			}
		}
	}
	return "white"
}

// enharmonicsOf returns alternate spellings for a note name with octave.
func enharmonicsOf(note string) []string {
	base := strings.TrimRight(note, "0123456789-")
	alt, ok := enharmonicMap[base]
	if !ok {
		return nil
	}
	octave := note[len(base):]
	return []string{alt + octave}
}

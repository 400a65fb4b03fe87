package layout

import "fmt"

// Default physical geometry for treble chromatic keyboards.
var defaultTrebleGeometry = Geometry{
	ButtonRadiusMM:  8,
	RowSpacingMM:    15,
	ColSpacingMM:    18,
	Staggered:       true,
	StaggerOffsetMM: 9,
}

// circleOfFifths is the Stradella column sequence, starting from Ab.
var circleOfFifths = []string{
	"Ab", "Eb", "Bb", "F", "C", "G", "D", "A", "E", "B", "F#", "C#", "G#", "D#", "A#",
}

// fifthToMIDI places each Stradella root in octave 2.
var fifthToMIDI = map[string]int{
	"Ab": 44, "Eb": 39, "Bb": 46, "F": 41, "C": 36, "G": 43,
	"D": 38, "A": 45, "E": 40, "B": 47, "F#": 42, "C#": 37,
	"G#": 44, "D#": 39, "A#": 46,
}

// GenerateChromatic builds a chromatic button layout from row semitone
// offsets and a per-column semitone step. Both C-system and B-system use
// row offsets 0..rows-1 with a whole-tone column step; they differ only in
// the starting pitch.
func GenerateChromatic(system SystemType, rows, columns, startMIDI int, geometry Geometry) (*Layout, error) {
	if rows < 1 || columns < 1 {
		return nil, fmt.Errorf("layout %s: need at least 1 row and 1 column, got %dx%d", system, rows, columns)
	}
	if startMIDI < 0 || startMIDI > 127 {
		return nil, fmt.Errorf("layout %s: start midi %d out of range", system, startMIDI)
	}

	l := &Layout{
		System:    system,
		Rows:      rows,
		Columns:   columns,
		StartMIDI: startMIDI,
		Geometry:  geometry,
		noteIndex: make(map[int][]Position),
	}

	for row := 0; row < rows; row++ {
		for col := 0; col < columns; col++ {
			midi := startMIDI + row + col*2
			note := MIDIToNoteName(midi)
			l.Buttons = append(l.Buttons, Button{
				Row:        row,
				Column:     col,
				Note:       note,
				MIDI:       midi,
				Enharmonic: enharmonicsOf(note),
				Color:      pitchClassColor(note),
				Type:       "note",
			})
			l.noteIndex[midi] = append(l.noteIndex[midi], Position{Row: row, Column: col})
		}
	}
	return l, nil
}

// GenerateCSystem builds a C-system chromatic treble layout.
// Typical configurations are 3-5 rows, 11-13 columns, starting at C3 (48).
func GenerateCSystem(rows, columns, startMIDI int) (*Layout, error) {
	return GenerateChromatic(SystemC, rows, columns, startMIDI, defaultTrebleGeometry)
}

// GenerateBSystem builds a B-system (Bayan) chromatic treble layout,
// conventionally starting one semitone below the C-system at B2 (47).
func GenerateBSystem(rows, columns, startMIDI int) (*Layout, error) {
	return GenerateChromatic(SystemB, rows, columns, startMIDI, defaultTrebleGeometry)
}

// GenerateFreebass builds a free-bass chromatic layout. Same interval logic
// as the treble systems, lower register, slightly tighter geometry.
func GenerateFreebass(system SystemType, rows, columns, startMIDI int) (*Layout, error) {
	if system != SystemFreebassC && system != SystemFreebassB {
		return nil, fmt.Errorf("layout: %s is not a free-bass system", system)
	}
	return GenerateChromatic(system, rows, columns, startMIDI, Geometry{
		ButtonRadiusMM:  7,
		RowSpacingMM:    14,
		ColSpacingMM:    16,
		Staggered:       true,
		StaggerOffsetMM: 8,
	})
}

// GenerateStradella builds a Stradella bass layout: columns follow the
// circle of fifths, the six rows are counter-bass, root bass, then major,
// minor, seventh and diminished chord buttons. This is layout data for the
// frontend; chord-button fingering is not assigned by the engine.
func GenerateStradella(columns, startFifthIndex int) (*Layout, error) {
	if columns < 1 {
		return nil, fmt.Errorf("layout stradella: need at least 1 column, got %d", columns)
	}

	l := &Layout{
		System:  SystemStradella,
		Rows:    6,
		Columns: columns,
		Geometry: Geometry{
			ButtonRadiusMM: 6,
			RowSpacingMM:   12,
			ColSpacingMM:   14,
		},
		noteIndex: make(map[int][]Position),
	}

	chordRows := []struct {
		row    int
		typ    string
		suffix string
	}{
		{2, "major", ""},
		{3, "minor", "m"},
		{4, "seventh", "7"},
		{5, "diminished", "dim"},
	}

	for col := 0; col < columns; col++ {
		root := circleOfFifths[(startFifthIndex+col)%len(circleOfFifths)]
		rootMIDI := fifthToMIDI[root]

		// Counter-bass sits a major third above the root.
		counterMIDI := rootMIDI + 4
		l.Buttons = append(l.Buttons, Button{
			Row: 0, Column: col, Type: "counter-bass",
			Note: MIDIToNoteName(counterMIDI), MIDI: counterMIDI,
			Label: root, Color: pitchClassColor(root),
		})
		l.noteIndex[counterMIDI] = append(l.noteIndex[counterMIDI], Position{Row: 0, Column: col})

		l.Buttons = append(l.Buttons, Button{
			Row: 1, Column: col, Type: "root",
			Note: root, MIDI: rootMIDI,
			Label: root, Color: pitchClassColor(root),
		})
		l.noteIndex[rootMIDI] = append(l.noteIndex[rootMIDI], Position{Row: 1, Column: col})

		for _, cr := range chordRows {
			l.Buttons = append(l.Buttons, Button{
				Row: cr.row, Column: col, Type: cr.typ,
				Note: root, MIDI: rootMIDI,
				Label: root + cr.suffix, Color: pitchClassColor(root),
			})
		}
	}
	return l, nil
}

// Generate dispatches on system type. rows/columns/startMIDI are required for
// chromatic systems; Stradella uses columns and the startFifthIndex option.
func Generate(system SystemType, rows, columns, startMIDI, startFifthIndex int) (*Layout, error) {
	switch system {
	case SystemC:
		return GenerateCSystem(rows, columns, startMIDI)
	case SystemB:
		return GenerateBSystem(rows, columns, startMIDI)
	case SystemFreebassC, SystemFreebassB:
		return GenerateFreebass(system, rows, columns, startMIDI)
	case SystemStradella:
		return GenerateStradella(columns, startFifthIndex)
	default:
		return nil, fmt.Errorf("layout: unknown system type %q", system)
	}
}

package layout

import (
	"fmt"
	"sort"
)

// Preset describes a common accordion configuration.
type Preset struct {
	System          SystemType `json:"system"`
	Rows            int        `json:"rows,omitempty"`
	Columns         int        `json:"columns"`
	StartMIDI       int        `json:"startMidi,omitempty"`
	StartFifthIndex int        `json:"startFifthIndex,omitempty"`
}

// presets registers the stock accordion configurations. Treble presets start
// at C3 (48) for C-system and B2 (47) for B-system; Stradella presets start
// the circle of fifths at C.
var presets = map[string]Preset{
	"c_system_5row":   {System: SystemC, Rows: 5, Columns: 12, StartMIDI: 48},
	"c_system_4row":   {System: SystemC, Rows: 4, Columns: 12, StartMIDI: 48},
	"c_system_3row":   {System: SystemC, Rows: 3, Columns: 11, StartMIDI: 48},
	"b_system_5row":   {System: SystemB, Rows: 5, Columns: 12, StartMIDI: 47},
	"b_system_4row":   {System: SystemB, Rows: 4, Columns: 12, StartMIDI: 47},
	"b_system_3row":   {System: SystemB, Rows: 3, Columns: 11, StartMIDI: 47},
	"freebass_c_5row": {System: SystemFreebassC, Rows: 5, Columns: 12, StartMIDI: 36},
	"freebass_b_5row": {System: SystemFreebassB, Rows: 5, Columns: 12, StartMIDI: 35},
	"stradella_120":   {System: SystemStradella, Columns: 20, StartFifthIndex: 4},
	"stradella_96":    {System: SystemStradella, Columns: 16, StartFifthIndex: 4},
	"stradella_72":    {System: SystemStradella, Columns: 12, StartFifthIndex: 4},
	"stradella_48":    {System: SystemStradella, Columns: 8, StartFifthIndex: 4},
}

// FromPreset generates the layout for a named preset.
func FromPreset(name string) (*Layout, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("layout: unknown preset %q", name)
	}
	return Generate(p.System, p.Rows, p.Columns, p.StartMIDI, p.StartFifthIndex)
}

// PresetNames returns all registered preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TreblePresetNames returns the presets usable for right-hand fingering.
func TreblePresetNames() []string {
	var names []string
	for name, p := range presets {
		if p.System == SystemC || p.System == SystemB {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// BassPresetNames returns the presets for left-hand layouts.
func BassPresetNames() []string {
	var names []string
	for name, p := range presets {
		if p.System == SystemStradella || p.System == SystemFreebassC || p.System == SystemFreebassB {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

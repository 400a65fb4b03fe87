package score

import (
	"fmt"
	"io"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/akkordio/akkordio/internal/layout"
)

// timedNote is a sounding note with absolute tick bounds, gathered from all
// tracks before slicing into events.
type timedNote struct {
	key     uint8
	onTick  int64
	offTick int64
}

// meterChange records a time-signature meta event at an absolute tick.
type meterChange struct {
	tick       int64
	num, denom uint8
}

// Metadata summarizes what was read from a MIDI file.
type Metadata struct {
	Title         string `json:"title,omitempty"`
	TimeSignature string `json:"time_signature,omitempty"`
	TempoBPM      int    `json:"tempo,omitempty"`
	TotalMeasures int    `json:"total_measures,omitempty"`
	NoteCount     int    `json:"note_count"`
}

// FromSMF reads a Standard MIDI File and slices it into onset-grouped events
// for one hand. All tracks are merged; notes still sounding at a later onset
// are flagged tied. Time-signature meta events drive the downbeat flags.
func FromSMF(r io.Reader) ([]Event, Metadata, error) {
	data, err := smf.ReadFrom(r)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("read smf: %w", err)
	}

	ticks, ok := data.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, Metadata{}, fmt.Errorf("read smf: unsupported time format %v", data.TimeFormat)
	}
	tpq := int64(ticks.Resolution())

	var (
		notes  []timedNote
		meters []meterChange
		meta   Metadata
	)

	for _, tr := range data.Tracks {
		var abs int64
		open := map[uint8][]int{} // key -> indices into notes with no off yet
		for _, ev := range tr {
			abs += int64(ev.Delta)
			msg := ev.Message

			var ch, key, vel uint8
			var num, denom uint8
			var bpm float64
			var name string
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				open[key] = append(open[key], len(notes))
				notes = append(notes, timedNote{key: key, onTick: abs, offTick: -1})
			case msg.GetNoteEnd(&ch, &key):
				if idxs := open[key]; len(idxs) > 0 {
					notes[idxs[0]].offTick = abs
					open[key] = idxs[1:]
				}
			case msg.GetMetaMeter(&num, &denom):
				meters = append(meters, meterChange{tick: abs, num: num, denom: denom})
			case msg.GetMetaTempo(&bpm):
				if meta.TempoBPM == 0 {
					meta.TempoBPM = int(bpm)
				}
			case msg.GetMetaTrackName(&name):
				if meta.Title == "" {
					meta.Title = name
				}
			}
		}
		// Notes with a missing off run to the end of their track.
		for _, idxs := range open {
			for _, i := range idxs {
				notes[i].offTick = abs
			}
		}
	}

	events := sliceEvents(notes, tpq, meters)
	meta.NoteCount = len(notes)
	if len(meters) > 0 {
		meta.TimeSignature = fmt.Sprintf("%d/%d", meters[0].num, meters[0].denom)
	}
	if len(events) > 0 {
		meta.TotalMeasures = events[len(events)-1].Measure
	}
	return events, meta, nil
}

// sliceEvents groups notes by onset tick into ordered events. A note whose
// interval spans a later onset reappears there flagged TiedFromPrev, so the
// engine keeps the same finger on it.
func sliceEvents(notes []timedNote, tpq int64, meters []meterChange) []Event {
	if len(notes) == 0 {
		return nil
	}
	sort.SliceStable(meters, func(i, j int) bool { return meters[i].tick < meters[j].tick })

	onsetSet := map[int64]bool{}
	for _, n := range notes {
		onsetSet[n.onTick] = true
	}
	onsets := make([]int64, 0, len(onsetSet))
	for t := range onsetSet {
		onsets = append(onsets, t)
	}
	sort.Slice(onsets, func(i, j int) bool { return onsets[i] < onsets[j] })

	var lastOff int64
	for _, n := range notes {
		if n.offTick > lastOff {
			lastOff = n.offTick
		}
	}

	events := make([]Event, 0, len(onsets))
	for i, t := range onsets {
		ev := Event{Index: i, Bellows: BellowsUnspecified}

		// Pitches sounding at this onset, new ones before held ones. A pitch
		// appears at most once per event.
		seen := map[int]bool{}
		for _, n := range notes {
			if n.onTick == t && !seen[int(n.key)] {
				ev.Notes = append(ev.Notes, Note{MIDI: int(n.key), Name: layout.MIDIToNoteName(int(n.key))})
				seen[int(n.key)] = true
			}
		}
		for _, n := range notes {
			if n.onTick < t && n.offTick > t && !seen[int(n.key)] {
				ev.Notes = append(ev.Notes, Note{
					MIDI:         int(n.key),
					Name:         layout.MIDIToNoteName(int(n.key)),
					TiedFromPrev: true,
				})
				seen[int(n.key)] = true
			}
		}

		ev.Measure, ev.Beat, ev.Downbeat = metricPosition(t, tpq, meters)

		end := lastOff
		if i+1 < len(onsets) {
			end = onsets[i+1]
		}
		if end > t {
			ev.Duration = float64(end-t) / float64(tpq)
		}
		events = append(events, ev)
	}
	return events
}

// metricPosition locates a tick within the active meter: 1-based measure,
// 1-based beat in quarter notes, and whether it falls exactly on a barline.
func metricPosition(tick, tpq int64, meters []meterChange) (measure int, beat float64, downbeat bool) {
	// Default 4/4 when the file carries no time signature.
	active := meterChange{num: 4, denom: 4}
	measureBase := 1
	for _, m := range meters {
		if m.tick > tick {
			break
		}
		if m.tick > active.tick || (m.tick == active.tick && m.num != 0) {
			// Measures completed under the previous meter carry over.
			prevTicks := ticksPerMeasure(active, tpq)
			if prevTicks > 0 {
				measureBase += int((m.tick - active.tick) / prevTicks)
			}
			active = m
		}
	}

	perMeasure := ticksPerMeasure(active, tpq)
	if perMeasure <= 0 {
		return 1, 1, tick == 0
	}
	rel := tick - active.tick
	measure = measureBase + int(rel/perMeasure)
	within := rel % perMeasure
	beat = 1 + float64(within)/float64(tpq)
	downbeat = within == 0
	return measure, beat, downbeat
}

func ticksPerMeasure(m meterChange, tpq int64) int64 {
	if m.num == 0 || m.denom == 0 {
		return 0
	}
	return int64(m.num) * tpq * 4 / int64(m.denom)
}

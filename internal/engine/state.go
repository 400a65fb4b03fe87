// Package engine computes optimal finger-to-button assignments for a
// sequence of note events on a chromatic accordion keyboard. The search is
// A* over hand configurations: each node fixes where all five fingers sit
// after one event, and edges are scored by a biomechanical cost model.
package engine

import (
	"hash/fnv"
	"math"

	"github.com/akkordio/akkordio/internal/layout"
	"github.com/akkordio/akkordio/internal/score"
)

// FingerStatus describes what a finger is doing in a hand configuration.
type FingerStatus uint8

const (
	FingerFree FingerStatus = iota
	FingerPressing
	FingerLockedHolding
)

// FingerState is one finger in a hand configuration. Finger identity is
// stable across the whole search: a finger holding a tied note is never
// reassigned mid-hold.
type FingerState struct {
	Status     FingerStatus
	Pos        layout.Position
	MIDI       int
	HeldEvents int // consecutive events this note has been down
}

// HandGeometry is derived from the non-free fingers of a configuration.
// WristAngleDeg is diagnostic output only; it never feeds the cost model.
type HandGeometry struct {
	CentroidRow   float64
	CentroidCol   float64
	SpanMM        float64
	WristAngleDeg float64
}

// nodeState is an A* search vertex: the five finger slots (slot 0 is the
// thumb, finger 1; slot 4 the pinky, finger 5), derived geometry, bellows
// state, the index of the last event accounted for, and the parent's index
// in the node arena. Parents are referenced by arena index rather than by
// pointer so path reconstruction needs no cycles.
type nodeState struct {
	fingers  [fingerCount]FingerState
	geom     HandGeometry
	bellows  score.Bellows
	eventIdx int
	parent   int
	g, h, f  float64
}

const fingerCount = 5

// fingerOf returns the finger index (1-5) holding the given pitch, or 0.
func (n *nodeState) fingerOf(midi int) int {
	for i := range n.fingers {
		f := &n.fingers[i]
		if f.Status != FingerFree && f.MIDI == midi {
			return i + 1
		}
	}
	return 0
}

// computeGeometry derives centroid, span and wrist angle from the non-free
// fingers. A hand with every finger lifted keeps the previous centroid, so
// cost continuity survives staccato passages.
func computeGeometry(fingers *[fingerCount]FingerState, prev HandGeometry, geom layout.Geometry) HandGeometry {
	var (
		sumRow, sumCol float64
		count          int
	)
	for i := range fingers {
		if fingers[i].Status == FingerFree {
			continue
		}
		sumRow += float64(fingers[i].Pos.Row)
		sumCol += float64(fingers[i].Pos.Column)
		count++
	}

	out := HandGeometry{CentroidRow: prev.CentroidRow, CentroidCol: prev.CentroidCol}
	if count > 0 {
		out.CentroidRow = sumRow / float64(count)
		out.CentroidCol = sumCol / float64(count)
	}
	out.SpanMM = spanMM(fingers, geom)
	out.WristAngleDeg = wristAngle(fingers, geom)
	return out
}

// spanMM is the maximum pairwise physical distance among non-free fingers.
func spanMM(fingers *[fingerCount]FingerState, geom layout.Geometry) float64 {
	var max float64
	for i := 0; i < fingerCount; i++ {
		if fingers[i].Status == FingerFree {
			continue
		}
		for j := i + 1; j < fingerCount; j++ {
			if fingers[j].Status == FingerFree {
				continue
			}
			d := buttonDistanceMM(fingers[i].Pos, fingers[j].Pos, geom)
			if d > max {
				max = d
			}
		}
	}
	return max
}

// wristAngle estimates hand tilt from the outermost pressed fingers.
func wristAngle(fingers *[fingerCount]FingerState, geom layout.Geometry) float64 {
	lo, hi := -1, -1
	for i := 0; i < fingerCount; i++ {
		if fingers[i].Status == FingerFree {
			continue
		}
		if lo < 0 {
			lo = i
		}
		hi = i
	}
	if lo < 0 || lo == hi {
		return 0
	}
	dy := float64(fingers[hi].Pos.Row-fingers[lo].Pos.Row) * geom.RowSpacingMM
	dx := float64(fingers[hi].Pos.Column-fingers[lo].Pos.Column) * geom.ColSpacingMM
	return math.Atan2(dy, dx) * 180 / math.Pi
}

// buttonDistanceMM is the physical distance between two buttons: row and
// column deltas scaled independently, combined via Pythagoras.
func buttonDistanceMM(a, b layout.Position, geom layout.Geometry) float64 {
	dy := float64(a.Row-b.Row) * geom.RowSpacingMM
	dx := float64(a.Column-b.Column) * geom.ColSpacingMM
	return math.Hypot(dx, dy)
}

// hash produces the closed-set key: event index, bellows and the per-finger
// (status, position, pitch) tuple. Geometry and costs are derived, so they
// stay out of the key.
func (n *nodeState) hash() uint64 {
	h := fnv.New64a()
	buf := make([]byte, 0, 64)
	buf = append(buf, byte(n.eventIdx>>8), byte(n.eventIdx), byte(n.bellows))
	for i := range n.fingers {
		f := &n.fingers[i]
		buf = append(buf,
			byte(f.Status),
			byte(f.Pos.Row), byte(f.Pos.Column),
			byte(f.MIDI),
		)
	}
	h.Write(buf)
	return h.Sum64()
}

// arena is the append-only node store. Nodes reference parents by index.
type arena struct {
	nodes []nodeState
}

func (a *arena) add(n nodeState) int {
	a.nodes = append(a.nodes, n)
	return len(a.nodes) - 1
}

func (a *arena) at(i int) *nodeState {
	return &a.nodes[i]
}

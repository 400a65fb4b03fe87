package engine

import (
	"github.com/akkordio/akkordio/internal/layout"
	"github.com/akkordio/akkordio/internal/score"
)

// successors enumerates every legal hand configuration for the target event,
// starting from cur. Tied notes lock their holding finger in place; the
// remaining fingers are assigned to the new notes over all candidate
// buttons. Candidates violating the span or inversion hard limits are
// discarded. An empty result means the branch dies: either a tie has no
// holding finger in history or no physically possible assignment exists.
func (e *Engine) successors(cur *nodeState, ev score.Event) []nodeState {
	type newNote struct {
		note       score.Note
		candidates []layout.Position
	}

	base := cur.fingers
	locked := [fingerCount]bool{}
	var pending []newNote

	for _, n := range ev.Notes {
		if n.TiedFromPrev {
			finger := cur.fingerOf(n.MIDI)
			if finger == 0 {
				// The tie has no holding finger in the search history; the
				// event is inconsistent with this branch.
				return nil
			}
			slot := finger - 1
			base[slot].Status = FingerLockedHolding
			base[slot].HeldEvents++
			locked[slot] = true
			continue
		}
		candidates, err := e.layout.PositionsFor(n.MIDI)
		if err != nil {
			// Solve validates mappability up front, so this only trips on
			// inputs built outside the facade. Treat it as branch death.
			return nil
		}
		pending = append(pending, newNote{note: n, candidates: candidates})
	}

	// Fingers not locked by a tie are free for the new notes, including
	// those that pressed a now-released note in the previous event.
	var free []int
	for i := 0; i < fingerCount; i++ {
		if locked[i] {
			continue
		}
		base[i] = FingerState{}
		free = append(free, i)
	}

	if len(pending) > len(free) {
		return nil
	}

	var (
		out  []nodeState
		used [fingerCount]bool
	)
	fingers := base

	var assign func(noteIdx int)
	assign = func(noteIdx int) {
		if noteIdx == len(pending) {
			node := nodeState{
				fingers:  fingers,
				bellows:  cur.bellows,
				eventIdx: ev.Index,
			}
			if ev.Bellows != score.BellowsUnspecified {
				node.bellows = ev.Bellows
			}
			node.geom = computeGeometry(&node.fingers, cur.geom, e.layout.Geometry)
			if node.geom.SpanMM > e.weights.MaxHandSpanMM {
				return
			}
			if e.cost.isInversionImpossible(&node) {
				return
			}
			out = append(out, node)
			return
		}
		nn := pending[noteIdx]
		for _, slot := range free {
			if used[slot] {
				continue
			}
			used[slot] = true
			for _, pos := range nn.candidates {
				fingers[slot] = FingerState{
					Status:     FingerPressing,
					Pos:        pos,
					MIDI:       nn.note.MIDI,
					HeldEvents: 1,
				}
				assign(noteIdx + 1)
			}
			fingers[slot] = FingerState{}
			used[slot] = false
		}
	}
	assign(0)

	return out
}

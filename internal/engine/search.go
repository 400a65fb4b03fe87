package engine

import (
	"container/heap"
	"context"
	"math"
	"sort"

	"github.com/akkordio/akkordio/internal/score"
)

// openItem is a priority-queue entry referencing a node by arena index.
type openItem struct {
	arenaIdx int
	f        float64
}

// openHeap orders by ascending f; equal f breaks on the lower arena index,
// which fixes the tie-break rule and keeps repeated solves deterministic.
type openHeap []openItem

func (h openHeap) Len() int { return len(h) }
func (h openHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].arenaIdx < h[j].arenaIdx
}
func (h openHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *openHeap) Push(x any)   { *h = append(*h, x.(openItem)) }
func (h *openHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

type searchOutcome int

const (
	outcomeSolved searchOutcome = iota
	outcomeExhausted
	outcomeBudget
	outcomeCanceled
)

type closedEntry struct {
	g float64
}

// searcher owns the open/closed sets for a single solve. Nothing here is
// shared across invocations.
type searcher struct {
	eng           *Engine
	events        []score.Event
	arena         arena
	open          openHeap
	closed        map[uint64]closedEntry
	suffix        []float64
	beamWidth     int
	maxExpansions int

	best     int // arena index of the furthest-progressed node
	expanded int
}

// run drives the A* loop: pop the cheapest open node, finish if it accounts
// for the last event, otherwise expand it against the next event. Returns
// the goal's arena index when solved; otherwise best tracks the deepest
// partial for recovery.
func (s *searcher) run(ctx context.Context) (int, searchOutcome) {
	lastEvent := len(s.events) - 1

	for s.open.Len() > 0 {
		if ctx.Err() != nil {
			return -1, outcomeCanceled
		}
		if s.maxExpansions > 0 && s.expanded >= s.maxExpansions {
			return -1, outcomeBudget
		}

		item := heap.Pop(&s.open).(openItem)
		node := s.arena.at(item.arenaIdx)

		key := node.hash()
		if entry, ok := s.closed[key]; ok && entry.g <= node.g {
			// A configuration at least this good was already expanded.
			continue
		}
		s.closed[key] = closedEntry{g: node.g}

		if node.eventIdx == lastEvent {
			return item.arenaIdx, outcomeSolved
		}

		s.expanded++
		s.expand(item.arenaIdx)

		if s.beamWidth > 0 && s.open.Len() > s.beamWidth {
			s.trimOpen()
		}
	}
	return -1, outcomeExhausted
}

// expand generates and scores every legal successor of the node for the
// next event, enqueueing those that improve on the closed set.
func (s *searcher) expand(parentIdx int) {
	// The arena backing array may move as successors are appended, so the
	// parent is re-fetched by index rather than held across adds.
	ev := s.events[s.arena.at(parentIdx).eventIdx+1]
	succ := s.eng.successors(s.arena.at(parentIdx), ev)

	for i := range succ {
		parent := s.arena.at(parentIdx)
		next := &succ[i]
		next.parent = parentIdx
		next.g = parent.g + s.eng.cost.edgeCost(parent, next, ev)
		next.h = s.suffix[ev.Index+1]
		next.f = next.g + next.h

		if entry, ok := s.closed[next.hash()]; ok && entry.g <= next.g {
			continue
		}

		idx := s.arena.add(*next)
		heap.Push(&s.open, openItem{arenaIdx: idx, f: next.f})

		if s.better(idx) {
			s.best = idx
		}
	}
}

// better reports whether the node at idx supersedes the current best
// partial: strictly deeper into the event sequence, or as deep but cheaper.
func (s *searcher) better(idx int) bool {
	if s.best < 0 {
		return true
	}
	cand, cur := s.arena.at(idx), s.arena.at(s.best)
	if cand.eventIdx != cur.eventIdx {
		return cand.eventIdx > cur.eventIdx
	}
	return cand.g < cur.g
}

// trimOpen caps the open set at the beam width, keeping the lowest-f
// entries. The cap trades optimality for bounded memory on long scores.
func (s *searcher) trimOpen() {
	items := []openItem(s.open)
	sort.Slice(items, func(i, j int) bool {
		if items[i].f != items[j].f {
			return items[i].f < items[j].f
		}
		return items[i].arenaIdx < items[j].arenaIdx
	})
	items = items[:s.beamWidth]
	s.open = openHeap(items)
	heap.Init(&s.open)
}

// bbox is an axis-aligned bound over an event's candidate button positions,
// in row/column units. Hand centroids for an event always fall inside its
// box, which is what makes the heuristic a true lower bound.
type bbox struct {
	minRow, maxRow float64
	minCol, maxCol float64
}

func pointBox(row, col float64) bbox {
	return bbox{minRow: row, maxRow: row, minCol: col, maxCol: col}
}

func (b *bbox) extend(row, col int) {
	b.minRow = math.Min(b.minRow, float64(row))
	b.maxRow = math.Max(b.maxRow, float64(row))
	b.minCol = math.Min(b.minCol, float64(col))
	b.maxCol = math.Max(b.maxCol, float64(col))
}

// gap returns the separation between two boxes along each axis, zero when
// they overlap.
func boxGaps(a, b bbox) (rowGap, colGap float64) {
	switch {
	case a.maxRow < b.minRow:
		rowGap = b.minRow - a.maxRow
	case b.maxRow < a.minRow:
		rowGap = a.minRow - b.maxRow
	}
	switch {
	case a.maxCol < b.minCol:
		colGap = b.minCol - a.maxCol
	case b.maxCol < a.minCol:
		colGap = a.minCol - b.maxCol
	}
	return rowGap, colGap
}

// heuristicSuffix precomputes, for each event index, an admissible lower
// bound on the cost of finishing the sequence from there: the cheapest
// physically possible move into each remaining event, summed. Per-event
// bounds use bounding-box separation scaled by every discount that could
// apply, so the true edge cost can never be lower.
func (e *Engine) heuristicSuffix(events []score.Event, start HandGeometry) ([]float64, error) {
	boxes := make([]bbox, len(events)+1)
	boxes[0] = pointBox(start.CentroidRow, start.CentroidCol)

	for i, ev := range events {
		first := true
		for _, n := range ev.Notes {
			candidates, err := e.layout.PositionsFor(n.MIDI)
			if err != nil {
				return nil, err
			}
			for _, pos := range candidates {
				if first {
					boxes[i+1] = pointBox(float64(pos.Row), float64(pos.Column))
					first = false
					continue
				}
				boxes[i+1].extend(pos.Row, pos.Column)
			}
		}
		if first {
			// An event with no notes keeps the hand where it was.
			boxes[i+1] = boxes[i]
		}
	}

	discount := (1 - e.weights.PivotDiscount) * (1 - e.weights.BellowsShiftBonus)
	suffix := make([]float64, len(events)+1)
	for i := len(events) - 1; i >= 0; i-- {
		rowGap, colGap := boxGaps(boxes[i], boxes[i+1])
		move := math.Hypot(colGap*e.layout.Geometry.ColSpacingMM, rowGap*e.layout.Geometry.RowSpacingMM)
		lower := (move*e.weights.DistanceWeight + rowGap*e.weights.RowJumpWeight) * discount
		suffix[i] = lower + suffix[i+1]
	}
	return suffix, nil
}

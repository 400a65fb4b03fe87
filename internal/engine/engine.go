package engine

import (
	"container/heap"
	"context"
	"errors"

	"github.com/akkordio/akkordio/internal/layout"
	"github.com/akkordio/akkordio/internal/score"
)

// Point is a fractional (row, column) location on the keyboard grid.
type Point struct {
	Row float64
	Col float64
}

// Options configures a single solve.
type Options struct {
	// StartBellows is the bellows state before the first event. The zero
	// value (unspecified) is treated as neutral.
	StartBellows score.Bellows

	// RestCentroid overrides the neutral hand position the search starts
	// from. Nil means the physical middle of the layout.
	RestCentroid *Point

	// BeamWidth caps the open set. Zero means unbounded (full A*, optimal);
	// a positive cap bounds memory on long scores at the price of
	// optimality.
	BeamWidth int

	// MaxExpansions bounds the number of node expansions before the search
	// gives up and returns its best partial path. Zero means unbounded.
	MaxExpansions int
}

// Engine assigns fingers to buttons for event sequences on one layout.
// An Engine is read-only after construction and safe for concurrent solves;
// every Solve call owns its open and closed sets exclusively.
type Engine struct {
	layout  *layout.Layout
	weights Weights
	cost    costModel
}

// New builds an engine for the given resolved layout and cost tuning.
func New(lay *layout.Layout, w Weights) *Engine {
	return &Engine{
		layout:  lay,
		weights: w,
		cost:    costModel{w: w, geom: lay.Geometry},
	}
}

// Solve computes a fingering for the full event sequence. It returns the
// optimal solution when the search runs unbounded, a recovered partial
// solution when a budget or cancellation cuts it short, and an error only
// for the two fatal kinds: an unmappable pitch, or exhaustion of every
// branch before the last event.
func (e *Engine) Solve(ctx context.Context, events []score.Event, opts Options) (*Solution, error) {
	if len(events) == 0 {
		return nil, errors.New("engine: empty event sequence")
	}

	// The search addresses events by index; normalize so callers need not
	// pre-number them.
	seq := make([]score.Event, len(events))
	copy(seq, events)
	for i := range seq {
		seq[i].Index = i
	}

	rest := Point{Row: float64(e.layout.Rows) / 2, Col: float64(e.layout.Columns) / 2}
	if opts.RestCentroid != nil {
		rest = *opts.RestCentroid
	}
	startGeom := HandGeometry{CentroidRow: rest.Row, CentroidCol: rest.Col}

	suffix, err := e.heuristicSuffix(seq, startGeom)
	if err != nil {
		return nil, err
	}

	bellows := opts.StartBellows
	if bellows == score.BellowsUnspecified {
		bellows = score.BellowsNeutral
	}

	s := &searcher{
		eng:           e,
		events:        seq,
		closed:        make(map[uint64]closedEntry),
		suffix:        suffix,
		beamWidth:     opts.BeamWidth,
		maxExpansions: opts.MaxExpansions,
		best:          -1,
	}
	root := nodeState{
		geom:     startGeom,
		bellows:  bellows,
		eventIdx: -1,
		parent:   -1,
		h:        suffix[0],
		f:        suffix[0],
	}
	rootIdx := s.arena.add(root)
	heap.Push(&s.open, openItem{arenaIdx: rootIdx, f: root.f})

	goal, outcome := s.run(ctx)

	switch outcome {
	case outcomeSolved:
		sol := e.reconstruct(&s.arena, goal, seq)
		sol.Complete = true
		sol.Optimal = opts.BeamWidth == 0
		return sol, nil

	case outcomeExhausted:
		err := &NoFeasiblePathError{EventCount: len(seq)}
		if s.best >= 0 && s.arena.at(s.best).eventIdx >= 0 {
			err.Partial = e.reconstruct(&s.arena, s.best, seq)
			err.Reached = s.arena.at(s.best).eventIdx + 1
		}
		return nil, err

	default:
		// Budget exceeded or context canceled: recover the best path found
		// so far rather than failing. A goal node may already sit unexpanded
		// in the open set; the path is then complete, though its optimality
		// was never proven.
		sol := &Solution{Algorithm: Algorithm}
		if s.best >= 0 {
			if node := s.arena.at(s.best); node.eventIdx >= 0 {
				sol = e.reconstruct(&s.arena, s.best, seq)
				sol.Complete = node.eventIdx == len(seq)-1
			}
		}
		sol.Optimal = false
		return sol, nil
	}
}

// reconstruct converts an accepted node chain into the external solution by
// walking parent indices back to the root.
func (e *Engine) reconstruct(a *arena, idx int, events []score.Event) *Solution {
	var chain []int
	for i := idx; i >= 0 && a.at(i).eventIdx >= 0; i = a.at(i).parent {
		chain = append(chain, i)
	}
	// chain is goal-to-start; flip it.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	sol := &Solution{
		Algorithm: Algorithm,
		TotalCost: a.at(idx).g,
		Events:    make([]EventAssignments, 0, len(chain)),
	}
	for _, nodeIdx := range chain {
		node := a.at(nodeIdx)
		ev := events[node.eventIdx]
		crossing := crossingFingers(node)

		ea := EventAssignments{
			EventIndex: node.eventIdx,
			Bellows:    node.bellows.String(),
		}
		for _, n := range ev.Notes {
			finger := node.fingerOf(n.MIDI)
			if finger == 0 {
				continue
			}
			ea.Assignments = append(ea.Assignments, Assignment{
				MIDI:     n.MIDI,
				Note:     n.Name,
				Finger:   finger,
				Position: node.fingers[finger-1].Pos,
				Tied:     n.TiedFromPrev,
				Crossing: crossing[finger-1],
			})
		}
		sol.Events = append(sol.Events, ea)
	}
	return sol
}

// crossingFingers flags every finger participating in an inverted pair.
func crossingFingers(n *nodeState) [fingerCount]bool {
	var out [fingerCount]bool
	for i := 0; i < fingerCount; i++ {
		if n.fingers[i].Status == FingerFree {
			continue
		}
		for j := i + 1; j < fingerCount; j++ {
			if n.fingers[j].Status == FingerFree {
				continue
			}
			if n.fingers[i].Pos.Column > n.fingers[j].Pos.Column {
				out[i], out[j] = true, true
			}
		}
	}
	return out
}

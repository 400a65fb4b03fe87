package engine

import (
	"errors"
	"fmt"
)

// ErrNoFeasiblePath is the sentinel matched by errors.Is when the open set
// empties before the last event is reached.
var ErrNoFeasiblePath = errors.New("no feasible fingering path")

// NoFeasiblePathError reports search exhaustion: every branch was pruned by
// the physical filters before the sequence completed. Partial carries the
// furthest-progressed path, when one exists, so callers can still show how
// far the hand got.
type NoFeasiblePathError struct {
	EventCount int
	Reached    int // events accounted for by the furthest branch
	Partial    *Solution
}

func (e *NoFeasiblePathError) Error() string {
	return fmt.Sprintf("no feasible fingering path: reached event %d of %d", e.Reached, e.EventCount)
}

func (e *NoFeasiblePathError) Unwrap() error { return ErrNoFeasiblePath }

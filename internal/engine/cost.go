package engine

import (
	"math"

	"github.com/akkordio/akkordio/internal/layout"
	"github.com/akkordio/akkordio/internal/score"
)

// costModel evaluates transitions between hand configurations. All methods
// are pure functions of their inputs and safe to call from multiple search
// branches.
type costModel struct {
	w    Weights
	geom layout.Geometry
}

// distanceMM is the Euclidean distance between two hand centroids, with row
// and column deltas scaled by the layout's physical spacing.
func (c *costModel) distanceMM(a, b HandGeometry) float64 {
	dy := (a.CentroidRow - b.CentroidRow) * c.geom.RowSpacingMM
	dx := (a.CentroidCol - b.CentroidCol) * c.geom.ColSpacingMM
	return math.Hypot(dx, dy)
}

// isGeometricInversion reports whether any lower-index finger sits at a
// strictly higher column than a higher-index finger.
func (c *costModel) isGeometricInversion(n *nodeState) bool {
	return c.crossingSeverity(n) > 0
}

// crossingSeverity sums the column gap over every inverted finger pair.
func (c *costModel) crossingSeverity(n *nodeState) float64 {
	var severity float64
	for i := 0; i < fingerCount; i++ {
		if n.fingers[i].Status == FingerFree {
			continue
		}
		for j := i + 1; j < fingerCount; j++ {
			if n.fingers[j].Status == FingerFree {
				continue
			}
			if gap := n.fingers[i].Pos.Column - n.fingers[j].Pos.Column; gap > 0 {
				severity += float64(gap)
			}
		}
	}
	return severity
}

// isInversionImpossible reports an anatomically unreachable crossing: an
// inverted pair whose column or row magnitude exceeds the hard limit. Used
// as a pruning filter, never as a soft penalty.
func (c *costModel) isInversionImpossible(n *nodeState) bool {
	for i := 0; i < fingerCount; i++ {
		if n.fingers[i].Status == FingerFree {
			continue
		}
		for j := i + 1; j < fingerCount; j++ {
			if n.fingers[j].Status == FingerFree {
				continue
			}
			colGap := n.fingers[i].Pos.Column - n.fingers[j].Pos.Column
			if colGap <= 0 {
				continue
			}
			rowGap := n.fingers[i].Pos.Row - n.fingers[j].Pos.Row
			if rowGap < 0 {
				rowGap = -rowGap
			}
			if colGap > c.w.MaxInversionCols || rowGap > c.w.MaxInversionRows {
				return true
			}
		}
	}
	return false
}

// edgeCost scores the transition from prev to next for the given event.
// Evaluation order is fixed: additive terms, then penalties, then the pivot
// discount on the additive part, then the bellows-shift discount, clamped
// to be non-negative.
func (c *costModel) edgeCost(prev, next *nodeState, ev score.Event) float64 {
	rowDelta := math.Abs(next.geom.CentroidRow - prev.geom.CentroidRow)
	additive := c.distanceMM(prev.geom, next.geom)*c.w.DistanceWeight +
		rowDelta*c.w.RowJumpWeight

	var penalty float64
	if severity := c.crossingSeverity(next); severity > 0 {
		penalty += severity * c.w.CrossingPenalty
	}
	if ev.Downbeat {
		for i := range next.fingers {
			if next.fingers[i].Status == FingerPressing && weakFinger(i+1) {
				penalty += c.w.WeakFingerPenalty
			}
		}
	}

	if hasPivot(prev, next) {
		additive *= 1 - c.w.PivotDiscount
	}
	if bellowsShift(prev.bellows, ev.Bellows) {
		additive *= 1 - c.w.BellowsShiftBonus
	}

	total := additive + penalty
	if total < 0 {
		return 0
	}
	return total
}

// hasPivot reports whether any finger stays on the same button across the
// transition, in either a pressing or holding state on both sides.
func hasPivot(prev, next *nodeState) bool {
	for i := 0; i < fingerCount; i++ {
		if prev.fingers[i].Status == FingerFree || next.fingers[i].Status == FingerFree {
			continue
		}
		if prev.fingers[i].Pos == next.fingers[i].Pos {
			return true
		}
	}
	return false
}

// bellowsShift reports whether the event demands an air-direction reversal
// relative to the node's current bellows state. Unspecified hints never
// trigger the discount.
func bellowsShift(current score.Bellows, hint score.Bellows) bool {
	if hint != score.BellowsPush && hint != score.BellowsPull {
		return false
	}
	return hint != current
}

package engine

// Weights holds every tunable of the cost model and the hard physical
// limits. It is passed explicitly to the engine rather than living in
// package globals, so concurrent solves with different tunings never
// interfere.
type Weights struct {
	// Additive terms.
	DistanceWeight float64 `json:"distance_weight"`
	RowJumpWeight  float64 `json:"row_jump_weight"`

	// Penalty terms.
	CrossingPenalty   float64 `json:"crossing_penalty"`
	WeakFingerPenalty float64 `json:"weak_finger_penalty"`

	// Multiplicative discounts, as fractions removed from the additive cost.
	PivotDiscount     float64 `json:"pivot_discount"`
	BellowsShiftBonus float64 `json:"bellows_shift_bonus"`

	// Hard physical limits.
	MaxHandSpanMM    float64 `json:"max_hand_span_mm"`
	MaxInversionCols int     `json:"max_inversion_cols"`
	MaxInversionRows int     `json:"max_inversion_rows"`
}

// DefaultWeights returns the stock tuning, calibrated for C-system
// treble keyboards.
func DefaultWeights() Weights {
	return Weights{
		DistanceWeight:    1.0,
		RowJumpWeight:     2.0,
		CrossingPenalty:   8.0,
		WeakFingerPenalty: 3.0,
		PivotDiscount:     0.5,
		BellowsShiftBonus: 0.2,
		MaxHandSpanMM:     110,
		MaxInversionCols:  2,
		MaxInversionRows:  2,
	}
}

// weakFinger reports whether a finger index (1-5) is penalized on downbeats.
// The ring finger and pinky carry the penalty.
func weakFinger(finger int) bool {
	return finger >= 4
}

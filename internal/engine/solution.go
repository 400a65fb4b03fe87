package engine

import "github.com/akkordio/akkordio/internal/layout"

// Algorithm identifies the search implementation in emitted solutions.
const Algorithm = "astar-fingering-v1"

// Assignment binds one pitch of an event to a finger and button.
type Assignment struct {
	MIDI     int             `json:"midi"`
	Note     string          `json:"note"`
	Finger   int             `json:"finger"`
	Position layout.Position `json:"position"`
	Tied     bool            `json:"tied,omitempty"`
	Crossing bool            `json:"crossing,omitempty"`
}

// EventAssignments is the accepted fingering for one event.
type EventAssignments struct {
	EventIndex  int          `json:"event"`
	Assignments []Assignment `json:"assignments"`
	Bellows     string       `json:"bellows,omitempty"`
}

// Solution is the externally visible result of a solve, ready for JSON
// serialization. Complete is false when the engine returned a recovered
// partial path; Optimal is false whenever optimality cannot be guaranteed
// (beam cap in effect, or a partial result).
type Solution struct {
	Events    []EventAssignments `json:"events"`
	TotalCost float64            `json:"total_cost"`
	Algorithm string             `json:"algorithm"`
	Complete  bool               `json:"complete"`
	Optimal   bool               `json:"optimal"`
}

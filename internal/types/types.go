// Package types provides shared types, interfaces, and errors for the application.
package types

// Box is an axis-aligned rectangle in page-pixel coordinates, relative to the
// viewport. A Box is a snapshot of current layout: it stays valid only until
// the next DOM mutation, so callers that perform more than one action against
// the same element must re-query instead of reusing an old box.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of the box.
func (b Box) Center() (x, y float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Empty reports whether the box has no rendered area.
func (b Box) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Outcome is the three-valued result of a solve attempt. It distinguishes
// "nothing to act on" from "acted but could not verify the defense cleared",
// so the orchestrator can make informed retry decisions.
type Outcome int

const (
	// OutcomeNotFound means no challenge element was present or visible.
	// This is an expected negative, not a failure.
	OutcomeNotFound Outcome = iota
	// OutcomeActedUnverified means the physical action completed but there
	// was no feedback loop confirming the challenge cleared.
	OutcomeActedUnverified
	// OutcomeSolved means the action completed and a re-check confirmed the
	// challenge is no longer present.
	OutcomeSolved
)

// Acted reports whether any physical action was performed.
func (o Outcome) Acted() bool {
	return o == OutcomeActedUnverified || o == OutcomeSolved
}

func (o Outcome) String() string {
	switch o {
	case OutcomeNotFound:
		return "not_found"
	case OutcomeActedUnverified:
		return "acted_unverified"
	case OutcomeSolved:
		return "solved"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the outcome as its string form in reports.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return []byte(`"` + o.String() + `"`), nil
}

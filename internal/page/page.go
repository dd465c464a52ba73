// Package page defines the page-state handle the challenge engine operates
// on, plus its rod-backed implementation. The engine never owns page
// lifecycle; it borrows a Handle per invocation and drives it strictly
// sequentially.
package page

import (
	"context"
	"time"

	"github.com/ysmood/gson"

	"github.com/pricelens/pricelens/internal/types"
)

// Mode selects how a selector is resolved.
type Mode string

const (
	// ModeDirect queries the top-level document.
	ModeDirect Mode = "direct"
	// ModeIframe queries inside each child iframe until a match is found.
	ModeIframe Mode = "iframe"
	// ModeShadowProbe runs a DOM script that matches elements by selector and
	// geometry heuristics, for targets unreachable through ordinary queries.
	ModeShadowProbe Mode = "shadow-probe"
)

// Handle is the capability surface the engine consumes: DOM queries, pointer
// and keyboard primitives, script evaluation, and a navigation-wait signal.
// Implementations must treat every per-call failure as a negative result
// rather than propagate page-level errors, matching the engine's
// degrade-to-not-found policy.
type Handle interface {
	// Title returns the current document title.
	Title() (string, error)
	// URL returns the current document URL.
	URL() (string, error)
	// HTML returns the current document markup.
	HTML() (string, error)

	// QueryVisible finds the first visible element matching the selector in
	// the given mode and returns its bounding box. Visibility requires a
	// non-zero rendered size in an attached render tree. The boolean is false
	// when nothing matched; that is an expected negative, never an error.
	QueryVisible(selector string, mode Mode) (types.Box, bool)
	// Count returns how many elements match the selector (visible or not).
	Count(selector string) int
	// TextVisible reports whether the rendered page text contains the phrase.
	TextVisible(text string) bool
	// TextBox returns the bounding box of the most specific visible element
	// whose own text contains the phrase.
	TextBox(text string) (types.Box, bool)

	// Eval runs a script in the page and returns its value.
	Eval(js string) (gson.JSON, error)

	// Pointer primitives. Coordinates are viewport pixels.
	PointerMove(x, y float64) error
	PointerDown() error
	PointerUp() error
	PointerClick(x, y float64) error

	// Keyboard primitives used by the widget keyboard fallback.
	PressTab() error
	PressSpace() error

	// WaitLoadSignal blocks until the page reports a load event or the
	// timeout elapses. A timeout means "no observable effect", not failure.
	WaitLoadSignal(ctx context.Context, timeout time.Duration) error
}

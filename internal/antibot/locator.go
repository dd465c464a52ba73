// Package antibot detects and resolves interactive anti-automation defenses
// on a live page: managed challenge interstitials, checkbox gates,
// press-and-hold buttons, drag sliders and puzzle sliders. Detection and
// solving are separate passes so callers can observe without acting.
package antibot

import (
	"github.com/pricelens/pricelens/internal/page"
	"github.com/pricelens/pricelens/internal/selectors"
	"github.com/pricelens/pricelens/internal/types"
)

// locateMode maps a strategy's declared mode onto a page query mode.
// Unrecognized values fall back to a direct document query.
func locateMode(mode string) page.Mode {
	switch mode {
	case string(page.ModeIframe):
		return page.ModeIframe
	case string(page.ModeShadowProbe):
		return page.ModeShadowProbe
	default:
		return page.ModeDirect
	}
}

// locate evaluates a strategy chain in order and returns the box of the first
// visible match. Evaluation is first-match-wins: later strategies are not
// consulted once one resolves, and a failing strategy simply yields to the
// next. Locating performs no page mutations.
func locate(h page.Handle, chain []selectors.Strategy) (types.Box, bool) {
	for _, strategy := range chain {
		if strategy.Matcher == "" {
			continue
		}
		if box, ok := h.QueryVisible(strategy.Matcher, locateMode(strategy.Mode)); ok {
			return box, true
		}
	}
	return types.Box{}, false
}

// locateAny evaluates a plain selector list in direct mode, first-match-wins.
func locateAny(h page.Handle, sels []string) (types.Box, bool) {
	for _, sel := range sels {
		if sel == "" {
			continue
		}
		if box, ok := h.QueryVisible(sel, page.ModeDirect); ok {
			return box, true
		}
	}
	return types.Box{}, false
}

// Package consent dismisses the overlays that sit between page load and a
// clean capture: cookie/GDPR banners and generic marketing modals. Dismissal
// is best-effort; a banner that survives every strategy is logged and left.
package consent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/pricelens/pricelens/internal/humanize"
	"github.com/pricelens/pricelens/internal/page"
	"github.com/pricelens/pricelens/internal/selectors"
	"github.com/pricelens/pricelens/internal/types"
)

// Dismisser drives banner and modal dismissal against one page handle.
type Dismisser struct {
	h      page.Handle
	motion *humanize.Motion
	sel    *selectors.Selectors
	delay  humanize.DelayFunc
}

// NewDismisser creates a dismisser with the embedded tables and production
// timing.
func NewDismisser(h page.Handle) *Dismisser {
	return NewDismisserWith(h, selectors.Get(), humanize.RandomDuration)
}

// NewDismisserWith creates a dismisser with explicit tables and timing.
func NewDismisserWith(h page.Handle, sel *selectors.Selectors, delay humanize.DelayFunc) *Dismisser {
	if delay == nil {
		delay = humanize.RandomDuration
	}
	return &Dismisser{
		h:      h,
		motion: humanize.NewMotionWith(h, humanize.DefaultMotionConfig(), delay),
		sel:    sel,
		delay:  delay,
	}
}

// BannerVisible reports whether a cookie consent surface is currently shown.
func (d *Dismisser) BannerVisible() bool {
	for _, sel := range d.sel.CookieContainers {
		if _, ok := d.h.QueryVisible(sel, page.ModeDirect); ok {
			return true
		}
	}
	return false
}

// AcceptCookies dismisses a cookie banner by accepting. Consent-platform
// buttons are tried first; when none match, visible buttons are collected and
// matched by text. Reports OutcomeSolved when the banner verifiably
// disappears after the click.
func (d *Dismisser) AcceptCookies(ctx context.Context) types.Outcome {
	if !d.BannerVisible() {
		return types.OutcomeNotFound
	}

	acted := false
	for _, strategy := range d.sel.CookieAcceptChain {
		box, ok := d.h.QueryVisible(strategy.Matcher, page.ModeDirect)
		if !ok {
			continue
		}
		if err := d.motion.ClickBox(ctx, box); err != nil {
			log.Debug().Err(err).Str("matcher", strategy.Matcher).Msg("Cookie accept click failed")
			continue
		}
		acted = true
		break
	}

	if !acted {
		acted = d.acceptByText(ctx)
	}
	if !acted {
		log.Debug().Msg("Cookie banner present but no accept control matched")
		return types.OutcomeNotFound
	}

	humanize.SleepWithContext(ctx, d.delay(500, 1000))
	if !d.BannerVisible() {
		log.Debug().Msg("Cookie banner dismissed")
		return types.OutcomeSolved
	}
	return types.OutcomeActedUnverified
}

// clickable is one visible button-like element reported by the page probe.
type clickable struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// acceptByText collects the visible button-like elements and clicks the first
// whose text passes the accept allow-list and deny-list. The deny-list keeps
// the dismisser off links like "cookie policy" or "manage settings" that sit
// next to the accept button and navigate away or open preference dialogs.
func (d *Dismisser) acceptByText(ctx context.Context) bool {
	candidates, err := d.collectClickables()
	if err != nil {
		log.Debug().Err(err).Msg("Failed to collect clickable elements")
		return false
	}

	for _, c := range candidates {
		if !MatchesAcceptText(c.Text, d.sel.CookieAcceptTexts, d.sel.CookieDenyTexts) {
			continue
		}
		box := types.Box{X: c.X, Y: c.Y, Width: c.Width, Height: c.Height}
		if err := d.motion.ClickBox(ctx, box); err != nil {
			log.Debug().Err(err).Str("text", c.Text).Msg("Text-matched accept click failed")
			continue
		}
		log.Debug().Str("text", c.Text).Msg("Accepted cookies via button text")
		return true
	}
	return false
}

// collectClickables returns every visible button, link and button-role
// element with its trimmed text and geometry.
func (d *Dismisser) collectClickables() ([]clickable, error) {
	result, err := d.h.Eval(`(function() {
		var out = [];
		var els = document.querySelectorAll('button, a, [role="button"], input[type="button"], input[type="submit"]');
		for (var i = 0; i < els.length && out.length < 200; i++) {
			var el = els[i];
			if (el.offsetParent === null) continue;
			var rect = el.getBoundingClientRect();
			if (rect.width <= 0 || rect.height <= 0) continue;
			var text = (el.innerText || el.value || '').trim();
			if (!text || text.length > 80) continue;
			out.push({ text: text, x: rect.x, y: rect.y, width: rect.width, height: rect.height });
		}
		return out;
	})()`)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(result.Val())
	if err != nil {
		return nil, err
	}
	var out []clickable
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MatchesAcceptText reports whether a button label is a safe accept target:
// it must contain one of the accept phrases and none of the deny phrases.
// Matching is case-insensitive on the trimmed label.
func MatchesAcceptText(label string, acceptTexts, denyTexts []string) bool {
	lower := strings.ToLower(strings.TrimSpace(label))
	if lower == "" {
		return false
	}
	for _, deny := range denyTexts {
		if strings.Contains(lower, deny) {
			return false
		}
	}
	for _, accept := range acceptTexts {
		if strings.Contains(lower, accept) {
			return true
		}
	}
	return false
}

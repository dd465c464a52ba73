package antibot

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/pricelens/pricelens/internal/page"
	"github.com/pricelens/pricelens/internal/selectors"
)

// Detection is a fresh snapshot of every defense class observed on the page.
// Flags are independent: a managed interstitial usually sets Cloudflare and
// Turnstile together, and a page can carry a cookie wall plus a slider at
// once. Blocked means a hard denial page with nothing to solve.
type Detection struct {
	Cloudflare  bool `json:"cloudflare"`
	Turnstile   bool `json:"turnstile"`
	Recaptcha   bool `json:"recaptcha"`
	HCaptcha    bool `json:"hcaptcha"`
	HumanVerify bool `json:"humanVerify"`
	Slider      bool `json:"slider"`
	PressHold   bool `json:"pressHold"`
	Checkbox    bool `json:"checkbox"`
	Blocked     bool `json:"blocked"`
}

// Any reports whether at least one solvable defense was observed.
func (d Detection) Any() bool {
	return d.Cloudflare || d.Turnstile || d.Recaptcha || d.HCaptcha ||
		d.HumanVerify || d.Slider || d.PressHold || d.Checkbox
}

// Classify inspects the page and returns a fresh Detection. Nothing is
// cached: challenge state changes under navigation and widget callbacks, so
// every decision point re-runs the probes it needs.
func Classify(h page.Handle, sel *selectors.Selectors) Detection {
	var det Detection

	title, err := h.Title()
	if err == nil {
		lower := strings.ToLower(title)
		for _, t := range sel.ChallengeTitles {
			if strings.Contains(lower, t) {
				// The interstitial hosts its own widget.
				det.Cloudflare = true
				det.Turnstile = true
				break
			}
		}
		for _, t := range sel.BlockedTitles {
			if strings.Contains(lower, t) {
				det.Blocked = true
				break
			}
		}
	}

	// Managed interstitial markers in the top document.
	if !det.Cloudflare {
		if _, ok := locateAny(h, sel.ChallengeMarkers); ok {
			det.Cloudflare = true
		}
	}
	// A challenge-host iframe is both the interstitial and the widget it
	// embeds.
	if h.Count(sel.ChallengeFrame) > 0 {
		det.Cloudflare = true
		det.Turnstile = true
	}
	if !det.Cloudflare && h.Count(sel.ChallengeScript) > 0 {
		det.Cloudflare = true
	}

	// Embedded widget: either a dedicated widget iframe or host-page markers.
	if h.Count(sel.WidgetFrameBySrc) > 0 || h.Count(sel.WidgetFrameByID) > 0 ||
		h.Count(sel.WidgetMarkers) > 0 || h.Count(sel.ResponseInput) > 0 {
		det.Turnstile = true
	}

	if h.Count(sel.RecaptchaFrame) > 0 {
		det.Recaptcha = true
	}
	if h.Count(sel.HcaptchaFrame) > 0 {
		det.HCaptcha = true
	}

	if h.TextVisible(sel.VerifyText) {
		det.HumanVerify = true
	}

	// Interactive widgets embedded in the page itself. Location only, no
	// side effects.
	if _, ok := locate(h, sel.SliderTrackChain); ok {
		det.Slider = true
	}
	if _, ok := locate(h, sel.PressHoldChain); ok {
		det.PressHold = true
	}
	if _, ok := locate(h, sel.CheckboxChain); ok {
		det.Checkbox = true
	}

	log.Debug().
		Bool("cloudflare", det.Cloudflare).
		Bool("turnstile", det.Turnstile).
		Bool("recaptcha", det.Recaptcha).
		Bool("hcaptcha", det.HCaptcha).
		Bool("human_verify", det.HumanVerify).
		Bool("slider", det.Slider).
		Bool("press_hold", det.PressHold).
		Bool("checkbox", det.Checkbox).
		Bool("blocked", det.Blocked).
		Msg("Page classified")

	return det
}

package page

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
	"github.com/ysmood/gson"

	"github.com/pricelens/pricelens/internal/types"
)

// maxIframesToCheck bounds iframe-mode queries to prevent resource exhaustion
// on pages stuffed with ad frames.
const maxIframesToCheck = 20

// Rod adapts a rod page to the Handle interface. All query failures degrade
// to negative results; pointer and keyboard errors are returned as-is so the
// motion simulator can recover (e.g. release a held button).
type Rod struct {
	page    *rod.Page
	timeout time.Duration
}

// NewRod wraps a rod page with the default per-query timeout.
func NewRod(p *rod.Page) *Rod {
	return &Rod{page: p, timeout: 5 * time.Second}
}

// WithTimeout sets the per-query timeout used for element resolution.
func (r *Rod) WithTimeout(d time.Duration) *Rod {
	r.timeout = d
	return r
}

// Page exposes the underlying rod page for outer layers (capture, runner)
// that need operations beyond the engine's handle surface.
func (r *Rod) Page() *rod.Page { return r.page }

// Title returns the current document title.
func (r *Rod) Title() (string, error) {
	info, err := r.page.Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

// URL returns the current document URL.
func (r *Rod) URL() (string, error) {
	info, err := r.page.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// HTML returns the current document markup.
func (r *Rod) HTML() (string, error) {
	return r.page.HTML()
}

// QueryVisible finds the first visible match for the selector in the given
// mode and returns its bounding box.
func (r *Rod) QueryVisible(selector string, mode Mode) (types.Box, bool) {
	switch mode {
	case ModeIframe:
		return r.queryIframes(selector)
	case ModeShadowProbe:
		return r.shadowProbe(selector)
	default:
		return r.queryIn(r.page, selector)
	}
}

// queryIn resolves a selector inside one document and returns the box of the
// first visible match. Any error counts as not-found so one bad selector
// never aborts a whole strategy chain.
func (r *Rod) queryIn(p *rod.Page, selector string) (types.Box, bool) {
	has, el, err := p.Timeout(r.timeout).Has(selector)
	if err != nil || !has || el == nil {
		return types.Box{}, false
	}
	defer func() {
		if err := el.Release(); err != nil {
			log.Debug().Err(err).Msg("Failed to release queried element")
		}
	}()

	visible, err := el.Visible()
	if err != nil || !visible {
		return types.Box{}, false
	}

	box, ok := elementBox(el, r.timeout)
	if !ok || box.Empty() {
		return types.Box{}, false
	}
	return box, true
}

// queryIframes resolves the selector inside each child iframe in document
// order, returning the first visible match.
func (r *Rod) queryIframes(selector string) (types.Box, bool) {
	iframes, err := r.page.Elements("iframe")
	if err != nil {
		return types.Box{}, false
	}
	defer func() {
		for _, iframe := range iframes {
			_ = iframe.Release()
		}
	}()

	if len(iframes) > maxIframesToCheck {
		log.Debug().Int("total", len(iframes)).Int("checking", maxIframesToCheck).
			Msg("Limiting iframe query count")
		iframes = iframes[:maxIframesToCheck]
	}

	for _, iframe := range iframes {
		frame, err := iframe.Frame()
		if err != nil {
			continue
		}
		if box, ok := r.queryIn(frame, selector); ok {
			return box, true
		}
	}
	return types.Box{}, false
}

// shadowProbe runs a DOM script that matches the selector and returns the
// geometry of the first visible hit, preferring an interactive child
// (button/handle) when one exists. Used when the real node is unreachable
// through ordinary structural queries.
func (r *Rod) shadowProbe(selector string) (types.Box, bool) {
	selJSON, err := json.Marshal(selector)
	if err != nil {
		return types.Box{}, false
	}

	result, err := r.Eval(fmt.Sprintf(`(function() {
		var candidates;
		try {
			candidates = document.querySelectorAll(%s);
		} catch (e) {
			return { found: false };
		}
		for (var i = 0; i < candidates.length; i++) {
			var el = candidates[i];
			var inner = el.querySelector('button, [class*="btn"], [class*="arrow"], [role="slider"], [role="checkbox"]');
			var target = (inner && inner.offsetParent !== null) ? inner : el;
			if (target.offsetParent === null) continue;
			var rect = target.getBoundingClientRect();
			if (rect.width > 0 && rect.height > 0) {
				return { found: true, x: rect.x, y: rect.y, width: rect.width, height: rect.height };
			}
		}
		return { found: false };
	})()`, selJSON))
	if err != nil {
		return types.Box{}, false
	}
	return boxFromJSON(result)
}

// Count returns how many elements match the selector.
func (r *Rod) Count(selector string) int {
	els, err := r.page.Elements(selector)
	if err != nil {
		return 0
	}
	defer func() {
		for _, el := range els {
			_ = el.Release()
		}
	}()
	return len(els)
}

// TextVisible reports whether the rendered page text contains the phrase.
// innerText only includes text in the render tree, so markup-only matches
// do not count.
func (r *Rod) TextVisible(text string) bool {
	textJSON, err := json.Marshal(text)
	if err != nil {
		return false
	}
	result, err := r.Eval(fmt.Sprintf(
		`document.body ? document.body.innerText.indexOf(%s) !== -1 : false`, textJSON))
	if err != nil {
		return false
	}
	return result.Bool()
}

// TextBox returns the bounding box of the smallest visible element whose text
// contains the phrase.
func (r *Rod) TextBox(text string) (types.Box, bool) {
	textJSON, err := json.Marshal(text)
	if err != nil {
		return types.Box{}, false
	}

	result, err := r.Eval(fmt.Sprintf(`(function() {
		var phrase = %s;
		var best = null, bestArea = Infinity;
		var all = document.querySelectorAll('body *');
		for (var i = 0; i < all.length; i++) {
			var el = all[i];
			if (el.offsetParent === null) continue;
			if ((el.innerText || '').indexOf(phrase) === -1) continue;
			var rect = el.getBoundingClientRect();
			if (rect.width <= 0 || rect.height <= 0) continue;
			var area = rect.width * rect.height;
			if (area < bestArea) { bestArea = area; best = rect; }
		}
		if (!best) return { found: false };
		return { found: true, x: best.x, y: best.y, width: best.width, height: best.height };
	})()`, textJSON))
	if err != nil {
		return types.Box{}, false
	}
	return boxFromJSON(result)
}

// Eval runs a script in the page. A thrown exception degrades to
// ErrScriptEvaluation so callers can treat it as a failed probe rather than
// a page failure.
func (r *Rod) Eval(js string) (gson.JSON, error) {
	result, err := proto.RuntimeEvaluate{
		Expression:    js,
		ReturnByValue: true,
	}.Call(r.page)
	if err != nil {
		return gson.JSON{}, err
	}
	if result.ExceptionDetails != nil {
		return gson.JSON{}, fmt.Errorf("%w: %s", types.ErrScriptEvaluation, result.ExceptionDetails.Text)
	}
	return result.Result.Value, nil
}

// PointerMove moves the pointer to viewport coordinates.
func (r *Rod) PointerMove(x, y float64) error {
	return r.page.Mouse.MoveTo(proto.NewPoint(x, y))
}

// PointerDown presses the left button at the current position.
func (r *Rod) PointerDown() error {
	return r.page.Mouse.Down(proto.InputMouseButtonLeft, 1)
}

// PointerUp releases the left button.
func (r *Rod) PointerUp() error {
	return r.page.Mouse.Up(proto.InputMouseButtonLeft, 1)
}

// PointerClick moves to the coordinates and clicks.
func (r *Rod) PointerClick(x, y float64) error {
	if err := r.page.Mouse.MoveTo(proto.NewPoint(x, y)); err != nil {
		return err
	}
	return r.page.Mouse.Click(proto.InputMouseButtonLeft, 1)
}

// PressTab sends a Tab key press.
func (r *Rod) PressTab() error {
	return r.page.Keyboard.Press(input.Tab)
}

// PressSpace sends a Space key press.
func (r *Rod) PressSpace() error {
	return r.page.Keyboard.Press(input.Space)
}

// WaitLoadSignal blocks until the page load event or the timeout.
func (r *Rod) WaitLoadSignal(ctx context.Context, timeout time.Duration) error {
	return r.page.Context(ctx).Timeout(timeout).WaitLoad()
}

// elementBox computes the axis-aligned bounding box of an element from its
// content quads.
func elementBox(el *rod.Element, timeout time.Duration) (types.Box, bool) {
	shape, err := el.Timeout(timeout).Shape()
	if err != nil || shape == nil || len(shape.Quads) == 0 {
		return types.Box{}, false
	}

	// Quad format: [x1, y1, x2, y2, x3, y3, x4, y4] for the four corners.
	quad := shape.Quads[0]
	if len(quad) < 8 {
		return types.Box{}, false
	}

	minX, minY := quad[0], quad[1]
	maxX, maxY := quad[0], quad[1]
	for i := 2; i < 8; i += 2 {
		if quad[i] < minX {
			minX = quad[i]
		}
		if quad[i] > maxX {
			maxX = quad[i]
		}
		if quad[i+1] < minY {
			minY = quad[i+1]
		}
		if quad[i+1] > maxY {
			maxY = quad[i+1]
		}
	}

	return types.Box{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// boxFromJSON decodes a { found, x, y, width, height } probe result.
func boxFromJSON(v gson.JSON) (types.Box, bool) {
	if !v.Get("found").Bool() {
		return types.Box{}, false
	}
	return types.Box{
		X:      v.Get("x").Num(),
		Y:      v.Get("y").Num(),
		Width:  v.Get("width").Num(),
		Height: v.Get("height").Num(),
	}, true
}

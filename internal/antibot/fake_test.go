package antibot

import (
	"context"
	"time"

	"github.com/ysmood/gson"

	"github.com/pricelens/pricelens/internal/page"
	"github.com/pricelens/pricelens/internal/types"
)

// fakeHandle is a scripted page.Handle. Element geometry is keyed by
// selector and mode; pointer activity is recorded for assertions. The onClick
// and onUp hooks let tests mutate page state mid-solve, the way a real page
// reacts to input.
type fakeHandle struct {
	title  string
	boxes  map[string]types.Box
	counts map[string]int
	texts  map[string]bool
	tboxes map[string]types.Box
	evalFn func(js string) (gson.JSON, error)

	queries  []string
	moves    []fakePoint
	clicks   []fakePoint
	downs    int
	ups      int
	dragEnds []float64
	tabs     int
	spaces   int

	onClick func(h *fakeHandle, n int)
	onUp    func(h *fakeHandle, n int)
}

type fakePoint struct{ x, y float64 }

func newFakeHandle() *fakeHandle {
	return &fakeHandle{
		title:  "Product Page",
		boxes:  map[string]types.Box{},
		counts: map[string]int{},
		texts:  map[string]bool{},
		tboxes: map[string]types.Box{},
	}
}

func qkey(selector string, mode page.Mode) string {
	return selector + "|" + string(mode)
}

func (f *fakeHandle) setBox(selector string, mode page.Mode, box types.Box) {
	f.boxes[qkey(selector, mode)] = box
}

func (f *fakeHandle) Title() (string, error) { return f.title, nil }
func (f *fakeHandle) URL() (string, error)   { return "https://shop.example.com/item", nil }
func (f *fakeHandle) HTML() (string, error)  { return "<html></html>", nil }

func (f *fakeHandle) QueryVisible(selector string, mode page.Mode) (types.Box, bool) {
	k := qkey(selector, mode)
	f.queries = append(f.queries, k)
	box, ok := f.boxes[k]
	return box, ok
}

func (f *fakeHandle) Count(selector string) int { return f.counts[selector] }

func (f *fakeHandle) TextVisible(text string) bool { return f.texts[text] }

func (f *fakeHandle) TextBox(text string) (types.Box, bool) {
	box, ok := f.tboxes[text]
	return box, ok
}

func (f *fakeHandle) Eval(js string) (gson.JSON, error) {
	if f.evalFn != nil {
		return f.evalFn(js)
	}
	return gson.New(false), nil
}

func (f *fakeHandle) PointerMove(x, y float64) error {
	f.moves = append(f.moves, fakePoint{x, y})
	return nil
}

func (f *fakeHandle) PointerDown() error { f.downs++; return nil }

func (f *fakeHandle) PointerUp() error {
	f.ups++
	if len(f.moves) > 0 {
		f.dragEnds = append(f.dragEnds, f.moves[len(f.moves)-1].x)
	}
	if f.onUp != nil {
		f.onUp(f, f.ups)
	}
	return nil
}

func (f *fakeHandle) PointerClick(x, y float64) error {
	f.clicks = append(f.clicks, fakePoint{x, y})
	if f.onClick != nil {
		f.onClick(f, len(f.clicks))
	}
	return nil
}

func (f *fakeHandle) PressTab() error   { f.tabs++; return nil }
func (f *fakeHandle) PressSpace() error { f.spaces++; return nil }

func (f *fakeHandle) WaitLoadSignal(context.Context, time.Duration) error { return nil }

package page

import (
	"testing"

	"github.com/ysmood/gson"
)

func TestBoxFromJSON(t *testing.T) {
	v := gson.New(map[string]any{
		"found": true, "x": 120.5, "y": 340.0, "width": 280.0, "height": 64.0,
	})
	box, ok := boxFromJSON(v)
	if !ok {
		t.Fatal("Expected found box")
	}
	if box.X != 120.5 || box.Y != 340 || box.Width != 280 || box.Height != 64 {
		t.Errorf("Box = %+v", box)
	}
}

func TestBoxFromJSONNotFound(t *testing.T) {
	if _, ok := boxFromJSON(gson.New(map[string]any{"found": false})); ok {
		t.Error("found=false must not yield a box")
	}
	if _, ok := boxFromJSON(gson.New(nil)); ok {
		t.Error("nil probe result must not yield a box")
	}
}

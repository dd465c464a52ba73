package antibot

import (
	"context"
	"testing"

	"github.com/pricelens/pricelens/internal/page"
	"github.com/pricelens/pricelens/internal/selectors"
	"github.com/pricelens/pricelens/internal/types"
)

func stageNames(r Report) []string {
	names := make([]string, len(r.Stages))
	for i, s := range r.Stages {
		names[i] = s.Stage
	}
	return names
}

func TestAutoSolveCleanPage(t *testing.T) {
	h := newFakeHandle()
	report := testEngine(h).AutoSolve(context.Background())

	if report.Detection.Any() || report.Acted || len(report.Stages) != 0 {
		t.Errorf("Clean page produced report %+v", report)
	}
}

func TestAutoSolveBlockedRunsNothing(t *testing.T) {
	h := newFakeHandle()
	h.title = "Access denied"

	report := testEngine(h).AutoSolve(context.Background())
	if !report.Detection.Blocked {
		t.Fatal("Expected Blocked detection")
	}
	if len(report.Stages) != 0 || report.Acted {
		t.Errorf("Blocked page must not be acted on, got stages %v", stageNames(report))
	}
}

func TestAutoSolveManagedChallengeShortCircuits(t *testing.T) {
	sel := selectors.Get()
	h := newFakeHandle()
	h.title = "Just a moment..."
	h.counts[sel.WidgetFrameBySrc] = 1
	h.setBox(sel.WidgetFrameBySrc, page.ModeDirect, types.Box{X: 300, Y: 300, Width: 300, Height: 65})
	// A bot checkbox is also present; the short-circuit must keep it untouched.
	h.setBox(sel.CheckboxChain[0].Matcher, page.ModeDirect, types.Box{X: 10, Y: 10, Width: 20, Height: 20})

	// The widget click verifies: interstitial navigates to the product page.
	h.onClick = func(h *fakeHandle, n int) {
		h.title = "Product Page"
		h.counts[sel.WidgetFrameBySrc] = 0
	}

	report := testEngine(h).AutoSolve(context.Background())
	if !report.Solved {
		t.Fatal("Expected Solved report")
	}
	got := stageNames(report)
	if len(got) != 1 || got[0] != "managed-challenge" {
		t.Errorf("Stages = %v, want [managed-challenge] only", got)
	}
	if report.Stages[0].Outcome != types.OutcomeSolved {
		t.Errorf("Managed challenge outcome = %v, want solved", report.Stages[0].Outcome)
	}
}

func TestAutoSolveSliderAndCheckboxBothRun(t *testing.T) {
	sel := selectors.Get()
	h := newFakeHandle()
	h.setBox(sel.SliderTrackChain[0].Matcher, page.ModeDirect, types.Box{X: 100, Y: 200, Width: 200, Height: 40})
	h.setBox(sel.SliderHandleChain[0].Matcher, page.ModeDirect, types.Box{X: 100, Y: 200, Width: 40, Height: 40})
	h.setBox(sel.CheckboxChain[1].Matcher, page.ModeDirect, types.Box{X: 10, Y: 10, Width: 20, Height: 20})

	// Open-loop stages cannot verify their own success; each detected defense
	// gets its attempt even after an earlier stage acted.
	report := testEngine(h).AutoSolve(context.Background())
	got := stageNames(report)
	if len(got) != 2 || got[0] != "slider" || got[1] != "checkbox" {
		t.Errorf("Stages = %v, want [slider checkbox] in order", got)
	}
	if len(h.dragEnds) != 1 || len(h.clicks) != 1 {
		t.Errorf("drags=%d clicks=%d, want one slider drag and one checkbox click", len(h.dragEnds), len(h.clicks))
	}
	if !report.Acted || report.Solved {
		t.Errorf("Acted=%v Solved=%v, want acted but unverified", report.Acted, report.Solved)
	}
}

func TestAutoSolveCheckboxWhenAlone(t *testing.T) {
	sel := selectors.Get()
	h := newFakeHandle()
	h.setBox(sel.CheckboxChain[0].Matcher, page.ModeDirect, types.Box{X: 10, Y: 10, Width: 20, Height: 20})

	report := testEngine(h).AutoSolve(context.Background())
	got := stageNames(report)
	if len(got) != 1 || got[0] != "checkbox" {
		t.Errorf("Stages = %v, want [checkbox]", got)
	}
}

func TestAutoSolvePuzzleBranch(t *testing.T) {
	sel := selectors.Get()
	h := newFakeHandle()
	h.setBox(sel.SliderTrackChain[0].Matcher, page.ModeDirect, types.Box{X: 100, Y: 200, Width: 200, Height: 40})
	h.setBox(sel.PuzzleHandleChain[0].Matcher, page.ModeDirect, types.Box{X: 100, Y: 200, Width: 40, Height: 40})
	h.texts[sel.PuzzleText] = true
	h.onUp = func(h *fakeHandle, n int) {
		if n == 1 {
			h.texts[sel.PuzzleText] = false
		}
	}

	report := testEngine(h).AutoSolve(context.Background())
	got := stageNames(report)
	if len(got) != 1 || got[0] != "puzzle-slider" {
		t.Errorf("Stages = %v, want [puzzle-slider]", got)
	}
	if !report.Solved {
		t.Error("Puzzle completion should mark the report solved")
	}
}

func TestAutoSolveRunsIndependentStages(t *testing.T) {
	sel := selectors.Get()
	h := newFakeHandle()
	h.counts[sel.RecaptchaFrame] = 1
	h.setBox(sel.RecaptchaAnchor, page.ModeIframe, types.Box{X: 50, Y: 60, Width: 28, Height: 28})
	h.setBox(sel.PressHoldChain[0].Matcher, page.ModeDirect, types.Box{X: 300, Y: 400, Width: 120, Height: 48})

	report := testEngine(h).AutoSolve(context.Background())
	got := stageNames(report)
	if len(got) != 2 || got[0] != "recaptcha" || got[1] != "press-hold" {
		t.Errorf("Stages = %v, want [recaptcha press-hold] in order", got)
	}
}

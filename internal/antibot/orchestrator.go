package antibot

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/pricelens/pricelens/internal/humanize"
	"github.com/pricelens/pricelens/internal/page"
	"github.com/pricelens/pricelens/internal/selectors"
	"github.com/pricelens/pricelens/internal/types"
)

// Engine runs challenge detection and resolution against one page handle.
// It owns no page lifecycle and keeps no cross-call state, so one Engine per
// captured page is the expected usage.
type Engine struct {
	h           page.Handle
	motion      *humanize.Motion
	sel         *selectors.Selectors
	delay       humanize.DelayFunc
	maxAttempts int
}

// NewEngine creates an engine with the embedded selector tables and
// production timing.
func NewEngine(h page.Handle) *Engine {
	return NewEngineWith(h, selectors.Get(), humanize.RandomDuration)
}

// NewEngineWith creates an engine with explicit tables and timing. Tests pass
// humanize.ZeroDelay.
func NewEngineWith(h page.Handle, sel *selectors.Selectors, delay humanize.DelayFunc) *Engine {
	if delay == nil {
		delay = humanize.RandomDuration
	}
	return &Engine{
		h:           h,
		motion:      humanize.NewMotionWith(h, humanize.DefaultMotionConfig(), delay),
		sel:         sel,
		delay:       delay,
		maxAttempts: maxChallengeAttempts,
	}
}

// SetMaxAttempts overrides the managed-challenge attempt bound. Values below
// one are ignored.
func (e *Engine) SetMaxAttempts(n int) {
	if n >= 1 {
		e.maxAttempts = n
	}
}

// Detect classifies the page without acting on it.
func (e *Engine) Detect() Detection {
	return Classify(e.h, e.sel)
}

// StageResult records one solver stage's outcome within an auto-solve pass.
type StageResult struct {
	Stage   string        `json:"stage"`
	Outcome types.Outcome `json:"outcome"`
}

// Report is the result of one auto-solve pass: what was detected, which
// stages ran, and whether any of them acted on the page.
type Report struct {
	Detection Detection     `json:"detection"`
	Stages    []StageResult `json:"stages,omitempty"`
	Acted     bool          `json:"acted"`
	Solved    bool          `json:"solved"`
}

// AutoSolve detects the page's defenses and runs the matching solvers in
// fixed priority order. The managed-challenge loop runs first because its
// interstitial hides everything else; when it verifiably clears, the pass
// short-circuits. Remaining stages are open-loop and all run, since multiple
// independent defenses can coexist on one page.
func (e *Engine) AutoSolve(ctx context.Context) Report {
	report := Report{Detection: e.Detect()}

	if report.Detection.Blocked {
		log.Warn().Msg("Hard block page detected, nothing to solve")
		return report
	}
	if !report.Detection.Any() {
		return report
	}

	record := func(stage string, outcome types.Outcome) {
		report.Stages = append(report.Stages, StageResult{Stage: stage, Outcome: outcome})
		if outcome.Acted() {
			report.Acted = true
		}
		log.Debug().Str("stage", stage).Stringer("outcome", outcome).Msg("Solve stage finished")
	}

	if report.Detection.Cloudflare || report.Detection.Turnstile {
		outcome := e.SolveChallenge(ctx)
		record("managed-challenge", outcome)
		if outcome == types.OutcomeSolved {
			report.Solved = true
			return report
		}
	}

	if report.Detection.Recaptcha {
		record("recaptcha", e.SolveRecaptcha(ctx))
	}

	if report.Detection.HumanVerify {
		record("human-verify", e.SolveHumanVerify(ctx))
	}

	if report.Detection.Slider {
		// A puzzle slider carries its own prompt text; a plain drag-to-end
		// slider does not. SolvePuzzle reports not-found when the prompt is
		// absent, so the generic drag only runs for plain sliders.
		outcome := e.SolvePuzzle(ctx)
		if outcome == types.OutcomeNotFound {
			record("slider", e.SolveSlider(ctx))
		} else {
			record("puzzle-slider", outcome)
			if outcome == types.OutcomeSolved {
				report.Solved = true
			}
		}
	}

	if report.Detection.PressHold {
		record("press-hold", e.SolvePressHold(ctx))
	}

	if report.Detection.Checkbox {
		record("checkbox", e.SolveCheckbox(ctx))
	}

	return report
}

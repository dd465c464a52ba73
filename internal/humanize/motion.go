package humanize

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pricelens/pricelens/internal/types"
)

// Pointer is the minimal input surface the motion simulator drives. The page
// adapter satisfies it; tests substitute a recorder.
type Pointer interface {
	PointerMove(x, y float64) error
	PointerDown() error
	PointerUp() error
	PointerClick(x, y float64) error
}

// MotionConfig tunes trajectory generation and pacing.
type MotionConfig struct {
	// ViewportWidth and ViewportHeight approximate the pointer's resting
	// position (viewport center) when no prior position is tracked. This is
	// a deliberate simplification, not a pointer-position tracker.
	ViewportWidth  int
	ViewportHeight int

	// JitterPx is the uniform perturbation applied to every intermediate
	// waypoint of a move.
	JitterPx float64
	// WobblePx is the vertical perturbation applied to every drag step.
	WobblePx float64

	// Per-step dwell range for moves, milliseconds.
	StepDelayMinMs int
	StepDelayMaxMs int
	// Per-step dwell range for drags, milliseconds.
	DragStepDelayMinMs int
	DragStepDelayMaxMs int

	// Hold duration range for press-and-hold, milliseconds.
	HoldMinMs int
	HoldMaxMs int
}

// DefaultMotionConfig returns the tuning used against real pages.
func DefaultMotionConfig() MotionConfig {
	return MotionConfig{
		ViewportWidth:      1920,
		ViewportHeight:     1080,
		JitterPx:           2,
		WobblePx:           3,
		StepDelayMinMs:     5,
		StepDelayMaxMs:     20,
		DragStepDelayMinMs: 10,
		DragStepDelayMaxMs: 30,
		HoldMinMs:          2000,
		HoldMaxMs:          4000,
	}
}

// Motion drives a Pointer along human-plausible paths. It holds no state
// between calls besides random-number generation, so one Motion per page flow
// is safe and instances are cheap.
type Motion struct {
	ptr    Pointer
	config MotionConfig
	delay  DelayFunc
}

// NewMotion creates a motion simulator with default config and timing.
func NewMotion(ptr Pointer) *Motion {
	return NewMotionWith(ptr, DefaultMotionConfig(), RandomDuration)
}

// NewMotionWith creates a motion simulator with explicit config and delay
// generator. Pass ZeroDelay in tests.
func NewMotionWith(ptr Pointer, config MotionConfig, delay DelayFunc) *Motion {
	if delay == nil {
		delay = RandomDuration
	}
	return &Motion{ptr: ptr, config: config, delay: delay}
}

// MoveTo moves the pointer from the approximate current position (viewport
// center) to the target in max(10, distance/20) steps. An ease-out curve
// decreases velocity near the target and every intermediate waypoint is
// perturbed by uniform jitter.
func (m *Motion) MoveTo(ctx context.Context, targetX, targetY float64) error {
	startX := float64(m.config.ViewportWidth) / 2
	startY := float64(m.config.ViewportHeight) / 2

	dist := math.Hypot(targetX-startX, targetY-startY)
	steps := int(dist / 20)
	if steps < 10 {
		steps = 10
	}

	for i := 1; i <= steps; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		progress := float64(i) / float64(steps)
		// Ease-out: velocity decreases as the pointer approaches the target.
		eased := 1 - (1-progress)*(1-progress)

		x := startX + (targetX-startX)*eased + m.jitter(m.config.JitterPx)
		y := startY + (targetY-startY)*eased + m.jitter(m.config.JitterPx)

		if err := m.ptr.PointerMove(x, y); err != nil {
			return err
		}
		if !SleepWithContext(ctx, m.delay(m.config.StepDelayMinMs, m.config.StepDelayMaxMs)) {
			return ctx.Err()
		}
	}
	return nil
}

// Click moves to the target and clicks, with a short hover pause in between.
func (m *Motion) Click(ctx context.Context, x, y float64) error {
	if err := m.MoveTo(ctx, x, y); err != nil {
		return err
	}
	if !SleepWithContext(ctx, m.delay(100, 300)) {
		return ctx.Err()
	}
	return m.ptr.PointerClick(x, y)
}

// ClickBox clicks near the center of a box with slight positional variation.
func (m *Motion) ClickBox(ctx context.Context, box types.Box) error {
	cx, cy := box.Center()
	return m.Click(ctx, cx+m.jitter(3), cy+m.jitter(3))
}

// DragTo drags horizontally from the center of the given box to endX. Steps
// are max(20, Δx/10); each step holds Y roughly constant with a small wobble.
// The pointer-up is issued even if an intermediate move fails, so the browser
// is never left in a stuck-drag state.
func (m *Motion) DragTo(ctx context.Context, from types.Box, endX float64) error {
	startX, startY := from.Center()

	if err := m.MoveTo(ctx, startX, startY); err != nil {
		return err
	}
	if !SleepWithContext(ctx, m.delay(100, 300)) {
		return ctx.Err()
	}

	if err := m.ptr.PointerDown(); err != nil {
		return err
	}
	// From here on the pointer is held down: every exit path must release it.
	dragErr := m.dragSteps(ctx, startX, startY, endX)

	if upErr := m.ptr.PointerUp(); upErr != nil && dragErr == nil {
		dragErr = upErr
	}
	if dragErr != nil {
		log.Debug().Err(dragErr).Msg("Drag interrupted, pointer released")
	}
	return dragErr
}

func (m *Motion) dragSteps(ctx context.Context, startX, startY, endX float64) error {
	if !SleepWithContext(ctx, m.delay(50, 150)) {
		return ctx.Err()
	}

	steps := int(math.Abs(endX-startX) / 10)
	if steps < 20 {
		steps = 20
	}

	for i := 1; i <= steps; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		progress := float64(i) / float64(steps)
		x := startX + (endX-startX)*progress
		y := startY + m.jitter(m.config.WobblePx)

		if err := m.ptr.PointerMove(x, y); err != nil {
			return err
		}
		if !SleepWithContext(ctx, m.delay(m.config.DragStepDelayMinMs, m.config.DragStepDelayMaxMs)) {
			return ctx.Err()
		}
	}

	// Brief pause at the end of the run before release.
	if !SleepWithContext(ctx, m.delay(100, 200)) {
		return ctx.Err()
	}
	return nil
}

// PressAndHold moves to the point, presses, holds for the given duration and
// releases. A zero duration selects a random hold in the configured range.
// The release is issued even when the hold is cut short by cancellation.
func (m *Motion) PressAndHold(ctx context.Context, x, y float64, hold time.Duration) error {
	if err := m.MoveTo(ctx, x, y); err != nil {
		return err
	}
	if !SleepWithContext(ctx, m.delay(100, 300)) {
		return ctx.Err()
	}

	if hold <= 0 {
		hold = m.delay(m.config.HoldMinMs, m.config.HoldMaxMs)
	}

	if err := m.ptr.PointerDown(); err != nil {
		return err
	}
	held := SleepWithContext(ctx, hold)
	if err := m.ptr.PointerUp(); err != nil {
		return err
	}
	if !held {
		return ctx.Err()
	}

	SleepWithContext(ctx, m.delay(500, 1000))
	return nil
}

func (m *Motion) jitter(px float64) float64 {
	if px <= 0 {
		return 0
	}
	return (rand.Float64()*2 - 1) * px
}

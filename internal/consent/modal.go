package consent

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/pricelens/pricelens/internal/humanize"
	"github.com/pricelens/pricelens/internal/page"
	"github.com/pricelens/pricelens/internal/types"
)

// ModalVisible reports whether a blocking overlay (newsletter prompt, region
// picker, app nudge) is currently shown.
func (d *Dismisser) ModalVisible() bool {
	for _, sel := range d.sel.ModalContainers {
		if _, ok := d.h.QueryVisible(sel, page.ModeDirect); ok {
			return true
		}
	}
	return false
}

// CloseModal dismisses one visible modal via its close control. Reports
// OutcomeSolved when no modal remains visible afterwards.
func (d *Dismisser) CloseModal(ctx context.Context) types.Outcome {
	if !d.ModalVisible() {
		return types.OutcomeNotFound
	}

	acted := false
	for _, strategy := range d.sel.ModalCloseChain {
		box, ok := d.h.QueryVisible(strategy.Matcher, page.ModeDirect)
		if !ok {
			continue
		}
		if err := d.motion.ClickBox(ctx, box); err != nil {
			log.Debug().Err(err).Str("matcher", strategy.Matcher).Msg("Modal close click failed")
			continue
		}
		acted = true
		break
	}
	if !acted {
		return types.OutcomeNotFound
	}

	humanize.SleepWithContext(ctx, d.delay(300, 800))
	if !d.ModalVisible() {
		return types.OutcomeSolved
	}
	return types.OutcomeActedUnverified
}

// CloseAll dismisses stacked modals, up to the given limit. Some sites chain
// a newsletter prompt behind a region picker; the limit keeps a modal that
// re-spawns itself from looping forever.
func (d *Dismisser) CloseAll(ctx context.Context, max int) int {
	closed := 0
	for i := 0; i < max; i++ {
		if ctx.Err() != nil {
			break
		}
		outcome := d.CloseModal(ctx)
		if outcome == types.OutcomeNotFound {
			break
		}
		if outcome == types.OutcomeSolved {
			closed++
			continue
		}
		// Acted but the modal is still there: clicking again would hammer the
		// same control.
		break
	}
	if closed > 0 {
		log.Debug().Int("closed", closed).Msg("Dismissed modals")
	}
	return closed
}

// DismissAll runs the full pre-capture cleanup: accept cookies, then close
// lingering modals.
func (d *Dismisser) DismissAll(ctx context.Context) {
	if outcome := d.AcceptCookies(ctx); outcome.Acted() {
		log.Debug().Stringer("outcome", outcome).Msg("Cookie banner handled")
	}
	d.CloseAll(ctx, 3)
}

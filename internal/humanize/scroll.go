package humanize

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/ysmood/gson"
)

// Evaluator runs a script in the page and returns its value. The page adapter
// satisfies it.
type Evaluator interface {
	Eval(js string) (gson.JSON, error)
}

// ScrollPage scrolls down the page in a few uneven bursts with reading pauses,
// the way a person skims a product page. Lazy-loaded content (price blocks,
// images) is often only rendered after at least one scroll.
func ScrollPage(ctx context.Context, ev Evaluator, delay DelayFunc, bursts int) error {
	if delay == nil {
		delay = RandomDuration
	}
	if bursts <= 0 {
		bursts = 3
	}

	for i := 0; i < bursts; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Uneven burst sizes; slight horizontal drift is intentional noise.
		dy := 200 + rand.Intn(400)
		if _, err := ev.Eval(fmt.Sprintf(`window.scrollBy({top: %d, left: 0, behavior: 'smooth'})`, dy)); err != nil {
			return err
		}
		if !SleepWithContext(ctx, delay(600, 1400)) {
			return ctx.Err()
		}
	}

	// Return to the top so captures show the above-the-fold content.
	if _, err := ev.Eval(`window.scrollTo({top: 0, left: 0, behavior: 'smooth'})`); err != nil {
		return err
	}
	SleepWithContext(ctx, delay(400, 800))
	return nil
}

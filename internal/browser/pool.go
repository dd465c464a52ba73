package browser

import (
	"context"
	"sync"

	"github.com/go-rod/rod"
	"github.com/rs/zerolog/log"

	"github.com/pricelens/pricelens/internal/types"
)

// PagePool bounds concurrent pages against one browser. Chrome degrades
// badly past a handful of busy tabs on container-sized hosts, so workers
// borrow a slot, get a fresh stealth page, and return the slot when done.
type PagePool struct {
	launcher *Launcher
	slots    chan struct{}
	mu       sync.Mutex
	closed   bool

	acquired int64
	released int64
}

// NewPagePool creates a pool with the given concurrency limit.
func NewPagePool(l *Launcher, size int) *PagePool {
	if size < 1 {
		size = 1
	}
	slots := make(chan struct{}, size)
	for i := 0; i < size; i++ {
		slots <- struct{}{}
	}
	return &PagePool{launcher: l, slots: slots}
}

// Acquire blocks for a slot and returns a fresh page. The caller must pass
// the page back to Release.
func (p *PagePool) Acquire(ctx context.Context) (*rod.Page, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, types.ErrPoolClosed
	}
	p.mu.Unlock()

	select {
	case <-p.slots:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	page, err := p.launcher.NewPage(ctx)
	if err != nil {
		p.slots <- struct{}{}
		return nil, err
	}

	p.mu.Lock()
	p.acquired++
	p.mu.Unlock()
	return page, nil
}

// Release closes the page and frees its slot. Safe with a nil page.
func (p *PagePool) Release(page *rod.Page) {
	if page != nil {
		if err := page.Close(); err != nil {
			log.Debug().Err(err).Msg("Failed to close released page")
		}
	}

	p.mu.Lock()
	p.released++
	closed := p.closed
	p.mu.Unlock()

	if !closed {
		select {
		case p.slots <- struct{}{}:
		default:
		}
	}
}

// Stats returns acquire/release counters.
func (p *PagePool) Stats() (acquired, released int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired, p.released
}

// Close marks the pool closed. In-flight pages can still be released.
func (p *PagePool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

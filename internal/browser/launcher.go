// Package browser owns the Chrome lifecycle: launching with anti-detection
// flags, creating stealth-patched pages with coherent fingerprints, and
// bounding concurrent page usage.
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog/log"

	"github.com/pricelens/pricelens/internal/types"
)

// Options configures a launched browser.
type Options struct {
	// Headless runs Chrome with --headless=new. Headed under a virtual
	// display is preferred against challenge-protected sites.
	Headless bool
	// BrowserPath overrides the Chrome binary; empty uses rod's resolution.
	BrowserPath string
	// ProxyURL sets --proxy-server when non-empty.
	ProxyURL string
	// Randomize applies a random fingerprint to every new page. When false,
	// pages keep Chrome's real identity.
	Randomize bool
}

// Launcher owns one browser process. Callers create it, Start it, take pages
// from it, and Stop it; nothing is shared globally.
type Launcher struct {
	opts     Options
	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	started  bool
}

// NewLauncher creates an unstarted launcher.
func NewLauncher(opts Options) *Launcher {
	return &Launcher{opts: opts}
}

// Start launches Chrome and connects over CDP.
func (l *Launcher) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	la := l.buildLauncher()
	url, err := la.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().Context(ctx).ControlURL(url)
	if err := browser.Connect(); err != nil {
		la.Cleanup()
		return fmt.Errorf("connect to browser: %w", err)
	}

	l.launcher = la
	l.browser = browser
	l.started = true

	log.Info().Bool("headless", l.opts.Headless).Msg("Browser started")
	return nil
}

// buildLauncher assembles the Chrome flag set. Flags are tuned to remove
// automation signals: AutomationControlled off, no enable-automation switch,
// software WebGL so the GPU fingerprint is populated.
func (l *Launcher) buildLauncher() *launcher.Launcher {
	la := launcher.New()

	if l.opts.BrowserPath != "" {
		la = la.Bin(l.opts.BrowserPath)
	}

	if l.opts.Headless {
		la = la.Set("headless", "new")
	} else {
		// Rod defaults to headless; headed mode needs an explicit disable.
		la = la.Headless(false)
	}

	la = la.Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-dev-shm-usage")

	if l.opts.ProxyURL != "" {
		la = la.Set("proxy-server", l.opts.ProxyURL)
	}

	la = la.Set("disable-blink-features", "AutomationControlled")
	la = la.Delete("enable-automation")
	la = la.Set("force-webrtc-ip-handling-policy", "disable_non_proxied_udp")

	la = la.Set("use-gl", "swiftshader").
		Set("use-angle", "swiftshader").
		Set("enable-unsafe-swiftshader").
		Set("enable-webgl")

	la = la.Set("accept-lang", "en-US,en;q=0.9").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-infobars").
		Set("disable-search-engine-choice-screen").
		Set("window-size", "1920,1080")

	la = la.Set("disable-background-networking").
		Set("disable-default-apps").
		Set("disable-extensions").
		Set("disable-sync").
		Set("mute-audio")

	return la
}

// NewPage creates a stealth-patched page. The stealth script and fingerprint
// are applied before any navigation.
func (l *Launcher) NewPage(ctx context.Context) (*rod.Page, error) {
	l.mu.Lock()
	browser := l.browser
	started := l.started
	l.mu.Unlock()

	if !started {
		return nil, types.ErrBrowserNotStarted
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("create stealth page: %w", err)
	}
	page = page.Context(ctx)

	if l.opts.Randomize {
		fp := RandomFingerprint()
		if err := fp.Apply(page); err != nil {
			log.Warn().Err(err).Msg("Failed to apply fingerprint, keeping defaults")
		} else {
			log.Debug().Str("timezone", fp.Timezone).Int("width", fp.Width).
				Msg("Fingerprint applied to page")
		}
	}

	return page, nil
}

// Healthy reports whether the browser still answers CDP calls.
func (l *Launcher) Healthy() bool {
	l.mu.Lock()
	browser := l.browser
	started := l.started
	l.mu.Unlock()

	if !started {
		return false
	}
	_, err := proto.BrowserGetVersion{}.Call(browser)
	return err == nil
}

// Stop closes the browser and reaps the Chrome process. Safe to call twice.
func (l *Launcher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started {
		return nil
	}
	l.started = false

	var closeErr error
	if l.browser != nil {
		closeErr = l.browser.Close()
		l.browser = nil
	}
	if l.launcher != nil {
		l.launcher.Cleanup()
		l.launcher = nil
	}

	log.Info().Msg("Browser stopped")
	return closeErr
}

// Package runner drives the per-URL capture loop: navigate, clear defenses,
// dismiss overlays, screenshot, and optionally extract pricing. URLs are
// processed concurrently up to the configured limit; one failing URL never
// aborts the run.
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/pricelens/pricelens/internal/antibot"
	"github.com/pricelens/pricelens/internal/browser"
	"github.com/pricelens/pricelens/internal/capture"
	"github.com/pricelens/pricelens/internal/config"
	"github.com/pricelens/pricelens/internal/consent"
	"github.com/pricelens/pricelens/internal/humanize"
	"github.com/pricelens/pricelens/internal/page"
	"github.com/pricelens/pricelens/internal/ratelimit"
	"github.com/pricelens/pricelens/internal/reader"
	"github.com/pricelens/pricelens/internal/security"
	"github.com/pricelens/pricelens/internal/selectors"
	"github.com/pricelens/pricelens/internal/stats"
	"github.com/pricelens/pricelens/internal/types"
	"github.com/pricelens/pricelens/internal/vision"
)

// visionMaxImageHeight bounds the screenshot sent for pricing extraction.
// Pricing sits near the top of a product page, and vision endpoints reject
// very tall full-page captures.
const visionMaxImageHeight = 4096

// Runner owns the resources shared across URL workers.
type Runner struct {
	cfg      *config.Config
	launcher *browser.Launcher
	pool     *browser.PagePool
	capturer *capture.Capturer
	visionC  *vision.Client
	selMgr   *selectors.Manager
	recorder *stats.Recorder
}

// New assembles a runner from configuration. Start of the browser is
// deferred to Run so construction never launches processes.
func New(cfg *config.Config) (*Runner, error) {
	selMgr, err := selectors.NewManager(cfg.SelectorsPath, cfg.SelectorsHotReload)
	if err != nil {
		return nil, err
	}

	launcher := browser.NewLauncher(browser.Options{
		Headless:    cfg.Headless,
		BrowserPath: cfg.BrowserPath,
		ProxyURL:    cfg.ProxyURL,
		Randomize:   cfg.RandomizeFingerprint,
	})

	r := &Runner{
		cfg:      cfg,
		launcher: launcher,
		pool:     browser.NewPagePool(launcher, cfg.Concurrency),
		capturer: capture.NewCapturer(cfg.OutputDir, cfg.FullPageCapture),
		selMgr:   selMgr,
		recorder: stats.NewRecorder(),
	}

	if cfg.HasVision() {
		r.visionC = vision.NewClient(vision.Config{
			APIKey:  cfg.VisionAPIKey,
			Model:   cfg.VisionModel,
			BaseURL: cfg.VisionBaseURL,
			Timeout: cfg.VisionTimeout,
		})
	}

	return r, nil
}

// Run processes every URL in the input file and writes the results report.
func (r *Runner) Run(ctx context.Context) error {
	urls, err := reader.ReadURLs(r.cfg.InputPath)
	if err != nil {
		return err
	}
	log.Info().Int("urls", len(urls)).Int("concurrency", r.cfg.Concurrency).Msg("Starting capture run")

	if err := r.launcher.Start(ctx); err != nil {
		return err
	}
	defer func() {
		r.pool.Close()
		if err := r.launcher.Stop(); err != nil {
			log.Warn().Err(err).Msg("Browser stop reported an error")
		}
		r.selMgr.Close()
	}()

	results := make([]Result, len(urls))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for i, rawURL := range urls {
		i, rawURL := i, rawURL
		g.Go(func() error {
			res := r.processURL(gctx, rawURL)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if err := WriteResults(r.cfg.ResultsPath, results, r.recorder.Snapshot()); err != nil {
		return err
	}

	r.logSummary()
	return nil
}

// processURL runs the full flow for one URL. Failures are captured in the
// Result rather than returned, so the batch continues.
func (r *Runner) processURL(ctx context.Context, rawURL string) Result {
	start := time.Now()
	res := Result{URL: rawURL, Timestamp: start}

	defer func() {
		res.DurationMs = time.Since(start).Milliseconds()
		r.recorder.RecordCapture(rawURL, res.Success, time.Since(start))
	}()

	if err := security.ValidateURL(rawURL, r.cfg.AllowPrivateHosts); err != nil {
		log.Warn().Err(err).Str("url", rawURL).Msg("URL rejected")
		res.Error = err.Error()
		return res
	}

	p, err := r.pool.Acquire(ctx)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer r.pool.Release(p)

	log.Info().Str("url", rawURL).Msg("Processing URL")

	h := page.NewRod(p)
	if err := r.navigate(ctx, p, rawURL); err != nil {
		res.Error = "navigate: " + err.Error()
		return res
	}
	if err := h.WaitLoadSignal(ctx, r.cfg.PageLoadTimeout); err != nil {
		log.Debug().Err(err).Str("url", rawURL).Msg("Load signal not observed, continuing")
	}
	humanize.RandomWait(ctx, 1000, 3000)

	sel := r.selMgr.Current()
	engine := antibot.NewEngineWith(h, sel, humanize.RandomDuration)
	engine.SetMaxAttempts(r.cfg.MaxSolveAttempts)

	if r.cfg.AutoSolve {
		solveCtx, cancel := context.WithTimeout(ctx, r.cfg.ChallengeTimeout)
		report := engine.AutoSolve(solveCtx)
		timedOut := solveCtx.Err() != nil && ctx.Err() == nil
		cancel()

		res.Challenge = &report
		if report.Detection.Any() {
			r.recorder.RecordChallenge(rawURL, report.Solved)
		}
		if report.Detection.Blocked {
			res.Error = types.ErrAccessDenied.Error()
			r.noteDenial(ctx, h, &res)
			return res
		}
		if report.Acted && !report.Solved {
			if timedOut {
				log.Warn().
					Err(types.NewChallengeTimeoutError(rawURL, "auto-solve", r.cfg.MaxSolveAttempts)).
					Msg("Challenge budget exhausted, capturing anyway")
			}
			// Unverified solve attempts on a denial page usually mean the
			// site is pushing back; classify and slow this worker down.
			r.noteDenial(ctx, h, &res)
		}
	} else {
		det := engine.Detect()
		res.Challenge = &antibot.Report{Detection: det}
	}

	dismisser := consent.NewDismisserWith(h, sel, humanize.RandomDuration)
	dismisser.DismissAll(ctx)

	// A short scroll settles lazy-loaded content before the capture.
	if err := humanize.ScrollPage(ctx, h, humanize.RandomDuration, 2); err != nil {
		log.Debug().Err(err).Msg("Scroll pass failed, capturing as-is")
	}

	path, png, err := r.capturer.Capture(p, rawURL)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.ScreenshotPath = path
	res.Success = true

	if r.visionC != nil {
		payload := png
		if cropped, cerr := capture.CropTop(png, visionMaxImageHeight); cerr != nil {
			log.Debug().Err(cerr).Msg("Screenshot crop failed, sending full image")
		} else {
			payload = cropped
		}
		pricing, err := r.visionC.ExtractPricing(ctx, payload)
		if err != nil {
			log.Warn().Err(err).Str("url", rawURL).Msg("Pricing extraction failed")
			res.ExtractionError = err.Error()
		} else if pricing.HasData() {
			res.Pricing = pricing
		}
	}

	return res
}

// navigate loads the URL, retrying once after a short pause. First requests
// against a cold connection occasionally fail on DNS or TLS hiccups that
// clear by the second attempt.
func (r *Runner) navigate(ctx context.Context, p *rod.Page, rawURL string) error {
	err := p.Timeout(r.cfg.PageLoadTimeout).Navigate(rawURL)
	if err == nil {
		return nil
	}
	log.Debug().Err(err).Str("url", rawURL).Msg("Navigation failed, retrying")

	humanize.RandomWait(ctx, 500, 1500)
	if ctx.Err() != nil {
		return err
	}
	return p.Timeout(r.cfg.PageLoadTimeout).Navigate(rawURL)
}

// noteDenial classifies the current markup as a denial page and, for
// rate-limit denials, holds this worker for the suggested backoff so the
// domain gets breathing room before the next URL.
func (r *Runner) noteDenial(ctx context.Context, h *page.Rod, res *Result) {
	html, err := h.HTML()
	if err != nil {
		return
	}
	info := ratelimit.Detect(html)
	if !info.Detected {
		return
	}

	res.Denial = &info
	log.Warn().
		Str("url", res.URL).
		Str("code", info.Code).
		Str("category", string(info.Category)).
		Msg("Denial page detected")

	if info.Category == ratelimit.CategoryRateLimit {
		backoff := ratelimit.ClampBackoff(info.Backoff, 5*time.Second, time.Minute)
		log.Info().Dur("backoff", backoff).Msg("Backing off after rate limit")
		humanize.SleepWithContext(ctx, backoff)
	}
}

func (r *Runner) logSummary() {
	attempts, captures, seen, solved := r.recorder.Totals()
	log.Info().
		Int64("urls", attempts).
		Int64("captured", captures).
		Int64("challenges_seen", seen).
		Int64("challenges_solved", solved).
		Msg("Capture run finished")

	for domain, s := range r.recorder.Snapshot() {
		if s.ChallengesUnsolved > 0 {
			log.Warn().
				Str("domain", domain).
				Int64("unsolved", s.ChallengesUnsolved).
				Msg("Domain has unsolved challenges")
		}
	}
}

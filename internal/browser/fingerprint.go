package browser

import (
	"math/rand"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Fingerprint is one coherent browser identity: user agent, viewport and
// timezone are picked together so they do not contradict each other.
type Fingerprint struct {
	UserAgent string
	Width     int
	Height    int
	Timezone  string
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

var viewports = [][2]int{
	{1920, 1080},
	{1366, 768},
	{1536, 864},
	{1440, 900},
	{1600, 900},
}

var timezones = []string{
	"America/New_York",
	"America/Chicago",
	"Europe/London",
	"Europe/Paris",
	"Europe/Berlin",
}

// RandomFingerprint picks a random coherent identity.
func RandomFingerprint() Fingerprint {
	vp := viewports[rand.Intn(len(viewports))]
	return Fingerprint{
		UserAgent: userAgents[rand.Intn(len(userAgents))],
		Width:     vp[0],
		Height:    vp[1],
		Timezone:  timezones[rand.Intn(len(timezones))],
	}
}

// Apply configures the page with this fingerprint. Must be called before
// navigation.
func (f Fingerprint) Apply(page *rod.Page) error {
	if f.UserAgent != "" {
		if err := (proto.NetworkSetUserAgentOverride{UserAgent: f.UserAgent}).Call(page); err != nil {
			return err
		}
	}
	if f.Width > 0 && f.Height > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             f.Width,
			Height:            f.Height,
			DeviceScaleFactor: 1,
			Mobile:            false,
		}); err != nil {
			return err
		}
	}
	if f.Timezone != "" {
		if err := (proto.EmulationSetTimezoneOverride{TimezoneID: f.Timezone}).Call(page); err != nil {
			return err
		}
	}
	return nil
}

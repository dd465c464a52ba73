// Package capture produces and stores page screenshots.
package capture

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/pricelens/pricelens/internal/types"
)

// maxNameLen bounds the URL-derived part of a screenshot filename.
const maxNameLen = 80

// Capturer writes screenshots into one output directory.
type Capturer struct {
	dir      string
	fullPage bool
}

// NewCapturer creates a capturer. The directory is created on first use.
func NewCapturer(dir string, fullPage bool) *Capturer {
	return &Capturer{dir: dir, fullPage: fullPage}
}

// Capture screenshots the page and writes it as PNG. Returns the file path
// and the raw image bytes so callers can feed the same data to extraction
// without re-reading the file.
func (c *Capturer) Capture(page *rod.Page, rawURL string) (string, []byte, error) {
	data, err := page.Screenshot(c.fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", types.ErrScreenshotFailed, err)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(c.dir, FileName(rawURL, time.Now()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", nil, fmt.Errorf("write screenshot: %w", err)
	}

	log.Info().Str("path", path).Int("bytes", len(data)).Msg("Screenshot captured")
	return path, data, nil
}

// FileName derives a filesystem-safe screenshot name from the URL plus a
// timestamp, so repeated captures of one URL never collide.
func FileName(rawURL string, now time.Time) string {
	name := "page"
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Hostname() != "" {
		name = parsed.Hostname()
		if parsed.Path != "" && parsed.Path != "/" {
			name += parsed.Path
		}
	}

	name = sanitize(name)
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	name = strings.Trim(name, "_")
	if name == "" {
		name = "page"
	}

	return fmt.Sprintf("%s_%s.png", name, now.Format("20060102_150405"))
}

// sanitize replaces every character outside [a-z0-9] with an underscore and
// collapses runs.
func sanitize(s string) string {
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			sb.WriteRune('_')
			lastUnderscore = true
		}
	}
	return sb.String()
}

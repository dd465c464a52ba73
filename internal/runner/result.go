package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pricelens/pricelens/internal/antibot"
	"github.com/pricelens/pricelens/internal/ratelimit"
	"github.com/pricelens/pricelens/internal/stats"
	"github.com/pricelens/pricelens/internal/vision"
)

// Result is the per-URL record written to the results report.
type Result struct {
	URL             string          `json:"url"`
	Success         bool            `json:"success"`
	ScreenshotPath  string          `json:"screenshotPath,omitempty"`
	Challenge       *antibot.Report `json:"challenge,omitempty"`
	Denial          *ratelimit.Info `json:"denial,omitempty"`
	Pricing         *vision.Pricing `json:"pricing,omitempty"`
	Error           string          `json:"error,omitempty"`
	ExtractionError string          `json:"extractionError,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
	DurationMs      int64           `json:"durationMs"`
}

// report is the top-level shape of the results file.
type report struct {
	GeneratedAt time.Time                    `json:"generatedAt"`
	Total       int                          `json:"total"`
	Succeeded   int                          `json:"succeeded"`
	Failed      int                          `json:"failed"`
	Domains     map[string]stats.DomainStats `json:"domains,omitempty"`
	Results     []Result                     `json:"results"`
}

// WriteResults writes the run report as indented JSON. The file is written
// atomically via a temp file so a crash mid-write never leaves a truncated
// report behind.
func WriteResults(path string, results []Result, domains map[string]stats.DomainStats) error {
	rep := report{
		GeneratedAt: time.Now(),
		Total:       len(results),
		Domains:     domains,
		Results:     results,
	}
	for _, r := range results {
		if r.Success {
			rep.Succeeded++
		} else {
			rep.Failed++
		}
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	log.Info().Str("path", path).Int("total", rep.Total).Int("succeeded", rep.Succeeded).
		Msg("Results report written")
	return nil
}

// Package config provides application configuration management.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Configuration upper bounds to prevent resource exhaustion.
const (
	maxConcurrency      = 10
	maxPageLoadTimeout  = 5 * time.Minute
	maxChallengeTimeout = 5 * time.Minute
	maxSolveAttempts    = 10
)

// Config holds all application configuration.
// Configuration is loaded from environment variables at startup; the input
// file path comes from the command line.
type Config struct {
	// Input/output
	InputPath   string // URL list file (.txt or .docx); set from argv
	OutputDir   string // Directory for captured screenshots
	ResultsPath string // JSON results file

	// Browser settings
	Headless             bool
	BrowserPath          string
	ProxyURL             string
	RandomizeFingerprint bool

	// Concurrency is the number of pages driven in parallel.
	Concurrency int

	// Timeouts
	PageLoadTimeout  time.Duration
	ChallengeTimeout time.Duration

	// Challenge solving
	AutoSolve        bool
	MaxSolveAttempts int

	// Capture
	FullPageCapture bool

	// Vision extraction (OpenAI-compatible chat completions endpoint)
	VisionEnabled bool
	VisionAPIKey  string
	VisionModel   string
	VisionBaseURL string
	VisionTimeout time.Duration

	// Security
	AllowPrivateHosts bool // Allow URLs resolving to private/loopback ranges

	// Selectors settings
	SelectorsPath      string // Path to external selectors.yaml override file
	SelectorsHotReload bool   // Enable file watching for hot-reload of selectors

	// Logging
	LogLevel  string
	LogPretty bool
}

// Load loads configuration from environment variables.
// Returns a Config with values from environment or sensible defaults.
func Load() *Config {
	return &Config{
		OutputDir:   getEnvString("OUTPUT_DIR", "screenshots"),
		ResultsPath: getEnvString("RESULTS_PATH", "results.json"),

		Headless:             getEnvBool("HEADLESS", true),
		BrowserPath:          getEnvString("BROWSER_PATH", ""),
		ProxyURL:             getEnvString("PROXY_URL", ""),
		RandomizeFingerprint: getEnvBool("RANDOMIZE_FINGERPRINT", true),

		Concurrency: getEnvInt("CONCURRENCY", 2),

		PageLoadTimeout:  getEnvDuration("PAGE_LOAD_TIMEOUT", 45*time.Second),
		ChallengeTimeout: getEnvDuration("CHALLENGE_TIMEOUT", 60*time.Second),

		AutoSolve:        getEnvBool("AUTO_SOLVE", true),
		MaxSolveAttempts: getEnvInt("MAX_SOLVE_ATTEMPTS", 3),

		FullPageCapture: getEnvBool("FULL_PAGE_CAPTURE", true),

		VisionEnabled: getEnvBool("VISION_ENABLED", false),
		VisionAPIKey:  getEnvString("OPENAI_API_KEY", ""),
		VisionModel:   getEnvString("VISION_MODEL", "gpt-4o-mini"),
		VisionBaseURL: getEnvString("VISION_BASE_URL", "https://api.openai.com/v1"),
		VisionTimeout: getEnvDuration("VISION_TIMEOUT", 60*time.Second),

		AllowPrivateHosts: getEnvBool("ALLOW_PRIVATE_HOSTS", false),

		SelectorsPath:      getEnvString("SELECTORS_PATH", ""),
		SelectorsHotReload: getEnvBool("SELECTORS_HOT_RELOAD", false),

		LogLevel:  getEnvString("LOG_LEVEL", "info"),
		LogPretty: getEnvBool("LOG_PRETTY", true),
	}
}

// Validate checks configuration values and logs warnings for invalid values.
// Invalid values are corrected to sensible defaults.
func (c *Config) Validate() {
	// BrowserPath validation - prevent path traversal
	if c.BrowserPath != "" && strings.Contains(c.BrowserPath, "..") {
		log.Error().
			Str("path", c.BrowserPath).
			Msg("BrowserPath contains path traversal sequence (..), ignoring")
		c.BrowserPath = ""
	}

	if c.Concurrency < 1 {
		log.Warn().Int("concurrency", c.Concurrency).Msg("Invalid concurrency, using 1")
		c.Concurrency = 1
	} else if c.Concurrency > maxConcurrency {
		log.Warn().
			Int("concurrency", c.Concurrency).
			Int("max", maxConcurrency).
			Msg("Concurrency too high, capping to maximum")
		c.Concurrency = maxConcurrency
	}

	if c.PageLoadTimeout < time.Second {
		log.Warn().Dur("timeout", c.PageLoadTimeout).Msg("Page load timeout too short, using 45s")
		c.PageLoadTimeout = 45 * time.Second
	} else if c.PageLoadTimeout > maxPageLoadTimeout {
		log.Warn().
			Dur("timeout", c.PageLoadTimeout).
			Dur("max", maxPageLoadTimeout).
			Msg("Page load timeout too high, capping to maximum")
		c.PageLoadTimeout = maxPageLoadTimeout
	}

	if c.ChallengeTimeout < time.Second {
		log.Warn().Dur("timeout", c.ChallengeTimeout).Msg("Challenge timeout too short, using 60s")
		c.ChallengeTimeout = 60 * time.Second
	} else if c.ChallengeTimeout > maxChallengeTimeout {
		log.Warn().
			Dur("timeout", c.ChallengeTimeout).
			Dur("max", maxChallengeTimeout).
			Msg("Challenge timeout too high, capping to maximum")
		c.ChallengeTimeout = maxChallengeTimeout
	}

	if c.MaxSolveAttempts < 1 {
		log.Warn().Int("attempts", c.MaxSolveAttempts).Msg("Invalid solve attempts, using 1")
		c.MaxSolveAttempts = 1
	} else if c.MaxSolveAttempts > maxSolveAttempts {
		log.Warn().
			Int("attempts", c.MaxSolveAttempts).
			Int("max", maxSolveAttempts).
			Msg("Solve attempts too high, capping to maximum")
		c.MaxSolveAttempts = maxSolveAttempts
	}

	if c.VisionTimeout < 5*time.Second {
		log.Warn().Dur("timeout", c.VisionTimeout).Msg("Vision timeout too short, using 60s")
		c.VisionTimeout = 60 * time.Second
	}

	if c.VisionEnabled && c.VisionAPIKey == "" {
		log.Warn().Msg("VISION_ENABLED is true but OPENAI_API_KEY is empty, extraction will fail")
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true,
	}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		log.Warn().Str("level", c.LogLevel).Msg("Invalid log level, using 'info'")
		c.LogLevel = "info"
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
}

// HasVision returns true if vision extraction is enabled and configured.
func (c *Config) HasVision() bool {
	return c.VisionEnabled && c.VisionAPIKey != ""
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer in environment, using default")
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid boolean in environment, using default")
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the
// default. Accepts Go duration syntax ("30s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid duration in environment, using default")
	}
	return defaultValue
}

package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"OUTPUT_DIR", "RESULTS_PATH",
		"HEADLESS", "BROWSER_PATH", "PROXY_URL", "RANDOMIZE_FINGERPRINT",
		"CONCURRENCY", "PAGE_LOAD_TIMEOUT", "CHALLENGE_TIMEOUT",
		"AUTO_SOLVE", "MAX_SOLVE_ATTEMPTS", "FULL_PAGE_CAPTURE",
		"VISION_ENABLED", "OPENAI_API_KEY", "VISION_MODEL", "VISION_BASE_URL", "VISION_TIMEOUT",
		"ALLOW_PRIVATE_HOSTS", "SELECTORS_PATH", "SELECTORS_HOT_RELOAD",
		"LOG_LEVEL", "LOG_PRETTY",
	}
	for _, env := range envVars {
		os.Unsetenv(env)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.OutputDir != "screenshots" {
		t.Errorf("Expected default output dir 'screenshots', got %q", cfg.OutputDir)
	}
	if cfg.ResultsPath != "results.json" {
		t.Errorf("Expected default results path 'results.json', got %q", cfg.ResultsPath)
	}
	if !cfg.Headless {
		t.Error("Expected Headless to be true by default")
	}
	if cfg.Concurrency != 2 {
		t.Errorf("Expected default concurrency 2, got %d", cfg.Concurrency)
	}
	if cfg.PageLoadTimeout != 45*time.Second {
		t.Errorf("Expected default page load timeout 45s, got %v", cfg.PageLoadTimeout)
	}
	if cfg.ChallengeTimeout != 60*time.Second {
		t.Errorf("Expected default challenge timeout 60s, got %v", cfg.ChallengeTimeout)
	}
	if !cfg.AutoSolve {
		t.Error("Expected AutoSolve to be true by default")
	}
	if cfg.MaxSolveAttempts != 3 {
		t.Errorf("Expected default solve attempts 3, got %d", cfg.MaxSolveAttempts)
	}
	if cfg.VisionEnabled {
		t.Error("Expected VisionEnabled to be false by default")
	}
	if cfg.VisionModel != "gpt-4o-mini" {
		t.Errorf("Expected default vision model 'gpt-4o-mini', got %q", cfg.VisionModel)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level 'info', got %q", cfg.LogLevel)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)

	os.Setenv("HEADLESS", "false")
	os.Setenv("CONCURRENCY", "4")
	os.Setenv("PAGE_LOAD_TIMEOUT", "90s")
	os.Setenv("CHALLENGE_TIMEOUT", "120")
	os.Setenv("AUTO_SOLVE", "false")
	os.Setenv("LOG_LEVEL", "debug")
	defer clearEnv(t)

	cfg := Load()

	if cfg.Headless {
		t.Error("Expected Headless false from environment")
	}
	if cfg.Concurrency != 4 {
		t.Errorf("Expected concurrency 4, got %d", cfg.Concurrency)
	}
	if cfg.PageLoadTimeout != 90*time.Second {
		t.Errorf("Expected page load timeout 90s, got %v", cfg.PageLoadTimeout)
	}
	if cfg.ChallengeTimeout != 120*time.Second {
		t.Errorf("Expected bare-seconds challenge timeout 120s, got %v", cfg.ChallengeTimeout)
	}
	if cfg.AutoSolve {
		t.Error("Expected AutoSolve false from environment")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug', got %q", cfg.LogLevel)
	}
}

func TestValidateBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		check  func(*testing.T, *Config)
	}{
		{
			name:   "zero concurrency raised to 1",
			mutate: func(c *Config) { c.Concurrency = 0 },
			check: func(t *testing.T, c *Config) {
				if c.Concurrency != 1 {
					t.Errorf("Expected concurrency 1, got %d", c.Concurrency)
				}
			},
		},
		{
			name:   "excessive concurrency capped",
			mutate: func(c *Config) { c.Concurrency = 100 },
			check: func(t *testing.T, c *Config) {
				if c.Concurrency != maxConcurrency {
					t.Errorf("Expected concurrency capped at %d, got %d", maxConcurrency, c.Concurrency)
				}
			},
		},
		{
			name:   "tiny page load timeout reset",
			mutate: func(c *Config) { c.PageLoadTimeout = 100 * time.Millisecond },
			check: func(t *testing.T, c *Config) {
				if c.PageLoadTimeout != 45*time.Second {
					t.Errorf("Expected page load timeout 45s, got %v", c.PageLoadTimeout)
				}
			},
		},
		{
			name:   "excessive solve attempts capped",
			mutate: func(c *Config) { c.MaxSolveAttempts = 50 },
			check: func(t *testing.T, c *Config) {
				if c.MaxSolveAttempts != maxSolveAttempts {
					t.Errorf("Expected solve attempts capped at %d, got %d", maxSolveAttempts, c.MaxSolveAttempts)
				}
			},
		},
		{
			name:   "path traversal in browser path rejected",
			mutate: func(c *Config) { c.BrowserPath = "/usr/../etc/passwd" },
			check: func(t *testing.T, c *Config) {
				if c.BrowserPath != "" {
					t.Errorf("Expected browser path cleared, got %q", c.BrowserPath)
				}
			},
		},
		{
			name:   "invalid log level reset",
			mutate: func(c *Config) { c.LogLevel = "verbose" },
			check: func(t *testing.T, c *Config) {
				if c.LogLevel != "info" {
					t.Errorf("Expected log level 'info', got %q", c.LogLevel)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg := Load()
			tt.mutate(cfg)
			cfg.Validate()
			tt.check(t, cfg)
		})
	}
}

func TestHasVision(t *testing.T) {
	cfg := &Config{VisionEnabled: true, VisionAPIKey: "sk-test"}
	if !cfg.HasVision() {
		t.Error("Expected HasVision true with key and enabled")
	}
	cfg.VisionAPIKey = ""
	if cfg.HasVision() {
		t.Error("Expected HasVision false without key")
	}
	cfg = &Config{VisionEnabled: false, VisionAPIKey: "sk-test"}
	if cfg.HasVision() {
		t.Error("Expected HasVision false when disabled")
	}
}

// Package main provides the entry point for PriceLens.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pricelens/pricelens/internal/config"
	"github.com/pricelens/pricelens/internal/runner"
	"github.com/pricelens/pricelens/pkg/version"
)

func main() {
	cfg := config.Load()

	// Setup logging first so validation warnings are visible
	setupLogging(cfg.LogLevel, cfg.LogPretty)

	cfg.Validate()

	if len(os.Args) > 1 {
		cfg.InputPath = os.Args[1]
	}
	if cfg.InputPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: pricelens <urls-file>")
		fmt.Fprintln(os.Stderr, "  urls-file: .txt or .docx document containing product page URLs")
		os.Exit(2)
	}

	printBanner(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, err := runner.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize runner")
	}

	if err := r.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn().Msg("Run interrupted")
			os.Exit(130)
		}
		log.Fatal().Err(err).Msg("Run failed")
	}

	log.Info().Msg("Done")
}

// setupLogging configures zerolog based on the log level.
func setupLogging(level string, pretty bool) {
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	banner := `
 ____       _          _
|  _ \ _ __(_) ___ ___| |    ___ _ __  ___
| |_) | '__| |/ __/ _ \ |   / _ \ '_ \/ __|
|  __/| |  | | (_|  __/ |__|  __/ | | \__ \
|_|   |_|  |_|\___\___|_____\___|_| |_|___/
`
	fmt.Println(banner)
	log.Info().
		Str("version", version.Full()).
		Str("go_version", version.GoVersion()).
		Str("input", cfg.InputPath).
		Str("output_dir", cfg.OutputDir).
		Bool("headless", cfg.Headless).
		Bool("vision_enabled", cfg.HasVision()).
		Msg("Starting PriceLens")
}

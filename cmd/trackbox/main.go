// Package main provides the trackbox entry point.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/okabe3/trackbox/internal/app/loader"
	"github.com/okabe3/trackbox/internal/app/packaging"
	"github.com/okabe3/trackbox/internal/app/pipeline"
	"github.com/okabe3/trackbox/internal/infra/config"
	"github.com/okabe3/trackbox/internal/infra/gateway"
	"github.com/okabe3/trackbox/internal/infra/logger"
	"github.com/okabe3/trackbox/internal/infra/report"
	"github.com/okabe3/trackbox/internal/infra/spotify"
)

// terminator ends the ingestion phase and starts processing.
const terminator = "done"

var (
	app        = kingpin.New("trackbox", "trackbox batch audio downloader")
	configPath = app.Flag("config", "Path to config file").Default("trackbox.yaml").String()
	baseDir    = app.Flag("base-dir", "Override the downloads base directory").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	// Log to stderr by default: stdout is the ingestion channel's terminal.
	loggerConfig := logger.Config{Output: "stderr", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}
	if *baseDir != "" {
		cfg.Download.BaseDir = *baseDir
	}
	if cfg.Download.BaseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			zlog.Fatal().Msgf("Failed to get current directory: %v", err)
		}
		cfg.Download.BaseDir = wd
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Run failed: %v", err)
		os.Exit(1)
	}
}

// run wires the pipeline and executes the ingestion and processing phases.
// Using a separate function ensures defer statements run even when
// returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	catalog, err := spotify.New(ctx, spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RefreshToken: cfg.Spotify.RefreshToken,
		Market:       cfg.Spotify.Market,
	})
	if err != nil {
		return fmt.Errorf("failed to create catalog client: %w", err)
	}

	source := gateway.New(gateway.Config{
		BaseURL: cfg.Gateway.BaseURL,
		Token:   cfg.Gateway.Token,
		Timeout: cfg.Gateway.Timeout(),
	})

	handlers := make([]packaging.HandlerConfig, 0, len(cfg.Packagers))
	for _, p := range cfg.Packagers {
		handlers = append(handlers, packaging.HandlerConfig{Extension: p.Extension, Settings: p.Settings})
	}
	packager, err := packaging.NewExec(handlers)
	if err != nil {
		return fmt.Errorf("failed to create packager: %w", err)
	}

	var journal pipeline.FailureJournal
	if cfg.Report.Enabled {
		j, err := report.Open(cfg.Report.Path)
		if err != nil {
			zlog.Warn().Msgf("Cannot open failure journal: %v. Continuing without it", err)
		} else {
			defer j.Close()
			journal = j
		}
	}

	orch := pipeline.NewOrchestrator(pipeline.Config{
		BasePath:       cfg.Download.BaseDir,
		Pacing:         cfg.Download.Pacing(),
		PenaltyStep:    cfg.Download.PenaltyStep(),
		PenaltyCeiling: cfg.Download.PenaltyCeiling(),
	}, pipeline.NewResolver(catalog), loader.New(source), packager, journal)

	zlog.Info().Msg("Connected. Paste identifiers, one per line; finish with 'done'")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == terminator {
			break
		}
		if err := orch.IngestLine(ctx, line); err != nil {
			zlog.Error().Msgf("Failed to load item: %v", err)
		}
	}
	if err := scanner.Err(); err != nil {
		zlog.Error().Msgf("Input error: %v", err)
	}

	return orch.Process(ctx)
}


package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"panelcli/internal/config"
	apperrors "panelcli/internal/errors"
	"panelcli/internal/infrastructure"
	"panelcli/internal/pipeline"
	"panelcli/pkg/contracts"
)

func main() {
	configFile := flag.String("config", "panel.yaml", "path to YAML config file (optional)")
	outDir := flag.String("out", "", "output directory (overrides config)")
	microdataPath := flag.String("microdata", "", "path to survey microdata file (.dta, .csv or .xlsx; overrides config)")
	keepYears := flag.Bool("keep-unmatched-years", false, "keep annual aggregate years with no matching date row as year-only rows")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if *microdataPath != "" {
		cfg.Microdata.Path = *microdataPath
	}
	if *keepYears {
		cfg.Output.KeepUnmatchedYears = true
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	ctx := infrastructure.EnsureRunID(context.Background())
	runID := infrastructure.GetRunID(ctx)

	logger.InfoContext(ctx, "Starting panel assembly run",
		slog.String("run_id", runID),
		slog.String("version", contracts.Version),
		slog.Int("series", len(cfg.Series)),
		slog.String("microdata", cfg.Microdata.Path),
		slog.String("output_dir", cfg.Output.Dir))

	p := pipeline.New(cfg, logger)
	if err := p.Run(ctx, runID); err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeNoData) {
			logger.ErrorContext(ctx, "No data fetched; nothing to write", "error", err)
			os.Exit(2)
		}
		logger.ErrorContext(ctx, "Pipeline run failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Panel written to %s\n", cfg.Output.PathTo(cfg.Output.TableFile))
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"bnvision/internal/config"
	"bnvision/internal/infrastructure"
	"bnvision/internal/migrate"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dest := flag.String("dest", "", "destination root, overrides config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dest != "" {
		cfg.Dest = *dest
	}

	logger, closer, err := infrastructure.InitializeLogger(cfg.Logging, "migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, runID := infrastructure.NewRunContext(context.Background())
	logger.InfoContext(ctx, "Migration starting",
		slog.String("run_id", runID),
		slog.String("root", cfg.Dest))

	migrated, err := migrate.NewPass(logger).Run(ctx, cfg.Dest)
	if err != nil {
		logger.ErrorContext(ctx, "Migration run failed", slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Printf("Migrated %d file(s)\n", migrated)
}

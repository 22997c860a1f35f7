package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"bnvision/internal/config"
	"bnvision/internal/download"
	"bnvision/internal/fetch"
	"bnvision/internal/infrastructure"
	"bnvision/pkg/contracts"
	"bnvision/pkg/contracts/domain"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	fromStr := flag.String("from", "", "start date (YYYY-MM-DD), defaults to today")
	toStr := flag.String("to", "", "end date (YYYY-MM-DD), defaults to the start date")
	symbolsStr := flag.String("symbols", "", "comma-separated symbols, overrides config")
	typesStr := flag.String("types", "", "comma-separated data types, overrides config")
	interval := flag.String("interval", "", "interval for klines-family types, overrides config")
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
	if *interval != "" {
		cfg.Interval = *interval
	}
	if *symbolsStr != "" {
		cfg.Symbols = splitList(*symbolsStr)
	}
	if *typesStr != "" {
		cfg.DataTypes = splitList(*typesStr)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create directories: %v\n", err)
		os.Exit(1)
	}

	logger, closer, err := infrastructure.InitializeLogger(cfg.Logging, "downloader")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, runID := infrastructure.NewRunContext(context.Background())
	logger.InfoContext(ctx, "Downloader starting",
		slog.String("run_id", runID),
		slog.String("version", contracts.FullVersion()))

	tracer, shutdownTracing, err := infrastructure.InitTracing(cfg.Telemetry, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize tracing", slog.Any("error", err))
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	source, err := domain.ParseSource(cfg.Source)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid source", slog.Any("error", err))
		os.Exit(1)
	}

	dataTypes, err := parseDataTypes(cfg.DataTypes)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid data type", slog.Any("error", err))
		os.Exit(1)
	}
	if len(cfg.Symbols) == 0 {
		logger.ErrorContext(ctx, "No symbols configured")
		os.Exit(1)
	}

	start, end, err := parseDateRange(*fromStr, *toStr)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid date range", slog.Any("error", err))
		os.Exit(1)
	}

	fetcher := fetch.NewFetcher(source, fetch.Options{
		Dest:     cfg.Dest,
		Interval: cfg.Interval,
		Client:   &http.Client{Timeout: cfg.Download.RequestTimeout},
		Limiter:  rate.NewLimiter(rate.Limit(cfg.Download.RequestsPerSecond), cfg.Download.Burst),
	}, logger)

	orchestrator := download.NewOrchestrator(fetcher, cfg.Download.Workers, logger, tracer)
	result := orchestrator.Run(ctx, source, cfg.Symbols, dataTypes, start, end)

	if len(result.Failed) > 0 {
		logger.ErrorContext(ctx, "Download run completed with failures",
			slog.Int("failed", len(result.Failed)),
			slog.Int("total", result.Total))
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseDataTypes(names []string) ([]domain.DataType, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no data types configured")
	}
	types := make([]domain.DataType, 0, len(names))
	for _, name := range names {
		dt, err := domain.ParseDataType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, dt)
	}
	return types, nil
}

// parseDateRange resolves the inclusive date range. An empty start means
// today; an empty end means a single-day range.
func parseDateRange(fromStr, toStr string) (time.Time, time.Time, error) {
	start := time.Now().UTC().Truncate(24 * time.Hour)
	if fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date: %w", err)
		}
		start = parsed
	}

	end := start
	if toStr != "" {
		parsed, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date: %w", err)
		}
		end = parsed
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s is before start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return start, end, nil
}

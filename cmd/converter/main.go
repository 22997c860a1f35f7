package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"bnvision/internal/config"
	"bnvision/internal/convert"
	"bnvision/internal/infrastructure"
	"bnvision/internal/metadata"
	"bnvision/pkg/contracts"
	"bnvision/pkg/contracts/domain"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	fromStr := flag.String("from", "", "start date (YYYY-MM-DD), defaults to today")
	toStr := flag.String("to", "", "end date (YYYY-MM-DD), defaults to the start date")
	stemsStr := flag.String("symbols", "", "comma-separated file stems (e.g. BTCUSDT-1d), empty converts all")
	typesStr := flag.String("types", "", "comma-separated data types, overrides config")
	dest := flag.String("dest", "", "destination root, overrides config")
	batch := flag.Bool("batch", false, "concatenate each pair's files into one range-named output")
	rm := flag.Bool("rm", false, "delete source CSV files after their output verifies readable")
	noMetadata := flag.Bool("no-metadata", false, "skip the exchange-info precision lookup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dest != "" {
		cfg.Dest = *dest
	}
	if *typesStr != "" {
		cfg.DataTypes = splitList(*typesStr)
	}

	logger, closer, err := infrastructure.InitializeLogger(cfg.Logging, "converter")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, runID := infrastructure.NewRunContext(context.Background())
	logger.InfoContext(ctx, "Converter starting",
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

	start, end, err := parseDateRange(*fromStr, *toStr)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid date range", slog.Any("error", err))
		os.Exit(1)
	}

	var fetcher convert.MetadataFetcher
	if !*noMetadata {
		fetcher = metadata.NewClient(source, logger)
	}

	orchestrator := convert.NewOrchestrator(convert.Options{
		Root:         cfg.Dest,
		Source:       source,
		DataTypes:    dataTypes,
		Start:        start,
		End:          end,
		Stems:        splitList(*stemsStr),
		Batch:        *batch,
		DeleteSource: *rm,
		Workers:      cfg.Download.Workers,
	}, fetcher, logger, tracer)

	result, err := orchestrator.Run(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Conversion run failed", slog.Any("error", err))
		os.Exit(1)
	}

	if len(result.Failed) > 0 {
		logger.ErrorContext(ctx, "Conversion run completed with failures",
			slog.Int("failed", len(result.Failed)),
			slog.Int("total", result.TotalFiles))
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

package convert

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"bnvision/internal/dataprocessing"
	"bnvision/internal/exporter"
	"bnvision/internal/files"
	"bnvision/pkg/contracts/domain"
)

// MetadataFetcher supplies the per-symbol precision snapshot for a run.
type MetadataFetcher interface {
	FetchAll(ctx context.Context) (domain.PrecisionMap, error)
}

// Options configures one conversion run.
type Options struct {
	Root      string
	Source    domain.Source
	DataTypes []domain.DataType
	Start     time.Time
	End       time.Time

	// Stems restricts the run to the named pairs. Empty means every
	// discovered pair.
	Stems []string

	// Batch concatenates all files of a pair into one range-named output at
	// the root instead of one output per raw file.
	Batch bool

	// DeleteSource removes each raw CSV after its output verifies readable.
	DeleteSource bool

	Workers int
}

// Result aggregates the outcome of one conversion run.
type Result struct {
	TotalFiles int
	Converted  int
	Failed     []string
}

// Orchestrator discovers conversion pairs and converts them on a bounded
// worker pool. As in the download run, units fail independently: one bad
// pair never aborts its siblings.
type Orchestrator struct {
	opts     Options
	metadata MetadataFetcher
	logger   *slog.Logger
	tracer   trace.Tracer

	normalizer *dataprocessing.Normalizer
	manager    *files.Manager
}

// NewOrchestrator creates a conversion orchestrator. metadata may be nil to
// skip precision lookup entirely.
func NewOrchestrator(opts Options, metadata MetadataFetcher, logger *slog.Logger, tracer trace.Tracer) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Orchestrator{
		opts:       opts,
		metadata:   metadata,
		logger:     logger,
		tracer:     tracer,
		normalizer: dataprocessing.NewNormalizer(logger),
		manager:    files.NewManager(logger),
	}
}

// Run converts every discovered pair in the configured date range.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	discovery := files.NewDiscovery(o.opts.Root, o.opts.Source)
	grouped, pairs, err := discovery.FindPairs(o.opts.DataTypes, o.opts.Start, o.opts.End)
	if err != nil {
		return Result{}, fmt.Errorf("pair discovery failed: %w", err)
	}
	pairs = o.filterPairs(pairs)

	meta := o.fetchMetadata(ctx)

	total := 0
	for _, p := range pairs {
		total += len(grouped[p])
	}

	o.logger.InfoContext(ctx, "Starting conversion run",
		slog.Int("pairs", len(pairs)),
		slog.Int("files", total),
		slog.Bool("batch", o.opts.Batch),
		slog.Int("workers", o.opts.Workers))

	var (
		mu        sync.Mutex
		converted int
		failed    []string
	)

	g := &errgroup.Group{}
	g.SetLimit(o.opts.Workers)

	for _, pair := range pairs {
		rawFiles := grouped[pair]
		g.Go(func() error {
			pairCtx, span := o.tracer.Start(ctx, "convert.pair",
				trace.WithAttributes(
					attribute.String("stem", pair.Stem),
					attribute.String("data_type", pair.DataType.String()),
					attribute.Int("files", len(rawFiles)),
				))
			defer span.End()

			done, bad := o.convertPair(pairCtx, pair, rawFiles, meta)
			if len(bad) > 0 {
				span.SetStatus(codes.Error, fmt.Sprintf("%d of %d files failed", len(bad), len(rawFiles)))
			}

			mu.Lock()
			converted += done
			failed = append(failed, bad...)
			mu.Unlock()
			return nil
		})
	}

	// Pair workers swallow their own errors, Wait only drains.
	_ = g.Wait()

	result := Result{TotalFiles: total, Converted: converted, Failed: failed}

	o.logger.InfoContext(ctx, "Conversion run finished",
		slog.Int("files", result.TotalFiles),
		slog.Int("converted", result.Converted),
		slog.Int("failed", len(result.Failed)))

	return result, nil
}

// fetchMetadata retrieves the precision snapshot once per run. Metadata is
// an enhancement, not a requirement: an unavailable endpoint degrades the
// run to sample-based precision inference.
func (o *Orchestrator) fetchMetadata(ctx context.Context) domain.PrecisionMap {
	if o.metadata == nil {
		return nil
	}
	meta, err := o.metadata.FetchAll(ctx)
	if err != nil {
		o.logger.WarnContext(ctx, "Precision metadata unavailable, falling back to sample inference",
			slog.Any("error", err))
		return nil
	}
	return meta
}

func (o *Orchestrator) filterPairs(pairs []files.Pair) []files.Pair {
	if len(o.opts.Stems) == 0 {
		return pairs
	}
	wanted := make(map[string]struct{}, len(o.opts.Stems))
	for _, s := range o.opts.Stems {
		wanted[s] = struct{}{}
	}
	var kept []files.Pair
	for _, p := range pairs {
		if _, ok := wanted[p.Stem]; ok {
			kept = append(kept, p)
		}
	}
	return kept
}

// convertPair converts one pair's raw files and returns the number of source
// files converted plus the paths that failed.
func (o *Orchestrator) convertPair(ctx context.Context, pair files.Pair, rawFiles []files.RawFile, meta domain.PrecisionMap) (int, []string) {
	var precision *domain.SymbolPrecision
	if rec, ok := meta.Lookup(pair.Stem); ok {
		precision = &rec
	}

	if o.opts.Batch {
		return o.convertBatch(ctx, pair, rawFiles, precision)
	}

	converted := 0
	var failed []string
	for _, rf := range rawFiles {
		if err := o.convertFile(ctx, rf, precision); err != nil {
			failed = append(failed, rf.Path)
			o.logger.ErrorContext(ctx, "File conversion failed",
				slog.String("file", rf.Path),
				slog.Any("error", err))
			continue
		}
		converted++
	}
	return converted, failed
}

// convertFile converts one raw CSV into a parquet file beside it.
func (o *Orchestrator) convertFile(ctx context.Context, rf files.RawFile, precision *domain.SymbolPrecision) error {
	rs, err := dataprocessing.ReadCSVFile(rf.Path)
	if err != nil {
		return err
	}

	normalized, err := o.normalizer.Normalize(rs, rf.DataType, precision)
	if err != nil {
		return fmt.Errorf("normalization failed: %w", err)
	}

	outPath := filepath.Join(filepath.Dir(rf.Path), rf.Stem+".parquet")
	if err := exporter.WriteRowSet(outPath, normalized); err != nil {
		return err
	}

	rows, err := exporter.VerifyReadable(outPath)
	if err != nil {
		return err
	}
	size, _ := o.manager.GetFileSize(outPath)

	o.logger.InfoContext(ctx, "File converted",
		slog.String("file", rf.Path),
		slog.String("output", outPath),
		slog.Int64("rows", rows),
		slog.Int64("size_bytes", size))

	// The output is already verified at this point, so a failed source
	// deletion does not fail the file.
	if o.opts.DeleteSource {
		if err := o.manager.DeleteFile(rf.Path); err != nil {
			o.logger.WarnContext(ctx, "Failed to delete source file",
				slog.String("file", rf.Path), slog.Any("error", err))
		}
	}
	return nil
}

// convertBatch concatenates a pair's raw files in date order and writes one
// output at the destination root, named after the requested range. Days
// missing from the range simply contribute nothing; the actual file count is
// logged.
func (o *Orchestrator) convertBatch(ctx context.Context, pair files.Pair, rawFiles []files.RawFile, precision *domain.SymbolPrecision) (int, []string) {
	if len(rawFiles) == 0 {
		return 0, nil
	}

	allPaths := func() []string {
		paths := make([]string, len(rawFiles))
		for i, rf := range rawFiles {
			paths[i] = rf.Path
		}
		return paths
	}

	combined, err := dataprocessing.ReadCSVFile(rawFiles[0].Path)
	if err != nil {
		o.logger.ErrorContext(ctx, "Batch conversion failed",
			slog.String("pair", pair.String()), slog.Any("error", err))
		return 0, allPaths()
	}
	for _, rf := range rawFiles[1:] {
		next, err := dataprocessing.ReadCSVFile(rf.Path)
		if err == nil {
			err = combined.Append(next)
		}
		if err != nil {
			o.logger.ErrorContext(ctx, "Batch conversion failed",
				slog.String("pair", pair.String()),
				slog.String("file", rf.Path),
				slog.Any("error", err))
			return 0, allPaths()
		}
	}

	normalized, err := o.normalizer.Normalize(combined, pair.DataType, precision)
	if err != nil {
		o.logger.ErrorContext(ctx, "Batch normalization failed",
			slog.String("pair", pair.String()), slog.Any("error", err))
		return 0, allPaths()
	}

	outName := fmt.Sprintf("%s-%s-%s_to_%s.parquet",
		pair.Stem, pair.DataType,
		o.opts.Start.Format("2006-01-02"), o.opts.End.Format("2006-01-02"))
	outPath := filepath.Join(o.opts.Root, outName)

	if err := exporter.WriteRowSet(outPath, normalized); err != nil {
		o.logger.ErrorContext(ctx, "Batch write failed",
			slog.String("pair", pair.String()), slog.Any("error", err))
		return 0, allPaths()
	}

	rows, err := exporter.VerifyReadable(outPath)
	if err != nil {
		o.logger.ErrorContext(ctx, "Batch output unreadable",
			slog.String("output", outPath), slog.Any("error", err))
		return 0, allPaths()
	}

	size, _ := o.manager.GetFileSize(outPath)
	o.logger.InfoContext(ctx, "Batch converted",
		slog.String("pair", pair.String()),
		slog.String("output", outPath),
		slog.Int("source_files", len(rawFiles)),
		slog.Int64("rows", rows),
		slog.Int64("size_bytes", size))

	if o.opts.DeleteSource {
		for _, rf := range rawFiles {
			if err := o.manager.DeleteFile(rf.Path); err != nil {
				o.logger.WarnContext(ctx, "Failed to delete source file",
					slog.String("file", rf.Path), slog.Any("error", err))
			}
		}
	}
	return len(rawFiles), nil
}

package download

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"bnvision/pkg/contracts/domain"
)

// JobFetcher executes a single download job.
type JobFetcher interface {
	Fetch(ctx context.Context, job domain.Job) (string, error)
}

// Result aggregates the outcome of one download run.
type Result struct {
	Total     int
	Succeeded int
	Failed    []domain.Job
}

// Orchestrator expands a request into jobs and runs them on a bounded worker
// pool. Each job's outcome is independent; one failure never aborts siblings,
// and the run always drains the full job set before reporting.
type Orchestrator struct {
	fetcher JobFetcher
	workers int
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewOrchestrator creates a download orchestrator.
func NewOrchestrator(fetcher JobFetcher, workers int, logger *slog.Logger, tracer trace.Tracer) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		fetcher: fetcher,
		workers: workers,
		logger:  logger,
		tracer:  tracer,
	}
}

// Run downloads every (symbol, data type, date) combination in the inclusive
// date range. Failed jobs are reported as they happen and collected in the
// result.
func (o *Orchestrator) Run(ctx context.Context, source domain.Source, symbols []string, dataTypes []domain.DataType, start, end time.Time) Result {
	jobs := ExpandJobs(source, symbols, dataTypes, start, end)
	total := len(jobs)

	o.logger.InfoContext(ctx, "Starting download run",
		slog.Int("jobs", total),
		slog.Int("workers", o.workers))

	var (
		completed atomic.Int64
		mu        sync.Mutex
		failed    []domain.Job
	)

	g := &errgroup.Group{}
	g.SetLimit(o.workers)

	for _, job := range jobs {
		g.Go(func() error {
			jobCtx, span := o.tracer.Start(ctx, "download.job",
				trace.WithAttributes(
					attribute.String("symbol", job.Symbol),
					attribute.String("data_type", job.DataType.String()),
					attribute.String("date", job.DateString()),
				))
			defer span.End()

			_, err := o.fetcher.Fetch(jobCtx, job)
			done := completed.Add(1)

			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				mu.Lock()
				failed = append(failed, job)
				mu.Unlock()
				o.logger.ErrorContext(jobCtx, "Download job failed",
					slog.String("job", job.String()),
					slog.Int64("completed", done),
					slog.Int("total", total),
					slog.Any("error", err))
				return nil
			}

			o.logger.InfoContext(jobCtx, "Download job completed",
				slog.String("job", job.String()),
				slog.Int64("completed", done),
				slog.Int("total", total))
			return nil
		})
	}

	// Workers swallow their own errors, so Wait only blocks for the drain.
	_ = g.Wait()

	result := Result{
		Total:     total,
		Succeeded: total - len(failed),
		Failed:    failed,
	}

	o.logger.InfoContext(ctx, "Download run finished",
		slog.Int("total", result.Total),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", len(result.Failed)))

	return result
}

// ExpandJobs builds the Cartesian product of symbols, data types and the
// inclusive date range. Jobs are ordered by date descending, then symbol,
// then data type — the canonical listing order.
func ExpandJobs(source domain.Source, symbols []string, dataTypes []domain.DataType, start, end time.Time) []domain.Job {
	start = truncateToDay(start)
	end = truncateToDay(end)

	var jobs []domain.Job
	for date := end; !date.Before(start); date = date.AddDate(0, 0, -1) {
		for _, symbol := range symbols {
			for _, dataType := range dataTypes {
				jobs = append(jobs, domain.Job{
					Symbol:   symbol,
					DataType: dataType,
					Date:     date,
					Source:   source,
				})
			}
		}
	}

	sort.SliceStable(jobs, func(i, j int) bool {
		if !jobs[i].Date.Equal(jobs[j].Date) {
			return jobs[i].Date.After(jobs[j].Date)
		}
		if jobs[i].Symbol != jobs[j].Symbol {
			return jobs[i].Symbol < jobs[j].Symbol
		}
		return jobs[i].DataType < jobs[j].DataType
	})

	return jobs
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

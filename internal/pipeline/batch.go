package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of jobs a BatchProcessor runs at once
// unless WithConcurrency says otherwise.
const DefaultConcurrency = 4

// BatchProcessor renders many jobs concurrently.
//
// Design decision: Batching lives outside Pipeline so that a pipeline stays
// focused on one job, and so that every job gets a fresh pipeline from the
// factory. Steps hold no per-job state, but a factory keeps that a property
// of the caller rather than an assumption of the batch code.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each job.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent jobs.
	concurrency int

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent jobs.
// Non-positive values keep DefaultConcurrency.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// Concurrency returns the configured concurrency limit.
func (bp *BatchProcessor) Concurrency() int {
	return bp.concurrency
}

// ProcessBatch runs every job and returns them in input order.
//
// A failing job does not stop the others: its error is recorded in job.Err.
// The returned error is non-nil only when the context ends, in which case
// jobs that never started are marked Cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, jobs []*Job) ([]*Job, error) {
	bp.logger.Info("starting batch rendering",
		"total_jobs", len(jobs),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()
	err := bp.run(ctx, jobs, nil)

	failed := 0
	for _, job := range jobs {
		if job.Err != nil || job.Cancelled {
			failed++
		}
	}
	bp.logger.Info("batch rendering complete",
		"total_jobs", len(jobs),
		"failed", failed,
		"elapsed", time.Since(startTime),
	)

	return jobs, err
}

// ProcessBatchWithCallback runs every job and calls callback as each one
// finishes, with the job's index in jobs. The callback runs on the worker
// goroutine, so it must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	jobs []*Job,
	callback func(job *Job, index int),
) error {
	return bp.run(ctx, jobs, callback)
}

func (bp *BatchProcessor) run(ctx context.Context, jobs []*Job, callback func(*Job, int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				job.Cancelled = true
				return gctx.Err()
			default:
			}

			bp.logger.Debug("rendering job",
				"job", job.Name,
				"index", i+1,
				"total", len(jobs),
			)

			// The error is kept in job.Err so that one bad analysis does not
			// cancel the rest of the batch.
			if err := bp.pipelineFactory().Execute(gctx, job); err != nil {
				bp.logger.Warn("job failed",
					"job", job.Name,
					"error", err,
				)
			}

			if callback != nil {
				callback(job, i)
			}
			return nil
		})
	}

	return g.Wait()
}

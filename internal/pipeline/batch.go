package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"shortsync/internal/logging"
	"shortsync/internal/services"
)

// BatchResult is the outcome of one script in a batch, at its input index.
type BatchResult struct {
	Index int
	Job   *Job
	Err   error
}

// BatchReport collects every result of a Batch call in input order.
type BatchReport struct {
	CorrelationID string
	Results       []BatchResult
}

// Failed counts results that carry an error.
func (r BatchReport) Failed() int {
	n := 0
	for _, result := range r.Results {
		if result.Err != nil {
			n++
		}
	}
	return n
}

// Batch renders scripts with at most concurrency jobs in flight. A failed
// job never cancels its siblings. Cancelling ctx stops scheduling. Scripts
// that never started, including those still waiting for a free slot when
// ctx ended, report the context error at StageCreated.
func (o *Orchestrator) Batch(ctx context.Context, scripts []string, concurrency int) BatchReport {
	if concurrency <= 0 {
		concurrency = 1
	}
	report := BatchReport{
		CorrelationID: uuid.NewString(),
		Results:       make([]BatchResult, len(scripts)),
	}
	ctx = services.WithCorrelationID(ctx, report.CorrelationID)
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("scripts", len(scripts)),
		logging.Int("concurrency", concurrency),
	)

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, text := range scripts {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(scripts); j++ {
				report.Results[j] = BatchResult{Index: j, Err: &PipelineError{Stage: StageCreated, Err: err}}
			}
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				report.Results[i] = BatchResult{Index: i, Err: &PipelineError{Stage: StageCreated, Err: err}}
				return nil
			}
			job, err := o.Run(ctx, text)
			report.Results[i] = BatchResult{Index: i, Job: job, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("scripts", len(scripts)),
		logging.Int("failed", report.Failed()),
	)
	return report
}

// Err joins every failure in the report, or returns nil.
func (r BatchReport) Err() error {
	var errs []error
	for _, result := range r.Results {
		if result.Err != nil {
			errs = append(errs, result.Err)
		}
	}
	return errors.Join(errs...)
}

package scheduler

import (
	"context"
	"fmt"

	"github.com/scale-lab/la-core/internal/monitoring"
)

// Recorder persists the outcome of every leaf.
type Recorder interface {
	Submitted(ctx context.Context, sub Submission) error
	Failed(ctx context.Context, job JobDescription, err error) error
	Rejected(ctx context.Context, r Rejection) error
}

// DispatchOptions controls Dispatch.
type DispatchOptions struct {
	// SkipInvalid submits the valid jobs of a plan that has rejections,
	// recording the rejections. Without it such a plan submits nothing.
	SkipInvalid bool
	// AlreadySubmitted reports identifiers to leave out, e.g. on resume.
	AlreadySubmitted func(identifier string) bool
}

// DispatchSummary counts what Dispatch did.
type DispatchSummary struct {
	Submitted int
	Skipped   int
	Rejected  int
	Failed    int
}

// Dispatch records and submits a plan in order. The first submission failure
// is recorded and ends the dispatch.
func Dispatch(ctx context.Context, plan *Plan, sub *Submitter, rec Recorder, opts DispatchOptions) (DispatchSummary, error) {
	var sum DispatchSummary
	if err := plan.Err(); err != nil && !opts.SkipInvalid {
		return sum, err
	}

	for _, r := range plan.Rejected {
		monitoring.Logf("[sweep] rejected #%d %v: %v", r.Seq, r.Params, r.Err)
		if err := rec.Rejected(ctx, r); err != nil {
			return sum, fmt.Errorf("recording rejection #%d: %w", r.Seq, err)
		}
		sum.Rejected++
	}

	for _, job := range plan.Jobs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if opts.AlreadySubmitted != nil && opts.AlreadySubmitted(job.Identifier) {
			sum.Skipped++
			continue
		}

		s, err := sub.Submit(ctx, job)
		if err != nil {
			sum.Failed++
			if recErr := rec.Failed(ctx, job, err); recErr != nil {
				monitoring.Logf("[sweep] could not record failure of %s: %v", job.Identifier, recErr)
			}
			return sum, err
		}
		if err := rec.Submitted(ctx, s); err != nil {
			return sum, fmt.Errorf("recording submission of %s (scheduler job %q): %w", job.Identifier, s.SchedulerJobID, err)
		}
		sum.Submitted++
	}
	return sum, nil
}

package scheduler

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/scale-lab/la-core/internal/monitoring"
)

var jobIDPattern = regexp.MustCompile(`Submitted batch job (\d+)`)

// SubmitError is a failed scheduler invocation. Submitter never retries.
type SubmitError struct {
	Identifier string
	Output     string
	Err        error
}

func (e *SubmitError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("submit %s: %v", e.Identifier, e.Err)
	}
	return fmt.Sprintf("submit %s: %v: %s", e.Identifier, e.Err, out)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// Submission is the outcome of one accepted job.
type Submission struct {
	Job            JobDescription
	SchedulerJobID string
	DryRun         bool
}

// Submitter hands JobDescriptions to the scheduler, one invocation each.
type Submitter struct {
	executor *Executor
}

// NewSubmitter returns a Submitter using executor.
func NewSubmitter(executor *Executor) *Submitter {
	return &Submitter{executor: executor}
}

// Submit invokes the scheduler once for job.
func (s *Submitter) Submit(ctx context.Context, job JobDescription) (Submission, error) {
	output, err := s.executor.Run(ctx, job.Args)
	if err != nil {
		return Submission{}, &SubmitError{Identifier: job.Identifier, Output: output, Err: err}
	}
	sub := Submission{Job: job, DryRun: s.executor.DryRun}
	if sub.DryRun {
		return sub, nil
	}
	if m := jobIDPattern.FindStringSubmatch(output); m != nil {
		sub.SchedulerJobID = m[1]
	} else {
		monitoring.Logf("[scheduler] %s accepted without a job id: %q", job.Identifier, strings.TrimSpace(output))
	}
	return sub, nil
}

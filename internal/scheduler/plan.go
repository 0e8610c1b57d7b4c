package scheduler

import (
	"fmt"
	"iter"
	"strings"

	"github.com/scale-lab/la-core/internal/campaign"
	"github.com/scale-lab/la-core/internal/sweep"
)

// Rejection is a leaf that failed to build. Identifier is empty when the
// leaf could not be named, or when its name is already taken by an earlier
// leaf, so recording the rejection never overwrites that leaf's entry.
type Rejection struct {
	Seq        int
	Identifier string
	Params     campaign.ParameterSet
	Err        error
}

// Plan is the fully built sweep: every leaf is either a job or a rejection.
type Plan struct {
	Jobs     []JobDescription
	Rejected []Rejection
}

// BuildPlan builds every leaf before anything is submitted. Each leaf takes
// the next number from seq whether or not it builds, so sequence numbers
// match traversal position. A leaf whose identifier repeats an earlier one is
// rejected: both would be submitted under one job name and write one artifact.
func BuildPlan(leaves iter.Seq[campaign.ParameterSet], b *Builder, seq *sweep.Sequence) *Plan {
	p := &Plan{}
	seen := make(map[string]int)
	for leaf := range leaves {
		n := seq.Next()
		job, err := b.Build(n, leaf)
		if err != nil {
			id, _ := b.profile.Schema.Build(leaf)
			p.Rejected = append(p.Rejected, Rejection{Seq: n, Identifier: id, Params: leaf, Err: err})
			continue
		}
		if first, ok := seen[job.Identifier]; ok {
			p.Rejected = append(p.Rejected, Rejection{Seq: n, Params: leaf, Err: &campaign.ConfigError{
				Key:    "identifier",
				Value:  job.Identifier,
				Reason: fmt.Sprintf("same configuration as leaf #%d", first),
			}})
			continue
		}
		seen[job.Identifier] = n
		p.Jobs = append(p.Jobs, job)
	}
	return p
}

// Err summarises every rejection, or returns nil when the plan is clean.
func (p *Plan) Err() error {
	if len(p.Rejected) == 0 {
		return nil
	}
	return &PreflightError{Rejected: p.Rejected}
}

// PreflightError lists every leaf that failed to build.
type PreflightError struct {
	Rejected []Rejection
}

func (e *PreflightError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of the planned leaves are invalid", len(e.Rejected))
	for _, r := range e.Rejected {
		fmt.Fprintf(&b, "\n  #%d %v: %v", r.Seq, r.Params, r.Err)
	}
	return b.String()
}

// Unwrap exposes the individual leaf errors to errors.Is and errors.As.
func (e *PreflightError) Unwrap() []error {
	out := make([]error, len(e.Rejected))
	for i, r := range e.Rejected {
		out[i] = r.Err
	}
	return out
}

package ledger

import (
	"context"

	"github.com/scale-lab/la-core/internal/scheduler"
)

// Recorder writes dispatch outcomes for one campaign.
type Recorder struct {
	ledger     *Ledger
	campaignID string
}

var _ scheduler.Recorder = (*Recorder)(nil)

// NewRecorder returns a Recorder writing into campaignID.
func NewRecorder(l *Ledger, campaignID string) *Recorder {
	return &Recorder{ledger: l, campaignID: campaignID}
}

func (r *Recorder) Submitted(ctx context.Context, sub scheduler.Submission) error {
	return r.ledger.Record(ctx, Submission{
		CampaignID:     r.campaignID,
		Seq:            sub.Job.Seq,
		Identifier:     sub.Job.Identifier,
		Status:         StatusSubmitted,
		SchedulerJobID: sub.SchedulerJobID,
		Memory:         sub.Job.Request.Memory,
		TimeLimit:      sub.Job.Request.Time,
	})
}

func (r *Recorder) Failed(ctx context.Context, job scheduler.JobDescription, err error) error {
	return r.ledger.Record(ctx, Submission{
		CampaignID: r.campaignID,
		Seq:        job.Seq,
		Identifier: job.Identifier,
		Status:     StatusFailed,
		Memory:     job.Request.Memory,
		TimeLimit:  job.Request.Time,
		Error:      err.Error(),
	})
}

// Rejected records a leaf that never reached the scheduler. A leaf that
// could not be named is keyed by its parameter set.
func (r *Recorder) Rejected(ctx context.Context, rej scheduler.Rejection) error {
	id := rej.Identifier
	if id == "" {
		id = rej.Params.String()
	}
	return r.ledger.Record(ctx, Submission{
		CampaignID: r.campaignID,
		Seq:        rej.Seq,
		Identifier: id,
		Status:     StatusRejected,
		Error:      rej.Err.Error(),
	})
}

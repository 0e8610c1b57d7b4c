package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the recorded outcome of one leaf.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusFailed    Status = "failed"
	StatusRejected  Status = "rejected"
)

// ErrNotFound is returned when a campaign does not exist.
var ErrNotFound = errors.New("campaign not found")

// Campaign is one sweep run, or the resumable series of runs sharing its id.
type Campaign struct {
	ID            string
	Kind          string
	SchemaVersion int
	DryRun        bool
	ConfigPath    string
	LeafCount     int
	CreatedAt     time.Time
}

// Submission is the ledger row of one leaf.
type Submission struct {
	CampaignID     string
	Seq            int
	Identifier     string
	Status         Status
	SchedulerJobID string
	Memory         string
	TimeLimit      string
	Error          string
	SubmittedAt    time.Time
}

// CreateCampaign inserts a new campaign with a fresh id.
func (l *Ledger) CreateCampaign(ctx context.Context, c Campaign) (Campaign, error) {
	c.ID = uuid.NewString()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = l.clock.Now()
	}
	err := retryOnBusy(l.clock, func() error {
		_, err := l.db.ExecContext(ctx, `
			INSERT INTO campaigns (campaign_id, kind, schema_version, dry_run, config_path, leaf_count, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Kind, c.SchemaVersion, boolInt(c.DryRun), nullStr(c.ConfigPath), c.LeafCount,
			c.CreatedAt.UTC().Format(time.RFC3339),
		)
		return err
	})
	if err != nil {
		return Campaign{}, fmt.Errorf("inserting campaign: %w", err)
	}
	return c, nil
}

// GetCampaign returns the campaign with the given id.
func (l *Ledger) GetCampaign(ctx context.Context, id string) (Campaign, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT campaign_id, kind, schema_version, dry_run, config_path, leaf_count, created_at
		FROM campaigns WHERE campaign_id = ?`, id)
	return scanCampaign(row)
}

// LatestCampaign returns the most recently created campaign of kind. Dry-run
// campaigns are included only when dryRun is set.
func (l *Ledger) LatestCampaign(ctx context.Context, kind string, dryRun bool) (Campaign, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT campaign_id, kind, schema_version, dry_run, config_path, leaf_count, created_at
		FROM campaigns
		WHERE kind = ? AND (dry_run = 0 OR ?)
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`, kind, boolInt(dryRun))
	return scanCampaign(row)
}

func scanCampaign(row *sql.Row) (Campaign, error) {
	var (
		c          Campaign
		dryRun     int
		configPath sql.NullString
		createdAt  string
	)
	err := row.Scan(&c.ID, &c.Kind, &c.SchemaVersion, &dryRun, &configPath, &c.LeafCount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	if err != nil {
		return Campaign{}, fmt.Errorf("scanning campaign: %w", err)
	}
	c.DryRun = dryRun != 0
	c.ConfigPath = configPath.String
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Campaign{}, fmt.Errorf("parsing created_at for campaign %s: %w", c.ID, err)
	}
	c.CreatedAt = t
	return c, nil
}

// UpdateLeafCount records how many leaves the campaign's sweep planned.
func (l *Ledger) UpdateLeafCount(ctx context.Context, id string, n int) error {
	err := retryOnBusy(l.clock, func() error {
		_, err := l.db.ExecContext(ctx, `UPDATE campaigns SET leaf_count = ? WHERE campaign_id = ?`, n, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("updating leaf count of campaign %s: %w", id, err)
	}
	return nil
}

// Record inserts or replaces the row for s.Identifier within its campaign.
// A resumed sweep thereby turns an earlier failed row into a submitted one.
func (l *Ledger) Record(ctx context.Context, s Submission) error {
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = l.clock.Now()
	}
	err := retryOnBusy(l.clock, func() error {
		_, err := l.db.ExecContext(ctx, `
			INSERT INTO submissions (
				campaign_id, seq, identifier, status, scheduler_job_id, memory, time_limit, error, submitted_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (campaign_id, identifier) DO UPDATE SET
				seq = excluded.seq,
				status = excluded.status,
				scheduler_job_id = excluded.scheduler_job_id,
				memory = excluded.memory,
				time_limit = excluded.time_limit,
				error = excluded.error,
				submitted_at = excluded.submitted_at`,
			s.CampaignID, s.Seq, s.Identifier, string(s.Status),
			nullStr(s.SchedulerJobID), nullStr(s.Memory), nullStr(s.TimeLimit), nullStr(s.Error),
			s.SubmittedAt.UTC().Format(time.RFC3339),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("recording %s %s: %w", s.Status, s.Identifier, err)
	}
	return nil
}

// Submissions returns a campaign's rows in sequence order.
func (l *Ledger) Submissions(ctx context.Context, campaignID string) ([]Submission, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT campaign_id, seq, identifier, status, scheduler_job_id, memory, time_limit, error, submitted_at
		FROM submissions WHERE campaign_id = ?
		ORDER BY seq`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("querying submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var (
			s                         Submission
			status                    string
			jobID, mem, limit, errMsg sql.NullString
			submittedAt               string
		)
		if err := rows.Scan(&s.CampaignID, &s.Seq, &s.Identifier, &status, &jobID, &mem, &limit, &errMsg, &submittedAt); err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		s.Status = Status(status)
		s.SchedulerJobID = jobID.String
		s.Memory = mem.String
		s.TimeLimit = limit.String
		s.Error = errMsg.String
		if s.SubmittedAt, err = time.Parse(time.RFC3339, submittedAt); err != nil {
			return nil, fmt.Errorf("parsing submitted_at for %s: %w", s.Identifier, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SubmittedIdentifiers returns the identifiers already accepted by the
// scheduler within a campaign.
func (l *Ledger) SubmittedIdentifiers(ctx context.Context, campaignID string) (map[string]bool, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT identifier FROM submissions WHERE campaign_id = ? AND status = ?`,
		campaignID, string(StatusSubmitted))
	if err != nil {
		return nil, fmt.Errorf("querying submitted identifiers: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// nullStr returns nil for empty strings, pointer to string otherwise.
func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

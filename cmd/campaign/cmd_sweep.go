package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/scale-lab/la-core/internal/campaign"
	"github.com/scale-lab/la-core/internal/config"
	"github.com/scale-lab/la-core/internal/ledger"
	"github.com/scale-lab/la-core/internal/monitoring"
	"github.com/scale-lab/la-core/internal/scheduler"
	"github.com/scale-lab/la-core/internal/sweep"
)

// firstSeq numbers the first leaf of every sweep.
const firstSeq = 1

// buildPlan expands the campaign into jobs and rejections without touching
// the scheduler.
func buildPlan(cfg *config.Config) (*campaign.Profile, *scheduler.Plan, error) {
	profile, err := cfg.Profile()
	if err != nil {
		return nil, nil, err
	}
	sw, err := sweep.NewSweeper(profile, cfg.Dimensions)
	if err != nil {
		return nil, nil, err
	}
	b := scheduler.NewBuilder(profile, cfg.Scheduler, cfg.Resources)
	return profile, scheduler.BuildPlan(sw.Leaves(), b, sweep.NewSequence(firstSeq)), nil
}

func printPlan(w io.Writer, plan *scheduler.Plan, verbose bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tIDENTIFIER\tMEMORY\tTIME")
	for _, j := range plan.Jobs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", j.Seq, j.Identifier, j.Request.Memory, j.Request.Time)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if verbose {
		for _, j := range plan.Jobs {
			fmt.Fprintln(w, j.CommandLine())
		}
	}
	for _, r := range plan.Rejected {
		fmt.Fprintf(w, "REJECTED #%d %v: %v\n", r.Seq, r.Params, r.Err)
	}
	fmt.Fprintf(w, "%d jobs, %d rejected\n", len(plan.Jobs), len(plan.Rejected))
	return nil
}

func newPlanCmd(env *environment, g *globalFlags) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "List every leaf of the sweep without submitting anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(env, g)
			if err != nil {
				return err
			}
			_, plan, err := buildPlan(cfg)
			if err != nil {
				return err
			}
			if err := printPlan(cmd.OutOrStdout(), plan, verbose); err != nil {
				return err
			}
			return plan.Err()
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "also print the full command line of every job")
	return cmd
}

type sweepFlags struct {
	dryRun      bool
	resume      bool
	campaignID  string
	skipInvalid bool
}

func newSweepCmd(env *environment, g *globalFlags) *cobra.Command {
	f := &sweepFlags{}
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Submit one batch job per leaf configuration",
		Long: `sweep plans every leaf first. If any leaf is invalid nothing is
submitted unless --skip-invalid is given. Each outcome is recorded in the
ledger; --resume continues the latest campaign and skips identifiers it has
already submitted. A failed submission stops the sweep and is not retried.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(env, g)
			if err != nil {
				return err
			}
			return runSweep(cmd.Context(), cmd.OutOrStdout(), env, cfg, configPathOf(env, g), f)
		},
	}
	fl := cmd.Flags()
	fl.BoolVarP(&f.dryRun, "dry-run", "n", false, "print the scheduler commands instead of running them")
	fl.BoolVar(&f.resume, "resume", false, "continue the latest campaign of this kind")
	fl.StringVar(&f.campaignID, "campaign", "", "continue the campaign with this id (implies --resume)")
	fl.BoolVar(&f.skipInvalid, "skip-invalid", false, "submit the valid leaves of a plan that has invalid ones")
	return cmd
}

func runSweep(ctx context.Context, out io.Writer, env *environment, cfg *config.Config, cfgPath string, f *sweepFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	profile, plan, err := buildPlan(cfg)
	if err != nil {
		return err
	}
	if err := plan.Err(); err != nil && !f.skipInvalid {
		return fmt.Errorf("nothing submitted: %w", err)
	}

	l, err := ledger.Open(cfg.Ledger)
	if err != nil {
		return err
	}
	defer l.Close()

	c, err := openCampaign(ctx, l, profile, cfgPath, f)
	if err != nil {
		return err
	}
	leaves := len(plan.Jobs) + len(plan.Rejected)
	if err := l.UpdateLeafCount(ctx, c.ID, leaves); err != nil {
		return err
	}
	done, err := l.SubmittedIdentifiers(ctx, c.ID)
	if err != nil {
		return err
	}

	if !f.dryRun {
		if err := env.fs.MkdirAll(cfg.Scheduler.OutputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}

	executor := &scheduler.Executor{Runner: env.runner, DryRun: f.dryRun, Out: out}
	sum, err := scheduler.Dispatch(ctx, plan, scheduler.NewSubmitter(executor), ledger.NewRecorder(l, c.ID),
		scheduler.DispatchOptions{
			SkipInvalid:      f.skipInvalid,
			AlreadySubmitted: func(id string) bool { return done[id] },
		})
	fmt.Fprintf(out, "campaign %s: %d submitted, %d already submitted, %d rejected, %d failed of %d leaves\n",
		c.ID, sum.Submitted, sum.Skipped, sum.Rejected, sum.Failed, leaves)
	return err
}

// openCampaign resumes the requested campaign or starts a new one.
func openCampaign(ctx context.Context, l *ledger.Ledger, profile *campaign.Profile, cfgPath string, f *sweepFlags) (ledger.Campaign, error) {
	if !f.resume && f.campaignID == "" {
		c, err := l.CreateCampaign(ctx, ledger.Campaign{
			Kind:          string(profile.Kind),
			SchemaVersion: profile.Schema.Version,
			DryRun:        f.dryRun,
			ConfigPath:    cfgPath,
		})
		if err != nil {
			return ledger.Campaign{}, err
		}
		monitoring.Logf("[sweep] started campaign %s", c.ID)
		return c, nil
	}

	var (
		c   ledger.Campaign
		err error
	)
	if f.campaignID != "" {
		c, err = l.GetCampaign(ctx, f.campaignID)
	} else {
		c, err = l.LatestCampaign(ctx, string(profile.Kind), f.dryRun)
	}
	if errors.Is(err, ledger.ErrNotFound) {
		return ledger.Campaign{}, fmt.Errorf("no %s campaign to resume in the ledger", profile.Kind)
	}
	if err != nil {
		return ledger.Campaign{}, err
	}
	if c.Kind != string(profile.Kind) {
		return ledger.Campaign{}, fmt.Errorf("campaign %s is a %s sweep, not %s", c.ID, c.Kind, profile.Kind)
	}
	if c.SchemaVersion != profile.Schema.Version {
		return ledger.Campaign{}, fmt.Errorf("campaign %s used identifier schema v%d, current is v%d",
			c.ID, c.SchemaVersion, profile.Schema.Version)
	}
	if c.DryRun && !f.dryRun {
		return ledger.Campaign{}, fmt.Errorf("campaign %s was a dry run; start a new campaign to submit", c.ID)
	}
	monitoring.Logf("[sweep] resuming campaign %s", c.ID)
	return c, nil
}

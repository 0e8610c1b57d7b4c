package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/scale-lab/la-core/internal/campaign"
	"github.com/scale-lab/la-core/internal/ledger"
	"github.com/scale-lab/la-core/internal/monitoring"
	"github.com/scale-lab/la-core/internal/report"
	"github.com/scale-lab/la-core/internal/results"
)

func newAggregateCmd(env *environment, g *globalFlags) *cobra.Command {
	var (
		skipEmpty bool
		table     string
		promPath  string
		namespace string
	)
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Read every artifact back into the result table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(env, g)
			if err != nil {
				return err
			}
			profile, err := cfg.Profile()
			if err != nil {
				return err
			}
			rows, sum, err := results.Collect(env.fs, profile, results.Options{
				OutputDir: cfg.Scheduler.OutputDir,
				SkipEmpty: skipEmpty,
			})
			if err != nil {
				return err
			}

			if table == "" {
				table = cfg.Table
			}
			if err := results.NewTableWriter(profile).WriteFile(env.fs, table, rows); err != nil {
				return err
			}
			if promPath != "" {
				if err := monitoring.WriteRateTextfile(promPath, namespace, rateSamples(profile, rows)); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", sum, table)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.BoolVar(&skipEmpty, "skip-empty", false, "leave artifacts without any measurement out of the table")
	fl.StringVarP(&table, "output", "o", "", "result table path (default from the campaign file)")
	fl.StringVar(&promPath, "prom", "", "also write a Prometheus textfile with the aggregated rates")
	fl.StringVar(&namespace, "namespace", "lacore", "metric namespace for --prom")
	return cmd
}

// rateSamples flattens rows into one sample per identifier and class.
func rateSamples(profile *campaign.Profile, rows []results.Row) []monitoring.RateSample {
	classes := results.Classes(profile.Extraction)
	out := make([]monitoring.RateSample, 0, len(rows)*len(classes))
	for _, row := range rows {
		for i, c := range classes {
			if i >= len(row.Metrics) {
				break
			}
			m := row.Metrics[i]
			out = append(out, monitoring.RateSample{
				Identifier: row.Identifier,
				Class:      c.Name,
				Count:      m.Count,
				Mean:       m.Mean,
				Peak:       m.Peak,
			})
		}
	}
	return out
}

func newReportCmd(env *environment, g *globalFlags) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Plot per-class rates against problem size",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(env, g)
			if err != nil {
				return err
			}
			profile, err := cfg.Profile()
			if err != nil {
				return err
			}
			rows, _, err := results.Collect(env.fs, profile, results.Options{
				OutputDir: cfg.Scheduler.OutputDir,
				SkipEmpty: true,
			})
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.ReportDir
			}
			files, err := report.Generate(env.fs, dir, profile, rows)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "report directory (default from the campaign file)")
	return cmd
}

func newStatusCmd(env *environment, g *globalFlags) *cobra.Command {
	var (
		campaignID string
		dryRun     bool
		all        bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which submitted jobs have produced artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(env, g)
			if err != nil {
				return err
			}
			profile, err := cfg.Profile()
			if err != nil {
				return err
			}

			l, err := ledger.Open(cfg.Ledger)
			if err != nil {
				return err
			}
			defer l.Close()

			ctx := cmd.Context()
			var c ledger.Campaign
			if campaignID != "" {
				c, err = l.GetCampaign(ctx, campaignID)
			} else {
				c, err = l.LatestCampaign(ctx, string(profile.Kind), dryRun)
			}
			var subs []ledger.Submission
			switch {
			case errors.Is(err, ledger.ErrNotFound):
				monitoring.Logf("[status] no %s campaign in %s; listing artifacts only", profile.Kind, cfg.Ledger)
			case err != nil:
				return err
			default:
				if subs, err = l.Submissions(ctx, c.ID); err != nil {
					return err
				}
			}

			artifacts, _, err := results.NewScanner(env.fs, cfg.Scheduler.OutputDir, profile.Schema).Scan()
			if err != nil {
				return err
			}
			rep := ledger.Reconcile(subs, results.Identifiers(artifacts))
			return printStatus(cmd.OutOrStdout(), c, rep, all)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&campaignID, "campaign", "", "campaign id (default: latest of this kind)")
	fl.BoolVar(&dryRun, "dry-run", false, "include dry-run campaigns when picking the latest")
	fl.BoolVarP(&all, "all", "a", false, "list complete entries too")
	return cmd
}

func printStatus(w io.Writer, c ledger.Campaign, rep ledger.Report, all bool) error {
	if c.ID != "" {
		fmt.Fprintf(w, "campaign %s (%s, %d leaves, started %s)\n",
			c.ID, c.Kind, c.LeafCount, c.CreatedAt.Format("2006-01-02 15:04"))
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tIDENTIFIER\tSTATE\tJOB\tERROR")
	for _, e := range rep.Entries {
		if e.State == ledger.StateComplete && !all {
			continue
		}
		seq := "-"
		if e.Seq >= 0 {
			seq = fmt.Sprint(e.Seq)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", seq, e.Identifier, e.State, e.SchedulerJobID, e.Error)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	counts := make([]string, len(ledger.States))
	for i, s := range ledger.States {
		counts[i] = fmt.Sprintf("%s=%d", s, rep.Counts[s])
	}
	fmt.Fprintln(w, strings.Join(counts, " "))
	return nil
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scale-lab/la-core/internal/campaign"
	"github.com/scale-lab/la-core/internal/config"
	"github.com/scale-lab/la-core/internal/fsutil"
	"github.com/scale-lab/la-core/internal/monitoring"
	"github.com/scale-lab/la-core/internal/scheduler"
	"github.com/scale-lab/la-core/internal/version"
)

// environment carries the process-level dependencies so tests can swap the
// filesystem and the scheduler process runner.
type environment struct {
	fs     fsutil.FileSystem
	runner scheduler.Runner
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	kind       string
	sets       []string
	quiet      bool
}

func newRootCmd(env *environment) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "campaign",
		Short: "Generate benchmark sweeps and aggregate their results",
		Long: `campaign expands a benchmarking campaign into one batch job per
configuration, submits them to the scheduler, and later reads the job
artifacts back into a single table of rates.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.quiet {
				monitoring.SetLogger(nil)
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "campaign file (.yaml, .yml or .json); defaults to "+config.DefaultConfigPath+" when present")
	pf.StringVarP(&g.kind, "kind", "k", "", fmt.Sprintf("sweep kind %v, used when the campaign file names none", campaign.Kinds()))
	pf.StringArrayVar(&g.sets, "set", nil, "override a dimension list, e.g. --set sizes=32:1024:x2 --set use_scratch=YES,NO; keys: "+
		strings.Join(config.DimensionKeys(), ", "))
	pf.BoolVarP(&g.quiet, "quiet", "q", false, "suppress diagnostics")

	root.AddCommand(
		newPlanCmd(env, g),
		newSweepCmd(env, g),
		newStatusCmd(env, g),
		newAggregateCmd(env, g),
		newReportCmd(env, g),
	)
	return root
}

// loadConfig resolves the campaign: the named file, else the default file
// when it exists, else the stock campaign of --kind. Dimension overrides are
// applied last and the result is validated again.
func loadConfig(env *environment, g *globalFlags) (*config.Config, error) {
	fallback := campaign.Kind(g.kind)
	if fallback == "" {
		fallback = campaign.KindDGEMM
	}

	path := g.configPath
	if path == "" && env.fs.Exists(config.DefaultConfigPath) {
		path = config.DefaultConfigPath
	}

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.Load(path, fallback)
	} else {
		cfg, err = config.DefaultConfig(fallback)
	}
	if err != nil {
		return nil, err
	}
	if g.kind != "" && cfg.Kind != campaign.Kind(g.kind) {
		return nil, &campaign.ConfigError{Key: "kind", Value: g.kind, Reason: fmt.Sprintf("campaign file %s is for %s", path, cfg.Kind)}
	}

	for _, set := range g.sets {
		key, value, ok := strings.Cut(set, "=")
		if !ok {
			return nil, &campaign.ConfigError{Key: set, Reason: "override must be key=value"}
		}
		if err := cfg.Override(strings.TrimSpace(key), value); err != nil {
			return nil, err
		}
	}
	if len(g.sets) > 0 {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration after overrides: %w", err)
		}
	}
	monitoring.Logf("[config] %s", cfg.Summary())
	return cfg, nil
}

// configPathOf returns the file the campaign came from, for the ledger.
func configPathOf(env *environment, g *globalFlags) string {
	if g.configPath != "" {
		return g.configPath
	}
	if env.fs.Exists(config.DefaultConfigPath) {
		return config.DefaultConfigPath
	}
	return ""
}

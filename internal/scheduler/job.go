// Package scheduler turns leaf configurations into batch job descriptions
// and hands them to the external batch scheduler.
package scheduler

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/scale-lab/la-core/internal/campaign"
	"github.com/scale-lab/la-core/internal/sweep"
)

// Settings holds the invariant parts of every job command line.
type Settings struct {
	Command   string   `json:"command" yaml:"command"`
	Tasks     int      `json:"tasks" yaml:"tasks"`
	Partition string   `json:"partition" yaml:"partition"`
	ExtraArgs []string `json:"extra_args,omitempty" yaml:"extra_args,omitempty"`
	OutputDir string   `json:"output_dir" yaml:"output_dir"`
	Runner    string   `json:"runner" yaml:"runner"`
	Simulator string   `json:"simulator" yaml:"simulator"`
	Script    string   `json:"script" yaml:"script"`
	Workload  string   `json:"workload" yaml:"workload"`
}

// Validate reports the first missing setting.
func (s Settings) Validate() error {
	required := []struct{ key, value string }{
		{"scheduler.command", s.Command},
		{"scheduler.partition", s.Partition},
		{"scheduler.output_dir", s.OutputDir},
		{"scheduler.runner", s.Runner},
		{"scheduler.simulator", s.Simulator},
		{"scheduler.script", s.Script},
		{"scheduler.workload", s.Workload},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &campaign.ConfigError{Key: r.key, Reason: "must be set"}
		}
	}
	if s.Tasks < 1 {
		return &campaign.ConfigError{Key: "scheduler.tasks", Value: strconv.Itoa(s.Tasks), Reason: "must be at least 1"}
	}
	return nil
}

// JobDescription is everything needed to submit one leaf configuration.
type JobDescription struct {
	Seq        int
	Identifier string
	Params     campaign.ParameterSet
	Request    sweep.Request
	OutputPath string
	// Args is the full argv, scheduler command first.
	Args []string
}

// CommandLine renders Args for display, quoting arguments that need it.
func (j JobDescription) CommandLine() string {
	parts := make([]string, len(j.Args))
	for i, a := range j.Args {
		parts[i] = shellQuote(a)
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`*?[]{}()<>|&;!#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Builder derives JobDescriptions for one sweep kind.
type Builder struct {
	profile   *campaign.Profile
	settings  Settings
	estimator *sweep.Estimator
}

// NewBuilder returns a Builder. Resources are looked up on the profile's
// resource key.
func NewBuilder(profile *campaign.Profile, settings Settings, tables sweep.Tables) *Builder {
	return &Builder{
		profile:   profile,
		settings:  settings,
		estimator: sweep.NewEstimator(profile.ResourceKey, tables),
	}
}

// Build names the leaf, sizes it and constructs its command line. Any
// ConfigError is returned untouched so callers can report the key.
func (b *Builder) Build(seq int, ps campaign.ParameterSet) (JobDescription, error) {
	id, err := b.profile.Schema.Build(ps)
	if err != nil {
		return JobDescription{}, err
	}
	req, err := b.estimator.Estimate(ps)
	if err != nil {
		return JobDescription{}, err
	}
	simArgs, err := b.simulatorArgs(ps)
	if err != nil {
		return JobDescription{}, err
	}

	out := path.Join(b.settings.OutputDir, id)
	args := []string{b.settings.Command,
		"-n", strconv.Itoa(b.settings.Tasks),
		"-p", b.settings.Partition,
	}
	args = append(args, b.settings.ExtraArgs...)
	args = append(args,
		"--mem="+req.Memory,
		"-t", req.Time,
		"-o", out,
		"-J", id,
		b.settings.Runner,
		b.settings.Simulator,
		b.settings.Script,
	)
	args = append(args, simArgs...)
	args = append(args, "--mem_size="+req.Memory+"B")

	return JobDescription{
		Seq:        seq,
		Identifier: id,
		Params:     ps,
		Request:    req,
		OutputPath: out,
		Args:       args,
	}, nil
}

// simulatorArgs returns the workload command followed by the simulator's
// configuration flags. Flags for a disabled feature are omitted, not passed
// as false.
func (b *Builder) simulatorArgs(ps campaign.ParameterSet) ([]string, error) {
	if !b.profile.Hierarchical {
		logSize, err := ps.Int(campaign.ParamLogSize)
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("--cmd=%s --log_size=%d", b.settings.Workload, logSize)}, nil
	}

	size, err := ps.Int(campaign.ParamSize)
	if err != nil {
		return nil, err
	}
	scratch, err := sweep.DecodeScratch(ps)
	if err != nil {
		return nil, err
	}
	exec, err := sweep.DecodeExecUnit(ps)
	if err != nil {
		return nil, err
	}
	hier, err := sweep.DecodeHierarchy(ps)
	if err != nil {
		return nil, err
	}

	cmd := fmt.Sprintf("--cmd=%s --size=%d --bs=%d", b.settings.Workload, size, size)
	var flags []string
	switch m := scratch.(type) {
	case sweep.ScratchOn:
		cmd += fmt.Sprintf(" --scratch_size=%d", m.SizeLog)
		flags = append(flags,
			fmt.Sprintf("--scratch_size=%dB", 1<<m.SizeLog),
			fmt.Sprintf("--scratch_line_size=%d", m.Line))
	case sweep.ScratchOff:
		cmd += " --no_scratch"
	}
	if b.profile.Panel && !ps.Enabled(campaign.ParamUsePanel) {
		cmd += " --no_panel"
	}

	flags = append(flags,
		fmt.Sprintf("--la_vec_nodes=%d", exec.VecNodes),
		fmt.Sprintf("--la_simd_width=%d", exec.SIMD))

	switch m := hier.(type) {
	case sweep.DCache:
		flags = append(flags,
			fmt.Sprintf("--cache_line_size=%d", m.CacheLine),
			fmt.Sprintf("--l1d_size=%dB", 1<<m.L1DSizeLog),
			fmt.Sprintf("--l2_size=%dB", 1<<m.L2SizeLog),
			"--la_use_dcache=1",
			"--la_use_l2cache=0",
			"--la_cache_banks=0",
			"--la_cache_size=0B")
	case sweep.LACacheDirect:
		flags = append(flags, laCacheFlags(m.CacheLine, m.L2SizeLog, m.Banks, m.SizeLog, false)...)
	case sweep.LACacheOverL2:
		flags = append(flags, laCacheFlags(m.CacheLine, m.L2SizeLog, m.Banks, m.SizeLog, true)...)
	default:
		return nil, fmt.Errorf("unhandled memory hierarchy %T", hier)
	}

	return append([]string{cmd}, flags...), nil
}

func laCacheFlags(line, l2SizeLog, banks, sizeLog int, overL2 bool) []string {
	useL2 := "0"
	if overL2 {
		useL2 = "1"
	}
	return []string{
		fmt.Sprintf("--cache_line_size=%d", line),
		fmt.Sprintf("--l2_size=%dB", 1<<l2SizeLog),
		"--la_use_dcache=0",
		"--la_use_l2cache=" + useL2,
		fmt.Sprintf("--la_cache_banks=%d", banks),
		fmt.Sprintf("--la_cache_size=%dB", 1<<sizeLog),
	}
}

// Package config loads campaign files. A campaign file names the sweep kind
// and overrides any part of that kind's defaults: dimension lists, resource
// tables, scheduler settings and output paths.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scale-lab/la-core/internal/campaign"
	"github.com/scale-lab/la-core/internal/scheduler"
	"github.com/scale-lab/la-core/internal/sweep"
)

// DefaultConfigPath is where the CLI looks for a campaign file when none is
// given.
const DefaultConfigPath = "campaign.yaml"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is one campaign.
type Config struct {
	Kind       campaign.Kind      `json:"kind" yaml:"kind"`
	Dimensions sweep.Dimensions   `json:"dimensions" yaml:"dimensions"`
	Resources  sweep.Tables       `json:"resources" yaml:"resources"`
	Scheduler  scheduler.Settings `json:"scheduler" yaml:"scheduler"`
	// Table is the aggregated TSV written by the aggregate step.
	Table string `json:"table" yaml:"table"`
	// Ledger is the sqlite submission ledger.
	Ledger string `json:"ledger" yaml:"ledger"`
	// ReportDir receives plots and chart pages.
	ReportDir string `json:"report_dir" yaml:"report_dir"`
}

// Profile returns the sweep kind's profile.
func (c *Config) Profile() (*campaign.Profile, error) {
	return campaign.Lookup(c.Kind)
}

// DefaultConfig returns the stock campaign for kind.
func DefaultConfig(kind campaign.Kind) (*Config, error) {
	if _, err := campaign.Lookup(kind); err != nil {
		return nil, err
	}
	cfg := &Config{
		Kind: kind,
		Scheduler: scheduler.Settings{
			Command:   "sbatch",
			Tasks:     1,
			Partition: "batch",
			OutputDir: "output",
			Runner:    "./runner.sh",
			Simulator: "../../build/RISCV_LA_CORE/gem5.opt",
			Script:    "../../configs/thesis/full_timing_la_core.py",
		},
		Table:     "parsed.tsv",
		Ledger:    "campaign.db",
		ReportDir: "report",
	}

	switch kind {
	case campaign.KindLUSolve:
		cfg.Dimensions = sweep.Dimensions{LogSizes: []int{9, 10}}
		cfg.Resources = sweep.Tables{
			Memory: map[string]string{
				"32": "512M", "64": "1G", "128": "4G", "256": "32G",
				"512": "64G", "1024": "128G", "2048": "128G",
			},
			Time: map[string]string{
				"32": "00:05:00", "64": "00:10:00", "128": "00:30:00", "256": "01:00:00",
				"512": "10:00:00", "1024": "30:00:00", "2048": "48:00:00",
			},
		}
		cfg.Scheduler.Simulator = "../../build/X86/gem5.opt"
		cfg.Scheduler.Script = "../../configs/thesis/x86_O3.py"
		cfg.Scheduler.Workload = "../../../linalg-benchmarks/benchmarks/out/dlu_solve_x86_sweep"
	default:
		cfg.Dimensions = sweep.Dimensions{
			Sizes:            []int{32, 64, 128, 256, 512, 1024},
			UseScratch:       []string{campaign.Yes},
			ScratchLines:     []int{128},
			ScratchSizeLogs:  []int{16},
			SIMDWidths:       []int{4, 8},
			VecNodes:         []int{8, 16},
			CacheLines:       []int{128},
			L2SizeLogs:       []int{18},
			L1DSizeLogs:      []int{16},
			LABanks:          []int{1, 2, 4, 8, 16},
			LASizeLogsOverL2: []int{16},
		}
		if kind == campaign.KindDGEMM {
			cfg.Dimensions.UsePanel = []string{campaign.Yes}
		}
		cfg.Resources = sweep.Tables{
			Memory: map[string]string{
				"32": "512M", "64": "1G", "128": "4G", "256": "32G", "512": "64G", "1024": "128G",
			},
			Time: map[string]string{
				"32": "00:05:00", "64": "00:10:00", "128": "00:30:00", "256": "01:00:00", "512": "04:00:00", "1024": "08:00:00",
			},
		}
		cfg.Scheduler.Workload = "./" + string(kind) + "_la_core_sweep"
	}
	return cfg, nil
}

// header is decoded first to learn the kind, so the rest of the file can be
// laid over that kind's defaults.
type header struct {
	Kind campaign.Kind `json:"kind" yaml:"kind"`
}

// Load reads a campaign file (.json, .yaml or .yml). Fields omitted from the
// file keep the defaults of its kind, so partial files are safe. When the
// file names no kind, fallback is used.
func Load(path string, fallback campaign.Kind) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Decode(data, ext == ".json", fallback)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	return cfg, nil
}

// Decode parses a campaign document onto the defaults of its kind and
// validates the result. Unknown keys are rejected.
func Decode(data []byte, isJSON bool, fallback campaign.Kind) (*Config, error) {
	var h header
	var err error
	if isJSON {
		err = json.Unmarshal(data, &h)
	} else {
		err = yaml.Unmarshal(data, &h)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	kind := h.Kind
	if kind == "" {
		kind = fallback
	}

	cfg, err := DefaultConfig(kind)
	if err != nil {
		return nil, err
	}
	// Decoding merges into existing maps, so a table given in the file must
	// start empty to replace the default one.
	defaults := cfg.Resources
	cfg.Resources = sweep.Tables{}
	if err := decodeStrict(data, isJSON, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Kind == "" {
		cfg.Kind = kind
	}
	if cfg.Resources.Memory == nil {
		cfg.Resources.Memory = defaults.Memory
	}
	if cfg.Resources.Time == nil {
		cfg.Resources.Time = defaults.Time
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func decodeStrict(data []byte, isJSON bool, v any) error {
	if isJSON {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the whole campaign: kind, dimensions, resource tables,
// scheduler settings and paths. Resource coverage of every swept size is
// checked at planning time, where the offending leaf can be named.
func (c *Config) Validate() error {
	profile, err := c.Profile()
	if err != nil {
		return err
	}
	if _, err := sweep.NewSweeper(profile, c.Dimensions); err != nil {
		return err
	}
	if err := c.Resources.Validate(); err != nil {
		return err
	}
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	if c.Table == "" {
		return &campaign.ConfigError{Key: "table", Reason: "must be set"}
	}
	if c.Ledger == "" {
		return &campaign.ConfigError{Key: "ledger", Reason: "must be set"}
	}
	return nil
}

// Override replaces one dimension list from a command-line value, e.g.
// ("sizes", "32:256:x2") or ("use_scratch", "YES,NO"). Keys are the
// dimension's file keys.
func (c *Config) Override(key, value string) error {
	d := &c.Dimensions
	ints := map[string]*[]int{
		"sizes":                &d.Sizes,
		"log_sizes":            &d.LogSizes,
		"scratch_lines":        &d.ScratchLines,
		"scratch_size_logs":    &d.ScratchSizeLogs,
		"simd_widths":          &d.SIMDWidths,
		"vec_nodes":            &d.VecNodes,
		"cache_lines":          &d.CacheLines,
		"l2_size_logs":         &d.L2SizeLogs,
		"l1d_size_logs":        &d.L1DSizeLogs,
		"la_banks":             &d.LABanks,
		"la_size_logs_direct":  &d.LASizeLogsDirect,
		"la_size_logs_over_l2": &d.LASizeLogsOverL2,
	}
	toggles := map[string]*[]string{
		"use_scratch": &d.UseScratch,
		"use_panel":   &d.UsePanel,
	}

	if dst, ok := ints[key]; ok {
		values, err := sweep.ParseIntParamList(value)
		if err != nil {
			return &campaign.ConfigError{Key: key, Value: value, Reason: err.Error()}
		}
		*dst = values
		return nil
	}
	if dst, ok := toggles[key]; ok {
		values, err := sweep.ParseToggleList(value)
		if err != nil {
			return &campaign.ConfigError{Key: key, Value: value, Reason: err.Error()}
		}
		*dst = values
		return nil
	}
	return &campaign.ConfigError{Key: key, Value: value,
		Reason: "unknown dimension (known: " + strings.Join(DimensionKeys(), ", ") + ")"}
}

// DimensionKeys lists the keys accepted by Override.
func DimensionKeys() []string {
	return []string{
		"sizes", "log_sizes", "use_scratch", "use_panel",
		"scratch_lines", "scratch_size_logs", "simd_widths", "vec_nodes",
		"cache_lines", "l2_size_logs", "l1d_size_logs", "la_banks",
		"la_size_logs_direct", "la_size_logs_over_l2",
	}
}

// Summary describes the campaign in one line for logs.
func (c *Config) Summary() string {
	n := "?"
	if profile, err := c.Profile(); err == nil {
		if s, err := sweep.NewSweeper(profile, c.Dimensions); err == nil {
			n = strconv.Itoa(s.Count())
		}
	}
	return fmt.Sprintf("kind=%s leaves=%s output=%s ledger=%s", c.Kind, n, c.Scheduler.OutputDir, c.Ledger)
}

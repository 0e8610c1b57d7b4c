// Package sweep enumerates the configuration space of a benchmarking
// campaign and derives the resources each configuration needs.
package sweep

import (
	"fmt"
	"iter"

	"github.com/scale-lab/la-core/internal/campaign"
)

// maxLeaves caps a whole sweep.
const maxLeaves = 100000

// Dimensions holds the value list of every sweep axis. An empty mode list
// (LASizeLogsDirect, LASizeLogsOverL2, L1DSizeLogs) switches that memory
// hierarchy mode off.
type Dimensions struct {
	// Workload shape.
	Sizes      []int    `json:"sizes,omitempty" yaml:"sizes,omitempty"`
	LogSizes   []int    `json:"log_sizes,omitempty" yaml:"log_sizes,omitempty"`
	UseScratch []string `json:"use_scratch,omitempty" yaml:"use_scratch,omitempty"`
	UsePanel   []string `json:"use_panel,omitempty" yaml:"use_panel,omitempty"`

	// Scratchpad, swept only when use_scratch is YES.
	ScratchLines    []int `json:"scratch_lines,omitempty" yaml:"scratch_lines,omitempty"`
	ScratchSizeLogs []int `json:"scratch_size_logs,omitempty" yaml:"scratch_size_logs,omitempty"`

	// Execution unit.
	SIMDWidths []int `json:"simd_widths,omitempty" yaml:"simd_widths,omitempty"`
	VecNodes   []int `json:"vec_nodes,omitempty" yaml:"vec_nodes,omitempty"`

	// Memory hierarchy.
	CacheLines       []int `json:"cache_lines,omitempty" yaml:"cache_lines,omitempty"`
	L2SizeLogs       []int `json:"l2_size_logs,omitempty" yaml:"l2_size_logs,omitempty"`
	L1DSizeLogs      []int `json:"l1d_size_logs,omitempty" yaml:"l1d_size_logs,omitempty"`
	LABanks          []int `json:"la_banks,omitempty" yaml:"la_banks,omitempty"`
	LASizeLogsDirect []int `json:"la_size_logs_direct,omitempty" yaml:"la_size_logs_direct,omitempty"`
	LASizeLogsOverL2 []int `json:"la_size_logs_over_l2,omitempty" yaml:"la_size_logs_over_l2,omitempty"`
}

// Sweeper walks the dimensions of one sweep kind. It holds no traversal
// state, so Leaves can be ranged over any number of times.
type Sweeper struct {
	profile *campaign.Profile
	dims    Dimensions
}

// NewSweeper validates dims against the profile and returns a Sweeper.
func NewSweeper(profile *campaign.Profile, dims Dimensions) (*Sweeper, error) {
	s := &Sweeper{profile: profile, dims: dims}
	if err := s.validate(); err != nil {
		return nil, err
	}
	if n := s.Count(); n > maxLeaves {
		return nil, fmt.Errorf("sweep would produce %d leaves, exceeding the limit of %d", n, maxLeaves)
	}
	return s, nil
}

func (s *Sweeper) validate() error {
	d := s.dims
	if err := checkDistinctDims(d); err != nil {
		return err
	}
	if !s.profile.Hierarchical {
		if len(d.LogSizes) == 0 {
			return &campaign.ConfigError{Key: campaign.ParamLogSize, Reason: "no values to sweep"}
		}
		for _, v := range d.LogSizes {
			if v < 0 || v > 30 {
				return &campaign.ConfigError{Key: campaign.ParamLogSize, Value: itoa(v), Reason: "out of range 0..30"}
			}
		}
		return nil
	}

	required := []struct {
		key    string
		values []int
	}{
		{campaign.ParamSize, d.Sizes},
		{campaign.ParamSIMD, d.SIMDWidths},
		{campaign.ParamVecNodes, d.VecNodes},
		{campaign.ParamCacheLine, d.CacheLines},
		{campaign.ParamL2SizeLog, d.L2SizeLogs},
	}
	for _, r := range required {
		if len(r.values) == 0 {
			return &campaign.ConfigError{Key: r.key, Reason: "no values to sweep"}
		}
	}
	if len(d.UseScratch) == 0 {
		return &campaign.ConfigError{Key: campaign.ParamUseScratch, Reason: "no values to sweep"}
	}
	if err := checkToggles(campaign.ParamUseScratch, d.UseScratch); err != nil {
		return err
	}
	if s.profile.Panel {
		if len(d.UsePanel) == 0 {
			return &campaign.ConfigError{Key: campaign.ParamUsePanel, Reason: "no values to sweep"}
		}
		if err := checkToggles(campaign.ParamUsePanel, d.UsePanel); err != nil {
			return err
		}
	}
	if contains(d.UseScratch, campaign.Yes) {
		if len(d.ScratchLines) == 0 {
			return &campaign.ConfigError{Key: campaign.ParamScratchLine, Reason: "scratchpad enabled but no line sizes given"}
		}
		if len(d.ScratchSizeLogs) == 0 {
			return &campaign.ConfigError{Key: campaign.ParamScratchSizeLog, Reason: "scratchpad enabled but no sizes given"}
		}
	}
	if err := checkPow2(campaign.ParamLABanks, d.LABanks); err != nil {
		return err
	}
	if err := checkPow2(campaign.ParamCacheLine, d.CacheLines); err != nil {
		return err
	}
	if err := checkPow2(campaign.ParamScratchLine, d.ScratchLines); err != nil {
		return err
	}
	laModes := len(d.LASizeLogsDirect) + len(d.LASizeLogsOverL2)
	if laModes > 0 && len(d.LABanks) == 0 {
		return &campaign.ConfigError{Key: campaign.ParamLABanks, Reason: "accelerator cache swept but no bank counts given"}
	}
	if laModes == 0 && len(d.L1DSizeLogs) == 0 {
		return &campaign.ConfigError{Key: campaign.ParamUseL1D, Reason: "no memory hierarchy mode selected"}
	}
	return nil
}

// checkDistinctDims rejects a repeated value in any list, which would name
// two leaves with the same identifier.
func checkDistinctDims(d Dimensions) error {
	ints := []struct {
		key    string
		values []int
	}{
		{campaign.ParamSize, d.Sizes},
		{campaign.ParamLogSize, d.LogSizes},
		{campaign.ParamScratchLine, d.ScratchLines},
		{campaign.ParamScratchSizeLog, d.ScratchSizeLogs},
		{campaign.ParamSIMD, d.SIMDWidths},
		{campaign.ParamVecNodes, d.VecNodes},
		{campaign.ParamCacheLine, d.CacheLines},
		{campaign.ParamL2SizeLog, d.L2SizeLogs},
		{campaign.ParamL1DSizeLog, d.L1DSizeLogs},
		{campaign.ParamLABanks, d.LABanks},
		{campaign.ParamLASizeLog, d.LASizeLogsDirect},
		{campaign.ParamLASizeLog, d.LASizeLogsOverL2},
	}
	for _, l := range ints {
		if err := checkDistinct(l.key, l.values); err != nil {
			return err
		}
	}
	if err := checkDistinct(campaign.ParamUseScratch, d.UseScratch); err != nil {
		return err
	}
	return checkDistinct(campaign.ParamUsePanel, d.UsePanel)
}

func checkDistinct[T comparable](key string, values []T) error {
	seen := make(map[T]bool, len(values))
	for _, v := range values {
		if seen[v] {
			return &campaign.ConfigError{Key: key, Value: fmt.Sprint(v), Reason: "value listed more than once"}
		}
		seen[v] = true
	}
	return nil
}

func checkToggles(key string, values []string) error {
	for _, v := range values {
		if v != campaign.Yes && v != campaign.No {
			return &campaign.ConfigError{Key: key, Value: v, Reason: "toggle must be YES or NO"}
		}
	}
	return nil
}

func checkPow2(key string, values []int) error {
	for _, v := range values {
		if !pow2(v) {
			return &campaign.ConfigError{Key: key, Value: itoa(v), Reason: "must be a power of two"}
		}
	}
	return nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// Profile returns the sweep kind being walked.
func (s *Sweeper) Profile() *campaign.Profile { return s.profile }

// Leaves yields every leaf configuration in traversal order: workload shape,
// then scratchpad, then execution unit, then memory hierarchy.
func (s *Sweeper) Leaves() iter.Seq[campaign.ParameterSet] {
	return func(yield func(campaign.ParameterSet) bool) {
		if !s.profile.Hierarchical {
			for _, logSize := range s.dims.LogSizes {
				ps := campaign.NewParameterSet().
					WithInt(campaign.ParamLogSize, logSize).
					WithInt(campaign.ParamSize, 1<<logSize)
				if !yield(ps) {
					return
				}
			}
			return
		}

		for _, w := range s.workloads() {
			for _, sm := range s.scratchModes(w.Value(campaign.ParamUseScratch)) {
				withScratch := sm.apply(w)
				for _, eu := range s.execUnits() {
					withExec := eu.apply(withScratch)
					for _, hm := range s.hierarchyModes() {
						if !yield(hm.apply(withExec)) {
							return
						}
					}
				}
			}
		}
	}
}

// Count returns the number of leaves Leaves yields.
func (s *Sweeper) Count() int {
	if !s.profile.Hierarchical {
		return len(s.dims.LogSizes)
	}
	inner := len(s.execUnits()) * len(s.hierarchyModes())
	total := 0
	for _, w := range s.workloads() {
		total += len(s.scratchModes(w.Value(campaign.ParamUseScratch))) * inner
	}
	return total
}

func (s *Sweeper) workloads() []campaign.ParameterSet {
	panels := []string{""}
	if s.profile.Panel {
		panels = s.dims.UsePanel
	}
	var out []campaign.ParameterSet
	for _, size := range s.dims.Sizes {
		for _, scratch := range s.dims.UseScratch {
			for _, panel := range panels {
				ps := campaign.NewParameterSet().
					WithInt(campaign.ParamSize, size).
					With(campaign.ParamUseScratch, scratch)
				if s.profile.Panel {
					ps = ps.With(campaign.ParamUsePanel, panel)
				}
				out = append(out, ps)
			}
		}
	}
	return out
}

func (s *Sweeper) scratchModes(useScratch string) []ScratchMode {
	if useScratch != campaign.Yes {
		return []ScratchMode{ScratchOff{}}
	}
	var out []ScratchMode
	for _, line := range s.dims.ScratchLines {
		for _, size := range s.dims.ScratchSizeLogs {
			out = append(out, ScratchOn{Line: line, SizeLog: size})
		}
	}
	return out
}

func (s *Sweeper) execUnits() []ExecUnit {
	var out []ExecUnit
	for _, simd := range s.dims.SIMDWidths {
		for _, vec := range s.dims.VecNodes {
			out = append(out, ExecUnit{SIMD: simd, VecNodes: vec})
		}
	}
	return out
}

func (s *Sweeper) hierarchyModes() []HierarchyMode {
	d := s.dims
	var out []HierarchyMode
	for _, line := range d.CacheLines {
		for _, l2 := range d.L2SizeLogs {
			for _, banks := range d.LABanks {
				for _, size := range d.LASizeLogsDirect {
					out = append(out, LACacheDirect{CacheLine: line, L2SizeLog: l2, Banks: banks, SizeLog: size})
				}
				for _, size := range d.LASizeLogsOverL2 {
					out = append(out, LACacheOverL2{CacheLine: line, L2SizeLog: l2, Banks: banks, SizeLog: size})
				}
			}
			for _, l1d := range d.L1DSizeLogs {
				out = append(out, DCache{CacheLine: line, L1DSizeLog: l1d, L2SizeLog: l2})
			}
		}
	}
	return out
}

package campaign

import (
	"fmt"
	"sort"
)

// Kind names a benchmark sweep type. Each kind fixes its identifier schema,
// its job command shape and how its artifacts are read back.
type Kind string

const (
	KindDGEMM   Kind = "dgemm"
	KindDTRSM   Kind = "dtrsm"
	KindLUSolve Kind = "lu_solve"
)

// Parameter names. These are the keys of a ParameterSet; identifiers use the
// shorter Field keys from each kind's schema.
const (
	ParamSize           = "size"
	ParamLogSize        = "log_size"
	ParamUseScratch     = "use_scratch"
	ParamUsePanel       = "use_panel"
	ParamVecNodes       = "vec_nodes"
	ParamSIMD           = "simd"
	ParamScratchSizeLog = "ssize_log"
	ParamScratchLine    = "scratch_line"
	ParamCacheLine      = "cache_line"
	ParamUseL1D         = "la_use_l1d"
	ParamUseL2          = "la_use_l2"
	ParamL1DSizeLog     = "l1d_size_log"
	ParamL2SizeLog      = "l2_size_log"
	ParamLASizeLog      = "la_size_log"
	ParamLABanks        = "la_banks"
)

// SchemaVersion is bumped whenever any kind's field list changes.
const SchemaVersion = 1

// Extraction describes how measurement lines are recognised in an artifact.
type Extraction struct {
	// Marker prefixes every measurement-bearing line, e.g. "N=".
	Marker string
	// Unit follows every extracted number, e.g. "MFLOP/s".
	Unit string
	// TransposeMarkers, when non-empty, split measurements into normal and
	// transposed classes. Any one substring present marks the line transposed.
	TransposeMarkers []string
	// Divisor rescales raw values for reporting (MFLOP/s -> GFLOP/s).
	Divisor float64
	// PrimaryLabel names the implementation under test in column headers.
	PrimaryLabel string
	// ReferenceLabel names the baseline library measured in the same run.
	ReferenceLabel string
	// MetricUnit names the rescaled unit in column headers.
	MetricUnit string
}

// Profile bundles everything kind-specific.
type Profile struct {
	Kind        Kind
	Schema      *Schema
	Extraction  Extraction
	ResourceKey string
	// Hierarchical kinds sweep scratchpad, execution unit and cache
	// dimensions; the others sweep the workload size only.
	Hierarchical bool
	// Panel reports whether the workload takes a panel toggle.
	Panel bool
}

var lacoreTail = []Field{
	{Key: "vec", Param: ParamVecNodes},
	{Key: "simd", Param: ParamSIMD},
	{Key: "ssize", Param: ParamScratchSizeLog},
	{Key: "sline", Param: ParamScratchLine},
	{Key: "line", Param: ParamCacheLine},
	{Key: "useL1", Param: ParamUseL1D},
	{Key: "useL2", Param: ParamUseL2},
	{Key: "dsize", Param: ParamL1DSizeLog},
	{Key: "l2size", Param: ParamL2SizeLog},
	{Key: "lasize", Param: ParamLASizeLog},
	{Key: "labank", Param: ParamLABanks},
}

func fields(head []Field, tail []Field) []Field {
	out := make([]Field, 0, len(head)+len(tail))
	out = append(out, head...)
	return append(out, tail...)
}

func flopsExtraction(marker string, transposed bool) Extraction {
	e := Extraction{
		Marker:         marker,
		Unit:           "MFLOP/s",
		Divisor:        1000,
		PrimaryLabel:   "lacore",
		ReferenceLabel: "gsl",
		MetricUnit:     "GFLOPs",
	}
	if transposed {
		e.TransposeMarkers = []string{"TU", "TD"}
	}
	return e
}

var profiles = map[Kind]*Profile{
	KindDGEMM: {
		Kind: KindDGEMM,
		Schema: &Schema{
			Version: SchemaVersion,
			Fields: fields([]Field{
				{Key: "size", Param: ParamSize},
				{Key: "useSCH", Param: ParamUseScratch},
				{Key: "usePNL", Param: ParamUsePanel},
			}, lacoreTail),
		},
		Extraction:   flopsExtraction("N=", false),
		ResourceKey:  ParamSize,
		Hierarchical: true,
		Panel:        true,
	},
	KindDTRSM: {
		Kind: KindDTRSM,
		Schema: &Schema{
			Version: SchemaVersion,
			Fields: fields([]Field{
				{Key: "size", Param: ParamSize},
				{Key: "useSCH", Param: ParamUseScratch},
			}, lacoreTail),
		},
		Extraction:   flopsExtraction("M=", true),
		ResourceKey:  ParamSize,
		Hierarchical: true,
	},
	KindLUSolve: {
		Kind: KindLUSolve,
		Schema: &Schema{
			Version: SchemaVersion,
			Fields:  []Field{{Key: "log_size", Param: ParamLogSize}},
		},
		Extraction:  flopsExtraction("N=", false),
		ResourceKey: ParamSize,
	},
}

func init() {
	for kind, p := range profiles {
		if err := p.Schema.Validate(); err != nil {
			panic(fmt.Sprintf("campaign: %s identifier schema: %v", kind, err))
		}
	}
}

// Lookup returns the profile for kind.
func Lookup(kind Kind) (*Profile, error) {
	p, ok := profiles[kind]
	if !ok {
		return nil, &ConfigError{Key: "kind", Value: string(kind), Reason: fmt.Sprintf("unknown sweep kind (known: %v)", Kinds())}
	}
	return p, nil
}

// Kinds lists the known kinds in sorted order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(profiles))
	for k := range profiles {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

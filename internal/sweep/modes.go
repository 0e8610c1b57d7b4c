package sweep

import (
	"strconv"

	"github.com/scale-lab/la-core/internal/campaign"
)

// ScratchMode is the closed set of scratchpad configurations: ScratchOn or
// ScratchOff. Every mode writes both scratch keys.
type ScratchMode interface {
	apply(ps campaign.ParameterSet) campaign.ParameterSet
	scratchMode()
}

// ScratchOn enables the scratchpad with the given line size and log2 capacity.
type ScratchOn struct {
	Line    int
	SizeLog int
}

// ScratchOff disables the scratchpad; both scratch keys are written as 0.
type ScratchOff struct{}

func (m ScratchOn) apply(ps campaign.ParameterSet) campaign.ParameterSet {
	return ps.WithInt(campaign.ParamScratchSizeLog, m.SizeLog).
		WithInt(campaign.ParamScratchLine, m.Line)
}

func (ScratchOff) apply(ps campaign.ParameterSet) campaign.ParameterSet {
	return ps.WithInt(campaign.ParamScratchSizeLog, 0).
		WithInt(campaign.ParamScratchLine, 0)
}

func (ScratchOn) scratchMode()  {}
func (ScratchOff) scratchMode() {}

// HierarchyMode is the closed set of memory hierarchies behind the
// accelerator: LACacheDirect, LACacheOverL2 or DCache. Every mode writes every
// hierarchy key, so no value can leak from one mode into a sibling leaf.
type HierarchyMode interface {
	apply(ps campaign.ParameterSet) campaign.ParameterSet
	hierarchyMode()
}

// LACacheDirect is a banked accelerator cache talking straight to memory.
type LACacheDirect struct {
	CacheLine int
	L2SizeLog int
	Banks     int
	SizeLog   int
}

// LACacheOverL2 is a banked accelerator cache backed by the shared L2.
type LACacheOverL2 struct {
	CacheLine int
	L2SizeLog int
	Banks     int
	SizeLog   int
}

// DCache routes accelerator accesses through the core's L1 data cache.
type DCache struct {
	CacheLine  int
	L1DSizeLog int
	L2SizeLog  int
}

func applyHierarchy(ps campaign.ParameterSet, line int, useL1, useL2 string, l1d, l2, lasize, banks int) campaign.ParameterSet {
	return ps.WithInt(campaign.ParamCacheLine, line).
		With(campaign.ParamUseL1D, useL1).
		With(campaign.ParamUseL2, useL2).
		WithInt(campaign.ParamL1DSizeLog, l1d).
		WithInt(campaign.ParamL2SizeLog, l2).
		WithInt(campaign.ParamLASizeLog, lasize).
		WithInt(campaign.ParamLABanks, banks)
}

func (m LACacheDirect) apply(ps campaign.ParameterSet) campaign.ParameterSet {
	return applyHierarchy(ps, m.CacheLine, campaign.No, campaign.No, 0, m.L2SizeLog, m.SizeLog, m.Banks)
}

func (m LACacheOverL2) apply(ps campaign.ParameterSet) campaign.ParameterSet {
	return applyHierarchy(ps, m.CacheLine, campaign.No, campaign.Yes, 0, m.L2SizeLog, m.SizeLog, m.Banks)
}

func (m DCache) apply(ps campaign.ParameterSet) campaign.ParameterSet {
	return applyHierarchy(ps, m.CacheLine, campaign.Yes, campaign.No, m.L1DSizeLog, m.L2SizeLog, 0, 0)
}

func (LACacheDirect) hierarchyMode() {}
func (LACacheOverL2) hierarchyMode() {}
func (DCache) hierarchyMode()        {}

// ExecUnit is the accelerator's execution unit shape.
type ExecUnit struct {
	SIMD     int
	VecNodes int
}

func (e ExecUnit) apply(ps campaign.ParameterSet) campaign.ParameterSet {
	return ps.WithInt(campaign.ParamVecNodes, e.VecNodes).
		WithInt(campaign.ParamSIMD, e.SIMD)
}

// DecodeScratch recovers the scratch mode of a leaf.
func DecodeScratch(ps campaign.ParameterSet) (ScratchMode, error) {
	toggle, err := toggle(ps, campaign.ParamUseScratch)
	if err != nil {
		return nil, err
	}
	if toggle == campaign.No {
		return ScratchOff{}, nil
	}
	line, err := ps.Int(campaign.ParamScratchLine)
	if err != nil {
		return nil, err
	}
	size, err := ps.Int(campaign.ParamScratchSizeLog)
	if err != nil {
		return nil, err
	}
	return ScratchOn{Line: line, SizeLog: size}, nil
}

// DecodeHierarchy recovers the memory hierarchy mode of a leaf. Setting both
// la_use_l1d and la_use_l2 is a ConfigError.
func DecodeHierarchy(ps campaign.ParameterSet) (HierarchyMode, error) {
	useL1, err := toggle(ps, campaign.ParamUseL1D)
	if err != nil {
		return nil, err
	}
	useL2, err := toggle(ps, campaign.ParamUseL2)
	if err != nil {
		return nil, err
	}
	ints, err := intsOf(ps, campaign.ParamCacheLine, campaign.ParamL1DSizeLog,
		campaign.ParamL2SizeLog, campaign.ParamLASizeLog, campaign.ParamLABanks)
	if err != nil {
		return nil, err
	}
	line, l1d, l2, lasize, banks := ints[0], ints[1], ints[2], ints[3], ints[4]

	switch {
	case useL1 == campaign.Yes && useL2 == campaign.Yes:
		return nil, &campaign.ConfigError{
			Key:    campaign.ParamUseL1D,
			Value:  useL1,
			Reason: campaign.ParamUseL1D + " and " + campaign.ParamUseL2 + " are mutually exclusive",
		}
	case useL1 == campaign.Yes:
		return DCache{CacheLine: line, L1DSizeLog: l1d, L2SizeLog: l2}, nil
	case useL2 == campaign.Yes:
		return LACacheOverL2{CacheLine: line, L2SizeLog: l2, Banks: banks, SizeLog: lasize}, nil
	default:
		return LACacheDirect{CacheLine: line, L2SizeLog: l2, Banks: banks, SizeLog: lasize}, nil
	}
}

// DecodeExecUnit recovers the execution unit shape of a leaf.
func DecodeExecUnit(ps campaign.ParameterSet) (ExecUnit, error) {
	ints, err := intsOf(ps, campaign.ParamSIMD, campaign.ParamVecNodes)
	if err != nil {
		return ExecUnit{}, err
	}
	return ExecUnit{SIMD: ints[0], VecNodes: ints[1]}, nil
}

func toggle(ps campaign.ParameterSet, key string) (string, error) {
	v, ok := ps.Get(key)
	if !ok {
		return "", &campaign.ConfigError{Key: key, Reason: "missing parameter"}
	}
	if v != campaign.Yes && v != campaign.No {
		return "", &campaign.ConfigError{Key: key, Value: v, Reason: "toggle must be " + campaign.Yes + " or " + campaign.No}
	}
	return v, nil
}

func intsOf(ps campaign.ParameterSet, keys ...string) ([]int, error) {
	out := make([]int, len(keys))
	for i, k := range keys {
		n, err := ps.Int(k)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// pow2 reports whether n is a positive power of two.
func pow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func itoa(n int) string { return strconv.Itoa(n) }

package sweep

import (
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scale-lab/la-core/internal/campaign"
)

func testDims() Dimensions {
	return Dimensions{
		Sizes:            []int{32, 64},
		UseScratch:       []string{campaign.Yes},
		UsePanel:         []string{campaign.Yes},
		ScratchLines:     []int{128},
		ScratchSizeLogs:  []int{16},
		SIMDWidths:       []int{4, 8},
		VecNodes:         []int{8, 16},
		CacheLines:       []int{128},
		L2SizeLogs:       []int{18},
		L1DSizeLogs:      []int{16},
		LABanks:          []int{1, 2},
		LASizeLogsOverL2: []int{16},
	}
}

func mustProfile(t *testing.T, kind campaign.Kind) *campaign.Profile {
	t.Helper()
	p, err := campaign.Lookup(kind)
	require.NoError(t, err)
	return p
}

func identifiers(t *testing.T, s *Sweeper) []string {
	t.Helper()
	var ids []string
	for leaf := range s.Leaves() {
		id, err := s.Profile().Schema.Build(leaf)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestSweeper_Deterministic(t *testing.T) {
	t.Parallel()

	s, err := NewSweeper(mustProfile(t, campaign.KindDGEMM), testDims())
	require.NoError(t, err)

	first := identifiers(t, s)
	second := identifiers(t, s)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second traversal differs (-first +second):\n%s", diff)
	}
	assert.Len(t, first, 24)
	assert.Equal(t, len(first), s.Count())
}

func TestSweeper_IdentifiersUnique(t *testing.T) {
	t.Parallel()

	dims := testDims()
	dims.UseScratch = []string{campaign.Yes, campaign.No}
	dims.UsePanel = []string{campaign.Yes, campaign.No}
	dims.LASizeLogsDirect = []int{15, 16}

	for _, kind := range []campaign.Kind{campaign.KindDGEMM, campaign.KindDTRSM} {
		s, err := NewSweeper(mustProfile(t, kind), dims)
		require.NoError(t, err)

		ids := identifiers(t, s)
		assert.Equal(t, s.Count(), len(ids))
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			assert.False(t, seen[id], "duplicate identifier %s", id)
			seen[id] = true
		}
	}
}

func TestSweeper_TraversalOrder(t *testing.T) {
	t.Parallel()

	s, err := NewSweeper(mustProfile(t, campaign.KindDGEMM), testDims())
	require.NoError(t, err)

	var leaves []campaign.ParameterSet
	for leaf := range s.Leaves() {
		leaves = append(leaves, leaf)
	}
	require.NotEmpty(t, leaves)

	// Memory hierarchy is innermost: the first three leaves share size and
	// execution unit and differ only in hierarchy.
	for _, leaf := range leaves[:3] {
		assert.Equal(t, "32", leaf.Value(campaign.ParamSize))
		assert.Equal(t, "4", leaf.Value(campaign.ParamSIMD))
		assert.Equal(t, "8", leaf.Value(campaign.ParamVecNodes))
	}
	assert.Equal(t, "1", leaves[0].Value(campaign.ParamLABanks))
	assert.Equal(t, "2", leaves[1].Value(campaign.ParamLABanks))
	assert.Equal(t, campaign.Yes, leaves[2].Value(campaign.ParamUseL1D))
	assert.Equal(t, "16", leaves[3].Value(campaign.ParamVecNodes))

	// Every leaf carries the same keys in the same order.
	want := leaves[0].Keys()
	for _, leaf := range leaves {
		assert.Equal(t, want, leaf.Keys())
	}
}

func TestSweeper_ModesAreExclusive(t *testing.T) {
	t.Parallel()

	dims := testDims()
	dims.UseScratch = []string{campaign.Yes, campaign.No}
	dims.LASizeLogsDirect = []int{15}
	s, err := NewSweeper(mustProfile(t, campaign.KindDGEMM), dims)
	require.NoError(t, err)

	for leaf := range s.Leaves() {
		useL1 := leaf.Value(campaign.ParamUseL1D)
		useL2 := leaf.Value(campaign.ParamUseL2)
		assert.False(t, useL1 == campaign.Yes && useL2 == campaign.Yes, "both caches enabled in %v", leaf)

		hm, err := DecodeHierarchy(leaf)
		require.NoError(t, err)
		switch hm.(type) {
		case DCache:
			assert.Equal(t, "0", leaf.Value(campaign.ParamLABanks))
			assert.Equal(t, "0", leaf.Value(campaign.ParamLASizeLog))
		case LACacheDirect, LACacheOverL2:
			assert.Equal(t, "0", leaf.Value(campaign.ParamL1DSizeLog))
			assert.NotEqual(t, "0", leaf.Value(campaign.ParamLABanks))
		}

		sm, err := DecodeScratch(leaf)
		require.NoError(t, err)
		if _, off := sm.(ScratchOff); off {
			assert.Equal(t, campaign.No, leaf.Value(campaign.ParamUseScratch))
			assert.Equal(t, "0", leaf.Value(campaign.ParamScratchSizeLog))
			assert.Equal(t, "0", leaf.Value(campaign.ParamScratchLine))
		} else {
			assert.Equal(t, "16", leaf.Value(campaign.ParamScratchSizeLog))
		}
	}
}

func TestSweeper_EarlyStop(t *testing.T) {
	t.Parallel()

	s, err := NewSweeper(mustProfile(t, campaign.KindDGEMM), testDims())
	require.NoError(t, err)

	n := 0
	for range s.Leaves() {
		n++
		if n == 5 {
			break
		}
	}
	assert.Equal(t, 5, n)
}

func TestSweeper_LUSolve(t *testing.T) {
	t.Parallel()

	s, err := NewSweeper(mustProfile(t, campaign.KindLUSolve), Dimensions{LogSizes: []int{9, 10}})
	require.NoError(t, err)

	leaves := slices.Collect(s.Leaves())
	require.Len(t, leaves, 2)
	assert.Equal(t, "9", leaves[0].Value(campaign.ParamLogSize))
	assert.Equal(t, "512", leaves[0].Value(campaign.ParamSize))
	assert.Equal(t, "1024", leaves[1].Value(campaign.ParamSize))
	assert.Equal(t, 2, s.Count())
}

func TestNewSweeper_Invalid(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		kind   campaign.Kind
		mutate func(d *Dimensions)
		key    string
	}{
		{"no sizes", campaign.KindDGEMM, func(d *Dimensions) { d.Sizes = nil }, campaign.ParamSize},
		{"bad toggle", campaign.KindDGEMM, func(d *Dimensions) { d.UseScratch = []string{"maybe"} }, campaign.ParamUseScratch},
		{"no panel values", campaign.KindDGEMM, func(d *Dimensions) { d.UsePanel = nil }, campaign.ParamUsePanel},
		{"odd bank count", campaign.KindDTRSM, func(d *Dimensions) { d.LABanks = []int{3} }, campaign.ParamLABanks},
		{"scratch without sizes", campaign.KindDGEMM, func(d *Dimensions) { d.ScratchSizeLogs = nil }, campaign.ParamScratchSizeLog},
		{"no hierarchy", campaign.KindDGEMM, func(d *Dimensions) {
			d.L1DSizeLogs = nil
			d.LASizeLogsOverL2 = nil
		}, campaign.ParamUseL1D},
		{"no log sizes", campaign.KindLUSolve, func(d *Dimensions) {}, campaign.ParamLogSize},
		{"repeated size", campaign.KindDGEMM, func(d *Dimensions) { d.Sizes = []int{32, 64, 32} }, campaign.ParamSize},
		{"repeated log size", campaign.KindLUSolve, func(d *Dimensions) { d.LogSizes = []int{9, 9} }, campaign.ParamLogSize},
		{"repeated toggle", campaign.KindDTRSM, func(d *Dimensions) { d.UseScratch = []string{campaign.Yes, campaign.Yes} }, campaign.ParamUseScratch},
		{"repeated bank count", campaign.KindDGEMM, func(d *Dimensions) { d.LABanks = []int{2, 2} }, campaign.ParamLABanks},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dims := testDims()
			tc.mutate(&dims)
			_, err := NewSweeper(mustProfile(t, tc.kind), dims)
			require.Error(t, err)

			var cfgErr *campaign.ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tc.key, cfgErr.Key)
		})
	}
}

func TestDecodeHierarchy_Conflict(t *testing.T) {
	t.Parallel()

	s, err := NewSweeper(mustProfile(t, campaign.KindDGEMM), testDims())
	require.NoError(t, err)
	var leaf campaign.ParameterSet
	for l := range s.Leaves() {
		leaf = l
		break
	}

	_, err = DecodeHierarchy(leaf.With(campaign.ParamUseL1D, campaign.Yes).With(campaign.ParamUseL2, campaign.Yes))
	require.Error(t, err)
	assert.ErrorIs(t, err, campaign.ErrConfig)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

package campaign

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dgemmLeaf() ParameterSet {
	return NewParameterSet(
		ParamSize, "128",
		ParamUseScratch, Yes,
		ParamUsePanel, Yes,
		ParamVecNodes, "8",
		ParamSIMD, "4",
		ParamScratchSizeLog, "16",
		ParamScratchLine, "128",
		ParamCacheLine, "128",
		ParamUseL1D, No,
		ParamUseL2, Yes,
		ParamL1DSizeLog, "0",
		ParamL2SizeLog, "18",
		ParamLASizeLog, "16",
		ParamLABanks, "4",
	)
}

func TestSchemaBuild_DGEMM(t *testing.T) {
	p, err := Lookup(KindDGEMM)
	require.NoError(t, err)

	id, err := p.Schema.Build(dgemmLeaf())
	require.NoError(t, err)
	assert.Equal(t,
		"size=128_useSCH=YES_usePNL=YES_vec=8_simd=4_ssize=16_sline=128_line=128_useL1=NO_useL2=YES_dsize=0_l2size=18_lasize=16_labank=4",
		id)
}

func TestSchemaRoundTrip(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			p, err := Lookup(kind)
			require.NoError(t, err)
			require.NoError(t, p.Schema.Validate())

			leaf := dgemmLeaf().With(ParamLogSize, "9").With("unrelated", "x")
			id, err := p.Schema.Build(leaf)
			require.NoError(t, err)

			parsed, err := p.Schema.Parse(id)
			require.NoError(t, err)
			assert.True(t, parsed.Equal(leaf.Restrict(p.Schema.Params())),
				"parse(build(P)) = %v, want %v", parsed, leaf.Restrict(p.Schema.Params()))

			again, err := p.Schema.Build(parsed)
			require.NoError(t, err)
			assert.Equal(t, id, again)
		})
	}
}

func TestSchemaBuild_Errors(t *testing.T) {
	p, err := Lookup(KindDGEMM)
	require.NoError(t, err)

	testCases := []struct {
		name string
		ps   ParameterSet
		key  string
	}{
		{"underscore in value", dgemmLeaf().With(ParamVecNodes, "8_1"), ParamVecNodes},
		{"equals in value", dgemmLeaf().With(ParamSIMD, "a=b"), ParamSIMD},
		{"slash in value", dgemmLeaf().With(ParamSize, "1/2"), ParamSize},
		{"empty value", dgemmLeaf().With(ParamLABanks, ""), ParamLABanks},
		{"missing key", NewParameterSet(ParamSize, "32"), ParamUseScratch},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Schema.Build(tc.ps)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig))

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tc.key, cfgErr.Key)
		})
	}
}

func TestSchemaParse_Errors(t *testing.T) {
	p, err := Lookup(KindDTRSM)
	require.NoError(t, err)
	good, err := p.Schema.Build(dgemmLeaf())
	require.NoError(t, err)

	testCases := []struct {
		name string
		id   string
	}{
		{"empty", ""},
		{"too few pairs", "size=32_useSCH=YES"},
		{"dgemm name under dtrsm schema", "size=128_useSCH=YES_usePNL=YES_vec=8_simd=4_ssize=16_sline=128_line=128_useL1=NO_useL2=YES_dsize=0_l2size=18_lasize=16_labank=4"},
		{"wrong key order", "useSCH=YES_size=128" + good[len("size=128_useSCH=YES"):]},
		{"missing equals", "size128" + good[len("size=128"):]},
		{"empty value", "size=" + good[len("size=128"):]},
		{"double equals", "size=1=2" + good[len("size=128"):]},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Schema.Parse(tc.id)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedIdentifier)
		})
	}

	_, err = p.Schema.Parse(good)
	assert.NoError(t, err)
}

func TestSchemaValidate(t *testing.T) {
	testCases := []struct {
		name   string
		schema Schema
	}{
		{"no fields", Schema{}},
		{"equals in key", Schema{Fields: []Field{{Key: "a=b", Param: "a"}}}},
		{"slash in key", Schema{Fields: []Field{{Key: "a/b", Param: "a"}}}},
		{"repeated key", Schema{Fields: []Field{{Key: "a", Param: "a"}, {Key: "a", Param: "b"}}}},
		{"repeated param", Schema{Fields: []Field{{Key: "a", Param: "a"}, {Key: "b", Param: "a"}}}},
		{"empty param", Schema{Fields: []Field{{Key: "a"}}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.schema.Validate())
		})
	}
}

func TestSchemaValidate_UnderscoreInKey(t *testing.T) {
	s := Schema{Fields: []Field{{Key: "log_size", Param: ParamLogSize}, {Key: "use_l2", Param: ParamUseL2}}}
	require.NoError(t, s.Validate())

	ps := NewParameterSet(ParamLogSize, "9", ParamUseL2, Yes)
	id, err := s.Build(ps)
	require.NoError(t, err)
	assert.Equal(t, "log_size=9_use_l2=YES", id)

	parsed, err := s.Parse(id)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ps))
}

func TestSchemaParse_LUSolve(t *testing.T) {
	p, err := Lookup(KindLUSolve)
	require.NoError(t, err)

	ps, err := p.Schema.Parse("log_size=9")
	require.NoError(t, err)
	assert.Equal(t, "9", ps.Value(ParamLogSize))

	for _, id := range []string{
		"log_size=",
		"log_size=9_",
		"log_size=9_size=512",
		"log=9",
		"size=9",
		"log_size9",
	} {
		t.Run(id, func(t *testing.T) {
			_, err := p.Schema.Parse(id)
			assert.ErrorIs(t, err, ErrMalformedIdentifier)
		})
	}
}

func TestProfilesValidate(t *testing.T) {
	for _, kind := range Kinds() {
		p, err := Lookup(kind)
		require.NoError(t, err)
		assert.NoError(t, p.Schema.Validate(), string(kind))
	}
}

func TestGlobPattern(t *testing.T) {
	p, err := Lookup(KindLUSolve)
	require.NoError(t, err)
	assert.Equal(t, "log_size=*", p.Schema.GlobPattern())
}

func TestLookupUnknownKind(t *testing.T) {
	_, err := Lookup("sgemv")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
}

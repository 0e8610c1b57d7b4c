package results

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scale-lab/la-core/internal/campaign"
	"github.com/scale-lab/la-core/internal/fsutil"
	"github.com/scale-lab/la-core/internal/monitoring"
)

func profile(t *testing.T, kind campaign.Kind) *campaign.Profile {
	t.Helper()
	p, err := campaign.Lookup(kind)
	require.NoError(t, err)
	return p
}

func TestExtract_PrimaryAndReference(t *testing.T) {
	t.Parallel()

	x := NewExtractor(profile(t, campaign.KindDGEMM).Extraction)
	input := strings.Join([]string{
		"N=100 bs=100 LACore 250.5 MFLOP/s",
		"N=100 bs=100 LACore 250.5 MFLOP/s gsl 300.0 MFLOP/s",
		"warming up 999.0 MFLOP/s",
		"N=100 no rate on this line",
	}, "\n")

	ms, stats, err := x.Extract(strings.NewReader(input))
	require.NoError(t, err)

	want := []Measurement{
		{Value: 250.5, Line: 1},
		{Value: 250.5, Line: 2},
		{Value: 300.0, Reference: true, Line: 2},
	}
	if diff := cmp.Diff(want, ms); diff != "" {
		t.Errorf("measurements mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, ExtractStats{Lines: 4, MarkerLines: 3, Unmatched: 1}, stats)
}

func TestExtract_TransposeMarkers(t *testing.T) {
	t.Parallel()

	x := NewExtractor(profile(t, campaign.KindDTRSM).Extraction)
	input := strings.Join([]string{
		"M=64 N=64 LNU 100 MFLOP/s 80 MFLOP/s",
		"M=64 N=64 LTU 50 MFLOP/s 40 MFLOP/s",
		"M=64 N=64 RTD .5 MFLOP/s",
		"N=64 TU 1.0 MFLOP/s",
	}, "\n")

	ms, _, err := x.Extract(strings.NewReader(input))
	require.NoError(t, err)

	want := []Measurement{
		{Value: 100, Line: 1},
		{Value: 80, Reference: true, Line: 1},
		{Value: 50, Transposed: true, Line: 2},
		{Value: 40, Reference: true, Transposed: true, Line: 2},
		{Value: 0.5, Transposed: true, Line: 3},
	}
	if diff := cmp.Diff(want, ms); diff != "" {
		t.Errorf("measurements mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_MoreThanTwoValues(t *testing.T) {
	t.Parallel()

	x := NewExtractor(profile(t, campaign.KindDGEMM).Extraction)
	ms, stats, err := x.Extract(strings.NewReader("N=8 1 MFLOP/s 2 MFLOP/s 3 MFLOP/s\n"))
	require.NoError(t, err)
	assert.Equal(t, []Measurement{{Value: 1, Line: 1}}, ms)
	assert.Equal(t, 1, stats.Extra)
}

func TestExtract_IgnoresMalformedNumbers(t *testing.T) {
	t.Parallel()

	x := NewExtractor(profile(t, campaign.KindDGEMM).Extraction)
	ms, _, err := x.Extract(strings.NewReader("N=8 . MFLOP/s v1.2.3 MFLOP/s 12MFLOP/s\n"))
	require.NoError(t, err)
	assert.Empty(t, ms)
}

func TestAggregate_NormalAndTransposed(t *testing.T) {
	t.Parallel()

	g := NewAggregator(profile(t, campaign.KindDTRSM).Extraction)
	ms := []Measurement{{Value: 100}, {Value: 200}, {Value: 300}, {Value: 50, Transposed: true}}
	row := g.Aggregate("id", campaign.ParameterSet{}, ms)

	names := make([]string, len(g.Classes()))
	for i, c := range g.Classes() {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"lacore_norm", "lacore_trns", "gsl_norm", "gsl_trns"}, names)

	want := []Metrics{
		{Count: 3, Mean: 0.2, Peak: 0.3},
		{Count: 1, Mean: 0.05, Peak: 0.05},
		{},
		{},
	}
	require.Len(t, row.Metrics, len(want))
	for i := range want {
		assert.Equal(t, want[i].Count, row.Metrics[i].Count, names[i])
		assert.InDelta(t, want[i].Mean, row.Metrics[i].Mean, 1e-12, names[i])
		assert.InDelta(t, want[i].Peak, row.Metrics[i].Peak, 1e-12, names[i])
	}
	assert.False(t, row.Empty)
}

func TestAggregate_ZeroMeasurements(t *testing.T) {
	t.Parallel()

	g := NewAggregator(profile(t, campaign.KindDGEMM).Extraction)
	row := g.Aggregate("id", campaign.ParameterSet{}, nil)
	assert.Equal(t, []Metrics{{}, {}}, row.Metrics)
	assert.True(t, row.Empty)

	var acc Accumulator
	assert.Equal(t, Metrics{}, acc.Metrics(1000))
}

func TestAccumulator_NegativeValues(t *testing.T) {
	t.Parallel()

	var acc Accumulator
	acc.Add(-3)
	acc.Add(-1)
	assert.Equal(t, Metrics{Count: 2, Mean: -2, Peak: -1}, acc.Metrics(1))
}

func writeArtifacts(t *testing.T, fsys *fsutil.MemoryFileSystem, files map[string]string) {
	t.Helper()
	for name, body := range files {
		require.NoError(t, fsys.WriteFile(name, []byte(body), 0o644))
	}
}

func TestCollect_EndToEnd(t *testing.T) {
	prev := monitoring.Logf
	var logged []string
	monitoring.SetLogger(func(format string, v ...interface{}) { logged = append(logged, format) })
	defer monitoring.SetLogger(prev)

	p := profile(t, campaign.KindLUSolve)
	fsys := fsutil.NewMemoryFileSystem()
	writeArtifacts(t, fsys, map[string]string{
		"output/log_size=9":      "N=512 1000 MFLOP/s 2000 MFLOP/s\nN=512 3000 MFLOP/s\n",
		"output/log_size=10":     "booting\n",
		"output/log_size=11_x=1": "N=1 1 MFLOP/s\n",
		"output/log_size=":       "N=1 1 MFLOP/s\n",
		"output/unrelated.txt":   "N=1 1 MFLOP/s\n",
		"elsewhere/log_size=12":  "N=1 1 MFLOP/s\n",
	})

	rows, sum, err := Collect(fsys, p, Options{OutputDir: "output"})
	require.NoError(t, err)

	assert.Equal(t, Summary{Scanned: 4, Skipped: 2, Empty: 1, Rows: 2}, sum)
	require.Len(t, rows, 2)
	assert.Equal(t, "log_size=10", rows[0].Identifier)
	assert.True(t, rows[0].Empty)
	assert.Equal(t, "log_size=9", rows[1].Identifier)
	assert.Equal(t, Metrics{Count: 2, Mean: 2, Peak: 3}, rows[1].Metrics[0])
	assert.Equal(t, Metrics{Count: 1, Mean: 2, Peak: 2}, rows[1].Metrics[1])
	assert.Equal(t, "9", rows[1].Params.Value(campaign.ParamLogSize))
	assert.NotEmpty(t, logged)

	rows, sum, err = Collect(fsys, p, Options{OutputDir: "output", SkipEmpty: true})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, sum.Empty)
}

func TestCollect_MixedKindsInOneDirectory(t *testing.T) {
	prev := monitoring.Logf
	monitoring.SetLogger(nil)
	defer monitoring.SetLogger(prev)

	const (
		dgemmID   = "size=128_useSCH=YES_usePNL=YES_vec=8_simd=4_ssize=16_sline=128_line=128_useL1=NO_useL2=YES_dsize=0_l2size=18_lasize=16_labank=4"
		emptyID   = "size=32_useSCH=NO_usePNL=NO_vec=8_simd=4_ssize=0_sline=0_line=128_useL1=YES_useL2=NO_dsize=16_l2size=18_lasize=0_labank=0"
		truncated = "size=32_useSCH=YES_usePNL=YES_vec=8"
		swapped   = "size=64_useSCH=YES_usePNL=YES_simd=4_vec=8_ssize=16_sline=128_line=128_useL1=NO_useL2=YES_dsize=0_l2size=18_lasize=16_labank=4"
		dtrsmID   = "size=64_useSCH=YES_vec=8_simd=4_ssize=16_sline=128_line=128_useL1=NO_useL2=YES_dsize=0_l2size=18_lasize=16_labank=2"
	)
	fsys := fsutil.NewMemoryFileSystem()
	writeArtifacts(t, fsys, map[string]string{
		"output/" + dgemmID:   "N=128 bs=128 1000 MFLOP/s 2000 MFLOP/s\n",
		"output/" + emptyID:   "",
		"output/" + truncated: "N=32 1 MFLOP/s\n",
		"output/" + swapped:   "N=64 1 MFLOP/s\n",
		"output/" + dtrsmID:   "M=64 TU 500 MFLOP/s\nM=64 1500 MFLOP/s\n",
	})

	rows, sum, err := Collect(fsys, profile(t, campaign.KindDGEMM), Options{OutputDir: "output"})
	require.NoError(t, err)
	assert.Equal(t, Summary{Scanned: 5, Skipped: 3, Empty: 1, Rows: 2}, sum)
	require.Len(t, rows, 2)
	assert.Equal(t, dgemmID, rows[0].Identifier)
	assert.Equal(t, "4", rows[0].Params.Value(campaign.ParamLABanks))
	assert.Equal(t, Metrics{Count: 1, Mean: 1, Peak: 1}, rows[0].Metrics[0])
	assert.Equal(t, Metrics{Count: 1, Mean: 2, Peak: 2}, rows[0].Metrics[1])
	assert.Equal(t, emptyID, rows[1].Identifier)
	assert.True(t, rows[1].Empty)

	rows, sum, err = Collect(fsys, profile(t, campaign.KindDGEMM), Options{OutputDir: "output", SkipEmpty: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, dgemmID, rows[0].Identifier)
	assert.Equal(t, 1, sum.Empty)

	rows, sum, err = Collect(fsys, profile(t, campaign.KindDTRSM), Options{OutputDir: "output"})
	require.NoError(t, err)
	assert.Equal(t, Summary{Scanned: 5, Skipped: 4, Rows: 1}, sum)
	require.Len(t, rows, 1)
	assert.Equal(t, dtrsmID, rows[0].Identifier)
	assert.Equal(t, Metrics{Count: 1, Mean: 1.5, Peak: 1.5}, rows[0].Metrics[0])
	assert.Equal(t, Metrics{Count: 1, Mean: 0.5, Peak: 0.5}, rows[0].Metrics[1])
}

func TestCollect_MissingDirectory(t *testing.T) {
	t.Parallel()

	rows, sum, err := Collect(fsutil.NewMemoryFileSystem(), profile(t, campaign.KindDGEMM), Options{OutputDir: "output"})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, Summary{}, sum)
}

func TestTableWriter_Rectangular(t *testing.T) {
	t.Parallel()

	p := profile(t, campaign.KindDTRSM)
	w := NewTableWriter(p)
	g := NewAggregator(p.Extraction)

	ps, err := p.Schema.Parse("size=32_useSCH=YES_vec=8_simd=4_ssize=16_sline=128_line=128_useL1=NO_useL2=YES_dsize=0_l2size=18_lasize=16_labank=1")
	require.NoError(t, err)

	rows := []Row{
		g.Aggregate("a", ps, []Measurement{{Value: 1000}, {Value: 500, Transposed: true}}),
		g.Aggregate("b", ps, nil),
		g.Aggregate("c", ps, []Measurement{{Value: 250, Reference: true}}),
	}
	data, err := w.Encode(rows)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, len(rows)+1)

	header := strings.Split(lines[0], "\t")
	assert.Equal(t, "size", header[0])
	assert.Equal(t, "labank", header[12])
	assert.Equal(t, "lacore_norm_count", header[13])
	assert.Equal(t, "gsl_trns_peak_GFLOPs", header[len(header)-1])

	for _, line := range lines[1:] {
		assert.Len(t, strings.Split(line, "\t"), len(header))
	}
	first := strings.Split(lines[1], "\t")
	assert.Equal(t, []string{"1", "1.000000", "1.000000", "1", "0.500000", "0.500000"}, first[13:19])
	second := strings.Split(lines[2], "\t")
	assert.Equal(t, "0.000000", second[len(second)-1])
}

func TestTableWriter_WriteFileReplaces(t *testing.T) {
	t.Parallel()

	p := profile(t, campaign.KindLUSolve)
	w := NewTableWriter(p)
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("parsed.tsv", []byte("stale\n"), 0o644))

	require.NoError(t, w.WriteFile(fsys, "parsed.tsv", nil))
	data, err := fsys.ReadFile("parsed.tsv")
	require.NoError(t, err)
	assert.Equal(t, "log_size\tlacore_count\tlacore_ave_GFLOPs\tlacore_peak_GFLOPs\tgsl_count\tgsl_ave_GFLOPs\tgsl_peak_GFLOPs\n", string(data))

	assert.Error(t, w.WriteFile(fsys, "missing/parsed.tsv", nil))
}

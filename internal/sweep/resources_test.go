package sweep

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scale-lab/la-core/internal/campaign"
)

func testTables() Tables {
	return Tables{
		Memory: map[string]string{"32": "512M", "64": "1G", "128": "4G"},
		Time:   map[string]string{"32": "00:05:00", "64": "00:10:00", "128": "00:30:00"},
	}
}

func TestEstimator_CoversEverySweptSize(t *testing.T) {
	t.Parallel()

	s, err := NewSweeper(mustProfile(t, campaign.KindDGEMM), testDims())
	require.NoError(t, err)
	est := NewEstimator(campaign.ParamSize, testTables())

	for leaf := range s.Leaves() {
		req, err := est.Estimate(leaf)
		require.NoError(t, err, "leaf %v", leaf)
		assert.NotEmpty(t, req.Memory)
		assert.NotEmpty(t, req.Time)
	}
}

func TestEstimator_Lookup(t *testing.T) {
	t.Parallel()

	est := NewEstimator(campaign.ParamSize, testTables())
	req, err := est.Estimate(campaign.NewParameterSet(campaign.ParamSize, "64"))
	require.NoError(t, err)
	assert.Equal(t, Request{Memory: "1G", Time: "00:10:00"}, req)
	assert.Equal(t, "mem=1G time=00:10:00", req.String())
}

func TestEstimator_Missing(t *testing.T) {
	t.Parallel()

	tables := testTables()
	delete(tables.Time, "128")
	est := NewEstimator(campaign.ParamSize, tables)

	testCases := []struct {
		name  string
		ps    campaign.ParameterSet
		value string
		want  string
	}{
		{"absent from both tables", campaign.NewParameterSet(campaign.ParamSize, "2048"), "2048", "no memory table entry"},
		{"absent from time table", campaign.NewParameterSet(campaign.ParamSize, "128"), "128", "no time table entry"},
		{"parameter not set", campaign.NewParameterSet(campaign.ParamLogSize, "9"), "", "missing"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := est.Estimate(tc.ps)
			require.Error(t, err)

			var cfgErr *campaign.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, campaign.ParamSize, cfgErr.Key)
			assert.Equal(t, tc.value, cfgErr.Value)
			assert.Contains(t, cfgErr.Reason, tc.want)
		})
	}
}

func TestTables_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, testTables().Validate())

	bad := testTables()
	bad.Memory["32"] = "512MB"
	assert.Error(t, bad.Validate())

	bad = testTables()
	bad.Time["64"] = "10 minutes"
	assert.Error(t, bad.Validate())

	bad = testTables()
	bad.Time["256"] = "1-00:00:00"
	assert.ErrorIs(t, bad.Validate(), campaign.ErrConfig)
}

func TestTables_Keys(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"32", "64", "128"}, testTables().Keys())
}

func TestSequence(t *testing.T) {
	t.Parallel()

	seq := NewSequence(7)
	assert.Equal(t, 7, seq.Next())
	assert.Equal(t, 8, seq.Next())
	assert.Equal(t, 9, seq.Next())

	other := NewSequence(0)
	assert.Equal(t, 0, other.Next())
	assert.Equal(t, 9, seq.Next())
}

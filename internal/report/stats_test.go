package report

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	metrics := []Metrics{
		{Status: StatusValid, Values: map[string]string{ColAccessTime: "1", ColCycleTime: "2"}},
		{Status: StatusValid, Values: map[string]string{ColAccessTime: "3"}},
		{Status: StatusInvalid, Values: map[string]string{ColAccessTime: "100"}},
		{Status: StatusValid, Values: map[string]string{ColAccessTime: "N/A"}},
	}

	stats := Describe(metrics)
	require.Len(t, stats, len(NumericColumns))

	access := stats[0]
	assert.Equal(t, ColAccessTime, access.Column)
	assert.Equal(t, 2, access.Count)
	assert.InDelta(t, 2.0, access.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt2, access.Std, 1e-9)
	assert.Equal(t, 1.0, access.Min)
	assert.Equal(t, 3.0, access.Max)

	cycle := stats[1]
	assert.Equal(t, 1, cycle.Count)
	assert.True(t, math.IsNaN(cycle.Std))

	area := stats[5]
	assert.Equal(t, ColArea, area.Column)
	assert.Equal(t, 0, area.Count)
	assert.True(t, math.IsNaN(area.Mean))
}

func TestStats_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Stats{Column: "x", Count: 1, Mean: 2, Std: math.NaN(), Min: 2, Max: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"column":"x","count":1,"mean":2,"std":null,"min":2,"max":2}`, string(data))
}

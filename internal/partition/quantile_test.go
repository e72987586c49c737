package partition

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allenai/datamap-go/internal/reservoir"
)

func TestCutpointsFromReservoir_UniformShape(t *testing.T) {
	data, err := json.Marshal([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	require.NoError(t, err)

	cuts, err := CutpointsFromReservoir(data, 4)
	require.NoError(t, err)
	assert.Len(t, cuts, 3)
	for i := 1; i < len(cuts); i++ {
		assert.LessOrEqual(t, cuts[i-1], cuts[i])
	}
}

func TestCutpointsFromReservoir_WeightedShape(t *testing.T) {
	entries := []reservoir.PercentileEntry{
		{Percentile: 0.25, Value: 10.0},
		{Percentile: 0.5, Value: 20.0},
		{Percentile: 0.75, Value: 30.0},
		{Percentile: 1.0, Value: 40.0},
	}
	data, err := json.Marshal(entries)
	require.NoError(t, err)

	cuts, err := CutpointsFromReservoir(data, 2)
	require.NoError(t, err)
	require.Len(t, cuts, 1)
	assert.Equal(t, 20.0, cuts[0])
}

func TestCutpointsFromReservoir_EmptyIsError(t *testing.T) {
	data, err := json.Marshal([]float64{})
	require.NoError(t, err)

	_, err = CutpointsFromReservoir(data, 2)
	assert.Error(t, err)
}

func TestCutpointsFromReservoir_InvalidNumBuckets(t *testing.T) {
	data, err := json.Marshal([]float64{1, 2})
	require.NoError(t, err)

	_, err = CutpointsFromReservoir(data, 0)
	assert.Error(t, err)
}

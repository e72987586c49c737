package reservoir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformOutput_ReturnsPlainArray(t *testing.T) {
	u := NewUniform(3, 1)
	u.Offer(1)
	u.Offer(2)
	u.Offer(3)

	out := UniformOutput(u)
	assert.ElementsMatch(t, []any{1, 2, 3}, out)
}

func TestWeightedOutput_SortedAscendingWithCumulativePercentiles(t *testing.T) {
	w := NewWeighted(3, 1)
	w.Offer(30.0, 1)
	w.Offer(10.0, 1)
	w.Offer(20.0, 1)

	out := WeightedOutput(w)
	require.Len(t, out, 3)

	assert.Equal(t, 10.0, out[0].Value)
	assert.Equal(t, 20.0, out[1].Value)
	assert.Equal(t, 30.0, out[2].Value)

	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i].Percentile, out[i-1].Percentile)
	}
	assert.InDelta(t, 1.0, out[len(out)-1].Percentile, 1e-9)
}

func TestWeightedOutput_EmptyReservoir(t *testing.T) {
	w := NewWeighted(3, 1)
	out := WeightedOutput(w)
	assert.Empty(t, out)
}

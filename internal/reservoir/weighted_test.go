package reservoir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeighted_NeverExceedsCapacity(t *testing.T) {
	w := NewWeighted(4, 42)
	for i := 0; i < 200; i++ {
		w.Offer(i, float64(i%5+1))
	}
	assert.Len(t, w.Items(), 4)
}

func TestWeighted_ZeroOrNegativeWeightFloorsAtOne(t *testing.T) {
	w := NewWeighted(1, 42)
	require.NotPanics(t, func() {
		w.Offer("a", 0)
		w.Offer("b", -5)
	})
	assert.Len(t, w.Items(), 1)
	for _, it := range w.Items() {
		assert.Equal(t, 1.0, it.Weight)
	}
}

func TestWeighted_HeavierItemsMoreLikelyRetained(t *testing.T) {
	// A weight this lopsided against only a handful of light draws makes the
	// heavy item's A-Res key (key = u^(1/weight), concentrated near 1 for
	// large weight) overwhelmingly likely to beat every light key, for any
	// seed.
	w := NewWeighted(1, 1)
	for i := 0; i < 10; i++ {
		w.Offer("light", 1)
	}
	w.Offer("heavy", 1e9)
	for i := 0; i < 10; i++ {
		w.Offer("light", 1)
	}

	items := w.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "heavy", items[0].Value)
}

func TestMergeWeighted_TopKOfUnion(t *testing.T) {
	a := NewWeighted(2, 1)
	a.Offer("a1", 1)
	a.Offer("a2", 1)

	b := NewWeighted(2, 2)
	b.Offer("b1", 1)
	b.Offer("b2", 1)

	merged := MergeWeighted(a, b)
	assert.Len(t, merged.Items(), 2)
}

package reservoir

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniform_FillPhaseKeepsEverything(t *testing.T) {
	u := NewUniform(5, 42)
	for i := 0; i < 5; i++ {
		u.Offer(i)
	}
	assert.Len(t, u.Items(), 5)
	assert.EqualValues(t, 5, u.N())
}

func TestUniform_NeverExceedsCapacity(t *testing.T) {
	u := NewUniform(3, 42)
	for i := 0; i < 1000; i++ {
		u.Offer(i)
	}
	assert.Len(t, u.Items(), 3)
	assert.EqualValues(t, 1000, u.N())
}

func TestUniform_DeterministicForFixedSeed(t *testing.T) {
	run := func() []any {
		u := NewUniform(4, 7)
		for i := 0; i < 100; i++ {
			u.Offer(i)
		}
		return u.Items()
	}
	a := run()
	b := run()
	assert.Equal(t, a, b, "same seed and stream must produce the same reservoir")
}

func TestMergeUniform_CapsAtK(t *testing.T) {
	a := NewUniform(5, 1)
	for i := 0; i < 5; i++ {
		a.Offer(i)
	}
	b := NewUniform(5, 2)
	for i := 100; i < 108; i++ {
		b.Offer(i)
	}

	merged := MergeUniform(a, b, rand.New(rand.NewSource(3)))
	require.LessOrEqual(t, len(merged.Items()), 5)
	assert.EqualValues(t, 13, merged.N())
}

func TestMergeUniform_EmptyBContributesNothing(t *testing.T) {
	a := NewUniform(5, 1)
	for i := 0; i < 3; i++ {
		a.Offer(i)
	}
	b := NewUniform(5, 2)

	merged := MergeUniform(a, b, rand.New(rand.NewSource(3)))
	assert.ElementsMatch(t, a.Items(), merged.Items())
	assert.EqualValues(t, 3, merged.N())
}

package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextLenFilter_S1Scenario(t *testing.T) {
	p, err := newTextLenFilter(map[string]any{"lower": 2.0, "upper": 10.0})
	require.NoError(t, err)

	cases := []struct {
		text string
		keep bool
	}{
		{"a", false},
		{"abcde", true},
		{"", false},
	}
	for _, c := range cases {
		_, decision, _ := p.Apply(map[string]any{"text": c.text})
		if c.keep {
			assert.Equal(t, Keep, decision, "text %q", c.text)
		} else {
			assert.Equal(t, Drop, decision, "text %q", c.text)
		}
	}
}

func TestNonNullFilter(t *testing.T) {
	p, err := newNonNullFilter(map[string]any{"field": "text"})
	require.NoError(t, err)

	_, decision, _ := p.Apply(map[string]any{"text": "hello"})
	assert.Equal(t, Keep, decision)

	_, decision, _ = p.Apply(map[string]any{"text": nil})
	assert.Equal(t, Drop, decision)

	_, decision, _ = p.Apply(map[string]any{})
	assert.Equal(t, Drop, decision)
}

func TestSubsample_Deterministic(t *testing.T) {
	p1, err := newSubsample(map[string]any{"rate": 0.5, "seed": 42.0})
	require.NoError(t, err)
	p2, err := newSubsample(map[string]any{"rate": 0.5, "seed": 42.0})
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		_, d1, _ := p1.Apply(map[string]any{})
		_, d2, _ := p2.Apply(map[string]any{})
		assert.Equal(t, d1, d2, "iteration %d", i)
	}
}

func TestSubsample_RateZeroDropsAll(t *testing.T) {
	p, err := newSubsample(map[string]any{"rate": 0.0})
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		_, decision, _ := p.Apply(map[string]any{})
		assert.Equal(t, Drop, decision)
	}
}

func TestSubsample_InvalidRate(t *testing.T) {
	_, err := newSubsample(map[string]any{"rate": 1.5})
	require.Error(t, err)
}

func TestSubsample_UnknownOption(t *testing.T) {
	_, err := newSubsample(map[string]any{"rate": 0.5, "rat": 0.9})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown option "rat"`)
}

func TestSubsample_CloneIsIndependentAndDeterministic(t *testing.T) {
	p, err := newSubsample(map[string]any{"rate": 0.5, "seed": 7.0})
	require.NoError(t, err)
	cloner, ok := p.(Cloner)
	require.True(t, ok, "subsample must implement Cloner so map workers never share its *rand.Rand")

	// Two clones taken from the same un-advanced parent get distinct,
	// independently-seeded RNGs: re-cloning after driving the parent
	// forward reproduces neither clone's sequence, confirming the clones
	// do not read or mutate the parent's rng.
	c1 := cloner.Clone()
	c2 := cloner.Clone()

	var c1Decisions []Decision
	for i := 0; i < 20; i++ {
		_, d, _ := c1.Apply(map[string]any{})
		c1Decisions = append(c1Decisions, d)
	}
	var c2Decisions []Decision
	for i := 0; i < 20; i++ {
		_, d, _ := c2.Apply(map[string]any{})
		c2Decisions = append(c2Decisions, d)
	}
	assert.NotEqual(t, c1Decisions, c2Decisions)

	// Driving the parent's own Apply does not decide a later clone's seed: a
	// clone taken after the drive is seeded by its clone index, so its
	// decisions differ from c1's.
	for i := 0; i < 100; i++ {
		p.Apply(map[string]any{})
	}
	c1Again := cloner.Clone()
	var c1AgainDecisions []Decision
	for i := 0; i < 20; i++ {
		_, d, _ := c1Again.Apply(map[string]any{})
		c1AgainDecisions = append(c1AgainDecisions, d)
	}
	assert.NotEqual(t, c1Decisions, c1AgainDecisions, "clone seed must advance deterministically by clone index, not by parent rng state")
}

func TestWordLenFilter(t *testing.T) {
	p, err := newWordLenFilter(map[string]any{"lower": 3.0, "upper": 6.0})
	require.NoError(t, err)

	_, decision, _ := p.Apply(map[string]any{"text": "an ox is"})
	assert.Equal(t, Drop, decision)

	_, decision, _ = p.Apply(map[string]any{"text": "hello world banana"})
	assert.Equal(t, Keep, decision)
}

func TestFloatFilter_RangeAndNegate(t *testing.T) {
	p, err := newFloatFilter(map[string]any{"field": "score", "lower": 0.0, "upper": 1.0})
	require.NoError(t, err)

	_, decision, _ := p.Apply(map[string]any{"score": 0.5})
	assert.Equal(t, Keep, decision)

	_, decision, _ = p.Apply(map[string]any{"score": 2.0})
	assert.Equal(t, Drop, decision)

	neg, err := newFloatFilter(map[string]any{"field": "score", "lower": 0.0, "upper": 1.0, "negate": true})
	require.NoError(t, err)
	_, decision, _ = neg.Apply(map[string]any{"score": 2.0})
	assert.Equal(t, Keep, decision)
}

func TestStringEqFilter(t *testing.T) {
	p, err := newStringEqFilter(map[string]any{"field": "lang", "eq": "en"})
	require.NoError(t, err)

	_, decision, _ := p.Apply(map[string]any{"lang": "en"})
	assert.Equal(t, Keep, decision)

	_, decision, _ = p.Apply(map[string]any{"lang": "fr"})
	assert.Equal(t, Drop, decision)
}

func TestMassiveWebRepetitionFilter_DropsHighLineDuplication(t *testing.T) {
	p, err := newMassiveWebRepetitionFilter(map[string]any{"max_line_dup_fraction": 0.3})
	require.NoError(t, err)

	text := "same line\nsame line\nsame line\nunique line"
	_, decision, _ := p.Apply(map[string]any{"text": text})
	assert.Equal(t, Drop, decision)

	_, decision, _ = p.Apply(map[string]any{"text": "one\ntwo\nthree\nfour"})
	assert.Equal(t, Keep, decision)
}

func TestURLSubstringFilter_SubstringMode(t *testing.T) {
	p, err := newURLSubstringFilter(map[string]any{
		"url_key": "url",
		"banlist": []any{"spam.example"},
	})
	require.NoError(t, err)

	_, decision, _ := p.Apply(map[string]any{"url": "https://spam.example/page"})
	assert.Equal(t, Drop, decision)

	_, decision, _ = p.Apply(map[string]any{"url": "https://news.example/page"})
	assert.Equal(t, Keep, decision)
}

func TestURLSubstringFilter_GlobMode(t *testing.T) {
	p, err := newURLSubstringFilter(map[string]any{
		"url_key":    "url",
		"banlist":    []any{"*.spam.example/**"},
		"match_mode": "glob",
	})
	require.NoError(t, err)

	_, decision, _ := p.Apply(map[string]any{"url": "ads.spam.example/x"})
	assert.Equal(t, Drop, decision)
}

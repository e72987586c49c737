package jsonpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_DottedPath(t *testing.T) {
	doc := map[string]any{
		"metadata": map[string]any{
			"quality_score": 0.75,
		},
		"text": "hello",
	}

	v, ok := Get(doc, "metadata.quality_score")
	require.True(t, ok)
	assert.Equal(t, 0.75, v)

	_, ok = Get(doc, "text")
	require.True(t, ok)

	_, ok = Get(doc, "metadata.missing")
	assert.False(t, ok)

	_, ok = Get(doc, "text.nested")
	assert.False(t, ok, "descending through a non-object must be absent, not a panic")
}

func TestSet_CreatesIntermediateObjects(t *testing.T) {
	doc := map[string]any{}
	require.NoError(t, Set(doc, "metadata.quality_score", 0.9))

	v, ok := Get(doc, "metadata.quality_score")
	require.True(t, ok)
	assert.Equal(t, 0.9, v)
}

func TestSet_NonObjectIntermediateFails(t *testing.T) {
	doc := map[string]any{"text": "hello"}
	err := Set(doc, "text.nested", "x")
	assert.Error(t, err)
}

func TestAsNumberOr(t *testing.T) {
	assert.Equal(t, 3.0, AsNumberOr(3.0, -1))
	assert.Equal(t, -1.0, AsNumberOr(nil, -1))
	assert.Equal(t, -1.0, AsNumberOr("not a number", -1))
	assert.Equal(t, 5.0, AsNumberOr("5", -1))
}

func TestAsStringAndBool(t *testing.T) {
	s, ok := AsString("hi")
	assert.True(t, ok)
	assert.Equal(t, "hi", s)

	_, ok = AsString(42)
	assert.False(t, ok)

	b, ok := AsBool(true)
	assert.True(t, ok)
	assert.True(t, b)
}

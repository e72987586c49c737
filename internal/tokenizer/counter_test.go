package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeight_FloorsAtOne(t *testing.T) {
	tok, err := NewTokenizer(NameNone)
	assert.NoError(t, err)

	assert.Equal(t, 1.0, Weight(tok, ""))
	assert.Greater(t, Weight(tok, "a reasonably long piece of text content here"), 1.0)
}

package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsJSONLSource(t *testing.T) {
	cases := map[string]bool{
		"foo.jsonl":         true,
		"foo.json":          true,
		"foo.jsonl.gz":      true,
		"foo.json.gz":       true,
		"foo.jsonl.zst":     true,
		"foo.JSON.ZST":      true,
		"foo.dat.gz":        true,
		"foo.dat.zst":       true,
		"foo.txt":           false,
		"foo":               false,
		"foo.jsonl.bak":     false,
		"dir/sub/foo.jsonl": true,
	}
	for path, want := range cases {
		assert.Equal(t, want, IsJSONLSource(path), "path=%s", path)
	}
}

func TestPatternFilter_NoFilters(t *testing.T) {
	f := NewPatternFilter(PatternFilterOptions{})
	assert.False(t, f.HasFilters())
	assert.True(t, f.Matches("a/b.jsonl"))
}

func TestPatternFilter_ExcludeWins(t *testing.T) {
	f := NewPatternFilter(PatternFilterOptions{
		Includes: []string{"**/*.jsonl"},
		Excludes: []string{"**/tmp/**"},
	})
	assert.True(t, f.HasFilters())
	assert.True(t, f.Matches("data/a.jsonl"))
	assert.False(t, f.Matches("data/tmp/a.jsonl"))
	assert.False(t, f.Matches("data/a.json"))
}

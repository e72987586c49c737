package partition

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allenai/datamap-go/internal/codec"
)

func readAllLines(t *testing.T, path string) []string {
	t.Helper()
	r, err := codec.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	var lines []string
	for {
		line, ok := r.Next()
		if !ok {
			break
		}
		lines = append(lines, line)
	}
	require.NoError(t, r.Err())
	return lines
}

func TestDiscreteTable_DynamicCategoriesRouteByValue(t *testing.T) {
	dir := t.TempDir()
	table := NewDiscreteTable(dir, nil, nil)

	require.NoError(t, table.WriteLine(table.BucketFor("en", true), []byte(`{"lang":"en"}`)))
	require.NoError(t, table.WriteLine(table.BucketFor("fr", true), []byte(`{"lang":"fr"}`)))
	require.NoError(t, table.WriteLine(table.BucketFor("", false), []byte(`{"no":"lang"}`)))
	require.NoError(t, table.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	assert.ElementsMatch(t, []string{"en", "fr", NoCategory}, names)
}

func TestDiscreteTable_RestrictedChoicesFallBackToNoCategory(t *testing.T) {
	dir := t.TempDir()
	table := NewDiscreteTable(dir, []string{"en", "fr"}, nil)

	assert.Equal(t, "en", table.BucketFor("en", true))
	assert.Equal(t, NoCategory, table.BucketFor("de", true))
	assert.Equal(t, NoCategory, table.BucketFor("", false))
}

func TestDiscreteTable_ConcurrentWritesToSameBucket(t *testing.T) {
	dir := t.TempDir()
	table := NewDiscreteTable(dir, nil, nil)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		i := i
		go func() {
			_ = table.WriteLine("shared", []byte(`{"v":`+string(rune('0'+i%10))+`}`))
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	require.NoError(t, table.Close())

	dirEntries, err := os.ReadDir(filepath.Join(dir, "shared"))
	require.NoError(t, err)
	require.Len(t, dirEntries, 1)
	lines := readAllLines(t, filepath.Join(dir, "shared", dirEntries[0].Name()))
	assert.Len(t, lines, 8)
}

func TestDiscreteTable_AbortRemovesPartialFiles(t *testing.T) {
	dir := t.TempDir()
	table := NewDiscreteTable(dir, nil, nil)
	require.NoError(t, table.WriteLine("en", []byte(`{"lang":"en"}`)))
	table.Abort()

	entries, err := os.ReadDir(filepath.Join(dir, "en"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/allenai/datamap-go/internal/codec"
	"github.com/allenai/datamap-go/internal/model"
)

// writeJSONLZst writes lines (already-encoded JSON, one per line) to a
// zstd-compressed file at dir/relPath, creating parent directories as
// needed, and returns the model.SourceFile describing it.
func writeJSONLZst(t *testing.T, dir, relPath string, lines []string) model.SourceFile {
	t.Helper()

	absPath := filepath.Join(dir, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(absPath), 0o755))

	w, err := codec.NewWriter(absPath)
	require.NoError(t, err)
	for _, line := range lines {
		_, err := w.WriteLine([]byte(line))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	info, err := os.Stat(absPath)
	require.NoError(t, err)

	return model.SourceFile{RelPath: relPath, AbsPath: absPath, Size: info.Size()}
}

// readAllShards opens every file directly under dir (non-recursive) and
// returns their decoded lines concatenated, for asserting on total output
// volume without caring about shard boundaries.
func readAllShards(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var all []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		r, err := codec.OpenReader(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		for {
			line, ok := r.Next()
			if !ok {
				break
			}
			all = append(all, line)
		}
		require.NoError(t, r.Err())
		r.Close()
	}
	return all
}

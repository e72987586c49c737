package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allenai/datamap-go/internal/model"
)

func TestReservoirCommand_WritesSampleFile(t *testing.T) {
	in := t.TempDir()
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, fmt.Sprintf(`{"v":%d}`, i))
	}
	writeFixture(t, in, "a.jsonl.zst", lines)

	outFile := filepath.Join(t.TempDir(), "sample.json")
	rootCmd.SetArgs([]string{
		"reservoir-sample", "--input-dir", in, "--output-file", outFile,
		"--key", "v", "--reservoir-size", "5", "--threads", "1", "--seed", "42",
	})
	defer rootCmd.SetArgs(nil)

	code := Execute()
	require.Equal(t, int(model.ExitSuccess), code)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)

	var sample []any
	require.NoError(t, json.Unmarshal(data, &sample))
	assert.Len(t, sample, 5)
}

func TestReservoirCommand_RequiresPositiveSize(t *testing.T) {
	in := t.TempDir()
	writeFixture(t, in, "a.jsonl.zst", []string{`{"v":1}`})

	rootCmd.SetArgs([]string{
		"reservoir-sample", "--input-dir", in, "--output-file", filepath.Join(t.TempDir(), "out.json"),
		"--key", "v", "--reservoir-size", "0",
	})
	defer rootCmd.SetArgs(nil)

	code := Execute()
	assert.Equal(t, int(model.ExitConfig), code)
}

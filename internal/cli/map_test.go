package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allenai/datamap-go/internal/codec"
	"github.com/allenai/datamap-go/internal/model"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMapCommand_RunsPipelineAndWritesOutputs(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeFixture(t, in, "a.jsonl.zst", []string{`{"text":"hello"}`, `{"other":1}`})

	configPath := writeConfigFile(t, `
pipeline:
  - name: non_null_filter
    kwargs:
      field: text
`)

	rootCmd.SetArgs([]string{"map", "--input-dir", in, "--output-dir", out, "--config", configPath})
	defer rootCmd.SetArgs(nil)

	code := Execute()
	require.Equal(t, int(model.ExitSuccess), code)

	finalDir := filepath.Join(out, "step_final")
	entries, err := os.ReadDir(finalDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	r, err := codec.OpenReader(filepath.Join(finalDir, entries[0].Name()))
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
	assert.Len(t, lines, 1)
}

func TestMapCommand_MissingConfigRequiredFlagFails(t *testing.T) {
	rootCmd.SetArgs([]string{"map", "--input-dir", t.TempDir(), "--output-dir", t.TempDir()})
	defer rootCmd.SetArgs(nil)

	code := Execute()
	assert.NotEqual(t, int(model.ExitSuccess), code)
}

func TestMapCommand_UnknownTopLevelConfigKeyFailsBeforeWriting(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeFixture(t, in, "a.jsonl.zst", []string{`{"text":"hello"}`})

	configPath := writeConfigFile(t, `
pipline:
  - name: non_null_filter
`)

	rootCmd.SetArgs([]string{"map", "--input-dir", in, "--output-dir", out, "--config", configPath})
	defer rootCmd.SetArgs(nil)

	code := Execute()
	assert.Equal(t, int(model.ExitConfig), code)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries, "a config error must be raised before any writer opens")
}

func TestMapCommand_UnknownProcessorOptionFails(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeFixture(t, in, "a.jsonl.zst", []string{`{"text":"hello"}`})

	configPath := writeConfigFile(t, `
pipeline:
  - name: text_len_filter
    kwargs:
      uper: 10
`)

	rootCmd.SetArgs([]string{"map", "--input-dir", in, "--output-dir", out, "--config", configPath})
	defer rootCmd.SetArgs(nil)

	code := Execute()
	assert.Equal(t, int(model.ExitConfig), code)
}

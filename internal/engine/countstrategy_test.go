package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allenai/datamap-go/internal/model"
)

func TestRunCount_CountsLinesBlindly(t *testing.T) {
	dir := t.TempDir()
	files := []model.SourceFile{
		writeJSONLZst(t, dir, "a.jsonl.zst", []string{`{"text":"hello"}`, `not valid json`}),
		writeJSONLZst(t, dir, "b.jsonl.zst", []string{`{"text":"world"}`}),
	}

	counters, err := RunCount(context.Background(), files, CountConfig{InputDir: dir, Threads: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, counters.TotalDocs)
	assert.Greater(t, counters.TotalFileSize, int64(0))
}

func TestRunCount_SumsConfiguredTextField(t *testing.T) {
	dir := t.TempDir()
	files := []model.SourceFile{
		writeJSONLZst(t, dir, "a.jsonl.zst", []string{`{"text":"hello"}`, `{"text":"hi"}`}),
	}

	counters, err := RunCount(context.Background(), files, CountConfig{InputDir: dir, CountBytes: "text", Threads: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, counters.TotalDocs)
	assert.EqualValues(t, len("hello")+len("hi"), counters.TotalTextBytes)
}

func TestRunCount_UnparsableLineCountsAsParseErrorNotTextBytes(t *testing.T) {
	dir := t.TempDir()
	files := []model.SourceFile{
		writeJSONLZst(t, dir, "a.jsonl.zst", []string{`not json`}),
	}

	counters, err := RunCount(context.Background(), files, CountConfig{InputDir: dir, CountBytes: "text", Threads: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 1, counters.TotalDocs)
	assert.EqualValues(t, 1, counters.ParseErrors)
	assert.EqualValues(t, 0, counters.TotalTextBytes)
}

func TestRunCount_NonStringFieldStringified(t *testing.T) {
	dir := t.TempDir()
	files := []model.SourceFile{
		writeJSONLZst(t, dir, "a.jsonl.zst", []string{`{"score":42}`}),
	}

	counters, err := RunCount(context.Background(), files, CountConfig{InputDir: dir, CountBytes: "score", Threads: 1})
	require.NoError(t, err)
	assert.EqualValues(t, len("42"), counters.TotalTextBytes)
}

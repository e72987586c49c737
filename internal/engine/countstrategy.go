package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/allenai/datamap-go/internal/jsonpath"
	"github.com/allenai/datamap-go/internal/model"
	"github.com/allenai/datamap-go/internal/parallel"
)

// CountConfig is the input to RunCount, corresponding to spec §4.12's count
// command.
type CountConfig struct {
	InputDir   string
	CountBytes string // optional jsonpath; empty disables TotalTextBytes
	Threads    int
}

// RunCount implements spec §4.12: total_docs and total_file_size are
// incremented per raw line regardless of parse success (count "counts
// lines blindly" per spec §1); total_text_bytes sums the UTF-8 byte length
// of the configured field, converting non-string values to their string
// form first, and contributes zero for lines that fail to parse.
func RunCount(ctx context.Context, files []model.SourceFile, cfg CountConfig) (model.Counters, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	pool := parallel.New(threads)

	return parallel.Run(ctx, pool, files, func(ctx context.Context, f model.SourceFile) (model.Counters, error) {
		return countOneFile(f, cfg)
	})
}

func countOneFile(f model.SourceFile, cfg CountConfig) (model.Counters, error) {
	var c model.Counters

	reader, err := openReaderOrIOErr(f.AbsPath)
	if err != nil {
		return c, err
	}
	defer reader.Close()

	for {
		line, ok := reader.Next()
		if !ok {
			break
		}
		c.TotalDocs++
		c.TotalFileSize += int64(len(line))

		if cfg.CountBytes == "" {
			continue
		}

		var doc map[string]any
		if json.Unmarshal([]byte(line), &doc) != nil {
			c.ParseErrors++
			continue
		}
		v, ok := jsonpath.Get(doc, cfg.CountBytes)
		if !ok {
			continue
		}
		c.TotalTextBytes += int64(len(stringifyForByteCount(v)))
	}

	if err := reader.Err(); err != nil {
		return c, model.NewIOError(fmt.Sprintf("reading %s", f.AbsPath), err)
	}
	return c, nil
}

// stringifyForByteCount converts a non-string field value to its string
// form before counting UTF-8 bytes, per spec §4.12: "non-strings first
// converted to string".
func stringifyForByteCount(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(encoded)
}

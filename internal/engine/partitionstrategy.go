package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/allenai/datamap-go/internal/jsonpath"
	"github.com/allenai/datamap-go/internal/model"
	"github.com/allenai/datamap-go/internal/parallel"
	"github.com/allenai/datamap-go/internal/partition"
)

// DiscretePartitionConfig is the input to RunDiscretePartition,
// corresponding to spec §4.10's discrete-partition command.
type DiscretePartitionConfig struct {
	InputDir     string
	OutputDir    string
	PartitionKey string
	Choices      []string // nil/empty enables dynamic categories
	MaxFileSize  *int64
	Threads      int
}

// RunDiscretePartition implements spec §4.10: each document's
// PartitionKey is read as a string and routed to its exact category (or
// NoCategory when choices restrict the set and the value is missing or
// outside it). Lines are written byte-for-byte from the source, since
// discrete partition never modifies a document.
func RunDiscretePartition(ctx context.Context, files []model.SourceFile, cfg DiscretePartitionConfig) (model.Counters, error) {
	threads := resolveThreads(cfg.Threads)
	table := partition.NewDiscreteTable(cfg.OutputDir, cfg.Choices, cfg.MaxFileSize)

	pool := parallel.New(threads)
	counters, err := parallel.Run(ctx, pool, files, func(ctx context.Context, f model.SourceFile) (model.Counters, error) {
		return discretePartitionOneFile(f, cfg, table)
	})

	if err != nil {
		table.Abort()
		return counters, err
	}
	if closeErr := table.Close(); closeErr != nil {
		return counters, model.NewIOError("finalizing discrete partition tables", closeErr)
	}
	return counters, nil
}

func discretePartitionOneFile(f model.SourceFile, cfg DiscretePartitionConfig, table *partition.DiscreteTable) (model.Counters, error) {
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

		var doc map[string]any
		if json.Unmarshal([]byte(line), &doc) != nil {
			c.ParseErrors++
			continue
		}

		value, present := fieldAsString(doc, cfg.PartitionKey)
		bucket := table.BucketFor(value, present)

		if err := table.WriteLine(bucket, []byte(line)); err != nil {
			return c, model.NewIOError(fmt.Sprintf("writing partition bucket for %s", f.AbsPath), err)
		}
		c.Written++
	}

	if err := reader.Err(); err != nil {
		return c, model.NewIOError(fmt.Sprintf("reading %s", f.AbsPath), err)
	}
	return c, nil
}

// RangePartitionConfig is the input to RunRangePartition, corresponding to
// spec §4.11's range-partition command. Cutpoints must already be resolved
// (either taken from explicit --range-groups or derived from a reservoir
// file via internal/partition.CutpointsFromReservoir) before calling this.
type RangePartitionConfig struct {
	InputDir     string
	OutputDir    string
	Value        string // numeric field path
	DefaultValue *float64
	Cutpoints    []float64
	MaxFileSize  *int64
	BucketName   string // directory name prefix, default "bucket"
	Threads      int
}

// RunRangePartition implements spec §4.11: each document's numeric Value
// field is binary-searched against Cutpoints to select a half-open
// interval bucket; a missing field falls back to DefaultValue when set,
// otherwise the line is counted as a parse error and skipped.
func RunRangePartition(ctx context.Context, files []model.SourceFile, cfg RangePartitionConfig) (model.Counters, error) {
	threads := resolveThreads(cfg.Threads)
	table := partition.NewRangeTable(cfg.OutputDir, cfg.BucketName, cfg.Cutpoints, cfg.MaxFileSize)

	pool := parallel.New(threads)
	counters, err := parallel.Run(ctx, pool, files, func(ctx context.Context, f model.SourceFile) (model.Counters, error) {
		return rangePartitionOneFile(f, cfg, table)
	})

	if err != nil {
		table.Abort()
		return counters, err
	}
	if closeErr := table.Close(); closeErr != nil {
		return counters, model.NewIOError("finalizing range partition tables", closeErr)
	}
	return counters, nil
}

func rangePartitionOneFile(f model.SourceFile, cfg RangePartitionConfig, table *partition.RangeTable) (model.Counters, error) {
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

		var doc map[string]any
		if json.Unmarshal([]byte(line), &doc) != nil {
			c.ParseErrors++
			continue
		}

		v, present := jsonpath.Get(doc, cfg.Value)
		var num float64
		switch {
		case present:
			num = jsonpath.AsNumberOr(v, 0)
		case cfg.DefaultValue != nil:
			num = *cfg.DefaultValue
		default:
			c.ParseErrors++
			continue
		}

		idx := table.BucketIndex(num)
		if err := table.WriteLine(idx, []byte(line)); err != nil {
			return c, model.NewIOError(fmt.Sprintf("writing partition bucket for %s", f.AbsPath), err)
		}
		c.Written++
	}

	if err := reader.Err(); err != nil {
		return c, model.NewIOError(fmt.Sprintf("reading %s", f.AbsPath), err)
	}
	return c, nil
}

// fieldAsString reads path from doc and coerces the result to a string for
// discrete partition routing, per spec §4.10: "read partition_key as
// string". Non-string scalars are rendered with fmt.Sprint so a numeric or
// boolean label still routes deterministically.
func fieldAsString(doc map[string]any, path string) (string, bool) {
	v, ok := jsonpath.Get(doc, path)
	if !ok {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

func resolveThreads(threads int) int {
	if threads <= 0 {
		return runtime.NumCPU()
	}
	return threads
}

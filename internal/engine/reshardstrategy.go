package engine

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/allenai/datamap-go/internal/model"
	"github.com/allenai/datamap-go/internal/parallel"
	"github.com/allenai/datamap-go/internal/shard"
)

// shardIDStride separates the shard-index ranges pre-assigned to each
// sub-bucket of a directory group (spec §4.8: "pre-assigning disjoint
// shard ranges so that no worker collides on a shard ID"). It is generous
// relative to any realistic per-bucket shard count.
const shardIDStride = 1_000_000

// ReshardConfig is the input to RunReshard, corresponding to spec §4.8's
// reshard command.
type ReshardConfig struct {
	InputDir        string
	OutputDir       string
	Limits          shard.Limits
	Subsample       *float64 // nil disables subsampling
	KeepDirs        bool
	DeleteAfterRead bool
	Threads         int
	Seed            int64
}

// reshardBucket is one unit of reshard work: a disjoint slice of files
// writing into a single shard.Writer rooted at outputDir/dirKey, with a
// shard-index offset unique within that directory so sibling buckets for
// the same directory never collide (spec §4.8).
type reshardBucket struct {
	dirKey string
	offset int
	files  []model.SourceFile
}

// RunReshard implements spec §4.8: without --keep-dirs, files are packed
// across workers to balance total byte volume into a single flat output
// directory; with --keep-dirs, each input subdirectory is preserved and,
// when it holds more files than fit one worker, split across workers via
// pre-assigned disjoint shard ranges. Subsample, when set, keeps each line
// independently with probability *Subsample before it is ever parsed --
// reshard rewrites raw JSON lines and never needs to decode them.
func RunReshard(ctx context.Context, files []model.SourceFile, cfg ReshardConfig) (model.Counters, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	var buckets []reshardBucket
	if cfg.KeepDirs {
		buckets = bucketsByDirectory(files, threads)
	} else {
		for i, b := range packByLPT(files, threads) {
			if len(b) == 0 {
				continue
			}
			buckets = append(buckets, reshardBucket{dirKey: "", offset: i * shardIDStride, files: b})
		}
	}

	pool := parallel.New(threads)
	return parallel.Run(ctx, pool, buckets, func(ctx context.Context, b reshardBucket) (model.Counters, error) {
		return reshardOneBucket(b, cfg)
	})
}

// bucketsByDirectory groups files by their containing relative directory
// and splits each group's files by LPT across up to threads sub-buckets,
// each with its own shard-index offset within that directory.
func bucketsByDirectory(files []model.SourceFile, threads int) []reshardBucket {
	groups := make(map[string][]model.SourceFile)
	var order []string
	for _, f := range files {
		dir := filepath.ToSlash(filepath.Dir(f.RelPath))
		if dir == "." {
			dir = ""
		}
		if _, seen := groups[dir]; !seen {
			order = append(order, dir)
		}
		groups[dir] = append(groups[dir], f)
	}
	sort.Strings(order)

	var buckets []reshardBucket
	for _, dir := range order {
		group := groups[dir]
		n := threads
		if n > len(group) {
			n = len(group)
		}
		for i, b := range packByLPT(group, n) {
			if len(b) == 0 {
				continue
			}
			buckets = append(buckets, reshardBucket{dirKey: dir, offset: i * shardIDStride, files: b})
		}
	}
	return buckets
}

// packByLPT distributes files into n buckets using the Longest-Processing-
// Time-first greedy heuristic (sort descending by size, always add the
// next file to the currently lightest bucket), balancing total byte volume
// across workers per spec §4.8.
func packByLPT(files []model.SourceFile, n int) [][]model.SourceFile {
	if n < 1 {
		n = 1
	}
	sorted := make([]model.SourceFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Size > sorted[j].Size })

	buckets := make([][]model.SourceFile, n)
	totals := make([]int64, n)
	for _, f := range sorted {
		lightest := 0
		for i := 1; i < n; i++ {
			if totals[i] < totals[lightest] {
				lightest = i
			}
		}
		buckets[lightest] = append(buckets[lightest], f)
		totals[lightest] += f.Size
	}
	return buckets
}

func reshardOneBucket(b reshardBucket, cfg ReshardConfig) (model.Counters, error) {
	var c model.Counters

	rootDir := cfg.OutputDir
	if b.dirKey != "" {
		rootDir = filepath.Join(cfg.OutputDir, filepath.FromSlash(b.dirKey))
	}
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return c, model.NewIOError(fmt.Sprintf("creating %s", rootDir), err)
	}

	offset := b.offset
	writer := shard.NewWriter(rootDir, func(idx int) string { return shard.ShardName(offset + idx) }, cfg.Limits)

	rng := rand.New(rand.NewSource(cfg.Seed + int64(offset)))

	for _, f := range b.files {
		n, err := reshardOneFile(f, cfg, writer, rng, &c)
		if err != nil {
			writer.Abort()
			return c, err
		}
		_ = n
	}

	if err := writer.Close(); err != nil {
		return c, model.NewIOError("finalizing reshard writer", err)
	}
	return c, nil
}

func reshardOneFile(f model.SourceFile, cfg ReshardConfig, writer *shard.Writer, rng *rand.Rand, c *model.Counters) (int64, error) {
	reader, err := openReaderOrIOErr(f.AbsPath)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	var kept int64
	for {
		line, ok := reader.Next()
		if !ok {
			break
		}
		c.TotalDocs++
		c.TotalFileSize += int64(len(line))

		if cfg.Subsample != nil && rng.Float64() >= *cfg.Subsample {
			continue
		}

		if err := writer.WriteLine([]byte(line)); err != nil {
			return kept, model.NewIOError(fmt.Sprintf("writing shard for %s", f.AbsPath), err)
		}
		kept++
		c.Written++
	}

	if err := reader.Err(); err != nil {
		return kept, model.NewIOError(fmt.Sprintf("reading %s", f.AbsPath), err)
	}

	if cfg.DeleteAfterRead {
		_ = os.Remove(f.AbsPath)
	}
	return kept, nil
}

package partition

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/allenai/datamap-go/internal/shard"
)

// RangeTable routes documents to one of len(cutpoints)+1 half-open
// interval buckets rooted at outputDir/<prefix>_NNNN/shard_NNNNNNNN.jsonl.zst,
// per spec §4.11 and §6's naming table.
type RangeTable struct {
	mu          sync.Mutex
	outputDir   string
	prefix      string
	cutpoints   []float64 // sorted ascending, c_1 < ... < c_{m-1}
	maxFileSize *int64
	buckets     map[int]*bucketWriter
}

// NewRangeTable constructs a RangeTable from m-1 sorted cutpoints, defining
// m buckets: (-inf, c1), [c1, c2), ..., [c_{m-1}, inf).
func NewRangeTable(outputDir, prefix string, cutpoints []float64, maxFileSize *int64) *RangeTable {
	return &RangeTable{
		outputDir:   outputDir,
		prefix:      prefix,
		cutpoints:   cutpoints,
		maxFileSize: maxFileSize,
		buckets:     make(map[int]*bucketWriter),
	}
}

// BucketIndex binary-searches v against the table's cutpoints and returns
// the half-open interval index in [0, m). A value exactly equal to a
// cutpoint falls into the upper bucket, per spec §9 open question 3's
// resolution: "[c, ·)" matches the documented half-open convention.
func (t *RangeTable) BucketIndex(v float64) int {
	return sort.Search(len(t.cutpoints), func(i int) bool { return t.cutpoints[i] > v })
}

// NumBuckets returns the number of buckets this table routes into.
func (t *RangeTable) NumBuckets() int {
	return len(t.cutpoints) + 1
}

// bucketDirName renders the "<prefix>_NNNN" directory name for bucket idx,
// per spec §3's "Bucket directories are {prefix}_NNNN."
func (t *RangeTable) bucketDirName(idx int) string {
	return fmt.Sprintf("%s_%04d", t.prefix, idx)
}

// WriteLine serializes line into the shard for bucket idx, creating its
// writer and directory on first sight.
func (t *RangeTable) WriteLine(idx int, line []byte) error {
	bw, err := t.bucketFor(idx)
	if err != nil {
		return err
	}
	return bw.writeLine(line)
}

func (t *RangeTable) bucketFor(idx int) (*bucketWriter, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if bw, ok := t.buckets[idx]; ok {
		return bw, nil
	}

	dir := filepath.Join(t.outputDir, t.bucketDirName(idx))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("partition: creating bucket directory %s: %w", dir, err)
	}
	limits := shard.Limits{MaxBytes: t.maxFileSize}
	bw := &bucketWriter{w: shard.NewWriter(dir, shard.ShardName, limits)}
	t.buckets[idx] = bw
	return bw, nil
}

// Close finalizes every bucket writer that was ever opened.
func (t *RangeTable) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var firstErr error
	for _, bw := range t.buckets {
		if err := bw.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Abort discards every bucket writer without finalizing it.
func (t *RangeTable) Abort() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, bw := range t.buckets {
		bw.abort()
	}
}

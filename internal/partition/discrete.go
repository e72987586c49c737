// Package partition implements the discrete and range bucket-routing cores
// from spec §4.10/§4.11: a mapping from category label (or numeric range
// index) to a sharded writer, with dynamic categories guarded by a single
// table lock taken for every bucket lookup and for first insertion, per
// spec §9's concurrency coordination guidance.
package partition

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/allenai/datamap-go/internal/shard"
)

// NoCategory is the reserved bucket name for documents whose discrete
// partition key is missing or outside the configured choices, per spec
// §3's "Bucket table (discrete)".
const NoCategory = "no_category"

// bucketWriter pairs a shard.Writer with its own mutex: discrete/range
// partition buckets may be written to concurrently by multiple file
// workers, unlike every other strategy's exclusively-owned writers, so
// writes to a single bucket must be serialized (spec §9's "hot-path writes
// go through thread-local writer caches" is the inverse of this -- here
// the bucket, not the worker, is the unit of exclusivity).
type bucketWriter struct {
	mu sync.Mutex
	w  *shard.Writer
}

func (b *bucketWriter) writeLine(line []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.w.WriteLine(line)
}

func (b *bucketWriter) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.w.Close()
}

func (b *bucketWriter) abort() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.w.Abort()
}

// DiscreteTable routes documents to a per-category shard.Writer rooted at
// outputDir/<category>/chunk_NNNNNNNN.jsonl.zst, per spec §4.10.
type DiscreteTable struct {
	mu          sync.Mutex
	outputDir   string
	maxFileSize *int64
	choices     map[string]bool // nil means dynamic categories
	buckets     map[string]*bucketWriter
}

// NewDiscreteTable constructs a DiscreteTable. A nil or empty choices slice
// enables dynamic categories (created on first sight); a non-empty slice
// restricts routing to those exact labels, with everything else -- missing
// key or a value outside choices -- falling into NoCategory.
func NewDiscreteTable(outputDir string, choices []string, maxFileSize *int64) *DiscreteTable {
	var set map[string]bool
	if len(choices) > 0 {
		set = make(map[string]bool, len(choices))
		for _, c := range choices {
			set[c] = true
		}
	}
	return &DiscreteTable{
		outputDir:   outputDir,
		maxFileSize: maxFileSize,
		choices:     set,
		buckets:     make(map[string]*bucketWriter),
	}
}

// BucketFor resolves the category label for a document whose partition-key
// read produced (value, present), per spec §4.10's routing rule.
func (t *DiscreteTable) BucketFor(value string, present bool) string {
	if t.choices != nil {
		if !present || !t.choices[value] {
			return NoCategory
		}
		return value
	}
	if !present {
		return NoCategory
	}
	return value
}

// WriteLine serializes line into the named bucket's current shard,
// creating the bucket's writer and output directory on first sight. The
// table-level lock is held only long enough to look up or insert the
// bucket entry; the actual write is serialized by the bucket's own lock so
// concurrent writes to distinct buckets don't contend.
func (t *DiscreteTable) WriteLine(bucket string, line []byte) error {
	bw, err := t.bucketFor(bucket)
	if err != nil {
		return err
	}
	return bw.writeLine(line)
}

func (t *DiscreteTable) bucketFor(bucket string) (*bucketWriter, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if bw, ok := t.buckets[bucket]; ok {
		return bw, nil
	}

	dir := filepath.Join(t.outputDir, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("partition: creating bucket directory %s: %w", dir, err)
	}
	limits := shard.Limits{MaxBytes: t.maxFileSize}
	bw := &bucketWriter{w: shard.NewWriter(dir, shard.ChunkName, limits)}
	t.buckets[bucket] = bw
	return bw, nil
}

// Close finalizes every bucket writer that was ever opened, returning the
// first error encountered while still attempting to close the rest (spec
// §5's "every partially written shard must be finalized... or removed").
func (t *DiscreteTable) Close() error {
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

// Abort discards every bucket writer without finalizing it, removing the
// (necessarily corrupt) files.
func (t *DiscreteTable) Abort() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, bw := range t.buckets {
		bw.abort()
	}
}

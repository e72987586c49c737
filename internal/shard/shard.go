// Package shard implements the sharded writer described in spec §4.4: a
// sink that serializes one document per line, rotating to a new output
// file when a byte or line limit would be exceeded, and guaranteeing
// flush/finalize on every exit path.
//
// Grounded on the teacher's scoped-acquisition idiom for per-file resources
// (discovery.readFile, codec.LineWriter's Close contract) and spec §9's
// explicit instruction to use a scoped-acquisition idiom around every
// writer.
package shard

import (
	"fmt"
	"path/filepath"

	"github.com/allenai/datamap-go/internal/codec"
)

// Limits bounds a shard's size. A nil pointer means "no limit" for that
// dimension; at least one of the two should be set for strategies that
// require bounded shards (reshard, shuffle, partition), per spec §4.4.
type Limits struct {
	MaxBytes *int64
	MaxLines *int64
}

// NameFunc builds the file name for shard index idx under a writer's root
// directory. Each strategy supplies its own naming scheme (spec §3's
// "Shard" naming rules): shard_NNNNNNNN.jsonl.zst, chunk_BBBBBBBB.IIIIIIII.
// shuffled.jsonl.zst, etc.
type NameFunc func(idx int) string

// Writer rotates across a sequence of codec.LineWriter files rooted at Dir,
// enforcing Limits. It is not safe for concurrent use by multiple
// goroutines; callers give each worker (or each bucket) its own Writer.
type Writer struct {
	dir      string
	nameFn   NameFunc
	limits   Limits
	cur      *codec.LineWriter
	curPath  string
	curBytes int64
	curLines int64
	nextIdx  int
}

// NewWriter constructs a Writer. No file is created until the first
// WriteLine call (shards are lazy per spec §3's Lifecycle section).
func NewWriter(dir string, nameFn NameFunc, limits Limits) *Writer {
	return &Writer{dir: dir, nameFn: nameFn, limits: limits}
}

// WriteLine appends line plus a trailing newline, rotating first if the
// addition would exceed either configured limit. Per spec §4.4 the rotation
// check happens before the append: the current shard is finalized first,
// then a new one is opened with the next zero-padded index. A single line
// may always be written to an empty shard even if it alone exceeds the
// configured limit (spec §8 item 2's "over-by-one" allowance), since a
// shard can never be split mid-line.
func (w *Writer) WriteLine(line []byte) error {
	addBytes := int64(len(line)) + 1

	if w.cur != nil {
		exceedsBytes := w.limits.MaxBytes != nil && w.curBytes+addBytes > *w.limits.MaxBytes
		exceedsLines := w.limits.MaxLines != nil && w.curLines+1 > *w.limits.MaxLines
		if exceedsBytes || exceedsLines {
			if err := w.rotate(); err != nil {
				return err
			}
		}
	}

	if w.cur == nil {
		if err := w.open(); err != nil {
			return err
		}
	}

	n, err := w.cur.WriteLine(line)
	if err != nil {
		w.abortCurrent()
		return fmt.Errorf("shard: %w", err)
	}
	w.curBytes += int64(n)
	w.curLines++
	return nil
}

// open creates the next shard file in sequence.
func (w *Writer) open() error {
	name := w.nameFn(w.nextIdx)
	w.nextIdx++
	path := filepath.Join(w.dir, name)

	lw, err := codec.NewWriter(path)
	if err != nil {
		return fmt.Errorf("shard: opening %s: %w", path, err)
	}

	w.cur = lw
	w.curPath = path
	w.curBytes = 0
	w.curLines = 0
	return nil
}

// rotate finalizes the current shard and clears state so the next
// WriteLine opens a fresh file.
func (w *Writer) rotate() error {
	if w.cur == nil {
		return nil
	}
	if err := w.cur.Close(); err != nil {
		return fmt.Errorf("shard: finalizing %s: %w", w.curPath, err)
	}
	w.cur = nil
	return nil
}

// abortCurrent discards and removes the current (corrupt) shard file.
func (w *Writer) abortCurrent() {
	if w.cur == nil {
		return
	}
	w.cur.Abort()
	w.cur = nil
}

// Close finalizes the current shard, if any. Safe to call on a Writer that
// never wrote a line (no-op).
func (w *Writer) Close() error {
	return w.rotate()
}

// Abort discards the current shard without finalizing it, removing the
// (necessarily corrupt) file. Used on abnormal termination paths so no
// half-frame zstd file is left behind (spec §5).
func (w *Writer) Abort() {
	w.abortCurrent()
}

// ShardName returns the canonical "shard_NNNNNNNN.jsonl.zst" name for idx,
// used by reshard and discrete/range partition outputs.
func ShardName(idx int) string {
	return fmt.Sprintf("shard_%08d.jsonl.zst", idx)
}

// ChunkName returns the canonical "chunk_NNNNNNNN.jsonl.zst" name for idx,
// used by discrete partition bucket outputs.
func ChunkName(idx int) string {
	return fmt.Sprintf("chunk_%08d.jsonl.zst", idx)
}

// ShuffledChunkName returns the canonical
// "chunk_BBBBBBBB.IIIIIIII.shuffled.jsonl.zst" name for chunk id c and file
// index i, used by the shuffle strategy.
func ShuffledChunkName(c, i int) string {
	return fmt.Sprintf("chunk_%08d.%08d.shuffled.jsonl.zst", c, i)
}

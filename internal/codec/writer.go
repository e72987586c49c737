package codec

import (
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
)

// zstdLevel3 is spec §4.2/§6's mandatory output compression level: always
// zstd, always level 3, regardless of the strategy writing the shard.
var zstdLevel3 = zstd.EncoderLevelFromZstd(3)

// LineWriter writes zstd-compressed JSONL to a single file. Close must be
// called on every code path -- including error paths -- to finalize the
// zstd frame; a LineWriter that is never closed (or whose Close fails)
// leaves a corrupt file that must be removed by the caller (see shard.Writer
// for the scoped-acquisition wrapper that guarantees this).
type LineWriter struct {
	path string
	f    *os.File
	enc  *zstd.Encoder
}

// NewWriter opens path for writing and wraps it in a zstd encoder pinned to
// level 3. The file is created (or truncated) immediately; callers that
// abort before writing any lines should call Abort to remove the empty/
// partial file rather than leaving it behind.
func NewWriter(path string) (*LineWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstdLevel3))
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("opening zstd writer for %s: %w", path, err)
	}

	return &LineWriter{path: path, f: f, enc: enc}, nil
}

// WriteLine writes line followed by a single newline. The returned byte
// count is the uncompressed accounting unit spec §4.4 uses for shard
// rotation: len(line) + 1.
func (w *LineWriter) WriteLine(line []byte) (int, error) {
	n, err := w.enc.Write(line)
	if err != nil {
		return n, fmt.Errorf("writing to %s: %w", w.path, err)
	}
	if _, err := w.enc.Write([]byte{'\n'}); err != nil {
		return n + 1, fmt.Errorf("writing newline to %s: %w", w.path, err)
	}
	return n + 1, nil
}

// Close flushes and finalizes the zstd frame, then closes the underlying
// file. On any failure the partially written file is removed so no
// half-frame zstd file is ever left on disk (spec §5 cancellation model).
func (w *LineWriter) Close() error {
	encErr := w.enc.Close()
	fileErr := w.f.Close()
	if encErr != nil || fileErr != nil {
		os.Remove(w.path)
		if encErr != nil {
			return fmt.Errorf("finalizing zstd frame for %s: %w", w.path, encErr)
		}
		return fmt.Errorf("closing %s: %w", w.path, fileErr)
	}
	return nil
}

// Abort discards the writer without finalizing the zstd frame and removes
// the (necessarily corrupt) file from disk.
func (w *LineWriter) Abort() {
	w.enc.Close()
	w.f.Close()
	os.Remove(w.path)
}

// Package codec implements the streaming JSONL codec: a reader side that
// auto-detects plain/gzip/zstd compression by file suffix and yields raw
// JSON line strings, and a writer side that always emits zstd level 3.
//
// Grounded on the teacher's resource-scoped I/O idiom in
// discovery.readFile/discovery.Walker (open, defer-close, bounded buffer)
// and wired to github.com/klauspost/compress/zstd for the compression layer
// the teacher itself does not need.
package codec

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/zstd"
)

// minLineBufferBytes is the minimum buffer size for the line scanner, per
// spec §4.2 ("wrap in a line reader sized to >= 64 KiB").
const minLineBufferBytes = 64 * 1024

// maxLineBytes bounds a single JSONL line to guard against unbounded memory
// growth on corrupt input; a line beyond this stops the scan of the whole
// file with bufio.ErrTooLong (surfaced by Err) rather than being silently
// truncated.
const maxLineBytes = 64 * 1024 * 1024

// LineReader yields UTF-8 line strings (without terminators) from a single
// source file. It is lazy, finite, and non-restartable.
type LineReader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	lineNo  int
}

// OpenReader opens path and wraps it in a decompressor chosen by suffix:
// ".gz" selects gzip, ".zst" selects zstd, anything else is read as-is.
// Decompressor construction failures are returned immediately; the file
// handle is closed on any error path so OpenReader never leaks a descriptor.
func OpenReader(path string) (*LineReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	var r io.Reader = f
	var zr *zstd.Decoder
	closer := io.Closer(f)

	switch {
	case strings.HasSuffix(strings.ToLower(path), ".gz"):
		gr, gzErr := gzip.NewReader(f)
		if gzErr != nil {
			f.Close()
			return nil, fmt.Errorf("opening gzip reader for %s: %w", path, gzErr)
		}
		r = gr
		closer = multiCloser{gr, f}
	case strings.HasSuffix(strings.ToLower(path), ".zst"):
		zr, err = zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening zstd reader for %s: %w", path, err)
		}
		r = zr.IOReadCloser()
		closer = multiCloser{r.(io.Closer), f}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, minLineBufferBytes), maxLineBytes)

	return &LineReader{scanner: scanner, closer: closer}, nil
}

// Next advances to the next line and returns it. The returned bool is false
// when the stream is exhausted (matching the bufio.Scanner convention); call
// Err afterward to distinguish clean EOF from a read/decompression failure.
// Malformed UTF-8 on a single line does not stop iteration: the caller
// should route the raw (possibly invalid) line to an error sink and keep
// calling Next.
func (r *LineReader) Next() (string, bool) {
	if !r.scanner.Scan() {
		return "", false
	}
	r.lineNo++
	return r.scanner.Text(), true
}

// LineNo returns the 1-based index of the line last returned by Next.
func (r *LineReader) LineNo() int {
	return r.lineNo
}

// ValidUTF8 reports whether line is valid UTF-8. Callers use this to decide
// whether a line should be routed to an error sink before attempting to
// parse it as JSON.
func ValidUTF8(line string) bool {
	return utf8.ValidString(line)
}

// Err returns the first non-EOF error encountered while scanning, which
// includes decompression failures surfaced through the wrapped reader.
func (r *LineReader) Err() error {
	return r.scanner.Err()
}

// Close releases all underlying resources (decompressor and file handle).
func (r *LineReader) Close() error {
	return r.closer.Close()
}

// multiCloser closes a set of io.Closers in order, returning the first
// error encountered but always attempting to close every member.
type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

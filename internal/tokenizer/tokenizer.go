// Package tokenizer provides a black-box token-counting collaborator
// ("given text -> integer token count"), used by the weighted reservoir
// strategy to weight documents by token count.
//
// Two implementations are provided:
//   - cl100k_base: the real BPE tokenizer (default), via tiktoken-go.
//   - none: a character-count estimator (~4 chars/token) for tests and for
//     environments without access to the BPE dictionary cache.
//
// Both are goroutine-safe.
package tokenizer

import "fmt"

// Tokenizer counts tokens in text content. All implementations must be safe
// for concurrent use from multiple goroutines.
type Tokenizer interface {
	// Count returns the number of tokens in text. Returns 0 for empty text.
	// Never returns a negative value.
	Count(text string) int

	// Name returns the tokenizer's identifying name, recorded alongside
	// reservoir output for provenance.
	Name() string
}

// Supported tokenizer names.
const (
	// NameCL100K is the cl100k_base BPE encoding, the reference tokenizer
	// for this toolkit. This is the default when an empty string is
	// passed to NewTokenizer.
	NameCL100K = "cl100k_base"

	// NameNone selects the character-count estimator: len(text) / 4.
	NameNone = "none"
)

// ErrUnknownTokenizer is returned by NewTokenizer for an unrecognized name.
var ErrUnknownTokenizer = fmt.Errorf("unknown tokenizer")

// NewTokenizer returns a Tokenizer for the given name. An empty name
// defaults to cl100k_base. The cl100k_base BPE encoding is loaded from disk
// (or the TIKTOKEN_CACHE_DIR cache) exactly once; subsequent Count calls are
// cheap and goroutine-safe.
func NewTokenizer(name string) (Tokenizer, error) {
	if name == "" {
		name = NameCL100K
	}

	switch name {
	case NameCL100K:
		return newTiktokenTokenizer(name)
	case NameNone:
		return newEstimatorTokenizer(), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: cl100k_base, none)", ErrUnknownTokenizer, name)
	}
}

// Package discovery implements recursive JSONL file discovery: enumerating
// regular files under a root, classifying them by the suffix rules in spec
// §4.1, and applying optional include/exclude glob filters and ignore
// files.
package discovery

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// jsonlSuffixes lists the recognized compound JSONL source suffixes from
// spec §4.1, lower-cased.
var jsonlSuffixes = []string{
	".jsonl", ".json",
	".jsonl.gz", ".json.gz",
	".jsonl.zst", ".json.zst",
}

// IsJSONLSource reports whether path names a recognized JSONL source file
// per spec §4.1: one of the compound suffixes above, case-insensitive, or a
// bare ".gz"/".zst" tail (covers ad hoc compressed files that omit the
// ".json"/".jsonl" stem).
func IsJSONLSource(path string) bool {
	lower := strings.ToLower(path)
	for _, suf := range jsonlSuffixes {
		if strings.HasSuffix(lower, suf) {
			return true
		}
	}
	return strings.HasSuffix(lower, ".gz") || strings.HasSuffix(lower, ".zst")
}

// PatternFilter applies optional include/exclude doublestar glob filtering
// ahead of JSONL-suffix discovery. This is an ambient supplement -- spec.md
// itself only requires suffix-based discovery -- grounded on the teacher's
// discovery.PatternFilter: operators can scope a run to a subset of a large
// input directory without first copying files aside.
//
// Filtering rules mirror the teacher's: exclude always wins; when no
// include patterns are configured, every JSONL source passes.
type PatternFilter struct {
	includes []string
	excludes []string
	logger   *slog.Logger
}

// PatternFilterOptions holds the configuration for NewPatternFilter.
type PatternFilterOptions struct {
	// Includes is a list of doublestar glob patterns. If any are set, only
	// paths matching at least one pattern are kept.
	Includes []string

	// Excludes is a list of doublestar glob patterns. Paths matching any
	// exclude pattern are removed, regardless of include matches.
	Excludes []string
}

// NewPatternFilter creates a PatternFilter from opts. Copies are made of
// the input slices to prevent external mutation.
func NewPatternFilter(opts PatternFilterOptions) *PatternFilter {
	includes := make([]string, len(opts.Includes))
	copy(includes, opts.Includes)
	excludes := make([]string, len(opts.Excludes))
	copy(excludes, opts.Excludes)

	return &PatternFilter{
		includes: includes,
		excludes: excludes,
		logger:   slog.Default().With("component", "pattern-filter"),
	}
}

// HasFilters reports whether any include/exclude pattern is configured.
func (f *PatternFilter) HasFilters() bool {
	return len(f.includes) > 0 || len(f.excludes) > 0
}

// Matches reports whether path should be included, applying exclude-wins
// then include-OR logic, as the teacher's discovery.PatternFilter does.
func (f *PatternFilter) Matches(path string) bool {
	normalized := strings.TrimPrefix(filepath.ToSlash(path), "./")
	if normalized == "" {
		return false
	}

	for _, pattern := range f.excludes {
		if matched, err := doublestar.Match(pattern, normalized); err == nil && matched {
			f.logger.Debug("path excluded by pattern", "path", normalized, "pattern", pattern)
			return false
		}
	}

	if len(f.includes) == 0 {
		return true
	}

	for _, pattern := range f.includes {
		if matched, err := doublestar.Match(pattern, normalized); err == nil && matched {
			return true
		}
	}
	return false
}

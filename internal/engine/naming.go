package engine

import "strings"

// jsonlSourceSuffixes mirrors internal/discovery's suffix table: every
// accepted input extension, longest first so ".jsonl.gz" is stripped before
// ".gz" would otherwise match on its own.
var jsonlSourceSuffixes = []string{
	".jsonl.gz", ".json.gz", ".jsonl.zst", ".json.zst", ".jsonl", ".json",
	".gz", ".zst",
}

// normalizeToJSONLZst rewrites a source-relative path so its extension is
// ".jsonl.zst", per spec §4.6's "extension normalized to .jsonl.zst" and
// §6's naming table. A path with no recognized suffix has ".jsonl.zst"
// appended.
func normalizeToJSONLZst(relPath string) string {
	lower := strings.ToLower(relPath)
	for _, suf := range jsonlSourceSuffixes {
		if strings.HasSuffix(lower, suf) {
			return relPath[:len(relPath)-len(suf)] + ".jsonl.zst"
		}
	}
	return relPath + ".jsonl.zst"
}

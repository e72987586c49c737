package discovery

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// DatamapignoreMatcher loads and evaluates .datamapignore patterns
// hierarchically, using gitignore pattern syntax via
// github.com/sabhiram/go-gitignore. This lets operators scope a run away
// from subdirectories of a large corpus (staging areas, quarantined
// shards) without deleting or moving them out of the input root -- an
// ambient supplement to spec §4.1's suffix-only discovery rule.
type DatamapignoreMatcher struct {
	root     string
	matchers map[string]*gitignore.GitIgnore
	// dirs stores the sorted list of directory keys for deterministic
	// iteration from root toward the file's parent directory.
	dirs   []string
	logger *slog.Logger
}

// NewDatamapignoreMatcher creates a new DatamapignoreMatcher rooted at the given
// directory. It walks rootDir to discover all .datamapignore files and compiles
// their patterns using sabhiram/go-gitignore.
//
// If no .datamapignore files exist, the matcher returns successfully and
// IsIgnored will always return false. Missing or unreadable .datamapignore files
// at individual directory levels are logged and skipped without error.
func NewDatamapignoreMatcher(rootDir string) (*DatamapignoreMatcher, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolving root path %s: %w", rootDir, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root path %s: %w", absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path %s is not a directory", absRoot)
	}

	logger := slog.Default().With("component", "datamapignore")

	m := &DatamapignoreMatcher{
		root:     absRoot,
		matchers: make(map[string]*gitignore.GitIgnore),
		logger:   logger,
	}

	if err := m.discoverDatamapignoreFiles(); err != nil {
		return nil, fmt.Errorf("discovering .datamapignore files in %s: %w", absRoot, err)
	}

	logger.Debug("datamapignore matcher initialized",
		"root", absRoot,
		"datamapignore_count", len(m.matchers),
	)

	return m, nil
}

// discoverDatamapignoreFiles walks the root directory tree to find all
// .datamapignore files and compiles each one.
func (m *DatamapignoreMatcher) discoverDatamapignoreFiles() error {
	err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			m.logger.Debug("skipping unreadable path", "path", path, "error", err)
			return filepath.SkipDir
		}

		// Skip .git directory entirely.
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}

		// We only care about .datamapignore files.
		if d.IsDir() || d.Name() != ".datamapignore" {
			return nil
		}

		dirPath := filepath.Dir(path)
		relDir, err := filepath.Rel(m.root, dirPath)
		if err != nil {
			m.logger.Debug("skipping .datamapignore, cannot compute relative path",
				"path", path, "error", err)
			return nil
		}

		compiled, err := gitignore.CompileIgnoreFile(path)
		if err != nil {
			m.logger.Debug("skipping unreadable .datamapignore",
				"path", path, "error", err)
			return nil
		}

		// Normalize to use "." for the root directory.
		if relDir == "" {
			relDir = "."
		}

		m.matchers[relDir] = compiled
		m.logger.Debug("loaded .datamapignore", "dir", relDir, "path", path)

		return nil
	})
	if err != nil {
		return fmt.Errorf("walking directory tree: %w", err)
	}

	// Build sorted directory list for deterministic evaluation order.
	m.dirs = make([]string, 0, len(m.matchers))
	for dir := range m.matchers {
		m.dirs = append(m.dirs, dir)
	}
	sort.Strings(m.dirs)

	return nil
}

// IsIgnored reports whether the given path should be ignored according to
// the loaded .datamapignore rules. The path must be relative to the root
// directory (using forward slashes or OS-native separators). The isDir
// parameter indicates whether the path represents a directory, which is
// needed for directory-only patterns (patterns ending in /).
//
// The matcher evaluates .datamapignore files from the root directory down to
// the file's parent directory. A file is ignored if any ancestor's
// .datamapignore matches it. Negation patterns in a .datamapignore can override
// matches from the same .datamapignore file.
func (m *DatamapignoreMatcher) IsIgnored(path string, isDir bool) bool {
	normalizedPath := filepath.ToSlash(path)
	normalizedPath = strings.TrimPrefix(normalizedPath, "./")

	if normalizedPath == "" || normalizedPath == "." {
		return false
	}

	matchPath := normalizedPath
	if isDir && !strings.HasSuffix(matchPath, "/") {
		matchPath += "/"
	}

	for _, dir := range m.dirs {
		matcher := m.matchers[dir]

		if dir != "." {
			prefix := dir + "/"
			if !strings.HasPrefix(normalizedPath, prefix) {
				continue
			}
		}

		var relPath string
		if dir == "." {
			relPath = matchPath
		} else {
			relPath = strings.TrimPrefix(matchPath, dir+"/")
		}

		if matcher.MatchesPath(relPath) {
			m.logger.Debug("path matched datamapignore",
				"path", normalizedPath,
				"datamapignore_dir", dir,
				"rel_path", relPath,
			)
			return true
		}
	}

	return false
}

// PatternCount returns the total number of .datamapignore files that were loaded
// and compiled. This is useful for diagnostics and logging.
func (m *DatamapignoreMatcher) PatternCount() int {
	return len(m.matchers)
}

// Compile-time interface compliance check.
var _ Ignorer = (*DatamapignoreMatcher)(nil)

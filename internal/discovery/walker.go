package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/allenai/datamap-go/internal/model"
)

// WalkerConfig holds configuration for the file discovery walker.
type WalkerConfig struct {
	// Root is the directory to walk.
	Root string

	// DatamapignoreMatcher applies optional .datamapignore exclusions.
	DatamapignoreMatcher Ignorer

	// PatternFilter applies optional include/exclude glob filtering.
	PatternFilter *PatternFilter
}

// Walker is the core file discovery engine that traverses a directory tree
// and collects JSONL source files per spec §4.1.
type Walker struct {
	logger *slog.Logger
}

// NewWalker creates a new Walker instance.
func NewWalker() *Walker {
	return &Walker{logger: slog.Default().With("component", "walker")}
}

// Walk discovers JSONL source files in the directory tree rooted at
// cfg.Root. Files are returned sorted by relative path for deterministic
// ordering within a run (spec §4.1: "Ordering is unspecified but must be
// stable within a run"). Fails with an IoError-classified error on an
// inaccessible root.
func (w *Walker) Walk(ctx context.Context, cfg WalkerConfig) ([]model.SourceFile, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, model.NewIOError(fmt.Sprintf("resolving root path %s", cfg.Root), err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, model.NewIOError(fmt.Sprintf("stat root %s", root), err)
	}
	if !info.IsDir() {
		return nil, model.NewIOError(fmt.Sprintf("root %s is not a directory", root), nil)
	}

	var files []model.SourceFile
	var mu sync.Mutex
	symlinks := NewSymlinkResolver()

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			w.logger.Debug("walk error", "path", path, "error", walkErr)
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if relPath == "." {
			return nil
		}

		isDir := d.IsDir()

		// Symlinks are resolved explicitly with loop detection rather than
		// followed blindly (filepath.WalkDir never descends into a
		// symlinked directory on its own, but a symlinked *file* pointing
		// back into an already-visited real path, or a dangling target,
		// must still be caught here).
		if d.Type()&fs.ModeSymlink != 0 {
			realPath, isLoop, err := symlinks.Resolve(path)
			if err != nil {
				w.logger.Debug("skipping unresolvable symlink", "path", relPath, "error", err)
				return nil
			}
			if isLoop {
				w.logger.Debug("skipping symlink loop", "path", relPath, "real_path", realPath)
				return nil
			}
			symlinks.MarkVisited(realPath)
		}

		if cfg.DatamapignoreMatcher != nil && cfg.DatamapignoreMatcher.IsIgnored(relPath, isDir) {
			w.logger.Debug("ignored by .datamapignore", "path", relPath)
			if isDir {
				return fs.SkipDir
			}
			return nil
		}

		if isDir {
			return nil
		}

		if !IsJSONLSource(relPath) {
			return nil
		}

		if cfg.PatternFilter != nil && cfg.PatternFilter.HasFilters() && !cfg.PatternFilter.Matches(relPath) {
			w.logger.Debug("pattern filter excluded", "path", relPath)
			return nil
		}

		fileInfo, err := os.Stat(path)
		if err != nil {
			w.logger.Debug("stat error", "path", relPath, "error", err)
			return nil
		}

		mu.Lock()
		files = append(files, model.SourceFile{
			RelPath: relPath,
			AbsPath: path,
			Size:    fileInfo.Size(),
		})
		mu.Unlock()

		return nil
	})

	if walkErr != nil {
		return nil, model.NewIOError(fmt.Sprintf("walking directory %s", root), walkErr)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].RelPath < files[j].RelPath
	})

	w.logger.Info("discovery complete", "files", len(files))
	return files, nil
}

// Package scanner finds firewall configuration files for batch runs.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/asaclean/pkg/config"
)

// Scanner finds configuration files in a directory tree.
type Scanner struct {
	config   *config.Config
	matchers []matcher
}

// matcher applies gitignore patterns to paths relative to base.
type matcher struct {
	base string
	m    gitignore.Matcher
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns loads batch.exclude patterns, relative to root, and the
// .gitignore files of the enclosing repository when batch.gitignore is set.
func (s *Scanner) loadExcludePatterns(root string) {
	s.matchers = nil

	var patterns []gitignore.Pattern
	for _, pattern := range s.config.Batch.Exclude {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}
	if len(patterns) > 0 {
		s.matchers = append(s.matchers, matcher{base: root, m: gitignore.NewMatcher(patterns)})
	}

	if !s.config.Batch.Gitignore {
		return
	}
	gitRoot := findGitRoot(root)
	if gitRoot == "" {
		return
	}
	gitPatterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil)
	if err == nil && len(gitPatterns) > 0 {
		s.matchers = append(s.matchers, matcher{base: gitRoot, m: gitignore.NewMatcher(gitPatterns)})
	}
}

// isExcluded checks if a path matches any exclusion pattern.
func (s *Scanner) isExcluded(path string, isDir bool) bool {
	for _, m := range s.matchers {
		rel, err := filepath.Rel(m.base, path)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		if m.m.Match(strings.Split(rel, string(filepath.Separator)), isDir) {
			return true
		}
	}
	return false
}

// ScanDir recursively scans a directory for files with a batch extension.
// Symlinks that resolve outside the root are skipped.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns(absRoot)

	var files []string
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, realRoot) {
				return nil
			}
		}

		if d.IsDir() {
			if path != absRoot && (d.Name() == ".git" || s.isExcluded(path, true)) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.isExcluded(path, false) || !s.config.HasExtension(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})

	sort.Strings(files)
	return files, walkErr
}

// isWithinRoot checks if a path is contained within the root directory.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	// Add separator to prevent "/root2" matching "/root"
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// ScanPaths expands paths into configuration files. Directories are walked;
// files named explicitly are kept whatever their extension. The result is
// de-duplicated and keeps first-seen order.
func (s *Scanner) ScanPaths(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			abs, err := filepath.Abs(path)
			if err != nil {
				return nil, err
			}
			add(abs)
			continue
		}
		found, err := s.ScanDir(path)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}
	return files, nil
}

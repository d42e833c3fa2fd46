// Package source reads configuration content from the filesystem or from a
// git revision.
package source

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/panbanda/asaclean/internal/vcs"
	"github.com/spf13/afero"
)

// ContentSource provides file content from a specific source.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
	// Describe names the source for reports, e.g. "working tree".
	Describe() string
}

// SourceError reports a failure to locate or read content.
type SourceError struct {
	Path string
	Ref  string
	Err  error
}

func (e *SourceError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("read %s at %s: %v", e.Path, e.Ref, e.Err)
	}
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// FilesystemSource reads files from a filesystem, the local one by default.
type FilesystemSource struct {
	fs afero.Fs
}

// NewFilesystem creates a source that reads from the local filesystem.
func NewFilesystem() *FilesystemSource {
	return NewFilesystemFS(afero.NewOsFs())
}

// NewFilesystemFS creates a source that reads from fs.
func NewFilesystemFS(fs afero.Fs) *FilesystemSource {
	return &FilesystemSource{fs: fs}
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	return data, nil
}

// Describe implements ContentSource.
func (f *FilesystemSource) Describe() string {
	return "working tree"
}

// TreeSource reads files from a git tree. Paths are resolved relative to the
// repository root. It is safe for concurrent use by multiple goroutines.
type TreeSource struct {
	tree vcs.Tree
	root string
	ref  string
	mu   sync.Mutex
}

// NewTree creates a source that reads from a git tree of the repository at root.
func NewTree(tree vcs.Tree, root, ref string) *TreeSource {
	return &TreeSource{tree: tree, root: root, ref: ref}
}

// Read implements ContentSource. Absolute paths and paths relative to the
// working directory are mapped into the repository.
func (t *TreeSource) Read(path string) ([]byte, error) {
	rel, err := t.relative(path)
	if err != nil {
		return nil, &SourceError{Path: path, Ref: t.ref, Err: err}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	data, err := t.tree.File(rel)
	if err != nil {
		return nil, &SourceError{Path: path, Ref: t.ref, Err: err}
	}
	return data, nil
}

// Describe implements ContentSource.
func (t *TreeSource) Describe() string {
	rev := t.tree.Revision()
	if len(rev) > 8 {
		rev = rev[:8]
	}
	return fmt.Sprintf("git %s (%s)", t.ref, rev)
}

func (t *TreeSource) relative(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	root := resolveLinks(t.root)
	abs = resolveLinks(abs)

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside repository %s", path, t.root)
	}
	return filepath.ToSlash(rel), nil
}

// resolveLinks evaluates symlinks on the longest existing prefix of path so
// that temp directories behind symlinks compare equal.
func resolveLinks(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	dir, file := filepath.Split(path)
	if dir == "" || dir == path {
		return path
	}
	return filepath.Join(resolveLinks(filepath.Clean(dir)), file)
}

// Open returns the source to read path from. An empty ref reads the working
// tree; otherwise the repository containing path is opened and the ref
// resolved.
func Open(path, ref string, opener vcs.Opener) (ContentSource, error) {
	if ref == "" {
		return NewFilesystem(), nil
	}
	if opener == nil {
		opener = vcs.NewGitOpener()
	}

	repo, err := opener.PlainOpenWithDetect(filepath.Dir(path))
	if err != nil {
		return nil, &SourceError{Path: path, Ref: ref, Err: fmt.Errorf("open repository: %w", err)}
	}
	tree, err := repo.Resolve(ref)
	if err != nil {
		return nil, &SourceError{Path: path, Ref: ref, Err: err}
	}
	return NewTree(tree, repo.RepoPath(), ref), nil
}

package vcs

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrFileNotFound is returned when a path does not exist in a tree.
var ErrFileNotFound = errors.New("file not found in revision")

// GitOpener opens git repositories using go-git.
type GitOpener struct{}

// NewGitOpener creates a new GitOpener.
func NewGitOpener() *GitOpener {
	return &GitOpener{}
}

// PlainOpen opens an existing git repository.
func (o *GitOpener) PlainOpen(path string) (Repository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, err
	}
	return newRepository(repo, path)
}

// PlainOpenWithDetect opens a git repository, detecting .git in parent directories.
func (o *GitOpener) PlainOpenWithDetect(path string) (Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, err
	}
	return newRepository(repo, path)
}

func newRepository(repo *git.Repository, fallback string) (*gitRepository, error) {
	root := fallback
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &gitRepository{repo: repo, root: abs}, nil
}

// gitRepository wraps go-git Repository.
type gitRepository struct {
	repo *git.Repository
	root string
}

func (r *gitRepository) RepoPath() string {
	return r.root
}

func (r *gitRepository) Head() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", err
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return head.Hash().String(), nil
}

func (r *gitRepository) Resolve(rev string) (Tree, error) {
	if rev == "" {
		rev = "HEAD"
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", rev, err)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("tree of %s: %w", hash, err)
	}
	return &gitTree{tree: tree, hash: hash.String()}, nil
}

// gitTree wraps go-git Tree.
type gitTree struct {
	tree *object.Tree
	hash string
}

func (t *gitTree) Revision() string {
	return t.hash
}

func (t *gitTree) File(path string) ([]byte, error) {
	f, err := t.tree.File(filepath.ToSlash(path))
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%s@%s: %w", path, short(t.hash), ErrFileNotFound)
		}
		return nil, err
	}
	rd, err := f.Reader()
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	return io.ReadAll(rd)
}

func (t *gitTree) Entries() ([]TreeEntry, error) {
	var entries []TreeEntry
	err := t.tree.Files().ForEach(func(f *object.File) error {
		entries = append(entries, TreeEntry{Path: f.Name, Size: f.Size})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func short(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

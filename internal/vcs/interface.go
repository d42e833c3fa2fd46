// Package vcs provides version control system abstractions.
package vcs

// Repository provides read access to a git repository.
type Repository interface {
	// Resolve returns the tree of the commit a revision points at. Any
	// revision go-git understands is accepted: branches, tags, hashes,
	// HEAD~n.
	Resolve(rev string) (Tree, error)
	// Head returns the current branch name, or the commit hash when HEAD is
	// detached.
	Head() (string, error)
	// RepoPath returns the root path of the repository's worktree.
	RepoPath() string
}

// TreeEntry represents a file in a git tree.
type TreeEntry struct {
	Path string
	Size int64
}

// Tree represents a git tree object.
type Tree interface {
	// File returns the content of the file at a repository-relative path.
	File(path string) ([]byte, error)
	// Entries returns all files in the tree (recursively).
	Entries() ([]TreeEntry, error)
	// Revision returns the resolved commit hash.
	Revision() string
}

// Opener opens git repositories.
type Opener interface {
	// PlainOpen opens an existing git repository.
	PlainOpen(path string) (Repository, error)
	// PlainOpenWithDetect opens a git repository, detecting .git in parent directories.
	PlainOpenWithDetect(path string) (Repository, error)
}

package vcs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func commitFile(t *testing.T, repo *git.Repository, dir, name, content, msg string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatal(err)
	}
	_, err = wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func initRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit() error = %v", err)
	}
	return dir, repo
}

func TestGitOpener_PlainOpen_NonExistent(t *testing.T) {
	_, err := NewGitOpener().PlainOpen("/nonexistent/path")
	if err == nil {
		t.Error("PlainOpen() should return error for non-existent path")
	}
}

func TestGitOpener_PlainOpenWithDetect(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, repo, dir, "site/edge.cfg", "hostname edge\n", "initial")

	r, err := NewGitOpener().PlainOpenWithDetect(filepath.Join(dir, "site"))
	if err != nil {
		t.Fatalf("PlainOpenWithDetect() error = %v", err)
	}

	want, _ := filepath.Abs(dir)
	wantReal, _ := filepath.EvalSymlinks(want)
	gotReal, _ := filepath.EvalSymlinks(r.RepoPath())
	if gotReal != wantReal {
		t.Errorf("RepoPath() = %s, want %s", r.RepoPath(), want)
	}
}

func TestGitRepository_ResolveAndRead(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, repo, dir, "edge.cfg", "object network OLD\n", "first")
	commitFile(t, repo, dir, "edge.cfg", "object network NEW\n", "second")

	r, err := NewGitOpener().PlainOpen(dir)
	if err != nil {
		t.Fatalf("PlainOpen() error = %v", err)
	}

	head, err := r.Head()
	if err != nil {
		t.Fatalf("Head() error = %v", err)
	}
	if head != "master" && head != "main" {
		t.Errorf("Head() = %q, want a branch name", head)
	}

	tests := []struct {
		rev  string
		want string
	}{
		{"", "object network NEW\n"},
		{"HEAD", "object network NEW\n"},
		{"HEAD~1", "object network OLD\n"},
	}
	for _, tt := range tests {
		t.Run(tt.rev, func(t *testing.T) {
			tree, err := r.Resolve(tt.rev)
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.rev, err)
			}
			if len(tree.Revision()) != 40 {
				t.Errorf("Revision() = %q, want a full hash", tree.Revision())
			}
			got, err := tree.File("edge.cfg")
			if err != nil {
				t.Fatalf("File() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("File() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGitRepository_ResolveUnknown(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, repo, dir, "edge.cfg", "hostname edge\n", "initial")

	r, _ := NewGitOpener().PlainOpen(dir)
	if _, err := r.Resolve("no-such-branch"); err == nil {
		t.Error("Resolve() should fail for an unknown revision")
	}
}

func TestGitTree_FileNotFoundAndEntries(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, repo, dir, "a.cfg", "a\n", "a")
	commitFile(t, repo, dir, "dc/b.cfg", "bb\n", "b")

	r, _ := NewGitOpener().PlainOpen(dir)
	tree, err := r.Resolve("HEAD")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if _, err := tree.File("missing.cfg"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("File() error = %v, want ErrFileNotFound", err)
	}

	entries, err := tree.Entries()
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Entries() = %v, want 2 files", entries)
	}
	paths := map[string]int64{}
	for _, e := range entries {
		paths[e.Path] = e.Size
	}
	if paths["dc/b.cfg"] != 3 {
		t.Errorf("Entries() = %v, want dc/b.cfg with size 3", entries)
	}
}

package gitlocal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"gitworth/internal/appraisal"
)

func initSourceRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init source repo: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := wt.Add("main.go"); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, err = wt.Commit("initial", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Alice", Email: "alice@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return dir
}

func TestNewWorkspaceRequiresRoot(t *testing.T) {
	if _, err := NewWorkspace("  "); err == nil {
		t.Fatalf("empty root accepted")
	}
}

func TestWorkspacePathLayout(t *testing.T) {
	root := t.TempDir()
	w, err := NewWorkspace(root)
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	ref := appraisal.ProjectRef{Owner: "acme", Name: "widgets"}
	if got, want := w.Path(ref), filepath.Join(root, "acme", "widgets"); got != want {
		t.Fatalf("path = %q, want %q", got, want)
	}
	if w.Exists(ref) {
		t.Fatalf("exists before clone")
	}
}

func TestWorkspaceCloneStreamsProgress(t *testing.T) {
	source := initSourceRepo(t)
	w, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	ref := appraisal.ProjectRef{Owner: "acme", Name: "widgets"}

	var prog bytes.Buffer
	if err := w.Clone(context.Background(), ref, source, &prog); err != nil {
		t.Fatalf("clone: %v", err)
	}

	if !w.Exists(ref) {
		t.Fatalf("checkout missing after clone")
	}
	out := prog.String()
	if !strings.Contains(out, "Cloning into") {
		t.Fatalf("progress missing clone banner: %q", out)
	}
	if !strings.Contains(out, "Checking out files: done.") {
		t.Fatalf("progress missing completion line: %q", out)
	}
}

func TestWorkspaceCloneOverExistingCheckoutFails(t *testing.T) {
	source := initSourceRepo(t)
	w, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	ref := appraisal.ProjectRef{Owner: "acme", Name: "widgets"}

	if err := w.Clone(context.Background(), ref, source, nil); err != nil {
		t.Fatalf("first clone: %v", err)
	}
	err = w.Clone(context.Background(), ref, source, nil)
	if !errors.Is(err, ErrCheckoutExists) {
		t.Fatalf("err = %v, want ErrCheckoutExists", err)
	}
}

func TestWorkspaceFailedCloneLeavesNoCheckout(t *testing.T) {
	w, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	ref := appraisal.ProjectRef{Owner: "acme", Name: "widgets"}

	if err := w.Clone(context.Background(), ref, filepath.Join(t.TempDir(), "no-such-repo"), nil); err == nil {
		t.Fatalf("expected clone failure")
	}
	if w.Exists(ref) {
		t.Fatalf("failed clone left a checkout behind")
	}
	if _, err := os.Stat(w.Path(ref)); !os.IsNotExist(err) {
		t.Fatalf("failed clone left files behind: %v", err)
	}
}

func TestWorkspaceCloneRequiresURL(t *testing.T) {
	w, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	ref := appraisal.ProjectRef{Owner: "acme", Name: "widgets"}
	if err := w.Clone(context.Background(), ref, "  ", nil); err == nil {
		t.Fatalf("blank clone URL accepted")
	}
}

func TestWorkspaceRemove(t *testing.T) {
	source := initSourceRepo(t)
	w, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	ref := appraisal.ProjectRef{Owner: "acme", Name: "widgets"}

	if err := w.Clone(context.Background(), ref, source, nil); err != nil {
		t.Fatalf("clone: %v", err)
	}
	if err := w.Remove(ref); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if w.Exists(ref) {
		t.Fatalf("checkout survives remove")
	}
}

package blame

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"gitworth/internal/appraisal"
)

type fixtureRepo struct {
	dir  string
	repo *gogit.Repository
	wt   *gogit.Worktree
}

func initFixtureRepo(t *testing.T) *fixtureRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	return &fixtureRepo{dir: dir, repo: repo, wt: wt}
}

func (f *fixtureRepo) commit(t *testing.T, email string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(f.dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if _, err := f.wt.Add(name); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	_, err := f.wt.Commit("update", &gogit.CommitOptions{
		Author: &object.Signature{Name: email, Email: email, When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit as %s: %v", email, err)
	}
}

func lines(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += "line\n"
	}
	return out
}

func TestAnalyzeSingleAuthor(t *testing.T) {
	f := initFixtureRepo(t)
	f.commit(t, "alice@example.com", map[string]string{
		"main.go":         lines(4),
		"internal/app.go": lines(6),
	})

	tree, err := New().Analyze(context.Background(), appraisal.ProjectRef{Owner: "acme", Name: "widgets"}, f.dir)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if tree.LineCount != 10 {
		t.Fatalf("root line count = %d, want 10", tree.LineCount)
	}
	if got := tree.CreditShare["alice@example.com"]; math.Abs(got-1) > 1e-9 {
		t.Fatalf("alice share = %f, want 1", got)
	}
	if len(tree.Subfolders) != 1 || tree.Subfolders[0].Path != "internal" {
		t.Fatalf("subfolders = %+v", tree.Subfolders)
	}
	if tree.Subfolders[0].LineCount != 6 {
		t.Fatalf("internal line count = %d", tree.Subfolders[0].LineCount)
	}
}

func TestAnalyzeSplitsCreditBetweenAuthors(t *testing.T) {
	f := initFixtureRepo(t)
	f.commit(t, "alice@example.com", map[string]string{"a.txt": lines(4)})
	f.commit(t, "bob@example.com", map[string]string{"b.txt": lines(6)})

	tree, err := New().Analyze(context.Background(), appraisal.ProjectRef{Owner: "acme", Name: "widgets"}, f.dir)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if tree.LineCount != 10 {
		t.Fatalf("root line count = %d, want 10", tree.LineCount)
	}
	if got := tree.CreditShare["alice@example.com"]; math.Abs(got-0.4) > 1e-9 {
		t.Fatalf("alice share = %f, want 0.4", got)
	}
	if got := tree.CreditShare["bob@example.com"]; math.Abs(got-0.6) > 1e-9 {
		t.Fatalf("bob share = %f, want 0.6", got)
	}
	if len(tree.Contributors) != 2 {
		t.Fatalf("contributors = %v", tree.Contributors)
	}
}

func TestAnalyzeSkipsBinaryFiles(t *testing.T) {
	f := initFixtureRepo(t)
	f.commit(t, "alice@example.com", map[string]string{
		"a.txt": lines(5),
		"blob":  "\x00\x01\x02binary",
	})

	tree, err := New().Analyze(context.Background(), appraisal.ProjectRef{Owner: "acme", Name: "widgets"}, f.dir)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if tree.LineCount != 5 {
		t.Fatalf("binary file counted: line count = %d", tree.LineCount)
	}
	if len(tree.BaseFiles) != 1 || tree.BaseFiles[0].Path != "a.txt" {
		t.Fatalf("base files = %+v", tree.BaseFiles)
	}
}

func TestAnalyzeRejectsNonRepository(t *testing.T) {
	if _, err := New().Analyze(context.Background(), appraisal.ProjectRef{Owner: "acme", Name: "widgets"}, t.TempDir()); err == nil {
		t.Fatalf("expected error for a directory with no repository")
	}
}

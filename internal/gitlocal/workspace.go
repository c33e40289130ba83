// Package gitlocal manages the local clone working directory. Each project
// gets exactly one checkout under the workspace root; a checkout is owned by
// whichever worker created it and is never overwritten in place.
package gitlocal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"

	"gitworth/internal/appraisal"
)

// ErrCheckoutExists is the fatal condition for an attempt to clone over an
// existing local checkout. The caller must abandon the run rather than risk
// corrupting a checkout another worker may be reading.
var ErrCheckoutExists = errors.New("local checkout already exists")

type Workspace struct {
	root string
}

func NewWorkspace(root string) (*Workspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("workspace root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Workspace{root: root}, nil
}

// Path is the checkout directory for a project.
func (w *Workspace) Path(ref appraisal.ProjectRef) string {
	return filepath.Join(w.root, ref.Owner, ref.Name)
}

// Exists reports whether a usable checkout is already present.
func (w *Workspace) Exists(ref appraisal.ProjectRef) bool {
	st, err := os.Stat(filepath.Join(w.Path(ref), gogit.GitDirName))
	return err == nil && st.IsDir()
}

// Clone materializes a fresh checkout, streaming transport progress lines
// into the given writer. A partially written checkout left by a failed clone
// is removed so the next attempt starts clean.
func (w *Workspace) Clone(ctx context.Context, ref appraisal.ProjectRef, cloneURL string, prog io.Writer) error {
	if w.Exists(ref) {
		return fmt.Errorf("%w: %s", ErrCheckoutExists, w.Path(ref))
	}
	if strings.TrimSpace(cloneURL) == "" {
		return fmt.Errorf("clone %s: clone URL is required", ref.Slug())
	}

	path := w.Path(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare checkout dir for %s: %w", ref.Slug(), err)
	}

	if prog != nil {
		fmt.Fprintf(prog, "Cloning into '%s'...\n", path)
	}
	_, err := gogit.PlainCloneContext(ctx, path, false, &gogit.CloneOptions{
		URL:          cloneURL,
		Progress:     prog,
		SingleBranch: true,
		Tags:         gogit.NoTags,
	})
	if err != nil {
		_ = os.RemoveAll(path)
		return fmt.Errorf("clone %s: %w", ref.Slug(), err)
	}
	if prog != nil {
		fmt.Fprintln(prog, "Checking out files: done.")
	}
	return nil
}

// Remove deletes a project's checkout.
func (w *Workspace) Remove(ref appraisal.ProjectRef) error {
	return os.RemoveAll(w.Path(ref))
}

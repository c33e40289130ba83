// Package githubapi looks up repository metadata on the GitHub API for
// project registration: clone URL, default branch, and the size figure the
// eligibility check compares against its threshold.
package githubapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v67/github"

	"gitworth/internal/store"
)

type Client struct {
	gh *github.Client
}

// New builds a client. An empty token gives unauthenticated access, which is
// enough for public repositories at low request rates.
func New(token string) *Client {
	gh := github.NewClient(nil)
	if strings.TrimSpace(token) != "" {
		gh = gh.WithAuthToken(token)
	}
	return &Client{gh: gh}
}

// Lookup fetches a repository and maps it to a Project. A missing or private
// repository surfaces as store.ErrNotFound. GitHub reports size in kibibytes;
// that figure is stored as the project's size units.
func (c *Client) Lookup(ctx context.Context, owner, name string) (store.Project, error) {
	repo, resp, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return store.Project{}, store.ErrNotFound
		}
		return store.Project{}, fmt.Errorf("github lookup %s/%s: %w", owner, name, err)
	}

	branch := repo.GetDefaultBranch()
	if branch == "" {
		branch = "main"
	}
	return store.Project{
		Owner:         owner,
		Name:          name,
		CloneURL:      repo.GetCloneURL(),
		DefaultBranch: branch,
		SizeUnits:     int64(repo.GetSize()),
	}, nil
}

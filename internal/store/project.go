// Package store persists registered projects: the metadata the read path
// needs to resolve a request (existence, size eligibility) and the worker
// needs to clone (clone URL, default branch).
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("project not found")

// Project is one registered GitHub repository.
type Project struct {
	Owner         string    `json:"owner"`
	Name          string    `json:"name"`
	CloneURL      string    `json:"clone_url"`
	DefaultBranch string    `json:"default_branch"`
	SizeUnits     int64     `json:"size_units"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (p Project) Slug() string {
	return p.Owner + "/" + p.Name
}

// Repository is the persistence contract for projects. Get returns
// ErrNotFound for unregistered projects; any other error is a store fault.
type Repository interface {
	Get(ctx context.Context, owner, name string) (Project, error)
	Put(ctx context.Context, project Project) error
	List(ctx context.Context) ([]Project, error)
}

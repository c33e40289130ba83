// Package memory is the map-backed project repository used in tests and
// database-less local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"gitworth/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	projects map[string]store.Project
}

func New() *Store {
	return &Store{projects: make(map[string]store.Project)}
}

func (s *Store) Get(_ context.Context, owner, name string) (store.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[owner+"/"+name]
	if !ok {
		return store.Project{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) Put(_ context.Context, project store.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if existing, ok := s.projects[project.Slug()]; ok {
		project.CreatedAt = existing.CreatedAt
	} else if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now
	s.projects[project.Slug()] = project
	return nil
}

func (s *Store) List(_ context.Context) ([]store.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug() < out[j].Slug() })
	return out, nil
}

// Package postgres is the pgx-backed project repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gitworth/internal/store"
)

const createTableSQL = `
create table if not exists projects (
	owner text not null,
	name text not null,
	clone_url text not null,
	default_branch text not null default 'main',
	size_units bigint not null default 0,
	created_at timestamptz not null default now(),
	updated_at timestamptz not null default now(),
	primary key (owner, name)
)`

const upsertSQL = `
insert into projects (owner, name, clone_url, default_branch, size_units)
values ($1, $2, $3, $4, $5)
on conflict (owner, name) do update set
	clone_url = excluded.clone_url,
	default_branch = excluded.default_branch,
	size_units = excluded.size_units,
	updated_at = now()`

const selectColumns = "owner, name, clone_url, default_branch, size_units, created_at, updated_at"

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("ensure projects table: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Get(ctx context.Context, owner, name string) (store.Project, error) {
	row := s.pool.QueryRow(ctx,
		"select "+selectColumns+" from projects where owner = $1 and name = $2", owner, name)
	p, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Project{}, store.ErrNotFound
	}
	if err != nil {
		return store.Project{}, fmt.Errorf("get project %s/%s: %w", owner, name, err)
	}
	return p, nil
}

func (s *Store) Put(ctx context.Context, project store.Project) error {
	_, err := s.pool.Exec(ctx, upsertSQL,
		project.Owner, project.Name, project.CloneURL, project.DefaultBranch, project.SizeUnits)
	if err != nil {
		return fmt.Errorf("put project %s: %w", project.Slug(), err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]store.Project, error) {
	rows, err := s.pool.Query(ctx, "select "+selectColumns+" from projects order by owner, name")
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := make([]store.Project, 0, 16)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

func scanProject(row pgx.Row) (store.Project, error) {
	var p store.Project
	err := row.Scan(&p.Owner, &p.Name, &p.CloneURL, &p.DefaultBranch, &p.SizeUnits, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

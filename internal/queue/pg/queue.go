// Package pg is the durable job queue over Postgres. A received job stays in
// the table with a visibility deadline; only an ack deletes it, so a worker
// crash makes the job eligible for redelivery once the deadline passes.
// FOR UPDATE SKIP LOCKED keeps concurrent workers off the same row.
package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gitworth/internal/appraisal"
	"gitworth/internal/queue"
)

const createTableSQL = `
create table if not exists appraisal_jobs (
	id bigint generated always as identity primary key,
	payload jsonb not null,
	attempts int not null default 0,
	enqueued_at timestamptz not null default now(),
	visible_at timestamptz not null default now()
)`

const claimSQL = `
select id, payload from appraisal_jobs
where visible_at <= now()
order by id
limit 1
for update skip locked`

type Config struct {
	// Visibility is how long a received job stays invisible before it is
	// eligible for redelivery.
	Visibility time.Duration
	// PollInterval paces Receive when the table is empty.
	PollInterval time.Duration
}

type Queue struct {
	pool         *pgxpool.Pool
	visibility   time.Duration
	pollInterval time.Duration
}

func New(ctx context.Context, pool *pgxpool.Pool, cfg Config) (*Queue, error) {
	if cfg.Visibility <= 0 {
		cfg.Visibility = 10 * time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("ensure appraisal_jobs table: %w", err)
	}
	return &Queue{
		pool:         pool,
		visibility:   cfg.Visibility,
		pollInterval: cfg.PollInterval,
	}, nil
}

func (q *Queue) Enqueue(ctx context.Context, job appraisal.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	if _, err := q.pool.Exec(ctx, "insert into appraisal_jobs (payload) values ($1)", payload); err != nil {
		return fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	return nil
}

// Receive polls for the oldest visible job, pushes its visibility deadline
// out, and hands it over. Blocks until a job arrives or ctx is canceled.
func (q *Queue) Receive(ctx context.Context) (*queue.Delivery, error) {
	for {
		delivery, ok, err := q.claim(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			return delivery, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(q.pollInterval):
		}
	}
}

func (q *Queue) claim(ctx context.Context) (*queue.Delivery, bool, error) {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin claim: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	var payload []byte
	err = tx.QueryRow(ctx, claimSQL).Scan(&id, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("claim job: %w", err)
	}

	var job appraisal.Job
	if err := json.Unmarshal(payload, &job); err != nil {
		// A payload that cannot parse will never succeed; drop it instead of
		// redelivering forever.
		if _, delErr := tx.Exec(ctx, "delete from appraisal_jobs where id = $1", id); delErr != nil {
			return nil, false, fmt.Errorf("drop malformed job %d: %w", id, delErr)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, false, fmt.Errorf("commit drop of job %d: %w", id, err)
		}
		return nil, false, fmt.Errorf("malformed job payload %d dropped: %w", id, err)
	}

	_, err = tx.Exec(ctx,
		"update appraisal_jobs set visible_at = now() + make_interval(secs => $1), attempts = attempts + 1 where id = $2",
		q.visibility.Seconds(), id)
	if err != nil {
		return nil, false, fmt.Errorf("set visibility for job %d: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit claim of job %d: %w", id, err)
	}

	ack := func(ctx context.Context) error {
		_, err := q.pool.Exec(ctx, "delete from appraisal_jobs where id = $1", id)
		if err != nil {
			return fmt.Errorf("ack job %d: %w", id, err)
		}
		return nil
	}
	return queue.NewDelivery(job, ack), true, nil
}

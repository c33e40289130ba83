// Package memory is a channel-backed job queue for tests and single-process
// runs. Redelivery is simulated by leaving a received job un-acked and
// calling Requeue; there is no visibility timer.
package memory

import (
	"context"
	"fmt"

	"gitworth/internal/appraisal"
	"gitworth/internal/queue"
)

type Queue struct {
	jobs chan appraisal.Job
}

func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 64
	}
	return &Queue{jobs: make(chan appraisal.Job, capacity)}
}

func (q *Queue) Enqueue(_ context.Context, job appraisal.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue is full (%d jobs)", cap(q.jobs))
	}
}

func (q *Queue) Receive(ctx context.Context) (*queue.Delivery, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case job := <-q.jobs:
		return queue.NewDelivery(job, func(context.Context) error { return nil }), nil
	}
}

// Requeue puts a job back for redelivery.
func (q *Queue) Requeue(ctx context.Context, job appraisal.Job) error {
	return q.Enqueue(ctx, job)
}

// Len reports the number of queued jobs.
func (q *Queue) Len() int {
	return len(q.jobs)
}

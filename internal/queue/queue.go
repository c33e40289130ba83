// Package queue is the job transport between the read path and the worker
// pool. Delivery is at-least-once: a job that is received but never acked
// becomes visible again, so consumers must be safe to re-run from scratch.
package queue

import (
	"context"

	"gitworth/internal/appraisal"
)

// Dispatcher enqueues appraisal jobs. Fire-and-forget relative to the HTTP
// caller: a successful return means the job is durably queued, not processed.
// No ordering across jobs, no deduplication.
type Dispatcher interface {
	Enqueue(ctx context.Context, job appraisal.Job) error
}

// Consumer hands out queued jobs one at a time. Receive blocks until a job is
// available or the context is canceled.
type Consumer interface {
	Receive(ctx context.Context) (*Delivery, error)
}

// Delivery is one received job plus its acknowledgement hook. An unacked
// delivery is eventually re-delivered.
type Delivery struct {
	Job appraisal.Job

	ack func(context.Context) error
}

func NewDelivery(job appraisal.Job, ack func(context.Context) error) *Delivery {
	return &Delivery{Job: job, ack: ack}
}

// Ack removes the job from the queue. Idempotent at the queue level: acking
// an already-removed job is a no-op.
func (d *Delivery) Ack(ctx context.Context) error {
	if d.ack == nil {
		return nil
	}
	return d.ack(ctx)
}

package worker

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"gitworth/internal/queue"
)

const receiveRetryDelay = time.Second

// Consumer runs a fixed pool of worker slots over the job queue, one job in
// flight per slot. A job whose pipeline run fails is left un-acked so the
// queue redelivers it.
type Consumer struct {
	queue    queue.Consumer
	pipeline *Pipeline
	slots    int
}

func NewConsumer(q queue.Consumer, pipeline *Pipeline, slots int) *Consumer {
	if slots <= 0 {
		slots = 1
	}
	return &Consumer{queue: q, pipeline: pipeline, slots: slots}
}

// Run blocks until the context is canceled and every slot has drained.
func (c *Consumer) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.slots; i++ {
		slot := i
		g.Go(func() error {
			c.loop(gctx, slot)
			return nil
		})
	}
	return g.Wait()
}

func (c *Consumer) loop(ctx context.Context, slot int) {
	for {
		delivery, err := c.queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("worker slot %d: receive: %v", slot, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(receiveRetryDelay):
			}
			continue
		}

		job := delivery.Job
		log.Printf("worker slot %d: job %s for %s", slot, job.ID, job.Project.Slug())
		if err := c.pipeline.Run(ctx, job); err != nil {
			log.Printf("worker slot %d: job %s: %v (left for redelivery)", slot, job.ID, err)
			continue
		}
		if err := delivery.Ack(ctx); err != nil {
			log.Printf("worker slot %d: ack job %s: %v", slot, job.ID, err)
		}
	}
}

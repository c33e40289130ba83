package worker

import (
	"context"
	"testing"
	"time"

	"gitworth/internal/appraisal"
	queuememory "gitworth/internal/queue/memory"
)

func TestConsumerProcessesAndAcks(t *testing.T) {
	f := newPipelineFixture(t)
	q := queuememory.New(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.Enqueue(ctx, testJob()); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	consumer := NewConsumer(q, f.pipeline, 2)
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for {
		if _, ok := f.cache.values[appraisal.CacheKey(testJob().Project)]; ok {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("job never processed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("consumer did not drain after cancel")
	}
	if q.Len() != 0 {
		t.Fatalf("acked job still queued")
	}
}

func TestConsumerLeavesFailedJobsUnacked(t *testing.T) {
	f := newPipelineFixture(t)
	q := queuememory.New(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Unregistered project makes the pipeline fail fatally.
	bad := appraisal.Job{Project: appraisal.ProjectRef{Owner: "acme", Name: "ghost"}, ID: "req-9"}
	if err := q.Enqueue(ctx, bad); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	consumer := NewConsumer(q, f.pipeline, 1)
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("consumer did not stop")
	}
	if len(f.cache.values) != 0 {
		t.Fatalf("failed job cached a result")
	}
}

func TestConsumerDefaultsToOneSlot(t *testing.T) {
	f := newPipelineFixture(t)
	c := NewConsumer(queuememory.New(1), f.pipeline, 0)
	if c.slots != 1 {
		t.Fatalf("slots = %d, want 1", c.slots)
	}
}

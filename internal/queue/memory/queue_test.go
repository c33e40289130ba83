package memory

import (
	"context"
	"testing"
	"time"

	"gitworth/internal/appraisal"
)

func testJob(id string) appraisal.Job {
	return appraisal.Job{Project: appraisal.ProjectRef{Owner: "acme", Name: "widgets"}, ID: id}
}

func TestQueueDeliversInOrder(t *testing.T) {
	q := New(4)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(ctx, testJob(id)); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	for _, want := range []string{"a", "b", "c"} {
		d, err := q.Receive(ctx)
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		if d.Job.ID != want {
			t.Fatalf("got job %s, want %s", d.Job.ID, want)
		}
		if err := d.Ack(ctx); err != nil {
			t.Fatalf("ack: %v", err)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("queue not drained: %d", q.Len())
	}
}

func TestQueueRejectsInvalidJobs(t *testing.T) {
	q := New(1)
	if err := q.Enqueue(context.Background(), appraisal.Job{ID: "no-project"}); err == nil {
		t.Fatalf("invalid job accepted")
	}
}

func TestQueueRejectsWhenFull(t *testing.T) {
	q := New(1)
	ctx := context.Background()
	if err := q.Enqueue(ctx, testJob("a")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, testJob("b")); err == nil {
		t.Fatalf("expected full-queue error")
	}
}

func TestQueueReceiveHonorsContext(t *testing.T) {
	q := New(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := q.Receive(ctx); err == nil {
		t.Fatalf("expected context error on empty queue")
	}
}

func TestQueueRequeueRedelivers(t *testing.T) {
	q := New(2)
	ctx := context.Background()
	_ = q.Enqueue(ctx, testJob("a"))

	d, err := q.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if err := q.Requeue(ctx, d.Job); err != nil {
		t.Fatalf("requeue: %v", err)
	}

	again, err := q.Receive(ctx)
	if err != nil {
		t.Fatalf("receive again: %v", err)
	}
	if again.Job.ID != "a" {
		t.Fatalf("redelivered job %s, want a", again.Job.ID)
	}
}

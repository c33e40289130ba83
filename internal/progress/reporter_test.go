package progress

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type capturingPublisher struct {
	mu       sync.Mutex
	messages []string
	channels []string
	fail     bool
}

func (p *capturingPublisher) Publish(_ context.Context, channel, payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return fmt.Errorf("publisher down")
	}
	p.channels = append(p.channels, channel)
	p.messages = append(p.messages, payload)
	return nil
}

func (p *capturingPublisher) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.messages...)
}

func TestReportPublishesPercentOnCorrelationChannel(t *testing.T) {
	pub := &capturingPublisher{}
	r := NewReporter(pub, "req-42")

	if err := r.Report(context.Background(), PhaseAppraisingDone); err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(pub.messages) != 1 || pub.messages[0] != "85" {
		t.Fatalf("messages = %v, want [85]", pub.messages)
	}
	if pub.channels[0] != "req-42" {
		t.Fatalf("channel = %q, want req-42", pub.channels[0])
	}
}

func TestReportRejectsUnknownPhase(t *testing.T) {
	pub := &capturingPublisher{}
	r := NewReporter(pub, "req-42")
	if err := r.Report(context.Background(), Phase("bogus")); err == nil {
		t.Fatalf("expected error for unknown phase")
	}
	if len(pub.messages) != 0 {
		t.Fatalf("unexpected publish: %v", pub.messages)
	}
}

func TestReportEachSecondRepeatsTerminalPhase(t *testing.T) {
	pub := &capturingPublisher{}
	r := NewReporter(pub, "req-42")
	r.interval = time.Millisecond

	r.ReportEachSecond(context.Background(), 3, PhaseFinished)

	got := pub.snapshot()
	if len(got) != 3 {
		t.Fatalf("published %d times, want 3: %v", len(got), got)
	}
	for _, msg := range got {
		if msg != "100" {
			t.Fatalf("payload = %q, want 100", msg)
		}
	}
}

func TestReportEachSecondStopsOnCanceledContext(t *testing.T) {
	pub := &capturingPublisher{}
	r := NewReporter(pub, "req-42")
	r.interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		r.ReportEachSecond(ctx, 5, PhaseFinished)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("ReportEachSecond did not return on canceled context")
	}
	if len(pub.snapshot()) != 0 {
		t.Fatalf("unexpected publishes after cancel: %v", pub.snapshot())
	}
}

func TestReportEachSecondSurvivesPublishFailures(t *testing.T) {
	pub := &capturingPublisher{fail: true}
	r := NewReporter(pub, "req-42")
	r.interval = time.Millisecond

	done := make(chan struct{})
	go func() {
		r.ReportEachSecond(context.Background(), 3, PhaseFinished)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("loop stalled on publish failure")
	}
}

package progress

import (
	"context"
	"log"
	"strconv"
	"time"
)

// Publisher delivers a payload to every subscriber of a named channel.
// Implementations: the in-process broker (progress/memory) and the Postgres
// NOTIFY bridge (progress/pgnotify).
type Publisher interface {
	Publish(ctx context.Context, channel, payload string) error
}

// Reporter publishes phase percentages on the channel named by a job's
// correlation id. Messages are the percent value as a decimal string.
type Reporter struct {
	pub     Publisher
	channel string

	// interval between re-publishes in ReportEachSecond; tests shorten it.
	interval time.Duration
}

func NewReporter(pub Publisher, correlationID string) *Reporter {
	return &Reporter{
		pub:      pub,
		channel:  correlationID,
		interval: time.Second,
	}
}

// SetInterval overrides the re-publish pacing of ReportEachSecond.
func (r *Reporter) SetInterval(d time.Duration) {
	if d > 0 {
		r.interval = d
	}
}

// Report maps the phase and publishes its percentage.
func (r *Reporter) Report(ctx context.Context, phase Phase) error {
	percent, err := Map(phase)
	if err != nil {
		return err
	}
	return r.pub.Publish(ctx, r.channel, strconv.Itoa(percent))
}

// ReportEachSecond re-publishes the same phase once per second for n seconds.
// Subscribers that attach to the channel just after a terminal event still
// catch it this way. Best effort: publish failures are logged and the loop
// keeps going, and a canceled context stops it early.
func (r *Reporter) ReportEachSecond(ctx context.Context, n int, phase Phase) {
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.interval):
		}
		if err := r.Report(ctx, phase); err != nil {
			log.Printf("progress: re-publish %s on %s: %v", phase, r.channel, err)
		}
	}
}

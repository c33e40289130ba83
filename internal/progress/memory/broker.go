// Package memory is the in-process progress broker. The api process uses it
// as the fan-out hub behind its websocket subscribers; tests use it directly.
package memory

import (
	"context"
	"sync"
)

const subscriberBuffer = 16

// Broker fans published payloads out to every subscriber of a channel.
// Publishing never blocks: a subscriber that falls behind its buffer loses
// messages rather than stalling the worker, which is acceptable because
// progress percentages are monotonic and the terminal phase is re-announced.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan string]struct{}
}

func New() *Broker {
	return &Broker{subs: make(map[string]map[chan string]struct{})}
}

func (b *Broker) Publish(_ context.Context, channel, payload string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe returns a receive channel for one progress channel and a cancel
// function that must be called when the subscriber goes away.
func (b *Broker) Subscribe(channel string) (<-chan string, func()) {
	ch := make(chan string, subscriberBuffer)
	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[chan string]struct{})
	}
	b.subs[channel][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		set, ok := b.subs[channel]
		if !ok {
			return
		}
		if _, ok := set[ch]; !ok {
			return
		}
		delete(set, ch)
		if len(set) == 0 {
			delete(b.subs, channel)
		}
		close(ch)
	}
	return ch, cancel
}

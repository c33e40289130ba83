// Package pgnotify carries progress messages between the worker and api
// processes over Postgres LISTEN/NOTIFY. All messages travel on one
// notification channel with "correlation_id|payload" framing; the listener
// demuxes them into the api's in-process broker.
package pgnotify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultChannel is the Postgres notification channel both sides agree on.
const DefaultChannel = "gitworth_progress"

// frame packs a correlation id and payload into one notification string.
func frame(channel, payload string) (string, error) {
	if strings.ContainsRune(channel, '|') {
		return "", fmt.Errorf("progress channel %q must not contain '|'", channel)
	}
	return channel + "|" + payload, nil
}

// parseFrame splits a notification back into correlation id and payload. The
// payload may itself contain '|'; only the first separator frames.
func parseFrame(raw string) (id, payload string, ok bool) {
	id, payload, ok = strings.Cut(raw, "|")
	if !ok || id == "" {
		return "", "", false
	}
	return id, payload, true
}

// Publisher implements progress.Publisher on top of pg_notify.
type Publisher struct {
	pool    *pgxpool.Pool
	channel string
}

func NewPublisher(pool *pgxpool.Pool, channel string) *Publisher {
	if strings.TrimSpace(channel) == "" {
		channel = DefaultChannel
	}
	return &Publisher{pool: pool, channel: channel}
}

func (p *Publisher) Publish(ctx context.Context, channel, payload string) error {
	framed, err := frame(channel, payload)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, "select pg_notify($1, $2)", p.channel, framed)
	if err != nil {
		return fmt.Errorf("pg_notify on %s: %w", p.channel, err)
	}
	return nil
}

// Sink receives demuxed messages; the api wires the in-process broker here.
type Sink interface {
	Publish(ctx context.Context, channel, payload string) error
}

// Listener holds a LISTEN connection and forwards notifications into a Sink.
type Listener struct {
	pool    *pgxpool.Pool
	channel string
	sink    Sink

	// retryDelay paces reconnects after a dropped LISTEN connection.
	retryDelay time.Duration
}

func NewListener(pool *pgxpool.Pool, channel string, sink Sink) *Listener {
	if strings.TrimSpace(channel) == "" {
		channel = DefaultChannel
	}
	return &Listener{
		pool:       pool,
		channel:    channel,
		sink:       sink,
		retryDelay: time.Second,
	}
}

// Run blocks until the context is canceled, re-establishing the LISTEN
// connection whenever it drops.
func (l *Listener) Run(ctx context.Context) error {
	for {
		if err := l.listenOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("progress listener: %v (reconnecting)", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.retryDelay):
		}
	}
}

func (l *Listener) listenOnce(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "listen "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		id, payload, ok := parseFrame(notification.Payload)
		if !ok {
			log.Printf("progress listener: dropping malformed payload %q", notification.Payload)
			continue
		}
		if err := l.sink.Publish(ctx, id, payload); err != nil {
			log.Printf("progress listener: forward to %s: %v", id, err)
		}
	}
}

// Package queue implements the domain event bus: a NATS JetStream publisher
// and consumer for disc registration/search events.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	EventsStreamName  = "DISC_EVENTS"
	EventsSubjectBase = "discs"
)

// Event kinds published to the event bus.
const (
	EventRegistered EventKind = "disc.registered"
	EventConfirmed  EventKind = "disc.confirmed"
	EventCancelled  EventKind = "disc.cancelled"
	EventSearched   EventKind = "disc.searched"
)

type EventKind string

// Event is the envelope published for every domain event. Payload is kept
// as a bare interface{} rather than a union type, staying opaque JSON to
// anything downstream of NATS. ID is a correlation identifier for log/trace
// joins across the publisher, NATS, and any WebSocket client — Disc/
// DiscImage rows themselves stay integer-keyed; only this ambient envelope
// uses a UUID.
type Event struct {
	ID        uuid.UUID   `json:"id"`
	Kind      EventKind   `json:"kind"`
	DiscID    int64       `json:"disc_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

type Producer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewProducer(natsURL string) (*Producer, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &Producer{nc: nc, js: js}, nil
}

// EnsureStream creates the event JetStream stream if it doesn't exist.
// Retries up to 30 times (1s apart) to handle NATS startup delay.
func (p *Producer) EnsureStream(ctx context.Context) error {
	cfg := jetstream.StreamConfig{
		Name:        EventsStreamName,
		Subjects:    []string{EventsSubjectBase + ".>"},
		Retention:   jetstream.InterestPolicy,
		MaxAge:      24 * time.Hour,
		MaxMsgs:     1000000,
		Storage:     jetstream.FileStorage,
		Description: "Disc registration/search domain events",
	}

	const maxAttempts = 30
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := p.js.CreateOrUpdateStream(opCtx, cfg)
		cancel()
		if err == nil {
			slog.Info("ensured NATS stream", "name", cfg.Name)
			return nil
		}
		if attempt == maxAttempts {
			return fmt.Errorf("create stream %s: %w (after %d attempts)", cfg.Name, err, maxAttempts)
		}
		slog.Warn("ensure NATS stream (retrying...)", "name", cfg.Name, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
	return nil
}

// Publish sends a domain event for discID to the event bus. Callers treat a
// publish failure as a logged-and-swallowed degradation: the disc operation
// that triggered it has already committed.
func (p *Producer) Publish(ctx context.Context, kind EventKind, discID int64, payload interface{}) error {
	ev := Event{ID: uuid.New(), Kind: kind, DiscID: discID, Timestamp: time.Now(), Payload: payload}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", EventsSubjectBase, kind)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (p *Producer) Ping() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *Producer) Close() {
	p.nc.Close()
}

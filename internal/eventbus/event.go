// Package eventbus carries domain events from the command side to brokers.
//
// Publishing is best-effort: a failed publish is logged by the caller and
// never undoes the state change that produced the event.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope written to every broker.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	SessionID     string          `json:"session_id"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
}

// NewEvent wraps a payload in an envelope with a fresh id.
func NewEvent(eventType, aggregateType, session string, payload any, at time.Time) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s: %w", eventType, err)
	}
	return Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		AggregateType: aggregateType,
		SessionID:     session,
		Data:          data,
		Timestamp:     at.UTC(),
	}, nil
}

// Decode unmarshals the payload.
func (e Event) Decode(into any) error {
	if err := json.Unmarshal(e.Data, into); err != nil {
		return fmt.Errorf("decode %s %s: %w", e.Type, e.ID, err)
	}
	return nil
}

// Parse reads an envelope from a broker message body.
func Parse(body []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, fmt.Errorf("parse event envelope: %w", err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("parse event envelope: missing event_type")
	}
	return e, nil
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Handler processes one consumed event.
type Handler func(ctx context.Context, e Event) error

type nopPublisher struct{}

// Nop drops every event.
func Nop() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

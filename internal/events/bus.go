package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-kasir/internal/cart"
)

// Event is one terminal occurrence fanned out to observers. The view is the
// committed session state at the moment the event was emitted; observers
// must treat it as read-only.
type Event struct {
	Topic      string
	SessionID  uuid.UUID
	View       cart.View
	OccurredAt time.Time
}

// Observer reacts to emitted events (receipt spooler, customer display,
// metrics, logs). Observers must not block: the bus runs synchronously on
// the mutation path.
type Observer interface {
	Notify(ctx context.Context, event Event) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, event Event) error

// Notify implements Observer.
func (f ObserverFunc) Notify(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus fans terminal events out to registered observers. Observer failures
// are joined and reported but never abort the emitting mutation: a display
// glitch must not take down the pricing path.
type Bus struct {
	Now       func() time.Time
	Observers []Observer
}

func (b *Bus) now() time.Time {
	if b != nil && b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// Emit dispatches the event to all configured observers.
func (b *Bus) Emit(ctx context.Context, topic string, sessionID uuid.UUID, view cart.View) (Event, error) {
	if b == nil {
		return Event{}, errors.New("events: bus not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Event{}, errors.New("events: topic is required")
	}
	if sessionID == uuid.Nil {
		return Event{}, errors.New("events: session id is required")
	}
	ev := Event{
		Topic:      topic,
		SessionID:  sessionID,
		View:       view,
		OccurredAt: b.now(),
	}
	var joined error
	for _, observer := range b.Observers {
		if observer == nil {
			continue
		}
		if err := observer.Notify(ctx, ev); err != nil {
			joined = errors.Join(joined, fmt.Errorf("events: observer: %w", err))
		}
	}
	return ev, joined
}

package events

import (
	"errors"
	"sync"
	"time"

	"openhours/internal/hours"
)

const (
	TypeStatusChanged     = "status.changed"
	TypeScheduleRefreshed = "schedule.refreshed"
)

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   any
	CreatedAt time.Time
}

// StatusChanged is published when the status kind differs from the previous
// evaluation for the same source.
type StatusChanged struct {
	Source   string
	Previous hours.StatusKind
	Current  hours.Status
	Date     string
	At       time.Time
}

// ScheduleRefreshed is published after a new schedule has been swapped in.
type ScheduleRefreshed struct {
	Source      string
	ScheduleID  string
	Periods     int
	SpecialDays int
	Skipped     hours.Skipped
	FromStore   bool
	FetchedAt   time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	now         func() time.Time
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler), now: time.Now}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type. Handlers run synchronously
// in subscription order; every handler runs even if an earlier one fails.
func (b *EventBus) Publish(event Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = b.now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

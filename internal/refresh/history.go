package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"openhours/internal/database"
	"openhours/internal/events"
	"openhours/internal/metrics"
)

// StatusRecorder appends status transitions to a history.
type StatusRecorder interface {
	RecordStatusChange(ctx context.Context, c *database.StatusChange) error
}

// RecordStatusChanges returns a status.changed handler that writes each
// transition to rec and counts it.
func RecordStatusChanges(rec StatusRecorder, timeout time.Duration, logger *zerolog.Logger) events.EventHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return func(event events.Event) error {
		payload, ok := event.Payload.(events.StatusChanged)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
		}
		metrics.IncStatusChange(string(payload.Current.Kind))

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		change := &database.StatusChange{
			Source:    payload.Source,
			Status:    payload.Current.Kind,
			Previous:  payload.Previous,
			Date:      payload.Date,
			Active:    payload.Current.Active,
			NextOpen:  payload.Current.NextOpen,
			ChangedAt: payload.At,
		}
		if err := rec.RecordStatusChange(ctx, change); err != nil {
			return fmt.Errorf("record status change: %w", err)
		}
		logger.Debug().Int64("id", change.ID).Str("status", string(change.Status)).Msg("Status change recorded")
		return nil
	}
}

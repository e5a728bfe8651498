package database

import (
	"context"
	"fmt"
	"time"

	"openhours/internal/hours"
)

// StatusChange is one recorded transition of the live status.
type StatusChange struct {
	ID        int64            `json:"id"`
	Source    string           `json:"source"`
	Status    hours.StatusKind `json:"status"`
	Previous  hours.StatusKind `json:"previous,omitempty"`
	Date      string           `json:"date"`
	Active    *hours.Interval  `json:"active_interval,omitempty"`
	NextOpen  string           `json:"next_open,omitempty"`
	ChangedAt time.Time        `json:"changed_at"`
}

// RecordStatusChange appends a status transition to the history.
func (db *DB) RecordStatusChange(ctx context.Context, c *StatusChange) error {
	var start, end string
	if c.Active != nil {
		start, end = c.Active.Start, c.Active.End
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO status_changes (source, status, previous, date, active_start, active_end, next_open, changed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Source, string(c.Status), string(c.Previous), c.Date, start, end, c.NextOpen, c.ChangedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert status change: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

// ListStatusChanges returns up to limit transitions for source, newest first.
func (db *DB) ListStatusChanges(ctx context.Context, source string, limit int) ([]StatusChange, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, source, status, previous, date, active_start, active_end, next_open, changed_at
		FROM status_changes
		WHERE source = ?
		ORDER BY changed_at DESC, id DESC
		LIMIT ?`, source, limit)
	if err != nil {
		return nil, fmt.Errorf("list status changes: %w", err)
	}
	defer rows.Close()

	changes := []StatusChange{}
	for rows.Next() {
		var (
			c                      StatusChange
			status, previous       string
			activeStart, activeEnd string
		)
		if err := rows.Scan(&c.ID, &c.Source, &status, &previous, &c.Date, &activeStart, &activeEnd, &c.NextOpen, &c.ChangedAt); err != nil {
			return nil, err
		}
		c.Status = hours.StatusKind(status)
		c.Previous = hours.StatusKind(previous)
		if activeStart != "" {
			c.Active = &hours.Interval{Start: activeStart, End: activeEnd}
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

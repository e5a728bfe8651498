package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"openhours/internal/hours"
)

// StoredSchedule is a normalized schedule snapshot as persisted.
type StoredSchedule struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	FetchedAt time.Time      `json:"fetched_at"`
	Schedule  hours.Schedule `json:"schedule"`
}

// SaveSchedule stores a normalized schedule snapshot and returns its ID.
func (db *DB) SaveSchedule(ctx context.Context, source string, s hours.Schedule, fetchedAt time.Time) (string, error) {
	id := uuid.NewString()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO schedules (id, source, utc_offset_minutes, has_offset, skipped_periods, skipped_overrides, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, source, s.UTCOffsetMinutes, s.HasOffset, s.Skipped.Periods, s.Skipped.Overrides, fetchedAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert schedule: %w", err)
	}

	for i, p := range s.Periods {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO weekly_periods (schedule_id, position, open_day, open_time, close_day, close_time)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, i, p.OpenDay, p.OpenTime, p.CloseDay, p.CloseTime,
		)
		if err != nil {
			return "", fmt.Errorf("insert period %d: %w", i, err)
		}
	}

	for _, day := range s.Overrides.SpecialDays() {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO special_days (schedule_id, date) VALUES (?, ?)`, id, day.Date)
		if err != nil {
			return "", fmt.Errorf("insert special day %s: %w", day.Date, err)
		}
		dayID, err := res.LastInsertId()
		if err != nil {
			return "", err
		}
		for i, iv := range day.Intervals {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO special_day_intervals (special_day_id, position, start_time, end_time)
				VALUES (?, ?, ?, ?)`,
				dayID, i, iv.Start, iv.End,
			)
			if err != nil {
				return "", fmt.Errorf("insert interval for %s: %w", day.Date, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit schedule: %w", err)
	}
	return id, nil
}

// LatestSchedule returns the most recently fetched snapshot for source.
func (db *DB) LatestSchedule(ctx context.Context, source string) (*StoredSchedule, error) {
	var (
		stored    StoredSchedule
		hasOffset bool
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, source, utc_offset_minutes, has_offset, skipped_periods, skipped_overrides, fetched_at
		FROM schedules
		WHERE source = ?
		ORDER BY fetched_at DESC, rowid DESC
		LIMIT 1`, source,
	).Scan(
		&stored.ID, &stored.Source, &stored.Schedule.UTCOffsetMinutes, &hasOffset,
		&stored.Schedule.Skipped.Periods, &stored.Schedule.Skipped.Overrides, &stored.FetchedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSchedule
	}
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	stored.Schedule.HasOffset = hasOffset

	if stored.Schedule.Periods, err = db.loadPeriods(ctx, stored.ID); err != nil {
		return nil, err
	}
	if stored.Schedule.Overrides, err = db.loadOverrides(ctx, stored.ID); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (db *DB) loadPeriods(ctx context.Context, scheduleID string) ([]hours.Period, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT open_day, open_time, close_day, close_time
		FROM weekly_periods
		WHERE schedule_id = ?
		ORDER BY position`, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("load periods: %w", err)
	}
	defer rows.Close()

	periods := []hours.Period{}
	for rows.Next() {
		var p hours.Period
		if err := rows.Scan(&p.OpenDay, &p.OpenTime, &p.CloseDay, &p.CloseTime); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (db *DB) loadOverrides(ctx context.Context, scheduleID string) (hours.Overrides, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT d.date, i.start_time, i.end_time
		FROM special_days d
		LEFT JOIN special_day_intervals i ON i.special_day_id = d.id
		WHERE d.schedule_id = ?
		ORDER BY d.date, i.position`, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}
	defer rows.Close()

	overrides := hours.Overrides{}
	for rows.Next() {
		var (
			date       string
			start, end sql.NullString
		)
		if err := rows.Scan(&date, &start, &end); err != nil {
			return nil, err
		}
		if _, ok := overrides[date]; !ok {
			overrides[date] = []hours.Interval{}
		}
		if start.Valid && end.Valid {
			overrides[date] = append(overrides[date], hours.Interval{Start: start.String, End: end.String})
		}
	}
	return overrides, rows.Err()
}

// PruneSchedules deletes all but the newest keep snapshots for source.
func (db *DB) PruneSchedules(ctx context.Context, source string, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	res, err := db.ExecContext(ctx, `
		DELETE FROM schedules
		WHERE source = ? AND id NOT IN (
			SELECT id FROM schedules
			WHERE source = ?
			ORDER BY fetched_at DESC, rowid DESC
			LIMIT ?
		)`, source, source, keep)
	if err != nil {
		return 0, fmt.Errorf("prune schedules: %w", err)
	}
	return res.RowsAffected()
}

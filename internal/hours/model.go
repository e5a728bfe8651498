// Package hours normalizes opening-hours documents and derives open intervals
// and live status for a business day.
package hours

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the calendar date key used for overrides.
const DateLayout = "2006-01-02"

// EndOfDay closes an interval that runs past midnight.
const EndOfDay = "23:59"

// StartOfDay opens an interval carried over from the previous day.
const StartOfDay = "00:00"

// DefaultUTCOffsetMinutes is UTC+9.
const DefaultUTCOffsetMinutes = 540

// Period is a weekly recurring open span. It may cross midnight into the
// following day but never spans more than 24 hours.
type Period struct {
	OpenDay   int    `json:"open_day"`   // 0-6 (Sunday-Saturday)
	OpenTime  string `json:"open_time"`  // "11:00"
	CloseDay  int    `json:"close_day"`  // 0-6
	CloseTime string `json:"close_time"` // "14:30"
}

// Interval is a resolved open span within one day.
type Interval struct {
	Start string `json:"start"` // "11:00"
	End   string `json:"end"`   // "14:30"
}

// String renders the interval as "11:00–14:30".
func (i Interval) String() string {
	return i.Start + "–" + i.End
}

// SpecialDay overrides weekly periods for one calendar date.
// An empty Intervals list means closed all day.
type SpecialDay struct {
	Date      string     `json:"date"`
	Intervals []Interval `json:"intervals"`
}

// Overrides maps "YYYY-MM-DD" to the intervals for that date.
// A present key with an empty slice means closed.
type Overrides map[string][]Interval

// Lookup reports the override for a date and whether one exists.
func (o Overrides) Lookup(date string) ([]Interval, bool) {
	if o == nil {
		return nil, false
	}
	intervals, ok := o[date]
	return intervals, ok
}

// SpecialDays returns overrides as a list sorted by date.
func (o Overrides) SpecialDays() []SpecialDay {
	days := make([]SpecialDay, 0, len(o))
	for date, intervals := range o {
		days = append(days, SpecialDay{Date: date, Intervals: append([]Interval(nil), intervals...)})
	}
	sortSpecialDays(days)
	return days
}

// DayResolution is the set of open intervals for one calendar day.
type DayResolution struct {
	Date      string     `json:"date"`
	Weekday   int        `json:"weekday"`
	Intervals []Interval `json:"intervals"`
	IsClosed  bool       `json:"is_closed"`
}

// Schedule is the canonical form of a raw document.
type Schedule struct {
	Periods          []Period  `json:"periods"`
	Overrides        Overrides `json:"overrides"`
	UTCOffsetMinutes int       `json:"utc_offset_minutes"`
	HasOffset        bool      `json:"has_offset"`
	Skipped          Skipped   `json:"skipped"`
}

// Offset returns the document offset when known, otherwise def.
func (s Schedule) Offset(def int) int {
	if s.HasOffset {
		return s.UTCOffsetMinutes
	}
	return def
}

// Skipped counts entries dropped during normalization.
type Skipped struct {
	Periods   int `json:"periods"`
	Overrides int `json:"overrides"`
}

func checkWeekday(weekday int) {
	if weekday < 0 || weekday > 6 {
		panic(fmt.Sprintf("hours: weekday %d out of range 0-6", weekday))
	}
}

// formatHM formats hour and minute as zero-padded "HH:MM".
func formatHM(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// minutesOf converts "HH:MM" to minutes since midnight.
// Callers only pass normalized values.
func minutesOf(hm string) int {
	if len(hm) != 5 || hm[2] != ':' {
		return 0
	}
	h, _ := strconv.Atoi(hm[:2])
	m, _ := strconv.Atoi(hm[3:])
	return h*60 + m
}

// ClockOf returns the local wall-clock time of t as "HH:MM".
func ClockOf(t time.Time) string {
	return formatHM(t.Hour(), t.Minute())
}

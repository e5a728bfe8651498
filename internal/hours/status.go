package hours

import "time"

// StatusKind is the live classification of a business day.
type StatusKind string

const (
	StatusOpen        StatusKind = "OPEN"
	StatusBreak       StatusKind = "BREAK"
	StatusPreparing   StatusKind = "PREPARING"
	StatusClosedToday StatusKind = "CLOSED_TODAY"
	StatusEndedToday  StatusKind = "ENDED_TODAY"
)

// Status is derived from a day's intervals and the local time. It carries no
// history; the same inputs always give the same Status.
type Status struct {
	Kind     StatusKind `json:"kind"`
	Active   *Interval  `json:"active_interval,omitempty"`
	NextOpen string     `json:"next_open_time,omitempty"`
}

// IsOpen reports whether the business is serving right now.
func (s Status) IsOpen() bool {
	return s.Kind == StatusOpen
}

// ComputeStatus classifies now against today's intervals. Interval ends are
// exclusive. With overlapping intervals the first in sorted order wins.
func ComputeStatus(intervals []Interval, now time.Time) Status {
	return computeStatus(intervals, now.Hour()*60+now.Minute())
}

func computeStatus(intervals []Interval, now int) Status {
	if len(intervals) == 0 {
		return Status{Kind: StatusClosedToday}
	}

	for i := range intervals {
		start, end := minutesOf(intervals[i].Start), minutesOf(intervals[i].End)
		if start <= now && now < end {
			active := intervals[i]
			return Status{Kind: StatusOpen, Active: &active}
		}
	}

	next := -1
	served := false
	for i := range intervals {
		start, end := minutesOf(intervals[i].Start), minutesOf(intervals[i].End)
		if start > now && (next < 0 || start < minutesOf(intervals[next].Start)) {
			next = i
		}
		if end <= now {
			served = true
		}
	}
	if next < 0 {
		return Status{Kind: StatusEndedToday}
	}

	kind := StatusPreparing
	if served {
		kind = StatusBreak
	}
	return Status{Kind: kind, NextOpen: intervals[next].Start}
}

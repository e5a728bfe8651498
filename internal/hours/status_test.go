package hours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clock(hour, minute int) time.Time {
	return time.Date(2026, 10, 13, hour, minute, 0, 0, time.UTC)
}

func TestComputeStatus_SingleInterval(t *testing.T) {
	intervals := []Interval{{Start: "11:00", End: "14:30"}}

	tests := []struct {
		name     string
		now      time.Time
		kind     StatusKind
		nextOpen string
	}{
		{name: "before opening", now: clock(10, 59), kind: StatusPreparing, nextOpen: "11:00"},
		{name: "at opening", now: clock(11, 0), kind: StatusOpen},
		{name: "last open minute", now: clock(14, 29), kind: StatusOpen},
		{name: "end is exclusive", now: clock(14, 30), kind: StatusEndedToday},
		{name: "late evening", now: clock(22, 0), kind: StatusEndedToday},
		{name: "just after midnight", now: clock(0, 0), kind: StatusPreparing, nextOpen: "11:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := ComputeStatus(intervals, tt.now)
			assert.Equal(t, tt.kind, st.Kind)
			assert.Equal(t, tt.nextOpen, st.NextOpen)
			if tt.kind == StatusOpen {
				require.NotNil(t, st.Active)
				assert.Equal(t, intervals[0], *st.Active)
			} else {
				assert.Nil(t, st.Active)
			}
		})
	}
}

func TestComputeStatus_MultipleIntervals(t *testing.T) {
	intervals := []Interval{{Start: "11:00", End: "14:30"}, {Start: "17:00", End: "19:30"}}

	tests := []struct {
		name     string
		now      time.Time
		kind     StatusKind
		active   *Interval
		nextOpen string
	}{
		{name: "morning", now: clock(9, 0), kind: StatusPreparing, nextOpen: "11:00"},
		{name: "lunch service", now: clock(12, 0), kind: StatusOpen, active: &intervals[0]},
		{name: "gap between services", now: clock(15, 0), kind: StatusBreak, nextOpen: "17:00"},
		{name: "gap starts at first end", now: clock(14, 30), kind: StatusBreak, nextOpen: "17:00"},
		{name: "dinner service", now: clock(18, 0), kind: StatusOpen, active: &intervals[1]},
		{name: "after dinner", now: clock(19, 30), kind: StatusEndedToday},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := ComputeStatus(intervals, tt.now)
			assert.Equal(t, tt.kind, st.Kind)
			assert.Equal(t, tt.active, st.Active)
			assert.Equal(t, tt.nextOpen, st.NextOpen)
		})
	}
}

func TestComputeStatus_ClosedToday(t *testing.T) {
	assert.Equal(t, Status{Kind: StatusClosedToday}, ComputeStatus(nil, clock(12, 0)))
	assert.Equal(t, Status{Kind: StatusClosedToday}, ComputeStatus([]Interval{}, clock(0, 0)))
}

func TestComputeStatus_Idempotent(t *testing.T) {
	intervals := []Interval{{Start: "11:00", End: "14:30"}, {Start: "17:00", End: "19:30"}}
	for minute := 0; minute < 24*60; minute += 7 {
		now := clock(minute/60, minute%60)
		assert.Equal(t, ComputeStatus(intervals, now), ComputeStatus(intervals, now))
	}
}

func TestComputeStatus_EndOfDaySentinel(t *testing.T) {
	intervals := []Interval{{Start: "22:00", End: EndOfDay}}
	assert.Equal(t, StatusOpen, ComputeStatus(intervals, clock(23, 58)).Kind)
	assert.Equal(t, StatusEndedToday, ComputeStatus(intervals, clock(23, 59)).Kind)
}

// Overlapping intervals from malformed data: the first interval in sorted
// order that contains now is reported.
func TestComputeStatus_OverlapFirstMatchWins(t *testing.T) {
	periods := []Period{
		{OpenDay: 2, OpenTime: "12:00", CloseDay: 2, CloseTime: "13:00"},
		{OpenDay: 2, OpenTime: "11:00", CloseDay: 2, CloseTime: "15:00"},
	}
	day := Resolve(periods, nil, "2026-10-13", 2)

	st := ComputeStatus(day.Intervals, clock(12, 30))
	require.NotNil(t, st.Active)
	assert.Equal(t, Interval{Start: "11:00", End: "15:00"}, *st.Active)

	for minute := 0; minute < 24*60; minute++ {
		now := clock(minute/60, minute%60)
		st := ComputeStatus(day.Intervals, now)
		if st.Kind != StatusOpen {
			continue
		}
		for _, iv := range day.Intervals {
			if minutesOf(iv.Start) <= minute && minute < minutesOf(iv.End) {
				assert.Equal(t, iv, *st.Active, "minute %d", minute)
				break
			}
		}
	}
}

func TestComputeStatus_UnsortedNextOpen(t *testing.T) {
	intervals := []Interval{{Start: "17:00", End: "19:00"}, {Start: "12:00", End: "13:00"}}
	st := ComputeStatus(intervals, clock(10, 0))
	assert.Equal(t, StatusPreparing, st.Kind)
	assert.Equal(t, "12:00", st.NextOpen)
}

func TestComputeStatus_AfterMidnightCloseIsPreparing(t *testing.T) {
	periods := []Period{
		{OpenDay: 2, OpenTime: "18:00", CloseDay: 3, CloseTime: StartOfDay},
		{OpenDay: 3, OpenTime: "11:00", CloseDay: 3, CloseTime: "14:00"},
	}
	wed := Resolve(periods, nil, "2026-10-14", 3)

	st := ComputeStatus(wed.Intervals, clock(9, 0))
	assert.Equal(t, StatusPreparing, st.Kind)
	assert.Equal(t, "11:00", st.NextOpen)
	assert.Equal(t, StatusOpen, ComputeStatus(wed.Intervals, clock(11, 0)).Kind)
}

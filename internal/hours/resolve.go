package hours

import (
	"sort"
	"time"
)

// Resolve returns the open intervals for one calendar day. An override for
// date wins over weekly periods, including an empty (closed) override.
// Overlapping periods are kept as-is; intervals are sorted by start with
// ties in source order. Resolve panics if weekday is outside 0-6.
func Resolve(periods []Period, overrides Overrides, date string, weekday int) DayResolution {
	checkWeekday(weekday)

	var intervals []Interval
	if special, ok := overrides.Lookup(date); ok {
		intervals = append(intervals, special...)
	} else {
		intervals = weeklyIntervals(periods, weekday)
	}
	sortIntervals(intervals)

	if intervals == nil {
		intervals = []Interval{}
	}
	return DayResolution{
		Date:      date,
		Weekday:   weekday,
		Intervals: intervals,
		IsClosed:  len(intervals) == 0,
	}
}

// ResolveDate resolves the calendar day of t.
func ResolveDate(s Schedule, t time.Time) DayResolution {
	return Resolve(s.Periods, s.Overrides, t.Format(DateLayout), int(t.Weekday()))
}

func weeklyIntervals(periods []Period, weekday int) []Interval {
	next := (weekday + 1) % 7
	prev := (weekday + 6) % 7

	var intervals []Interval
	for _, p := range periods {
		switch {
		case p.OpenDay == weekday && p.CloseDay == weekday:
			intervals = append(intervals, Interval{Start: p.OpenTime, End: p.CloseTime})
		case p.OpenDay == weekday && p.CloseDay == next:
			// The part after midnight belongs to the next day.
			intervals = append(intervals, Interval{Start: p.OpenTime, End: EndOfDay})
		case p.OpenDay == prev && p.CloseDay == weekday && p.CloseTime != StartOfDay:
			// A close at exactly midnight leaves nothing on this day.
			intervals = append(intervals, Interval{Start: StartOfDay, End: p.CloseTime})
		}
	}
	return intervals
}

func sortIntervals(intervals []Interval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].Start < intervals[j].Start
	})
}

func sortSpecialDays(days []SpecialDay) {
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date < days[j].Date
	})
}

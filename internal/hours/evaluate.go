package hours

import (
	"fmt"
	"time"
)

// Evaluation is the result of one tick: today's and tomorrow's hours plus the
// live status.
type Evaluation struct {
	OffsetMinutes int           `json:"utc_offset_minutes"`
	LocalNow      time.Time     `json:"local_now"`
	Today         DayResolution `json:"today"`
	Tomorrow      DayResolution `json:"tomorrow"`
	Status        Status        `json:"status"`
}

// LocalTime shifts an instant into a fixed UTC offset.
func LocalTime(now time.Time, offsetMinutes int) time.Time {
	return now.In(Zone(offsetMinutes))
}

// Zone returns a fixed zone named like "UTC+09:00".
func Zone(offsetMinutes int) *time.Location {
	sign := '+'
	abs := offsetMinutes
	if abs < 0 {
		sign = '-'
		abs = -abs
	}
	name := fmt.Sprintf("UTC%c%02d:%02d", sign, abs/60, abs%60)
	return time.FixedZone(name, offsetMinutes*60)
}

// Evaluate resolves today and tomorrow for the local date at now and computes
// the status. The document offset wins over defaultOffset. Tomorrow is the
// local clock advanced by exactly 24 hours so date overrides line up.
func Evaluate(s Schedule, now time.Time, defaultOffset int) Evaluation {
	offset := s.Offset(defaultOffset)
	local := LocalTime(now, offset)
	today := ResolveDate(s, local)
	tomorrow := ResolveDate(s, local.Add(24*time.Hour))

	return Evaluation{
		OffsetMinutes: offset,
		LocalNow:      local,
		Today:         today,
		Tomorrow:      tomorrow,
		Status:        ComputeStatus(today.Intervals, local),
	}
}

package hours

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Document is a decoded raw schedule document. Its shape depends on which
// revision of the places API produced it.
type Document map[string]any

// ParseDocument decodes raw JSON keeping numbers as json.Number.
func ParseDocument(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode schedule document: %w", err)
	}
	return doc, nil
}

// Weekly periods live under the first present, non-empty path.
var periodPaths = [][]string{
	{"regularOpeningHours", "periods"},
	{"regularHours", "periods"},
	{"currentOpeningHours", "periods"},
	{"result", "opening_hours", "periods"},
	{"opening_hours", "periods"},
	{"periods"},
}

var overridePaths = [][]string{
	{"specialDays"},
	{"specialHours", "specialHourPeriods"},
	{"currentOpeningHours", "specialDays"},
}

var offsetPaths = [][]string{
	{"utcOffsetMinutes"},
	{"utc_offset"},
	{"result", "utc_offset"},
}

const maxOffsetMinutes = 14 * 60

// endpoint names the fields one side (open or close) of a period can use.
type endpoint struct {
	sub         string   // nested record: "open" / "close"
	dayKeys     []string // flattened onto the period
	subTimeKeys []string // string time inside the nested record
	timeKeys    []string // flattened onto the period
}

var (
	openSide = endpoint{
		sub:         "open",
		dayKeys:     []string{"openDay", "startDay", "day"},
		subTimeKeys: []string{"time", "startTime"},
		timeKeys:    []string{"openTime", "startTime"},
	}
	closeSide = endpoint{
		sub:         "close",
		dayKeys:     []string{"closeDay", "endDay", "day"},
		subTimeKeys: []string{"time", "endTime"},
		timeKeys:    []string{"closeTime", "endTime"},
	}
)

type dayStrategy func(period map[string]any, side endpoint) (int, bool)

type clockStrategy func(period map[string]any, side endpoint) (string, bool)

// Tried in order; the first hit wins.
var (
	dayStrategies   = []dayStrategy{nestedDay, flatDay}
	clockStrategies = []clockStrategy{nestedTime, nestedHourMinute, flatTime}
)

// Normalizer converts raw documents into a Schedule. It keeps no state
// between calls and is safe for concurrent use.
type Normalizer struct {
	logger *zerolog.Logger
}

// NewNormalizer creates a normalizer. A nil logger disables logging.
func NewNormalizer(logger *zerolog.Logger) *Normalizer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Normalizer{logger: logger}
}

// Normalize extracts periods, overrides and the UTC offset. Malformed entries
// are skipped and counted; it never fails.
func (n *Normalizer) Normalize(doc Document) Schedule {
	var s Schedule
	s.Periods, s.Skipped.Periods = n.periods(doc)
	s.Overrides, s.Skipped.Overrides = n.overrides(doc)
	s.UTCOffsetMinutes, s.HasOffset = documentOffset(doc)
	return s
}

// Normalize uses a logger-less Normalizer.
func Normalize(doc Document) Schedule {
	return NewNormalizer(nil).Normalize(doc)
}

func (n *Normalizer) periods(doc Document) ([]Period, int) {
	raw := firstList(doc, periodPaths)
	periods := make([]Period, 0, len(raw))
	skipped := 0
	for i, item := range raw {
		rec, ok := item.(map[string]any)
		if !ok {
			skipped++
			n.logger.Debug().Int("index", i).Msg("skip period: not an object")
			continue
		}
		p, ok := extractPeriod(rec)
		if !ok {
			skipped++
			n.logger.Debug().Int("index", i).Msg("skip period: missing day or time")
			continue
		}
		periods = append(periods, p)
	}
	return periods, skipped
}

func extractPeriod(rec map[string]any) (Period, bool) {
	openDay, ok := extractDay(rec, openSide)
	if !ok {
		return Period{}, false
	}
	openTime, ok := extractClock(rec, openSide)
	if !ok {
		return Period{}, false
	}
	closeDay, ok := extractDay(rec, closeSide)
	if !ok {
		return Period{}, false
	}
	closeTime, ok := extractClock(rec, closeSide)
	if !ok {
		return Period{}, false
	}
	return Period{OpenDay: openDay, OpenTime: openTime, CloseDay: closeDay, CloseTime: closeTime}, true
}

func extractDay(rec map[string]any, side endpoint) (int, bool) {
	for _, strategy := range dayStrategies {
		if day, ok := strategy(rec, side); ok {
			return day, true
		}
	}
	return 0, false
}

func extractClock(rec map[string]any, side endpoint) (string, bool) {
	for _, strategy := range clockStrategies {
		if hm, ok := strategy(rec, side); ok {
			return hm, true
		}
	}
	return "", false
}

// nestedDay reads {"open": {"day": 2}}.
func nestedDay(rec map[string]any, side endpoint) (int, bool) {
	sub, ok := rec[side.sub].(map[string]any)
	if !ok {
		return 0, false
	}
	v, ok := sub["day"]
	if !ok {
		return 0, false
	}
	return parseDay(v)
}

// flatDay reads {"openDay": "TUESDAY"} or {"day": 2}.
func flatDay(rec map[string]any, side endpoint) (int, bool) {
	for _, key := range side.dayKeys {
		if v, ok := rec[key]; ok {
			return parseDay(v)
		}
	}
	return 0, false
}

// nestedTime reads {"open": {"time": "1100"}}.
func nestedTime(rec map[string]any, side endpoint) (string, bool) {
	sub, ok := rec[side.sub].(map[string]any)
	if !ok {
		return "", false
	}
	for _, key := range side.subTimeKeys {
		if v, ok := sub[key]; ok {
			return parseClock(v)
		}
	}
	return "", false
}

// nestedHourMinute reads {"open": {"hour": 11, "minute": 0}}.
func nestedHourMinute(rec map[string]any, side endpoint) (string, bool) {
	sub, ok := rec[side.sub].(map[string]any)
	if !ok {
		return "", false
	}
	return clockFromParts(sub)
}

// flatTime reads {"openTime": "11:00"} or {"openTime": {"hours": 11}}.
func flatTime(rec map[string]any, side endpoint) (string, bool) {
	for _, key := range side.timeKeys {
		if v, ok := rec[key]; ok {
			return parseClock(v)
		}
	}
	return "", false
}

func (n *Normalizer) overrides(doc Document) (Overrides, int) {
	raw := firstList(doc, overridePaths)
	out := make(Overrides)
	skipped := 0
	for i, item := range raw {
		rec, ok := item.(map[string]any)
		if !ok {
			skipped++
			n.logger.Debug().Int("index", i).Msg("skip special day: not an object")
			continue
		}
		date, ok := recordDate(rec)
		if !ok {
			skipped++
			n.logger.Debug().Int("index", i).Msg("skip special day: missing date")
			continue
		}
		intervals, ok := recordIntervals(rec)
		if !ok {
			skipped++
			n.logger.Debug().Int("index", i).Str("date", date).Msg("skip special day: no usable hours")
			continue
		}
		out[date] = append(out[date], intervals...)
		if out[date] == nil {
			out[date] = []Interval{}
		}
	}
	for date := range out {
		sortIntervals(out[date])
	}
	return out, skipped
}

func recordDate(rec map[string]any) (string, bool) {
	for _, key := range []string{"date", "startDate"} {
		if v, ok := rec[key]; ok {
			return parseDate(v)
		}
	}
	return "", false
}

// recordIntervals returns the intervals of one special day record. An empty
// non-nil result means closed; ok is false when the record carries no usable
// hours at all.
func recordIntervals(rec map[string]any) ([]Interval, bool) {
	for _, key := range []string{"closed", "isClosed"} {
		if b, ok := rec[key].(bool); ok && b {
			return []Interval{}, true
		}
	}

	if v, ok := rec["openIntervals"]; ok {
		return collectIntervals(asList(v), openIntervalOf)
	}
	if v, ok := rec["periods"]; ok {
		return collectIntervals(asList(v), periodIntervalOf)
	}
	if _, ok := rec["openTime"]; ok {
		if iv, ok := periodIntervalOf(rec); ok {
			return []Interval{iv}, true
		}
	}
	return nil, false
}

func collectIntervals(items []any, convert func(map[string]any) (Interval, bool)) ([]Interval, bool) {
	if len(items) == 0 {
		return []Interval{}, true
	}
	intervals := make([]Interval, 0, len(items))
	for _, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if iv, ok := convert(rec); ok {
			intervals = append(intervals, iv)
		}
	}
	if len(intervals) == 0 {
		return nil, false
	}
	return intervals, true
}

// openIntervalOf reads {"start": {"hours": 11}, "end": {"hours": 14, "minutes": 30}}.
func openIntervalOf(rec map[string]any) (Interval, bool) {
	start, ok := parseClock(rec["start"])
	if !ok {
		return Interval{}, false
	}
	end, ok := parseClock(rec["end"])
	if !ok {
		return Interval{}, false
	}
	return clipInterval(start, end)
}

// periodIntervalOf reuses the weekly conventions; days are ignored because the
// record is keyed by date.
func periodIntervalOf(rec map[string]any) (Interval, bool) {
	start, ok := extractClock(rec, openSide)
	if !ok {
		return Interval{}, false
	}
	end, ok := extractClock(rec, closeSide)
	if !ok {
		return Interval{}, false
	}
	return clipInterval(start, end)
}

// clipInterval cuts an interval that ends on the next day at midnight.
func clipInterval(start, end string) (Interval, bool) {
	if end <= start {
		end = EndOfDay
	}
	if start >= end {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}

func documentOffset(doc Document) (int, bool) {
	for _, path := range offsetPaths {
		v, ok := lookup(doc, path)
		if !ok {
			continue
		}
		offset, ok := asInt(v)
		if !ok || offset < -maxOffsetMinutes || offset > maxOffsetMinutes {
			return 0, false
		}
		return offset, true
	}
	return 0, false
}

func firstList(doc Document, paths [][]string) []any {
	for _, path := range paths {
		v, ok := lookup(doc, path)
		if !ok {
			continue
		}
		if list := asList(v); len(list) > 0 {
			return list
		}
	}
	return nil
}

func lookup(doc Document, path []string) (any, bool) {
	var cur any = map[string]any(doc)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

func asList(v any) []any {
	list, _ := v.([]any)
	return list
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i), true
		}
		f, err := x.Float64()
		if err != nil || f != float64(int(f)) {
			return 0, false
		}
		return int(f), true
	case float64:
		if x != float64(int(x)) {
			return 0, false
		}
		return int(x), true
	case int:
		return x, true
	case int64:
		return int(x), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

var dayNames = map[string]int{
	"sunday": 0, "sun": 0,
	"monday": 1, "mon": 1,
	"tuesday": 2, "tue": 2,
	"wednesday": 3, "wed": 3,
	"thursday": 4, "thu": 4,
	"friday": 5, "fri": 5,
	"saturday": 6, "sat": 6,
}

func parseDay(v any) (int, bool) {
	if s, ok := v.(string); ok {
		if day, ok := dayNames[strings.ToLower(strings.TrimSpace(s))]; ok {
			return day, true
		}
	}
	day, ok := asInt(v)
	if !ok || day < 0 || day > 6 {
		return 0, false
	}
	return day, true
}

// parseClock coerces "1100", "11:00", 1100, {"hours": 11, "minutes": 0} or
// {} into "HH:MM".
func parseClock(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return clockFromString(strings.TrimSpace(x))
	case json.Number:
		return clockFromString(x.String())
	case float64, int, int64:
		n, ok := asInt(x)
		if !ok {
			return "", false
		}
		return clockFromString(strconv.Itoa(n))
	case map[string]any:
		// Protobuf JSON omits zero fields, so {} is midnight.
		if len(x) == 0 {
			return StartOfDay, true
		}
		return clockFromParts(x)
	}
	return "", false
}

func clockFromString(s string) (string, bool) {
	var hs, ms string
	if before, after, found := strings.Cut(s, ":"); found {
		hs, ms = before, after
		// Drop seconds if present.
		if m, _, ok := strings.Cut(ms, ":"); ok {
			ms = m
		}
		if len(ms) != 2 {
			return "", false
		}
	} else {
		if len(s) < 3 || len(s) > 4 {
			return "", false
		}
		hs, ms = s[:len(s)-2], s[len(s)-2:]
	}
	h, err := strconv.Atoi(hs)
	if err != nil || len(hs) == 0 || len(hs) > 2 {
		return "", false
	}
	m, err := strconv.Atoi(ms)
	if err != nil {
		return "", false
	}
	return validClock(h, m)
}

// clockFromParts reads hour/hours and minute/minutes. A missing minute is 0,
// a missing hour is 0 only when a minute is present.
func clockFromParts(m map[string]any) (string, bool) {
	hv, hasHour := firstKey(m, "hour", "hours")
	mv, hasMinute := firstKey(m, "minute", "minutes")
	if !hasHour && !hasMinute {
		return "", false
	}
	h, minute := 0, 0
	var ok bool
	if hasHour {
		if h, ok = asInt(hv); !ok {
			return "", false
		}
	}
	if hasMinute {
		if minute, ok = asInt(mv); !ok {
			return "", false
		}
	}
	return validClock(h, minute)
}

func firstKey(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// validClock validates a wall-clock time; 24:00 maps to the end-of-day sentinel.
func validClock(h, m int) (string, bool) {
	if h == 24 && m == 0 {
		return EndOfDay, true
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return "", false
	}
	return formatHM(h, m), true
}

// parseDate accepts "2026-01-01" or {"year": 2026, "month": 1, "day": 1}.
func parseDate(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		t, err := time.Parse(DateLayout, strings.TrimSpace(x))
		if err != nil {
			return "", false
		}
		return t.Format(DateLayout), true
	case map[string]any:
		y, ok1 := asInt(x["year"])
		mo, ok2 := asInt(x["month"])
		d, ok3 := asInt(x["day"])
		if !ok1 || !ok2 || !ok3 {
			return "", false
		}
		t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
		if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
			return "", false
		}
		return t.Format(DateLayout), true
	}
	return "", false
}

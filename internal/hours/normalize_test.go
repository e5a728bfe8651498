package hours

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) Document {
	t.Helper()
	doc, err := ParseDocument([]byte(raw))
	require.NoError(t, err)
	return doc
}

func TestNormalize_TimeEncodingsAreEquivalent(t *testing.T) {
	want := []Period{{OpenDay: 2, OpenTime: "11:00", CloseDay: 2, CloseTime: "14:30"}}

	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "legacy day/time",
			raw:  `{"result":{"opening_hours":{"periods":[{"open":{"day":2,"time":"1100"},"close":{"day":2,"time":"1430"}}]}}}`,
		},
		{
			name: "hour and minute",
			raw:  `{"regularOpeningHours":{"periods":[{"open":{"day":2,"hour":11,"minute":0},"close":{"day":2,"hour":14,"minute":30}}]}}`,
		},
		{
			name: "flattened HH:MM",
			raw:  `{"periods":[{"openDay":2,"openTime":"11:00","closeDay":2,"closeTime":"14:30"}]}`,
		},
		{
			name: "start/end time with day",
			raw:  `{"periods":[{"day":2,"startTime":"11:00","endTime":"14:30"}]}`,
		},
		{
			name: "business profile day names",
			raw:  `{"regularHours":{"periods":[{"openDay":"TUESDAY","openTime":{"hours":11},"closeDay":"TUESDAY","closeTime":{"hours":14,"minutes":30}}]}}`,
		},
		{
			name: "numeric time and string day",
			raw:  `{"periods":[{"open":{"day":"2","time":1100},"close":{"day":"2","time":1430}}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Normalize(mustParse(t, tt.raw))
			assert.Equal(t, want, s.Periods)
			assert.Zero(t, s.Skipped.Periods)

			day := Resolve(s.Periods, s.Overrides, "2026-10-13", 2)
			assert.Equal(t, []Interval{{Start: "11:00", End: "14:30"}}, day.Intervals)
		})
	}
}

func TestNormalize_PeriodKeyPrecedence(t *testing.T) {
	t.Run("regular hours win over current hours", func(t *testing.T) {
		s := Normalize(mustParse(t, `{
			"regularOpeningHours": {"periods": [{"open":{"day":1,"hour":9},"close":{"day":1,"hour":17}}]},
			"currentOpeningHours": {"periods": [{"open":{"day":1,"hour":10},"close":{"day":1,"hour":12}}]}
		}`))
		require.Len(t, s.Periods, 1)
		assert.Equal(t, "09:00", s.Periods[0].OpenTime)
	})

	t.Run("empty regular hours fall through", func(t *testing.T) {
		s := Normalize(mustParse(t, `{
			"regularOpeningHours": {"periods": []},
			"currentOpeningHours": {"periods": [{"open":{"day":1,"hour":10},"close":{"day":1,"hour":12}}]}
		}`))
		require.Len(t, s.Periods, 1)
		assert.Equal(t, "10:00", s.Periods[0].OpenTime)
	})

	t.Run("legacy nested key is last", func(t *testing.T) {
		s := Normalize(mustParse(t, `{
			"result": {"opening_hours": {"periods": [{"open":{"day":0,"time":"0800"},"close":{"day":0,"time":"1200"}}]}}
		}`))
		assert.Equal(t, []Period{{OpenDay: 0, OpenTime: "08:00", CloseDay: 0, CloseTime: "12:00"}}, s.Periods)
	})
}

func TestNormalize_SkipsMalformedPeriods(t *testing.T) {
	s := Normalize(mustParse(t, `{"periods": [
		{"open":{"day":1,"time":"1100"},"close":{"day":1,"time":"1500"}},
		{"open":{"day":1,"time":"1100"}},
		{"open":{"day":7,"time":"1100"},"close":{"day":7,"time":"1500"}},
		{"open":{"day":2,"time":"2500"},"close":{"day":2,"time":"2600"}},
		{"open":{"time":"1100"},"close":{"day":3,"time":"1500"}},
		"garbage",
		{"open":{"day":4,"time":"11:00"},"close":{"day":4,"time":"15:00"}}
	]}`))

	assert.Equal(t, []Period{
		{OpenDay: 1, OpenTime: "11:00", CloseDay: 1, CloseTime: "15:00"},
		{OpenDay: 4, OpenTime: "11:00", CloseDay: 4, CloseTime: "15:00"},
	}, s.Periods)
	assert.Equal(t, 5, s.Skipped.Periods)
}

func TestNormalize_TimeCoercion(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
		ok   bool
	}{
		{name: "four digits", in: "0930", want: "09:30", ok: true},
		{name: "three digits", in: "930", want: "09:30", ok: true},
		{name: "colon", in: "9:05", want: "09:05", ok: true},
		{name: "seconds dropped", in: "11:00:00", want: "11:00", ok: true},
		{name: "midnight end", in: "2400", want: EndOfDay, ok: true},
		{name: "hour only", in: map[string]any{"hours": 24}, want: EndOfDay, ok: true},
		{name: "minute only", in: map[string]any{"minute": 30}, want: "00:30", ok: true},
		{name: "float", in: 1100.0, want: "11:00", ok: true},
		{name: "hour out of range", in: "2500", ok: false},
		{name: "minute out of range", in: "10:75", ok: false},
		{name: "empty", in: "", ok: false},
		{name: "letters", in: "noon", ok: false},
		{name: "nil", in: nil, ok: false},
		{name: "empty object is midnight", in: map[string]any{}, want: StartOfDay, ok: true},
		{name: "object without clock fields", in: map[string]any{"day": 2}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseClock(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNormalize_Overrides(t *testing.T) {
	s := Normalize(mustParse(t, `{
		"periods": [{"open":{"day":1,"time":"1100"},"close":{"day":1,"time":"1500"}}],
		"specialDays": [
			{"date": "2026-12-31", "openIntervals": [
				{"start": {"hours": 17}, "end": {"hours": 20, "minutes": 30}},
				{"start": {"hours": 10}, "end": {"hours": 12}}
			]},
			{"date": {"year": 2027, "month": 1, "day": 1}, "openIntervals": []},
			{"date": "2027-01-02", "closed": true},
			{"date": "2027-01-03", "periods": [{"open":{"day":0,"time":"2200"},"close":{"day":1,"time":"0200"}}]},
			{"date": "2027-01-04"},
			{"openIntervals": [{"start": {"hours": 10}, "end": {"hours": 12}}]},
			{"date": "2027-02-30", "openIntervals": []},
			{"date": "2027-01-05", "openIntervals": [{"start": {"hours": 30}, "end": {"hours": 12}}]},
			{"date": "2027-01-06", "openIntervals": [{"start": {}, "end": {"hours": 2}}]}
		]
	}`))

	assert.Equal(t, Overrides{
		"2026-12-31": {{Start: "10:00", End: "12:00"}, {Start: "17:00", End: "20:30"}},
		"2027-01-01": {},
		"2027-01-02": {},
		"2027-01-03": {{Start: "22:00", End: EndOfDay}},
		"2027-01-06": {{Start: StartOfDay, End: "02:00"}},
	}, s.Overrides)
	assert.Equal(t, 4, s.Skipped.Overrides)

	closed, ok := s.Overrides.Lookup("2027-01-01")
	assert.True(t, ok)
	assert.Empty(t, closed)

	_, ok = s.Overrides.Lookup("2027-01-04")
	assert.False(t, ok)
}

func TestNormalize_BusinessProfileSpecialHours(t *testing.T) {
	s := Normalize(mustParse(t, `{
		"specialHours": {"specialHourPeriods": [
			{"startDate": {"year": 2026, "month": 12, "day": 24}, "openTime": "17:00", "closeTime": "21:00"},
			{"startDate": {"year": 2026, "month": 12, "day": 24}, "openTime": "11:00", "closeTime": "14:00"},
			{"startDate": {"year": 2026, "month": 12, "day": 25}, "closed": true}
		]}
	}`))

	assert.Equal(t, Overrides{
		"2026-12-24": {{Start: "11:00", End: "14:00"}, {Start: "17:00", End: "21:00"}},
		"2026-12-25": {},
	}, s.Overrides)
}

func TestNormalize_Offset(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		present bool
	}{
		{name: "places v1", raw: `{"utcOffsetMinutes": 540}`, want: 540, present: true},
		{name: "legacy", raw: `{"result": {"utc_offset": -300}}`, want: -300, present: true},
		{name: "absent", raw: `{}`, present: false},
		{name: "out of range", raw: `{"utcOffsetMinutes": 9000}`, present: false},
		{name: "not a number", raw: `{"utcOffsetMinutes": "JST"}`, present: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Normalize(mustParse(t, tt.raw))
			assert.Equal(t, tt.present, s.HasOffset)
			assert.Equal(t, tt.want, s.UTCOffsetMinutes)
			assert.Equal(t, tt.want, s.Offset(0))
		})
	}
}

func TestNormalize_EmptyDocument(t *testing.T) {
	for _, raw := range []string{`{}`, `null`, `{"periods": "nope", "specialDays": 3}`} {
		s := Normalize(mustParse(t, raw))
		assert.Empty(t, s.Periods)
		assert.Empty(t, s.Overrides)
		assert.Zero(t, s.Skipped)
	}
}

func TestParseDocument_InvalidJSON(t *testing.T) {
	_, err := ParseDocument([]byte(`{"periods": [`))
	assert.Error(t, err)

	_, err = ParseDocument([]byte(`[1, 2]`))
	assert.Error(t, err)
}

package display

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"openhours/internal/hours"
)

func TestRender(t *testing.T) {
	lunchAndDinner := []hours.Interval{{Start: "11:00", End: "14:30"}, {Start: "17:00", End: "19:30"}}
	tomorrow := []hours.Interval{{Start: "10:00", End: "18:00"}}

	tests := []struct {
		name     string
		status   hours.Status
		today    []hours.Interval
		tomorrow []hours.Interval
		want     Text
	}{
		{
			name:   "open",
			status: hours.Status{Kind: hours.StatusOpen, Active: &lunchAndDinner[0]},
			today:  lunchAndDinner,
			want:   Text{Headline: "ただいま、営業しております", Subline: "営業時間　11:00–14:30 / 17:00–19:30"},
		},
		{
			name:   "break",
			status: hours.Status{Kind: hours.StatusBreak, NextOpen: "17:00"},
			today:  lunchAndDinner,
			want:   Text{Headline: "ただいま、休憩中です（17:00〜再開）", Subline: "本日の営業時間　11:00–14:30 / 17:00–19:30"},
		},
		{
			name:   "preparing",
			status: hours.Status{Kind: hours.StatusPreparing, NextOpen: "11:00"},
			today:  lunchAndDinner,
			want:   Text{Headline: "ただいま、準備中です", Subline: "本日の営業時間　11:00–14:30 / 17:00–19:30"},
		},
		{
			name:   "ended",
			status: hours.Status{Kind: hours.StatusEndedToday},
			today:  lunchAndDinner,
			want:   Text{Headline: "本日の営業は終了しました", Subline: "本日の営業時間　11:00–14:30 / 17:00–19:30"},
		},
		{
			name:     "closed with hours tomorrow",
			status:   hours.Status{Kind: hours.StatusClosedToday},
			tomorrow: tomorrow,
			want:     Text{Headline: "本日は定休日です", Subline: "明日の営業時間　10:00–18:00"},
		},
		{
			name:   "closed tomorrow too",
			status: hours.Status{Kind: hours.StatusClosedToday},
			want:   Text{Headline: "本日は定休日です"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := hours.Evaluation{
				Today:    hours.DayResolution{Intervals: tt.today},
				Tomorrow: hours.DayResolution{Intervals: tt.tomorrow},
				Status:   tt.status,
			}
			assert.Equal(t, tt.want, Render(eval))
		})
	}
}

func TestFormatIntervals(t *testing.T) {
	assert.Equal(t, "", FormatIntervals(nil))
	assert.Equal(t, "00:00–02:00", FormatIntervals([]hours.Interval{{Start: "00:00", End: "02:00"}}))
}

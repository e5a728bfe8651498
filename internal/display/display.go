// Package display renders an evaluation as the short status text shown to
// customers.
package display

import (
	"strings"

	"openhours/internal/hours"
)

// Unavailable is shown when no schedule could be loaded.
const Unavailable = "現在、営業時間を取得できません"

// Text is a headline with an optional hours line below it.
type Text struct {
	Headline string `json:"headline"`
	Subline  string `json:"subline,omitempty"`
}

// Render builds the status text for an evaluation.
func Render(eval hours.Evaluation) Text {
	today := eval.Today.Intervals
	switch eval.Status.Kind {
	case hours.StatusOpen:
		return Text{
			Headline: "ただいま、営業しております",
			Subline:  "営業時間　" + FormatIntervals(today),
		}
	case hours.StatusBreak:
		return Text{
			Headline: "ただいま、休憩中です（" + eval.Status.NextOpen + "〜再開）",
			Subline:  "本日の営業時間　" + FormatIntervals(today),
		}
	case hours.StatusPreparing:
		return Text{
			Headline: "ただいま、準備中です",
			Subline:  "本日の営業時間　" + FormatIntervals(today),
		}
	case hours.StatusEndedToday:
		return Text{
			Headline: "本日の営業は終了しました",
			Subline:  "本日の営業時間　" + FormatIntervals(today),
		}
	default:
		text := Text{Headline: "本日は定休日です"}
		if len(eval.Tomorrow.Intervals) > 0 {
			text.Subline = "明日の営業時間　" + FormatIntervals(eval.Tomorrow.Intervals)
		}
		return text
	}
}

// FormatIntervals joins intervals as "11:00–14:30 / 17:00–19:30".
func FormatIntervals(intervals []hours.Interval) string {
	parts := make([]string, len(intervals))
	for i, iv := range intervals {
		parts[i] = iv.String()
	}
	return strings.Join(parts, " / ")
}

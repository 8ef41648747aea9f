package dataset

import (
	"math"
	"sort"
	"time"

	"github.com/harborview-research/epi-cli/internal/model"
)

// DailyRecord is one day of cumulative counts from an upstream series.
// A NaN field marks a value the source did not report for that day.
type DailyRecord struct {
	Date      time.Time
	Cases     float64
	Deaths    float64
	Recovered float64
}

// WeekStart truncates t to the Monday that starts its calendar week, in UTC.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
}

// BucketWeekly folds a daily cumulative series into weekly observations.
// Within a week the latest report wins, since the counts are cumulative.
// Missing fields are coalesced to zero; the second return value counts how
// many fields were filled so the caller can surface the fill rate.
func BucketWeekly(daily []DailyRecord) ([]model.WeeklyObservation, int64) {
	latest := make(map[time.Time]DailyRecord)
	for _, d := range daily {
		week := WeekStart(d.Date)
		cur, ok := latest[week]
		if !ok || d.Date.After(cur.Date) {
			latest[week] = d
		}
	}

	weeks := make([]time.Time, 0, len(latest))
	for w := range latest {
		weeks = append(weeks, w)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })

	var filled int64
	fill := func(v float64) float64 {
		if math.IsNaN(v) {
			filled++
			return 0
		}
		return v
	}

	obs := make([]model.WeeklyObservation, 0, len(weeks))
	for _, w := range weeks {
		d := latest[w]
		obs = append(obs, model.WeeklyObservation{
			Week:                w,
			CumulativeCases:     fill(d.Cases),
			CumulativeDeaths:    fill(d.Deaths),
			CumulativeRecovered: fill(d.Recovered),
		})
	}
	return obs, filled
}

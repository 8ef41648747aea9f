package incidents

import (
	"math"
	"sort"
	"time"

	"github.com/harborview-research/epi-cli/internal/model"
)

// MonthCount is one month of incident totals.
type MonthCount struct {
	Month time.Time `json:"month"`
	Count int       `json:"count"`
}

// MonthlySeries buckets incidents by calendar month, filling interior gaps
// with zero so the series is contiguous.
func MonthlySeries(incidents []model.ShootingIncident) []MonthCount {
	if len(incidents) == 0 {
		return nil
	}

	counts := make(map[time.Time]int)
	var first, last time.Time
	for _, in := range incidents {
		m := time.Date(in.OccurredAt.Year(), in.OccurredAt.Month(), 1, 0, 0, 0, 0, time.UTC)
		counts[m]++
		if first.IsZero() || m.Before(first) {
			first = m
		}
		if m.After(last) {
			last = m
		}
	}

	var series []MonthCount
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		series = append(series, MonthCount{Month: m, Count: counts[m]})
	}
	return series
}

// Trend computes a centered moving-average trend over the series counts.
// For an even window the two straddling windows are averaged, the standard
// treatment for a 12-month seasonal period. Positions without a full window
// are NaN.
func Trend(series []MonthCount, window int) []float64 {
	n := len(series)
	trend := make([]float64, n)
	for i := range trend {
		trend[i] = math.NaN()
	}
	if window < 2 || n < window+1 {
		return trend
	}

	values := make([]float64, n)
	for i, mc := range series {
		values[i] = float64(mc.Count)
	}

	if window%2 == 1 {
		half := window / 2
		for i := half; i < n-half; i++ {
			var sum float64
			for j := i - half; j <= i+half; j++ {
				sum += values[j]
			}
			trend[i] = sum / float64(window)
		}
		return trend
	}

	// Even window: weight the two edge points by half each.
	half := window / 2
	for i := half; i < n-half; i++ {
		sum := values[i-half]/2 + values[i+half]/2
		for j := i - half + 1; j <= i+half-1; j++ {
			sum += values[j]
		}
		trend[i] = sum / float64(window)
	}
	return trend
}

// TopMonths returns the k months with the highest counts, ties broken by
// chronology.
func TopMonths(series []MonthCount, k int) []MonthCount {
	sorted := make([]MonthCount, len(series))
	copy(sorted, series)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Count > sorted[j].Count })
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}

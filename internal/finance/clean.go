package finance

import (
	"math"
	"sort"
	"time"
)

// cleanDaily converts raw chart arrays into calendar dates in loc with positive prices.
// Null, non-positive and non-finite closes are dropped, a repeated date keeps its
// last value, and only dates in [start, end) survive. Output is sorted ascending.
func cleanDaily(ts []int64, cl []*float64, loc *time.Location, start, end time.Time) ([]time.Time, []float64) {
	n := len(ts)
	if len(cl) < n {
		n = len(cl)
	}
	byDate := make(map[time.Time]float64, n)
	for i := 0; i < n; i++ {
		if cl[i] == nil {
			continue
		}
		v := *cl[i]
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		d := dateOf(time.Unix(ts[i], 0).In(loc))
		if d.Before(start) || !d.Before(end) {
			continue
		}
		byDate[d] = v
	}
	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	prices := make([]float64, len(dates))
	for i, d := range dates {
		prices[i] = byDate[d]
	}
	return dates, prices
}

// hasValues reports whether a close array carries at least one non-null entry.
func hasValues(cl []*float64) bool {
	for _, v := range cl {
		if v != nil {
			return true
		}
	}
	return false
}

package finance

import (
	"fmt"
	"sort"
	"time"
)

// Align merges per-symbol series into one panel over the dates every series
// shares. Dates where any symbol is missing are dropped, never filled.
// Columns follow order; symbols in order without a series are skipped.
func Align(series map[string]*PriceSeries, order []string) (*PricePanel, error) {
	if len(series) == 0 {
		return nil, ErrNoUsableData
	}

	symbols := make([]string, 0, len(series))
	seen := make(map[string]bool, len(series))
	for _, sym := range order {
		if s, ok := series[sym]; ok && s.Len() > 0 && !seen[sym] {
			symbols = append(symbols, sym)
			seen[sym] = true
		}
	}
	// series not named in order go last, alphabetically
	var extra []string
	for sym, s := range series {
		if !seen[sym] && s.Len() > 0 {
			extra = append(extra, sym)
		}
	}
	sort.Strings(extra)
	symbols = append(symbols, extra...)
	if len(symbols) == 0 {
		return nil, ErrNoUsableData
	}

	// intersect dates across all series
	count := map[time.Time]int{}
	lookup := make([]map[time.Time]float64, len(symbols))
	for j, sym := range symbols {
		s := series[sym]
		mp := make(map[time.Time]float64, len(s.Dates))
		for i, d := range s.Dates {
			if i < len(s.Prices) {
				mp[dateOf(d)] = s.Prices[i]
			}
		}
		for d := range mp {
			count[d]++
		}
		lookup[j] = mp
	}
	common := make([]time.Time, 0, len(count))
	for d, c := range count {
		if c == len(symbols) {
			common = append(common, d)
		}
	}
	if len(common) == 0 {
		return nil, fmt.Errorf("%d symbols: %w", len(symbols), ErrInsufficientOverlap)
	}
	sort.Slice(common, func(i, j int) bool { return common[i].Before(common[j]) })

	panel := &PricePanel{Panel: emptyPanel(symbols)}
	row := make([]float64, len(symbols))
	for _, d := range common {
		for j := range symbols {
			row[j] = lookup[j][d]
		}
		panel.appendRow(d, row)
	}
	return panel, nil
}

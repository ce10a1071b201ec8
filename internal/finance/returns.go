package finance

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Frequency is the sampling period used before differencing prices.
type Frequency string

const (
	Daily     Frequency = "daily"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

// Frequencies lists every supported frequency, finest first.
var Frequencies = []Frequency{Daily, Monthly, Quarterly, Yearly}

// ParseFrequency accepts the full names and their usual short forms.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "d", "1d", "day", "daily":
		return Daily, nil
	case "m", "1m", "mo", "month", "monthly":
		return Monthly, nil
	case "q", "3m", "quarter", "quarterly":
		return Quarterly, nil
	case "y", "1y", "year", "yearly", "annual":
		return Yearly, nil
	}
	return "", fmt.Errorf("invalid frequency %q (use daily, monthly, quarterly or yearly)", s)
}

// periodEnd returns the last calendar day of the period containing d.
func periodEnd(d time.Time, f Frequency) time.Time {
	y, m, _ := d.Date()
	switch f {
	case Monthly:
		return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
	case Quarterly:
		qm := ((int(m)-1)/3 + 1) * 3
		return time.Date(y, time.Month(qm)+1, 0, 0, 0, 0, 0, time.UTC)
	case Yearly:
		return time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC)
	default:
		return dateOf(d)
	}
}

// Resample keeps the last observed price of every period, labelled with the
// period's last calendar day. Daily returns an unchanged copy.
func Resample(p *PricePanel, f Frequency) *PricePanel {
	out := &PricePanel{Panel: emptyPanel(p.Symbols)}
	n := p.Len()
	for i := 0; i < n; i++ {
		key := periodEnd(p.Dates[i], f)
		if i+1 < n && periodEnd(p.Dates[i+1], f).Equal(key) {
			continue
		}
		out.appendRow(key, p.Row(i))
	}
	return out
}

// Returns computes simple returns p[t]/p[t-1]-1 after resampling to f.
// Rows containing a non-finite value are dropped; fewer than two periods
// give an empty panel.
func Returns(p *PricePanel, f Frequency) *ReturnPanel {
	sampled := Resample(p, f)
	out := &ReturnPanel{Panel: emptyPanel(p.Symbols), Frequency: f}
	row := make([]float64, len(sampled.Symbols))
	for i := 1; i < sampled.Len(); i++ {
		ok := true
		for j, col := range sampled.Columns {
			r := col[i]/col[i-1] - 1
			if math.IsNaN(r) || math.IsInf(r, 0) {
				ok = false
				break
			}
			row[j] = r
		}
		if ok {
			out.appendRow(sampled.Dates[i], row)
		}
	}
	return out
}

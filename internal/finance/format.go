package finance

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// FormatMatrix renders a correlation matrix as a fixed-width text table.
func FormatMatrix(m *CorrelationMatrix) string {
	width := 7
	for _, s := range m.Symbols {
		if len(s)+1 > width {
			width = len(s) + 1
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-*s", width, "")
	for _, s := range m.Symbols {
		fmt.Fprintf(&b, "%*s", width, s)
	}
	b.WriteByte('\n')
	for i, s := range m.Symbols {
		fmt.Fprintf(&b, "%-*s", width, s)
		for _, v := range m.Values[i] {
			if math.IsNaN(v) {
				fmt.Fprintf(&b, "%*s", width, "n/a")
			} else {
				fmt.Fprintf(&b, "%*.3f", width, v)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatSummary creates a plain-text digest of a result, suitable for a
// chat reply inside a code block or as input to the commentary model.
func FormatSummary(r *Result) string {
	var b strings.Builder
	req := r.Request
	fmt.Fprintf(&b, "Correlation %s • %s → %s • %s returns\n",
		strings.Join(r.Prices.Symbols, ", "),
		firstDate(r.Prices.Dates).Format(time.DateOnly),
		lastDate(r.Prices.Dates).Format(time.DateOnly),
		req.Frequency)
	fmt.Fprintf(&b, "%d aligned trading days, %d return observations\n\n", r.Prices.Len(), r.Returns.Len())
	b.WriteString(FormatMatrix(r.Correlation))

	for _, f := range Frequencies {
		m, ok := r.Breakdown[f]
		if !ok || f == req.Frequency || len(m.Symbols) < 2 {
			continue
		}
		if v, ok := m.At(m.Symbols[0], m.Symbols[1]); ok {
			fmt.Fprintf(&b, "%s %s/%s: %s (%d obs)\n", f, m.Symbols[0], m.Symbols[1], coefText(v), m.Observations)
		}
	}

	if len(r.Rolling) > 0 {
		lastPt := r.Rolling[len(r.Rolling)-1]
		fmt.Fprintf(&b, "\nRolling %d-day %s/%s: last %s on %s (%d points)\n",
			req.Window, r.Pair[0], r.Pair[1], coefText(lastPt.Value), lastPt.Date.Format(time.DateOnly), len(r.Rolling))
	}

	if r.Risk != nil {
		b.WriteString("\nRisk (historical, daily)\n")
		fmt.Fprintf(&b, "%-8s %8s %8s %8s %8s\n", "", "VaR", "CVaR", "Sharpe", "Weight")
		for _, a := range r.Risk.Assets {
			fmt.Fprintf(&b, "%-8s %7.2f%% %7.2f%% %8.2f %7.1f%%\n",
				a.Symbol, a.VaR*100, a.CVaR*100, a.Sharpe, r.Risk.Weights[a.Symbol]*100)
		}
	}
	if r.Portfolio != nil && r.Portfolio.Stats != nil {
		s := r.Portfolio.Stats
		fmt.Fprintf(&b, "Max-Sharpe portfolio: Return %.2f%% | Sharpe %.2f | Vol %.2f%% | MaxDD %.2f%%\n",
			s.TotalReturn, s.SharpeRatio, s.Volatility, s.MaxDrawdown)
		if n := len(r.Portfolio.Rebalanced); n > 0 {
			fmt.Fprintf(&b, "Monthly rebalanced: %.2f%% over %d months\n", r.Portfolio.Rebalanced[n-1].Value*100, n)
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\nWarnings\n")
		for _, w := range r.Warnings {
			b.WriteString("- " + w.String() + "\n")
		}
	}
	return b.String()
}

func coefText(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", v)
}

func firstDate(d []time.Time) time.Time {
	if len(d) == 0 {
		return time.Time{}
	}
	return d[0]
}

func lastDate(d []time.Time) time.Time {
	if len(d) == 0 {
		return time.Time{}
	}
	return d[len(d)-1]
}

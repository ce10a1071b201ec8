package finance

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

const tradingDaysPerYear = 252.0

// WeightedReturns sums weight*return over symbols with a positive weight.
func WeightedReturns(r *ReturnPanel, w WeightVector) ([]Point, error) {
	active := w.Active()
	if len(active) == 0 {
		return nil, fmt.Errorf("weight vector has no positive weight")
	}
	cols := make([][]float64, len(active))
	for k, sym := range active {
		col, ok := r.Column(sym)
		if !ok {
			return nil, fmt.Errorf("weight for %s: %w", sym, ErrUnknownSymbol)
		}
		cols[k] = col
	}
	out := make([]Point, r.Len())
	for i, d := range r.Dates {
		sum := 0.0
		for k, sym := range active {
			sum += w[sym] * cols[k][i]
		}
		out[i] = Point{Date: d, Value: sum}
	}
	return out, nil
}

// CumulativeReturns compounds returns from a starting value of 1.
func CumulativeReturns(returns []Point) []Point {
	out := make([]Point, len(returns))
	wealth := 1.0
	for i, p := range returns {
		wealth *= 1 + p.Value
		out[i] = Point{Date: p.Date, Value: wealth - 1}
	}
	return out
}

// Drawdowns measures the decline of the wealth index 1+cumulative from its
// running peak. The peak starts at the seed value 1.
func Drawdowns(cumulative []Point) []Point {
	out := make([]Point, len(cumulative))
	peak := 1.0
	for i, p := range cumulative {
		wealth := 1 + p.Value
		if wealth > peak {
			peak = wealth
		}
		dd := 0.0
		if peak > 0 {
			dd = math.Min(0, (wealth-peak)/peak)
		}
		out[i] = Point{Date: p.Date, Value: dd}
	}
	return out
}

// MonthlyRebalanced compounds returns within each calendar month and chains
// the monthly results into a cumulative return. Months are labelled with
// their last observed date.
func MonthlyRebalanced(returns []Point) (monthly, cumulative []Point) {
	type bucket struct {
		last   time.Time
		growth float64
	}
	var order []time.Time
	buckets := map[time.Time]*bucket{}
	for _, p := range returns {
		key := periodEnd(p.Date, Monthly)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{growth: 1}
			buckets[key] = b
			order = append(order, key)
		}
		b.growth *= 1 + p.Value
		if p.Date.After(b.last) {
			b.last = p.Date
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })
	monthly = make([]Point, len(order))
	for i, key := range order {
		b := buckets[key]
		monthly[i] = Point{Date: b.last, Value: b.growth - 1}
	}
	return monthly, CumulativeReturns(monthly)
}

// BuildPortfolio derives every portfolio-level series from returns and weights.
func BuildPortfolio(r *ReturnPanel, w WeightVector, riskFreeRate float64) (*PortfolioData, error) {
	weighted, err := WeightedReturns(r, w)
	if err != nil {
		return nil, err
	}
	cum := CumulativeReturns(weighted)
	monthly, rebalanced := MonthlyRebalanced(weighted)
	data := &PortfolioData{
		Weights:    w,
		Weighted:   weighted,
		Cumulative: cum,
		Drawdown:   Drawdowns(cum),
		Monthly:    monthly,
		Rebalanced: rebalanced,
	}
	if len(weighted) >= 2 {
		stats, err := calculatePortfolioStats(weighted, riskFreeRate)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate stats: %w", err)
		}
		data.Stats = stats
	}
	return data, nil
}

// calculatePortfolioStats computes portfolio statistics including Sharpe ratio
func calculatePortfolioStats(returns []Point, riskFreeRate float64) (*PortfolioStats, error) {
	if len(returns) < 2 {
		return nil, fmt.Errorf("need at least 2 return observations for statistics")
	}

	vals := make([]float64, len(returns))
	for i, p := range returns {
		vals[i] = p.Value
	}
	// sample (N-1) standard deviation
	_, std := stat.MeanStdDev(vals, nil)
	annualVolatility := std * math.Sqrt(tradingDaysPerYear)

	cum := CumulativeReturns(returns)
	totalReturn := cum[len(cum)-1].Value

	// Geometric annualization: (1 + total_return)^(1/years) - 1
	var annualReturn float64
	years := float64(len(returns)) / tradingDaysPerYear
	if years > 0 && 1+totalReturn > 0 {
		annualReturn = math.Pow(1+totalReturn, 1.0/years) - 1.0
	}

	var sharpeRatio float64
	if annualVolatility > 0 {
		sharpeRatio = (annualReturn - riskFreeRate) / annualVolatility
	}

	maxDrawdown := 0.0
	for _, p := range Drawdowns(cum) {
		if -p.Value > maxDrawdown {
			maxDrawdown = -p.Value
		}
	}

	stats := &PortfolioStats{
		TotalReturn:  totalReturn * 100,
		AnnualReturn: annualReturn * 100,
		Volatility:   annualVolatility * 100,
		SharpeRatio:  sharpeRatio,
		MaxDrawdown:  maxDrawdown * 100,
		NumDays:      len(returns),
	}
	for name, v := range map[string]float64{
		"total return":  stats.TotalReturn,
		"annual return": stats.AnnualReturn,
		"volatility":    stats.Volatility,
		"Sharpe ratio":  stats.SharpeRatio,
		"max drawdown":  stats.MaxDrawdown,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("invalid %s: %f", name, v)
		}
	}
	return stats, nil
}

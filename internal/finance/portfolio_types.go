package finance

import (
	"context"
	"sort"
)

// WeightVector maps symbols to non-negative portfolio weights.
type WeightVector map[string]float64

// Sum returns the total weight.
func (w WeightVector) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

// Active returns symbols with a positive weight, heaviest first.
func (w WeightVector) Active() []string {
	var out []string
	for sym, v := range w {
		if v > 0 {
			out = append(out, sym)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if w[out[i]] != w[out[j]] {
			return w[out[i]] > w[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// AssetRisk holds the historical risk measures of one symbol.
// VaR and CVaR are positive loss fractions.
type AssetRisk struct {
	Symbol string  `json:"symbol"`
	VaR    float64 `json:"var"`
	CVaR   float64 `json:"cvar"`
	Sharpe float64 `json:"sharpe"`
}

// RiskOptions configures the analytics capability.
type RiskOptions struct {
	Method       string  // only "historical" is supported
	RiskFreeRate float64 // annual
	Confidence   float64 // e.g. 0.95
}

// RiskReport is the answer of a RiskAnalyzer.
type RiskReport struct {
	Assets  []AssetRisk
	Weights WeightVector
}

// RiskAnalyzer estimates per-asset risk and max-Sharpe weights from returns.
type RiskAnalyzer interface {
	Analyze(ctx context.Context, returns *ReturnPanel, opts RiskOptions) (*RiskReport, error)
}

// PortfolioData is the weight-derived view of a returns panel.
type PortfolioData struct {
	Weights    WeightVector
	Weighted   []Point // weighted return per date
	Cumulative []Point // running product of (1+r) minus 1
	Drawdown   []Point // always <= 0
	Monthly    []Point // returns compounded within each calendar month
	Rebalanced []Point // monthly returns chained into a cumulative return
	Stats      *PortfolioStats
}

// PortfolioStats represents calculated portfolio statistics
type PortfolioStats struct {
	TotalReturn  float64 `json:"total_return_pct"`  // Total return as percentage
	AnnualReturn float64 `json:"annual_return_pct"` // Annualized return
	Volatility   float64 `json:"volatility_pct"`    // Annualized volatility
	SharpeRatio  float64 `json:"sharpe"`
	MaxDrawdown  float64 `json:"max_drawdown_pct"` // Maximum drawdown as percentage
	NumDays      int     `json:"num_days"`         // Number of return observations
}

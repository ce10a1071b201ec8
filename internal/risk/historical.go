// Package risk implements the analytics capability behind finance.RiskAnalyzer.
package risk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"correlationBot/internal/finance"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

const tradingDaysPerYear = 252.0

// Historical estimates risk from the empirical distribution of daily returns.
type Historical struct {
	log zerolog.Logger
}

func NewHistorical(log zerolog.Logger) *Historical {
	return &Historical{log: log.With().Str("component", "risk").Logger()}
}

// Analyze computes per-asset VaR, CVaR and Sharpe and a long-only
// max-Sharpe weight vector.
func (h *Historical) Analyze(ctx context.Context, r *finance.ReturnPanel, opts finance.RiskOptions) (*finance.RiskReport, error) {
	if opts.Method != "" && opts.Method != "historical" {
		return nil, fmt.Errorf("method %q: %w", opts.Method, finance.ErrAnalyticsUnavailable)
	}
	if r.Len() < 2 || len(r.Symbols) == 0 {
		return nil, errors.New("at least two return observations are required")
	}
	conf := opts.Confidence
	if conf <= 0 || conf >= 1 {
		conf = 0.95
	}

	report := &finance.RiskReport{Assets: make([]finance.AssetRisk, len(r.Symbols))}
	for j, sym := range r.Symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, cv := historicalVaR(r.Columns[j], conf)
		report.Assets[j] = finance.AssetRisk{
			Symbol: sym,
			VaR:    v,
			CVaR:   cv,
			Sharpe: sharpe(r.Columns[j], opts.RiskFreeRate),
		}
	}

	weights, err := maxSharpeWeights(ctx, r, opts.RiskFreeRate)
	if err != nil {
		return nil, err
	}
	report.Weights = weights
	h.log.Debug().Int("assets", len(r.Symbols)).Int("rows", r.Len()).
		Strs("active", weights.Active()).Msg("risk analysis done")
	return report, nil
}

// historicalVaR returns VaR and CVaR as positive loss fractions at the given
// confidence. CVaR averages every return at or below the VaR quantile.
func historicalVaR(returns []float64, conf float64) (float64, float64) {
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)
	q := stat.Quantile(1-conf, stat.Empirical, sorted, nil)

	var tail []float64
	for _, x := range sorted {
		if x > q {
			break
		}
		tail = append(tail, x)
	}
	return -q, -stat.Mean(tail, nil)
}

// sharpe annualizes daily mean and deviation; zero volatility gives 0.
func sharpe(returns []float64, riskFree float64) float64 {
	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return (mean*tradingDaysPerYear - riskFree) / (std * math.Sqrt(tradingDaysPerYear))
}

package risk

import (
	"context"

	"correlationBot/internal/finance"
)

// Unsupported is the analyzer used when risk analytics are switched off.
type Unsupported struct{}

func (Unsupported) Analyze(context.Context, *finance.ReturnPanel, finance.RiskOptions) (*finance.RiskReport, error) {
	return nil, finance.ErrAnalyticsUnavailable
}

package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Request describes one analysis run.
type Request struct {
	Symbols   []string
	Start     time.Time
	End       time.Time
	Frequency Frequency
	Window    int
	// Pair selects the rolling correlation series; empty means the first two symbols.
	Pair         [2]string
	Risk         bool
	RiskFreeRate float64
}

// Result carries every output of a run. Risk and Portfolio are nil when
// the risk step was not requested or could not run.
type Result struct {
	RunID        string
	Request      Request
	Prices       *PricePanel
	DailyReturns *ReturnPanel
	Returns      *ReturnPanel // at Request.Frequency
	Correlation  *CorrelationMatrix
	Breakdown    map[Frequency]*CorrelationMatrix
	Pair         [2]string
	Rolling      []Point
	Risk         *RiskReport
	Portfolio    *PortfolioData
	Warnings     []Warning
}

// PipelineConfig holds settings fixed at startup.
type PipelineConfig struct {
	Fetch         FetchOptions
	DefaultWindow int
	Confidence    float64
}

// Pipeline runs the fetch → align → returns → correlation/risk chain.
type Pipeline struct {
	quoter   Quoter
	analyzer RiskAnalyzer
	cfg      PipelineConfig
	log      zerolog.Logger
}

// NewPipeline wires a pipeline. analyzer may be nil, which behaves like an
// unavailable analytics capability.
func NewPipeline(q Quoter, analyzer RiskAnalyzer, cfg PipelineConfig, log zerolog.Logger) *Pipeline {
	if cfg.DefaultWindow < 2 {
		cfg.DefaultWindow = 30
	}
	if cfg.Confidence <= 0 || cfg.Confidence >= 1 {
		cfg.Confidence = 0.95
	}
	return &Pipeline{
		quoter:   q,
		analyzer: analyzer,
		cfg:      cfg,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes one analysis to completion. Only ErrNoSymbols,
// ErrNoUsableData and ErrInsufficientOverlap are returned as errors;
// every other problem is reported in Result.Warnings.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	req.Symbols = NormalizeSymbols(req.Symbols)
	if len(req.Symbols) == 0 {
		return nil, ErrNoSymbols
	}
	if req.Frequency == "" {
		req.Frequency = Daily
	}
	if req.Window == 0 {
		req.Window = p.cfg.DefaultWindow
	}

	res := &Result{RunID: uuid.NewString(), Request: req}
	log := p.log.With().Str("run_id", res.RunID).Logger()
	started := time.Now()
	log.Info().Strs("symbols", req.Symbols).
		Str("start", req.Start.Format(time.DateOnly)).
		Str("end", req.End.Format(time.DateOnly)).
		Str("frequency", string(req.Frequency)).
		Msg("analysis started")

	series, warnings := FetchAll(ctx, p.quoter, req.Symbols, req.Start, req.End, p.cfg.Fetch, log)
	res.Warnings = append(res.Warnings, warnings...)

	prices, err := Align(series, req.Symbols)
	if err != nil {
		log.Warn().Err(err).Msg("analysis halted")
		return nil, err
	}
	res.Prices = prices
	res.DailyReturns = Returns(prices, Daily)
	res.Returns = Returns(prices, req.Frequency)
	res.Correlation = Correlate(res.Returns)
	res.Breakdown = Breakdown(prices)

	p.rolling(res, req, log)
	if req.Risk {
		p.risk(ctx, res, req, log)
	}

	log.Info().Int("rows", prices.Len()).Int("warnings", len(res.Warnings)).
		Dur("elapsed", time.Since(started)).Msg("analysis finished")
	return res, nil
}

func (p *Pipeline) rolling(res *Result, req Request, log zerolog.Logger) {
	pair := req.Pair
	if pair[0] == "" && pair[1] == "" {
		if len(res.Prices.Symbols) < 2 {
			return
		}
		pair = [2]string{res.Prices.Symbols[0], res.Prices.Symbols[1]}
	}
	pair[0] = strings.ToUpper(strings.TrimSpace(pair[0]))
	pair[1] = strings.ToUpper(strings.TrimSpace(pair[1]))
	res.Pair = pair

	points, err := RollingCorrelation(res.DailyReturns, pair[0], pair[1], req.Window)
	switch {
	case err == nil:
		res.Rolling = points
	case errors.Is(err, ErrSameSymbol):
		res.Warnings = append(res.Warnings, Warning{Kind: WarnAmbiguousInput, Symbol: pair[0],
			Message: "same symbol selected twice for rolling correlation; rolling step skipped"})
	case errors.Is(err, ErrUnknownSymbol):
		res.Warnings = append(res.Warnings, Warning{Kind: WarnDataUnavailable,
			Message: fmt.Sprintf("rolling correlation skipped: %v", err)})
	default:
		res.Warnings = append(res.Warnings, Warning{Kind: WarnAmbiguousInput,
			Message: fmt.Sprintf("rolling correlation skipped: %v", err)})
	}
	if err != nil {
		log.Debug().Err(err).Msg("rolling correlation skipped")
	}
}

func (p *Pipeline) risk(ctx context.Context, res *Result, req Request, log zerolog.Logger) {
	skip := func(err error) {
		log.Warn().Err(err).Msg("risk step skipped")
		res.Warnings = append(res.Warnings, Warning{Kind: WarnAnalyticsUnavailable,
			Message: fmt.Sprintf("risk and optimization skipped: %v", err)})
	}
	if p.analyzer == nil {
		skip(ErrAnalyticsUnavailable)
		return
	}
	report, err := p.analyzer.Analyze(ctx, res.DailyReturns, RiskOptions{
		Method:       "historical",
		RiskFreeRate: req.RiskFreeRate,
		Confidence:   p.cfg.Confidence,
	})
	if err != nil {
		skip(err)
		return
	}
	portfolio, err := BuildPortfolio(res.DailyReturns, report.Weights, req.RiskFreeRate)
	if err != nil {
		skip(err)
		return
	}
	res.Risk = report
	res.Portfolio = portfolio
}

// NormalizeSymbols trims, upper-cases and de-duplicates tickers, keeping order.
func NormalizeSymbols(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		su := strings.ToUpper(strings.TrimSpace(s))
		if su == "" || seen[su] {
			continue
		}
		seen[su] = true
		out = append(out, su)
	}
	return out
}

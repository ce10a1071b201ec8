package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	report *RiskReport
	err    error
	opts   RiskOptions
}

func (f *fakeAnalyzer) Analyze(_ context.Context, r *ReturnPanel, opts RiskOptions) (*RiskReport, error) {
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func wavySeries(sym string, n int, scale float64) *PriceSeries {
	s := &PriceSeries{Symbol: sym, Adjusted: true}
	for i := 0; i < n; i++ {
		s.Dates = append(s.Dates, jan1.AddDate(0, 0, i))
		s.Prices = append(s.Prices, 100+scale*float64((i*7)%11))
	}
	return s
}

func newTestPipeline(q Quoter, a RiskAnalyzer) *Pipeline {
	return NewPipeline(q, a, PipelineConfig{Fetch: FetchOptions{Workers: 2}, DefaultWindow: 5}, zerolog.Nop())
}

func baseRequest(symbols ...string) Request {
	return Request{Symbols: symbols, Start: jan1, End: jan1.AddDate(0, 3, 0)}
}

func TestPipelineRun(t *testing.T) {
	q := newFakeQuoter()
	q.series["AAA"] = wavySeries("AAA", 60, 1)
	q.series["BBB"] = wavySeries("BBB", 60, -2)
	q.series["CCC"] = wavySeries("CCC", 50, 3)
	analyzer := &fakeAnalyzer{report: &RiskReport{
		Assets:  []AssetRisk{{Symbol: "AAA"}, {Symbol: "BBB"}, {Symbol: "CCC"}},
		Weights: WeightVector{"AAA": 0.6, "CCC": 0.4},
	}}

	req := baseRequest("aaa", "BBB", "ccc", "AAA")
	req.Risk = true
	req.RiskFreeRate = 0.03
	res, err := newTestPipeline(q, analyzer).Run(context.Background(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, res.Prices.Symbols)
	assert.Equal(t, 50, res.Prices.Len())
	assert.Equal(t, 49, res.DailyReturns.Len())
	assert.Equal(t, [2]string{"AAA", "BBB"}, res.Pair)
	assert.Len(t, res.Rolling, 49-5+1)
	assert.Len(t, res.Breakdown, len(Frequencies))
	assert.Empty(t, res.Warnings)

	require.NotNil(t, res.Risk)
	require.NotNil(t, res.Portfolio)
	assert.Len(t, res.Portfolio.Cumulative, 49)
	assert.Equal(t, 0.03, analyzer.opts.RiskFreeRate)
	assert.Equal(t, 0.95, analyzer.opts.Confidence)
	assert.Equal(t, "historical", analyzer.opts.Method)
}

func TestPipelineFatalErrors(t *testing.T) {
	q := newFakeQuoter()
	q.errs["BAD"] = ErrNoData

	_, err := newTestPipeline(q, nil).Run(context.Background(), baseRequest(" ", ""))
	assert.ErrorIs(t, err, ErrNoSymbols)

	_, err = newTestPipeline(q, nil).Run(context.Background(), baseRequest("BAD"))
	assert.ErrorIs(t, err, ErrNoUsableData)

	q.series["EARLY"] = &PriceSeries{Symbol: "EARLY", Dates: []time.Time{jan1}, Prices: []float64{1}, Adjusted: true}
	q.series["LATE"] = &PriceSeries{Symbol: "LATE", Dates: []time.Time{feb1}, Prices: []float64{1}, Adjusted: true}
	_, err = newTestPipeline(q, nil).Run(context.Background(), baseRequest("EARLY", "LATE"))
	assert.ErrorIs(t, err, ErrInsufficientOverlap)
}

func TestPipelineWarnings(t *testing.T) {
	q := newFakeQuoter()
	q.series["AAA"] = wavySeries("AAA", 30, 1)
	q.series["BBB"] = wavySeries("BBB", 30, 2)
	q.series["RAW"] = wavySeries("RAW", 30, 3)
	q.series["RAW"].Adjusted = false
	q.errs["GONE"] = ErrNoData

	req := baseRequest("AAA", "GONE", "BBB", "RAW")
	req.Pair = [2]string{"AAA", "GONE"}
	req.Risk = true
	res, err := newTestPipeline(q, nil).Run(context.Background(), req)
	require.NoError(t, err)

	kinds := map[WarningKind]int{}
	for _, w := range res.Warnings {
		kinds[w.Kind]++
	}
	assert.Equal(t, 2, kinds[WarnDataUnavailable]) // fetch failure and skipped rolling
	assert.Equal(t, 1, kinds[WarnCloseSubstituted])
	assert.Equal(t, 1, kinds[WarnAnalyticsUnavailable])
	assert.Nil(t, res.Rolling)
	assert.Nil(t, res.Risk)
	assert.Nil(t, res.Portfolio)
	assert.Equal(t, []string{"AAA", "BBB", "RAW"}, res.Correlation.Symbols)
}

func TestPipelineSamePair(t *testing.T) {
	q := newFakeQuoter()
	q.series["AAA"] = wavySeries("AAA", 30, 1)
	q.series["BBB"] = wavySeries("BBB", 30, 2)

	req := baseRequest("AAA", "BBB")
	req.Pair = [2]string{"aaa", "AAA"}
	res, err := newTestPipeline(q, nil).Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnAmbiguousInput, res.Warnings[0].Kind)
	assert.Nil(t, res.Rolling)
}

func TestPipelineAnalyzerFailure(t *testing.T) {
	q := newFakeQuoter()
	q.series["AAA"] = wavySeries("AAA", 30, 1)
	q.series["BBB"] = wavySeries("BBB", 30, 2)

	req := baseRequest("AAA", "BBB")
	req.Risk = true
	res, err := newTestPipeline(q, &fakeAnalyzer{err: errors.New("solver diverged")}).Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnAnalyticsUnavailable, res.Warnings[0].Kind)
	assert.Contains(t, res.Warnings[0].Message, "solver diverged")
	assert.NotNil(t, res.Correlation)
	assert.NotEmpty(t, res.Rolling)
}

func TestPipelineSingleSymbol(t *testing.T) {
	q := newFakeQuoter()
	q.series["AAA"] = wavySeries("AAA", 10, 1)

	res, err := newTestPipeline(q, nil).Run(context.Background(), baseRequest("AAA"))
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA"}, res.Correlation.Symbols)
	assert.Equal(t, 1.0, res.Correlation.Values[0][0])
	assert.Nil(t, res.Rolling)
	assert.Empty(t, res.Warnings)
}

func TestNormalizeSymbols(t *testing.T) {
	assert.Equal(t, []string{"AAPL", "BRK.B"}, NormalizeSymbols([]string{" aapl", "", "brk.b", "AAPL "}))
	assert.Empty(t, NormalizeSymbols(nil))
}

package finance

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/vicanso/go-charts/v2"
)

// RenderCorrelationTable draws the matrix as a PNG table.
func RenderCorrelationTable(m *CorrelationMatrix) ([]byte, error) {
	if len(m.Symbols) == 0 {
		return nil, errors.New("empty correlation matrix")
	}
	header := append([]string{""}, m.Symbols...)
	data := make([][]string, len(m.Symbols))
	for i, sym := range m.Symbols {
		row := []string{sym}
		for _, v := range m.Values[i] {
			if math.IsNaN(v) {
				row = append(row, "n/a")
			} else {
				row = append(row, fmt.Sprintf("%.3f", v))
			}
		}
		data[i] = row
	}
	p, err := charts.TableRender(header, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render table: %w", err)
	}
	return p.Bytes()
}

// RenderRollingChart plots a rolling correlation series. Undefined points are skipped.
func RenderRollingChart(pair [2]string, window int, points []Point) ([]byte, error) {
	var xLabels []string
	var values []float64
	for _, pt := range points {
		if math.IsNaN(pt.Value) {
			continue
		}
		xLabels = append(xLabels, pt.Date.Format(time.DateOnly))
		values = append(values, pt.Value)
	}
	if len(values) < 2 {
		return nil, errors.New("not enough rolling points to plot")
	}
	yMin, yMax := -1.0, 1.0
	p, err := charts.LineRender(
		[][]float64{values},
		charts.TitleTextOptionFunc(fmt.Sprintf("Rolling %d-day correlation • %s / %s", window, pair[0], pair[1])),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNumber(len(xLabels)),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 4}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return p.Bytes()
}

// RenderPortfolioChart plots cumulative return and drawdown of the optimized portfolio.
func RenderPortfolioChart(pd *PortfolioData) ([]byte, error) {
	if pd == nil || len(pd.Cumulative) < 2 {
		return nil, errors.New("not enough portfolio data to plot")
	}
	xLabels := make([]string, len(pd.Cumulative))
	cum := make([]float64, len(pd.Cumulative))
	dd := make([]float64, len(pd.Drawdown))
	for i, pt := range pd.Cumulative {
		xLabels[i] = pt.Date.Format(time.DateOnly)
		cum[i] = pt.Value * 100
	}
	for i, pt := range pd.Drawdown {
		dd[i] = pt.Value * 100
	}
	yMin, yMax := paddedRange(append(append([]float64{}, cum...), dd...))

	var composition []string
	for _, sym := range pd.Weights.Active() {
		composition = append(composition, fmt.Sprintf("%s %.1f%%", sym, pd.Weights[sym]*100))
	}
	title := fmt.Sprintf("Max-Sharpe Portfolio (%s)", strings.Join(composition, ", "))
	subtitle := ""
	if s := pd.Stats; s != nil {
		subtitle = fmt.Sprintf("Return: %.2f%% | Sharpe: %.2f | Vol: %.2f%% | MaxDD: %.2f%%",
			s.TotalReturn, s.SharpeRatio, s.Volatility, s.MaxDrawdown)
	}

	p, err := charts.LineRender(
		[][]float64{cum, dd},
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNumber(len(xLabels)),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: []string{"Cumulative %", "Drawdown %"},
			Top:  charts.PositionBottom,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return p.Bytes()
}

// RenderWeightsChart draws the optimized weights as a bar chart.
func RenderWeightsChart(w WeightVector) ([]byte, error) {
	active := w.Active()
	if len(active) == 0 {
		return nil, errors.New("no positive weights to plot")
	}
	values := make([]float64, len(active))
	for i, sym := range active {
		values[i] = w[sym] * 100
	}
	p, err := charts.BarRender(
		[][]float64{values},
		charts.TitleTextOptionFunc("Max-Sharpe weights (%)"),
		charts.XAxisDataOptionFunc(active),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return p.Bytes()
}

// splitNumber picks an x-axis split count based on data points
func splitNumber(n int) int {
	if n > 30 {
		return 6
	}
	split := n / 3
	if split < 3 {
		split = 3
	}
	return split
}

// paddedRange returns min/max with 5% padding.
func paddedRange(values []float64) (float64, float64) {
	minVal, maxVal := values[0], values[0]
	for _, v := range values {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	padding := (maxVal - minVal) * 0.05
	if padding == 0 {
		padding = math.Max(math.Abs(maxVal)*0.05, 1)
	}
	return minVal - padding, maxVal + padding
}

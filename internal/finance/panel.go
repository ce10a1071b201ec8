package finance

import (
	"math"
	"time"
)

// PriceSeries is the daily close history of one symbol as returned by a Quoter.
type PriceSeries struct {
	Symbol string
	Dates  []time.Time
	Prices []float64
	// Adjusted is false when raw closes were substituted for adjusted closes.
	Adjusted bool
}

// Len returns the number of observations.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Dates)
}

// Panel is a date-keyed table with one column per symbol.
// Columns[j][i] holds the value of Symbols[j] on Dates[i].
type Panel struct {
	Dates   []time.Time
	Symbols []string
	Columns [][]float64
}

// Len returns the number of rows.
func (p *Panel) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Dates)
}

// Index returns the column position of symbol, or -1.
func (p *Panel) Index(symbol string) int {
	for i, s := range p.Symbols {
		if s == symbol {
			return i
		}
	}
	return -1
}

// Column returns the values of symbol.
func (p *Panel) Column(symbol string) ([]float64, bool) {
	i := p.Index(symbol)
	if i < 0 {
		return nil, false
	}
	return p.Columns[i], true
}

// Row returns the values of every symbol on row i.
func (p *Panel) Row(i int) []float64 {
	row := make([]float64, len(p.Columns))
	for j, col := range p.Columns {
		row[j] = col[i]
	}
	return row
}

func emptyPanel(symbols []string) Panel {
	cols := make([][]float64, len(symbols))
	for j := range cols {
		cols[j] = []float64{}
	}
	syms := make([]string, len(symbols))
	copy(syms, symbols)
	return Panel{Dates: []time.Time{}, Symbols: syms, Columns: cols}
}

// appendRow adds a row, keeping Dates and Columns in step.
func (p *Panel) appendRow(date time.Time, row []float64) {
	p.Dates = append(p.Dates, date)
	for j := range p.Columns {
		p.Columns[j] = append(p.Columns[j], row[j])
	}
}

// PricePanel holds aligned prices: every date has a price for every symbol.
type PricePanel struct {
	Panel
}

// ReturnPanel holds simple period-over-period returns without missing cells.
type ReturnPanel struct {
	Panel
	Frequency Frequency
}

// CorrelationMatrix is a symmetric matrix of Pearson coefficients.
// Undefined cells hold NaN.
type CorrelationMatrix struct {
	Symbols      []string
	Values       [][]float64
	Observations int
}

// At returns the coefficient for (a, b) and whether it is defined.
func (m *CorrelationMatrix) At(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, s := range m.Symbols {
		if s == a {
			i = k
		}
		if s == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	v := m.Values[i][j]
	return v, !math.IsNaN(v)
}

// Point is a single dated value of a derived series.
type Point struct {
	Date  time.Time
	Value float64
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

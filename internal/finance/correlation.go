package finance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Correlate computes the pairwise Pearson correlation of every column pair.
// The matrix is symmetric with an exact 1.0 diagonal. A cell is NaN when
// fewer than two observations exist or a column has no variance.
func Correlate(r *ReturnPanel) *CorrelationMatrix {
	n := len(r.Symbols)
	m := &CorrelationMatrix{
		Symbols:      append([]string(nil), r.Symbols...),
		Values:       make([][]float64, n),
		Observations: r.Len(),
	}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		if r.Len() < 2 {
			m.Values[i][i] = math.NaN()
		} else {
			m.Values[i][i] = 1
		}
		for j := i + 1; j < n; j++ {
			v := pearson(r.Columns[i], r.Columns[j])
			m.Values[i][j] = v
			m.Values[j][i] = v
		}
	}
	return m
}

func pearson(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return math.NaN()
	}
	v := stat.Correlation(x, y, nil)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return math.NaN()
	}
	// rounding can push perfectly (anti)correlated inputs just past ±1
	return math.Max(-1, math.Min(1, v))
}

// RollingCorrelation correlates a and b over a trailing window of w rows.
// One point is produced per date once w observations are available, so a
// panel of N rows yields max(N-w+1, 0) points.
func RollingCorrelation(r *ReturnPanel, a, b string, w int) ([]Point, error) {
	if w < 2 {
		return nil, fmt.Errorf("window %d: %w", w, ErrInvalidWindow)
	}
	if a == b {
		return nil, fmt.Errorf("%s twice: %w", a, ErrSameSymbol)
	}
	x, ok := r.Column(a)
	if !ok {
		return nil, fmt.Errorf("%s: %w", a, ErrUnknownSymbol)
	}
	y, ok := r.Column(b)
	if !ok {
		return nil, fmt.Errorf("%s: %w", b, ErrUnknownSymbol)
	}
	n := r.Len()
	if n < w {
		return []Point{}, nil
	}
	out := make([]Point, 0, n-w+1)
	for end := w; end <= n; end++ {
		out = append(out, Point{
			Date:  r.Dates[end-1],
			Value: pearson(x[end-w:end], y[end-w:end]),
		})
	}
	return out, nil
}

// Breakdown correlates returns at every supported frequency.
func Breakdown(p *PricePanel) map[Frequency]*CorrelationMatrix {
	out := make(map[Frequency]*CorrelationMatrix, len(Frequencies))
	for _, f := range Frequencies {
		out[f] = Correlate(Returns(p, f))
	}
	return out
}

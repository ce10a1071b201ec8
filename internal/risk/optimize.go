package risk

import (
	"context"
	"fmt"
	"math"

	"correlationBot/internal/finance"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// weights below this are dropped before renormalizing
const dustWeight = 1e-4

// maxSharpeWeights searches the long-only simplex for the weights with the
// highest annualized Sharpe ratio. Weights are a softmax of the free
// variables so every candidate is non-negative and sums to 1.
func maxSharpeWeights(ctx context.Context, r *finance.ReturnPanel, riskFree float64) (finance.WeightVector, error) {
	n := len(r.Symbols)
	if n == 1 {
		return finance.WeightVector{r.Symbols[0]: 1}, nil
	}

	rows := r.Len()
	data := mat.NewDense(rows, n, nil)
	mu := make([]float64, n)
	for j, col := range r.Columns {
		mu[j] = stat.Mean(col, nil)
		for i, v := range col {
			data.Set(i, j, v)
		}
	}
	var sigma mat.SymDense
	stat.CovarianceMatrix(&sigma, data, nil)

	negSharpe := func(x []float64) float64 {
		w := softmax(x)
		ret := 0.0
		for i := range w {
			ret += mu[i] * w[i]
		}
		ret = ret*tradingDaysPerYear - riskFree
		variance := mat.Inner(mat.NewVecDense(n, w), &sigma, mat.NewVecDense(n, w))
		vol := math.Sqrt(math.Max(variance, 0) * tradingDaysPerYear)
		if vol < 1e-12 {
			return -ret * 1e6
		}
		return -ret / vol
	}

	problem := optimize.Problem{
		Func: negSharpe,
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	initial := make([]float64, n)
	result, err := optimize.Minimize(problem, initial, &optimize.Settings{FuncEvaluations: 5000 * n}, &optimize.NelderMead{})
	if err != nil && result == nil {
		return nil, fmt.Errorf("optimization failed: %w", err)
	}
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}

	w := softmax(result.X)
	sum := 0.0
	for i := range w {
		if w[i] < dustWeight {
			w[i] = 0
		}
		sum += w[i]
	}
	out := make(finance.WeightVector, n)
	for i, sym := range r.Symbols {
		out[sym] = w[i] / sum
	}
	return out, nil
}

func softmax(x []float64) []float64 {
	maxX := math.Inf(-1)
	for _, v := range x {
		maxX = math.Max(maxX, v)
	}
	out := make([]float64, len(x))
	sum := 0.0
	for i, v := range x {
		out[i] = math.Exp(v - maxX)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

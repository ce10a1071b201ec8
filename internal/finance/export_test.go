package finance

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCorrelationCSV(t *testing.T) {
	p := pricePanel([]time.Time{day(1, 2), day(1, 3), day(1, 4)}, []string{"A", "B"},
		[]float64{100, 110, 99}, []float64{50, 45, 49.5})

	var buf bytes.Buffer
	require.NoError(t, WriteCorrelationCSV(&buf, Correlate(Returns(p, Daily))))
	assert.Equal(t, ",A,B\nA,1.000,-1.000\nB,-1.000,1.000\n", buf.String())
}

func TestWriteCorrelationCSVUndefined(t *testing.T) {
	m := &CorrelationMatrix{
		Symbols: []string{"X", "Y"},
		Values:  [][]float64{{1, math.NaN()}, {math.NaN(), 1}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCorrelationCSV(&buf, m))
	assert.Equal(t, ",X,Y\nX,1.000,\nY,,1.000\n", buf.String())
}

func TestFormatCoefficient(t *testing.T) {
	assert.Equal(t, "0.123", formatCoefficient(0.12345))
	assert.Equal(t, "-0.500", formatCoefficient(-0.5))
	assert.Equal(t, "0.667", formatCoefficient(2.0/3.0))
	assert.Equal(t, "", formatCoefficient(math.Inf(1)))
}

package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pricePanel(dates []time.Time, symbols []string, cols ...[]float64) *PricePanel {
	return &PricePanel{Panel: Panel{Dates: dates, Symbols: symbols, Columns: cols}}
}

func TestReturnsDaily(t *testing.T) {
	p := pricePanel([]time.Time{day(1, 2), day(1, 3), day(1, 4)}, []string{"A", "B"},
		[]float64{100, 110, 121}, []float64{50, 45, 40.5})

	r := Returns(p, Daily)
	require.Equal(t, 2, r.Len())
	assert.Equal(t, []time.Time{day(1, 3), day(1, 4)}, r.Dates)
	assert.InDelta(t, 0.10, r.Columns[0][0], 1e-12)
	assert.InDelta(t, 0.10, r.Columns[0][1], 1e-12)
	assert.InDelta(t, -0.10, r.Columns[1][0], 1e-12)
	assert.InDelta(t, -0.10, r.Columns[1][1], 1e-12)
	assert.Equal(t, Daily, r.Frequency)
}

func TestResampleMonthly(t *testing.T) {
	p := pricePanel(
		[]time.Time{day(1, 30), day(1, 31), day(2, 1), day(2, 28), day(3, 4)},
		[]string{"A"},
		[]float64{1, 2, 3, 4, 5},
	)

	m := Resample(p, Monthly)
	assert.Equal(t, []time.Time{day(1, 31), day(2, 29), day(3, 31)}, m.Dates)
	assert.Equal(t, []float64{2, 4, 5}, m.Columns[0])

	q := Resample(p, Quarterly)
	assert.Equal(t, []time.Time{day(3, 31)}, q.Dates)
	assert.Equal(t, []float64{5}, q.Columns[0])

	y := Resample(p, Yearly)
	assert.Equal(t, []time.Time{day(12, 31)}, y.Dates)
}

func TestResampleIdempotent(t *testing.T) {
	var dates []time.Time
	var prices []float64
	for i := 0; i < 400; i += 3 {
		dates = append(dates, day(1, 1).AddDate(0, 0, i))
		prices = append(prices, 100+float64(i))
	}
	p := pricePanel(dates, []string{"A"}, prices)

	for _, f := range Frequencies {
		once := Resample(p, f)
		twice := Resample(once, f)
		assert.Equal(t, once.Dates, twice.Dates, f)
		assert.Equal(t, once.Columns, twice.Columns, f)
	}
}

func TestReturnsTooFewPeriods(t *testing.T) {
	p := pricePanel([]time.Time{day(1, 2), day(1, 20)}, []string{"A"}, []float64{1, 2})

	r := Returns(p, Monthly)
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, []string{"A"}, r.Symbols)

	r = Returns(pricePanel([]time.Time{}, []string{"A"}, []float64{}), Daily)
	assert.Equal(t, 0, r.Len())
}

func TestParseFrequency(t *testing.T) {
	testCases := map[string]Frequency{
		"":          Daily,
		"daily":     Daily,
		"M":         Monthly,
		"quarterly": Quarterly,
		"Yearly":    Yearly,
		"annual":    Yearly,
	}
	for in, want := range testCases {
		got, err := ParseFrequency(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFrequency("hourly")
	assert.Error(t, err)
}

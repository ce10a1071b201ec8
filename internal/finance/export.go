package finance

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"

	"github.com/shopspring/decimal"
)

// WriteCorrelationCSV writes the matrix as UTF-8 CSV: a header row of symbols
// after an empty corner cell, then one row per symbol with coefficients
// rounded to 3 decimals. Undefined cells are left empty.
func WriteCorrelationCSV(w io.Writer, m *CorrelationMatrix) error {
	cw := csv.NewWriter(w)

	header := append([]string{""}, m.Symbols...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, sym := range m.Symbols {
		record := make([]string, 0, len(m.Symbols)+1)
		record = append(record, sym)
		for _, v := range m.Values[i] {
			record = append(record, formatCoefficient(v))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func formatCoefficient(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return decimal.NewFromFloat(v).StringFixed(3)
}

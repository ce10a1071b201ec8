package finance

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"correlationBot/internal/storage"

	"github.com/vicanso/go-charts/v2"
)

// UsageAnalytics renders the run log kept by storage.
type UsageAnalytics struct{}

func NewUsageAnalytics() *UsageAnalytics {
	return &UsageAnalytics{}
}

// MakeUsageChart draws the share of runs per command as a pie.
func (ua *UsageAnalytics) MakeUsageChart(stats map[string]*storage.UsageStats, days int) ([]byte, error) {
	commands := sortedKeys(stats)
	if len(commands) == 0 {
		return nil, fmt.Errorf("no usage data available")
	}
	total := totalRuns(stats)

	values := make([]float64, len(commands))
	labels := make([]string, len(commands))
	for i, cmd := range commands {
		values[i] = float64(stats[cmd].Count)
		labels[i] = fmt.Sprintf("%s (%.1f%%)", cmd, values[i]/float64(total)*100)
	}

	p, err := charts.PieRender(
		values,
		charts.TitleTextOptionFunc(fmt.Sprintf("Runs by Command (%d days)", days)),
		charts.LegendOptionFunc(charts.LegendOption{Data: labels, Top: charts.PositionTop}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}

// MakeUsageTimeSeriesChart draws one line per command over the union of buckets.
// Buckets a command has no runs in count as zero.
func (ua *UsageAnalytics) MakeUsageTimeSeriesChart(series map[string][]storage.TimeSeriesPoint, days int) ([]byte, error) {
	commands := sortedKeys(series)
	if len(commands) == 0 {
		return nil, fmt.Errorf("no time series data available")
	}

	index := map[int64]int{}
	var buckets []int64
	for _, cmd := range commands {
		for _, pt := range series[cmd] {
			if _, ok := index[pt.Timestamp]; !ok {
				index[pt.Timestamp] = 0
				buckets = append(buckets, pt.Timestamp)
			}
		}
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i] < buckets[j] })
	for i, ts := range buckets {
		index[ts] = i
	}

	layout := "01/02"
	if days <= 1 {
		layout = "15:04"
	}
	xLabels := make([]string, len(buckets))
	for i, ts := range buckets {
		xLabels[i] = time.Unix(ts, 0).UTC().Format(layout)
	}

	lines := make([][]float64, len(commands))
	for k, cmd := range commands {
		lines[k] = make([]float64, len(buckets))
		for _, pt := range series[cmd] {
			lines[k][index[pt.Timestamp]] = float64(pt.Count)
		}
	}

	p, err := charts.LineRender(
		lines,
		charts.TitleTextOptionFunc(fmt.Sprintf("Runs Over Time (%d days)", days)),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels, SplitNumber: splitNumber(len(xLabels))}),
		charts.LegendOptionFunc(charts.LegendOption{Data: commands, Top: charts.PositionTop}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}

// FormatUsageStatsText summarizes runs per command with the most requested symbols.
func (ua *UsageAnalytics) FormatUsageStatsText(stats map[string]*storage.UsageStats, days int) string {
	commands := sortedKeys(stats)
	if len(commands) == 0 {
		return "No usage data available for the specified period."
	}
	total := totalRuns(stats)

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Usage Analytics (%d days)\n\n", days)
	fmt.Fprintf(&b, "Total runs: %d\n\n", total)
	for _, cmd := range commands {
		st := stats[cmd]
		fmt.Fprintf(&b, "%s (%d runs, %.1f%%)\n", commandLabel(cmd), st.Count, float64(st.Count)/float64(total)*100)
		for _, sym := range topSymbols(st.Commands, 5) {
			fmt.Fprintf(&b, "  • %s: %d\n", sym, st.Commands[sym])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func totalRuns(stats map[string]*storage.UsageStats) int {
	n := 0
	for _, st := range stats {
		n += st.Count
	}
	return n
}

// topSymbols returns up to limit symbols, most requested first.
func topSymbols(counts map[string]int, limit int) []string {
	syms := sortedKeys(counts)
	sort.SliceStable(syms, func(i, j int) bool { return counts[syms[i]] > counts[syms[j]] })
	if len(syms) > limit {
		syms = syms[:limit]
	}
	return syms
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func commandLabel(cmd string) string {
	switch cmd {
	case "corr":
		return "📈 Correlation Runs"
	case "api":
		return "🌐 API Runs"
	default:
		return cmd
	}
}

package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenSQLite("file:" + filepath.Join(t.TempDir(), "runs.db") + "?_fk=1")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, InitSchema(db))
	return NewStore(db)
}

func TestUsageStats(t *testing.T) {
	s := newTestStore(t)
	base := time.Unix(1_700_000_000, 0)

	require.NoError(t, s.RecordRun(Run{ID: "a", ChatID: 1, Command: "corr", Symbols: []string{"AAPL", "MSFT"}, Status: StatusOK, TS: base}))
	require.NoError(t, s.RecordRun(Run{ID: "b", ChatID: 1, Command: "corr", Symbols: []string{"AAPL", "GOOG"}, Status: StatusFailed, TS: base.Add(time.Minute)}))
	require.NoError(t, s.RecordRun(Run{ID: "c", ChatID: 2, Command: "usage", Status: StatusOK, TS: base.Add(2 * time.Hour)}))
	require.NoError(t, s.RecordRun(Run{ID: "old", ChatID: 2, Command: "corr", Symbols: []string{"TSLA"}, Status: StatusOK, TS: base.Add(-48 * time.Hour)}))

	stats, err := s.UsageStats(base.Unix())
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 2, stats["corr"].Count)
	assert.Equal(t, 2, stats["corr"].Commands["AAPL"])
	assert.Equal(t, 1, stats["corr"].Commands["MSFT"])
	assert.NotContains(t, stats["corr"].Commands, "TSLA")
	assert.Equal(t, 1, stats["usage"].Count)
	assert.Empty(t, stats["usage"].Commands)
}

func TestUsageTimeSeries(t *testing.T) {
	s := newTestStore(t)
	base := time.Unix(1_700_000_000, 0).Truncate(time.Hour)

	require.NoError(t, s.RecordRun(Run{ID: "a", Command: "corr", TS: base}))
	require.NoError(t, s.RecordRun(Run{ID: "b", Command: "corr", TS: base.Add(10 * time.Minute)}))
	require.NoError(t, s.RecordRun(Run{ID: "c", Command: "corr", TS: base.Add(90 * time.Minute)}))

	series, err := s.UsageTimeSeries(base.Unix(), 3600)
	require.NoError(t, err)
	require.Len(t, series["corr"], 2)
	assert.Equal(t, TimeSeriesPoint{Timestamp: base.Unix(), Count: 2}, series["corr"][0])
	assert.Equal(t, TimeSeriesPoint{Timestamp: base.Unix() + 3600, Count: 1}, series["corr"][1])
}

func TestRecordRunDuplicateID(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.RecordRun(Run{ID: "dup", Command: "corr"}))
	assert.Error(t, s.RecordRun(Run{ID: "dup", Command: "corr"}))
}

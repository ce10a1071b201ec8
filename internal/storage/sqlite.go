package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

type DB interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	Close() error
}

// Run is one analysis request as seen by the usage log. Only metadata is kept.
type Run struct {
	ID      string
	ChatID  int64
	Command string
	Symbols []string
	Status  string
	TS      time.Time
}

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// UsageStats aggregates runs of one command. Commands counts symbols.
type UsageStats struct {
	Count    int
	Commands map[string]int
}

type TimeSeriesPoint struct {
	Timestamp int64
	Count     int
}

type Store struct{ db DB }

func OpenSQLite(dsn string) (DB, error) {
	return sql.Open("sqlite3", dsn)
}

func InitSchema(db DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs(
		id TEXT PRIMARY KEY, chat_id INTEGER, command TEXT, symbols TEXT, status TEXT, ts INTEGER
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS runs_ts ON runs(ts)`)
	return err
}

func NewStore(db DB) *Store { return &Store{db: db} }

func (s *Store) RecordRun(r Run) error {
	if r.TS.IsZero() {
		r.TS = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO runs(id,chat_id,command,symbols,status,ts) VALUES(?,?,?,?,?,?)`,
		r.ID, r.ChatID, r.Command, strings.Join(r.Symbols, ","), r.Status, r.TS.Unix())
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, err)
	}
	return nil
}

// UsageStats groups runs since the given unix time by command.
func (s *Store) UsageStats(since int64) (map[string]*UsageStats, error) {
	rows, err := s.db.Query(`SELECT command, symbols FROM runs WHERE ts>=? ORDER BY ts ASC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]*UsageStats{}
	for rows.Next() {
		var cmd, syms string
		if err := rows.Scan(&cmd, &syms); err != nil {
			return nil, err
		}
		st, ok := out[cmd]
		if !ok {
			st = &UsageStats{Commands: map[string]int{}}
			out[cmd] = st
		}
		st.Count++
		for _, sym := range strings.Split(syms, ",") {
			if sym != "" {
				st.Commands[sym]++
			}
		}
	}
	return out, rows.Err()
}

// UsageTimeSeries counts runs per command in fixed buckets of bucketSecs.
func (s *Store) UsageTimeSeries(since, bucketSecs int64) (map[string][]TimeSeriesPoint, error) {
	if bucketSecs <= 0 {
		bucketSecs = 3600
	}
	rows, err := s.db.Query(`SELECT command, (ts/?)*? AS bucket, COUNT(*) FROM runs
		WHERE ts>=? GROUP BY command, bucket ORDER BY bucket ASC`, bucketSecs, bucketSecs, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string][]TimeSeriesPoint{}
	for rows.Next() {
		var cmd string
		var p TimeSeriesPoint
		if err := rows.Scan(&cmd, &p.Timestamp, &p.Count); err != nil {
			return nil, err
		}
		out[cmd] = append(out[cmd], p)
	}
	return out, rows.Err()
}

package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/linkpulse/linkpulse/pkg/types"
)

// DefaultListLimit caps List when the caller passes limit <= 0.
const DefaultListLimit = 100

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    subscriber_id TEXT NOT NULL,
    agent_id TEXT NOT NULL DEFAULT '',
    ts INTEGER NOT NULL,
    state TEXT NOT NULL,
    outcome TEXT NOT NULL,
    mean_score INTEGER,
    median_score INTEGER,
    uptime_pct REAL,
    disconnects INTEGER NOT NULL,
    long_disconnects INTEGER NOT NULL,
    disconnects_per_day REAL NOT NULL,
    entries INTEGER NOT NULL,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_subscriber_ts ON runs(subscriber_id, ts);
CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(ts);
`

// Run is one persisted analysis run.
type Run struct {
	SubscriberID      string   `json:"subscriber_id"`
	AgentID           string   `json:"agent_id,omitempty"`
	TimestampUnix     int64    `json:"timestamp_unix"`
	State             string   `json:"state"`
	Outcome           string   `json:"outcome"`
	MeanScore         *int     `json:"mean_score"`
	MedianScore       *int     `json:"median_score"`
	UptimePct         *float64 `json:"uptime_pct"`
	Disconnects       int      `json:"disconnects"`
	LongDisconnects   int      `json:"long_disconnects"`
	DisconnectsPerDay float64  `json:"disconnects_per_day"`
	Entries           int      `json:"entries"`
	ErrorMessage      string   `json:"error_message,omitempty"`
}

// Store is the SQLite-backed run history. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %q: %w", path, err)
	}
	// A single connection keeps ":memory:" databases coherent and serialises
	// writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one row for snap.
func (s *Store) Record(ctx context.Context, snap *types.Snapshot) error {
	m := &snap.Metrics
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO runs (subscriber_id, agent_id, ts, state, outcome,
            mean_score, median_score, uptime_pct,
            disconnects, long_disconnects, disconnects_per_day, entries, error_message)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.SubscriberID,
		snap.AgentID,
		snap.TimestampUnix,
		snap.State,
		snap.Fetch.Outcome,
		nullInt(m.MeanScore),
		nullInt(m.MedianScore),
		nullFloat(m.PercentConnected),
		m.TotalDisconnects,
		len(m.LongDisconnects),
		m.DisconnectsPerDay,
		snap.Fetch.Entries,
		nullString(snap.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("history: record %s: %w", snap.SubscriberID, err)
	}
	return nil
}

// List returns up to limit runs for subscriberID, newest first.
func (s *Store) List(ctx context.Context, subscriberID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT subscriber_id, agent_id, ts, state, outcome,
            mean_score, median_score, uptime_pct,
            disconnects, long_disconnects, disconnects_per_day, entries, error_message
        FROM runs
        WHERE subscriber_id = ?
        ORDER BY ts DESC, id DESC
        LIMIT ?`, subscriberID, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list %s: %w", subscriberID, err)
	}
	defer rows.Close()

	out := make([]Run, 0)
	for rows.Next() {
		var (
			r      Run
			mean   sql.NullInt64
			median sql.NullInt64
			uptime sql.NullFloat64
			errMsg sql.NullString
		)
		if err := rows.Scan(&r.SubscriberID, &r.AgentID, &r.TimestampUnix, &r.State, &r.Outcome,
			&mean, &median, &uptime,
			&r.Disconnects, &r.LongDisconnects, &r.DisconnectsPerDay, &r.Entries, &errMsg); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		if mean.Valid {
			v := int(mean.Int64)
			r.MeanScore = &v
		}
		if median.Valid {
			v := int(median.Int64)
			r.MedianScore = &v
		}
		if uptime.Valid {
			v := uptime.Float64
			r.UptimePct = &v
		}
		r.ErrorMessage = errMsg.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list %s: %w", subscriberID, err)
	}
	return out, nil
}

// Subscribers returns the distinct subscriber IDs with at least one run.
func (s *Store) Subscribers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT subscriber_id FROM runs ORDER BY subscriber_id`)
	if err != nil {
		return nil, fmt.Errorf("history: subscribers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Prune deletes runs recorded before the given time and returns how many
// rows were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE ts < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	return n, nil
}

// Run prunes runs older than retention every interval until ctx is
// cancelled. A zero retention disables pruning.
func (s *Store) Run(ctx context.Context, retention, interval time.Duration) {
	if retention <= 0 {
		<-ctx.Done()
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := s.Prune(ctx, now.Add(-retention))
			if err != nil {
				slog.Error("history: prune failed", "err", err)
				continue
			}
			if n > 0 {
				slog.Info("history: pruned runs", "count", n, "retention", retention)
			}
		}
	}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

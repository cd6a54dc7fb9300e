package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists the run journal to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so `list` can read while the daemon writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL,
			timestamp  INTEGER NOT NULL,
			symbol     TEXT NOT NULL,
			mode       TEXT,
			range_from TEXT,
			range_to   TEXT,
			ranges     INTEGER,
			fetched    INTEGER,
			succeeded  INTEGER,
			failed     INTEGER,
			aborted    INTEGER,
			note       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol ON runs(symbol)`,

		`CREATE TABLE IF NOT EXISTS alerts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			symbol     TEXT,
			alert_type TEXT,
			price      REAL,
			change_pct REAL,
			message    TEXT,
			delivered  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func stamp(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Unix()
}

func (r *SQLiteRecorder) RecordRun(rec *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO runs
		(run_id, timestamp, symbol, mode, range_from, range_to,
		 ranges, fetched, succeeded, failed, aborted, note)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.RunID, stamp(rec.At), rec.Symbol, rec.Mode,
		rec.Start.Format("2006-01-02"), rec.End.Format("2006-01-02"),
		rec.Ranges, rec.Fetched, rec.Succeeded, rec.Failed, boolInt(rec.Aborted), rec.Note,
	)
	return err
}

func (r *SQLiteRecorder) RecordAlert(rec *AlertRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO alerts
		(timestamp, symbol, alert_type, price, change_pct, message, delivered)
		VALUES (?,?,?,?,?,?,?)`,
		stamp(rec.At), rec.Symbol, rec.AlertType, rec.Price, rec.Change,
		rec.Message, boolInt(rec.Delivered),
	)
	return err
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT run_id, timestamp, symbol, mode, range_from, range_to,
		ranges, fetched, succeeded, failed, aborted, note
		FROM runs ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec      RunRecord
			ts       int64
			from, to string
			aborted  int
		)
		if err := rows.Scan(&rec.RunID, &ts, &rec.Symbol, &rec.Mode, &from, &to,
			&rec.Ranges, &rec.Fetched, &rec.Succeeded, &rec.Failed, &aborted, &rec.Note); err != nil {
			return nil, err
		}
		rec.At = time.Unix(ts, 0)
		rec.Start, _ = time.Parse("2006-01-02", from)
		rec.End, _ = time.Parse("2006-01-02", to)
		rec.Aborted = aborted != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

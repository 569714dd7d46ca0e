package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id  TEXT    NOT NULL,
	provider    TEXT    NOT NULL,
	model       TEXT    NOT NULL DEFAULT '',
	success     INTEGER NOT NULL,
	error_kind  TEXT    NOT NULL DEFAULT '',
	retryable   INTEGER NOT NULL DEFAULT 0,
	status_code INTEGER NOT NULL DEFAULT 0,
	latency_ms  INTEGER NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exchanges_created_at ON exchanges(created_at);
`

// SQLiteStore persists exchanges in a SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string, ttl time.Duration) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	// One writer; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db, ttl: ttl}, nil
}

// Record stores an exchange.
func (s *SQLiteStore) Record(ex *Exchange) error {
	created := ex.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO exchanges (request_id, provider, model, success, error_kind, retryable, status_code, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.RequestID, ex.Provider, ex.Model, boolInt(ex.Success), ex.ErrorKind,
		boolInt(ex.Retryable), ex.StatusCode, ex.LatencyMs, created.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record exchange: %w", err)
	}
	return nil
}

// Recent returns up to limit unexpired exchanges, newest first.
func (s *SQLiteStore) Recent(limit int) ([]Exchange, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	cutoff := time.Now().Add(-s.ttl).UnixNano()

	rows, err := s.db.Query(
		`SELECT request_id, provider, model, success, error_kind, retryable, status_code, latency_ms, created_at
		 FROM exchanges WHERE created_at > ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()

	var out []Exchange
	for rows.Next() {
		var (
			ex                 Exchange
			success, retryable int
			created            int64
		)
		if err := rows.Scan(&ex.RequestID, &ex.Provider, &ex.Model, &success, &ex.ErrorKind,
			&retryable, &ex.StatusCode, &ex.LatencyMs, &created); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		ex.Success = success != 0
		ex.Retryable = retryable != 0
		ex.CreatedAt = time.Unix(0, created)
		out = append(out, ex)
	}
	return out, rows.Err()
}

// Prune removes expired exchanges.
func (s *SQLiteStore) Prune() (int, error) {
	res, err := s.db.Exec(`DELETE FROM exchanges WHERE created_at <= ?`, time.Now().Add(-s.ttl).UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune exchanges: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ Store = (*SQLiteStore)(nil)

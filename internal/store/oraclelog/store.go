package oraclelog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store keeps every oracle consultation (including fallbacks) for later
// inspection: prompts in, raw output, parsed decision, parse error.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Record is one consultation.
type Record struct {
	ID         int64  `json:"id"`
	TraceID    string `json:"trace_id"`
	Timestamp  int64  `json:"ts"`
	ProfileID  string `json:"profile_id"`
	Symbol     string `json:"symbol"`
	System     string `json:"system_prompt"`
	User       string `json:"user_prompt"`
	RawOutput  string `json:"raw_output"`
	Decision   string `json:"decision"`
	Relevance  int    `json:"relevance"`
	ImageCount int    `json:"image_count"`
	Fallback   bool   `json:"fallback"`
	Error      string `json:"error,omitempty"`
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("oracle log: path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS oracle_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trace_id TEXT NOT NULL,
	ts INTEGER NOT NULL,
	profile_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	system_prompt TEXT NOT NULL DEFAULT '',
	user_prompt TEXT NOT NULL DEFAULT '',
	raw_output TEXT NOT NULL DEFAULT '',
	decision TEXT NOT NULL DEFAULT '',
	relevance INTEGER NOT NULL DEFAULT 0,
	image_count INTEGER NOT NULL DEFAULT 0,
	fallback INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_oracle_log_profile_ts ON oracle_log(profile_id, ts);
`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Append stores a record. Best-effort for the caller: errors are returned but
// the adapter treats them as non-fatal.
func (s *Store) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("oracle log closed")
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UnixMilli()
	}
	fallback := 0
	if rec.Fallback {
		fallback = 1
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO oracle_log (trace_id, ts, profile_id, symbol, system_prompt, user_prompt, raw_output, decision, relevance, image_count, fallback, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TraceID, rec.Timestamp, rec.ProfileID, rec.Symbol,
		rec.System, rec.User, rec.RawOutput, rec.Decision,
		rec.Relevance, rec.ImageCount, fallback, rec.Error)
	return err
}

// Recent returns the newest records for a profile, newest first. Empty
// profileID means all profiles.
func (s *Store) Recent(ctx context.Context, profileID string, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("oracle log closed")
	}
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, trace_id, ts, profile_id, symbol, system_prompt, user_prompt, raw_output, decision, relevance, image_count, fallback, error
FROM oracle_log`
	args := []any{}
	if profileID != "" {
		query += " WHERE profile_id = ?"
		args = append(args, profileID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		var fallback int
		if err := rows.Scan(&rec.ID, &rec.TraceID, &rec.Timestamp, &rec.ProfileID, &rec.Symbol,
			&rec.System, &rec.User, &rec.RawOutput, &rec.Decision,
			&rec.Relevance, &rec.ImageCount, &fallback, &rec.Error); err != nil {
			return nil, err
		}
		rec.Fallback = fallback != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

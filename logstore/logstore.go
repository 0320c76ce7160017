// Package logstore provides SQLite-backed persistent storage for slog
// entries and a custom slog.Handler that tees log records to an inner
// handler and to the DB. Records are keyed by the LINE user id so an
// operator can pull one user's trail.
package logstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const migrationSQL = `
CREATE TABLE IF NOT EXISTS logs (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    ts       DATETIME NOT NULL,
    level    TEXT NOT NULL,
    msg      TEXT NOT NULL,
    user_id  TEXT,
    attrs    TEXT
);
CREATE INDEX IF NOT EXISTS idx_logs_user ON logs(user_id);
`

// LogRow is a single log entry returned by List.
type LogRow struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"ts"`
	Level     string    `json:"level"`
	Msg       string    `json:"msg"`
	UserID    string    `json:"user_id,omitempty"`
	Attrs     string    `json:"attrs,omitempty"`
}

// Store persists slog records in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the log store at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log db dir: %w", err)
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open log db: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), migrationSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("log db migration: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// write persists a single log entry. Errors are discarded: reporting them
// through slog would recurse into this handler. Prunes the table 1 in 500
// writes to keep the maintenance cost off the hot path.
func (s *Store) write(ctx context.Context, ts time.Time, level, msg, userID, attrsJSON string) {
	_, _ = s.db.ExecContext(ctx,
		`INSERT INTO logs (ts, level, msg, user_id, attrs) VALUES (?, ?, ?, ?, ?)`,
		ts, level, msg, userID, attrsJSON,
	)
	if rand.IntN(500) == 0 {
		// Prune with a fresh context: the request context that triggered
		// the write may be cancelled before the DELETE finishes.
		s.prune(context.Background())
	}
}

// prune keeps at most 50 000 rows by deleting the oldest excess rows.
func (s *Store) prune(ctx context.Context) {
	_, _ = s.db.ExecContext(ctx,
		`DELETE FROM logs WHERE id NOT IN (SELECT id FROM logs ORDER BY id DESC LIMIT 50000)`,
	)
}

// List returns log rows newest first, optionally filtered by user id and
// minimum level ("debug", "info", "warn", "error", or "" for no filter),
// along with the total count matching the filter.
func (s *Store) List(ctx context.Context, userID, level string, limit, offset int) ([]LogRow, int, error) {
	if limit == 0 {
		limit = 100
	}

	where := "1=1"
	var args []any

	if userID != "" {
		where += " AND user_id = ?"
		args = append(args, userID)
	}
	if n, ok := levelRank(level); ok {
		where += " AND CASE level WHEN 'DEBUG' THEN -4 WHEN 'WARN' THEN 4 WHEN 'ERROR' THEN 8 ELSE 0 END >= ?"
		args = append(args, n)
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM logs WHERE "+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count logs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, ts, level, msg, COALESCE(user_id,''), COALESCE(attrs,'') FROM logs WHERE "+where+
			" ORDER BY id DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	var out []LogRow
	for rows.Next() {
		var r LogRow
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Level, &r.Msg, &r.UserID, &r.Attrs); err != nil {
			return nil, 0, fmt.Errorf("scan log row: %w", err)
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func levelRank(level string) (int, bool) {
	switch level {
	case "debug":
		return -4, true
	case "info":
		return 0, true
	case "warn":
		return 4, true
	case "error":
		return 8, true
	}
	return 0, false
}

// Handler is a slog.Handler that tees records to an inner handler and to a
// Store. Attrs added via WithAttrs are remembered so a user_id attached to a
// derived logger still reaches the DB column.
type Handler struct {
	inner    slog.Handler
	store    *Store
	preAttrs map[string]string
}

// NewHandler wraps inner with a tee to store.
func NewHandler(inner slog.Handler, store *Store) *Handler {
	return &Handler{inner: inner, store: store, preAttrs: make(map[string]string)}
}

func (h *Handler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.inner.Enabled(ctx, l)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	child := &Handler{
		inner:    h.inner.WithAttrs(attrs),
		store:    h.store,
		preAttrs: copyMap(h.preAttrs),
	}
	for _, a := range attrs {
		child.preAttrs[a.Key] = a.Value.String()
	}
	return child
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		inner:    h.inner.WithGroup(name),
		store:    h.store,
		preAttrs: copyMap(h.preAttrs),
	}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	userID := h.preAttrs["user_id"]

	extra := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "user_id" {
			userID = a.Value.String()
		} else {
			extra[a.Key] = a.Value.Any()
		}
		return true
	})

	var attrsJSON string
	if len(extra) > 0 {
		b, _ := json.Marshal(extra)
		attrsJSON = string(b)
	}

	h.store.write(ctx, r.Time, r.Level.String(), r.Message, userID, attrsJSON)
	return nil
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

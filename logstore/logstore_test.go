package logstore

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "logs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestHandlerTeesToStore(t *testing.T) {
	st := openTestStore(t)
	logger := slog.New(NewHandler(slog.NewTextHandler(discard{}, nil), st))

	logger.Info("diary generated", "user_id", "U123", "category", "shukkin")
	logger.Warn("usage log append failed", "user_id", "U456")
	logger.Info("server started")

	rows, total, err := st.List(context.Background(), "", "", 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(rows) != 3 {
		t.Fatalf("got %d rows (total %d), want 3", len(rows), total)
	}
	// Newest first.
	if rows[0].Msg != "server started" {
		t.Errorf("rows[0].Msg = %q, want %q", rows[0].Msg, "server started")
	}
	if rows[2].UserID != "U123" {
		t.Errorf("rows[2].UserID = %q, want U123", rows[2].UserID)
	}
	if rows[2].Attrs == "" {
		t.Error("expected extra attrs to be recorded as JSON")
	}
}

func TestListFilterByUser(t *testing.T) {
	st := openTestStore(t)
	logger := slog.New(NewHandler(slog.NewTextHandler(discard{}, nil), st))

	logger.Info("a", "user_id", "U1")
	logger.Info("b", "user_id", "U2")
	logger.Info("c", "user_id", "U1")

	rows, total, err := st.List(context.Background(), "U1", "", 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
	for _, r := range rows {
		if r.UserID != "U1" {
			t.Errorf("got row for %q, want only U1", r.UserID)
		}
	}
}

func TestListFilterByLevel(t *testing.T) {
	st := openTestStore(t)
	logger := slog.New(NewHandler(slog.NewTextHandler(discard{}, nil), st))

	logger.Info("fine")
	logger.Warn("iffy")
	logger.Error("broken")

	rows, total, err := st.List(context.Background(), "", "warn", 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("got %d rows (total %d), want 2", len(rows), total)
	}
	for _, r := range rows {
		if r.Level == "INFO" {
			t.Errorf("info row %q leaked through warn filter", r.Msg)
		}
	}
}

func TestWithAttrsCarriesUserID(t *testing.T) {
	st := openTestStore(t)
	base := slog.New(NewHandler(slog.NewTextHandler(discard{}, nil), st))
	logger := base.With("user_id", "U789")

	logger.Info("deliver reply")

	rows, _, err := st.List(context.Background(), "U789", "", 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows for U789, want 1", len(rows))
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openSQLiteAt(t *testing.T, path string) *SQL {
	t.Helper()
	if testing.Short() {
		t.Skip("sqlite store tests skipped in short mode")
	}
	s, err := OpenSQL(context.Background(), NewSQLiteDialect(), Config{Type: "sqlite", Path: path})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func openSQLite(t *testing.T) Store {
	return openSQLiteAt(t, filepath.Join(t.TempDir(), "nested", "snaildle.db"))
}

func TestSQLiteStore(t *testing.T) {
	runContract(t, openSQLite)
}

func TestSQLiteInMemoryStore(t *testing.T) {
	runContract(t, func(t *testing.T) Store {
		s := openSQLiteAt(t, ":memory:")
		if s.reader != nil {
			t.Fatal("in-memory database must not open a second pool")
		}
		return s
	})
}

func TestSQLiteSnapshotDoesNotWaitForWriters(t *testing.T) {
	ctx := context.Background()
	s := openSQLiteAt(t, filepath.Join(t.TempDir(), "snaildle.db"))
	if _, err := s.CreateGame(ctx, "c1", "crane", t0); err != nil {
		t.Fatal(err)
	}

	// An open write transaction holds the database write lock.
	writer, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = writer.Rollback() }()
	if _, err := s.insertGame(ctx, writer, "c2", "slate", t0); err != nil {
		t.Fatal(err)
	}

	sctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	snap, err := s.Snapshot(sctx, Filter{})
	if err != nil {
		t.Fatalf("snapshot while a write is in flight: %v", err)
	}
	if len(snap.Games) != 1 || snap.Games[0].ChannelID != "c1" {
		t.Fatalf("snapshot games = %+v, want only the committed c1 game", snap.Games)
	}

	// The snapshot must not leave the writer blocked either.
	if _, err := writer.ExecContext(ctx, `UPDATE games SET guess_count = 1 WHERE channel_id = ?`, "c2"); err != nil {
		t.Fatalf("writer after snapshot: %v", err)
	}
	if err := writer.Commit(); err != nil {
		t.Fatalf("commit after snapshot: %v", err)
	}
}

func TestSQLiteActiveGameRaceMapsToConflict(t *testing.T) {
	ctx := context.Background()
	s := openSQLiteAt(t, filepath.Join(t.TempDir(), "snaildle.db"))
	if _, err := s.CreateGame(ctx, "c1", "crane", t0); err != nil {
		t.Fatal(err)
	}
	// Skips the existence check, as a second process racing past it would.
	_, err := s.insertGame(ctx, s.db, "c1", "slate", t0)
	if !errors.Is(err, ErrActiveGameExists) {
		t.Fatalf("duplicate active insert err = %v, want ErrActiveGameExists", err)
	}
	if _, err := s.insertGame(ctx, s.db, "c2", "slate", t0); err != nil {
		t.Fatalf("other channel: %v", err)
	}
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("sqlite store tests skipped in short mode")
	}
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snaildle.db")
	cfg := Config{Type: "sqlite", Path: path}

	first, err := Open(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	g, err := first.CreateGame(ctx, "c1", "crane", t0)
	if err != nil {
		t.Fatal(err)
	}
	_ = first.Close()

	second, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	got, err := second.ActiveGame(ctx, "c1")
	if err != nil {
		t.Fatalf("active game after reopen: %v", err)
	}
	if got.ID != g.ID {
		t.Fatalf("reopened game id = %d, want %d", got.ID, g.ID)
	}
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("CREATE TABLE a (x INT);\n\n  CREATE INDEX i ON a(x) ;\n")
	if len(got) != 2 || got[0] != "CREATE TABLE a (x INT)" || got[1] != "CREATE INDEX i ON a(x)" {
		t.Fatalf("splitStatements = %q", got)
	}
}

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

const memoryPath = ":memory:"

// SQLiteDialect implements Dialect for SQLite through mattn/go-sqlite3.
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect.
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) Name() string { return "sqlite" }

func (d *SQLiteDialect) DriverName() string { return "sqlite3" }

// DSN ensures the parent directory exists for relative paths (e.g. ./data/snaildle.db)
// and configures busy timeout, WAL journaling, foreign keys and immediate
// transactions so that concurrent writers queue on the write lock instead of
// failing on lock upgrade.
func (d *SQLiteDialect) DSN(cfg Config) (string, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return "", fmt.Errorf("sqlite path is required")
	}
	if path != memoryPath {
		dir := filepath.Dir(path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	}
	return "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on&_txlock=immediate", nil
}

func (d *SQLiteDialect) RewriteQuery(query string) string {
	// SQLite uses ? placeholders, no rewrite needed
	return query
}

func (d *SQLiteDialect) SupportsLastInsertID() bool { return true }

// SnapshotDSN opens the same file read-only with deferred transactions, so a
// snapshot reads a WAL snapshot and never queues on the write lock held by
// _txlock=immediate writers. An in-memory database has no second pool.
func (d *SQLiteDialect) SnapshotDSN(cfg Config) (string, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return "", fmt.Errorf("sqlite path is required")
	}
	if path == memoryPath {
		return "", nil
	}
	return "file:" + path + "?mode=ro&_busy_timeout=5000&_txlock=deferred", nil
}

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB, cfg Config) error {
	if strings.TrimSpace(cfg.Path) == memoryPath {
		// Each connection to :memory: is its own empty database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
		return nil
	}

	// SQLite has a single writer; a small pool keeps WAL readers concurrent.
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Explicitly enforce foreign keys + WAL.
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		return fmt.Errorf("set pragmas: %w", err)
	}
	return nil
}

func (d *SQLiteDialect) MigrationsDir() string { return "sqlite" }

func (d *SQLiteDialect) CreateMigrationsTableQuery() string {
	return `CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY, applied_at INTEGER NOT NULL)`
}

// RowLockClause is empty: _txlock=immediate already takes the write lock at BEGIN.
func (d *SQLiteDialect) RowLockClause() string { return "" }

// SnapshotTxOptions is nil: go-sqlite3 ignores TxOptions and begins with the
// DSN's _txlock, which SnapshotDSN sets to deferred.
func (d *SQLiteDialect) SnapshotTxOptions() *sql.TxOptions { return nil }

func (d *SQLiteDialect) UpsertPlayerQuery() string {
	return `INSERT INTO players (user_id, username, first_seen, last_active)
	        VALUES (?, ?, ?, ?)
	        ON CONFLICT(user_id) DO UPDATE SET
	            username = excluded.username,
	            last_active = excluded.last_active`
}

// IsUniqueViolation matches UNIQUE and PRIMARY KEY constraint failures.
func (d *SQLiteDialect) IsUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

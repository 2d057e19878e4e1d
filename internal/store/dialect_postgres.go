package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// PostgresDialect implements Dialect for PostgreSQL through lib/pq.
type PostgresDialect struct{}

// NewPostgresDialect creates a new PostgreSQL dialect.
func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) DriverName() string { return "postgres" }

func (d *PostgresDialect) DSN(cfg Config) (string, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return "", fmt.Errorf("postgres requires DATABASE_URL")
	}
	return cfg.URL, nil
}

func (d *PostgresDialect) RewriteQuery(query string) string {
	// PostgreSQL uses $1, $2, etc. instead of ?
	return rewritePlaceholdersToNumbered(query)
}

// SupportsLastInsertID is false: PostgreSQL needs a RETURNING clause.
func (d *PostgresDialect) SupportsLastInsertID() bool { return false }

func (d *PostgresDialect) ConfigureConnection(db *sql.DB, _ Config) error {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
	return nil
}

// SnapshotDSN is empty: a repeatable-read transaction on the main pool takes no row locks.
func (d *PostgresDialect) SnapshotDSN(Config) (string, error) { return "", nil }

func (d *PostgresDialect) MigrationsDir() string { return "postgres" }

func (d *PostgresDialect) CreateMigrationsTableQuery() string {
	return `CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY, applied_at BIGINT NOT NULL)`
}

func (d *PostgresDialect) RowLockClause() string { return " FOR UPDATE" }

func (d *PostgresDialect) SnapshotTxOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}

func (d *PostgresDialect) UpsertPlayerQuery() string {
	return `INSERT INTO players (user_id, username, first_seen, last_active)
	        VALUES (?, ?, ?, ?)
	        ON CONFLICT (user_id) DO UPDATE SET
	            username = EXCLUDED.username,
	            last_active = EXCLUDED.last_active`
}

// IsUniqueViolation matches SQLSTATE 23505 (unique_violation).
func (d *PostgresDialect) IsUniqueViolation(err error) bool {
	var pe *pq.Error
	return errors.As(err, &pe) && pe.Code == "23505"
}

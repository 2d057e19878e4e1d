package store

import (
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Dialect isolates the differences between the supported SQL backends.
type Dialect interface {
	// Name is the canonical backend name ("sqlite", "postgres", "mysql").
	Name() string

	// DriverName returns the driver name for sql.Open.
	DriverName() string

	// DSN builds the data source name from the store config.
	DSN(cfg Config) (string, error)

	// RewriteQuery converts ? placeholders if the backend needs another syntax.
	RewriteQuery(query string) string

	// SupportsLastInsertID reports whether sql.Result.LastInsertId works.
	SupportsLastInsertID() bool

	// ConfigureConnection applies pool settings and session pragmas.
	ConfigureConnection(db *sql.DB, cfg Config) error

	// SnapshotDSN returns the DSN of a separate read-only pool for Snapshot.
	// An empty DSN means Snapshot shares the main pool.
	SnapshotDSN(cfg Config) (string, error)

	// MigrationsDir is the subdirectory of the embedded migrations for this backend.
	MigrationsDir() string

	// CreateMigrationsTableQuery returns the DDL for the applied-migrations table.
	CreateMigrationsTableQuery() string

	// RowLockClause is appended to SELECTs that must block concurrent writers.
	RowLockClause() string

	// SnapshotTxOptions are used for consistent multi-table reads.
	SnapshotTxOptions() *sql.TxOptions

	// UpsertPlayerQuery inserts a player or refreshes username/last_active.
	UpsertPlayerQuery() string

	// IsUniqueViolation reports whether err was raised by a unique constraint.
	IsUniqueViolation(err error) bool
}

// DialectFor resolves a backend name to its Dialect.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3", "":
		return NewSQLiteDialect(), nil
	case "postgres", "postgresql":
		return NewPostgresDialect(), nil
	case "mysql":
		return NewMySQLDialect(), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", name)
	}
}

// placeholderRegexp matches ? placeholders.
var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(match string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

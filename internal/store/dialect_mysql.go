package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLDialect implements Dialect for MySQL through go-sql-driver/mysql.
type MySQLDialect struct{}

// NewMySQLDialect creates a new MySQL dialect.
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) Name() string { return "mysql" }

func (d *MySQLDialect) DriverName() string { return "mysql" }

// DSN parses the configured URL and forces the options the store relies on.
func (d *MySQLDialect) DSN(cfg Config) (string, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return "", fmt.Errorf("mysql requires DATABASE_URL")
	}
	mc, err := mysql.ParseDSN(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc.FormatDSN(), nil
}

func (d *MySQLDialect) RewriteQuery(query string) string {
	// MySQL uses ? placeholders like SQLite, no rewrite needed
	return query
}

func (d *MySQLDialect) SupportsLastInsertID() bool { return true }

func (d *MySQLDialect) ConfigureConnection(db *sql.DB, _ Config) error {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
	return nil
}

// SnapshotDSN is empty: InnoDB consistent reads take no locks.
func (d *MySQLDialect) SnapshotDSN(Config) (string, error) { return "", nil }

func (d *MySQLDialect) MigrationsDir() string { return "mysql" }

func (d *MySQLDialect) CreateMigrationsTableQuery() string {
	return `CREATE TABLE IF NOT EXISTS _migrations (name VARCHAR(255) PRIMARY KEY, applied_at BIGINT NOT NULL)`
}

func (d *MySQLDialect) RowLockClause() string { return " FOR UPDATE" }

func (d *MySQLDialect) SnapshotTxOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}

func (d *MySQLDialect) UpsertPlayerQuery() string {
	return "INSERT INTO players (user_id, username, first_seen, last_active) VALUES (?, ?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE username = VALUES(username), last_active = VALUES(last_active)"
}

// IsUniqueViolation matches ER_DUP_ENTRY (1062).
func (d *MySQLDialect) IsUniqueViolation(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

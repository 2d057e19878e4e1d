package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/snaildle/internal/store/migrations"
)

// migrate applies the embedded migrations for the dialect.
//
//   - Uses a _migrations table to track applied files.
//   - Executes each *.sql file in lexical order, statement by statement.
//   - Skips files already applied.
//   - Each file runs inside its own transaction (MySQL commits DDL implicitly,
//     so there a failed file may be partially applied and must be fixed by hand).
func migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	if _, err := db.ExecContext(ctx, d.CreateMigrationsTableQuery()); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	files, err := readMigrationNames(d)
	if err != nil {
		return err
	}

	for _, name := range files {
		var done int
		err := db.QueryRowContext(ctx, d.RewriteQuery(`SELECT 1 FROM _migrations WHERE name = ?`), name).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", name).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		content, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin %s: %w", name, err)
		}
		for _, stmt := range splitStatements(string(content)) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("apply %s: %w", name, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			d.RewriteQuery(`INSERT INTO _migrations (name, applied_at) VALUES (?, ?)`),
			name, time.Now().UTC().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", name, err)
		}
		log.Info().Str("migration", name).Str("dialect", d.Name()).Msg("applied")
	}
	return nil
}

// readMigrationNames lists the dialect's embedded *.sql files in lexical order.
func readMigrationNames(d Dialect) ([]string, error) {
	root := d.MigrationsDir()
	entries, err := fs.ReadDir(migrations.FS, root)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, path.Join(root, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no migrations for %s", d.Name())
	}
	sort.Strings(files)
	return files, nil
}

// splitStatements breaks a migration file on semicolons. Migration files must
// not contain semicolons inside literals.
func splitStatements(content string) []string {
	var out []string
	for _, part := range strings.Split(content, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

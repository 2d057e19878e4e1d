// internal/store/sql.go
//
// database/sql implementation of the Store interface.
// Responsibilities:
//   - Opening the database with dialect defaults and applying embedded migrations.
//   - Translating typed records to rows (timestamps as UTC unix milliseconds).
//   - Running every write as a single transaction; the active game row is locked
//     for the duration of a guess so counters and guess numbers cannot race.
//   - Reading stats snapshots inside one read transaction, on a separate
//     read-only pool when the dialect provides one.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robalobadob/snaildle/internal/game"
)

// SQL persists games, guesses and players through database/sql.
type SQL struct {
	db      *sql.DB
	reader  *sql.DB // nil: snapshots use db
	dialect Dialect
}

var _ Store = (*SQL)(nil)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const gameColumns = `game_id, channel_id, answer_word, start_time, end_time, solved, forfeit,
	guess_count, participant_count, winning_user`

const guessColumns = `guess_id, game_id, user_id, guess_word, guess_number, created_at`

// OpenSQL opens the database described by cfg, pings it, configures the pool and migrates.
func OpenSQL(ctx context.Context, d Dialect, cfg Config) (*SQL, error) {
	dsn, err := d.DSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := d.ConfigureConnection(db, cfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure connection: %w", err)
	}
	if err := migrate(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	reader, err := openReader(ctx, d, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQL{db: db, reader: reader, dialect: d}, nil
}

// openReader opens the dialect's snapshot pool, if it has one. It runs after
// migrations so the schema already exists.
func openReader(ctx context.Context, d Dialect, cfg Config) (*sql.DB, error) {
	dsn, err := d.SnapshotDSN(cfg)
	if err != nil || dsn == "" {
		return nil, err
	}
	reader, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open snapshot pool: %w", err)
	}
	if err := reader.PingContext(ctx); err != nil {
		_ = reader.Close()
		return nil, fmt.Errorf("ping snapshot pool: %w", err)
	}
	reader.SetMaxOpenConns(4)
	reader.SetMaxIdleConns(2)
	reader.SetConnMaxLifetime(5 * time.Minute)
	return reader, nil
}

// Close closes the database handles.
func (s *SQL) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	var errs []error
	if s.reader != nil {
		errs = append(errs, s.reader.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// q rewrites placeholders for the active dialect.
func (s *SQL) q(query string) string { return s.dialect.RewriteQuery(query) }

// insertReturningID runs an INSERT and returns the generated key, using
// RETURNING on backends without LastInsertId.
func (s *SQL) insertReturningID(ctx context.Context, qr queryer, query, idColumn string, args ...any) (int64, error) {
	if s.dialect.SupportsLastInsertID() {
		res, err := qr.ExecContext(ctx, s.q(query), args...)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}
	query = strings.TrimSuffix(strings.TrimSpace(query), ";") + " RETURNING " + idColumn
	var id int64
	if err := qr.QueryRowContext(ctx, s.q(query), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (game.Game, error) {
	var (
		g       game.Game
		started int64
		ended   sql.NullInt64
		winner  sql.NullString
	)
	if err := row.Scan(&g.ID, &g.ChannelID, &g.Answer, &started, &ended, &g.Solved, &g.Forfeit,
		&g.GuessCount, &g.ParticipantCount, &winner); err != nil {
		return game.Game{}, err
	}
	g.StartedAt = fromMillis(started)
	if ended.Valid {
		t := fromMillis(ended.Int64)
		g.EndedAt = &t
	}
	g.WinningUser = winner.String
	return g, nil
}

func scanGuess(row rowScanner) (game.Guess, error) {
	var (
		gs      game.Guess
		created int64
	)
	if err := row.Scan(&gs.ID, &gs.GameID, &gs.UserID, &gs.Word, &gs.Number, &created); err != nil {
		return game.Guess{}, err
	}
	gs.CreatedAt = fromMillis(created)
	return gs, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *SQL) CreateGame(ctx context.Context, channelID, answer string, startedAt time.Time) (game.Game, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return game.Game{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int64
	err = tx.QueryRowContext(ctx,
		s.q(`SELECT game_id FROM games WHERE channel_id = ? AND solved = ? AND forfeit = ?`+s.dialect.RowLockClause()),
		channelID, false, false,
	).Scan(&existing)
	switch {
	case err == nil:
		return game.Game{}, ErrActiveGameExists
	case !errors.Is(err, sql.ErrNoRows):
		return game.Game{}, fmt.Errorf("check active game: %w", err)
	}

	start := startedAt.UTC()
	id, err := s.insertGame(ctx, tx, channelID, answer, start)
	if err != nil {
		return game.Game{}, err
	}
	if err := tx.Commit(); err != nil {
		return game.Game{}, fmt.Errorf("commit: %w", err)
	}
	return game.Game{
		ID:        id,
		ChannelID: channelID,
		Answer:    answer,
		StartedAt: fromMillis(toMillis(start)),
	}, nil
}

// insertGame adds an active game row. Another process winning the race for the
// channel trips the one-active-game index and is reported as ErrActiveGameExists.
func (s *SQL) insertGame(ctx context.Context, qr queryer, channelID, answer string, start time.Time) (int64, error) {
	id, err := s.insertReturningID(ctx, qr,
		`INSERT INTO games (channel_id, answer_word, start_time, solved, forfeit, guess_count, participant_count)
		 VALUES (?, ?, ?, ?, ?, 0, 0)`,
		"game_id",
		channelID, answer, toMillis(start), false, false,
	)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return 0, ErrActiveGameExists
		}
		return 0, fmt.Errorf("insert game: %w", err)
	}
	return id, nil
}

func (s *SQL) ActiveGame(ctx context.Context, channelID string) (game.Game, error) {
	row := s.db.QueryRowContext(ctx,
		s.q(`SELECT `+gameColumns+` FROM games
		     WHERE channel_id = ? AND solved = ? AND forfeit = ?
		     ORDER BY start_time DESC LIMIT 1`),
		channelID, false, false,
	)
	g, err := scanGame(row)
	return g, notFound(err)
}

func (s *SQL) GetGame(ctx context.Context, id int64) (game.Game, error) {
	g, err := scanGame(s.db.QueryRowContext(ctx, s.q(`SELECT `+gameColumns+` FROM games WHERE game_id = ?`), id))
	return g, notFound(err)
}

// lockGame loads a game inside tx and blocks other writers on it where the dialect can.
func (s *SQL) lockGame(ctx context.Context, tx *sql.Tx, id int64) (game.Game, error) {
	row := tx.QueryRowContext(ctx, s.q(`SELECT `+gameColumns+` FROM games WHERE game_id = ?`+s.dialect.RowLockClause()), id)
	g, err := scanGame(row)
	return g, notFound(err)
}

func (s *SQL) ForfeitGame(ctx context.Context, id int64, endedAt time.Time) (game.Game, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return game.Game{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	g, err := s.lockGame(ctx, tx, id)
	if err != nil {
		return game.Game{}, err
	}
	if !g.Active() {
		return game.Game{}, ErrGameFinished
	}
	end := fromMillis(toMillis(endedAt))
	if _, err := tx.ExecContext(ctx,
		s.q(`UPDATE games SET forfeit = ?, end_time = ? WHERE game_id = ?`),
		true, toMillis(end), id,
	); err != nil {
		return game.Game{}, fmt.Errorf("forfeit game: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return game.Game{}, fmt.Errorf("commit: %w", err)
	}
	g.Forfeit = true
	g.EndedAt = &end
	return g, nil
}

func (s *SQL) RecordGuess(ctx context.Context, in GuessInput) (Recorded, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Recorded{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	g, err := s.lockGame(ctx, tx, in.GameID)
	if err != nil {
		return Recorded{}, err
	}
	if !g.Active() {
		return Recorded{}, ErrGameFinished
	}

	var prior int
	if err := tx.QueryRowContext(ctx,
		s.q(`SELECT COUNT(*) FROM guesses WHERE game_id = ? AND user_id = ?`),
		g.ID, in.UserID,
	).Scan(&prior); err != nil {
		return Recorded{}, fmt.Errorf("check participation: %w", err)
	}
	newParticipant := prior == 0

	at := fromMillis(toMillis(in.At))
	row := game.Guess{
		GameID:    g.ID,
		UserID:    in.UserID,
		Word:      in.Word,
		Number:    g.GuessCount + 1,
		CreatedAt: at,
	}
	row.ID, err = s.insertReturningID(ctx, tx,
		`INSERT INTO guesses (game_id, user_id, guess_word, guess_number, created_at) VALUES (?, ?, ?, ?, ?)`,
		"guess_id",
		row.GameID, row.UserID, row.Word, row.Number, toMillis(at),
	)
	if err != nil {
		return Recorded{}, fmt.Errorf("insert guess: %w", err)
	}

	joined := 0
	if newParticipant {
		joined = 1
	}
	if _, err := tx.ExecContext(ctx,
		s.q(`UPDATE games SET guess_count = guess_count + 1, participant_count = participant_count + ? WHERE game_id = ?`),
		joined, g.ID,
	); err != nil {
		return Recorded{}, fmt.Errorf("update counters: %w", err)
	}
	if in.Solves {
		if _, err := tx.ExecContext(ctx,
			s.q(`UPDATE games SET solved = ?, end_time = ?, winning_user = ? WHERE game_id = ?`),
			true, toMillis(at), in.UserID, g.ID,
		); err != nil {
			return Recorded{}, fmt.Errorf("mark solved: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Recorded{}, fmt.Errorf("commit: %w", err)
	}

	g.GuessCount++
	g.ParticipantCount += joined
	if in.Solves {
		g.Solved = true
		g.EndedAt = &at
		g.WinningUser = in.UserID
	}
	return Recorded{Game: g, Guess: row, NewParticipant: newParticipant}, nil
}

func (s *SQL) GuessesForGame(ctx context.Context, gameID int64) ([]game.Guess, error) {
	return s.listGuesses(ctx, s.db,
		`SELECT `+guessColumns+` FROM guesses WHERE game_id = ? ORDER BY guess_number ASC`, gameID)
}

func (s *SQL) listGuesses(ctx context.Context, qr queryer, query string, args ...any) ([]game.Guess, error) {
	rows, err := qr.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []game.Guess{}
	for rows.Next() {
		gs, err := scanGuess(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, gs)
	}
	return out, rows.Err()
}

func (s *SQL) listGames(ctx context.Context, qr queryer, query string, args ...any) ([]game.Game, error) {
	rows, err := qr.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []game.Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *SQL) UpsertPlayer(ctx context.Context, p game.Player) error {
	_, err := s.db.ExecContext(ctx, s.q(s.dialect.UpsertPlayerQuery()),
		p.UserID, p.Username, toMillis(p.FirstSeen), toMillis(p.LastActive))
	return err
}

func (s *SQL) GetPlayer(ctx context.Context, userID string) (game.Player, error) {
	var (
		p                 game.Player
		first, lastActive int64
	)
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT user_id, username, first_seen, last_active FROM players WHERE user_id = ?`), userID,
	).Scan(&p.UserID, &p.Username, &first, &lastActive)
	if err != nil {
		return game.Player{}, notFound(err)
	}
	p.FirstSeen = fromMillis(first)
	p.LastActive = fromMillis(lastActive)
	return p, nil
}

func (s *SQL) ListActiveGames(ctx context.Context) ([]game.Game, error) {
	return s.listGames(ctx, s.db,
		`SELECT `+gameColumns+` FROM games WHERE solved = ? AND forfeit = ? ORDER BY start_time DESC, game_id DESC`,
		false, false)
}

func (s *SQL) Snapshot(ctx context.Context, f Filter) (Snapshot, error) {
	db := s.db
	if s.reader != nil {
		db = s.reader
	}
	tx, err := db.BeginTx(ctx, s.dialect.SnapshotTxOptions())
	if err != nil {
		return Snapshot{}, fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var snap Snapshot
	if f.ChannelID == "" {
		if snap.Games, err = s.listGames(ctx, tx, `SELECT `+gameColumns+` FROM games ORDER BY game_id`); err != nil {
			return Snapshot{}, fmt.Errorf("snapshot games: %w", err)
		}
		if snap.Guesses, err = s.listGuesses(ctx, tx,
			`SELECT `+guessColumns+` FROM guesses ORDER BY game_id, guess_number`); err != nil {
			return Snapshot{}, fmt.Errorf("snapshot guesses: %w", err)
		}
	} else {
		if snap.Games, err = s.listGames(ctx, tx,
			`SELECT `+gameColumns+` FROM games WHERE channel_id = ? ORDER BY game_id`, f.ChannelID); err != nil {
			return Snapshot{}, fmt.Errorf("snapshot games: %w", err)
		}
		if snap.Guesses, err = s.listGuesses(ctx, tx,
			`SELECT gs.guess_id, gs.game_id, gs.user_id, gs.guess_word, gs.guess_number, gs.created_at
			 FROM guesses gs JOIN games g ON g.game_id = gs.game_id
			 WHERE g.channel_id = ?
			 ORDER BY gs.game_id, gs.guess_number`, f.ChannelID); err != nil {
			return Snapshot{}, fmt.Errorf("snapshot guesses: %w", err)
		}
	}

	rows, err := tx.QueryContext(ctx, `SELECT user_id, username, first_seen, last_active FROM players ORDER BY user_id`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot players: %w", err)
	}
	defer rows.Close()
	snap.Players = []game.Player{}
	for rows.Next() {
		var (
			p                 game.Player
			first, lastActive int64
		)
		if err := rows.Scan(&p.UserID, &p.Username, &first, &lastActive); err != nil {
			return Snapshot{}, err
		}
		p.FirstSeen = fromMillis(first)
		p.LastActive = fromMillis(lastActive)
		snap.Players = append(snap.Players, p)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

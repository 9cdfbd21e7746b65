package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/fatiguetrack/internal/models"
	_ "modernc.org/sqlite"
)

// SQLite stores sessions in a single local database file. Timestamps are
// kept as Unix nanoseconds so they round-trip exactly.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	closed_at  INTEGER
);
CREATE TABLE IF NOT EXISTS fatigue_sets (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id       TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	recorded_at      INTEGER NOT NULL,
	muscle_group     TEXT NOT NULL,
	difficulty       TEXT NOT NULL DEFAULT '',
	intensity        REAL NOT NULL,
	volume           REAL NOT NULL,
	duration_sec     REAL NOT NULL,
	rest_sec         REAL NOT NULL,
	fatigue_increase REAL NOT NULL,
	fatigue_level    REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fatigue_sets_session ON fatigue_sets (session_id, recorded_at, id);
`

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateSession inserts a new open session.
func (s *SQLite) CreateSession(ctx context.Context, row models.SessionRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, started_at) VALUES (?, ?, ?)`,
		row.ID.String(), row.UserID, row.StartedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("inserting session %s: %w", row.ID, err)
	}
	return nil
}

// ListOpenSessions returns every session that has not been closed, oldest first.
func (s *SQLite) ListOpenSessions(ctx context.Context) ([]models.SessionRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, started_at FROM sessions
		 WHERE closed_at IS NULL
		 ORDER BY started_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying open sessions: %w", err)
	}
	defer rows.Close()

	var result []models.SessionRow
	for rows.Next() {
		var (
			r       models.SessionRow
			id      string
			started int64
		)
		if err := rows.Scan(&id, &r.UserID, &started); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing session id %q: %w", id, err)
		}
		r.StartedAt = time.Unix(0, started).UTC()
		result = append(result, r)
	}
	return result, rows.Err()
}

// ResetSession restamps the session start and drops its recorded sets.
func (s *SQLite) ResetSession(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning reset of session %s: %w", id, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET started_at = ? WHERE id = ? AND closed_at IS NULL`,
		startedAt.UnixNano(), id.String())
	if err != nil {
		return fmt.Errorf("restamping session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM fatigue_sets WHERE session_id = ?`, id.String()); err != nil {
		return fmt.Errorf("deleting sets of session %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reset of session %s: %w", id, err)
	}
	return nil
}

// CloseSession marks a session closed. Closed sessions are not restored.
func (s *SQLite) CloseSession(ctx context.Context, id uuid.UUID, closedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET closed_at = ? WHERE id = ? AND closed_at IS NULL`,
		closedAt.UnixNano(), id.String())
	if err != nil {
		return fmt.Errorf("closing session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// InsertFatigueSet stores one recorded set.
func (s *SQLite) InsertFatigueSet(ctx context.Context, r models.FatigueSetRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fatigue_sets (session_id, recorded_at, muscle_group, difficulty,
		 intensity, volume, duration_sec, rest_sec, fatigue_increase, fatigue_level)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		r.SessionID.String(), r.RecordedAt.UnixNano(), r.MuscleGroup, r.Difficulty,
		r.Intensity, r.Volume, r.DurationSec, r.RestSec, r.Increase, r.FatigueLevel)
	if err != nil {
		return fmt.Errorf("inserting fatigue set: %w", err)
	}
	return nil
}

// QueryFatigueSets returns a session's sets in the order they were recorded.
func (s *SQLite) QueryFatigueSets(ctx context.Context, sessionID uuid.UUID) ([]models.FatigueSetRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT recorded_at, muscle_group, difficulty,
		 intensity, volume, duration_sec, rest_sec, fatigue_increase, fatigue_level
		 FROM fatigue_sets
		 WHERE session_id = ?
		 ORDER BY recorded_at ASC, id ASC`,
		sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("querying fatigue sets: %w", err)
	}
	defer rows.Close()

	var result []models.FatigueSetRow
	for rows.Next() {
		r := models.FatigueSetRow{SessionID: sessionID}
		var recorded int64
		if err := rows.Scan(&recorded, &r.MuscleGroup, &r.Difficulty,
			&r.Intensity, &r.Volume, &r.DurationSec, &r.RestSec, &r.Increase, &r.FatigueLevel); err != nil {
			return nil, fmt.Errorf("scanning fatigue set: %w", err)
		}
		r.RecordedAt = time.Unix(0, recorded).UTC()
		result = append(result, r)
	}
	return result, rows.Err()
}

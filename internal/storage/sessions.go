package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/fatiguetrack/internal/models"
)

// ErrSessionNotFound is returned when a session row does not exist or is closed.
var ErrSessionNotFound = errors.New("session not found")

// CreateSession inserts a new open session.
func (db *DB) CreateSession(ctx context.Context, row models.SessionRow) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, started_at) VALUES ($1, $2, $3)`,
		row.ID, row.UserID, row.StartedAt)
	if err != nil {
		return fmt.Errorf("inserting session %s: %w", row.ID, err)
	}
	return nil
}

// ListOpenSessions returns every session that has not been closed, oldest first.
func (db *DB) ListOpenSessions(ctx context.Context) ([]models.SessionRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, started_at, closed_at
		 FROM sessions
		 WHERE closed_at IS NULL
		 ORDER BY started_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying open sessions: %w", err)
	}
	defer rows.Close()

	var result []models.SessionRow
	for rows.Next() {
		var r models.SessionRow
		if err := rows.Scan(&r.ID, &r.UserID, &r.StartedAt, &r.ClosedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ResetSession restamps the session start and drops its recorded sets.
func (db *DB) ResetSession(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning reset of session %s: %w", id, err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE sessions SET started_at = $2 WHERE id = $1 AND closed_at IS NULL`,
		id, startedAt)
	if err != nil {
		return fmt.Errorf("restamping session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM fatigue_sets WHERE session_id = $1`, id); err != nil {
		return fmt.Errorf("deleting sets of session %s: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing reset of session %s: %w", id, err)
	}
	return nil
}

// CloseSession marks a session closed. Closed sessions are not restored.
func (db *DB) CloseSession(ctx context.Context, id uuid.UUID, closedAt time.Time) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE sessions SET closed_at = $2 WHERE id = $1 AND closed_at IS NULL`,
		id, closedAt)
	if err != nil {
		return fmt.Errorf("closing session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meltforce/fatiguetrack/internal/models"
)

// InsertFatigueSet stores one recorded set.
func (db *DB) InsertFatigueSet(ctx context.Context, r models.FatigueSetRow) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO fatigue_sets (session_id, recorded_at, muscle_group, difficulty,
		 intensity, volume, duration_sec, rest_sec, fatigue_increase, fatigue_level)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		r.SessionID, r.RecordedAt, r.MuscleGroup, r.Difficulty,
		r.Intensity, r.Volume, r.DurationSec, r.RestSec, r.Increase, r.FatigueLevel)
	if err != nil {
		return fmt.Errorf("inserting fatigue set: %w", err)
	}
	return nil
}

// QueryFatigueSets returns a session's sets in the order they were recorded.
func (db *DB) QueryFatigueSets(ctx context.Context, sessionID uuid.UUID) ([]models.FatigueSetRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT session_id, recorded_at, muscle_group, difficulty,
		 intensity, volume, duration_sec, rest_sec, fatigue_increase, fatigue_level
		 FROM fatigue_sets
		 WHERE session_id = $1
		 ORDER BY recorded_at ASC, id ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying fatigue sets: %w", err)
	}
	defer rows.Close()

	var result []models.FatigueSetRow
	for rows.Next() {
		var r models.FatigueSetRow
		if err := rows.Scan(&r.SessionID, &r.RecordedAt, &r.MuscleGroup, &r.Difficulty,
			&r.Intensity, &r.Volume, &r.DurationSec, &r.RestSec, &r.Increase, &r.FatigueLevel); err != nil {
			return nil, fmt.Errorf("scanning fatigue set: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

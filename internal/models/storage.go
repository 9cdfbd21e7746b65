package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionRow is a row of the sessions table.
type SessionRow struct {
	ID        uuid.UUID
	UserID    string
	StartedAt time.Time
	ClosedAt  *time.Time
}

// FatigueSetRow is a row for the fatigue_sets table. It keeps the full set
// input so a session can be rebuilt by replaying its rows in order.
type FatigueSetRow struct {
	SessionID    uuid.UUID
	RecordedAt   time.Time
	MuscleGroup  string
	Difficulty   string
	Intensity    float64
	Volume       float64
	DurationSec  float64
	RestSec      float64
	Increase     float64
	FatigueLevel float64
}

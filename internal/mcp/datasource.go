package mcp

import (
	"context"

	"github.com/google/uuid"
	"github.com/meltforce/fatiguetrack/internal/fatigue"
	"github.com/meltforce/fatiguetrack/internal/session"
)

// DataSource abstracts the session layer for MCP tools. Local (in-process
// manager) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	CreateSession(ctx context.Context, userID string) (session.Info, error)
	ListSessions(ctx context.Context, userID string) ([]session.Info, error)
	RecordSet(ctx context.Context, id uuid.UUID, in fatigue.SetInput) (fatigue.SetResult, error)
	Snapshot(ctx context.Context, id uuid.UUID) (session.Snapshot, error)
	Level(ctx context.Context, id uuid.UUID, muscle fatigue.MuscleGroup) (float64, error)
	ExerciseFatigue(ctx context.Context, id uuid.UUID, ex fatigue.Exercise) (fatigue.ExerciseFatigue, error)
	Recommendations(ctx context.Context, id uuid.UUID) (fatigue.Recommendations, error)
	ResetSession(ctx context.Context, id uuid.UUID) (session.Info, error)
	MuscleGroups(ctx context.Context) ([]fatigue.GroupRates, error)
}

// Local serves tools from an in-process session manager. Session
// operations act for the caller stored in ctx by WithUserID; other users'
// sessions are reported as not found.
type Local struct {
	m *session.Manager
}

// Compile-time check: Local satisfies DataSource.
var _ DataSource = (*Local)(nil)

// NewLocal wraps m.
func NewLocal(m *session.Manager) *Local {
	return &Local{m: m}
}

func (l *Local) CreateSession(ctx context.Context, userID string) (session.Info, error) {
	l.m.EvictIdle(ctx)
	return l.m.Create(ctx, userID)
}

func (l *Local) ListSessions(ctx context.Context, userID string) ([]session.Info, error) {
	l.m.EvictIdle(ctx)
	return l.m.List(userID), nil
}

func (l *Local) RecordSet(ctx context.Context, id uuid.UUID, in fatigue.SetInput) (fatigue.SetResult, error) {
	return l.m.RecordSet(ctx, UserIDFromContext(ctx), id, in)
}

func (l *Local) Snapshot(ctx context.Context, id uuid.UUID) (session.Snapshot, error) {
	return l.m.Snapshot(UserIDFromContext(ctx), id)
}

func (l *Local) Level(ctx context.Context, id uuid.UUID, muscle fatigue.MuscleGroup) (float64, error) {
	return l.m.Level(UserIDFromContext(ctx), id, muscle)
}

func (l *Local) ExerciseFatigue(ctx context.Context, id uuid.UUID, ex fatigue.Exercise) (fatigue.ExerciseFatigue, error) {
	return l.m.ExerciseFatigue(UserIDFromContext(ctx), id, ex)
}

func (l *Local) Recommendations(ctx context.Context, id uuid.UUID) (fatigue.Recommendations, error) {
	return l.m.Recommendations(UserIDFromContext(ctx), id)
}

func (l *Local) ResetSession(ctx context.Context, id uuid.UUID) (session.Info, error) {
	return l.m.Reset(ctx, UserIDFromContext(ctx), id)
}

func (l *Local) MuscleGroups(context.Context) ([]fatigue.GroupRates, error) {
	return l.m.Tables().Groups(), nil
}

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/meltforce/fatiguetrack/internal/models"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "fatiguetrack.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestSQLiteSessionLifecycle verifies create, list, reset and close against
// a real database file.
func TestSQLiteSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	start := time.Date(2026, 3, 1, 18, 0, 0, 123456789, time.UTC)
	a := models.SessionRow{ID: uuid.New(), UserID: "alice", StartedAt: start}
	b := models.SessionRow{ID: uuid.New(), UserID: "bob", StartedAt: start.Add(time.Hour)}
	for _, r := range []models.SessionRow{b, a} {
		if err := s.CreateSession(ctx, r); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
	}

	open, err := s.ListOpenSessions(ctx)
	if err != nil {
		t.Fatalf("ListOpenSessions: %v", err)
	}
	if diff := cmp.Diff([]models.SessionRow{a, b}, open); diff != "" {
		t.Errorf("open sessions mismatch (-want +got):\n%s", diff)
	}

	if err := s.CloseSession(ctx, a.ID, start.Add(2*time.Hour)); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if err := s.CloseSession(ctx, a.ID, start.Add(2*time.Hour)); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second CloseSession error = %v, want ErrSessionNotFound", err)
	}
	if err := s.ResetSession(ctx, a.ID, start); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ResetSession on closed session error = %v, want ErrSessionNotFound", err)
	}

	open, err = s.ListOpenSessions(ctx)
	if err != nil {
		t.Fatalf("ListOpenSessions: %v", err)
	}
	if len(open) != 1 || open[0].ID != b.ID {
		t.Errorf("open sessions after close = %v, want only %s", open, b.ID)
	}
}

// TestSQLiteFatigueSets verifies sets come back in recording order and that
// a reset drops them and restamps the session start.
func TestSQLiteFatigueSets(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	sess := models.SessionRow{ID: uuid.New(), UserID: "alice", StartedAt: start}
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	sets := []models.FatigueSetRow{
		{SessionID: sess.ID, RecordedAt: start.Add(2 * time.Minute), MuscleGroup: "Chest", Difficulty: "intermediate",
			Intensity: 0.8, Volume: 1600, DurationSec: 60, RestSec: 120, Increase: 17.28, FatigueLevel: 17.28},
		{SessionID: sess.ID, RecordedAt: start.Add(5 * time.Minute), MuscleGroup: "Triceps", Difficulty: "advanced",
			Intensity: 1, Volume: 500, DurationSec: 45, RestSec: 90, Increase: 6.4, FatigueLevel: 6.4},
		{SessionID: sess.ID, RecordedAt: start.Add(5 * time.Minute), MuscleGroup: "Chest", Difficulty: "intermediate",
			Intensity: 0.9, Volume: 1500, DurationSec: 60, RestSec: 180, Increase: 12, FatigueLevel: 25.1},
	}
	for _, r := range sets {
		if err := s.InsertFatigueSet(ctx, r); err != nil {
			t.Fatalf("InsertFatigueSet: %v", err)
		}
	}

	got, err := s.QueryFatigueSets(ctx, sess.ID)
	if err != nil {
		t.Fatalf("QueryFatigueSets: %v", err)
	}
	if diff := cmp.Diff(sets, got); diff != "" {
		t.Errorf("sets mismatch (-want +got):\n%s", diff)
	}

	restart := start.Add(time.Hour)
	if err := s.ResetSession(ctx, sess.ID, restart); err != nil {
		t.Fatalf("ResetSession: %v", err)
	}
	got, err = s.QueryFatigueSets(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("sets after reset = %d, want 0", len(got))
	}
	open, err := s.ListOpenSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 || !open[0].StartedAt.Equal(restart) {
		t.Errorf("started_at after reset = %v, want %v", open, restart)
	}
}

// TestSQLiteInsertUnknownSession verifies the foreign key rejects orphan sets.
func TestSQLiteInsertUnknownSession(t *testing.T) {
	s := openTestSQLite(t)
	err := s.InsertFatigueSet(context.Background(), models.FatigueSetRow{
		SessionID:   uuid.New(),
		RecordedAt:  time.Now(),
		MuscleGroup: "Chest",
	})
	if err == nil {
		t.Error("expected foreign key error for unknown session")
	}
}

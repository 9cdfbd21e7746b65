package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/fatiguetrack/internal/clock"
	"github.com/meltforce/fatiguetrack/internal/fatigue"
	"github.com/meltforce/fatiguetrack/internal/session"
)

func newTestHandlers(t *testing.T) (*handlers, *clock.Manual) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewManual(time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC))
	m := session.NewManager(nil, log, session.WithClock(clk))
	return &handlers{ds: NewLocal(m), log: log}, clk
}

type toolFunc func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func call(t *testing.T, ctx context.Context, fn toolFunc, args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := fn(ctx, req)
	if err != nil {
		t.Fatalf("tool returned protocol error: %v", err)
	}
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text, res.IsError
		}
	}
	t.Fatal("tool result has no text content")
	return "", false
}

func callJSON[T any](t *testing.T, ctx context.Context, fn toolFunc, args map[string]any) T {
	t.Helper()
	text, isErr := call(t, ctx, fn, args)
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	var v T
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		t.Fatalf("decode %q: %v", text, err)
	}
	return v
}

var benchArgs = map[string]any{
	"muscle_group":     "Chest",
	"intensity":        0.8,
	"volume":           1600.0,
	"duration_seconds": 60.0,
	"rest_seconds":     120.0,
}

// TestUserIDFromContextDefault verifies the default login when no value is
// set in the context.
func TestUserIDFromContextDefault(t *testing.T) {
	if id := UserIDFromContext(context.Background()); id != DefaultUserID {
		t.Errorf("UserIDFromContext(empty) = %q, want %q", id, DefaultUserID)
	}
}

// TestUserIDFromContextSet verifies the login is extracted from context
// after being set by WithUserID.
func TestUserIDFromContextSet(t *testing.T) {
	ctx := WithUserID(context.Background(), "alice@example.com")
	if id := UserIDFromContext(ctx); id != "alice@example.com" {
		t.Errorf("UserIDFromContext = %q, want %q", id, "alice@example.com")
	}
}

// TestNewRegistersTools verifies the server builds with the local source.
func TestNewRegistersTools(t *testing.T) {
	h, _ := newTestHandlers(t)
	if s := New(h.ds, "test", h.log); s == nil {
		t.Fatal("New returned nil")
	}
}

// TestToolFlow records sets through the tools and reads them back using the
// implicit most-recent session.
func TestToolFlow(t *testing.T) {
	h, clk := newTestHandlers(t)
	ctx := WithUserID(context.Background(), "alice")

	info := callJSON[session.Info](t, ctx, h.createSession, nil)
	if info.UserID != "alice" {
		t.Errorf("user = %q, want alice", info.UserID)
	}

	res := callJSON[fatigue.SetResult](t, ctx, h.recordSet, benchArgs)
	if d := res.FatigueLevel - 17.28; d > 1e-9 || d < -1e-9 {
		t.Errorf("fatigue = %v, want 17.28", res.FatigueLevel)
	}

	clk.Advance(5 * time.Minute)
	level := callJSON[map[string]any](t, ctx, h.getMuscleFatigue, map[string]any{
		"session_id":   info.ID.String(),
		"muscle_group": "Chest",
	})
	if got := level["fatigue_level"].(float64); got < 4.77 || got > 4.79 {
		t.Errorf("level = %v, want 4.78", got)
	}

	snap := callJSON[session.Snapshot](t, ctx, h.getFatigueLevels, nil)
	if snap.ID != info.ID || len(snap.Levels) != 1 || snap.DurationMinutes != 5 {
		t.Errorf("snapshot = %+v", snap)
	}

	rec := callJSON[fatigue.Recommendations](t, ctx, h.getRecommendations, nil)
	if rec.NextExerciseSuggestion != "Train Chest next (5% fatigue)" {
		t.Errorf("suggestion = %q", rec.NextExerciseSuggestion)
	}

	reset := callJSON[session.Info](t, ctx, h.resetSession, nil)
	if reset.SetsRecorded != 0 {
		t.Errorf("sets after reset = %d, want 0", reset.SetsRecorded)
	}

	list := callJSON[[]session.Info](t, ctx, h.listSessions, nil)
	if len(list) != 1 || list[0].ID != info.ID {
		t.Errorf("list = %+v", list)
	}
}

// TestRecordSetByExercise verifies an exercise name charges its primary muscle.
func TestRecordSetByExercise(t *testing.T) {
	h, _ := newTestHandlers(t)
	ctx := context.Background()
	callJSON[session.Info](t, ctx, h.createSession, nil)

	res := callJSON[fatigue.SetResult](t, ctx, h.recordSet, map[string]any{
		"exercise":         "OHP",
		"intensity":        0.7,
		"volume":           500.0,
		"duration_seconds": 40.0,
	})
	if res.MuscleGroup != fatigue.Shoulders {
		t.Errorf("muscle = %q, want Shoulders", res.MuscleGroup)
	}
}

// TestExerciseFatigueTool verifies catalog and explicit exercise scoring.
func TestExerciseFatigueTool(t *testing.T) {
	h, _ := newTestHandlers(t)
	ctx := context.Background()
	callJSON[session.Info](t, ctx, h.createSession, nil)
	callJSON[fatigue.SetResult](t, ctx, h.recordSet, benchArgs)

	got := callJSON[exerciseFatigueResult](t, ctx, h.getExerciseFatigue, map[string]any{"exercise": "Flat Bench"})
	if got.Name != "Bench Press" {
		t.Errorf("name = %q, want Bench Press", got.Name)
	}
	if d := got.Overall - 0.7*got.Primary; d > 1e-9 || d < -1e-9 {
		t.Errorf("overall = %v, want 0.7 x %v", got.Overall, got.Primary)
	}

	got = callJSON[exerciseFatigueResult](t, ctx, h.getExerciseFatigue, map[string]any{
		"muscle_group":   "Triceps",
		"target_muscles": "Triceps, Chest ,",
	})
	want := []fatigue.MuscleGroup{fatigue.Triceps, fatigue.Chest}
	if diff := cmp.Diff(want, got.TargetMuscles); diff != "" {
		t.Errorf("targets mismatch (-want +got):\n%s", diff)
	}
	if got.Primary != 0 || got.Secondary <= 0 {
		t.Errorf("explicit = %+v", got.ExerciseFatigue)
	}
}

// TestToolErrors verifies invalid input is reported as a tool error rather
// than a protocol error.
func TestToolErrors(t *testing.T) {
	h, _ := newTestHandlers(t)
	ctx := context.Background()

	tests := []struct {
		name string
		fn   toolFunc
		args map[string]any
		want string
	}{
		{"no session yet", h.getRecommendations, nil, "no open session"},
		{"bad session id", h.getFatigueLevels, map[string]any{"session_id": "nope"}, "invalid session_id"},
		{"unknown session", h.resetSession, map[string]any{"session_id": uuid.NewString()}, "session not found"},
		{"missing muscle", h.getMuscleFatigue, nil, "muscle_group parameter is required"},
		{"unknown exercise", h.getExerciseFatigue, map[string]any{"exercise": "Underwater Basket Weaving"}, "unknown exercise"},
		{"no exercise", h.getExerciseFatigue, nil, "exercise or muscle_group"},
		{"set without muscle", h.recordSet, map[string]any{"intensity": 0.5}, "muscle_group or exercise"},
		{"set without intensity", h.recordSet, map[string]any{"muscle_group": "Chest"}, "intensity parameter is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := call(t, ctx, tt.fn, tt.args)
			if !isErr {
				t.Fatalf("expected tool error, got %s", text)
			}
			if !strings.Contains(text, tt.want) {
				t.Errorf("error = %q, want it to contain %q", text, tt.want)
			}
		})
	}
}

// TestToolsRejectOtherUsersSession verifies an explicit session_id owned by
// another login is reported as not found and leaves the session untouched.
func TestToolsRejectOtherUsersSession(t *testing.T) {
	h, _ := newTestHandlers(t)
	alice := WithUserID(context.Background(), "alice@example.com")
	mallory := WithUserID(context.Background(), "mallory@example.com")

	info := callJSON[session.Info](t, alice, h.createSession, nil)
	callJSON[fatigue.SetResult](t, alice, h.recordSet, benchArgs)

	byID := map[string]any{"session_id": info.ID.String()}
	withSet := map[string]any{"session_id": info.ID.String()}
	for k, v := range benchArgs {
		withSet[k] = v
	}
	tests := []struct {
		name string
		fn   toolFunc
		args map[string]any
	}{
		{"record_set", h.recordSet, withSet},
		{"get_fatigue_levels", h.getFatigueLevels, byID},
		{"get_recommendations", h.getRecommendations, byID},
		{"reset_session", h.resetSession, byID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := call(t, mallory, tt.fn, tt.args)
			if !isErr || !strings.Contains(text, "session not found") {
				t.Errorf("result = %q (error %v), want session not found", text, isErr)
			}
		})
	}

	snap := callJSON[session.Snapshot](t, alice, h.getFatigueLevels, byID)
	if snap.SetsRecorded != 1 {
		t.Errorf("alice's sets = %d, want 1", snap.SetsRecorded)
	}
}

// TestMuscleGroupsResource verifies the vocabulary resource returns JSON.
func TestMuscleGroupsResource(t *testing.T) {
	h, _ := newTestHandlers(t)
	var req mcp.ReadResourceRequest
	req.Params.URI = resMuscleGroups.URI

	contents, err := h.muscleGroups(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text := contents[0].(mcp.TextResourceContents)
	if text.URI != "fatiguetrack://muscle_groups" {
		t.Errorf("uri = %q", text.URI)
	}
	var groups []fatigue.GroupRates
	if err := json.Unmarshal([]byte(text.Text), &groups); err != nil {
		t.Fatal(err)
	}
	if len(groups) != 20 {
		t.Errorf("groups = %d, want 20", len(groups))
	}
}

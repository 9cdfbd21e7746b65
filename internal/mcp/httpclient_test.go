package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/fatiguetrack/internal/clock"
	"github.com/meltforce/fatiguetrack/internal/fatigue"
	"github.com/meltforce/fatiguetrack/internal/server"
	"github.com/meltforce/fatiguetrack/internal/session"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths and headers.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// newAPIServer runs the real REST API over an in-memory manager.
func newAPIServer(t *testing.T) (*httptest.Server, *clock.Manual) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewManual(time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC))
	m := session.NewManager(nil, log, session.WithClock(clk))
	ts := httptest.NewServer(server.New(m, nil, "secret", log))
	t.Cleanup(ts.Close)
	return ts, clk
}

// TestHTTPClientAgainstAPI drives every DataSource method through the real
// REST API.
func TestHTTPClientAgainstAPI(t *testing.T) {
	ts, clk := newAPIServer(t)
	client := NewHTTPClient(ts.URL+"/", "secret")
	ctx := context.Background()

	info, err := client.CreateSession(ctx, "ignored")
	if err != nil {
		t.Fatal(err)
	}
	if info.UserID != "local" {
		t.Errorf("user = %q, want local", info.UserID)
	}

	res, err := client.RecordSet(ctx, info.ID, fatigue.SetInput{
		MuscleGroup:     fatigue.LowerBack,
		Intensity:       0.8,
		Volume:          1000,
		DurationSeconds: 60,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.MuscleGroup != fatigue.LowerBack || res.FatigueLevel <= 0 {
		t.Errorf("result = %+v", res)
	}

	clk.Advance(time.Minute)
	level, err := client.Level(ctx, info.ID, fatigue.LowerBack)
	if err != nil {
		t.Fatal(err)
	}
	if d := res.FatigueLevel - 2.0 - level; d > 1e-9 || d < -1e-9 {
		t.Errorf("level = %v, want %v", level, res.FatigueLevel-2.0)
	}

	ef, err := client.ExerciseFatigue(ctx, info.ID, fatigue.Exercise{
		MuscleGroup:   fatigue.LowerBack,
		TargetMuscles: []fatigue.MuscleGroup{fatigue.Hamstrings},
	})
	if err != nil {
		t.Fatal(err)
	}
	if d := ef.Overall - 0.7*level; d > 1e-9 || d < -1e-9 {
		t.Errorf("overall = %v, want %v", ef.Overall, 0.7*level)
	}

	snap, err := client.Snapshot(ctx, info.ID)
	if err != nil {
		t.Fatal(err)
	}
	if snap.SetsRecorded != 1 || len(snap.Levels) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}

	rec, err := client.Recommendations(ctx, info.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.IntensityAdjustment != fatigue.AdjustMaintain {
		t.Errorf("adjustment = %q, want maintain", rec.IntensityAdjustment)
	}

	sessions, err := client.ListSessions(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].ID != info.ID {
		t.Errorf("sessions = %+v", sessions)
	}

	reset, err := client.ResetSession(ctx, info.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reset.SetsRecorded != 0 {
		t.Errorf("sets after reset = %d, want 0", reset.SetsRecorded)
	}

	groups, err := client.MuscleGroups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 20 {
		t.Errorf("groups = %d, want 20", len(groups))
	}
}

// TestHTTPClientNotFound verifies a 404 maps to session.ErrNotFound so tools
// report it the same way in local and remote mode.
func TestHTTPClientNotFound(t *testing.T) {
	ts, _ := newAPIServer(t)
	client := NewHTTPClient(ts.URL, "secret")

	_, err := client.Recommendations(context.Background(), uuid.New())
	if !errors.Is(err, session.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// TestHTTPClientWrongKey verifies auth failures surface as errors.
func TestHTTPClientWrongKey(t *testing.T) {
	ts, _ := newAPIServer(t)
	client := NewHTTPClient(ts.URL, "wrong")

	if _, err := client.CreateSession(context.Background(), ""); err == nil {
		t.Error("expected error for wrong API key")
	}
}

// TestHTTPClientSendsKeyOnWrites verifies the API key is attached to writes
// only and that muscle names are path-escaped.
func TestHTTPClientSendsKeyOnWrites(t *testing.T) {
	id := uuid.New()
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions/" + id.String() + "/reset": func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("X-API-Key"); got != "k" {
				t.Errorf("X-API-Key = %q, want k", got)
			}
			writeTestJSON(t, w, session.Info{ID: id})
		},
		"/api/v1/sessions/" + id.String() + "/levels/Front Delts": func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("X-API-Key"); got != "" {
				t.Errorf("X-API-Key on read = %q, want empty", got)
			}
			writeTestJSON(t, w, map[string]any{"muscle_group": "Front Delts", "fatigue_level": 12.5})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL, "k")
	ctx := context.Background()

	if _, err := client.ResetSession(ctx, id); err != nil {
		t.Fatal(err)
	}
	level, err := client.Level(ctx, id, fatigue.FrontDelts)
	if err != nil {
		t.Fatal(err)
	}
	if level != 12.5 {
		t.Errorf("level = %v, want 12.5", level)
	}
}

// TestHTTPClientServerError verifies non-2xx responses carry the body.
func TestHTTPClientServerError(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/muscle-groups": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
	})
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL, "").MuscleGroups(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, session.ErrNotFound) {
		t.Errorf("500 reported as not found: %v", err)
	}
}

// Package session keeps one fatigue engine per workout session and persists
// the sets recorded into it so open sessions survive a restart.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/fatiguetrack/internal/fatigue"
	"github.com/meltforce/fatiguetrack/internal/models"
)

// ErrNotFound is returned for session IDs the manager does not hold, and for
// sessions owned by another user.
var ErrNotFound = errors.New("session not found")

// Store persists sessions and their sets. Both storage backends satisfy it.
type Store interface {
	CreateSession(ctx context.Context, row models.SessionRow) error
	ListOpenSessions(ctx context.Context) ([]models.SessionRow, error)
	ResetSession(ctx context.Context, id uuid.UUID, startedAt time.Time) error
	CloseSession(ctx context.Context, id uuid.UUID, closedAt time.Time) error
	InsertFatigueSet(ctx context.Context, row models.FatigueSetRow) error
	QueryFatigueSets(ctx context.Context, sessionID uuid.UUID) ([]models.FatigueSetRow, error)
}

// Observer is notified of session activity. The HTTP metrics implement it.
type Observer interface {
	SetRecorded(muscle fatigue.MuscleGroup)
	SessionsActive(n int)
}

// Info describes a session without its fatigue state.
type Info struct {
	ID              uuid.UUID `json:"id"`
	UserID          string    `json:"user_id"`
	StartedAt       time.Time `json:"started_at"`
	LastActive      time.Time `json:"last_active"`
	DurationMinutes float64   `json:"duration_minutes"`
	SetsRecorded    int       `json:"sets_recorded"`
	MusclesTrained  int       `json:"muscles_trained"`
}

// Snapshot bundles everything a client needs to render a session.
type Snapshot struct {
	Info
	Levels          []fatigue.MuscleFatigueState `json:"levels"`
	Recommendations fatigue.Recommendations      `json:"recommendations"`
}

type entry struct {
	mu         sync.Mutex
	id         uuid.UUID
	userID     string
	clock      *entryClock
	engine     *fatigue.Engine
	lastActive time.Time
	sets       int
}

func (e *entry) info() Info {
	return Info{
		ID:              e.id,
		UserID:          e.userID,
		StartedAt:       e.engine.SessionStart(),
		LastActive:      e.lastActive,
		DurationMinutes: e.engine.SessionDurationMinutes(),
		SetsRecorded:    e.sets,
		MusclesTrained:  len(e.engine.AllLevels()),
	}
}

// Manager owns the live sessions. It is safe for concurrent use; each
// session's engine is guarded by its own mutex.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*entry

	store       Store
	clock       fatigue.Clock
	tables      fatigue.Tables
	idleTimeout time.Duration
	observer    Observer
	log         *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source shared by all session engines.
func WithClock(c fatigue.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithTables sets the rate tables new engines are built with.
func WithTables(t fatigue.Tables) Option {
	return func(m *Manager) { m.tables = t }
}

// WithIdleTimeout sets how long a session may go without activity before
// EvictIdle closes it. Zero disables eviction.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) { m.idleTimeout = d }
}

// WithObserver registers an activity observer.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// NewManager creates a manager. A nil store keeps sessions in memory only.
func NewManager(store Store, log *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[uuid.UUID]*entry),
		store:    store,
		clock:    fatigue.SystemClock,
		tables:   fatigue.DefaultTables(),
		log:      log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Tables returns the rate tables sessions are scored with.
func (m *Manager) Tables() fatigue.Tables {
	return m.tables
}

// newEntry builds a session whose engine starts at start.
func (m *Manager) newEntry(id uuid.UUID, userID string, start time.Time) *entry {
	e := &entry{
		id:         id,
		userID:     userID,
		clock:      &entryClock{live: m.clock},
		lastActive: start,
	}
	e.clock.at(start, func() {
		e.engine = fatigue.New(fatigue.WithClock(e.clock), fatigue.WithTables(m.tables))
	})
	return e
}

// Create starts a new session for userID.
func (m *Manager) Create(ctx context.Context, userID string) (Info, error) {
	start := m.clock.Now()
	e := m.newEntry(uuid.New(), userID, start)

	if m.store != nil {
		row := models.SessionRow{ID: e.id, UserID: userID, StartedAt: start}
		if err := m.store.CreateSession(ctx, row); err != nil {
			return Info{}, fmt.Errorf("creating session: %w", err)
		}
	}

	m.mu.Lock()
	m.sessions[e.id] = e
	n := len(m.sessions)
	m.mu.Unlock()

	m.notifyActive(n)
	m.log.Info("session created", "session", e.id, "user", userID)
	return e.info(), nil
}

// lookup returns the session if userID owns it.
func (m *Manager) lookup(userID string, id uuid.UUID) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok || e.userID != userID {
		return nil, ErrNotFound
	}
	return e, nil
}

// with runs fn on userID's session while holding its lock.
func (m *Manager) with(userID string, id uuid.UUID, fn func(e *entry) error) error {
	e, err := m.lookup(userID, id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e)
}

// Get returns the session's info.
func (m *Manager) Get(userID string, id uuid.UUID) (Info, error) {
	var info Info
	err := m.with(userID, id, func(e *entry) error {
		info = e.info()
		return nil
	})
	return info, err
}

// List returns the sessions of userID, or of everyone when userID is empty,
// oldest first.
func (m *Manager) List(userID string) []Info {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		if userID == "" || e.userID == userID {
			entries = append(entries, e)
		}
	}
	m.mu.RUnlock()

	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.info())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// RecordSet applies a set to the session. The in-memory engine is the source
// of truth; a failed write to the store is logged and does not fail the call,
// so clients never retry a set that was already counted.
func (m *Manager) RecordSet(ctx context.Context, userID string, id uuid.UUID, in fatigue.SetInput) (fatigue.SetResult, error) {
	var res fatigue.SetResult
	err := m.with(userID, id, func(e *entry) error {
		now := m.clock.Now()
		e.clock.at(now, func() { res = e.engine.RecordSet(in) })
		e.sets++
		if now.After(e.lastActive) {
			e.lastActive = now
		}

		if m.store != nil {
			row := models.FatigueSetRow{
				SessionID:    id,
				RecordedAt:   now,
				MuscleGroup:  string(in.MuscleGroup),
				Difficulty:   string(in.Difficulty),
				Intensity:    in.Intensity,
				Volume:       in.Volume,
				DurationSec:  in.DurationSeconds,
				RestSec:      in.RestSecondsSincePrevious,
				Increase:     res.Increase,
				FatigueLevel: res.FatigueLevel,
			}
			if err := m.store.InsertFatigueSet(ctx, row); err != nil {
				m.log.Error("persisting set failed", "session", id, "muscle", in.MuscleGroup, "error", err)
			}
		}
		return nil
	})
	if err != nil {
		return fatigue.SetResult{}, err
	}

	if m.observer != nil {
		m.observer.SetRecorded(in.MuscleGroup)
	}
	m.log.Debug("set recorded", "session", id, "muscle", res.MuscleGroup,
		"increase", res.Increase, "fatigue", res.FatigueLevel)
	return res, nil
}

// Levels returns every trained muscle of the session with its current level.
func (m *Manager) Levels(userID string, id uuid.UUID) ([]fatigue.MuscleFatigueState, error) {
	var levels []fatigue.MuscleFatigueState
	err := m.with(userID, id, func(e *entry) error {
		levels = e.engine.AllLevels()
		return nil
	})
	return levels, err
}

// Level returns one muscle's current level, 0 if it was never trained.
func (m *Manager) Level(userID string, id uuid.UUID, muscle fatigue.MuscleGroup) (float64, error) {
	var level float64
	err := m.with(userID, id, func(e *entry) error {
		level = e.engine.CurrentLevel(muscle)
		return nil
	})
	return level, err
}

// ExerciseFatigue scores an exercise against the session's current levels.
func (m *Manager) ExerciseFatigue(userID string, id uuid.UUID, ex fatigue.Exercise) (fatigue.ExerciseFatigue, error) {
	var ef fatigue.ExerciseFatigue
	err := m.with(userID, id, func(e *entry) error {
		ef = e.engine.ExerciseFatigue(ex)
		return nil
	})
	return ef, err
}

// Recommendations returns the session's current recommendations.
func (m *Manager) Recommendations(userID string, id uuid.UUID) (fatigue.Recommendations, error) {
	var rec fatigue.Recommendations
	err := m.with(userID, id, func(e *entry) error {
		rec = e.engine.Recommendations()
		return nil
	})
	return rec, err
}

// Duration returns the minutes since the session started.
func (m *Manager) Duration(userID string, id uuid.UUID) (float64, error) {
	var d float64
	err := m.with(userID, id, func(e *entry) error {
		d = e.engine.SessionDurationMinutes()
		return nil
	})
	return d, err
}

// Snapshot returns info, levels and recommendations read at one instant.
func (m *Manager) Snapshot(userID string, id uuid.UUID) (Snapshot, error) {
	var snap Snapshot
	err := m.with(userID, id, func(e *entry) error {
		snap = Snapshot{
			Info:            e.info(),
			Levels:          e.engine.AllLevels(),
			Recommendations: e.engine.Recommendations(),
		}
		return nil
	})
	return snap, err
}

// Reset clears the session's fatigue state and restarts its clock. The
// store is reset first; if that fails the session is left untouched.
func (m *Manager) Reset(ctx context.Context, userID string, id uuid.UUID) (Info, error) {
	var info Info
	err := m.with(userID, id, func(e *entry) error {
		start := m.clock.Now()
		if m.store != nil {
			if err := m.store.ResetSession(ctx, id, start); err != nil {
				return fmt.Errorf("resetting session %s: %w", id, err)
			}
		}
		e.clock.at(start, e.engine.Reset)
		e.sets = 0
		e.lastActive = start
		info = e.info()
		return nil
	})
	if err == nil {
		m.log.Info("session reset", "session", id)
	}
	return info, err
}

// Close ends the session and forgets it.
func (m *Manager) Close(ctx context.Context, userID string, id uuid.UUID) error {
	if _, err := m.lookup(userID, id); err != nil {
		return err
	}
	if m.store != nil {
		if err := m.store.CloseSession(ctx, id, m.clock.Now()); err != nil {
			return fmt.Errorf("closing session %s: %w", id, err)
		}
	}

	m.mu.Lock()
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	m.notifyActive(n)
	m.log.Info("session closed", "session", id)
	return nil
}

// EvictIdle closes every session idle for longer than the idle timeout and
// returns how many were closed. Store failures are logged; the session is
// dropped from memory regardless.
func (m *Manager) EvictIdle(ctx context.Context) int {
	if m.idleTimeout <= 0 {
		return 0
	}
	now := m.clock.Now()

	m.mu.Lock()
	var idle []uuid.UUID
	for id, e := range m.sessions {
		e.mu.Lock()
		if now.Sub(e.lastActive) > m.idleTimeout {
			idle = append(idle, id)
			delete(m.sessions, id)
		}
		e.mu.Unlock()
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if len(idle) == 0 {
		return 0
	}
	for _, id := range idle {
		if m.store != nil {
			if err := m.store.CloseSession(ctx, id, now); err != nil {
				m.log.Warn("closing idle session failed", "session", id, "error", err)
			}
		}
		m.log.Info("idle session evicted", "session", id)
	}
	m.notifyActive(n)
	return len(idle)
}

// Restore rebuilds every open session in the store by replaying its sets at
// their recorded times. It returns the number of sessions restored.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	if m.store == nil {
		return 0, nil
	}
	rows, err := m.store.ListOpenSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing open sessions: %w", err)
	}

	restored := make([]*entry, 0, len(rows))
	for _, row := range rows {
		sets, err := m.store.QueryFatigueSets(ctx, row.ID)
		if err != nil {
			return 0, fmt.Errorf("loading sets of session %s: %w", row.ID, err)
		}
		restored = append(restored, m.replay(row, sets))
	}

	m.mu.Lock()
	for _, e := range restored {
		m.sessions[e.id] = e
	}
	n := len(m.sessions)
	m.mu.Unlock()

	m.notifyActive(n)
	m.log.Info("sessions restored", "count", len(restored))
	return len(restored), nil
}

// replay rebuilds a session by recording its stored sets at their
// recorded times.
func (m *Manager) replay(row models.SessionRow, sets []models.FatigueSetRow) *entry {
	e := m.newEntry(row.ID, row.UserID, row.StartedAt)
	for _, s := range sets {
		in := fatigue.SetInput{
			MuscleGroup:              fatigue.MuscleGroup(s.MuscleGroup),
			Difficulty:               fatigue.Difficulty(s.Difficulty),
			Intensity:                s.Intensity,
			Volume:                   s.Volume,
			DurationSeconds:          s.DurationSec,
			RestSecondsSincePrevious: s.RestSec,
		}
		e.clock.at(s.RecordedAt, func() { e.engine.RecordSet(in) })
		e.sets++
		if s.RecordedAt.After(e.lastActive) {
			e.lastActive = s.RecordedAt
		}
	}
	return e
}

func (m *Manager) notifyActive(n int) {
	if m.observer != nil {
		m.observer.SessionsActive(n)
	}
}

// entryClock is a session engine's time source. While pinned it reports
// the pinned instant, so a mutation and the row persisted for it carry the
// same time; otherwise it follows the live clock.
type entryClock struct {
	mu     sync.Mutex
	live   fatigue.Clock
	pinned time.Time
}

func (c *entryClock) Now() time.Time {
	c.mu.Lock()
	pinned := c.pinned
	c.mu.Unlock()
	if !pinned.IsZero() {
		return pinned
	}
	return c.live.Now()
}

// at runs fn with the clock pinned to t.
func (c *entryClock) at(t time.Time, fn func()) {
	c.mu.Lock()
	c.pinned = t
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.pinned = time.Time{}
		c.mu.Unlock()
	}()
	fn()
}

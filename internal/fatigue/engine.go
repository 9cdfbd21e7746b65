// Package fatigue models per-muscle fatigue within a workout session.
//
// Fatigue rises when a set is recorded and recovers linearly over wall-clock
// time. Recovery is never ticked: every read or write computes it from the
// time elapsed since the state was last touched, using the injected Clock.
// An Engine is not safe for concurrent use; owners serialize access.
package fatigue

import (
	"fmt"
	"math"
	"time"
)

const (
	maxFatigue     = 100.0
	maxSetIncrease = 50.0

	restThreshold     = 70.0
	moderateThreshold = 40.0
	freshThreshold    = 30.0

	// Rest at or beyond this many seconds earns the full rest discount.
	fullRestSeconds = 300.0
	minRestFactor   = 0.5

	maxVolumeFactor   = 2.0
	maxDurationFactor = 1.5
	intensityScale    = 1.5

	primaryWeight   = 0.7
	secondaryWeight = 0.3
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// MuscleFatigueState is the stored state of one muscle group.
type MuscleFatigueState struct {
	MuscleGroup           MuscleGroup `json:"muscle_group"`
	FatigueLevel          float64     `json:"fatigue_level"`
	LastUpdateTime        time.Time   `json:"last_update_time"`
	TotalVolume           float64     `json:"total_volume"`
	ExerciseCount         int         `json:"exercise_count"`
	RecoveryRatePerMinute float64     `json:"recovery_rate_per_minute"`
}

// SetInput describes one completed set.
type SetInput struct {
	MuscleGroup              MuscleGroup `json:"muscle_group"`
	Difficulty               Difficulty  `json:"difficulty"`
	Intensity                float64     `json:"intensity"`
	Volume                   float64     `json:"volume"`
	DurationSeconds          float64     `json:"duration_seconds"`
	RestSecondsSincePrevious float64     `json:"rest_seconds_since_previous"`
}

// SetResult reports what a recorded set contributed.
type SetResult struct {
	MuscleGroup  MuscleGroup `json:"muscle_group"`
	Increase     float64     `json:"increase"`
	FatigueLevel float64     `json:"fatigue_level"`
}

// Exercise names the primary mover and optional synergists.
type Exercise struct {
	MuscleGroup   MuscleGroup   `json:"muscle_group"`
	TargetMuscles []MuscleGroup `json:"target_muscles,omitempty"`
}

// ExerciseFatigue is the weighted fatigue of an exercise's muscles.
type ExerciseFatigue struct {
	Primary   float64 `json:"primary"`
	Secondary float64 `json:"secondary"`
	Overall   float64 `json:"overall"`
}

// IntensityAdjustment is the suggested change in training intensity.
type IntensityAdjustment string

const (
	AdjustReduce   IntensityAdjustment = "reduce"
	AdjustModerate IntensityAdjustment = "moderate"
	AdjustMaintain IntensityAdjustment = "maintain"
)

// NoFreshMuscleSuggestion is returned when no trained muscle is below the
// fresh threshold.
const NoFreshMuscleSuggestion = "All trained muscle groups are fatigued. Try a different muscle group or rest longer."

// Recommendations are derived from the current fatigue levels.
type Recommendations struct {
	RestNeeded             []string            `json:"rest_needed"`
	IntensityAdjustment    IntensityAdjustment `json:"intensity_adjustment"`
	NextExerciseSuggestion string              `json:"next_exercise_suggestion"`
}

// Engine tracks fatigue for a single session.
type Engine struct {
	clock        Clock
	tables       Tables
	states       map[MuscleGroup]*MuscleFatigueState
	order        []MuscleGroup
	sessionStart time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithTables replaces the built-in rate tables.
func WithTables(t Tables) Option {
	return func(e *Engine) { e.tables = t }
}

// New creates an empty engine whose session starts now.
func New(opts ...Option) *Engine {
	e := &Engine{
		clock:  SystemClock,
		tables: DefaultTables(),
		states: make(map[MuscleGroup]*MuscleFatigueState),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sessionStart = e.clock.Now()
	return e
}

// Tables returns the rate tables the engine was built with.
func (e *Engine) Tables() Tables {
	return e.tables
}

// RecordSet decays the muscle's fatigue up to now and adds the set's cost.
func (e *Engine) RecordSet(in SetInput) SetResult {
	now := e.clock.Now()
	s := e.stateFor(in.MuscleGroup, now)

	inc := e.tables.SetIncrease(in)
	s.FatigueLevel = clamp(decayed(s, now) + inc)
	s.LastUpdateTime = now
	s.ExerciseCount++
	s.TotalVolume += nonNegative(in.Volume)

	return SetResult{MuscleGroup: in.MuscleGroup, Increase: inc, FatigueLevel: s.FatigueLevel}
}

// stateFor returns the state for g, inserting a fresh one stamped at now.
func (e *Engine) stateFor(g MuscleGroup, now time.Time) *MuscleFatigueState {
	if s, ok := e.states[g]; ok {
		return s
	}
	s := &MuscleFatigueState{
		MuscleGroup:           g,
		LastUpdateTime:        now,
		RecoveryRatePerMinute: e.tables.RecoveryRate(g),
	}
	e.states[g] = s
	e.order = append(e.order, g)
	return s
}

// CurrentLevel returns g's fatigue as of now, or 0 if g was never trained.
func (e *Engine) CurrentLevel(g MuscleGroup) float64 {
	s, ok := e.states[g]
	if !ok {
		return 0
	}
	return decayed(s, e.clock.Now())
}

// AllLevels returns every trained muscle in first-recorded order with its
// fatigue projected to now. Stored state is not modified.
func (e *Engine) AllLevels() []MuscleFatigueState {
	now := e.clock.Now()
	out := make([]MuscleFatigueState, 0, len(e.order))
	for _, g := range e.order {
		s := *e.states[g]
		s.FatigueLevel = decayed(e.states[g], now)
		out = append(out, s)
	}
	return out
}

// ExerciseFatigue weights the primary mover at 70% and the mean of the other
// target muscles at 30%.
func (e *Engine) ExerciseFatigue(ex Exercise) ExerciseFatigue {
	primary := e.CurrentLevel(ex.MuscleGroup)

	var sum float64
	var n int
	for _, m := range ex.TargetMuscles {
		if m == ex.MuscleGroup {
			continue
		}
		sum += e.CurrentLevel(m)
		n++
	}
	var secondary float64
	if n > 0 {
		secondary = sum / float64(n)
	}

	return ExerciseFatigue{
		Primary:   primary,
		Secondary: secondary,
		Overall:   primaryWeight*primary + secondaryWeight*secondary,
	}
}

// Recommendations evaluates the current levels of all trained muscles.
func (e *Engine) Recommendations() Recommendations {
	levels := e.AllLevels()

	rec := Recommendations{
		RestNeeded:          []string{},
		IntensityAdjustment: AdjustMaintain,
	}

	var anyModerate bool
	var freshest *MuscleFatigueState
	for i := range levels {
		l := &levels[i]
		switch {
		case l.FatigueLevel > restThreshold:
			rec.RestNeeded = append(rec.RestNeeded, fmt.Sprintf("%s (%d%% fatigue)", l.MuscleGroup, roundPct(l.FatigueLevel)))
		case l.FatigueLevel > moderateThreshold:
			anyModerate = true
		}
		if l.FatigueLevel < freshThreshold && (freshest == nil || l.FatigueLevel < freshest.FatigueLevel) {
			freshest = l
		}
	}

	switch {
	case len(rec.RestNeeded) > 0:
		rec.IntensityAdjustment = AdjustReduce
	case anyModerate:
		rec.IntensityAdjustment = AdjustModerate
	}

	if freshest != nil {
		rec.NextExerciseSuggestion = fmt.Sprintf("Train %s next (%d%% fatigue)", freshest.MuscleGroup, roundPct(freshest.FatigueLevel))
	} else {
		rec.NextExerciseSuggestion = NoFreshMuscleSuggestion
	}
	return rec
}

// Reset clears all muscle state and starts a new session now.
func (e *Engine) Reset() {
	e.states = make(map[MuscleGroup]*MuscleFatigueState)
	e.order = nil
	e.sessionStart = e.clock.Now()
}

// SessionStart returns when the current session began.
func (e *Engine) SessionStart() time.Time {
	return e.sessionStart
}

// SessionDurationMinutes returns the minutes elapsed since the session began.
func (e *Engine) SessionDurationMinutes() float64 {
	d := e.clock.Now().Sub(e.sessionStart).Minutes()
	if d < 0 {
		return 0
	}
	return d
}

// SetIncrease scores a single set. It depends only on in and the tables.
func (t Tables) SetIncrease(in SetInput) float64 {
	volume := nonNegative(in.Volume)
	duration := nonNegative(in.DurationSeconds)
	rest := nonNegative(in.RestSecondsSincePrevious)
	intensity := math.Min(nonNegative(in.Intensity), 1)

	volumeFactor := math.Min(volume/1000, maxVolumeFactor)
	intensityFactor := intensity * intensityScale
	durationFactor := math.Min(duration/60, maxDurationFactor)
	restFactor := math.Max(1-rest/fullRestSeconds, minRestFactor)

	raw := t.BaseFatigue(in.MuscleGroup) * t.Multiplier(in.Difficulty) *
		volumeFactor * intensityFactor * durationFactor * restFactor
	return math.Min(raw, maxSetIncrease)
}

// decayed projects s to now without modifying it. A clock that moved
// backwards yields no recovery.
func decayed(s *MuscleFatigueState, now time.Time) float64 {
	elapsed := now.Sub(s.LastUpdateTime).Minutes()
	if elapsed <= 0 {
		return clamp(s.FatigueLevel)
	}
	return clamp(s.FatigueLevel - elapsed*s.RecoveryRatePerMinute)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > maxFatigue {
		return maxFatigue
	}
	return v
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

func roundPct(v float64) int {
	return int(math.Round(v))
}

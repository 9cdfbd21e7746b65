// Package replay feeds logged workouts through the fatigue engine to show
// how fatigue built up over a past session.
package replay

import (
	"log/slog"
	"math"
	"time"

	"github.com/meltforce/fatiguetrack/internal/catalog"
	"github.com/meltforce/fatiguetrack/internal/clock"
	"github.com/meltforce/fatiguetrack/internal/fatigue"
	"github.com/meltforce/fatiguetrack/internal/ingest/alpha"
)

const (
	secondsPerRep = 3.0

	// Used when the export carries no session duration.
	defaultSetSpacing = 3 * time.Minute

	untrackedIntensity = 0.8
	minIntensity       = 0.5
)

// PlannedSet is one working set placed on the session timeline.
type PlannedSet struct {
	At       time.Time
	Exercise string
	Input    fatigue.SetInput
}

// Plan is a session converted into timed engine inputs.
type Plan struct {
	Session  string
	Start    time.Time
	End      time.Time
	Sets     []PlannedSet
	Unmapped []string
}

// SessionPlan spreads the session's working sets evenly over its duration,
// the last set landing at the end. Exercises the catalog does not know are
// listed in Unmapped and contribute no sets.
func SessionPlan(s alpha.Session) Plan {
	type pending struct {
		exercise string
		muscle   fatigue.MuscleGroup
		set      alpha.Set
	}

	p := Plan{Session: s.Name, Start: s.Date}
	var queue []pending
	seen := make(map[string]bool)
	for _, ex := range s.Exercises {
		entry, ok := catalog.Lookup(ex.Name)
		if !ok {
			if !seen[ex.Name] {
				p.Unmapped = append(p.Unmapped, ex.Name)
				seen[ex.Name] = true
			}
			continue
		}
		for _, set := range ex.WorkingSets() {
			queue = append(queue, pending{exercise: entry.Name, muscle: entry.Primary, set: set})
		}
	}

	spacing := defaultSetSpacing
	if s.Duration > 0 && len(queue) > 0 {
		spacing = s.Duration / time.Duration(len(queue))
	}
	p.End = s.Date.Add(spacing * time.Duration(len(queue)))
	if s.Duration > 0 {
		p.End = s.Date.Add(s.Duration)
	}

	for i, q := range queue {
		rest := spacing.Seconds()
		if i == 0 {
			rest = 0
		}
		p.Sets = append(p.Sets, PlannedSet{
			At:       s.Date.Add(spacing * time.Duration(i+1)),
			Exercise: q.exercise,
			Input: fatigue.SetInput{
				MuscleGroup:              q.muscle,
				Difficulty:               fatigue.Intermediate,
				Intensity:                IntensityFromRIR(q.set.RIR),
				Volume:                   q.set.WeightKg * float64(q.set.Reps),
				DurationSeconds:          secondsPerRep * float64(q.set.Reps),
				RestSecondsSincePrevious: rest,
			},
		})
	}
	return p
}

// IntensityFromRIR maps reps in reserve to relative intensity: a set taken
// to failure is 1.0 and each rep left in reserve costs 0.1, down to 0.5.
// Untracked RIR counts as 0.8.
func IntensityFromRIR(rir float64) float64 {
	if rir < 0 || math.IsNaN(rir) {
		return untrackedIntensity
	}
	return math.Max(minIntensity, math.Min(1, 1-rir/10))
}

// SetOutcome is the engine's result for one planned set.
type SetOutcome struct {
	At       time.Time         `json:"at"`
	Exercise string            `json:"exercise"`
	Result   fatigue.SetResult `json:"result"`
}

// Report is the outcome of replaying one session.
type Report struct {
	Session         string                          `json:"session"`
	Start           time.Time                       `json:"start"`
	End             time.Time                       `json:"end"`
	Sets            []SetOutcome                    `json:"sets"`
	Unmapped        []string                        `json:"unmapped,omitempty"`
	Peak            map[fatigue.MuscleGroup]float64 `json:"peak"`
	Levels          []fatigue.MuscleFatigueState    `json:"levels"`
	Recommendations fatigue.Recommendations         `json:"recommendations"`
}

// Replayer runs plans through fresh engines on a manual clock.
type Replayer struct {
	tables fatigue.Tables
	log    *slog.Logger
}

// New creates a Replayer scoring with tables.
func New(tables fatigue.Tables, log *slog.Logger) *Replayer {
	return &Replayer{tables: tables, log: log}
}

// Run replays one session and reports the levels at its end.
func (r *Replayer) Run(s alpha.Session) Report {
	plan := SessionPlan(s)
	clk := clock.NewManual(plan.Start)
	engine := fatigue.New(fatigue.WithClock(clk), fatigue.WithTables(r.tables))

	rep := Report{
		Session:  plan.Session,
		Start:    plan.Start,
		End:      plan.End,
		Unmapped: plan.Unmapped,
		Peak:     make(map[fatigue.MuscleGroup]float64),
	}
	for _, ps := range plan.Sets {
		clk.Set(ps.At)
		res := engine.RecordSet(ps.Input)
		rep.Sets = append(rep.Sets, SetOutcome{At: ps.At, Exercise: ps.Exercise, Result: res})
		if res.FatigueLevel > rep.Peak[res.MuscleGroup] {
			rep.Peak[res.MuscleGroup] = res.FatigueLevel
		}
	}
	clk.Set(plan.End)
	rep.Levels = engine.AllLevels()
	rep.Recommendations = engine.Recommendations()

	for _, name := range plan.Unmapped {
		r.log.Warn("exercise not in catalog, skipped", "session", s.Name, "exercise", name)
	}
	r.log.Debug("session replayed", "session", s.Name, "sets", len(rep.Sets))
	return rep
}

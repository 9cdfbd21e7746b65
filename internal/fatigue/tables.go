package fatigue

import "sort"

// MuscleGroup identifies a tracked muscle group. Keys are case-sensitive.
type MuscleGroup string

const (
	Chest      MuscleGroup = "Chest"
	Back       MuscleGroup = "Back"
	Lats       MuscleGroup = "Lats"
	Traps      MuscleGroup = "Traps"
	LowerBack  MuscleGroup = "Lower Back"
	Shoulders  MuscleGroup = "Shoulders"
	FrontDelts MuscleGroup = "Front Delts"
	RearDelts  MuscleGroup = "Rear Delts"
	Biceps     MuscleGroup = "Biceps"
	Triceps    MuscleGroup = "Triceps"
	Forearms   MuscleGroup = "Forearms"
	Abs        MuscleGroup = "Abs"
	Obliques   MuscleGroup = "Obliques"
	Core       MuscleGroup = "Core"
	Legs       MuscleGroup = "Legs"
	Quadriceps MuscleGroup = "Quadriceps"
	Hamstrings MuscleGroup = "Hamstrings"
	Glutes     MuscleGroup = "Glutes"
	Calves     MuscleGroup = "Calves"
	FullBody   MuscleGroup = "Full Body"
)

// Difficulty is the trainee level a set was performed at.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

const (
	DefaultBaseFatigue  = 10.0
	DefaultRecoveryRate = 2.0
)

// Tables holds the per-muscle constants the engine scores sets with.
// Lookups for keys outside the maps fall back to the defaults.
type Tables struct {
	Base              map[MuscleGroup]float64
	Recovery          map[MuscleGroup]float64
	Difficulty        map[Difficulty]float64
	DefaultBase       float64
	DefaultRecovery   float64
	DefaultMultiplier float64
}

// MuscleGroups returns the built-in vocabulary in display order.
func MuscleGroups() []MuscleGroup {
	return []MuscleGroup{
		Chest, Back, Lats, Traps, LowerBack,
		Shoulders, FrontDelts, RearDelts,
		Biceps, Triceps, Forearms,
		Abs, Obliques, Core,
		Legs, Quadriceps, Hamstrings, Glutes, Calves,
		FullBody,
	}
}

// DefaultTables returns the built-in rate tables.
func DefaultTables() Tables {
	return Tables{
		Base: map[MuscleGroup]float64{
			Chest: 15, Back: 15, Lats: 14, Traps: 10, LowerBack: 12,
			Shoulders: 12, FrontDelts: 10, RearDelts: 8,
			Biceps: 10, Triceps: 10, Forearms: 8,
			Abs: 8, Obliques: 8, Core: 8,
			Legs: 20, Quadriceps: 18, Hamstrings: 16, Glutes: 16, Calves: 8,
			FullBody: 20,
		},
		Recovery: map[MuscleGroup]float64{
			Chest: 2.5, Back: 2.5, Lats: 2.5, Traps: 3.0, LowerBack: 2.0,
			Shoulders: 3.0, FrontDelts: 3.0, RearDelts: 3.5,
			Biceps: 3.5, Triceps: 3.5, Forearms: 4.0,
			Abs: 4.0, Obliques: 4.0, Core: 4.0,
			Legs: 1.8, Quadriceps: 2.0, Hamstrings: 2.0, Glutes: 2.2, Calves: 4.0,
			FullBody: 1.5,
		},
		Difficulty: map[Difficulty]float64{
			Beginner:     0.8,
			Intermediate: 1.0,
			Advanced:     1.3,
		},
		DefaultBase:       DefaultBaseFatigue,
		DefaultRecovery:   DefaultRecoveryRate,
		DefaultMultiplier: 1.0,
	}
}

// BaseFatigue returns the per-set base fatigue for g.
func (t Tables) BaseFatigue(g MuscleGroup) float64 {
	if v, ok := t.Base[g]; ok {
		return v
	}
	return t.DefaultBase
}

// RecoveryRate returns the per-minute recovery for g.
func (t Tables) RecoveryRate(g MuscleGroup) float64 {
	if v, ok := t.Recovery[g]; ok {
		return v
	}
	return t.DefaultRecovery
}

// Multiplier returns the difficulty multiplier, using the intermediate
// value for unknown difficulties.
func (t Tables) Multiplier(d Difficulty) float64 {
	if v, ok := t.Difficulty[d]; ok {
		return v
	}
	return t.DefaultMultiplier
}

// IsKnown reports whether g has its own entry rather than using the defaults.
func (t Tables) IsKnown(g MuscleGroup) bool {
	_, ok := t.Base[g]
	return ok
}

// Merge returns a copy of t with base and recovery overrides applied.
// Negative override values are ignored.
func (t Tables) Merge(base, recovery map[MuscleGroup]float64) Tables {
	out := Tables{
		Base:              make(map[MuscleGroup]float64, len(t.Base)+len(base)),
		Recovery:          make(map[MuscleGroup]float64, len(t.Recovery)+len(recovery)),
		Difficulty:        make(map[Difficulty]float64, len(t.Difficulty)),
		DefaultBase:       t.DefaultBase,
		DefaultRecovery:   t.DefaultRecovery,
		DefaultMultiplier: t.DefaultMultiplier,
	}
	for k, v := range t.Base {
		out.Base[k] = v
	}
	for k, v := range t.Recovery {
		out.Recovery[k] = v
	}
	for k, v := range t.Difficulty {
		out.Difficulty[k] = v
	}
	for k, v := range base {
		if v >= 0 {
			out.Base[k] = v
		}
	}
	for k, v := range recovery {
		if v >= 0 {
			out.Recovery[k] = v
		}
	}
	return out
}

// GroupRates is one muscle group with the rates it is scored with.
type GroupRates struct {
	Name                  MuscleGroup `json:"name"`
	BaseFatigue           float64     `json:"base_fatigue"`
	RecoveryRatePerMinute float64     `json:"recovery_rate_per_minute"`
}

// Groups lists the built-in vocabulary in display order, followed by any
// extra groups in t sorted by name.
func (t Tables) Groups() []GroupRates {
	builtin := MuscleGroups()
	seen := make(map[MuscleGroup]bool, len(builtin))
	for _, g := range builtin {
		seen[g] = true
	}
	var extra []MuscleGroup
	for g := range t.Base {
		if !seen[g] {
			extra = append(extra, g)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })

	out := make([]GroupRates, 0, len(builtin)+len(extra))
	for _, g := range append(builtin, extra...) {
		out = append(out, GroupRates{
			Name:                  g,
			BaseFatigue:           t.BaseFatigue(g),
			RecoveryRatePerMinute: t.RecoveryRate(g),
		})
	}
	return out
}

// Package catalog maps exercise names to the muscle groups they load.
package catalog

import (
	"sort"
	"strings"
	"unicode"

	"github.com/meltforce/fatiguetrack/internal/fatigue"
)

// Entry describes one canonical exercise.
type Entry struct {
	Name      string                `json:"name"`
	Primary   fatigue.MuscleGroup   `json:"primary"`
	Secondary []fatigue.MuscleGroup `json:"secondary,omitempty"`
	Aliases   []string              `json:"aliases,omitempty"`
}

// Exercise converts the entry into the shape the fatigue engine scores.
func (e Entry) Exercise() fatigue.Exercise {
	targets := make([]fatigue.MuscleGroup, 0, len(e.Secondary)+1)
	targets = append(targets, e.Primary)
	targets = append(targets, e.Secondary...)
	return fatigue.Exercise{MuscleGroup: e.Primary, TargetMuscles: targets}
}

var abbreviations = map[string]string{
	"db":   "dumbbell",
	"bb":   "barbell",
	"kb":   "kettlebell",
	"ohp":  "overhead press",
	"rdl":  "romanian deadlift",
	"sldl": "stiff leg deadlift",
	"incl": "incline",
	"decl": "decline",
	"ext":  "extension",
}

var entries = []Entry{
	// Chest
	{Name: "Bench Press", Primary: fatigue.Chest, Secondary: []fatigue.MuscleGroup{fatigue.Triceps, fatigue.FrontDelts},
		Aliases: []string{"Flat Bench", "Barbell Bench Press", "Flat Bench Press", "Chest Press"}},
	{Name: "Incline Bench Press", Primary: fatigue.Chest, Secondary: []fatigue.MuscleGroup{fatigue.FrontDelts, fatigue.Triceps},
		Aliases: []string{"Incline Press", "Incline Barbell Press"}},
	{Name: "Dumbbell Bench Press", Primary: fatigue.Chest, Secondary: []fatigue.MuscleGroup{fatigue.Triceps, fatigue.FrontDelts}},
	{Name: "Chest Fly", Primary: fatigue.Chest, Secondary: []fatigue.MuscleGroup{fatigue.FrontDelts},
		Aliases: []string{"Dumbbell Fly", "Cable Fly", "Pec Deck", "Butterfly"}},
	{Name: "Push Up", Primary: fatigue.Chest, Secondary: []fatigue.MuscleGroup{fatigue.Triceps, fatigue.Core},
		Aliases: []string{"Push-Up", "Pushups"}},
	{Name: "Dips", Primary: fatigue.Triceps, Secondary: []fatigue.MuscleGroup{fatigue.Chest, fatigue.FrontDelts},
		Aliases: []string{"Chest Dips", "Parallel Bar Dips"}},

	// Back
	{Name: "Deadlift", Primary: fatigue.LowerBack, Secondary: []fatigue.MuscleGroup{fatigue.Hamstrings, fatigue.Glutes, fatigue.Traps, fatigue.Forearms},
		Aliases: []string{"Conventional Deadlift", "Barbell Deadlift"}},
	{Name: "Pull Up", Primary: fatigue.Lats, Secondary: []fatigue.MuscleGroup{fatigue.Biceps, fatigue.RearDelts},
		Aliases: []string{"Pull-Up", "Pullups", "Chin Up", "Chin-Up"}},
	{Name: "Lat Pulldown", Primary: fatigue.Lats, Secondary: []fatigue.MuscleGroup{fatigue.Biceps},
		Aliases: []string{"Lat Pull Down", "Wide Grip Pulldown"}},
	{Name: "Barbell Row", Primary: fatigue.Back, Secondary: []fatigue.MuscleGroup{fatigue.Lats, fatigue.Biceps, fatigue.RearDelts},
		Aliases: []string{"Bent Over Row", "Pendlay Row"}},
	{Name: "Dumbbell Row", Primary: fatigue.Back, Secondary: []fatigue.MuscleGroup{fatigue.Lats, fatigue.Biceps},
		Aliases: []string{"One Arm Row", "Single Arm Row"}},
	{Name: "Seated Cable Row", Primary: fatigue.Back, Secondary: []fatigue.MuscleGroup{fatigue.Lats, fatigue.Biceps},
		Aliases: []string{"Cable Row", "Seated Row"}},
	{Name: "Shrug", Primary: fatigue.Traps, Secondary: []fatigue.MuscleGroup{fatigue.Forearms},
		Aliases: []string{"Barbell Shrug", "Dumbbell Shrug"}},
	{Name: "Hyperextension", Primary: fatigue.LowerBack, Secondary: []fatigue.MuscleGroup{fatigue.Glutes, fatigue.Hamstrings},
		Aliases: []string{"Back Extension", "Hyperextensions on Roman Chair"}},

	// Shoulders
	{Name: "Overhead Press", Primary: fatigue.Shoulders, Secondary: []fatigue.MuscleGroup{fatigue.Triceps, fatigue.Core},
		Aliases: []string{"Military Press", "Shoulder Press", "Standing Press"}},
	{Name: "Lateral Raise", Primary: fatigue.Shoulders,
		Aliases: []string{"Side Raise", "Dumbbell Lateral Raise"}},
	{Name: "Front Raise", Primary: fatigue.FrontDelts, Secondary: []fatigue.MuscleGroup{fatigue.Shoulders}},
	{Name: "Face Pull", Primary: fatigue.RearDelts, Secondary: []fatigue.MuscleGroup{fatigue.Traps},
		Aliases: []string{"Reverse Fly", "Rear Delt Fly"}},

	// Arms
	{Name: "Bicep Curl", Primary: fatigue.Biceps, Secondary: []fatigue.MuscleGroup{fatigue.Forearms},
		Aliases: []string{"Barbell Curl", "Dumbbell Curl", "Biceps Curl"}},
	{Name: "Hammer Curl", Primary: fatigue.Biceps, Secondary: []fatigue.MuscleGroup{fatigue.Forearms}},
	{Name: "Triceps Pushdown", Primary: fatigue.Triceps,
		Aliases: []string{"Tricep Pushdown", "Cable Pushdown", "Rope Pushdown"}},
	{Name: "Skull Crusher", Primary: fatigue.Triceps,
		Aliases: []string{"Lying Triceps Extension", "French Press"}},
	{Name: "Wrist Curl", Primary: fatigue.Forearms},

	// Legs
	{Name: "Squat", Primary: fatigue.Quadriceps, Secondary: []fatigue.MuscleGroup{fatigue.Glutes, fatigue.Hamstrings, fatigue.LowerBack},
		Aliases: []string{"Back Squat", "Barbell Squat", "High Bar Squat"}},
	{Name: "Front Squat", Primary: fatigue.Quadriceps, Secondary: []fatigue.MuscleGroup{fatigue.Glutes, fatigue.Core}},
	{Name: "Hack Squat", Primary: fatigue.Quadriceps, Secondary: []fatigue.MuscleGroup{fatigue.Glutes},
		Aliases: []string{"Hack Squats"}},
	{Name: "Sumo Squat", Primary: fatigue.Glutes, Secondary: []fatigue.MuscleGroup{fatigue.Quadriceps, fatigue.Hamstrings},
		Aliases: []string{"Sumo Squats"}},
	{Name: "Leg Press", Primary: fatigue.Quadriceps, Secondary: []fatigue.MuscleGroup{fatigue.Glutes}},
	{Name: "Lunge", Primary: fatigue.Quadriceps, Secondary: []fatigue.MuscleGroup{fatigue.Glutes, fatigue.Hamstrings},
		Aliases: []string{"Lunges", "Reverse Lunges", "Walking Lunges", "Split Squat", "Bulgarian Split Squat"}},
	{Name: "Leg Extension", Primary: fatigue.Quadriceps},
	{Name: "Leg Curl", Primary: fatigue.Hamstrings,
		Aliases: []string{"Lying Leg Curl", "Seated Leg Curl", "Hamstring Curl"}},
	{Name: "Romanian Deadlift", Primary: fatigue.Hamstrings, Secondary: []fatigue.MuscleGroup{fatigue.Glutes, fatigue.LowerBack},
		Aliases: []string{"Stiff Leg Deadlift"}},
	{Name: "Hip Thrust", Primary: fatigue.Glutes, Secondary: []fatigue.MuscleGroup{fatigue.Hamstrings},
		Aliases: []string{"Barbell Hip Thrust", "Glute Bridge"}},
	{Name: "Calf Raise", Primary: fatigue.Calves,
		Aliases: []string{"Standing Calf Raises", "Seated Calf Raise", "Calf Raises"}},

	// Core
	{Name: "Plank", Primary: fatigue.Core, Secondary: []fatigue.MuscleGroup{fatigue.Abs}},
	{Name: "Crunch", Primary: fatigue.Abs, Aliases: []string{"Crunches", "Sit Up", "Cable Crunch"}},
	{Name: "Hanging Leg Raise", Primary: fatigue.Abs, Secondary: []fatigue.MuscleGroup{fatigue.Core, fatigue.Forearms},
		Aliases: []string{"Hanging Leg Raises", "Leg Raises"}},
	{Name: "Russian Twist", Primary: fatigue.Obliques, Secondary: []fatigue.MuscleGroup{fatigue.Abs}},

	// Compound / conditioning
	{Name: "Clean and Press", Primary: fatigue.FullBody, Secondary: []fatigue.MuscleGroup{fatigue.Shoulders, fatigue.Legs, fatigue.Traps}},
	{Name: "Burpee", Primary: fatigue.FullBody, Secondary: []fatigue.MuscleGroup{fatigue.Chest, fatigue.Legs},
		Aliases: []string{"Burpees"}},
	{Name: "Kettlebell Swing", Primary: fatigue.Glutes, Secondary: []fatigue.MuscleGroup{fatigue.Hamstrings, fatigue.LowerBack},
		Aliases: []string{"KB Swing"}},
}

var index = buildIndex()

func buildIndex() map[string]int {
	idx := make(map[string]int)
	for i, e := range entries {
		idx[normalize(e.Name)] = i
		for _, a := range e.Aliases {
			idx[normalize(a)] = i
		}
	}
	return idx
}

// Lookup finds the catalog entry for an exercise name. Matching ignores case,
// punctuation and common gym abbreviations ("DB Row", "OHP").
func Lookup(name string) (Entry, bool) {
	key := normalize(name)
	if key == "" {
		return Entry{}, false
	}
	if i, ok := index[key]; ok {
		return entries[i], true
	}
	// Fall back to a trailing plural or a known name contained in the input,
	// preferring the longest match so "Incline Bench Press" beats "Bench Press".
	if i, ok := index[strings.TrimSuffix(key, "s")]; ok {
		return entries[i], true
	}
	best, bestLen := -1, 0
	for k, i := range index {
		if !containsWords(key, k) {
			continue
		}
		if len(k) > bestLen || (len(k) == bestLen && i < best) {
			best, bestLen = i, len(k)
		}
	}
	if best < 0 {
		return Entry{}, false
	}
	return entries[best], true
}

// All returns every catalog entry sorted by name.
func All() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	words := strings.Fields(s)
	for i, w := range words {
		if exp, ok := abbreviations[w]; ok {
			words[i] = exp
		}
	}
	return strings.Join(words, " ")
}

// containsWords reports whether needle occurs in haystack on word boundaries.
func containsWords(haystack, needle string) bool {
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}

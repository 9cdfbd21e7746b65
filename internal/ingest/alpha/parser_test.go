package alpha

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const sampleCSV = `
"Legs · Day 2 · Week 4 · Push-Pull-Legs";"2026-02-19 4:54 h";"1:02 hr"
"1. Hack Squats · Machine · 8 reps";"WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps"
#;KG;REPS;RIR
1;115;8;1
2;115;10;1
3;115;10;1
"2. Sumo Squats · Smith machine · 10 reps";"WU1 · 35 kg · 8 reps"
#;KG;REPS;RIR
1;70;8;1
2;70;12;1
"3. Hyperextensions on Roman Chair · Bodyweight · 10 reps";"WU1 · +0 kg · 8 reps"
#;KG;REPS;RIR
1;+35;10;0
2;+35;9;1
3;+35;10;0
"4. Reverse Lunges · Dumbbells · 10 reps"
#;KG;REPS;RIR
1;10;10;1
2;10;10;1
3;10;10;0
"5. Standing Calf Raises · Machine · 12 reps";"WU1 · 47,5 kg · 8 reps"
#;KG;REPS;RIR
1;157,5;11;1
2;157,5;11;0
3;157,5;10;0
"6. Hanging Leg Raises · Bodyweight · 12 reps · 2 dropsets"
#;KG;REPS;RIR
1;+0;12;1
2;+0;12;1
3;+0;12;0

"Push · Day 1 · Week 4 · Push-Pull-Legs";"2026-02-17 5:04 h";"1:12 hr"
"1. Bench Press · Barbell · 6 reps";"WU1 · 22,5 kg · 10 reps<br>WU2 · 47,5 kg · 8 reps<br>WU3 · 77,5 kg · 6 reps"
#;KG;REPS;RIR
1;102,5;6;0
2;102,5;6;0
3;100;6;0
`

// TestParseCompleteSessions verifies parsing a multi-session export with
// exercises, warmups and working sets.
func TestParseCompleteSessions(t *testing.T) {
	sessions, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}

	s1 := sessions[0]
	if s1.Name != "Legs · Day 2 · Week 4 · Push-Pull-Legs" {
		t.Errorf("s1.Name = %q", s1.Name)
	}
	if want := time.Date(2026, 2, 19, 4, 54, 0, 0, time.UTC); !s1.Date.Equal(want) {
		t.Errorf("s1.Date = %v, want %v", s1.Date, want)
	}
	if s1.Duration != 62*time.Minute {
		t.Errorf("s1.Duration = %v, want 1h2m", s1.Duration)
	}

	type summary struct {
		Name      string
		Equipment string
		Target    int
		Warmups   int
		Working   int
	}
	var got []summary
	for _, ex := range s1.Exercises {
		got = append(got, summary{ex.Name, ex.Equipment, ex.TargetReps, len(ex.Sets) - len(ex.WorkingSets()), len(ex.WorkingSets())})
	}
	want := []summary{
		{"Hack Squats", "Machine", 8, 2, 3},
		{"Sumo Squats", "Smith machine", 10, 1, 2},
		{"Hyperextensions on Roman Chair", "Bodyweight", 10, 1, 3},
		{"Reverse Lunges", "Dumbbells", 10, 0, 3},
		{"Standing Calf Raises", "Machine", 12, 1, 3},
		{"Hanging Leg Raises", "Bodyweight", 12, 0, 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("exercises mismatch (-want +got):\n%s", diff)
	}

	s2 := sessions[1]
	if s2.Name != "Push · Day 1 · Week 4 · Push-Pull-Legs" {
		t.Errorf("s2.Name = %q", s2.Name)
	}
	if s2.Duration != 72*time.Minute {
		t.Errorf("s2.Duration = %v, want 1h12m", s2.Duration)
	}
	bench := s2.Exercises[0]
	wantSets := []Set{
		{Number: 1, WeightKg: 102.5, Reps: 6, RIR: 0},
		{Number: 2, WeightKg: 102.5, Reps: 6, RIR: 0},
		{Number: 3, WeightKg: 100, Reps: 6, RIR: 0},
	}
	if diff := cmp.Diff(wantSets, bench.WorkingSets()); diff != "" {
		t.Errorf("bench sets mismatch (-want +got):\n%s", diff)
	}
}

// TestParseBodyweightSets verifies +N loads on working sets.
func TestParseBodyweightSets(t *testing.T) {
	sessions, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatal(err)
	}
	hyper := sessions[0].Exercises[2].WorkingSets()
	if !hyper[0].BodyweightPlus || hyper[0].WeightKg != 35 || hyper[0].Reps != 10 {
		t.Errorf("set = %+v, want +35 kg x 10", hyper[0])
	}
}

// TestDecimalComma verifies decimal commas in weights and RIR.
func TestDecimalComma(t *testing.T) {
	if got, ok := parseDecimal("102,5"); !ok || got != 102.5 {
		t.Errorf("parseDecimal(102,5) = %v, %v, want 102.5", got, ok)
	}
	if got := parseRIR("0,5"); got != 0.5 {
		t.Errorf("parseRIR(0,5) = %v, want 0.5", got)
	}
}

// TestUntrackedRIR verifies empty or dashed RIR cells are marked untracked.
func TestUntrackedRIR(t *testing.T) {
	for _, in := range []string{"", "-", " ", "n/a", "-1"} {
		if got := parseRIR(in); got != UntrackedRIR {
			t.Errorf("parseRIR(%q) = %v, want %v", in, got, UntrackedRIR)
		}
	}

	csv := `"Pull";"2026-02-20 18:10 h";"45 min"
"1. Pull Up · Bodyweight · 8 reps"
#;KG;REPS;RIR
1;+0;8;
2;+0;7;-
`
	sessions, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	sets := sessions[0].Exercises[0].WorkingSets()
	if len(sets) != 2 || sets[0].RIR != UntrackedRIR || sets[1].RIR != UntrackedRIR {
		t.Errorf("sets = %+v, want two untracked RIR sets", sets)
	}
	if sessions[0].Duration != 45*time.Minute {
		t.Errorf("duration = %v, want 45m", sessions[0].Duration)
	}
}

// TestParseDuration verifies the duration column formats.
func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"1:02 hr", 62 * time.Minute},
		{"0:48 hr", 48 * time.Minute},
		{"2:00 h", 2 * time.Hour},
		{"45 min", 45 * time.Minute},
		{"soon", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseDuration(tt.in); got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestWarmupParsing verifies warmup set extraction from the exercise header's
// second field.
func TestWarmupParsing(t *testing.T) {
	sets := parseWarmups("WU1 · 37,5 kg · 9 reps<br>WU2 · +0 kg · 7 reps")
	want := []Set{
		{Number: 1, WeightKg: 37.5, Reps: 9, RIR: UntrackedRIR, Warmup: true},
		{Number: 2, WeightKg: 0, BodyweightPlus: true, Reps: 7, RIR: UntrackedRIR, Warmup: true},
	}
	if diff := cmp.Diff(want, sets); diff != "" {
		t.Errorf("warmups mismatch (-want +got):\n%s", diff)
	}
}

// TestParseErrors verifies structural errors report the offending line.
func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"exercise before session", `"1. Squat · Barbell · 5 reps"`, "line 1: exercise without session"},
		{"set before exercise", "\"Legs\";\"2026-02-19 4:54 h\";\"1:02 hr\"\n1;100;5;1", "line 2: set data without exercise"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

// TestEmptyInput verifies that empty input returns no sessions without error.
func TestEmptyInput(t *testing.T) {
	sessions, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions = %d, want 0", len(sessions))
	}
}

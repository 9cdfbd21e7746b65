package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/meltforce/fatiguetrack/internal/config"
	"github.com/meltforce/fatiguetrack/internal/fatigue"
	"github.com/meltforce/fatiguetrack/internal/logging"
	"github.com/meltforce/fatiguetrack/internal/replay"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "optional config file for fatigue rate overrides")
	stateDir := flag.String("state-dir", "", "replay state directory (default ~/.fatiguetrack-replay)")
	noState := flag.Bool("no-state", false, "do not record or skip replayed files")
	force := flag.Bool("force", false, "replay files even if they were replayed before")
	asJSON := flag.Bool("json", false, "print one JSON report per session")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("fatiguetrack-replay", Version)
		return
	}

	log := slog.New(logging.NewHandler(os.Stderr, "text", slog.LevelInfo))

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Usage: fatiguetrack-replay [-json] [-force] [-config config.yaml] export.csv...\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	tables := fatigue.DefaultTables()
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		tables = cfg.Fatigue.Tables()
	}

	var state *replay.StateDB
	if !*noState {
		dir := *stateDir
		if dir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				log.Error("failed to get home directory", "error", err)
				os.Exit(1)
			}
			dir = filepath.Join(homeDir, ".fatiguetrack-replay")
		}
		var err error
		state, err = replay.OpenStateDB(dir)
		if err != nil {
			log.Error("failed to open state database", "error", err)
			os.Exit(1)
		}
		defer state.Close()
	}

	emit := printReport
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		emit = func(rep replay.Report) {
			if err := enc.Encode(rep); err != nil {
				log.Error("writing report", "error", err)
			}
		}
	}

	stats, err := replay.New(tables, log).Files(flag.Args(), state, *force, emit)
	if !*asJSON {
		printStats(stats)
	}
	if err != nil {
		log.Error("replay finished with errors", "error", err)
		os.Exit(1)
	}
}

func printReport(rep replay.Report) {
	fmt.Printf("=== %s (%s, %s) ===\n", rep.Session,
		rep.Start.Format("2006-01-02 15:04"), rep.End.Sub(rep.Start))

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  TIME\tEXERCISE\tMUSCLE\t+FATIGUE\tLEVEL")
	for _, s := range rep.Sets {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%.1f\t%.1f\n",
			s.At.Format("15:04"), s.Exercise, s.Result.MuscleGroup, s.Result.Increase, s.Result.FatigueLevel)
	}
	tw.Flush()

	muscles := make([]fatigue.MuscleGroup, 0, len(rep.Peak))
	for m := range rep.Peak {
		muscles = append(muscles, m)
	}
	sort.Slice(muscles, func(i, j int) bool { return rep.Peak[muscles[i]] > rep.Peak[muscles[j]] })

	fmt.Println()
	tw = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  MUSCLE\tPEAK\tAT END")
	for _, m := range muscles {
		fmt.Fprintf(tw, "  %s\t%.1f\t%.1f\n", m, rep.Peak[m], endLevel(rep, m))
	}
	tw.Flush()

	r := rep.Recommendations
	fmt.Println()
	if len(r.RestNeeded) > 0 {
		fmt.Printf("  Rest needed:  %s\n", strings.Join(r.RestNeeded, ", "))
	}
	fmt.Printf("  Intensity:    %s\n", r.IntensityAdjustment)
	fmt.Printf("  Next:         %s\n", r.NextExerciseSuggestion)
	if len(rep.Unmapped) > 0 {
		fmt.Printf("  Not in catalog: %s\n", strings.Join(rep.Unmapped, ", "))
	}
	fmt.Println()
}

func endLevel(rep replay.Report, m fatigue.MuscleGroup) float64 {
	for _, l := range rep.Levels {
		if l.MuscleGroup == m {
			return l.FatigueLevel
		}
	}
	return 0
}

func printStats(stats *replay.Stats) {
	fmt.Println("=== Replay Summary ===")
	fmt.Printf("  Files total:      %d\n", stats.FilesTotal)
	fmt.Printf("  Files replayed:   %d\n", stats.FilesReplayed)
	fmt.Printf("  Files skipped:    %d (already replayed)\n", stats.FilesSkipped)
	fmt.Printf("  Files errored:    %d\n", stats.FilesErrored)
	fmt.Println()
	fmt.Printf("  Sessions:         %d\n", stats.Sessions)
	fmt.Printf("  Working sets:     %d\n", stats.Sets)

	if len(stats.Unmapped) > 0 {
		fmt.Printf("\n  Exercises not in catalog:\n")
		for _, name := range stats.Unmapped {
			fmt.Printf("    - %s\n", name)
		}
	}
	fmt.Println()
}

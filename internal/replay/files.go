package replay

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/meltforce/fatiguetrack/internal/ingest/alpha"
	"go.uber.org/multierr"
)

// Stats tracks a replay run.
type Stats struct {
	FilesTotal    int
	FilesReplayed int
	FilesSkipped  int
	FilesErrored  int

	Sessions int
	Sets     int
	Unmapped []string
}

// Files replays every export in paths and passes each session report to
// emit. Files already recorded in state are skipped unless force is set; a
// nil state replays everything. A failing file does not stop the run; all
// failures are returned together.
func (r *Replayer) Files(paths []string, state *StateDB, force bool, emit func(Report)) (*Stats, error) {
	stats := &Stats{}
	unmapped := make(map[string]bool)
	var errs error

	for _, path := range paths {
		stats.FilesTotal++
		replayed, err := r.file(path, state, force, emit, stats, unmapped)
		switch {
		case err != nil:
			stats.FilesErrored++
			r.log.Error("replay failed", "file", path, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", path, err))
		case replayed:
			stats.FilesReplayed++
		default:
			stats.FilesSkipped++
			r.log.Info("already replayed, skipping", "file", path)
		}
	}

	for name := range unmapped {
		stats.Unmapped = append(stats.Unmapped, name)
	}
	sort.Strings(stats.Unmapped)
	return stats, errs
}

func (r *Replayer) file(path string, state *StateDB, force bool, emit func(Report), stats *Stats, unmapped map[string]bool) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	hash, err := HashFile(abs)
	if err != nil {
		return false, fmt.Errorf("hashing: %w", err)
	}
	if state != nil && !force {
		done, err := state.IsReplayed(abs, hash)
		if err != nil {
			return false, err
		}
		if done {
			return false, nil
		}
	}

	f, err := os.Open(abs)
	if err != nil {
		return false, err
	}
	defer f.Close()

	sessions, err := alpha.Parse(f)
	if err != nil {
		return false, fmt.Errorf("parsing: %w", err)
	}
	for _, s := range sessions {
		rep := r.Run(s)
		stats.Sessions++
		stats.Sets += len(rep.Sets)
		for _, name := range rep.Unmapped {
			unmapped[name] = true
		}
		if emit != nil {
			emit(rep)
		}
	}

	if state != nil {
		if err := state.MarkReplayed(abs, hash, len(sessions)); err != nil {
			return true, err
		}
	}
	r.log.Info("file replayed", "file", abs, "sessions", len(sessions))
	return true, nil
}

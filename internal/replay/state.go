package replay

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// StateDB remembers which export files have been replayed so re-runs skip
// them. A file is identified by its path and content hash.
type StateDB struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStateDB opens (or creates) the SQLite state database at dir/state.db.
func OpenStateDB(dir string) (*StateDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "state.db"))
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS replayed_files (
		path        TEXT PRIMARY KEY,
		hash        TEXT NOT NULL,
		sessions    INTEGER NOT NULL,
		replayed_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}

	return &StateDB{db: db, now: time.Now}, nil
}

// IsReplayed reports whether path was already replayed with the same content.
func (s *StateDB) IsReplayed(path, hash string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM replayed_files WHERE path = ? AND hash = ?`,
		path, hash,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking replay state of %s: %w", path, err)
	}
	return count > 0, nil
}

// MarkReplayed records that path was replayed. A changed file replaces the
// earlier record.
func (s *StateDB) MarkReplayed(path, hash string, sessions int) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO replayed_files (path, hash, sessions, replayed_at) VALUES (?, ?, ?, ?)`,
		path, hash, sessions, s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("recording replay of %s: %w", path, err)
	}
	return nil
}

// Close closes the state database.
func (s *StateDB) Close() error {
	return s.db.Close()
}

// HashFile computes the SHA-256 hash of a file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

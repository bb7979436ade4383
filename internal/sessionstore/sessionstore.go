// Package sessionstore persists the handful of things that should
// survive a restart of the daemon: overlay window positions and a
// player's per-window display preferences. It deliberately does not
// persist parsed encounters or combat history; those are re-derived
// from the combat log itself every time it's read.
package sessionstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store wraps a sqlite-backed database of overlay preferences.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) the parent directory and database file at
// path, applies the schema, and returns a ready Store.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sessionstore: creating directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sessionstore: creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS window_positions (
	window_id TEXT PRIMARY KEY,
	x INTEGER NOT NULL,
	y INTEGER NOT NULL,
	width INTEGER NOT NULL,
	height INTEGER NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS display_preferences (
	window_id TEXT PRIMARY KEY,
	preferences TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	_, err := db.Exec(schema)
	return err
}

// WindowPosition is one overlay window's last known geometry.
type WindowPosition struct {
	WindowID string `json:"window_id"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// SaveWindowPosition upserts a window's last known geometry.
func (s *Store) SaveWindowPosition(p WindowPosition) error {
	_, err := s.db.Exec(`
INSERT INTO window_positions (window_id, x, y, width, height, updated_at)
VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(window_id) DO UPDATE SET
	x = excluded.x, y = excluded.y, width = excluded.width, height = excluded.height,
	updated_at = CURRENT_TIMESTAMP
`, p.WindowID, p.X, p.Y, p.Width, p.Height)
	if err != nil {
		return fmt.Errorf("sessionstore: saving window position: %w", err)
	}
	return nil
}

// WindowPosition returns the last saved geometry for windowID, or
// false if nothing has been saved for it yet.
func (s *Store) WindowPosition(windowID string) (WindowPosition, bool, error) {
	var p WindowPosition
	p.WindowID = windowID
	row := s.db.QueryRow(`SELECT x, y, width, height FROM window_positions WHERE window_id = ?`, windowID)
	if err := row.Scan(&p.X, &p.Y, &p.Width, &p.Height); err != nil {
		if err == sql.ErrNoRows {
			return WindowPosition{}, false, nil
		}
		return WindowPosition{}, false, fmt.Errorf("sessionstore: loading window position: %w", err)
	}
	return p, true, nil
}

// SaveDisplayPreferences upserts a window's raw preferences blob (the
// overlay client owns the encoding; this store only persists bytes).
func (s *Store) SaveDisplayPreferences(windowID, preferences string) error {
	_, err := s.db.Exec(`
INSERT INTO display_preferences (window_id, preferences, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(window_id) DO UPDATE SET
	preferences = excluded.preferences, updated_at = CURRENT_TIMESTAMP
`, windowID, preferences)
	if err != nil {
		return fmt.Errorf("sessionstore: saving display preferences: %w", err)
	}
	return nil
}

// DisplayPreferences returns the last saved preferences blob for
// windowID, or false if nothing has been saved for it yet.
func (s *Store) DisplayPreferences(windowID string) (string, bool, error) {
	var prefs string
	row := s.db.QueryRow(`SELECT preferences FROM display_preferences WHERE window_id = ?`, windowID)
	if err := row.Scan(&prefs); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("sessionstore: loading display preferences: %w", err)
	}
	return prefs, true, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

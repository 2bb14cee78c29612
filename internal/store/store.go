// Package store persists tabulated forward-model spectra in SQLite, so a
// long-running fit service can warm its table cache across restarts.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"lyso-calib/internal/spectrum"
)

// Store is a SQLite-backed spectrum table archive. Tables are keyed by the
// structural parameter key plus the charge grid they were tabulated on;
// entries are immutable once written.
type Store struct {
	db *sql.DB
}

// Open opens or creates the archive at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open spectrum store: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate spectrum store: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS spectra (
		param_key TEXT NOT NULL,
		charge_min REAL NOT NULL,
		charge_max REAL NOT NULL,
		points INTEGER NOT NULL,
		params JSON NOT NULL,
		values_json JSON NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (param_key, charge_min, charge_max, points)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the archive.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes the tabulated spectrum for p over the given charge grid.
// Writing an already stored key is a no-op: tables are pure functions of
// their key, matching the in-memory insert-once discipline.
func (s *Store) Save(p spectrum.Params, charges, values []float64) error {
	if len(charges) < 2 || len(charges) != len(values) {
		return fmt.Errorf("grid/value length mismatch: %d vs %d", len(charges), len(values))
	}
	valuesJSON, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode spectrum: %w", err)
	}
	paramsJSON, err := json.Marshal(p.Slice())
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT OR IGNORE INTO spectra (param_key, charge_min, charge_max, points, params, values_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.Key(), charges[0], charges[len(charges)-1], len(charges),
		string(paramsJSON), string(valuesJSON))
	if err != nil {
		return fmt.Errorf("save spectrum: %w", err)
	}
	return nil
}

// Load returns the stored spectrum for p over the given charge grid, or
// ok=false when none is stored.
func (s *Store) Load(p spectrum.Params, charges []float64) (values []float64, ok bool, err error) {
	if len(charges) < 2 {
		return nil, false, fmt.Errorf("grid needs at least 2 points, got %d", len(charges))
	}
	row := s.db.QueryRow(`
		SELECT values_json FROM spectra
		WHERE param_key = ? AND charge_min = ? AND charge_max = ? AND points = ?`,
		p.Key(), charges[0], charges[len(charges)-1], len(charges))

	var valuesJSON string
	switch err := row.Scan(&valuesJSON); err {
	case nil:
	case sql.ErrNoRows:
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("load spectrum: %w", err)
	}
	if err := json.Unmarshal([]byte(valuesJSON), &values); err != nil {
		return nil, false, fmt.Errorf("decode spectrum: %w", err)
	}
	if len(values) != len(charges) {
		return nil, false, fmt.Errorf("stored spectrum has %d points, grid has %d", len(values), len(charges))
	}
	return values, true, nil
}

// Warm preloads every stored spectrum matching the evaluator's charge grid
// into its table cache and returns the number of tables loaded.
func (s *Store) Warm(ev *spectrum.Evaluator) (int, error) {
	grid := ev.ChargeGrid()
	rows, err := s.db.Query(`
		SELECT params, values_json FROM spectra
		WHERE charge_min = ? AND charge_max = ? AND points = ?`,
		grid[0], grid[len(grid)-1], len(grid))
	if err != nil {
		return 0, fmt.Errorf("scan spectrum store: %w", err)
	}
	defer rows.Close()

	loaded := 0
	for rows.Next() {
		var paramsJSON, valuesJSON string
		if err := rows.Scan(&paramsJSON, &valuesJSON); err != nil {
			return loaded, fmt.Errorf("scan spectrum row: %w", err)
		}
		var pv, values []float64
		if err := json.Unmarshal([]byte(paramsJSON), &pv); err != nil {
			return loaded, fmt.Errorf("decode stored params: %w", err)
		}
		if err := json.Unmarshal([]byte(valuesJSON), &values); err != nil {
			return loaded, fmt.Errorf("decode stored spectrum: %w", err)
		}
		p, err := spectrum.ParamsFromSlice(pv)
		if err != nil {
			return loaded, err
		}
		if err := ev.Preload(p, values); err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, rows.Err()
}

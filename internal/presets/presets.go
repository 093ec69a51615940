// Package presets persists per-dataset layer states so that re-uploading a
// directory the user has already explored restores their adjustments, and
// keeps a history of dataset loads with the warnings each one produced.
package presets

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/stviewer-data/stviewer/internal/scene"
)

// Store provides sqlite-backed persistence for layer presets and load
// history. Safe for concurrent use; database/sql serializes access.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the preset database at path and brings
// its schema up to date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open preset db: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveLayerState upserts the preset for one layer of one root.
func (s *Store) SaveLayerState(root, layerID string, st scene.LayerState) error {
	stateJSON, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal layer state: %w", err)
	}

	query := `
		INSERT INTO layer_presets (root, layer_id, state_json, updated_at_ns)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(root, layer_id) DO UPDATE SET
			state_json = excluded.state_json,
			updated_at_ns = excluded.updated_at_ns
	`
	if _, err := s.db.Exec(query, root, layerID, string(stateJSON), time.Now().UnixNano()); err != nil {
		return fmt.Errorf("save layer preset: %w", err)
	}
	return nil
}

// LayerStates returns all saved presets for a root, keyed by layer id.
// Presets whose JSON no longer unmarshals are skipped.
func (s *Store) LayerStates(root string) (map[string]scene.LayerState, error) {
	rows, err := s.db.Query(
		`SELECT layer_id, state_json FROM layer_presets WHERE root = ?`, root)
	if err != nil {
		return nil, fmt.Errorf("list layer presets: %w", err)
	}
	defer rows.Close()

	out := make(map[string]scene.LayerState)
	for rows.Next() {
		var layerID, stateJSON string
		if err := rows.Scan(&layerID, &stateJSON); err != nil {
			return nil, fmt.Errorf("scan layer preset: %w", err)
		}
		var st scene.LayerState
		if err := json.Unmarshal([]byte(stateJSON), &st); err != nil {
			continue
		}
		out[layerID] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("layer presets rows: %w", err)
	}
	return out, nil
}

// DeleteRoot removes all presets stored for a root.
func (s *Store) DeleteRoot(root string) error {
	if _, err := s.db.Exec(`DELETE FROM layer_presets WHERE root = ?`, root); err != nil {
		return fmt.Errorf("delete presets: %w", err)
	}
	return nil
}

// LoadRecord is one entry of the dataset load history.
type LoadRecord struct {
	LoadID     string    `json:"load_id"`
	Root       string    `json:"root"`
	ModelCount int       `json:"model_count"`
	Warnings   []string  `json:"warnings"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// RecordLoad appends a completed dataset load to the history and returns the
// generated load id.
func (s *Store) RecordLoad(root string, modelCount int, warnings []string) (string, error) {
	loadID := uuid.New().String()
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return "", fmt.Errorf("marshal warnings: %w", err)
	}

	query := `
		INSERT INTO dataset_loads (load_id, root, model_count, warnings_json, loaded_at_ns)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.Exec(query, loadID, root, modelCount, string(warningsJSON), time.Now().UnixNano()); err != nil {
		return "", fmt.Errorf("record load: %w", err)
	}
	return loadID, nil
}

// Loads returns the load history for a root, most recent first.
func (s *Store) Loads(root string) ([]LoadRecord, error) {
	rows, err := s.db.Query(`
		SELECT load_id, root, model_count, warnings_json, loaded_at_ns
		FROM dataset_loads
		WHERE root = ?
		ORDER BY loaded_at_ns DESC, rowid DESC
	`, root)
	if err != nil {
		return nil, fmt.Errorf("list loads: %w", err)
	}
	defer rows.Close()

	var records []LoadRecord
	for rows.Next() {
		var r LoadRecord
		var warningsJSON string
		var loadedAtNs int64
		if err := rows.Scan(&r.LoadID, &r.Root, &r.ModelCount, &warningsJSON, &loadedAtNs); err != nil {
			return nil, fmt.Errorf("scan load record: %w", err)
		}
		if err := json.Unmarshal([]byte(warningsJSON), &r.Warnings); err != nil {
			return nil, fmt.Errorf("unmarshal warnings: %w", err)
		}
		r.LoadedAt = time.Unix(0, loadedAtNs)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loads rows: %w", err)
	}
	return records, nil
}

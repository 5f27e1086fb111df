// Package store persists a durable index of completed Runs so journeyctl
// can list and inspect past runs after the in-process Run Controller has
// discarded its per-Run state.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"journeyagent/internal/logging"
)

// RunRecord is one row of the run index.
type RunRecord struct {
	ID          string
	Persona     string
	Mission     string
	ModelName   string
	Status      string // running, stopped, failed
	StartedAt   time.Time
	FinishedAt  sql.NullTime
	ArtifactDir string
	Options     RunOptions
}

// RunOptions mirrors the toggles a run was started with, persisted for
// reference alongside the record.
type RunOptions struct {
	DebugMode        bool   `json:"debugMode"`
	TTSEnabled       bool   `json:"ttsEnabled"`
	HeadlessMode     bool   `json:"headlessMode"`
	SaveTrace        bool   `json:"saveTrace"`
	SaveThoughts     bool   `json:"saveThoughts"`
	SaveScreenshots  bool   `json:"saveScreenshots"`
	StartURL         string `json:"startUrl"`
}

// Store manages the run index database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// New creates or opens the run index under dataDir (e.g. "artifacts/..")
// as runs.db, matching the teacher's <dir>/<name>.db + WAL layout.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "runs.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open run index: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize run index schema: %w", err)
	}

	logging.Store("run index opened at %s", dbPath)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		persona TEXT NOT NULL,
		mission TEXT NOT NULL,
		model_name TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		artifact_dir TEXT NOT NULL,
		options_json TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun inserts or replaces one run's row; the Run Controller calls it
// once on start (status=running) and records the stop via MarkFinished.
func (s *Store) SaveRun(r *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}

	optionsJSON, err := json.Marshal(r.Options)
	if err != nil {
		return fmt.Errorf("marshal run options: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (id, persona, mission, model_name, status, started_at, finished_at, artifact_dir, options_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			finished_at = excluded.finished_at,
			options_json = excluded.options_json
	`, r.ID, r.Persona, r.Mission, r.ModelName, r.Status, r.StartedAt, r.FinishedAt, r.ArtifactDir, optionsJSON)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// MarkFinished updates a run's status and finished-at timestamp, the
// call the Run Controller makes during teardown.
func (s *Store) MarkFinished(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark run finished: %w", err)
	}
	return nil
}

// GetRun retrieves a single run by id.
func (s *Store) GetRun(id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, persona, mission, model_name, status, started_at, finished_at, artifact_dir, options_json
		FROM runs WHERE id = ?
	`, id)

	r, optionsJSON, err := scanRun(row, id)
	if err != nil {
		return nil, err
	}
	if optionsJSON.Valid {
		json.Unmarshal([]byte(optionsJSON.String), &r.Options)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, persona, mission, model_name, status, started_at, finished_at, artifact_dir, options_json
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var optionsJSON sql.NullString
		if err := rows.Scan(&r.ID, &r.Persona, &r.Mission, &r.ModelName, &r.Status,
			&r.StartedAt, &r.FinishedAt, &r.ArtifactDir, &optionsJSON); err != nil {
			continue
		}
		if optionsJSON.Valid {
			json.Unmarshal([]byte(optionsJSON.String), &r.Options)
		}
		records = append(records, r)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner, id string) (*RunRecord, sql.NullString, error) {
	var r RunRecord
	var optionsJSON sql.NullString
	err := row.Scan(&r.ID, &r.Persona, &r.Mission, &r.ModelName, &r.Status,
		&r.StartedAt, &r.FinishedAt, &r.ArtifactDir, &optionsJSON)
	if err == sql.ErrNoRows {
		return nil, optionsJSON, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, optionsJSON, fmt.Errorf("failed to get run: %w", err)
	}
	return &r, optionsJSON, nil
}

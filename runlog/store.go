// Package runlog provides a SQLite-backed archive of completed estimation runs.
package runlog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nikcunniffe/Identifiability/results"
)

// Store handles SQLite database operations for the run archive.
type Store struct {
	db *sql.DB
}

// Record is the indexed view of one archived run. The full report is
// stored alongside as JSON and can be recovered with GetReport.
type Record struct {
	RunID       string    `json:"run_id"`
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"`
	Beta        float64   `json:"beta"`
	Gamma       float64   `json:"gamma"`
	R0          float64   `json:"r0"`
	SSR         float64   `json:"ssr"`
	Converged   bool      `json:"converged"`
	Seed        int64     `json:"seed"`
	ComputeTime float64   `json:"compute_time"`
}

// New creates a new Store with the given database path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		status TEXT NOT NULL,
		beta REAL,
		gamma REAL,
		r0 REAL,
		ssr REAL,
		converged INTEGER DEFAULT 0,
		seed INTEGER DEFAULT 0,
		compute_time REAL DEFAULT 0,
		report TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for custom queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Save archives a run report. Failed runs are archived too; their
// estimate columns stay at zero.
func (s *Store) Save(report *results.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	var beta, gamma, r0, ssr float64
	var converged bool
	if report.Estimate != nil {
		beta = report.Estimate.Beta
		gamma = report.Estimate.Gamma
		r0 = report.Estimate.R0
		ssr = report.Estimate.SSR
		converged = report.Estimate.Converged
	}

	_, err = s.db.Exec(
		`INSERT INTO runs (run_id, timestamp, status, beta, gamma, r0, ssr,
		 converged, seed, compute_time, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.Metadata.RunID, report.Metadata.Timestamp.UTC(), report.Metadata.Status,
		beta, gamma, r0, ssr, converged, report.Scenario.Seed,
		report.Metadata.ComputeTime, string(data),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Get retrieves the indexed record for a run by ID.
func (s *Store) Get(runID string) (*Record, error) {
	row := s.db.QueryRow(
		`SELECT run_id, timestamp, status, beta, gamma, r0, ssr, converged,
		 seed, compute_time
		 FROM runs WHERE run_id = ?`, runID,
	)

	var rec Record
	err := row.Scan(&rec.RunID, &rec.Timestamp, &rec.Status, &rec.Beta, &rec.Gamma,
		&rec.R0, &rec.SSR, &rec.Converged, &rec.Seed, &rec.ComputeTime)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetReport recovers the full archived report for a run.
func (s *Store) GetReport(runID string) (*results.Report, error) {
	row := s.db.QueryRow(`SELECT report FROM runs WHERE run_id = ?`, runID)

	var data string
	if err := row.Scan(&data); err != nil {
		return nil, err
	}

	var report results.Report
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &report, nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(limit int) ([]*Record, error) {
	rows, err := s.db.Query(
		`SELECT run_id, timestamp, status, beta, gamma, r0, ssr, converged,
		 seed, compute_time
		 FROM runs ORDER BY timestamp DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		err := rows.Scan(&rec.RunID, &rec.Timestamp, &rec.Status, &rec.Beta, &rec.Gamma,
			&rec.R0, &rec.SSR, &rec.Converged, &rec.Seed, &rec.ComputeTime)
		if err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Best returns the converged run with the lowest residual sum of squares.
func (s *Store) Best() (*Record, error) {
	row := s.db.QueryRow(
		`SELECT run_id, timestamp, status, beta, gamma, r0, ssr, converged,
		 seed, compute_time
		 FROM runs WHERE status = 'success' AND converged = 1
		 ORDER BY ssr ASC LIMIT 1`,
	)

	var rec Record
	err := row.Scan(&rec.RunID, &rec.Timestamp, &rec.Status, &rec.Beta, &rec.Gamma,
		&rec.R0, &rec.SSR, &rec.Converged, &rec.Seed, &rec.ComputeTime)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes an archived run.
func (s *Store) Delete(runID string) error {
	res, err := s.db.Exec(`DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Count returns the number of archived runs.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}

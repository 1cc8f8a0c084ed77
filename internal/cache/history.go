package cache

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/openshift/lightspeed-eval/pkg/types"
)

// HistoryStore records every verdict produced by an evaluation run.
type HistoryStore struct {
	db *sql.DB
}

// Run summarizes one recorded evaluation run.
type Run struct {
	ID        string
	StartedAt time.Time
	Verdicts  int
	Failed    int
}

// OpenHistory opens (or creates) a history database at path.
func OpenHistory(path string) (*HistoryStore, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	h, err := NewHistoryStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

// NewHistoryStore creates the verdict_history table on db if needed.
func NewHistoryStore(db *sql.DB) (*HistoryStore, error) {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS verdict_history (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT    NOT NULL,
			scenario   TEXT    NOT NULL,
			metric     TEXT    NOT NULL,
			score      REAL    NOT NULL,
			threshold  REAL    NOT NULL,
			status     TEXT    NOT NULL,
			reason     TEXT    NOT NULL,
			created_at INTEGER NOT NULL
		)
	`); err != nil {
		return nil, fmt.Errorf("create verdict_history table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_verdict_history_metric_ts
		ON verdict_history (scenario, metric, created_at)
	`); err != nil {
		return nil, fmt.Errorf("create verdict_history index: %w", err)
	}

	return &HistoryStore{db: db}, nil
}

// Record inserts one verdict for scenario under runID.
func (h *HistoryStore) Record(runID, scenario string, v types.Verdict) error {
	_, err := h.db.Exec(
		`INSERT INTO verdict_history (run_id, scenario, metric, score, threshold, status, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, scenario, v.Metric, v.Score, v.Threshold, v.Status, v.Reason, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record verdict history: %w", err)
	}
	return nil
}

// QueryWindow returns the last n scores of metric within scenario, most
// recent first.
func (h *HistoryStore) QueryWindow(scenario, metric string, n int) ([]float64, error) {
	rows, err := h.db.Query(
		`SELECT score FROM verdict_history
		 WHERE scenario = ? AND metric = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		scenario, metric, n,
	)
	if err != nil {
		return nil, fmt.Errorf("query window: %w", err)
	}
	defer rows.Close()

	var scores []float64
	for rows.Next() {
		var s float64
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query window rows: %w", err)
	}
	return scores, nil
}

// Stats computes the mean, population standard deviation and count of the
// recorded scores of metric within scenario.
func (h *HistoryStore) Stats(scenario, metric string) (mean, stddev float64, count int, err error) {
	scores, err := h.QueryWindow(scenario, metric, -1)
	if err != nil {
		return 0, 0, 0, err
	}
	if len(scores) == 0 {
		return 0, 0, 0, nil
	}

	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))

	var sumSq float64
	for _, s := range scores {
		d := s - mean
		sumSq += d * d
	}
	return mean, math.Sqrt(sumSq / float64(len(scores))), len(scores), nil
}

// Runs lists the most recent runs, newest first.
func (h *HistoryStore) Runs(limit int) ([]Run, error) {
	rows, err := h.db.Query(
		`SELECT run_id, MIN(created_at), COUNT(*), SUM(CASE WHEN status != ? THEN 1 ELSE 0 END)
		 FROM verdict_history
		 GROUP BY run_id
		 ORDER BY MIN(created_at) DESC
		 LIMIT ?`,
		types.StatusPass, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started int64
		if err := rows.Scan(&r.ID, &started, &r.Verdicts, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(0, started)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query runs rows: %w", err)
	}
	return runs, nil
}

// Close releases the database.
func (h *HistoryStore) Close() error {
	return h.db.Close()
}

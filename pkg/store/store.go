// Package store persists tuning runs to SQLite so that the per-resample
// estimates of earlier runs can be compared without re-fitting.
package store

import (
	"context"
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/YuminosukeSato/bankloan/pkg/errors"
	"github.com/YuminosukeSato/bankloan/sklearn/model_selection"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	data        TEXT NOT NULL,
	seed        INTEGER NOT NULL,
	metric      TEXT NOT NULL,
	best_config TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS candidates (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	config TEXT NOT NULL,
	param  TEXT NOT NULL,
	value  REAL NOT NULL,
	PRIMARY KEY (run_id, config, param)
);
CREATE TABLE IF NOT EXISTS resample_metrics (
	run_id   TEXT NOT NULL REFERENCES runs(run_id),
	config   TEXT NOT NULL,
	resample TEXT NOT NULL,
	metric   TEXT NOT NULL,
	estimate REAL,
	PRIMARY KEY (run_id, config, resample, metric)
);
CREATE INDEX IF NOT EXISTS idx_resample_metrics_run ON resample_metrics(run_id, metric);
`

// Run identifies one stored tuning run.
type Run struct {
	ID         string
	StartedAt  time.Time
	Data       string
	Seed       uint64
	Metric     string
	BestConfig string
}

// Store is a SQLite-backed results database.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) the database at path. ":memory:" gives
// a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrapf(err, "create directory for %s", path)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	// one connection: an in-memory database lives and dies with it
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "close store")
}

// SaveRun stores a run with every candidate and per-resample estimate in a
// single transaction. NaN estimates are stored as NULL.
func (s *Store) SaveRun(ctx context.Context, run Run, res *model_selection.TuneResult) error {
	if run.ID == "" {
		return errors.NewValidationError("run_id", "is required", run.ID)
	}
	if res == nil {
		return errors.NewValueError("SaveRun", "nil tuning result")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, data, seed, metric, best_config) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Data, int64(run.Seed), run.Metric, run.BestConfig,
	); err != nil {
		return errors.Wrapf(err, "insert run %s", run.ID)
	}

	candStmt, err := tx.PrepareContext(ctx, `INSERT INTO candidates (run_id, config, param, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare candidates")
	}
	defer candStmt.Close()
	for _, set := range res.Grid.Sets {
		for param, value := range set.Values {
			if _, err := candStmt.ExecContext(ctx, run.ID, set.ID, param, value); err != nil {
				return errors.Wrapf(err, "insert candidate %s", set.ID)
			}
		}
	}

	estStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO resample_metrics (run_id, config, resample, metric, estimate) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare resample_metrics")
	}
	defer estStmt.Close()
	for _, e := range res.Estimates {
		var est sql.NullFloat64
		if !math.IsNaN(e.Estimate) {
			est = sql.NullFloat64{Float64: e.Estimate, Valid: true}
		}
		if _, err := estStmt.ExecContext(ctx, run.ID, e.Config, e.Resample, e.Metric, est); err != nil {
			return errors.Wrapf(err, "insert estimate %s/%s", e.Config, e.Resample)
		}
	}

	return errors.Wrap(tx.Commit(), "commit")
}

// Runs lists stored runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, started_at, data, seed, metric, best_config FROM runs ORDER BY started_at, run_id`)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r       Run
			started string
			seed    int64
		)
		if err := rows.Scan(&r.ID, &started, &r.Data, &seed, &r.Metric, &r.BestConfig); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, errors.Wrapf(err, "parse started_at of %s", r.ID)
		}
		r.Seed = uint64(seed)
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "iterate runs")
}

// Estimates returns the stored per-resample estimates of a run ordered by
// config, resample and metric. NULL comes back as NaN.
func (s *Store) Estimates(ctx context.Context, runID string) ([]model_selection.ResampleMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT config, resample, metric, estimate FROM resample_metrics
		 WHERE run_id = ? ORDER BY config, resample, metric`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "query estimates")
	}
	defer rows.Close()

	var out []model_selection.ResampleMetric
	for rows.Next() {
		var (
			m   model_selection.ResampleMetric
			est sql.NullFloat64
		)
		if err := rows.Scan(&m.Config, &m.Resample, &m.Metric, &est); err != nil {
			return nil, errors.Wrap(err, "scan estimate")
		}
		m.Estimate = math.NaN()
		if est.Valid {
			m.Estimate = est.Float64
		}
		out = append(out, m)
	}
	return out, errors.Wrap(rows.Err(), "iterate estimates")
}

// Candidates returns the stored grid of a run.
func (s *Store) Candidates(ctx context.Context, runID string) ([]model_selection.ParamSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT config, param, value FROM candidates WHERE run_id = ?`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "query candidates")
	}
	defer rows.Close()

	byID := map[string]map[string]float64{}
	for rows.Next() {
		var (
			config, param string
			value         float64
		)
		if err := rows.Scan(&config, &param, &value); err != nil {
			return nil, errors.Wrap(err, "scan candidate")
		}
		if byID[config] == nil {
			byID[config] = map[string]float64{}
		}
		byID[config][param] = value
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate candidates")
	}

	out := make([]model_selection.ParamSet, 0, len(byID))
	for id, values := range byID {
		out = append(out, model_selection.ParamSet{ID: id, Values: values})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

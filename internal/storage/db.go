package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/san-kum/tshirt/internal/sim"
)

// DB stores runs and their step tables in a single SQLite file.
type DB struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	soil       TEXT NOT NULL,
	created_at TEXT NOT NULL,
	dt         REAL NOT NULL,
	steps      INTEGER NOT NULL,
	violations INTEGER NOT NULL,
	params     BLOB NOT NULL,
	metrics    BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS steps (
	run_id           TEXT NOT NULL REFERENCES runs(id),
	step             INTEGER NOT NULL,
	time             REAL NOT NULL,
	precip           REAL NOT NULL,
	pet              REAL NOT NULL,
	surface_runoff   REAL NOT NULL,
	lateral_flow     REAL NOT NULL,
	groundwater_flow REAL NOT NULL,
	percolation      REAL NOT NULL,
	et_loss          REAL NOT NULL,
	soil             REAL NOT NULL,
	groundwater      REAL NOT NULL,
	residual         REAL NOT NULL,
	PRIMARY KEY (run_id, step)
);`

func OpenDB(path string) (*DB, error) {
	if path == "" {
		path = "tshirt.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error { return d.db.Close() }

// SaveRun inserts a run and all of its steps in one transaction.
func (d *DB) SaveRun(ctx context.Context, meta RunMetadata, result *sim.Result) (retErr error) {
	params, err := json.Marshal(meta.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	metrics, err := json.Marshal(meta.Metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, name, soil, created_at, dt, steps, violations, params, metrics)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Name, meta.Soil, meta.Timestamp.UTC().Format(time.RFC3339Nano),
		meta.Dt, meta.Steps, meta.Violations, params, metrics,
	); err != nil {
		return fmt.Errorf("insert run %s: %w", meta.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO steps (run_id, step, time, precip, pet, surface_runoff, lateral_flow,
		 groundwater_flow, percolation, et_loss, soil, groundwater, residual)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare steps: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, f := range result.Fluxes {
		rec := result.Forcing[i]
		st := result.States[i+1]
		if _, err := stmt.ExecContext(ctx,
			meta.ID, i, result.Times[i+1], rec.Precip, rec.PET,
			f.SurfaceRunoff, f.SoilLateralFlow, f.GroundwaterFlow, f.SoilPercolation, f.ETLoss,
			st.Soil, st.Groundwater, result.Balances[i].Residual,
		); err != nil {
			return fmt.Errorf("insert step %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (d *DB) ListRuns(ctx context.Context) ([]RunMetadata, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, soil, created_at, dt, steps, violations, params, metrics
		 FROM runs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		var (
			meta            RunMetadata
			created         string
			params, metrics []byte
		)
		if err := rows.Scan(&meta.ID, &meta.Name, &meta.Soil, &created, &meta.Dt,
			&meta.Steps, &meta.Violations, &params, &metrics); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if meta.Timestamp, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("run %s timestamp: %w", meta.ID, err)
		}
		if err := json.Unmarshal(params, &meta.Params); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
		if err := json.Unmarshal(metrics, &meta.Metrics); err != nil {
			return nil, fmt.Errorf("decode metrics: %w", err)
		}
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}

// StepRow is one stored step.
type StepRow struct {
	Step            int
	Time            float64
	Precip          float64
	PET             float64
	SurfaceRunoff   float64
	LateralFlow     float64
	GroundwaterFlow float64
	Percolation     float64
	ETLoss          float64
	Soil            float64
	Groundwater     float64
	Residual        float64
}

func (d *DB) LoadSteps(ctx context.Context, runID string) ([]StepRow, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT step, time, precip, pet, surface_runoff, lateral_flow, groundwater_flow,
		 percolation, et_loss, soil, groundwater, residual
		 FROM steps WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("select steps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []StepRow
	for rows.Next() {
		var r StepRow
		if err := rows.Scan(&r.Step, &r.Time, &r.Precip, &r.PET, &r.SurfaceRunoff, &r.LateralFlow,
			&r.GroundwaterFlow, &r.Percolation, &r.ETLoss, &r.Soil, &r.Groundwater, &r.Residual); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

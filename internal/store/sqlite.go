package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/cmg777/nightlights/internal/aggregate"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	raster_path TEXT NOT NULL,
	vector_path TEXT NOT NULL,
	level       TEXT NOT NULL,
	strategy    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'queued',
	diagnostics TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_totals (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	region_id TEXT NOT NULL,
	total     REAL NOT NULL,
	PRIMARY KEY (run_id, region_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_totals_run_id ON run_totals(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run Run) (*Run, error) {
	run.ID = uuid.New().String()
	run.Status = RunStatusQueued
	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, raster_path, vector_path, level, strategy, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.RasterPath, run.VectorPath, run.Level, run.Strategy, string(run.Status), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return &run, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, id string, status RunStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	return eris.Wrap(err, "sqlite: update run status")
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, status RunStatus, diags *aggregate.Diagnostics) error {
	var diagJSON *string
	if diags != nil {
		data, err := json.Marshal(diags)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal diagnostics")
		}
		str := string(data)
		diagJSON = &str
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, diagnostics = ?, updated_at = ? WHERE id = ?`,
		string(status), diagJSON, time.Now().UTC(), id,
	)
	return eris.Wrap(err, "sqlite: complete run")
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	var status string
	var diagJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, raster_path, vector_path, level, strategy, status, diagnostics, created_at, updated_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.RasterPath, &run.VectorPath, &run.Level, &run.Strategy,
		&status, &diagJSON, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get run")
	}
	run.Status = RunStatus(status)
	if diagJSON.Valid {
		var diags aggregate.Diagnostics
		if err := json.Unmarshal([]byte(diagJSON.String), &diags); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal diagnostics")
		}
		run.Diagnostics = &diags
	}
	return &run, nil
}

func (s *SQLiteStore) SaveTotals(ctx context.Context, runID string, rows []aggregate.Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin totals tx")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_totals (run_id, region_id, total) VALUES (?, ?, ?)
		 ON CONFLICT (run_id, region_id) DO UPDATE SET total = excluded.total`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare totals insert")
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, runID, row.RegionID, row.Total); err != nil {
			return eris.Wrapf(err, "sqlite: insert total for %s", row.RegionID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit totals")
}

func (s *SQLiteStore) GetTotals(ctx context.Context, runID string) ([]aggregate.Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT region_id, total FROM run_totals WHERE run_id = ? ORDER BY region_id`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query totals")
	}
	defer rows.Close()

	var out []aggregate.Row
	for rows.Next() {
		var r aggregate.Row
		if err := rows.Scan(&r.RegionID, &r.Total); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan total row")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate total rows")
	}
	return out, nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/cmg777/nightlights/internal/aggregate"
	"github.com/cmg777/nightlights/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	raster_path TEXT NOT NULL,
	vector_path TEXT NOT NULL,
	level       TEXT NOT NULL,
	strategy    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'queued',
	diagnostics JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_totals (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	region_id TEXT NOT NULL,
	total     DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, region_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_totals_run_id ON run_totals(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run Run) (*Run, error) {
	run.ID = uuid.New().String()
	run.Status = RunStatusQueued
	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, raster_path, vector_path, level, strategy, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.RasterPath, run.VectorPath, run.Level, run.Strategy, string(run.Status), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return &run, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, id string, status RunStatus) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	return eris.Wrap(err, "postgres: update run status")
}

func (s *PostgresStore) CompleteRun(ctx context.Context, id string, status RunStatus, diags *aggregate.Diagnostics) error {
	var diagJSON []byte
	if diags != nil {
		var err error
		diagJSON, err = json.Marshal(diags)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal diagnostics")
		}
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, diagnostics = $2, updated_at = $3 WHERE id = $4`,
		string(status), diagJSON, time.Now().UTC(), id,
	)
	return eris.Wrap(err, "postgres: complete run")
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	var status string
	var diagJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, raster_path, vector_path, level, strategy, status, diagnostics, created_at, updated_at
		 FROM runs WHERE id = $1`, id,
	).Scan(&run.ID, &run.RasterPath, &run.VectorPath, &run.Level, &run.Strategy,
		&status, &diagJSON, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get run")
	}
	run.Status = RunStatus(status)
	if len(diagJSON) > 0 {
		var diags aggregate.Diagnostics
		if err := json.Unmarshal(diagJSON, &diags); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal diagnostics")
		}
		run.Diagnostics = &diags
	}
	return &run, nil
}

// SaveTotals bulk-inserts per-region totals with the COPY protocol.
func (s *PostgresStore) SaveTotals(ctx context.Context, runID string, rows []aggregate.Row) error {
	copyRows := make([][]any, 0, len(rows))
	for _, row := range rows {
		copyRows = append(copyRows, []any{runID, row.RegionID, row.Total})
	}
	_, err := db.CopyFrom(ctx, s.pool, "run_totals", []string{"run_id", "region_id", "total"}, copyRows)
	return err
}

func (s *PostgresStore) GetTotals(ctx context.Context, runID string) ([]aggregate.Row, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT region_id, total FROM run_totals WHERE run_id = $1 ORDER BY region_id`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query totals")
	}
	defer rows.Close()

	var out []aggregate.Row
	for rows.Next() {
		var r aggregate.Row
		if err := rows.Scan(&r.RegionID, &r.Total); err != nil {
			return nil, eris.Wrap(err, "postgres: scan total row")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate total rows")
	}
	return out, nil
}

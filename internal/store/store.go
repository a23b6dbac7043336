// Package store persists aggregation runs and their per-region totals.
// The aggregation core never requires a store; the CLI and server wire one in
// when configured.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/cmg777/nightlights/internal/aggregate"
	"github.com/cmg777/nightlights/internal/config"
)

// RunStatus tracks a run through its lifecycle.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one aggregation invocation: which raster and vector inputs, which
// administrative level, and how it ended.
type Run struct {
	ID          string                 `json:"id"`
	RasterPath  string                 `json:"raster_path"`
	VectorPath  string                 `json:"vector_path"`
	Level       string                 `json:"level"`
	Strategy    string                 `json:"strategy"`
	Status      RunStatus              `json:"status"`
	Diagnostics *aggregate.Diagnostics `json:"diagnostics,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Store persists runs and totals.
type Store interface {
	Migrate(ctx context.Context) error
	CreateRun(ctx context.Context, run Run) (*Run, error)
	UpdateRunStatus(ctx context.Context, id string, status RunStatus) error
	CompleteRun(ctx context.Context, id string, status RunStatus, diags *aggregate.Diagnostics) error
	GetRun(ctx context.Context, id string) (*Run, error)
	SaveTotals(ctx context.Context, runID string, rows []aggregate.Row) error
	GetTotals(ctx context.Context, runID string) ([]aggregate.Row, error)
	Close() error
}

// Open creates a Store from configuration.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.SQLitePath)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

package aggregate

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cmg777/nightlights/internal/align"
	"github.com/cmg777/nightlights/internal/raster"
	"github.com/cmg777/nightlights/internal/region"
)

// Strategy selects how totals are computed.
type Strategy string

const (
	// StrategyBulk indexes every part against the aligned raster in one pass.
	StrategyBulk Strategy = "bulk"
	// StrategyBounded processes regions in small passes with bounded peak
	// memory; preferred for very large polygon counts.
	StrategyBounded Strategy = "bounded"
)

// Options parameterizes one pipeline invocation. The same pipeline serves
// every administrative level (countries, NUTS regions, states); level-specific
// behavior lives entirely in these parameters, never in separate code paths.
type Options struct {
	BoundingBox       *raster.Extent
	Reprojector       align.Reprojector
	Strategy          Strategy
	Workers           int
	MaxRegionsPerPass int
	BestEffort        bool
	Progress          func(done, total int)
}

// Run executes the aggregation pipeline: align CRS and extents, validate and
// repair geometries, decompose to simple parts, then sum cell values per
// region via the bulk or bounded strategy. The raster and region inputs are
// read-only; all state flows through explicit parameters and return values.
func Run(ctx context.Context, surface *raster.Surface, regions *region.Collection, opts Options) (*Result, *Diagnostics, error) {
	log := zap.L().With(zap.String("component", "aggregate.pipeline"))

	trackPhase := func(name string, fn func() error) error {
		start := time.Now()
		err := fn()
		duration := time.Since(start).Milliseconds()
		if err != nil {
			log.Error("phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
				zap.Error(err),
			)
			return err
		}
		log.Info("phase complete",
			zap.String("phase", name),
			zap.Int64("duration_ms", duration),
		)
		return nil
	}

	// Phase 1: align raster and vector extents and projections.
	var alignedSurface *raster.Surface
	var alignedRegions *region.Collection
	if err := trackPhase("align", func() error {
		var err error
		alignedSurface, alignedRegions, err = align.Align(surface, regions, align.Options{
			BoundingBox: opts.BoundingBox,
			Reprojector: opts.Reprojector,
		})
		return err
	}); err != nil {
		return nil, nil, err
	}

	// Phase 2: validate and repair geometries before decomposition.
	var repaired *region.Collection
	var invalid []region.InvalidGeometry
	if err := trackPhase("validate", func() error {
		var err error
		repaired, invalid, err = region.ValidateAndRepair(alignedRegions)
		return err
	}); err != nil {
		return nil, nil, err
	}

	var result *Result
	var diags *Diagnostics

	switch opts.Strategy {
	case StrategyBounded:
		if err := trackPhase("aggregate_bounded", func() error {
			var err error
			result, diags, err = AggregateBounded(ctx, alignedSurface, repaired, BoundedOptions{
				MaxRegionsPerPass: opts.MaxRegionsPerPass,
				Workers:           opts.Workers,
				BestEffort:        opts.BestEffort,
				Progress:          opts.Progress,
			})
			return err
		}); err != nil {
			return nil, nil, err
		}

	case StrategyBulk, "":
		// Phase 3: decompose to simple parts.
		var parts []region.SimplePart
		if err := trackPhase("decompose", func() error {
			parts = region.Decompose(repaired)
			return nil
		}); err != nil {
			return nil, nil, err
		}

		// Phase 4: index cells and sum.
		var idx CellIndex
		if err := trackPhase("index", func() error {
			var err error
			idx, err = Index(ctx, alignedSurface, parts, IndexOptions{Workers: opts.Workers})
			return err
		}); err != nil {
			return nil, nil, err
		}
		if err := trackPhase("sum", func() error {
			var err error
			result, diags, err = Aggregate(alignedSurface, idx, parts, repaired)
			return err
		}); err != nil {
			return nil, nil, err
		}

	default:
		return nil, nil, eris.Errorf("aggregate: unknown strategy %q", opts.Strategy)
	}

	diags.InvalidGeometries = invalid

	log.Info("aggregation complete",
		zap.Int("regions", len(result.Order)),
		zap.Int("empty_coverage", len(diags.EmptyCoverage)),
		zap.Int("invalid_geometries", len(invalid)),
	)
	return result, diags, nil
}

package aggregate

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cmg777/nightlights/internal/raster"
	"github.com/cmg777/nightlights/internal/region"
)

// BoundedOptions configures the memory-bounded aggregation path.
type BoundedOptions struct {
	// MaxRegionsPerPass bounds how many regions hold working memory at once.
	// Zero means one region at a time.
	MaxRegionsPerPass int
	// Workers bounds concurrency within a pass; capped at MaxRegionsPerPass.
	Workers int
	// BestEffort records a failing region and continues instead of aborting
	// the whole batch.
	BestEffort bool
	// Progress, when set, is called after each completed region with the
	// number of regions done and the total.
	Progress func(done, total int)
}

// regionOutcome is the per-region working state of one pass. It holds the
// only references to that region's cropped raster window, so dropping the
// outcome after the reduction releases the window's memory.
type regionOutcome struct {
	sum     float64
	covered int
	noParts bool
	err     error
}

// AggregateBounded computes the same totals as Index+Aggregate but processes
// regions in small passes: each region's raster window is cropped, indexed,
// summed, and released before later passes start. Peak memory is proportional
// to one pass's largest windows instead of the whole raster. Totals agree
// with the bulk path up to floating-point summation order.
func AggregateBounded(ctx context.Context, surface *raster.Surface, regions *region.Collection, opts BoundedOptions) (*Result, *Diagnostics, error) {
	if regions == nil || regions.Len() == 0 {
		return nil, nil, eris.New("aggregate: empty region collection")
	}

	passSize := opts.MaxRegionsPerPass
	if passSize <= 0 {
		passSize = 1
	}
	workers := opts.Workers
	if workers <= 0 || workers > passSize {
		workers = passSize
	}

	log := zap.L().With(zap.String("component", "aggregate.bounded"))

	result := NewResult(regions.IDs())
	diags := &Diagnostics{}
	emptySet := make(map[string]struct{})

	total := regions.Len()
	done := 0

	for start := 0; start < total; start += passSize {
		end := start + passSize
		if end > total {
			end = total
		}
		batch := regions.Regions[start:end]
		outcomes := make([]regionOutcome, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i := range batch {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				outcomes[i] = processRegion(surface, batch[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nil, eris.Wrap(err, "aggregate: bounded pass")
		}

		// Single-writer reduction into the shared result.
		for i, r := range batch {
			out := outcomes[i]
			if out.err != nil {
				if !opts.BestEffort {
					return nil, nil, eris.Wrapf(out.err, "aggregate: region %s", r.ID)
				}
				if diags.Failed == nil {
					diags.Failed = map[string]string{}
				}
				diags.Failed[r.ID] = out.err.Error()
				log.Warn("best-effort: skipping failed region",
					zap.String("region_id", r.ID),
					zap.Error(out.err),
				)
			} else {
				result.Totals[r.ID] = out.sum
				if out.covered == 0 {
					emptySet[r.ID] = struct{}{}
				}
				if out.noParts {
					diags.NoParts = append(diags.NoParts, r.ID)
				}
			}
			done++
			if opts.Progress != nil {
				opts.Progress(done, total)
			}
		}
	}

	if len(diags.NoParts) > 0 {
		log.Warn("regions decomposed into zero parts, zero-filled",
			zap.Strings("region_ids", diags.NoParts),
		)
	}
	diags.EmptyCoverage = sortedIDs(emptySet)
	if len(diags.EmptyCoverage) > 0 {
		log.Debug("regions with no covered cells, zero-filled",
			zap.Int("count", len(diags.EmptyCoverage)),
		)
	}
	return result, diags, nil
}

// processRegion runs one region's CROP, INDEX and SUM steps against the full
// surface. All intermediates stay local, so the caller's reduction step is
// the RELEASE.
func processRegion(surface *raster.Surface, r region.Region) regionOutcome {
	if r.Geometry == nil || r.Geometry.NumPolygons() == 0 {
		// Zero parts zero-fills, same as the bulk path.
		return regionOutcome{noParts: true}
	}

	// CROP: restrict the raster to the region's bounding extent. A region
	// entirely outside the raster covers nothing.
	window := r.Extent().Intersect(surface.Extent())
	if window.IsZero() {
		return regionOutcome{}
	}
	crop, err := surface.Crop(window)
	if err != nil {
		return regionOutcome{}
	}

	// INDEX + SUM over the cropped window only.
	var sum float64
	var covered int
	for i := 0; i < r.Geometry.NumPolygons(); i++ {
		part := region.SimplePart{ParentID: r.ID, Ordinal: i, Polygon: r.Geometry.Polygon(i)}
		for _, cell := range indexPart(crop, part) {
			v := crop.Value(cell)
			if crop.IsNoData(v) {
				continue
			}
			sum += v
			covered++
		}
	}
	return regionOutcome{sum: sum, covered: covered}
}

package aggregate

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/cmg777/nightlights/internal/raster"
	"github.com/cmg777/nightlights/internal/region"
)

// IndexOptions configures cell indexing.
type IndexOptions struct {
	// Workers bounds the number of parts indexed concurrently. Zero means
	// one worker per CPU. Part computations are independent; results are
	// written to per-part slots and reduced by a single writer, so output is
	// identical regardless of worker count.
	Workers int
}

// Index determines, for every simple part, the raster cells whose center
// point lies inside the part's polygon. Only cells within the part's bounding
// box window are tested, never the full grid. Parts whose bounding box misses
// the raster extent map to an empty cell set.
func Index(ctx context.Context, surface *raster.Surface, parts []region.SimplePart, opts IndexOptions) (CellIndex, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	slots := make([][]int, len(parts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range parts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			slots[i] = indexPart(surface, parts[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := make(CellIndex, len(parts))
	for i, part := range parts {
		idx[part.Key()] = slots[i]
	}
	return idx, nil
}

// indexPart scans the cells inside the part's bounding box window and keeps
// those whose center is inside the polygon. Cell ids come out sorted because
// the scan is row-major.
func indexPart(surface *raster.Surface, part region.SimplePart) []int {
	row0, row1, col0, col1, ok := surface.Window(part.Extent())
	if !ok {
		return nil
	}
	var cells []int
	for row := row0; row <= row1; row++ {
		for col := col0; col <= col1; col++ {
			x, y := surface.CellCenter(row, col)
			if region.PolygonContains(part.Polygon, x, y) {
				cells = append(cells, surface.CellID(row, col))
			}
		}
	}
	return cells
}

package aggregate

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cmg777/nightlights/internal/raster"
	"github.com/cmg777/nightlights/internal/region"
)

// Aggregate sums raster values at each part's indexed cells and re-aggregates
// part sums to parent-region totals. Cells holding the raster's missing-value
// sentinel are excluded from the sum, not zero-substituted. Regions whose
// parts cover no cell center are zero-filled and reported in the returned
// empty-coverage list; regions with zero parts are zero-filled with a warning.
// Every region id in the input collection has exactly one entry in the result.
func Aggregate(surface *raster.Surface, idx CellIndex, parts []region.SimplePart, regions *region.Collection) (*Result, *Diagnostics, error) {
	if regions == nil || regions.Len() == 0 {
		return nil, nil, eris.New("aggregate: empty region collection")
	}

	log := zap.L().With(zap.String("component", "aggregate"))

	result := NewResult(regions.IDs())
	covered := make(map[string]int, regions.Len())
	hasParts := make(map[string]struct{}, regions.Len())

	for _, part := range parts {
		if _, ok := result.Totals[part.ParentID]; !ok {
			return nil, nil, eris.Errorf("aggregate: part %s references unknown region", part.Key())
		}
		hasParts[part.ParentID] = struct{}{}

		var sum float64
		var n int
		for _, cell := range idx[part.Key()] {
			v := surface.Value(cell)
			if surface.IsNoData(v) {
				continue
			}
			sum += v
			n++
		}
		result.Totals[part.ParentID] += sum
		covered[part.ParentID] += n
	}

	diags := &Diagnostics{}
	emptySet := make(map[string]struct{})
	for _, id := range result.Order {
		if covered[id] == 0 {
			emptySet[id] = struct{}{}
		}
		if _, ok := hasParts[id]; !ok {
			diags.NoParts = append(diags.NoParts, id)
		}
	}
	diags.EmptyCoverage = sortedIDs(emptySet)

	if len(diags.NoParts) > 0 {
		log.Warn("regions decomposed into zero parts, zero-filled",
			zap.Strings("region_ids", diags.NoParts),
		)
	}
	if len(diags.EmptyCoverage) > 0 {
		log.Debug("regions with no covered cells, zero-filled",
			zap.Int("count", len(diags.EmptyCoverage)),
		)
	}

	return result, diags, nil
}

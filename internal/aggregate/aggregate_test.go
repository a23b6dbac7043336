package aggregate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmg777/nightlights/internal/raster"
	"github.com/cmg777/nightlights/internal/region"
)

func regionCollection(t *testing.T, regions ...region.Region) *region.Collection {
	t.Helper()
	c, err := region.NewCollection("EPSG:3857", regions)
	require.NoError(t, err)
	return c
}

func bulkTotals(t *testing.T, s *raster.Surface, c *region.Collection) (*Result, *Diagnostics) {
	t.Helper()
	parts := region.Decompose(c)
	idx, err := Index(context.Background(), s, parts, IndexOptions{Workers: 2})
	require.NoError(t, err)
	result, diags, err := Aggregate(s, idx, parts, c)
	require.NoError(t, err)
	return result, diags
}

func TestAggregate_EveryRegionPresent(t *testing.T) {
	s := gridSurface(t)
	c := regionCollection(t,
		region.Region{ID: "nw", Geometry: mpOf(t, squarePoly(t, 0, 40, 20))},
		region.Region{ID: "gap", Geometry: mpOf(t, squarePoly(t, 6, 6, 3))},
		region.Region{ID: "far", Geometry: mpOf(t, squarePoly(t, 500, 500, 10))},
	)

	result, diags := bulkTotals(t, s, c)

	rows := result.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "nw", rows[0].RegionID)
	assert.Equal(t, 14.0, rows[0].Total) // cells 0+1+6+7
	assert.Equal(t, 0.0, rows[1].Total)
	assert.Equal(t, 0.0, rows[2].Total)
	assert.ElementsMatch(t, []string{"far", "gap"}, diags.EmptyCoverage)
}

func TestAggregate_MultiPartSum(t *testing.T) {
	s := gridSurface(t)

	// Island sums: nw block = 0+1+6+7 = 14, se block = 28+29+34+35 = 126.
	arch := regionCollection(t,
		region.Region{ID: "arch", Geometry: mpOf(t,
			squarePoly(t, 0, 40, 20),
			squarePoly(t, 40, 0, 20),
		)},
	)
	nwOnly := regionCollection(t,
		region.Region{ID: "nw", Geometry: mpOf(t, squarePoly(t, 0, 40, 20))},
	)
	seOnly := regionCollection(t,
		region.Region{ID: "se", Geometry: mpOf(t, squarePoly(t, 40, 0, 20))},
	)

	archResult, _ := bulkTotals(t, s, arch)
	nwResult, _ := bulkTotals(t, s, nwOnly)
	seResult, _ := bulkTotals(t, s, seOnly)

	assert.Equal(t, 14.0, nwResult.Totals["nw"])
	assert.Equal(t, 126.0, seResult.Totals["se"])
	assert.Equal(t, nwResult.Totals["nw"]+seResult.Totals["se"], archResult.Totals["arch"])
}

func TestAggregate_NoDataExcluded(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"sentinel between values", []float64{5, -9999, -3}, 2},
		{"leading sentinels", []float64{-9999, -9999, 4}, 4},
		{"all sentinels zero-fills", []float64{-9999, -9999, -9999}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := raster.New(tt.values, 3, 1, raster.GeoTransform{
				OriginX: 0, OriginY: 10, CellWidth: 10, CellHeight: 10,
			}, "EPSG:3857", raster.WithNoData(-9999))
			require.NoError(t, err)

			c := regionCollection(t,
				region.Region{ID: "r", Geometry: mpOf(t, squarePoly(t, 0, 0, 30))},
			)
			result, diags := bulkTotals(t, s, c)
			assert.Equal(t, tt.want, result.Totals["r"])
			if tt.want == 0 {
				assert.Equal(t, []string{"r"}, diags.EmptyCoverage)
			} else {
				assert.Empty(t, diags.EmptyCoverage)
			}
		})
	}
}

func TestAggregate_NegativeValuesSummed(t *testing.T) {
	// Negative radiance is a real value, only the sentinel is excluded.
	s, err := raster.New([]float64{-1.5, 2, -0.5}, 3, 1, raster.GeoTransform{
		OriginX: 0, OriginY: 10, CellWidth: 10, CellHeight: 10,
	}, "EPSG:3857", raster.WithNoData(-9999))
	require.NoError(t, err)

	c := regionCollection(t,
		region.Region{ID: "r", Geometry: mpOf(t, squarePoly(t, 0, 0, 30))},
	)
	result, _ := bulkTotals(t, s, c)
	assert.InDelta(t, 0.0, result.Totals["r"], 1e-12)
}

func TestAggregate_OverlappingRegionsIndependent(t *testing.T) {
	s := gridSurface(t)
	c := regionCollection(t,
		region.Region{ID: "a", Geometry: mpOf(t, squarePoly(t, 0, 40, 20))},
		region.Region{ID: "b", Geometry: mpOf(t, squarePoly(t, 0, 40, 20))},
	)

	result, _ := bulkTotals(t, s, c)
	// Shared cells count fully toward both regions.
	assert.Equal(t, 14.0, result.Totals["a"])
	assert.Equal(t, 14.0, result.Totals["b"])
}

func TestAggregate_ZeroPartRegion(t *testing.T) {
	s := gridSurface(t)
	c := regionCollection(t,
		region.Region{ID: "ok", Geometry: mpOf(t, squarePoly(t, 0, 40, 20))},
		region.Region{ID: "empty", Geometry: mpOf(t)},
	)

	result, diags := bulkTotals(t, s, c)
	assert.Equal(t, 0.0, result.Totals["empty"])
	assert.Equal(t, []string{"empty"}, diags.NoParts)
}

func TestAggregate_UnknownParent(t *testing.T) {
	s := gridSurface(t)
	c := regionCollection(t,
		region.Region{ID: "known", Geometry: mpOf(t, squarePoly(t, 0, 40, 20))},
	)
	parts := []region.SimplePart{
		{ParentID: "ghost", Ordinal: 0, Polygon: squarePoly(t, 0, 40, 20)},
	}
	idx, err := Index(context.Background(), s, parts, IndexOptions{})
	require.NoError(t, err)

	_, _, err = Aggregate(s, idx, parts, c)
	assert.Error(t, err)
}

func TestAggregate_EmptyCollection(t *testing.T) {
	s := gridSurface(t)
	_, _, err := Aggregate(s, CellIndex{}, nil, &region.Collection{CRS: "EPSG:3857"})
	assert.Error(t, err)
}

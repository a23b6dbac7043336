package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collection(t *testing.T, regions ...Region) *Collection {
	t.Helper()
	c, err := NewCollection("EPSG:4326", regions)
	require.NoError(t, err)
	return c
}

func TestValidateAndRepair_ValidPassThrough(t *testing.T) {
	c := collection(t,
		Region{ID: "A", Geometry: multiPolygon(t, polygonFromRings(t, square(0, 0, 10)))},
		Region{ID: "B", Geometry: multiPolygon(t, polygonFromRings(t, square(20, 0, 5)))},
	)

	fixed, diags, err := ValidateAndRepair(c)
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Equal(t, 2, fixed.Len())
	assert.Equal(t, []string{"A", "B"}, fixed.IDs())
}

func TestValidateAndRepair_UnclosedRing(t *testing.T) {
	// Open ring: last point missing. go-geom accepts the flat coords; the
	// validator flags it and the repair closes it.
	open := []float64{0, 0, 10, 0, 10, 10, 0, 10}
	c := collection(t,
		Region{ID: "A", Geometry: multiPolygon(t, polygonFromRings(t, open))},
	)

	fixed, diags, err := ValidateAndRepair(c)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "A", diags[0].RegionID)
	assert.Equal(t, "unclosed ring", diags[0].Reason)
	assert.True(t, diags[0].Repaired)

	assert.Equal(t, "", validateMultiPolygon(fixed.Regions[0].Geometry))
	assert.True(t, MultiPolygonContains(fixed.Regions[0].Geometry, 5, 5))
}

func TestValidateAndRepair_WrongWinding(t *testing.T) {
	cw := square(0, 0, 10)
	reverseCoords(cw)
	// A clockwise shell has negative area; validateRing accepts it (nonzero
	// area, closed, no crossing), so winding alone is not flagged.
	c := collection(t,
		Region{ID: "A", Geometry: multiPolygon(t, polygonFromRings(t, cw))},
	)
	fixed, diags, err := ValidateAndRepair(c)
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.True(t, MultiPolygonContains(fixed.Regions[0].Geometry, 5, 5))
}

func TestValidateAndRepair_UnrepairableKeepsOriginal(t *testing.T) {
	// Bowtie: self-intersecting, and closing/dedupe does not fix the crossing.
	// Asymmetric so its signed area stays nonzero.
	bowtie := []float64{0, 0, 10, 10, 10, 0, 0, 20, 0, 0}
	original := multiPolygon(t, polygonFromRings(t, bowtie))
	c := collection(t, Region{ID: "A", Geometry: original})

	fixed, diags, err := ValidateAndRepair(c)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "self-intersecting ring", diags[0].Reason)
	assert.False(t, diags[0].Repaired)

	// Region is retained with its original geometry.
	require.Equal(t, 1, fixed.Len())
	assert.Same(t, original, fixed.Regions[0].Geometry)
}

func TestValidateAndRepair_EmptyCollection(t *testing.T) {
	_, _, err := ValidateAndRepair(&Collection{CRS: "EPSG:4326"})
	assert.Error(t, err)
}

func TestValidateRing(t *testing.T) {
	tests := []struct {
		name string
		flat []float64
		want string
	}{
		{"valid", square(0, 0, 1), ""},
		{"too few points", []float64{0, 0, 1, 0, 0, 0}, "ring with fewer than 4 points"},
		{"unclosed", []float64{0, 0, 1, 0, 1, 1, 0, 1}, "unclosed ring"},
		{"zero area", []float64{0, 0, 1, 0, 2, 0, 0, 0}, "zero-area ring"},
		{"self-intersecting", []float64{0, 0, 10, 10, 10, 0, 0, 20, 0, 0}, "self-intersecting ring"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validateRing(tt.flat))
		})
	}
}

func TestRepairRing(t *testing.T) {
	t.Run("closes open ring", func(t *testing.T) {
		got := repairRing([]float64{0, 0, 10, 0, 10, 10, 0, 10}, false)
		require.NotNil(t, got)
		n := len(got)
		assert.Equal(t, got[0], got[n-2])
		assert.Equal(t, got[1], got[n-1])
	})

	t.Run("rewinds clockwise shell", func(t *testing.T) {
		cw := square(0, 0, 10)
		reverseCoords(cw)
		got := repairRing(cw, false)
		require.NotNil(t, got)
		assert.Greater(t, ringArea(got), 0.0)
	})

	t.Run("rewinds counter-clockwise hole", func(t *testing.T) {
		got := repairRing(square(0, 0, 10), true)
		require.NotNil(t, got)
		assert.Less(t, ringArea(got), 0.0)
	})

	t.Run("degenerate returns nil", func(t *testing.T) {
		assert.Nil(t, repairRing([]float64{0, 0, 1, 1}, false))
		assert.Nil(t, repairRing([]float64{0, 0, 1, 0, 2, 0, 0, 0}, false))
	})
}

func TestDecompose(t *testing.T) {
	c := collection(t,
		Region{ID: "solo", Geometry: multiPolygon(t, polygonFromRings(t, square(0, 0, 1)))},
		Region{ID: "archipelago", Geometry: multiPolygon(t,
			polygonFromRings(t, square(10, 0, 1)),
			polygonFromRings(t, square(20, 0, 1)),
			polygonFromRings(t, square(30, 0, 1)),
		)},
	)

	parts := Decompose(c)
	require.Len(t, parts, 4)

	byParent := map[string]int{}
	for _, p := range parts {
		byParent[p.ParentID]++
	}
	assert.Equal(t, 1, byParent["solo"])
	assert.Equal(t, 3, byParent["archipelago"])

	assert.Equal(t, "archipelago#0", parts[1].Key())
	assert.Equal(t, "archipelago#2", parts[3].Key())
}

func TestNewCollection_Rejections(t *testing.T) {
	g := multiPolygon(t, polygonFromRings(t, square(0, 0, 1)))

	_, err := NewCollection("", []Region{{ID: "", Geometry: g}})
	assert.Error(t, err)

	_, err = NewCollection("", []Region{{ID: "A", Geometry: g}, {ID: "A", Geometry: g}})
	assert.Error(t, err)
}

package region

import (
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shpPolygon builds a shapefile polygon from rings given as flat XY pairs.
func shpPolygon(rings ...[]float64) *shp.Polygon {
	p := &shp.Polygon{}
	for _, ring := range rings {
		p.Parts = append(p.Parts, int32(len(p.Points)))
		for i := 0; i < len(ring); i += 2 {
			p.Points = append(p.Points, shp.Point{X: ring[i], Y: ring[i+1]})
		}
	}
	p.NumParts = int32(len(p.Parts))
	p.NumPoints = int32(len(p.Points))
	return p
}

// cwSquare returns a clockwise ring, the shapefile shell convention.
func cwSquare(x, y, size float64) []float64 {
	ring := square(x, y, size)
	reverseCoords(ring)
	return ring
}

func TestShapeToMultiPolygon_SingleShell(t *testing.T) {
	mp := shapeToMultiPolygon(shpPolygon(cwSquare(0, 0, 10)))
	require.NotNil(t, mp)
	assert.Equal(t, 1, mp.NumPolygons())
	assert.True(t, MultiPolygonContains(mp, 5, 5))
	assert.False(t, MultiPolygonContains(mp, 15, 5))
}

func TestShapeToMultiPolygon_ShellWithHole(t *testing.T) {
	// CW shell, CCW hole inside it.
	mp := shapeToMultiPolygon(shpPolygon(cwSquare(0, 0, 10), square(3, 3, 4)))
	require.NotNil(t, mp)
	require.Equal(t, 1, mp.NumPolygons())
	assert.Equal(t, 2, mp.Polygon(0).NumLinearRings())
	assert.True(t, MultiPolygonContains(mp, 1, 1))
	assert.False(t, MultiPolygonContains(mp, 5, 5))
}

func TestShapeToMultiPolygon_MultipleShells(t *testing.T) {
	mp := shapeToMultiPolygon(shpPolygon(cwSquare(0, 0, 2), cwSquare(10, 0, 2)))
	require.NotNil(t, mp)
	assert.Equal(t, 2, mp.NumPolygons())
	assert.True(t, MultiPolygonContains(mp, 1, 1))
	assert.True(t, MultiPolygonContains(mp, 11, 1))
}

func TestShapeToMultiPolygon_HoleAttachedToContainingShell(t *testing.T) {
	// Two shells, one hole inside the second shell only.
	mp := shapeToMultiPolygon(shpPolygon(
		cwSquare(0, 0, 4),
		cwSquare(10, 0, 10),
		square(13, 3, 4),
	))
	require.NotNil(t, mp)
	require.Equal(t, 2, mp.NumPolygons())
	assert.True(t, MultiPolygonContains(mp, 2, 2))
	assert.True(t, MultiPolygonContains(mp, 11, 1))
	assert.False(t, MultiPolygonContains(mp, 15, 5))
}

func TestShapeToMultiPolygon_NonConformingWinding(t *testing.T) {
	// All rings CCW: no shell candidates, so every ring is kept as a shell.
	mp := shapeToMultiPolygon(shpPolygon(square(0, 0, 2), square(10, 0, 2)))
	require.NotNil(t, mp)
	assert.Equal(t, 2, mp.NumPolygons())
	assert.True(t, MultiPolygonContains(mp, 1, 1))
	assert.True(t, MultiPolygonContains(mp, 11, 1))
}

func TestShapeToMultiPolygon_Degenerate(t *testing.T) {
	assert.Nil(t, shapeToMultiPolygon(&shp.Polygon{}))
	// A ring with under 4 points is dropped.
	assert.Nil(t, shapeToMultiPolygon(shpPolygon([]float64{0, 0, 1, 0, 0, 0})))
}

func TestReadShapefile_RequiresIDField(t *testing.T) {
	_, err := ReadShapefile("any.shp", ShapefileOptions{})
	assert.Error(t, err)
}

func TestReadShapefile_MissingFile(t *testing.T) {
	_, err := ReadShapefile("does-not-exist.shp", ShapefileOptions{IDField: "GID"})
	assert.Error(t, err)
}

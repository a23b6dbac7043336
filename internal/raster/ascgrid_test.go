package raster

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGrid = `ncols 3
nrows 2
xllcorner 100
yllcorner 40
cellsize 0.5
NODATA_value -9999
1.5 2 -9999
4 5.25 6
`

func TestParseASCIIGrid(t *testing.T) {
	s, err := ParseASCIIGrid(strings.NewReader(sampleGrid), "EPSG:4326")
	require.NoError(t, err)

	assert.Equal(t, 3, s.Width())
	assert.Equal(t, 2, s.Height())
	assert.Equal(t, "EPSG:4326", s.CRS())

	nd, ok := s.NoData()
	require.True(t, ok)
	assert.Equal(t, -9999.0, nd)

	// yllcorner is the bottom edge; the origin is the top-left corner.
	tr := s.Transform()
	assert.Equal(t, 100.0, tr.OriginX)
	assert.Equal(t, 41.0, tr.OriginY)
	assert.Equal(t, 0.5, tr.CellWidth)

	// First data row is the northernmost.
	assert.Equal(t, 1.5, s.Value(s.CellID(0, 0)))
	assert.Equal(t, 6.0, s.Value(s.CellID(1, 2)))
	assert.True(t, s.IsNoData(s.Value(s.CellID(0, 2))))
}

func TestParseASCIIGrid_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing header key", "ncols 2\nnrows 2\ncellsize 1\n1 2\n3 4\n"},
		{"bad cell value", "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 oops\n"},
		{"value count mismatch", "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2 3\n"},
		{"zero cellsize", "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 0\n1 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseASCIIGrid(strings.NewReader(tt.input), "")
			assert.Error(t, err)
		})
	}
}

func TestReadASCIIGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lights.asc")
	require.NoError(t, os.WriteFile(path, []byte(sampleGrid), 0o644))

	s, err := ReadASCIIGrid(path, "EPSG:4326")
	require.NoError(t, err)
	assert.Equal(t, 6, s.Cells())

	_, err = ReadASCIIGrid(filepath.Join(t.TempDir(), "missing.asc"), "")
	assert.Error(t, err)
}

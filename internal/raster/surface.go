// Package raster provides the in-memory raster surface model: a 2D grid of
// cell values with an affine transform and a CRS tag. Surfaces are immutable
// once constructed; cropping returns a new surface owned by the caller.
package raster

import (
	"math"

	"github.com/rotisserie/eris"
)

// Extent is an axis-aligned bounding rectangle in map coordinates.
type Extent struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// IsZero reports whether the extent has no area.
func (e Extent) IsZero() bool {
	return e.MaxX <= e.MinX || e.MaxY <= e.MinY
}

// Intersects reports whether two extents overlap.
func (e Extent) Intersects(o Extent) bool {
	return e.MinX < o.MaxX && e.MaxX > o.MinX && e.MinY < o.MaxY && e.MaxY > o.MinY
}

// Intersect returns the overlapping rectangle of two extents. The result may
// be zero-area when the extents do not overlap.
func (e Extent) Intersect(o Extent) Extent {
	return Extent{
		MinX: math.Max(e.MinX, o.MinX),
		MinY: math.Max(e.MinY, o.MinY),
		MaxX: math.Min(e.MaxX, o.MaxX),
		MaxY: math.Min(e.MaxY, o.MaxY),
	}
}

// Union returns the smallest extent covering both extents.
func (e Extent) Union(o Extent) Extent {
	return Extent{
		MinX: math.Min(e.MinX, o.MinX),
		MinY: math.Min(e.MinY, o.MinY),
		MaxX: math.Max(e.MaxX, o.MaxX),
		MaxY: math.Max(e.MaxY, o.MaxY),
	}
}

// GeoTransform maps grid indices to map coordinates. OriginX/OriginY is the
// top-left corner of cell (0,0); CellWidth and CellHeight are positive cell
// sizes, with rows increasing southward from the origin.
type GeoTransform struct {
	OriginX    float64
	OriginY    float64
	CellWidth  float64
	CellHeight float64
}

// Surface is a single-band raster: row-major cell values, an affine transform,
// and a CRS identifier. A NoData sentinel marks missing cells; NaN is always
// treated as missing.
type Surface struct {
	values    []float64
	width     int
	height    int
	transform GeoTransform
	crs       string
	noData    float64
	hasNoData bool
}

// Option configures a Surface at construction time.
type Option func(*Surface)

// WithNoData sets the missing-value sentinel.
func WithNoData(v float64) Option {
	return func(s *Surface) {
		s.noData = v
		s.hasNoData = true
	}
}

// New creates a Surface over the given row-major values. The values slice is
// retained, not copied; callers must not mutate it afterwards.
func New(values []float64, width, height int, tr GeoTransform, crs string, opts ...Option) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, eris.Errorf("raster: invalid dimensions %dx%d", width, height)
	}
	if len(values) != width*height {
		return nil, eris.Errorf("raster: %d values for %dx%d grid", len(values), width, height)
	}
	if tr.CellWidth <= 0 || tr.CellHeight <= 0 {
		return nil, eris.Errorf("raster: non-positive cell size %gx%g", tr.CellWidth, tr.CellHeight)
	}
	s := &Surface{
		values:    values,
		width:     width,
		height:    height,
		transform: tr,
		crs:       crs,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Width returns the number of columns.
func (s *Surface) Width() int { return s.width }

// Height returns the number of rows.
func (s *Surface) Height() int { return s.height }

// Cells returns the total number of cells.
func (s *Surface) Cells() int { return s.width * s.height }

// CRS returns the coordinate reference system identifier, e.g. "EPSG:4326".
// Empty means unknown.
func (s *Surface) CRS() string { return s.crs }

// Transform returns the affine grid-to-map transform.
func (s *Surface) Transform() GeoTransform { return s.transform }

// NoData returns the missing-value sentinel and whether one is declared.
func (s *Surface) NoData() (float64, bool) { return s.noData, s.hasNoData }

// IsNoData reports whether v is the missing-value sentinel or NaN.
func (s *Surface) IsNoData(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return s.hasNoData && v == s.noData
}

// Value returns the cell value at the given linear cell id.
func (s *Surface) Value(cell int) float64 {
	return s.values[cell]
}

// CellID returns the linear id for a row/column pair.
func (s *Surface) CellID(row, col int) int {
	return row*s.width + col
}

// CellCenter returns the map coordinates of a cell's center point. Cell
// membership everywhere in this package is decided by the center point.
func (s *Surface) CellCenter(row, col int) (x, y float64) {
	x = s.transform.OriginX + (float64(col)+0.5)*s.transform.CellWidth
	y = s.transform.OriginY - (float64(row)+0.5)*s.transform.CellHeight
	return x, y
}

// Extent returns the surface's geographic bounding rectangle.
func (s *Surface) Extent() Extent {
	return Extent{
		MinX: s.transform.OriginX,
		MaxX: s.transform.OriginX + float64(s.width)*s.transform.CellWidth,
		MinY: s.transform.OriginY - float64(s.height)*s.transform.CellHeight,
		MaxY: s.transform.OriginY,
	}
}

// Window returns the row/column range of cells whose centers can fall inside
// the given extent, clamped to the grid. ok is false when the extent misses
// the surface entirely.
func (s *Surface) Window(e Extent) (row0, row1, col0, col1 int, ok bool) {
	if !s.Extent().Intersects(e) {
		return 0, 0, 0, 0, false
	}
	tr := s.transform
	col0 = int(math.Floor((e.MinX - tr.OriginX) / tr.CellWidth))
	col1 = int(math.Ceil((e.MaxX-tr.OriginX)/tr.CellWidth)) - 1
	row0 = int(math.Floor((tr.OriginY - e.MaxY) / tr.CellHeight))
	row1 = int(math.Ceil((tr.OriginY-e.MinY)/tr.CellHeight)) - 1
	if col0 < 0 {
		col0 = 0
	}
	if row0 < 0 {
		row0 = 0
	}
	if col1 >= s.width {
		col1 = s.width - 1
	}
	if row1 >= s.height {
		row1 = s.height - 1
	}
	if col1 < col0 || row1 < row0 {
		return 0, 0, 0, 0, false
	}
	return row0, row1, col0, col1, true
}

// Crop returns a new Surface restricted to the cells whose centers can fall
// inside the given extent. The cell values are copied, so releasing the parent
// surface does not invalidate the crop and vice versa.
func (s *Surface) Crop(e Extent) (*Surface, error) {
	row0, row1, col0, col1, ok := s.Window(e)
	if !ok {
		return nil, eris.Errorf("raster: crop extent [%g %g %g %g] outside surface", e.MinX, e.MinY, e.MaxX, e.MaxY)
	}
	w := col1 - col0 + 1
	h := row1 - row0 + 1
	values := make([]float64, 0, w*h)
	for r := row0; r <= row1; r++ {
		start := r*s.width + col0
		values = append(values, s.values[start:start+w]...)
	}
	tr := GeoTransform{
		OriginX:    s.transform.OriginX + float64(col0)*s.transform.CellWidth,
		OriginY:    s.transform.OriginY - float64(row0)*s.transform.CellHeight,
		CellWidth:  s.transform.CellWidth,
		CellHeight: s.transform.CellHeight,
	}
	out := &Surface{
		values:    values,
		width:     w,
		height:    h,
		transform: tr,
		crs:       s.crs,
		noData:    s.noData,
		hasNoData: s.hasNoData,
	}
	return out, nil
}

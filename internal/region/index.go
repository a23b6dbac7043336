package region

import (
	"github.com/dhconnelly/rtreego"
)

// Index answers point-in-region lookups with an R-tree over region bounding
// boxes, refined by an exact ring test. Read-only after construction.
type Index struct {
	tree *rtreego.Rtree
}

// indexedRegion wraps a region for R-tree storage.
type indexedRegion struct {
	region Region
	extent rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (r *indexedRegion) Bounds() rtreego.Rect {
	return r.extent
}

// NewIndex builds a spatial index over the collection's regions.
func NewIndex(c *Collection) *Index {
	tree := rtreego.NewTree(2, 25, 50)
	for _, r := range c.Regions {
		e := r.Extent()
		w := e.MaxX - e.MinX
		h := e.MaxY - e.MinY
		// R-tree rectangles need non-zero side lengths.
		const epsilon = 1e-9
		if w < epsilon {
			w = epsilon
		}
		if h < epsilon {
			h = epsilon
		}
		rect, err := rtreego.NewRect(rtreego.Point{e.MinX, e.MinY}, []float64{w, h})
		if err != nil {
			continue
		}
		tree.Insert(&indexedRegion{region: r, extent: rect})
	}
	return &Index{tree: tree}
}

// Locate returns the regions whose geometry contains the point. Multiple
// matches are possible when region geometries overlap.
func (ix *Index) Locate(x, y float64) []Region {
	const epsilon = 1e-9
	probe, err := rtreego.NewRect(rtreego.Point{x, y}, []float64{epsilon, epsilon})
	if err != nil {
		return nil
	}

	var out []Region
	for _, candidate := range ix.tree.SearchIntersect(probe) {
		ir := candidate.(*indexedRegion)
		if MultiPolygonContains(ir.region.Geometry, x, y) {
			out = append(out, ir.region)
		}
	}
	return out
}

// Size returns the number of indexed regions.
func (ix *Index) Size() int {
	return ix.tree.Size()
}

// Package region models administrative region polygons: loading them from
// shapefiles, validating and repairing their geometry, decomposing multi-part
// geometries into simple parts, and indexing them for point lookup.
package region

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/cmg777/nightlights/internal/raster"
)

// Region is one administrative or statistical unit: a stable identifier, a
// multi-polygon geometry, and pass-through attribute fields.
type Region struct {
	ID       string
	Geometry *geom.MultiPolygon
	Attrs    map[string]string
}

// Extent returns the region geometry's bounding rectangle.
func (r Region) Extent() raster.Extent {
	return boundsToExtent(r.Geometry.Bounds())
}

// Collection is an ordered set of regions sharing one CRS. Region IDs are
// unique within a collection; NewCollection enforces this.
type Collection struct {
	CRS     string
	Regions []Region
}

// NewCollection builds a collection, rejecting duplicate region ids.
func NewCollection(crs string, regions []Region) (*Collection, error) {
	seen := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		if r.ID == "" {
			return nil, eris.New("region: empty region id")
		}
		if _, dup := seen[r.ID]; dup {
			return nil, eris.Errorf("region: duplicate region id %q", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return &Collection{CRS: crs, Regions: regions}, nil
}

// Len returns the number of regions.
func (c *Collection) Len() int { return len(c.Regions) }

// IDs returns the region ids in collection order.
func (c *Collection) IDs() []string {
	ids := make([]string, len(c.Regions))
	for i, r := range c.Regions {
		ids[i] = r.ID
	}
	return ids
}

// Extent returns the bounding rectangle covering every region geometry.
// The zero Extent is returned for an empty collection.
func (c *Collection) Extent() raster.Extent {
	var e raster.Extent
	for i, r := range c.Regions {
		re := r.Extent()
		if i == 0 {
			e = re
			continue
		}
		e = e.Union(re)
	}
	return e
}

// SimplePart is one simple polygon derived from a region's geometry. It is an
// ephemeral view used by the indexing step; the parent region keeps ownership
// of attributes and identity.
type SimplePart struct {
	ParentID string
	Ordinal  int
	Polygon  *geom.Polygon
}

// Key returns a collection-unique identifier for the part.
func (p SimplePart) Key() string {
	return fmt.Sprintf("%s#%d", p.ParentID, p.Ordinal)
}

// Extent returns the part polygon's bounding rectangle.
func (p SimplePart) Extent() raster.Extent {
	return boundsToExtent(p.Polygon.Bounds())
}

func boundsToExtent(b *geom.Bounds) raster.Extent {
	return raster.Extent{
		MinX: b.Min(0),
		MinY: b.Min(1),
		MaxX: b.Max(0),
		MaxY: b.Max(1),
	}
}

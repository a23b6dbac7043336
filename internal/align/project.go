// Package align reconciles coordinate reference systems and spatial extents
// between a raster surface and a region collection before aggregation.
package align

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

const earthRadius = 6378137.0 // WGS84 spherical radius used by EPSG:3857

// Reprojector transforms a single coordinate between two coordinate reference
// systems. The alignment step only decides whether reprojection is needed;
// the numerical transform itself is this primitive's concern.
type Reprojector interface {
	Transform(srcCRS, dstCRS string, x, y float64) (float64, float64, error)
}

// sphericalMercator reprojects between EPSG:4326 (lon/lat degrees) and
// EPSG:3857 (spherical Web Mercator meters) with closed-form formulas.
// Other CRS pairs need a caller-supplied Reprojector.
type sphericalMercator struct{}

// NewSphericalMercator returns the default built-in Reprojector.
func NewSphericalMercator() Reprojector {
	return sphericalMercator{}
}

func (sphericalMercator) Transform(srcCRS, dstCRS string, x, y float64) (float64, float64, error) {
	src := normalizeCRS(srcCRS)
	dst := normalizeCRS(dstCRS)
	switch {
	case src == dst:
		return x, y, nil
	case src == "EPSG:4326" && dst == "EPSG:3857":
		mx := earthRadius * x * math.Pi / 180
		my := earthRadius * math.Log(math.Tan(math.Pi/4+y*math.Pi/360))
		return mx, my, nil
	case src == "EPSG:3857" && dst == "EPSG:4326":
		lon := x / earthRadius * 180 / math.Pi
		lat := (2*math.Atan(math.Exp(y/earthRadius)) - math.Pi/2) * 180 / math.Pi
		return lon, lat, nil
	default:
		return 0, 0, eris.Errorf("align: no transform from %s to %s", srcCRS, dstCRS)
	}
}

// normalizeCRS canonicalizes common aliases so identifier comparison is by
// meaning, not spelling.
func normalizeCRS(crs string) string {
	c := strings.ToUpper(strings.TrimSpace(crs))
	switch c {
	case "WGS84", "CRS:84", "OGC:CRS84":
		return "EPSG:4326"
	case "WEBMERCATOR", "EPSG:900913":
		return "EPSG:3857"
	}
	return c
}

// SameCRS reports whether two CRS identifiers denote the same system.
func SameCRS(a, b string) bool {
	return normalizeCRS(a) == normalizeCRS(b)
}

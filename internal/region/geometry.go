package region

import "github.com/twpayne/go-geom"

// ringContains reports whether point (x, y) is inside the ring given as flat
// XY coordinate pairs, using ray casting. Points exactly on an edge may fall
// on either side; cell-center membership tolerates this.
func ringContains(flat []float64, x, y float64) bool {
	n := len(flat) / 2
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := flat[2*i], flat[2*i+1]
		xj, yj := flat[2*j], flat[2*j+1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// PolygonContains reports whether point (x, y) is inside the polygon: within
// the outer ring and outside every hole.
func PolygonContains(p *geom.Polygon, x, y float64) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	if !ringContains(p.LinearRing(0).FlatCoords(), x, y) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if ringContains(p.LinearRing(i).FlatCoords(), x, y) {
			return false
		}
	}
	return true
}

// MultiPolygonContains reports whether point (x, y) is inside any constituent
// polygon.
func MultiPolygonContains(mp *geom.MultiPolygon, x, y float64) bool {
	for i := 0; i < mp.NumPolygons(); i++ {
		if PolygonContains(mp.Polygon(i), x, y) {
			return true
		}
	}
	return false
}

// ringArea returns the signed area of a flat XY ring (positive for
// counter-clockwise winding).
func ringArea(flat []float64) float64 {
	n := len(flat) / 2
	if n < 3 {
		return 0
	}
	var sum float64
	j := n - 1
	for i := 0; i < n; i++ {
		sum += (flat[2*j] + flat[2*i]) * (flat[2*j+1] - flat[2*i+1])
		j = i
	}
	return sum / 2
}

// segmentsIntersect reports whether segments (a1,a2) and (b1,b2) properly
// cross. Shared endpoints do not count as an intersection.
func segmentsIntersect(a1x, a1y, a2x, a2y, b1x, b1y, b2x, b2y float64) bool {
	d1 := cross(b1x, b1y, b2x, b2y, a1x, a1y)
	d2 := cross(b1x, b1y, b2x, b2y, a2x, a2y)
	d3 := cross(a1x, a1y, a2x, a2y, b1x, b1y)
	d4 := cross(a1x, a1y, a2x, a2y, b2x, b2y)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross(ox, oy, ax, ay, bx, by float64) float64 {
	return (ax-ox)*(by-oy) - (ay-oy)*(bx-ox)
}

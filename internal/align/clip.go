package align

import (
	"github.com/twpayne/go-geom"

	"github.com/cmg777/nightlights/internal/raster"
)

// ClipMultiPolygon clips every ring of the geometry to the rectangle. Returns
// nil when nothing of the geometry remains inside. Holes survive clipping
// because the clip window is convex, so the even-odd rule stays consistent.
func ClipMultiPolygon(mp *geom.MultiPolygon, e raster.Extent) *geom.MultiPolygon {
	out := geom.NewMultiPolygon(geom.XY)
	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		clipped := geom.NewPolygon(geom.XY)
		for j := 0; j < p.NumLinearRings(); j++ {
			flat := clipRing(p.LinearRing(j).FlatCoords(), e)
			if flat == nil {
				if j == 0 {
					clipped = nil
					break
				}
				continue
			}
			if err := clipped.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
				continue
			}
		}
		if clipped == nil || clipped.NumLinearRings() == 0 {
			continue
		}
		if err := out.Push(clipped); err != nil {
			continue
		}
	}
	if out.NumPolygons() == 0 {
		return nil
	}
	return out
}

// clipRing clips one closed ring to the rectangle with Sutherland-Hodgman,
// one rectangle edge at a time. Returns nil when the ring is clipped away.
func clipRing(flat []float64, e raster.Extent) []float64 {
	// Work on the open form of the ring.
	n := len(flat) / 2
	if n >= 2 && flat[0] == flat[2*(n-1)] && flat[1] == flat[2*(n-1)+1] {
		flat = flat[:2*(n-1)]
	}
	if len(flat) < 6 {
		return nil
	}

	inside := [4]func(x, y float64) bool{
		func(x, _ float64) bool { return x >= e.MinX },
		func(x, _ float64) bool { return x <= e.MaxX },
		func(_, y float64) bool { return y >= e.MinY },
		func(_, y float64) bool { return y <= e.MaxY },
	}
	intersect := [4]func(x1, y1, x2, y2 float64) (float64, float64){
		func(x1, y1, x2, y2 float64) (float64, float64) {
			return e.MinX, y1 + (y2-y1)*(e.MinX-x1)/(x2-x1)
		},
		func(x1, y1, x2, y2 float64) (float64, float64) {
			return e.MaxX, y1 + (y2-y1)*(e.MaxX-x1)/(x2-x1)
		},
		func(x1, y1, x2, y2 float64) (float64, float64) {
			return x1 + (x2-x1)*(e.MinY-y1)/(y2-y1), e.MinY
		},
		func(x1, y1, x2, y2 float64) (float64, float64) {
			return x1 + (x2-x1)*(e.MaxY-y1)/(y2-y1), e.MaxY
		},
	}

	current := flat
	for edge := 0; edge < 4; edge++ {
		if len(current) == 0 {
			return nil
		}
		var next []float64
		m := len(current) / 2
		for i := 0; i < m; i++ {
			x1, y1 := current[2*i], current[2*i+1]
			k := (i + 1) % m
			x2, y2 := current[2*k], current[2*k+1]

			in1 := inside[edge](x1, y1)
			in2 := inside[edge](x2, y2)
			switch {
			case in1 && in2:
				next = append(next, x2, y2)
			case in1 && !in2:
				ix, iy := intersect[edge](x1, y1, x2, y2)
				next = append(next, ix, iy)
			case !in1 && in2:
				ix, iy := intersect[edge](x1, y1, x2, y2)
				next = append(next, ix, iy, x2, y2)
			}
		}
		current = next
	}

	if len(current) < 6 {
		return nil
	}
	// Re-close the ring.
	closed := make([]float64, 0, len(current)+2)
	closed = append(closed, current...)
	closed = append(closed, current[0], current[1])
	if ringAreaAbs(closed) == 0 {
		return nil
	}
	return closed
}

func ringAreaAbs(flat []float64) float64 {
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
	if sum < 0 {
		sum = -sum
	}
	return sum / 2
}

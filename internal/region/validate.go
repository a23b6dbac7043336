package region

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// InvalidGeometry records one region whose geometry failed validation.
// Repaired is true when the automatic repair produced a valid replacement;
// false means the region kept its original, still-invalid geometry.
type InvalidGeometry struct {
	RegionID string `json:"region_id"`
	Reason   string `json:"reason"`
	Repaired bool   `json:"repaired"`
}

// ValidateAndRepair checks every region geometry for ring validity and passes
// invalid ones through the automatic repair. Regions are never dropped: when
// repair fails the original geometry is retained and the region is flagged in
// the returned diagnostics. This must run before Decompose, which assumes
// well-formed rings.
func ValidateAndRepair(c *Collection) (*Collection, []InvalidGeometry, error) {
	if c == nil || len(c.Regions) == 0 {
		return nil, nil, eris.New("region: empty collection")
	}

	log := zap.L().With(zap.String("component", "region.validator"))

	out := make([]Region, 0, len(c.Regions))
	var diags []InvalidGeometry

	for _, r := range c.Regions {
		reason := validateMultiPolygon(r.Geometry)
		if reason == "" {
			out = append(out, r)
			continue
		}

		repaired, err := repairMultiPolygon(r.Geometry)
		if err != nil {
			log.Warn("geometry repair failed, keeping original",
				zap.String("region_id", r.ID),
				zap.String("reason", reason),
				zap.Error(err),
			)
			diags = append(diags, InvalidGeometry{RegionID: r.ID, Reason: reason})
			out = append(out, r)
			continue
		}

		log.Debug("repaired invalid geometry",
			zap.String("region_id", r.ID),
			zap.String("reason", reason),
		)
		diags = append(diags, InvalidGeometry{RegionID: r.ID, Reason: reason, Repaired: true})
		out = append(out, Region{ID: r.ID, Geometry: repaired, Attrs: r.Attrs})
	}

	fixed := &Collection{CRS: c.CRS, Regions: out}
	return fixed, diags, nil
}

// validateMultiPolygon returns an empty string for valid geometry, or a short
// description of the first defect found.
func validateMultiPolygon(mp *geom.MultiPolygon) string {
	if mp == nil || mp.NumPolygons() == 0 {
		return "empty geometry"
	}
	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		if p.NumLinearRings() == 0 {
			return "polygon without rings"
		}
		for j := 0; j < p.NumLinearRings(); j++ {
			flat := p.LinearRing(j).FlatCoords()
			if reason := validateRing(flat); reason != "" {
				return reason
			}
			// Holes must sit inside the shell.
			if j > 0 && !ringContains(p.LinearRing(0).FlatCoords(), flat[0], flat[1]) {
				return "hole outside shell"
			}
		}
	}
	return ""
}

func validateRing(flat []float64) string {
	n := len(flat) / 2
	if n < 4 {
		return "ring with fewer than 4 points"
	}
	if flat[0] != flat[2*(n-1)] || flat[1] != flat[2*(n-1)+1] {
		return "unclosed ring"
	}
	if math.Abs(ringArea(flat)) == 0 {
		return "zero-area ring"
	}
	if ringSelfIntersects(flat) {
		return "self-intersecting ring"
	}
	return ""
}

// ringSelfIntersects tests every non-adjacent segment pair for a proper
// crossing. Quadratic, but rings are validated once per pipeline run.
func ringSelfIntersects(flat []float64) bool {
	n := len(flat)/2 - 1 // closed ring: last point repeats the first
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue // first and last segment share a vertex
			}
			if segmentsIntersect(
				flat[2*i], flat[2*i+1], flat[2*(i+1)], flat[2*(i+1)+1],
				flat[2*j], flat[2*j+1], flat[2*(j+1)], flat[2*(j+1)+1],
			) {
				return true
			}
		}
	}
	return false
}

// repairMultiPolygon attempts to produce a valid geometry covering the same
// area: rings are closed, consecutive duplicate vertices removed, degenerate
// rings dropped, and winding normalized. Defects beyond that (such as a
// residual self-intersection) make the repair fail.
func repairMultiPolygon(mp *geom.MultiPolygon) (*geom.MultiPolygon, error) {
	if mp == nil || mp.NumPolygons() == 0 {
		return nil, eris.New("region: nothing to repair")
	}

	out := geom.NewMultiPolygon(geom.XY)
	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		repaired := geom.NewPolygon(geom.XY)
		for j := 0; j < p.NumLinearRings(); j++ {
			flat := repairRing(p.LinearRing(j).FlatCoords(), j > 0)
			if flat == nil {
				if j == 0 {
					repaired = nil // shell unusable, drop whole polygon
					break
				}
				continue
			}
			if err := repaired.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
				return nil, eris.Wrap(err, "region: rebuild ring")
			}
		}
		if repaired == nil || repaired.NumLinearRings() == 0 {
			continue
		}
		if err := out.Push(repaired); err != nil {
			return nil, eris.Wrap(err, "region: rebuild polygon")
		}
	}

	if out.NumPolygons() == 0 {
		return nil, eris.New("region: repair left no polygons")
	}
	if reason := validateMultiPolygon(out); reason != "" {
		return nil, eris.Errorf("region: still invalid after repair: %s", reason)
	}
	return out, nil
}

// repairRing returns cleaned flat coordinates, or nil when the ring is
// degenerate beyond repair. Shells are rewound counter-clockwise, holes
// clockwise.
func repairRing(flat []float64, hole bool) []float64 {
	n := len(flat) / 2
	if n < 3 {
		return nil
	}

	cleaned := make([]float64, 0, len(flat)+2)
	for i := 0; i < n; i++ {
		x, y := flat[2*i], flat[2*i+1]
		m := len(cleaned)
		if m >= 2 && cleaned[m-2] == x && cleaned[m-1] == y {
			continue
		}
		cleaned = append(cleaned, x, y)
	}

	// Close the ring.
	m := len(cleaned)
	if m < 6 {
		return nil
	}
	if cleaned[0] != cleaned[m-2] || cleaned[1] != cleaned[m-1] {
		cleaned = append(cleaned, cleaned[0], cleaned[1])
	}
	if len(cleaned)/2 < 4 {
		return nil
	}

	area := ringArea(cleaned)
	if math.Abs(area) == 0 {
		return nil
	}
	if (hole && area > 0) || (!hole && area < 0) {
		reverseCoords(cleaned)
	}
	return cleaned
}

func reverseCoords(flat []float64) {
	for i, j := 0, len(flat)/2-1; i < j; i, j = i+1, j-1 {
		flat[2*i], flat[2*j] = flat[2*j], flat[2*i]
		flat[2*i+1], flat[2*j+1] = flat[2*j+1], flat[2*i+1]
	}
}

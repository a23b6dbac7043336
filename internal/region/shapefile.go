package region

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// ShapefileOptions configures the shapefile region loader.
type ShapefileOptions struct {
	IDField string // attribute field holding the region id (case-insensitive)
	CRS     string // CRS identifier for the file's coordinates, e.g. "EPSG:4326"
}

// ReadShapefile loads polygon features from a shapefile into a Collection.
// Attribute columns pass through unmodified as string fields. Records with a
// missing geometry or an empty id are skipped with a diagnostic count;
// duplicate ids are a load error.
func ReadShapefile(path string, opts ShapefileOptions) (*Collection, error) {
	if opts.IDField == "" {
		return nil, eris.New("region: id field is required")
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "region: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	names := make([]string, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		names[i] = name
		fieldIdx[strings.ToLower(name)] = i
	}

	idIdx, ok := fieldIdx[strings.ToLower(opts.IDField)]
	if !ok {
		return nil, eris.Errorf("region: id field %q not found in %s", opts.IDField, path)
	}

	var regions []Region
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		poly, polyOK := shape.(*shp.Polygon)
		if !polyOK || poly == nil {
			skipped++
			continue
		}

		id := strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00"))
		if id == "" {
			skipped++
			continue
		}

		mp := shapeToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		attrs := make(map[string]string, len(names))
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val != "" {
				attrs[name] = val
			}
		}

		regions = append(regions, Region{ID: id, Geometry: mp, Attrs: attrs})
	}

	if skipped > 0 {
		zap.L().Debug("region: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return NewCollection(opts.CRS, regions)
}

// shapeToMultiPolygon converts a shapefile polygon to a geom.MultiPolygon,
// classifying rings by winding: shapefile shells wind clockwise (negative
// signed area), holes counter-clockwise. Each hole is attached to the first
// shell containing its first vertex.
func shapeToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var shells, holes [][]float64
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		if len(flat)/2 < 4 {
			continue
		}
		if ringArea(flat) < 0 {
			shells = append(shells, flat)
		} else {
			holes = append(holes, flat)
		}
	}

	// Some producers do not follow the winding convention; fall back to
	// treating every ring as a shell.
	if len(shells) == 0 {
		shells = holes
		holes = nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for _, shell := range shells {
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, shell)); err != nil {
			zap.L().Debug("region: skipping malformed shell ring", zap.Error(err))
			continue
		}
		for _, hole := range holes {
			if ringContains(shell, hole[0], hole[1]) {
				if err := poly.Push(geom.NewLinearRingFlat(geom.XY, hole)); err != nil {
					zap.L().Debug("region: skipping malformed hole ring", zap.Error(err))
				}
			}
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("region: skipping malformed polygon part", zap.Error(err))
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

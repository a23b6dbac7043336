package align

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/cmg777/nightlights/internal/raster"
	"github.com/cmg777/nightlights/internal/region"
)

// Configuration errors. These abort the pipeline before any computation.
var (
	ErrMissingCRS = eris.New("align: missing CRS metadata")
	ErrEmptyClip  = eris.New("align: no regions inside the clip extent")
	ErrZeroExtent = eris.New("align: zero-size bounding box")
)

// Options configures an alignment.
type Options struct {
	// BoundingBox optionally restricts the working area further than the
	// raster extent, e.g. to exclude non-mainland islands. Coordinates are in
	// the raster's CRS.
	BoundingBox *raster.Extent

	// Reprojector transforms region coordinates when the two CRS differ.
	// Defaults to the built-in spherical Mercator transform.
	Reprojector Reprojector
}

// Align reconciles the raster and region inputs: reprojects region geometry
// to the raster's CRS when the identifiers differ, clips regions to the
// raster extent (optionally intersected with Options.BoundingBox), and crops
// the raster to the clipped collection's bounding rectangle. Both inputs are
// left untouched; aligned copies are returned. Aligning an already-aligned
// pair is a no-op.
func Align(surface *raster.Surface, regions *region.Collection, opts Options) (*raster.Surface, *region.Collection, error) {
	if surface.CRS() == "" || regions.CRS == "" {
		return nil, nil, eris.Wrapf(ErrMissingCRS, "raster %q, regions %q", surface.CRS(), regions.CRS)
	}
	if regions.Len() == 0 {
		return nil, nil, eris.Wrap(ErrEmptyClip, "empty input collection")
	}

	log := zap.L().With(zap.String("component", "align"))

	// Reproject region geometry into the raster's CRS if needed.
	working := regions
	if !SameCRS(surface.CRS(), regions.CRS) {
		rp := opts.Reprojector
		if rp == nil {
			rp = NewSphericalMercator()
		}
		reprojected, err := reprojectCollection(regions, surface.CRS(), rp)
		if err != nil {
			return nil, nil, err
		}
		log.Info("reprojected regions",
			zap.String("from", regions.CRS),
			zap.String("to", surface.CRS()),
			zap.Int("regions", regions.Len()),
		)
		working = reprojected
	}

	// Clip extent: raster extent, optionally narrowed by the caller's box.
	clipExtent := surface.Extent()
	if opts.BoundingBox != nil {
		clipExtent = clipExtent.Intersect(*opts.BoundingBox)
	}
	if clipExtent.IsZero() {
		return nil, nil, ErrZeroExtent
	}

	clipped := make([]region.Region, 0, working.Len())
	var dropped int
	for _, r := range working.Regions {
		mp := ClipMultiPolygon(r.Geometry, clipExtent)
		if mp == nil {
			dropped++
			continue
		}
		clipped = append(clipped, region.Region{ID: r.ID, Geometry: mp, Attrs: r.Attrs})
	}
	if len(clipped) == 0 {
		return nil, nil, ErrEmptyClip
	}
	if dropped > 0 {
		log.Info("dropped regions outside clip extent", zap.Int("dropped", dropped))
	}

	out := &region.Collection{CRS: surface.CRS(), Regions: clipped}

	// Crop the raster to the clipped collection's bounding rectangle. This
	// bounds memory for everything downstream.
	cropExtent := out.Extent().Intersect(clipExtent)
	if cropExtent.IsZero() {
		return nil, nil, ErrZeroExtent
	}
	croppedSurface, err := surface.Crop(cropExtent)
	if err != nil {
		return nil, nil, eris.Wrap(err, "align: crop raster")
	}

	log.Debug("aligned raster and regions",
		zap.Int("regions", out.Len()),
		zap.Int("raster_cells", croppedSurface.Cells()),
	)
	return croppedSurface, out, nil
}

// reprojectCollection transforms every coordinate of every region into dstCRS.
func reprojectCollection(c *region.Collection, dstCRS string, rp Reprojector) (*region.Collection, error) {
	out := make([]region.Region, 0, c.Len())
	for _, r := range c.Regions {
		mp, err := reprojectMultiPolygon(r.Geometry, c.CRS, dstCRS, rp)
		if err != nil {
			return nil, eris.Wrapf(err, "align: reproject region %s", r.ID)
		}
		out = append(out, region.Region{ID: r.ID, Geometry: mp, Attrs: r.Attrs})
	}
	return &region.Collection{CRS: dstCRS, Regions: out}, nil
}

func reprojectMultiPolygon(mp *geom.MultiPolygon, srcCRS, dstCRS string, rp Reprojector) (*geom.MultiPolygon, error) {
	out := geom.NewMultiPolygon(geom.XY)
	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		poly := geom.NewPolygon(geom.XY)
		for j := 0; j < p.NumLinearRings(); j++ {
			src := p.LinearRing(j).FlatCoords()
			dst := make([]float64, len(src))
			for k := 0; k < len(src); k += 2 {
				x, y, err := rp.Transform(srcCRS, dstCRS, src[k], src[k+1])
				if err != nil {
					return nil, err
				}
				dst[k], dst[k+1] = x, y
			}
			if err := poly.Push(geom.NewLinearRingFlat(geom.XY, dst)); err != nil {
				return nil, eris.Wrap(err, "align: rebuild ring")
			}
		}
		if err := out.Push(poly); err != nil {
			return nil, eris.Wrap(err, "align: rebuild polygon")
		}
	}
	return out, nil
}

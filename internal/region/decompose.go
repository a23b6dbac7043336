package region

import "go.uber.org/zap"

// Decompose flattens every region geometry into simple polygon parts tagged
// with their parent region id. Every constituent polygon is retained, so an
// archipelagic region keeps all its islands and its total coverage equals the
// union of its parts' coverage. Regions whose geometry has no polygons produce
// zero parts; the aggregator zero-fills those.
func Decompose(c *Collection) []SimplePart {
	var parts []SimplePart
	for _, r := range c.Regions {
		n := r.Geometry.NumPolygons()
		for i := 0; i < n; i++ {
			parts = append(parts, SimplePart{
				ParentID: r.ID,
				Ordinal:  i,
				Polygon:  r.Geometry.Polygon(i),
			})
		}
		if n > 1 {
			zap.L().Debug("region: decomposed multi-part geometry",
				zap.String("region_id", r.ID),
				zap.Int("parts", n),
			)
		}
	}
	return parts
}

package stats

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/cmg777/nightlights/internal/aggregate"
)

// MergedRow is one region's aggregation total joined with an external
// indicator value. Indicator is nil when the region has no matching entry in
// the indicator series; the row is kept either way.
type MergedRow struct {
	RegionID  string   `json:"region_id"`
	Total     float64  `json:"total"`
	Indicator *float64 `json:"indicator,omitempty"`
}

// Merge joins aggregation rows with an indicator by region id. Every input
// row appears in the output exactly once, in input order.
func Merge(rows []aggregate.Row, ind *Indicator) []MergedRow {
	out := make([]MergedRow, 0, len(rows))
	for _, row := range rows {
		merged := MergedRow{RegionID: row.RegionID, Total: row.Total}
		if ind != nil {
			if v, ok := ind.Values[row.RegionID]; ok {
				value := v
				merged.Indicator = &value
			}
		}
		out = append(out, merged)
	}
	return out
}

// Pearson computes the Pearson correlation coefficient between totals and
// indicator values over the rows where both are present. At least two such
// rows are required.
func Pearson(rows []MergedRow) (float64, error) {
	var xs, ys []float64
	for _, row := range rows {
		if row.Indicator == nil {
			continue
		}
		xs = append(xs, row.Total)
		ys = append(ys, *row.Indicator)
	}
	n := float64(len(xs))
	if len(xs) < 2 {
		return 0, eris.Errorf("stats: need at least 2 matched rows, have %d", len(xs))
	}

	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	denom := math.Sqrt(varX) * math.Sqrt(varY)
	if denom == 0 {
		return 0, eris.New("stats: zero variance in correlation input")
	}
	return cov / denom, nil
}

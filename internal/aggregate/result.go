// Package aggregate computes per-region sums of raster cell values: cell
// indexing, part-to-parent re-aggregation, a memory-bounded per-region path,
// and the pipeline that ties alignment, validation and decomposition together.
package aggregate

import (
	"sort"

	"github.com/cmg777/nightlights/internal/region"
)

// CellIndex maps a simple-part key to the sorted linear cell ids of the
// raster cells whose center falls inside that part.
type CellIndex map[string][]int

// Row is one join-ready output row.
type Row struct {
	RegionID string  `json:"region_id"`
	Total    float64 `json:"total"`
}

// Result holds per-region totals. Every region id present in the input
// collection has exactly one entry, zero-filled when the region covered no
// cells.
type Result struct {
	Totals map[string]float64
	// Order preserves the input collection's region order for output rows.
	Order []string
}

// NewResult creates a Result zero-filled for the given region ids.
func NewResult(ids []string) *Result {
	totals := make(map[string]float64, len(ids))
	order := make([]string, len(ids))
	copy(order, ids)
	for _, id := range ids {
		totals[id] = 0
	}
	return &Result{Totals: totals, Order: order}
}

// Rows returns the totals as ordered rows, one per region id.
func (r *Result) Rows() []Row {
	rows := make([]Row, 0, len(r.Order))
	for _, id := range r.Order {
		rows = append(rows, Row{RegionID: id, Total: r.Totals[id]})
	}
	return rows
}

// Diagnostics carries the out-of-band findings of an aggregation run. None of
// these drop a region from the result; callers inspect them to decide whether
// a zero or error marker is acceptable.
type Diagnostics struct {
	// InvalidGeometries lists regions whose geometry failed validation,
	// with the repair outcome.
	InvalidGeometries []region.InvalidGeometry `json:"invalid_geometries,omitempty"`
	// EmptyCoverage lists regions whose parts covered no cell center and
	// were zero-filled.
	EmptyCoverage []string `json:"empty_coverage,omitempty"`
	// NoParts lists regions that decomposed into zero simple parts.
	NoParts []string `json:"no_parts,omitempty"`
	// Failed maps region id to the error message for regions skipped in
	// best-effort bounded processing. Their totals stay zero-filled.
	Failed map[string]string `json:"failed,omitempty"`
}

// sortedIDs returns map keys in stable order for logging and serialization.
func sortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

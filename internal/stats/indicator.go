// Package stats merges external statistical indicators (GDP, population) with
// aggregation results and computes summary statistics over the merged table.
package stats

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Indicator is one external statistical series keyed by region code.
type Indicator struct {
	Name   string
	Values map[string]float64
}

// ReadCSV reads an indicator from a CSV file with a header row. keyCol names
// the region-code column and valueCol the numeric series column. Rows with an
// unparsable value are skipped.
func ReadCSV(path, keyCol, valueCol string) (*Indicator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "stats: open CSV %s", path)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "stats: read CSV header")
	}
	keyIdx, valIdx := -1, -1
	for i, name := range header {
		trimmed := strings.TrimSpace(name)
		if strings.EqualFold(trimmed, keyCol) {
			keyIdx = i
		}
		if strings.EqualFold(trimmed, valueCol) {
			valIdx = i
		}
	}
	if keyIdx < 0 || valIdx < 0 {
		return nil, eris.Errorf("stats: columns %q, %q not found in %s", keyCol, valueCol, path)
	}

	ind := &Indicator{Name: valueCol, Values: map[string]float64{}}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "stats: read CSV row")
		}
		if keyIdx >= len(record) || valIdx >= len(record) {
			continue
		}
		key := strings.TrimSpace(record[keyIdx])
		v, parseErr := strconv.ParseFloat(strings.TrimSpace(record[valIdx]), 64)
		if key == "" || parseErr != nil {
			continue
		}
		ind.Values[key] = v
	}
	return ind, nil
}

// ReadXLSX reads an indicator from the first sheet of an XLSX workbook with a
// header row, matching columns the same way as ReadCSV.
func ReadXLSX(path, keyCol, valueCol string) (*Indicator, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "stats: open XLSX %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("stats: workbook %s has no sheets", path)
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("stats: sheet %s is empty", sheet.Name)
	}

	keyIdx, valIdx := -1, -1
	for i, cell := range sheet.Rows[0].Cells {
		name := strings.TrimSpace(cell.String())
		if strings.EqualFold(name, keyCol) {
			keyIdx = i
		}
		if strings.EqualFold(name, valueCol) {
			valIdx = i
		}
	}
	if keyIdx < 0 || valIdx < 0 {
		return nil, eris.Errorf("stats: columns %q, %q not found in %s", keyCol, valueCol, path)
	}

	ind := &Indicator{Name: valueCol, Values: map[string]float64{}}
	for _, row := range sheet.Rows[1:] {
		if keyIdx >= len(row.Cells) || valIdx >= len(row.Cells) {
			continue
		}
		key := strings.TrimSpace(row.Cells[keyIdx].String())
		v, parseErr := row.Cells[valIdx].Float()
		if key == "" || parseErr != nil {
			continue
		}
		ind.Values[key] = v
	}
	return ind, nil
}

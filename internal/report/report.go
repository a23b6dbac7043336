// Package report writes aggregation output in join-ready tabular forms.
package report

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/cmg777/nightlights/internal/stats"
)

// header is the column layout shared by the CSV and XLSX writers: one row per
// region id, suitable for joining onto an attribute table.
var header = []string{"region_id", "total", "indicator"}

// WriteCSV writes merged rows to a CSV file. The indicator cell is empty for
// rows without a matched indicator value.
func WriteCSV(path string, rows []stats.MergedRow) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "report: write CSV header")
	}
	for _, row := range rows {
		record := []string{
			row.RegionID,
			strconv.FormatFloat(row.Total, 'g', -1, 64),
			"",
		}
		if row.Indicator != nil {
			record[2] = strconv.FormatFloat(*row.Indicator, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return eris.Wrapf(err, "report: write CSV row %s", row.RegionID)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "report: flush CSV")
	}
	return nil
}

// WriteXLSX writes merged rows to a single-sheet XLSX workbook.
func WriteXLSX(path, sheetName string, rows []stats.MergedRow) error {
	if sheetName == "" {
		sheetName = "totals"
	}
	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	hr := sheet.AddRow()
	for _, col := range header {
		hr.AddCell().SetString(col)
	}
	for _, row := range rows {
		r := sheet.AddRow()
		r.AddCell().SetString(row.RegionID)
		r.AddCell().SetFloat(row.Total)
		cell := r.AddCell()
		if row.Indicator != nil {
			cell.SetFloat(*row.Indicator)
		} else {
			cell.SetString("")
		}
	}

	if err := wb.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "indicator.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCSV(t *testing.T) {
	path := writeTempCSV(t, `region_id,name,gdp
BOL01,La Paz,1200.5
BOL02,Santa Cruz,2100
BOL03,Cochabamba,not-a-number
,Anonymous,99
BOL05,Tarija,0
`)

	ind, err := ReadCSV(path, "REGION_ID", "GDP")
	require.NoError(t, err)

	assert.Equal(t, "GDP", ind.Name)
	require.Len(t, ind.Values, 3)
	assert.Equal(t, 1200.5, ind.Values["BOL01"])
	assert.Equal(t, 2100.0, ind.Values["BOL02"])
	assert.Equal(t, 0.0, ind.Values["BOL05"])
}

func TestReadCSV_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := ReadCSV("nope.csv", "region_id", "gdp")
		assert.Error(t, err)
	})

	t.Run("missing column", func(t *testing.T) {
		path := writeTempCSV(t, "region_id,population\nBOL01,100\n")
		_, err := ReadCSV(path, "region_id", "gdp")
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeTempCSV(t, "")
		_, err := ReadCSV(path, "region_id", "gdp")
		assert.Error(t, err)
	})
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indicator.xlsx")

	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet("data")
	require.NoError(t, err)
	hr := sheet.AddRow()
	hr.AddCell().SetString("region_id")
	hr.AddCell().SetString("gdp")
	r1 := sheet.AddRow()
	r1.AddCell().SetString("BOL01")
	r1.AddCell().SetFloat(1200.5)
	r2 := sheet.AddRow()
	r2.AddCell().SetString("BOL02")
	r2.AddCell().SetString("bad")
	require.NoError(t, wb.Save(path))

	ind, err := ReadXLSX(path, "region_id", "gdp")
	require.NoError(t, err)
	require.Len(t, ind.Values, 1)
	assert.Equal(t, 1200.5, ind.Values["BOL01"])
}

func TestReadXLSX_MissingFile(t *testing.T) {
	_, err := ReadXLSX("nope.xlsx", "region_id", "gdp")
	assert.Error(t, err)
}

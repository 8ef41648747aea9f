package fetcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeTestXLSX(t *testing.T, sheetName string, rows [][]string) string {
	t.Helper()

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	require.NoError(t, err)

	for _, row := range rows {
		r := sheet.AddRow()
		for _, cell := range row {
			r.AddCell().SetString(cell)
		}
	}

	path := filepath.Join(t.TempDir(), "results.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX_Basic(t *testing.T) {
	path := writeTestXLSX(t, "Precincts", [][]string{
		{"precinct", "votes_dem", "votes_rep"},
		{"73", "12000", "3000"},
		{"103", "9000", "7000"},
	})

	rows, err := ReadXLSX(path, XLSXOptions{SkipRows: 1})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"73", "12000", "3000"}, rows[0])
}

func TestReadXLSX_SheetByName(t *testing.T) {
	path := writeTestXLSX(t, "Results2021", [][]string{{"a", "b"}})

	rows, err := ReadXLSX(path, XLSXOptions{SheetName: "Results2021"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, err = ReadXLSX(path, XLSXOptions{SheetName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReadXLSX_BadIndex(t *testing.T) {
	path := writeTestXLSX(t, "Sheet1", [][]string{{"a"}})

	_, err := ReadXLSX(path, XLSXOptions{SheetIndex: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestReadXLSX_MissingFile(t *testing.T) {
	_, err := ReadXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), XLSXOptions{})
	require.Error(t, err)
}

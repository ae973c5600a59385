package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// preferredSheets are tried, case-insensitively, before falling back to the first sheet.
var preferredSheets = []string{"transactions", "data", "export", "sheet1"}

// XLSXReader reads Excel workbook exports.
type XLSXReader struct{}

// Format returns the file extension handled.
func (r *XLSXReader) Format() string { return "xlsx" }

// Read parses the chosen worksheet into a Table.
func (r *XLSXReader) Read(in io.Reader) (Table, error) {
	f, err := excelize.OpenReader(in)
	if err != nil {
		return Table{}, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheet := pickSheet(f.GetSheetList())
	if sheet == "" {
		return Table{Rows: []map[string]string{}, Cells: [][]string{}}, nil
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}

	// Leading blank rows above the header are common in hand-edited exports.
	for len(rows) > 0 && blank(rows[0]) {
		rows = rows[1:]
	}
	return newTable(rows), nil
}

func pickSheet(sheets []string) string {
	for _, want := range preferredSheets {
		for _, s := range sheets {
			if strings.EqualFold(strings.TrimSpace(s), want) {
				return s
			}
		}
	}
	if len(sheets) > 0 {
		return sheets[0]
	}
	return ""
}

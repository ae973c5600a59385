package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVReader reads comma-separated exports. Ragged rows are tolerated.
type CSVReader struct{}

// Format returns the file extension handled.
func (r *CSVReader) Format() string { return "csv" }

// Read parses a CSV export into a Table.
func (r *CSVReader) Read(in io.Reader) (Table, error) {
	cr := csv.NewReader(SkipBOM(in))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("reading CSV: %w", err)
	}
	return newTable(records), nil
}

// SkipBOM returns a reader over in without a leading UTF-8 byte order mark,
// as written by Excel's "CSV UTF-8" export.
func SkipBOM(in io.Reader) io.Reader {
	br := bufio.NewReader(in)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

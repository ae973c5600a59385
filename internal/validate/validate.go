package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cleared-dev/recon/internal/schema"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// RowError lists the defects found in one row. Row is 1-based.
type RowError struct {
	Row      int      `json:"row"`
	Messages []string `json:"errors"`
}

// Report summarizes a validation pass over one file.
type Report struct {
	TotalRecords   int        `json:"total_records"`
	ValidRecords   int        `json:"valid_records"`
	InvalidRecords int        `json:"invalid_records"`
	Errors         []RowError `json:"errors"`
}

// Invalid returns the set of 1-based row numbers that had errors.
func (r Report) Invalid() map[int]bool {
	out := make(map[int]bool, len(r.Errors))
	for _, e := range r.Errors {
		out[e.Row] = true
	}
	return out
}

// Options toggles rules beyond the default set.
type Options struct {
	// StrictDates rejects non-empty date cells that match no known layout.
	StrictDates bool
}

// Rows validates every row against the mapped fields. It never stops early:
// every row is checked and every defect in a row is reported, in field order.
// Zero rows yields an empty report.
func Rows(rows []map[string]string, cm schema.ColumnMapping, fields []schema.Field, opts Options) Report {
	rep := Report{
		TotalRecords: len(rows),
		Errors:       []RowError{},
	}
	for i, row := range rows {
		msgs := Row(row, cm, fields, opts)
		if len(msgs) == 0 {
			rep.ValidRecords++
			continue
		}
		rep.InvalidRecords++
		rep.Errors = append(rep.Errors, RowError{Row: i + 1, Messages: msgs})
	}
	return rep
}

// Cells is Rows over positional rows. Values are looked up by the mapped
// column, so a field mapped to the second of two identical headers reads its
// own column.
func Cells(rows [][]string, cm schema.ColumnMapping, fields []schema.Field, opts Options) Report {
	rep := Report{
		TotalRecords: len(rows),
		Errors:       []RowError{},
	}
	for i, row := range rows {
		msgs := CellRow(row, cm, fields, opts)
		if len(msgs) == 0 {
			rep.ValidRecords++
			continue
		}
		rep.InvalidRecords++
		rep.Errors = append(rep.Errors, RowError{Row: i + 1, Messages: msgs})
	}
	return rep
}

// Row returns the error messages for a single row; nil means the row is valid.
// Fields without a mapped header are skipped.
func Row(row map[string]string, cm schema.ColumnMapping, fields []schema.Field, opts Options) []string {
	return check(cm, fields, opts, func(_, header string) string { return row[header] })
}

// CellRow is Row for a positional row.
func CellRow(row []string, cm schema.ColumnMapping, fields []schema.Field, opts Options) []string {
	return check(cm, fields, opts, func(field, _ string) string {
		v, _ := cm.Cell(row, field)
		return v
	})
}

func check(cm schema.ColumnMapping, fields []schema.Field, opts Options, cell func(field, header string) string) []string {
	var msgs []string
	for _, f := range fields {
		header, ok := cm.Header(f.Name)
		if !ok {
			continue
		}
		value := strings.TrimSpace(cell(f.Name, header))

		if value == "" {
			if f.Required {
				msgs = append(msgs, fmt.Sprintf("Missing required field: %s", header))
			}
			continue
		}

		switch f.Type {
		case schema.TypeEmail:
			if !emailPattern.MatchString(value) {
				msgs = append(msgs, fmt.Sprintf("Invalid email format: %s", value))
			}
		case schema.TypeCurrency:
			amt, err := ParseAmount(value)
			if err != nil || amt.IsNegative() {
				msgs = append(msgs, fmt.Sprintf("Invalid amount: %s", value))
			}
		case schema.TypeDate:
			if opts.StrictDates {
				if _, err := ParseDate(value); err != nil {
					msgs = append(msgs, fmt.Sprintf("Invalid date: %s", value))
				}
			}
		}
	}
	return msgs
}

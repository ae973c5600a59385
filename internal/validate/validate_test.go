package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/recon/internal/schema"
)

var posHeaders = []string{"Date", "Customer", "Amount", "Type"}

func mapHeaders(t *testing.T, headers []string) (schema.ColumnMapping, []schema.Field) {
	t.Helper()
	m := schema.DefaultMapper()
	cm := m.Map(headers)
	require.True(t, cm.IsValid, "fixture headers must map: missing %v", cm.Missing)
	return cm, m.Fields()
}

func TestRows_ValidRow(t *testing.T) {
	cm, fields := mapHeaders(t, posHeaders)
	rows := []map[string]string{
		{"Date": "2024-06-10", "Customer": "A", "Amount": "45.00", "Type": "pos"},
	}

	rep := Rows(rows, cm, fields, Options{})
	assert.Equal(t, 1, rep.TotalRecords)
	assert.Equal(t, 1, rep.ValidRecords)
	assert.Equal(t, 0, rep.InvalidRecords)
	assert.Empty(t, rep.Errors)
}

func TestRows_NegativeAmount(t *testing.T) {
	cm, fields := mapHeaders(t, posHeaders)
	rows := []map[string]string{
		{"Date": "2024-06-10", "Customer": "A", "Amount": "-5", "Type": "pos"},
	}

	rep := Rows(rows, cm, fields, Options{})
	assert.Equal(t, 1, rep.InvalidRecords)
	assert.Equal(t, 0, rep.ValidRecords)
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, RowError{Row: 1, Messages: []string{"Invalid amount: -5"}}, rep.Errors[0])
}

func TestRows_ZeroRows(t *testing.T) {
	cm, fields := mapHeaders(t, posHeaders)

	rep := Rows(nil, cm, fields, Options{})
	assert.Equal(t, Report{Errors: []RowError{}}, rep)
}

func TestRows_ExhaustiveAndOrdered(t *testing.T) {
	headers := []string{"Client", "Treatment", "Total", "Date", "Email", "Phone"}
	cm, fields := mapHeaders(t, headers)
	rows := []map[string]string{
		{"Client": "Ana Ruiz", "Treatment": "Botox", "Total": "$1,200.00", "Date": "06/10/2024", "Email": "ana@example.com", "Phone": ""},
		{"Client": "", "Treatment": "Filler", "Total": "abc", "Date": "2024-06-11", "Email": "not-an-email", "Phone": "555"},
		{"Client": "Bo", "Treatment": "Peel", "Total": "80", "Date": "2024-06-12", "Email": "", "Phone": ""},
		{"Client": "Cy", "Treatment": " ", "Total": "0", "Date": "", "Email": "cy@spa", "Phone": ""},
	}

	rep := Rows(rows, cm, fields, Options{})
	assert.Equal(t, 4, rep.TotalRecords)
	assert.Equal(t, 2, rep.ValidRecords)
	assert.Equal(t, 2, rep.InvalidRecords)
	assert.Equal(t, []RowError{
		{Row: 2, Messages: []string{
			"Missing required field: Client",
			"Invalid amount: abc",
			"Invalid email format: not-an-email",
		}},
		{Row: 4, Messages: []string{
			"Missing required field: Treatment",
			"Missing required field: Date",
			"Invalid email format: cy@spa",
		}},
	}, rep.Errors)
}

func TestRows_UnmappedFieldsIgnored(t *testing.T) {
	cm, fields := mapHeaders(t, posHeaders)
	rows := []map[string]string{
		{"Date": "2024-06-10", "Customer": "A", "Amount": "10", "Type": "pos", "Email": "garbage"},
	}

	rep := Rows(rows, cm, fields, Options{})
	assert.Equal(t, 1, rep.ValidRecords, "Email has no mapped column")
}

func TestRows_MissingCellKey(t *testing.T) {
	cm, fields := mapHeaders(t, posHeaders)
	rows := []map[string]string{{"Customer": "A", "Amount": "10", "Type": "pos"}}

	rep := Rows(rows, cm, fields, Options{})
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, []string{"Missing required field: Date"}, rep.Errors[0].Messages)
}

func TestRows_StrictDates(t *testing.T) {
	cm, fields := mapHeaders(t, posHeaders)
	rows := []map[string]string{
		{"Date": "sometime in June", "Customer": "A", "Amount": "10", "Type": "pos"},
		{"Date": "6/10/2024", "Customer": "B", "Amount": "10", "Type": "pos"},
	}

	lax := Rows(rows, cm, fields, Options{})
	assert.Equal(t, 2, lax.ValidRecords)

	strict := Rows(rows, cm, fields, Options{StrictDates: true})
	assert.Equal(t, 1, strict.ValidRecords)
	require.Len(t, strict.Errors, 1)
	assert.Equal(t, RowError{Row: 1, Messages: []string{"Invalid date: sometime in June"}}, strict.Errors[0])
}

func TestRows_Completeness(t *testing.T) {
	cm, fields := mapHeaders(t, posHeaders)
	amounts := []string{"1", "-1", "", "x", "2.50", "$3", "0"}
	var rows []map[string]string
	for _, a := range amounts {
		rows = append(rows, map[string]string{"Date": "2024-01-01", "Customer": "C", "Amount": a, "Type": "t"})
	}
	for n := 0; n <= len(rows); n++ {
		rep := Rows(rows[:n], cm, fields, Options{})
		assert.Equal(t, rep.TotalRecords, rep.ValidRecords+rep.InvalidRecords)
		assert.Len(t, rep.Errors, rep.InvalidRecords)
	}
}

func TestReport_Invalid(t *testing.T) {
	rep := Report{Errors: []RowError{{Row: 2}, {Row: 5}}}
	assert.Equal(t, map[int]bool{2: true, 5: true}, rep.Invalid())
}

func TestCells_DuplicateHeaderReadsOwnColumn(t *testing.T) {
	headers := []string{"Client", "Treatment", "Amount", "Date", "Contact", "Contact"}
	m := schema.DefaultMapper()
	cm, err := m.Override(headers, map[string]string{
		schema.FieldCustomerName: "Client",
		schema.FieldService:      "Treatment",
		schema.FieldAmount:       "Amount",
		schema.FieldDate:         "Date",
		schema.FieldPhone:        "Contact",
		schema.FieldEmail:        "Contact",
	})
	require.NoError(t, err)
	require.Equal(t, 4, cm.Columns[schema.FieldPhone])
	require.Equal(t, 5, cm.Columns[schema.FieldEmail])

	rows := [][]string{
		{"Ana", "Botox", "450", "06/03/2024", "555-0100", "ana@example.com"},
		{"Ben", "Filler", "80", "06/05/2024", "555-0101", "not-an-email"},
		{"Cy", "Peel", "60", "06/07/2024"},
	}
	rep := Cells(rows, cm, m.Fields(), Options{})
	assert.Equal(t, 3, rep.TotalRecords)
	assert.Equal(t, 2, rep.ValidRecords)
	assert.Equal(t, []RowError{{Row: 2, Messages: []string{"Invalid email format: not-an-email"}}}, rep.Errors)
}

func TestCellRow_MatchesRow(t *testing.T) {
	cm, fields := mapHeaders(t, posHeaders)
	cells := []string{"2024-06-10", "", "-5", "pos"}
	row := map[string]string{"Date": "2024-06-10", "Customer": "", "Amount": "-5", "Type": "pos"}
	assert.Equal(t, Row(row, cm, fields, Options{}), CellRow(cells, cm, fields, Options{}))
}

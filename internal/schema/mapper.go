package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Override errors.
var (
	ErrUnknownField  = errors.New("unknown canonical field")
	ErrUnknownHeader = errors.New("header not in file")
	ErrHeaderReused  = errors.New("header already assigned")
)

// ColumnMapping is the result of mapping one file's headers onto the canonical fields.
// Every header position lands in exactly one of Mapping's values or Unmapped.
type ColumnMapping struct {
	Mapping    map[string]string `json:"mapping"` // canonical field -> original header
	Unmapped   []string          `json:"unmapped"`
	Missing    []string          `json:"missing"` // required fields with no header
	IsValid    bool              `json:"is_valid"`
	Confidence float64           `json:"confidence"`

	// Columns holds the header position behind each Mapping entry, so
	// text-identical headers stay distinct.
	Columns map[string]int `json:"-"`
}

// Header returns the header mapped to field, if any.
func (cm ColumnMapping) Header(field string) (string, bool) {
	h, ok := cm.Mapping[field]
	return h, ok
}

// Cell returns the value of field in a positional row, using the mapped
// column rather than the header text. Cells past the end of row are empty.
func (cm ColumnMapping) Cell(row []string, field string) (string, bool) {
	col, ok := cm.Columns[field]
	if !ok {
		return "", false
	}
	if col >= len(row) {
		return "", true
	}
	return row[col], true
}

// Merge layers human overrides on top of this mapping and returns the combined
// field -> header map for Override. An automatic assignment is dropped when an
// override claims its header.
func (cm ColumnMapping) Merge(overrides map[string]string) map[string]string {
	claimed := make(map[string]bool, len(overrides))
	for _, h := range overrides {
		if h != "" {
			claimed[h] = true
		}
	}
	out := make(map[string]string, len(cm.Mapping)+len(overrides))
	for field, h := range cm.Mapping {
		if _, overridden := overrides[field]; overridden || claimed[h] {
			continue
		}
		out[field] = h
	}
	for field, h := range overrides {
		out[field] = h
	}
	return out
}

type compiledField struct {
	Field
	patterns []string   // normalized, empties dropped
	words    [][]string // per pattern
}

// Mapper maps raw headers onto a canonical field table. Safe for concurrent use.
type Mapper struct {
	fields []compiledField
}

// NewMapper compiles a field table. The table order is the assignment priority.
func NewMapper(fields []Field) (*Mapper, error) {
	if err := ValidateFields(fields); err != nil {
		return nil, err
	}
	m := &Mapper{fields: make([]compiledField, 0, len(fields))}
	for _, f := range fields {
		cf := compiledField{Field: f}
		cf.Patterns = append([]string(nil), f.Patterns...)
		for _, p := range f.Patterns {
			np := NormalizeHeader(p)
			if np == "" {
				continue
			}
			cf.patterns = append(cf.patterns, np)
			cf.words = append(cf.words, strings.Fields(np))
		}
		m.fields = append(m.fields, cf)
	}
	return m, nil
}

// DefaultMapper returns a Mapper over DefaultFields.
func DefaultMapper() *Mapper {
	m, err := NewMapper(DefaultFields())
	if err != nil {
		panic("default field table: " + err.Error())
	}
	return m
}

// Fields returns the field table in priority order.
func (m *Mapper) Fields() []Field {
	out := make([]Field, len(m.fields))
	for i, f := range m.fields {
		out[i] = f.Field
	}
	return out
}

// Field looks up a canonical field by name.
func (m *Mapper) Field(name string) (Field, bool) {
	for _, f := range m.fields {
		if f.Name == name {
			return f.Field, true
		}
	}
	return Field{}, false
}

// Map assigns headers to canonical fields in two passes. Pass 1 (exact or
// containment) runs for every field before pass 2 (word overlap) runs for the
// fields still open. Within a pass, pattern order beats header order, and a
// header assigned to an earlier field is never reassigned. Never fails; an
// empty header list yields an invalid mapping with confidence 0.
func (m *Mapper) Map(headers []string) ColumnMapping {
	norms := make([]string, len(headers))
	words := make([][]string, len(headers))
	for i, h := range headers {
		norms[i] = NormalizeHeader(h)
		words[i] = strings.Fields(norms[i])
	}

	assigned := make([]bool, len(headers))
	columns := make(map[string]int)

	for _, f := range m.fields {
		if col := exactMatch(f, norms, assigned); col >= 0 {
			columns[f.Name] = col
			assigned[col] = true
		}
	}

	for _, f := range m.fields {
		if _, ok := columns[f.Name]; ok {
			continue
		}
		if col := wordMatch(f, words, assigned); col >= 0 {
			columns[f.Name] = col
			assigned[col] = true
		}
	}

	return m.build(headers, columns)
}

func exactMatch(f compiledField, norms []string, assigned []bool) int {
	for _, p := range f.patterns {
		for col, h := range norms {
			if assigned[col] || h == "" {
				continue
			}
			if h == p || strings.Contains(h, p) || strings.Contains(p, h) {
				return col
			}
		}
	}
	return -1
}

func wordMatch(f compiledField, words [][]string, assigned []bool) int {
	for _, pw := range f.words {
		for col, hw := range words {
			if assigned[col] || len(hw) == 0 {
				continue
			}
			if wordsOverlap(pw, hw) {
				return col
			}
		}
	}
	return -1
}

func wordsOverlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if strings.Contains(x, y) || strings.Contains(y, x) {
				return true
			}
		}
	}
	return false
}

// Override builds a new ColumnMapping from a human-edited field -> header map.
// Missing and IsValid are re-derived against the override; an empty header
// leaves the field unmapped. Text-identical headers are taken in file order.
func (m *Mapper) Override(headers []string, overrides map[string]string) (ColumnMapping, error) {
	var unknown []string
	for name := range overrides {
		if _, ok := m.Field(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return ColumnMapping{}, fmt.Errorf("%w: %s", ErrUnknownField, strings.Join(unknown, ", "))
	}

	assigned := make([]bool, len(headers))
	columns := make(map[string]int)
	for _, f := range m.fields {
		want, ok := overrides[f.Name]
		if !ok || want == "" {
			continue
		}
		col, found := -1, false
		for i, h := range headers {
			if h != want {
				continue
			}
			found = true
			if !assigned[i] {
				col = i
				break
			}
		}
		switch {
		case !found:
			return ColumnMapping{}, fmt.Errorf("%w: %q (field %s)", ErrUnknownHeader, want, f.Name)
		case col < 0:
			return ColumnMapping{}, fmt.Errorf("%w: %q (field %s)", ErrHeaderReused, want, f.Name)
		}
		columns[f.Name] = col
		assigned[col] = true
	}

	return m.build(headers, columns), nil
}

func (m *Mapper) build(headers []string, columns map[string]int) ColumnMapping {
	cm := ColumnMapping{
		Mapping:  make(map[string]string, len(columns)),
		Unmapped: []string{},
		Missing:  []string{},
		Columns:  make(map[string]int, len(columns)),
	}

	used := make(map[int]bool, len(columns))
	for _, f := range m.fields {
		col, ok := columns[f.Name]
		if !ok {
			if f.Required {
				cm.Missing = append(cm.Missing, f.Name)
			}
			continue
		}
		cm.Mapping[f.Name] = headers[col]
		cm.Columns[f.Name] = col
		used[col] = true
	}

	for i, h := range headers {
		if !used[i] {
			cm.Unmapped = append(cm.Unmapped, h)
		}
	}

	cm.IsValid = len(cm.Missing) == 0
	if len(headers) > 0 {
		cm.Confidence = float64(len(cm.Mapping)) / float64(len(headers))
	}
	return cm
}

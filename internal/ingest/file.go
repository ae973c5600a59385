package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/cleared-dev/recon/internal/id"
	"github.com/cleared-dev/recon/internal/model"
	"github.com/cleared-dev/recon/internal/schema"
	"github.com/cleared-dev/recon/internal/validate"
)

// File is one export after reading, mapping and validation.
type File struct {
	Path       string
	Name       string // base name, used in record IDs
	Side       model.Side
	FileType   schema.FileType
	Table      Table
	Mapping    schema.ColumnMapping
	Validation validate.Report
}

// Processor runs the per-file stages. It holds no mutable state, so one
// Processor may serve many goroutines.
type Processor struct {
	Registry *Registry
	Mapper   *schema.Mapper
	Options  validate.Options
}

// NewProcessor returns a Processor with the built-in readers and field table.
func NewProcessor(opts validate.Options) *Processor {
	return &Processor{Registry: DefaultRegistry(), Mapper: schema.DefaultMapper(), Options: opts}
}

// Process reads path, guesses its type, maps its headers and, when the mapping
// is complete, validates its rows. side may be empty, in which case it is
// inferred from the file type and left empty if the type is unknown.
// overrides, if non-nil, are layered over the automatic mapping.
func (p *Processor) Process(path string, side model.Side, overrides map[string]string) (*File, error) {
	t, err := p.Registry.ReadFile(path)
	if err != nil {
		return nil, err
	}

	f := &File{
		Path:       path,
		Name:       filepath.Base(path),
		Side:       side,
		FileType:   schema.DetectFileType(t.Headers),
		Table:      t,
		Validation: validate.Report{Errors: []validate.RowError{}},
	}
	if f.Side == "" {
		f.Side, _ = f.FileType.Side()
	}

	f.Mapping = p.Mapper.Map(t.Headers)
	if overrides != nil {
		f.Mapping, err = p.Mapper.Override(t.Headers, f.Mapping.Merge(overrides))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
	}

	if f.Mapping.IsValid {
		f.Validation = validate.Cells(t.Cells, f.Mapping, p.Mapper.Fields(), p.Options)
	}
	return f, nil
}

// Records converts the file's valid rows into normalized records. A file whose
// mapping is incomplete yields none.
func (f *File) Records() []model.Record {
	if !f.Mapping.IsValid {
		return nil
	}
	invalid := f.Validation.Invalid()

	out := make([]model.Record, 0, len(f.Table.Cells)-len(invalid))
	for i, cells := range f.Table.Cells {
		n := i + 1
		if invalid[n] {
			continue
		}
		out = append(out, f.record(n, cells, f.Table.Rows[i]))
	}
	return out
}

func (f *File) record(n int, cells []string, row map[string]string) model.Record {
	cell := func(field string) string {
		v, _ := f.Mapping.Cell(cells, field)
		return strings.TrimSpace(v)
	}

	r := model.Record{
		ID:           id.FormatRecordID(string(f.Side), f.Name, n),
		Side:         f.Side,
		File:         f.Name,
		Row:          n,
		SourceSystem: string(f.FileType),
		CustomerName: collapseSpace(cell(schema.FieldCustomerName)),
		Service:      collapseSpace(cell(schema.FieldService)),
		Phone:        digits(cell(schema.FieldPhone)),
		Raw:          row,
	}
	if amt, err := validate.ParseAmount(cell(schema.FieldAmount)); err == nil {
		r.Amount = amt
	}
	if d, err := validate.ParseDate(cell(schema.FieldDate)); err == nil {
		r.Date = d
	}
	if email := strings.ToLower(cell(schema.FieldEmail)); strings.Contains(email, "@") {
		r.Email = email
	}
	return r
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

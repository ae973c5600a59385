package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cleared-dev/recon/internal/model"
)

// ErrUnsupportedFormat is returned for a file extension with no registered reader.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Table is one uploaded file as ordered headers plus rows keyed by header text.
// With duplicate header text the first column wins in the row map; Cells keeps
// every column by position, padded to len(Headers).
type Table struct {
	Headers []string
	Rows    []map[string]string
	Cells   [][]string
}

// Reader converts an export file into a Table.
type Reader interface {
	Read(r io.Reader) (Table, error)
	Format() string
}

// Registry holds readers keyed by file extension.
type Registry struct {
	readers map[string]Reader
}

// NewRegistry creates an empty reader registry.
func NewRegistry() *Registry {
	return &Registry{readers: make(map[string]Reader)}
}

// Register adds a reader. Panics on duplicate format.
func (r *Registry) Register(rd Reader) {
	key := strings.ToLower(rd.Format())
	if _, ok := r.readers[key]; ok {
		panic("duplicate reader format: " + key)
	}
	r.readers[key] = rd
}

// Get returns the reader for format, or nil.
func (r *Registry) Get(format string) Reader {
	return r.readers[strings.ToLower(format)]
}

// Formats returns the registered formats, sorted.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.readers))
	for k := range r.readers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ForPath picks a reader by the file's extension.
func (r *Registry) ForPath(path string) (Reader, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	rd := r.Get(ext)
	if rd == nil {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrUnsupportedFormat, filepath.Base(path), strings.Join(r.Formats(), ", "))
	}
	return rd, nil
}

// ReadFile opens path and reads it with the matching reader.
func (r *Registry) ReadFile(path string) (Table, error) {
	rd, err := r.ForPath(path)
	if err != nil {
		return Table{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	t, err := rd.Read(f)
	if err != nil {
		return Table{}, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// DefaultRegistry returns a registry with all built-in readers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&CSVReader{})
	r.Register(&XLSXReader{})
	return r
}

// newTable builds a Table from raw records whose first element is the header
// row. Blank rows are dropped; short rows are padded with empty cells.
func newTable(records [][]string) Table {
	t := Table{Rows: []map[string]string{}, Cells: [][]string{}}
	if len(records) == 0 {
		return t
	}
	t.Headers = append([]string{}, records[0]...)

	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		cells := make([]string, len(t.Headers))
		copy(cells, rec)
		row := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			if _, dup := row[h]; !dup {
				row[h] = cells[i]
			}
		}
		t.Rows = append(t.Rows, row)
		t.Cells = append(t.Cells, cells)
	}
	return t
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// FileInfo describes an importable file waiting under the import directory.
type FileInfo struct {
	Name string
	Path string
	Side model.Side
	Size int64
}

// processedDir is the subdirectory files move to once reconciled.
const processedDir = "processed"

// sideDirs maps import subdirectories onto reconciliation sides.
var sideDirs = []struct {
	dir  string
	side model.Side
}{
	{"source", model.SideSource},
	{"pos", model.SidePOS},
}

// Scan returns files in <importDir>/source and <importDir>/pos that some
// registered reader understands. A missing directory is not an error.
func Scan(importDir string, reg *Registry) ([]FileInfo, error) {
	var files []FileInfo
	for _, sd := range sideDirs {
		dir := filepath.Join(importDir, sd.dir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading import dir: %w", err)
		}

		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			if _, err := reg.ForPath(e.Name()); err != nil {
				continue
			}
			info, err := e.Info()
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
			}
			files = append(files, FileInfo{
				Name: e.Name(),
				Path: filepath.Join(dir, e.Name()),
				Side: sd.side,
				Size: info.Size(),
			})
		}
	}
	return files, nil
}

// MarkProcessed moves a scanned file to <importDir>/processed/<side>/.
func MarkProcessed(importDir string, f FileInfo) error {
	dstDir := filepath.Join(importDir, processedDir, string(f.Side))
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, f.Name)
	if err := os.Rename(f.Path, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", f.Name, err)
	}
	return nil
}

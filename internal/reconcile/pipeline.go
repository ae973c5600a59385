package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/recon/internal/ingest"
	"github.com/cleared-dev/recon/internal/model"
)

// ErrUnknownSide means a file's side was neither given nor inferable from its headers.
var ErrUnknownSide = errors.New("cannot tell whether file is a source or POS export")

// FileSpec names one input file. An empty Side is inferred from the file type.
// Overrides, if non-nil, are human field -> header corrections layered over the
// automatic mapping.
type FileSpec struct {
	Path      string
	Side      model.Side
	Overrides map[string]string
}

// Pipeline runs per-file ingestion concurrently.
type Pipeline struct {
	processor *ingest.Processor
	workers   int
	logger    *slog.Logger
}

// NewPipeline creates a pipeline. workers < 1 means 1; a nil logger means slog.Default().
func NewPipeline(p *ingest.Processor, workers int, logger *slog.Logger) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{processor: p, workers: workers, logger: logger}
}

// Ingest processes every file on its own goroutine, at most workers at a time.
// Files share no state. Results keep input order; failed files are omitted and
// their errors joined into the returned error. Same-side files sharing a base
// name are renamed "name#2", "name#3", ... in input order so record IDs stay
// unique.
func (p *Pipeline) Ingest(ctx context.Context, specs []FileSpec) ([]*ingest.File, error) {
	files := make([]*ingest.File, len(specs))
	errs := make([]error, len(specs))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, spec := range specs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			f, err := p.processor.Process(spec.Path, spec.Side, spec.Overrides)
			if err != nil {
				errs[i] = err
				return nil
			}
			if f.Side == "" {
				errs[i] = fmt.Errorf("%s (type %s): %w", f.Name, f.FileType, ErrUnknownSide)
				return nil
			}
			p.logger.Info("ingested file",
				"file", f.Name,
				"file_type", f.FileType,
				"side", f.Side,
				"confidence", f.Mapping.Confidence,
				"valid", f.Validation.ValidRecords,
				"invalid", f.Validation.InvalidRecords)
			if !f.Mapping.IsValid {
				p.logger.Warn("mapping incomplete", "file", f.Name, "missing", f.Mapping.Missing)
			}
			files[i] = f
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*ingest.File, 0, len(specs))
	for _, f := range files {
		if f != nil {
			out = append(out, f)
		}
	}
	p.uniqueNames(out)
	return out, errors.Join(errs...)
}

func (p *Pipeline) uniqueNames(files []*ingest.File) {
	used := make(map[string]bool, len(files))
	for _, f := range files {
		name := f.Name
		for n := 2; used[string(f.Side)+":"+name]; n++ {
			name = fmt.Sprintf("%s#%d", f.Name, n)
		}
		used[string(f.Side)+":"+name] = true
		if name != f.Name {
			p.logger.Warn("duplicate file name, renamed for record IDs", "path", f.Path, "name", name)
			f.Name = name
		}
	}
}

// SplitRecords gathers the records of every file by side, in file order.
func SplitRecords(files []*ingest.File) (source, pos []model.Record) {
	for _, f := range files {
		switch f.Side {
		case model.SideSource:
			source = append(source, f.Records()...)
		case model.SidePOS:
			pos = append(pos, f.Records()...)
		}
	}
	return source, pos
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recon/internal/cli"
	"github.com/cleared-dev/recon/internal/id"
	"github.com/cleared-dev/recon/internal/ingest"
	"github.com/cleared-dev/recon/internal/model"
	"github.com/cleared-dev/recon/internal/reconcile"
	"github.com/cleared-dev/recon/internal/report"
	"github.com/cleared-dev/recon/internal/runlog"
)

// errMappingIncomplete is returned when an input file cannot be mapped.
var errMappingIncomplete = errors.New("mapping incomplete")

// inputFlags are the --source/--pos file lists and --map overrides shared by
// pairs and reconcile.
type inputFlags struct {
	source []string
	pos    []string
	maps   []string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.source, "source", nil, "loyalty/rewards export (repeatable)")
	cmd.Flags().StringArrayVar(&f.pos, "pos", nil, "POS export (repeatable)")
	cmd.Flags().StringArrayVar(&f.maps, "map", nil, "override the mapping as [file:]field=header; without file it applies to every input (repeatable)")
}

// fileMap is one parsed --map entry. An empty file applies to every input.
type fileMap struct {
	file   string
	field  string
	header string
}

func parseFileMap(s string) (fileMap, error) {
	left, header, ok := strings.Cut(s, "=")
	if !ok {
		return fileMap{}, fmt.Errorf("invalid --map %q: want [file:]field=header", s)
	}
	var m fileMap
	if i := strings.LastIndex(left, ":"); i >= 0 {
		m.file, left = left[:i], left[i+1:]
	}
	m.field = strings.TrimSpace(left)
	m.header = header
	if m.field == "" {
		return fileMap{}, fmt.Errorf("invalid --map %q: want [file:]field=header", s)
	}
	return m, nil
}

// withOverrides attaches the --map entries to specs, in flag order. A file
// prefix matches an input's base name or its path as given.
func (f *inputFlags) withOverrides(specs []reconcile.FileSpec) ([]reconcile.FileSpec, error) {
	for _, raw := range f.maps {
		m, err := parseFileMap(raw)
		if err != nil {
			return nil, err
		}
		matched := false
		for i := range specs {
			if m.file != "" && m.file != filepath.Base(specs[i].Path) && filepath.Clean(m.file) != filepath.Clean(specs[i].Path) {
				continue
			}
			if specs[i].Overrides == nil {
				specs[i].Overrides = make(map[string]string)
			}
			specs[i].Overrides[m.field] = m.header
			matched = true
		}
		if !matched {
			return nil, fmt.Errorf("invalid --map %q: no input file %q", raw, m.file)
		}
	}
	return specs, nil
}

func (f *inputFlags) specs() []reconcile.FileSpec {
	specs := make([]reconcile.FileSpec, 0, len(f.source)+len(f.pos))
	for _, p := range f.source {
		specs = append(specs, reconcile.FileSpec{Path: p, Side: model.SideSource})
	}
	for _, p := range f.pos {
		specs = append(specs, reconcile.FileSpec{Path: p, Side: model.SidePOS})
	}
	return specs
}

// loadRecords ingests specs and returns the normalized records of each side.
// Any unreadable file or incomplete mapping fails the whole load.
func loadRecords(ctx context.Context, opts *globalOptions, specs []reconcile.FileSpec) (source, pos []model.Record, err error) {
	proc, err := newProcessor(opts)
	if err != nil {
		return nil, nil, err
	}
	pipeline := reconcile.NewPipeline(proc, opts.cfg.Pipeline.Workers, slog.Default())

	files, err := pipeline.Ingest(ctx, specs)
	if err != nil {
		return nil, nil, err
	}
	for _, f := range files {
		if !f.Mapping.IsValid {
			return nil, nil, fmt.Errorf("%s: %w: missing %v (pass --map %s:field=header; `recon inspect` shows the headers)",
				f.Name, errMappingIncomplete, f.Mapping.Missing, filepath.Base(f.Path))
		}
	}
	source, pos = reconcile.SplitRecords(files)
	return source, pos, nil
}

func newPairsCommand(opts *globalOptions) *cobra.Command {
	var (
		in     inputFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "pairs",
		Short: "Write every source x POS candidate pair for the external scorer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(in.source) == 0 || len(in.pos) == 0 {
				return fmt.Errorf("at least one --source and one --pos file are required")
			}

			specs, err := in.withOverrides(in.specs())
			if err != nil {
				return err
			}
			source, pos, err := loadRecords(cmd.Context(), opts, specs)
			if err != nil {
				return err
			}
			pairs := reconcile.CandidatePairs(source, pos)

			if err := writePairs(cmd.OutOrStdout(), output, pairs); err != nil {
				return err
			}

			if err := runlog.Append(".", []runlog.Entry{{
				Timestamp: time.Now(),
				RunID:     id.NewRunID(),
				Command:   "pairs",
				Details:   fmt.Sprintf("source=%d pos=%d pairs=%d", len(source), len(pos), len(pairs)),
			}}); err != nil {
				slog.Warn("Failed to append run log", "error", err)
			}

			if output != "" && output != "-" {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess(fmt.Sprintf("Wrote %d pairs to %s", len(pairs), output)))
			}
			return nil
		},
	}

	in.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV (default stdout)")

	return cmd
}

func writePairs(stdout io.Writer, output string, pairs []reconcile.Pair) error {
	if output == "" || output == "-" {
		return report.WritePairs(stdout, pairs)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	if err := report.WritePairs(f, pairs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// scanInputs falls back to the import directory when no files are named.
func scanInputs(opts *globalOptions) ([]reconcile.FileSpec, []ingest.FileInfo, error) {
	scanned, err := ingest.Scan(opts.cfg.Paths.ImportDir, ingest.DefaultRegistry())
	if err != nil {
		return nil, nil, err
	}
	specs := make([]reconcile.FileSpec, 0, len(scanned))
	for _, f := range scanned {
		specs = append(specs, reconcile.FileSpec{Path: f.Path, Side: f.Side})
	}
	return specs, scanned, nil
}

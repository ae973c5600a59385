package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recon/internal/cli"
	"github.com/cleared-dev/recon/internal/ingest"
	"github.com/cleared-dev/recon/internal/model"
	"github.com/cleared-dev/recon/internal/schema"
	"github.com/cleared-dev/recon/internal/validate"
)

type inspectOutput struct {
	File       string               `json:"file"`
	FileType   schema.FileType      `json:"file_type"`
	Side       model.Side           `json:"side,omitempty"`
	Mapping    schema.ColumnMapping `json:"column_mapping"`
	Validation *validate.Report     `json:"validation,omitempty"`
}

func newInspectCommand(opts *globalOptions) *cobra.Command {
	var (
		mapFlags []string
		side     string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show the detected file type, column mapping and row validation for an export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := parseMapFlags(mapFlags)
			if err != nil {
				return err
			}
			s, err := parseSide(side)
			if err != nil {
				return err
			}

			proc, err := newProcessor(opts)
			if err != nil {
				return err
			}
			f, err := proc.Process(args[0], s, overrides)
			if err != nil {
				return err
			}

			if asJSON {
				out := inspectOutput{File: f.Name, FileType: f.FileType, Side: f.Side, Mapping: f.Mapping}
				if f.Mapping.IsValid {
					out.Validation = &f.Validation
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			fields := make([]string, 0)
			for _, fd := range proc.Mapper.Fields() {
				fields = append(fields, fd.Name)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatTitle(f.Name))
			fmt.Fprint(cmd.OutOrStdout(), cli.RenderFile(f, fields))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&mapFlags, "map", nil, "override the mapping for a field, as field=header (repeatable)")
	cmd.Flags().StringVar(&side, "side", "", "treat the file as this side (source or pos)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")

	return cmd
}

func newProcessor(opts *globalOptions) (*ingest.Processor, error) {
	mapper, err := opts.cfg.Mapper()
	if err != nil {
		return nil, err
	}
	return &ingest.Processor{
		Registry: ingest.DefaultRegistry(),
		Mapper:   mapper,
		Options:  opts.cfg.ValidateOptions(),
	}, nil
}

// parseMapFlags turns ["date=When", "email="] into an override map. An empty
// header leaves the field unmapped.
func parseMapFlags(flags []string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(flags))
	for _, f := range flags {
		field, header, ok := strings.Cut(f, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid --map %q: want field=header", f)
		}
		out[field] = header
	}
	return out, nil
}

func parseSide(s string) (model.Side, error) {
	switch model.Side(s) {
	case "", model.SideSource, model.SidePOS:
		return model.Side(s), nil
	}
	return "", fmt.Errorf("invalid side %q: want %s or %s", s, model.SideSource, model.SidePOS)
}

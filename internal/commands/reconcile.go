package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recon/internal/cli"
	"github.com/cleared-dev/recon/internal/gitops"
	"github.com/cleared-dev/recon/internal/ingest"
	"github.com/cleared-dev/recon/internal/match"
	"github.com/cleared-dev/recon/internal/reconcile"
	"github.com/cleared-dev/recon/internal/report"
	"github.com/cleared-dev/recon/internal/runlog"
)

func newReconcileCommand(opts *globalOptions) *cobra.Command {
	var (
		in         inputFlags
		scoresPath string
		outDir     string
		autoAccept float64
		review     float64
		asJSON     bool
		archive    bool
		commit     bool
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Classify scored pairs into tiers and report unmatched records",
		Long: `Ingests the source and POS exports, scores every candidate pair from the
--scores table, buckets each pair into auto_accept / manual_review / no_match,
assigns pairs one-to-one and writes matches.csv, unmatched.csv and
summary.json. With no --source/--pos files, everything under
<import_dir>/source and <import_dir>/pos is used.

A file whose headers cannot all be mapped is fixed with --map, e.g.
--map alle_june.csv:date=When (scoped to one file) or --map date=When
(every input).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			th := opts.cfg.Thresholds
			if cmd.Flags().Changed("auto-accept") {
				th.AutoAccept = autoAccept
			}
			if cmd.Flags().Changed("review") {
				th.Review = review
			}
			classifier, err := match.NewClassifier(th)
			if err != nil {
				return err
			}

			if commit && !gitops.IsRepo(".") {
				return fmt.Errorf("--commit: current directory is not a git repository (run `recon init --git`)")
			}

			scorer, err := reconcile.LoadTableScorerFile(scoresPath)
			if err != nil {
				return err
			}

			specs := in.specs()
			var scanned []ingest.FileInfo
			if len(specs) == 0 {
				specs, scanned, err = scanInputs(opts)
				if err != nil {
					return err
				}
				if len(specs) == 0 {
					return fmt.Errorf("no input files: pass --source/--pos or add exports under %s", opts.cfg.Paths.ImportDir)
				}
			}

			specs, err = in.withOverrides(specs)
			if err != nil {
				return err
			}

			source, pos, err := loadRecords(ctx, opts, specs)
			if err != nil {
				return err
			}

			pairs := reconcile.CandidatePairs(source, pos)
			onScored := func() {}
			if !noProgress && !asJSON {
				bar := cli.NewProgress(cmd.ErrOrStderr(), len(pairs), "Scoring pairs")
				defer func() { _ = bar.Finish() }()
				onScored = func() { cli.Step(bar) }
			}
			candidates, err := reconcile.ScorePairs(ctx, scorer, pairs, opts.cfg.Pipeline.Workers, onScored)
			if err != nil {
				return err
			}
			slog.Debug("scored pairs", "pairs", len(pairs), "candidates", len(candidates))

			rep, err := reconcile.Reconcile(source, pos, candidates, classifier)
			if err != nil {
				return err
			}

			if outDir == "" {
				outDir = opts.cfg.Paths.ReportsDir
			}
			paths, err := report.WriteAll(outDir, rep)
			if err != nil {
				return err
			}
			slog.Info("reports written", "run_id", rep.RunID, "dir", outDir, "files", len(paths))

			s := rep.Summary
			if err := runlog.Append(".", []runlog.Entry{{
				Timestamp: time.Now(),
				RunID:     rep.RunID,
				Command:   "reconcile",
				Details: fmt.Sprintf("total=%d auto_accept=%d manual_review=%d no_match=%d superseded=%d unmatched_source=%d unmatched_pos=%d",
					s.Total, s.AutoAccept, s.ManualReview, s.NoMatch, s.Superseded, s.UnmatchedSource, s.UnmatchedPOS),
			}}); err != nil {
				slog.Warn("Failed to append run log", "error", err)
			}

			if archive {
				for _, f := range scanned {
					if err := ingest.MarkProcessed(opts.cfg.Paths.ImportDir, f); err != nil {
						return err
					}
				}
			}

			if commit {
				if err := commitRun(rep, outDir); err != nil {
					return err
				}
			}

			if asJSON {
				return report.WriteSummary(cmd.OutOrStdout(), rep)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSummary(rep))
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Reports written to "+outDir))
			if len(rep.NeedsReview) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(fmt.Sprintf("%d pairs need review", len(rep.NeedsReview))))
			}
			return nil
		},
	}

	in.register(cmd)
	cmd.Flags().StringVar(&scoresPath, "scores", "", "CSV of externally computed pair scores (source_id,pos_id,match_probability,...)")
	_ = cmd.MarkFlagRequired("scores")
	cmd.Flags().StringVar(&outDir, "out", "", "report directory (default paths.reports_dir)")
	cmd.Flags().Float64Var(&autoAccept, "auto-accept", 0, "auto-accept threshold for this run")
	cmd.Flags().Float64Var(&review, "review", 0, "review threshold for this run")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print summary.json to stdout instead of text")
	cmd.Flags().BoolVar(&archive, "archive", false, "move scanned import files to processed/ after the run")
	cmd.Flags().BoolVar(&commit, "commit", false, "commit the reports and run log to the workspace git repository")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "hide the scoring progress bar")

	return cmd
}

// commitRun records the reports and run log of rep as one commit in the
// current workspace.
func commitRun(rep *reconcile.Report, outDir string) error {
	s := rep.Summary
	msg := fmt.Sprintf("reconcile: run %s\n\nauto_accept=%d manual_review=%d no_match=%d unmatched=%d",
		rep.RunID, s.AutoAccept, s.ManualReview, s.NoMatch, s.UnmatchedSource+s.UnmatchedPOS)
	hash, err := gitops.Commit(".", msg, gitops.DefaultAuthor, outDir, runlog.Path("."))
	if err != nil {
		return err
	}
	slog.Info("committed run", "run_id", rep.RunID, "commit", hash)
	return nil
}

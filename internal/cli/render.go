package cli

import (
	"fmt"
	"strings"

	"github.com/cleared-dev/recon/internal/ingest"
	"github.com/cleared-dev/recon/internal/model"
	"github.com/cleared-dev/recon/internal/reconcile"
)

// RenderFile describes one inspected file: type guess, mapping and validation.
func RenderFile(f *ingest.File, fieldOrder []string) string {
	var b strings.Builder
	fmt.Fprintln(&b, KeyValue("File type", string(f.FileType)))
	side := string(f.Side)
	if side == "" {
		side = SubtleStyle.Render("unknown")
	}
	fmt.Fprintln(&b, KeyValue("Side", side))
	fmt.Fprintln(&b, KeyValue("Mapping confidence", fmt.Sprintf("%.0f%%", f.Mapping.Confidence*100)))

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, FormatTitle("Column mapping"))
	for _, name := range fieldOrder {
		if h, ok := f.Mapping.Header(name); ok {
			fmt.Fprintln(&b, KeyValue("  "+name, h))
		}
	}
	for _, name := range f.Mapping.Missing {
		fmt.Fprintln(&b, KeyValue("  "+name, ErrorStyle.Render("missing")))
	}
	if len(f.Mapping.Unmapped) > 0 {
		fmt.Fprintln(&b, KeyValue("  unmapped", SubtleStyle.Render(strings.Join(f.Mapping.Unmapped, ", "))))
	}

	fmt.Fprintln(&b)
	if !f.Mapping.IsValid {
		fmt.Fprintln(&b, FormatError("mapping incomplete; supply --map field=header to continue"))
		return b.String()
	}

	v := f.Validation
	fmt.Fprintln(&b, FormatTitle("Validation"))
	fmt.Fprintln(&b, KeyValue("  total", fmt.Sprint(v.TotalRecords)))
	fmt.Fprintln(&b, KeyValue("  valid", SuccessStyle.Render(fmt.Sprint(v.ValidRecords))))
	fmt.Fprintln(&b, KeyValue("  invalid", invalidCount(v.InvalidRecords)))
	for _, e := range v.Errors {
		fmt.Fprintf(&b, "  row %d: %s\n", e.Row, strings.Join(e.Messages, "; "))
	}
	return b.String()
}

func invalidCount(n int) string {
	if n == 0 {
		return fmt.Sprint(n)
	}
	return ErrorStyle.Render(fmt.Sprint(n))
}

// RenderSummary renders the tier counts and leftovers of a run.
func RenderSummary(rep *reconcile.Report) string {
	s := rep.Summary
	lines := []string{
		KeyValue("Run", SubtleStyle.Render(rep.RunID)),
		KeyValue("Records", fmt.Sprintf("%d source, %d pos", s.SourceRecords, s.POSRecords)),
		KeyValue("Candidates", fmt.Sprint(s.Total)),
		KeyValue("Auto-accepted", TierStyle(model.RecommendAutoAccept).Render(fmt.Sprint(s.AutoAccept))),
		KeyValue("Needs review", TierStyle(model.RecommendManualReview).Render(fmt.Sprint(s.ManualReview))),
		KeyValue("No match", TierStyle(model.RecommendNoMatch).Render(fmt.Sprint(s.NoMatch))),
		KeyValue("Auto-accept rate", fmt.Sprintf("%.1f%%", s.AutoAcceptRatePercent)),
		KeyValue("Superseded", fmt.Sprint(s.Superseded)),
		KeyValue("Unmatched", fmt.Sprintf("%d source, %d pos", s.UnmatchedSource, s.UnmatchedPOS)),
	}
	return RenderBox("Reconciliation", strings.Join(lines, "\n"))
}

package reconcile

import (
	"fmt"

	"github.com/cleared-dev/recon/internal/id"
	"github.com/cleared-dev/recon/internal/match"
	"github.com/cleared-dev/recon/internal/model"
)

// Summary extends the tier counts with record-level totals.
type Summary struct {
	match.Summary
	SourceRecords   int `json:"source_records"`
	POSRecords      int `json:"pos_records"`
	UnmatchedSource int `json:"unmatched_source"`
	UnmatchedPOS    int `json:"unmatched_pos"`
	Superseded      int `json:"superseded"`
}

// Report is the outcome of one reconciliation run.
type Report struct {
	RunID      string
	Thresholds match.Thresholds
	// Matches holds every classified candidate in input order.
	Matches      []model.ClassifiedMatch
	AutoAccepted []model.ClassifiedMatch
	NeedsReview  []model.ClassifiedMatch
	// Superseded pairs were actionable but lost a record to a stronger pair.
	Superseded []model.ClassifiedMatch
	Unmatched  []model.UnmatchedRecord
	Summary    Summary
}

// Assigned returns the accepted and review pairs, auto-accepted first.
func (r *Report) Assigned() []model.ClassifiedMatch {
	out := make([]model.ClassifiedMatch, 0, len(r.AutoAccepted)+len(r.NeedsReview))
	out = append(out, r.AutoAccepted...)
	return append(out, r.NeedsReview...)
}

// Reconcile classifies all candidates, then, once every candidate has a tier,
// assigns pairs one-to-one and resolves leftovers. Every input record ends up
// in exactly one assigned pair or in Unmatched.
func Reconcile(source, pos []model.Record, candidates []model.MatchCandidate, classifier *match.Classifier) (*Report, error) {
	matches, err := classifier.Classify(candidates)
	if err != nil {
		return nil, fmt.Errorf("classifying candidates: %w", err)
	}

	assigned, superseded := match.Assign(matches)
	unmatched := match.ResolveUnmatched(source, pos, assigned)

	rep := &Report{
		RunID:      id.NewRunID(),
		Thresholds: classifier.Thresholds(),
		Matches:    matches,
		Superseded: superseded,
		Unmatched:  unmatched,
	}
	for _, m := range assigned {
		if m.Recommendation == model.RecommendAutoAccept {
			rep.AutoAccepted = append(rep.AutoAccepted, m)
		} else {
			rep.NeedsReview = append(rep.NeedsReview, m)
		}
	}

	rep.Summary = Summary{
		Summary:       match.Summarize(matches),
		SourceRecords: len(source),
		POSRecords:    len(pos),
		Superseded:    len(superseded),
	}
	for _, u := range unmatched {
		if u.Side == model.SideSource {
			rep.Summary.UnmatchedSource++
		} else {
			rep.Summary.UnmatchedPOS++
		}
	}
	return rep, nil
}

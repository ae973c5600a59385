package match

import (
	"sort"

	"github.com/cleared-dev/recon/internal/model"
)

func tierRank(r model.Recommendation) int {
	if r == model.RecommendAutoAccept {
		return 0
	}
	return 1
}

// Assign picks a one-to-one subset of the actionable matches so no record sits
// in two pairs. Auto-accept pairs claim records before manual-review pairs,
// then higher probability wins, then input order. Actionable pairs that lose a
// record are returned as superseded. Both slices keep input order.
func Assign(matches []model.ClassifiedMatch) (assigned, superseded []model.ClassifiedMatch) {
	var order []int
	for i, m := range matches {
		if m.Recommendation.Actionable() {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		ma, mb := matches[order[a]], matches[order[b]]
		if ra, rb := tierRank(ma.Recommendation), tierRank(mb.Recommendation); ra != rb {
			return ra < rb
		}
		return ma.Probability > mb.Probability
	})

	claimedSource := make(map[string]bool)
	claimedPOS := make(map[string]bool)
	won := make(map[int]bool, len(order))
	lost := make(map[int]bool)
	for _, i := range order {
		m := matches[i]
		if claimedSource[m.Source.ID] || claimedPOS[m.POS.ID] {
			lost[i] = true
			continue
		}
		claimedSource[m.Source.ID], claimedPOS[m.POS.ID] = true, true
		won[i] = true
	}

	for i, m := range matches {
		switch {
		case won[i]:
			assigned = append(assigned, m)
		case lost[i]:
			superseded = append(superseded, m)
		}
	}
	return assigned, superseded
}

// ResolveUnmatched returns every record that appears in no actionable match,
// source side first, each side in input order. Pure and idempotent.
func ResolveUnmatched(source, pos []model.Record, matches []model.ClassifiedMatch) []model.UnmatchedRecord {
	matchedSource := make(map[string]bool)
	matchedPOS := make(map[string]bool)
	for _, m := range matches {
		if !m.Recommendation.Actionable() {
			continue
		}
		matchedSource[m.Source.ID] = true
		matchedPOS[m.POS.ID] = true
	}

	out := []model.UnmatchedRecord{}
	for _, r := range source {
		if !matchedSource[r.ID] {
			out = append(out, model.UnmatchedRecord{Side: model.SideSource, Record: r, Reason: model.UnmatchedReason})
		}
	}
	for _, r := range pos {
		if !matchedPOS[r.ID] {
			out = append(out, model.UnmatchedRecord{Side: model.SidePOS, Record: r, Reason: model.UnmatchedReason})
		}
	}
	return out
}

package model

// Recommendation is the tier assigned to a scored candidate pair.
type Recommendation string

const (
	RecommendAutoAccept   Recommendation = "auto_accept"
	RecommendManualReview Recommendation = "manual_review"
	RecommendNoMatch      Recommendation = "no_match"
)

// Actionable reports whether the tier keeps both records out of the unmatched set.
func (r Recommendation) Actionable() bool {
	return r == RecommendAutoAccept || r == RecommendManualReview
}

// ConfidenceLevel returns the coarse label shown next to a tier.
func (r Recommendation) ConfidenceLevel() string {
	switch r {
	case RecommendAutoAccept:
		return "high"
	case RecommendManualReview:
		return "medium"
	default:
		return "low"
	}
}

// MatchCandidate is a source/POS pair with a probability from the external scorer.
type MatchCandidate struct {
	Source      Record
	POS         Record
	Probability float64
	Features    map[string]float64 // opaque sub-scores, passed through unchanged
}

// ClassifiedMatch is a MatchCandidate with its tier. Never mutated after creation.
type ClassifiedMatch struct {
	ID string
	MatchCandidate
	Recommendation Recommendation
}

// UnmatchedReason is attached to every leftover record.
const UnmatchedReason = "no suitable counterpart found"

// UnmatchedRecord is an input record that ended up in no actionable pair.
type UnmatchedRecord struct {
	Side   Side
	Record Record
	Reason string
}

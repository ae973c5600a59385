package match

import "github.com/cleared-dev/recon/internal/model"

// Summary counts a batch of classified matches per tier.
type Summary struct {
	Total                 int     `json:"total"`
	AutoAccept            int     `json:"auto_accept"`
	ManualReview          int     `json:"manual_review"`
	NoMatch               int     `json:"no_match"`
	AutoAcceptRatePercent float64 `json:"auto_accept_rate_percent"`
}

// Summarize tallies matches. The rate is 0 for an empty batch.
func Summarize(matches []model.ClassifiedMatch) Summary {
	var s Summary
	for _, m := range matches {
		s.Total++
		switch m.Recommendation {
		case model.RecommendAutoAccept:
			s.AutoAccept++
		case model.RecommendManualReview:
			s.ManualReview++
		default:
			s.NoMatch++
		}
	}
	if s.Total > 0 {
		s.AutoAcceptRatePercent = float64(s.AutoAccept) * 100 / float64(s.Total)
	}
	return s
}

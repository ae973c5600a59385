package match

import (
	"errors"
	"fmt"
	"math"

	"github.com/cleared-dev/recon/internal/id"
	"github.com/cleared-dev/recon/internal/model"
)

var (
	// ErrInvalidThresholds means the tier thresholds would invert or escape [0,1].
	ErrInvalidThresholds = errors.New("invalid match thresholds")
	// ErrInvalidProbability means a scorer produced a probability outside [0,1].
	ErrInvalidProbability = errors.New("invalid match probability")
)

// Thresholds are the tier cut-offs. Review must not exceed AutoAccept.
type Thresholds struct {
	AutoAccept float64 `yaml:"auto_accept" mapstructure:"auto_accept" json:"auto_accept"`
	Review     float64 `yaml:"review" mapstructure:"review" json:"review"`
}

// DefaultThresholds returns the stock cut-offs (0.95 / 0.80).
func DefaultThresholds() Thresholds {
	return Thresholds{AutoAccept: 0.95, Review: 0.80}
}

// Validate rejects thresholds outside [0,1] or with Review above AutoAccept.
func (t Thresholds) Validate() error {
	if !inUnit(t.AutoAccept) {
		return fmt.Errorf("%w: auto_accept %v not in [0,1]", ErrInvalidThresholds, t.AutoAccept)
	}
	if !inUnit(t.Review) {
		return fmt.Errorf("%w: review %v not in [0,1]", ErrInvalidThresholds, t.Review)
	}
	if t.Review > t.AutoAccept {
		return fmt.Errorf("%w: review %v > auto_accept %v", ErrInvalidThresholds, t.Review, t.AutoAccept)
	}
	return nil
}

func inUnit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// Classifier buckets scored pairs into tiers.
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier validates t up front; a bad configuration never classifies anything.
func NewClassifier(t Thresholds) (*Classifier, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{thresholds: t}, nil
}

// Thresholds returns the cut-offs in use.
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Recommend returns the tier for probability p.
func (c *Classifier) Recommend(p float64) (model.Recommendation, error) {
	if !inUnit(p) {
		return "", fmt.Errorf("%w: %v", ErrInvalidProbability, p)
	}
	switch {
	case p >= c.thresholds.AutoAccept:
		return model.RecommendAutoAccept, nil
	case p >= c.thresholds.Review:
		return model.RecommendManualReview, nil
	default:
		return model.RecommendNoMatch, nil
	}
}

// Classify tiers every candidate, preserving order. The first bad probability
// fails the whole batch.
func (c *Classifier) Classify(candidates []model.MatchCandidate) ([]model.ClassifiedMatch, error) {
	out := make([]model.ClassifiedMatch, 0, len(candidates))
	for i, cand := range candidates {
		rec, err := c.Recommend(cand.Probability)
		if err != nil {
			return nil, fmt.Errorf("candidate %d (%s, %s): %w", i, cand.Source.ID, cand.POS.ID, err)
		}
		out = append(out, model.ClassifiedMatch{
			ID:             id.MatchID(cand.Source.ID, cand.POS.ID),
			MatchCandidate: cand,
			Recommendation: rec,
		})
	}
	return out, nil
}

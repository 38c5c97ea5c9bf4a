package evaluation

import (
	"fmt"
	"math"
)

// Weights are the fixed linear-combination weights of the confidence
// aggregator. They must sum to 1.0; a mismatch is a configuration
// error and fails at construction, never at scoring time.
type Weights struct {
	Provider         float64 `mapstructure:"provider"`
	Codes            float64 `mapstructure:"codes"`
	PolicyMatch      float64 `mapstructure:"policy_match"`
	ClinicalCriteria float64 `mapstructure:"clinical_criteria"`
	Documentation    float64 `mapstructure:"documentation"`
}

// weightEpsilon is the tolerance on the weight sum
const weightEpsilon = 1e-9

// DefaultWeights returns the standard weight set
func DefaultWeights() Weights {
	return Weights{
		Provider:         0.20,
		Codes:            0.15,
		PolicyMatch:      0.20,
		ClinicalCriteria: 0.35,
		Documentation:    0.10,
	}
}

// Validate ensures each weight is within [0,1] and the set sums to 1.0
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"provider":          w.Provider,
		"codes":             w.Codes,
		"policy_match":      w.PolicyMatch,
		"clinical_criteria": w.ClinicalCriteria,
		"documentation":     w.Documentation,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("weight %s must be between 0.0 and 1.0, got %.4f", name, v)
		}
	}

	sum := w.Provider + w.Codes + w.PolicyMatch + w.ClinicalCriteria + w.Documentation
	if math.Abs(sum-1.0) > weightEpsilon {
		return fmt.Errorf("weights must sum to 1.0, got %.4f", sum)
	}
	return nil
}

// SubScores are the five named inputs to the aggregator, each 0-100
type SubScores struct {
	Provider         float64 `json:"provider"`
	Codes            float64 `json:"codes"`
	PolicyMatch      float64 `json:"policy_match"`
	ClinicalCriteria float64 `json:"clinical_criteria"`
	Documentation    float64 `json:"documentation"`
}

// Tier classifies an overall confidence score
type Tier string

const (
	TierLow    Tier = "LOW"    // below 60
	TierMedium Tier = "MEDIUM" // 60-79
	TierHigh   Tier = "HIGH"   // 80 and above
)

// Aggregator combines weighted sub-scores into one overall confidence
// value. Pure and side-effect-free.
type Aggregator struct {
	weights Weights
}

// NewAggregator creates an aggregator, validating the weight set
func NewAggregator(weights Weights) (*Aggregator, error) {
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid aggregator weights: %w", err)
	}
	return &Aggregator{weights: weights}, nil
}

// Aggregate returns the weighted overall confidence, 0-100
func (a *Aggregator) Aggregate(s SubScores) float64 {
	return a.weights.Provider*s.Provider +
		a.weights.Codes*s.Codes +
		a.weights.PolicyMatch*s.PolicyMatch +
		a.weights.ClinicalCriteria*s.ClinicalCriteria +
		a.weights.Documentation*s.Documentation
}

// TierFor classifies an overall score
func (a *Aggregator) TierFor(score float64) Tier {
	switch {
	case score >= 80:
		return TierHigh
	case score >= 60:
		return TierMedium
	default:
		return TierLow
	}
}

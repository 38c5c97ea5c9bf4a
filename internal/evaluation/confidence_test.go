package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeightsAreValid(t *testing.T) {
	w := DefaultWeights()

	require.NoError(t, w.Validate())
	assert.Equal(t, 0.20, w.Provider)
	assert.Equal(t, 0.15, w.Codes)
	assert.Equal(t, 0.20, w.PolicyMatch)
	assert.Equal(t, 0.35, w.ClinicalCriteria)
	assert.Equal(t, 0.10, w.Documentation)
}

func TestWeightsValidation(t *testing.T) {
	tests := []struct {
		name          string
		weights       Weights
		expectError   bool
		errorContains string
	}{
		{
			name:    "default weights",
			weights: DefaultWeights(),
		},
		{
			name: "weights sum below one",
			weights: Weights{
				Provider:         0.20,
				Codes:            0.15,
				PolicyMatch:      0.20,
				ClinicalCriteria: 0.30,
				Documentation:    0.10,
			},
			expectError:   true,
			errorContains: "weights must sum to 1.0",
		},
		{
			name: "negative weight",
			weights: Weights{
				Provider:         -0.10,
				Codes:            0.25,
				PolicyMatch:      0.20,
				ClinicalCriteria: 0.55,
				Documentation:    0.10,
			},
			expectError:   true,
			errorContains: "must be between 0.0 and 1.0",
		},
		{
			name: "weight above one",
			weights: Weights{
				Provider:         1.2,
				Codes:            0,
				PolicyMatch:      0,
				ClinicalCriteria: 0,
				Documentation:    0,
			},
			expectError:   true,
			errorContains: "must be between 0.0 and 1.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewAggregatorRejectsBadWeights(t *testing.T) {
	_, err := NewAggregator(Weights{Provider: 0.95})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid aggregator weights")
}

func TestAggregateWeightedSum(t *testing.T) {
	agg, err := NewAggregator(DefaultWeights())
	require.NoError(t, err)

	// 0.20*100 + 0.15*95 + 0.20*80 + 0.35*92 + 0.10*90 = 91.45
	score := agg.Aggregate(SubScores{
		Provider:         100,
		Codes:            95,
		PolicyMatch:      80,
		ClinicalCriteria: 92,
		Documentation:    90,
	})
	assert.InDelta(t, 91.45, score, 1e-9)

	assert.Equal(t, 0.0, agg.Aggregate(SubScores{}))
	assert.InDelta(t, 100.0, agg.Aggregate(SubScores{
		Provider: 100, Codes: 100, PolicyMatch: 100, ClinicalCriteria: 100, Documentation: 100,
	}), 1e-9)
}

func TestTierBoundaries(t *testing.T) {
	agg, err := NewAggregator(DefaultWeights())
	require.NoError(t, err)

	tests := []struct {
		score float64
		tier  Tier
	}{
		{0, TierLow},
		{59.9, TierLow},
		{60, TierMedium},
		{79.9, TierMedium},
		{80, TierHigh},
		{100, TierHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.tier, agg.TierFor(tt.score), "score %.1f", tt.score)
	}
}

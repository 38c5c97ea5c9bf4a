package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOverride() Override {
	return Override{
		RunID:         "run-1",
		PriorOutcome:  OutcomeApproveCandidate,
		FinalOutcome:  OutcomePend,
		Justification: "documentation predates the request window",
		ActorID:       "reviewer-42",
		ActorRole:     "md_reviewer",
	}
}

func TestOverrideValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(o *Override)
		expectError error
	}{
		{
			name:   "confirmation without deny passes",
			mutate: func(o *Override) {},
		},
		{
			name: "missing run id",
			mutate: func(o *Override) {
				o.RunID = ""
			},
			expectError: ErrMissingField,
		},
		{
			name: "missing actor id",
			mutate: func(o *Override) {
				o.ActorID = ""
			},
			expectError: ErrMissingField,
		},
		{
			name: "missing justification",
			mutate: func(o *Override) {
				o.Justification = ""
			},
			expectError: ErrMissingJustification,
		},
		{
			name: "crossing into deny requires clinical basis",
			mutate: func(o *Override) {
				o.PriorOutcome = OutcomePend
				o.FinalOutcome = OutcomeDenyCandidate
			},
			expectError: ErrMissingClinicalBasis,
		},
		{
			name: "crossing out of deny requires clinical basis",
			mutate: func(o *Override) {
				o.PriorOutcome = OutcomeDenyCandidate
				o.FinalOutcome = OutcomeApproveCandidate
			},
			expectError: ErrMissingClinicalBasis,
		},
		{
			name: "deny crossing with clinical basis passes",
			mutate: func(o *Override) {
				o.PriorOutcome = OutcomePend
				o.FinalOutcome = OutcomeDenyCandidate
				o.ClinicalBasis = "imaging contraindication documented in chart"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOverride()
			tt.mutate(&o)

			err := o.Validate()
			if tt.expectError != nil {
				require.ErrorIs(t, err, tt.expectError)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestOverrideValidateRejectsUnknownOutcomes(t *testing.T) {
	o := validOverride()
	o.PriorOutcome = Outcome("APPROVED")
	require.Error(t, o.Validate())

	o = validOverride()
	o.FinalOutcome = Outcome("")
	require.Error(t, o.Validate())
}

func TestOutcomeHelpers(t *testing.T) {
	assert.True(t, OutcomeDenyCandidate.IsDeny())
	assert.False(t, OutcomeApproveCandidate.IsDeny())
	assert.False(t, OutcomePend.IsDeny())

	assert.True(t, OutcomeApproveCandidate.IsValid())
	assert.True(t, OutcomePend.IsValid())
	assert.True(t, OutcomeDenyCandidate.IsValid())
	assert.False(t, Outcome("maybe").IsValid())
}

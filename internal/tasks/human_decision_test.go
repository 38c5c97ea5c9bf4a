package tasks

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medbridge/priorauth/internal/domain/entity"
)

func seedRecommendation(t *testing.T, cps *memCheckpoints, outcome entity.Outcome) {
	t.Helper()
	cps.seed(t, "run-test", entity.TaskRecommendation, RecommendationPayload{
		Decision: entity.Decision{Outcome: outcome, Confidence: 90},
	})
}

func TestHumanDecisionHaltsUntilReviewed(t *testing.T) {
	ctx := context.Background()
	cps := newMemCheckpoints()
	seedRecommendation(t, cps, entity.OutcomeApproveCandidate)

	h := NewHumanDecisionHandler(cps, &stubOverrides{}, zap.NewNop())
	assert.Equal(t, entity.TaskHumanDecision, h.ID())

	_, err := h.Execute(ctx, testRun())
	require.ErrorIs(t, err, ErrHumanDecisionPending)
}

func TestHumanDecisionAcceptsRecordedOverride(t *testing.T) {
	ctx := context.Background()
	cps := newMemCheckpoints()
	seedRecommendation(t, cps, entity.OutcomeApproveCandidate)

	overrides := &stubOverrides{override: &entity.Override{
		RunID:         "run-test",
		PriorOutcome:  entity.OutcomeApproveCandidate,
		FinalOutcome:  entity.OutcomePend,
		Justification: "additional imaging requested",
		ActorID:       "reviewer-1",
		ActorRole:     "md_reviewer",
	}}

	h := NewHumanDecisionHandler(cps, overrides, zap.NewNop())

	raw, err := h.Execute(ctx, testRun())
	require.NoError(t, err)

	var payload HumanDecisionPayload
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, entity.OutcomePend, payload.FinalOutcome)
	assert.Equal(t, entity.OutcomeApproveCandidate, payload.Override.PriorOutcome)
	assert.Equal(t, "reviewer-1", payload.Override.ActorID)
}

func TestHumanDecisionRejectsStaleOverride(t *testing.T) {
	ctx := context.Background()
	cps := newMemCheckpoints()
	seedRecommendation(t, cps, entity.OutcomePend)

	// the override references a candidate that is no longer current
	overrides := &stubOverrides{override: &entity.Override{
		RunID:         "run-test",
		PriorOutcome:  entity.OutcomeApproveCandidate,
		FinalOutcome:  entity.OutcomeApproveCandidate,
		Justification: "confirmed",
		ActorID:       "reviewer-1",
	}}

	h := NewHumanDecisionHandler(cps, overrides, zap.NewNop())

	_, err := h.Execute(ctx, testRun())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrHumanDecisionPending)
	assert.Contains(t, err.Error(), "references outcome")
}

func TestHumanDecisionRequiresRecommendationCheckpoint(t *testing.T) {
	h := NewHumanDecisionHandler(newMemCheckpoints(), &stubOverrides{}, zap.NewNop())

	_, err := h.Execute(context.Background(), testRun())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing recommendation checkpoint")
}

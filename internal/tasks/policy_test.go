package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medbridge/priorauth/internal/domain/entity"
)

func TestPolicySearchSelectsBestCandidate(t *testing.T) {
	ctx := context.Background()
	cps := newMemCheckpoints()
	cps.seed(t, "run-test", entity.TaskIntake, testIntake())

	search := &stubSearch{candidates: []entity.PolicyCandidate{
		{ID: "pol-1", Title: "Lumbar MRI", Score: 0.85, Criteria: []entity.Criterion{{ID: "c1"}}},
		{ID: "pol-2", Title: "Lumbar ESI", Score: 0.40},
	}}

	h := NewPolicySearchHandler(cps, search, zap.NewNop())
	assert.Equal(t, entity.TaskPolicySearch, h.ID())

	raw, err := h.Execute(ctx, testRun())
	require.NoError(t, err)

	var payload PolicyPayload
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.True(t, payload.Found)
	require.NotNil(t, payload.Policy)
	assert.Equal(t, "pol-1", payload.Policy.ID)
	assert.Equal(t, []string{"mri_lumbar_spine", "M54.5"}, payload.Terms)
}

func TestPolicySearchBelowThresholdReportsNotFound(t *testing.T) {
	ctx := context.Background()
	cps := newMemCheckpoints()
	cps.seed(t, "run-test", entity.TaskIntake, testIntake())

	search := &stubSearch{candidates: []entity.PolicyCandidate{
		{ID: "pol-1", Score: 0.30},
	}}

	h := NewPolicySearchHandler(cps, search, zap.NewNop())

	raw, err := h.Execute(ctx, testRun())
	require.NoError(t, err)

	var payload PolicyPayload
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.False(t, payload.Found)
	assert.Nil(t, payload.Policy)
	assert.Equal(t, "no applicable coverage policy located", payload.Note)
}

func TestPolicySearchDegradesOnLookupFailure(t *testing.T) {
	ctx := context.Background()
	cps := newMemCheckpoints()
	cps.seed(t, "run-test", entity.TaskIntake, testIntake())

	search := &stubSearch{err: errors.New("index offline")}

	h := NewPolicySearchHandler(cps, search, zap.NewNop())

	raw, err := h.Execute(ctx, testRun())
	require.NoError(t, err, "search failure must not halt the run")

	var payload PolicyPayload
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.False(t, payload.Found)
	assert.Contains(t, payload.Note, "policy search failed")
}

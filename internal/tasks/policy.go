package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/medbridge/priorauth/internal/application/port"
	"github.com/medbridge/priorauth/internal/domain/entity"
)

// policyMinScore is the minimum relevance score for a search result to
// count as an applicable policy. Below it the run proceeds with no
// policy and the resolver's policy gate pends the case.
const policyMinScore = 0.5

// PolicySearchHandler locates the coverage policy applicable to the
// requested service and diagnosis codes.
type PolicySearchHandler struct {
	checkpoints port.CheckpointRepository
	search      port.PolicySearch
	logger      *zap.Logger
}

// NewPolicySearchHandler creates the policy search task handler
func NewPolicySearchHandler(checkpoints port.CheckpointRepository, search port.PolicySearch, logger *zap.Logger) *PolicySearchHandler {
	return &PolicySearchHandler{checkpoints: checkpoints, search: search, logger: logger}
}

func (h *PolicySearchHandler) ID() string {
	return entity.TaskPolicySearch
}

func (h *PolicySearchHandler) Execute(ctx context.Context, run *entity.Run) (json.RawMessage, error) {
	var intake IntakePayload
	if err := loadCheckpoint(ctx, h.checkpoints, run.ID, entity.TaskIntake, &intake); err != nil {
		return nil, err
	}

	terms := append([]string{intake.Case.RequestedService}, intake.Case.DiagnosisCodes...)
	payload := PolicyPayload{Terms: terms}

	candidates, err := h.search.Search(ctx, terms)
	if err != nil {
		payload.Note = fmt.Sprintf("policy search failed: %v", err)
		h.logger.Warn("Policy search degraded",
			zap.String("run_id", run.ID),
			zap.Error(err))
		return json.Marshal(payload)
	}

	// results are ranked best-first
	if len(candidates) > 0 && candidates[0].Score >= policyMinScore {
		best := candidates[0]
		payload.Found = true
		payload.Policy = &best
		h.logger.Info("Policy located",
			zap.String("run_id", run.ID),
			zap.String("policy_id", best.ID),
			zap.Float64("score", best.Score),
			zap.Int("criteria_count", len(best.Criteria)))
	} else {
		payload.Note = "no applicable coverage policy located"
		h.logger.Info("No applicable policy",
			zap.String("run_id", run.ID),
			zap.Int("candidates", len(candidates)))
	}

	return json.Marshal(payload)
}

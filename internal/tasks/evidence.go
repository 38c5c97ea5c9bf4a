package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/medbridge/priorauth/internal/application/port"
	"github.com/medbridge/priorauth/internal/domain/entity"
	"github.com/medbridge/priorauth/internal/evaluation"
)

// EvidenceMappingHandler evaluates the located policy's criteria
// against the case evidence. When no policy was located the task writes
// an empty evaluation set and the run proceeds; the policy gate already
// accounts for the missing policy.
type EvidenceMappingHandler struct {
	checkpoints port.CheckpointRepository
	evaluator   *evaluation.CriterionEvaluator
	logger      *zap.Logger
}

// NewEvidenceMappingHandler creates the evidence mapping task handler
func NewEvidenceMappingHandler(checkpoints port.CheckpointRepository, evaluator *evaluation.CriterionEvaluator, logger *zap.Logger) *EvidenceMappingHandler {
	return &EvidenceMappingHandler{checkpoints: checkpoints, evaluator: evaluator, logger: logger}
}

func (h *EvidenceMappingHandler) ID() string {
	return entity.TaskEvidenceMapping
}

func (h *EvidenceMappingHandler) Execute(ctx context.Context, run *entity.Run) (json.RawMessage, error) {
	var intake IntakePayload
	if err := loadCheckpoint(ctx, h.checkpoints, run.ID, entity.TaskIntake, &intake); err != nil {
		return nil, err
	}
	var policy PolicyPayload
	if err := loadCheckpoint(ctx, h.checkpoints, run.ID, entity.TaskPolicySearch, &policy); err != nil {
		return nil, err
	}

	if !policy.Found {
		h.logger.Info("Skipping criterion evaluation, no policy located",
			zap.String("run_id", run.ID))
		return json.Marshal(EvidencePayload{
			Evaluations: entity.EvaluationSet{Evaluations: []entity.CriterionEvaluation{}},
			Note:        "no policy located, criteria not evaluated",
		})
	}

	set, err := h.evaluator.Evaluate(policy.Policy.Criteria, intake.Case.Facts)
	if err != nil {
		return nil, fmt.Errorf("criterion evaluation failed for policy %s: %w", policy.Policy.ID, err)
	}

	h.logger.Info("Criteria evaluated",
		zap.String("run_id", run.ID),
		zap.String("policy_id", policy.Policy.ID),
		zap.Int("criteria_count", len(set.Evaluations)),
		zap.Float64("percent_met", set.PercentMet))

	return json.Marshal(EvidencePayload{Evaluations: *set})
}

package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/medbridge/priorauth/internal/application/port"
	"github.com/medbridge/priorauth/internal/domain/entity"
)

// ErrHumanDecisionPending halts the run until a reviewer records their
// decision. The task stays in-progress and the run resumes here once
// the override exists.
var ErrHumanDecisionPending = errors.New("human decision pending")

// HumanDecisionHandler waits for the reviewer's confirmation or
// override of the candidate outcome. Every run passes through a human:
// the candidate never becomes final on its own.
type HumanDecisionHandler struct {
	checkpoints port.CheckpointRepository
	overrides   port.OverrideRepository
	logger      *zap.Logger
}

// NewHumanDecisionHandler creates the human decision task handler
func NewHumanDecisionHandler(checkpoints port.CheckpointRepository, overrides port.OverrideRepository, logger *zap.Logger) *HumanDecisionHandler {
	return &HumanDecisionHandler{checkpoints: checkpoints, overrides: overrides, logger: logger}
}

func (h *HumanDecisionHandler) ID() string {
	return entity.TaskHumanDecision
}

func (h *HumanDecisionHandler) Execute(ctx context.Context, run *entity.Run) (json.RawMessage, error) {
	var rec RecommendationPayload
	if err := loadCheckpoint(ctx, h.checkpoints, run.ID, entity.TaskRecommendation, &rec); err != nil {
		return nil, err
	}

	override, err := h.overrides.GetByRunID(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reviewer decision: %w", err)
	}
	if override == nil {
		return nil, fmt.Errorf("%w: run %s awaits review of %s", ErrHumanDecisionPending, run.ID, rec.Decision.Outcome)
	}

	if override.PriorOutcome != rec.Decision.Outcome {
		return nil, fmt.Errorf("reviewer decision references outcome %s but the candidate is %s", override.PriorOutcome, rec.Decision.Outcome)
	}

	h.logger.Info("Human decision recorded",
		zap.String("run_id", run.ID),
		zap.String("candidate", string(override.PriorOutcome)),
		zap.String("final", string(override.FinalOutcome)),
		zap.String("actor_id", override.ActorID))

	return json.Marshal(HumanDecisionPayload{
		Override:     *override,
		FinalOutcome: override.FinalOutcome,
	})
}

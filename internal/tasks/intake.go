package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/medbridge/priorauth/internal/application/port"
	"github.com/medbridge/priorauth/internal/domain/entity"
)

// IntakeHandler fetches the structured request for the case and
// validates the required fields. This is the only task that reads from
// outside the checkpoint store.
type IntakeHandler struct {
	source port.CaseSource
	logger *zap.Logger
}

// NewIntakeHandler creates the intake task handler
func NewIntakeHandler(source port.CaseSource, logger *zap.Logger) *IntakeHandler {
	return &IntakeHandler{source: source, logger: logger}
}

func (h *IntakeHandler) ID() string {
	return entity.TaskIntake
}

func (h *IntakeHandler) Execute(ctx context.Context, run *entity.Run) (json.RawMessage, error) {
	intake, err := h.source.Fetch(ctx, run.CaseID)
	if err != nil {
		return nil, fmt.Errorf("case intake not available: %w", err)
	}
	if intake == nil {
		return nil, fmt.Errorf("case intake not available for case %s", run.CaseID)
	}

	if err := intake.Validate(); err != nil {
		return nil, fmt.Errorf("intake validation failed: %w", err)
	}

	h.logger.Info("Intake accepted",
		zap.String("run_id", run.ID),
		zap.String("case_id", intake.CaseID),
		zap.String("requested_service", intake.RequestedService),
		zap.Int("fact_count", len(intake.Facts)))

	return json.Marshal(IntakePayload{Case: *intake})
}

package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/medbridge/priorauth/internal/application/port"
	"github.com/medbridge/priorauth/internal/domain/entity"
)

// NotificationHandler renders the determination report from the final
// decision and the criterion evaluations. Read-only over checkpoints.
type NotificationHandler struct {
	checkpoints port.CheckpointRepository
	formatter   port.ReportFormatter
	logger      *zap.Logger
}

// NewNotificationHandler creates the notification task handler
func NewNotificationHandler(checkpoints port.CheckpointRepository, formatter port.ReportFormatter, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{checkpoints: checkpoints, formatter: formatter, logger: logger}
}

func (h *NotificationHandler) ID() string {
	return entity.TaskNotification
}

func (h *NotificationHandler) Execute(ctx context.Context, run *entity.Run) (json.RawMessage, error) {
	var rec RecommendationPayload
	if err := loadCheckpoint(ctx, h.checkpoints, run.ID, entity.TaskRecommendation, &rec); err != nil {
		return nil, err
	}
	var human HumanDecisionPayload
	if err := loadCheckpoint(ctx, h.checkpoints, run.ID, entity.TaskHumanDecision, &human); err != nil {
		return nil, err
	}
	var evidence EvidencePayload
	if err := loadCheckpoint(ctx, h.checkpoints, run.ID, entity.TaskEvidenceMapping, &evidence); err != nil {
		return nil, err
	}

	// the report carries the reviewer's final outcome, not the candidate
	final := rec.Decision
	final.Outcome = human.FinalOutcome

	report, err := h.formatter.Format(ctx, run, &final, &evidence.Evaluations)
	if err != nil {
		return nil, fmt.Errorf("failed to render determination report: %w", err)
	}

	h.logger.Info("Determination report rendered",
		zap.String("run_id", run.ID),
		zap.String("final_outcome", string(human.FinalOutcome)),
		zap.Int("report_bytes", len(report)))

	return json.Marshal(NotificationPayload{
		Report:     report,
		NotifiedAt: time.Now().UTC(),
	})
}

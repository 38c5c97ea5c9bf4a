package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/medbridge/priorauth/internal/application/port"
	"github.com/medbridge/priorauth/internal/domain/entity"
	"github.com/medbridge/priorauth/internal/evaluation"
)

// Checkpoint payloads, one per task. Downstream tasks read these and
// never the raw upstream inputs, so each payload carries everything the
// rest of the pipeline needs from its task.

// IntakePayload is the validated structured request
type IntakePayload struct {
	Case entity.CaseIntake `json:"case"`
}

// VerificationPayload carries both lookup results. Lookup failures
// degrade to failed checks and are noted rather than halting the run.
type VerificationPayload struct {
	Provider entity.ProviderCheck `json:"provider"`
	Codes    []entity.CodeCheck   `json:"codes"`
	Notes    []string             `json:"notes,omitempty"`
}

// PolicyPayload records the policy search outcome. Policy is nil when
// no applicable policy was located.
type PolicyPayload struct {
	Found  bool                    `json:"found"`
	Policy *entity.PolicyCandidate `json:"policy,omitempty"`
	Terms  []string                `json:"terms"`
	Note   string                  `json:"note,omitempty"`
}

// EvidencePayload carries the full criterion evaluation set
type EvidencePayload struct {
	Evaluations entity.EvaluationSet `json:"evaluations"`
	Note        string               `json:"note,omitempty"`
}

// RecommendationPayload is the proposed decision with the sub-scores
// that produced it
type RecommendationPayload struct {
	SubScores        evaluation.SubScores `json:"sub_scores"`
	Decision         entity.Decision      `json:"decision"`
	EvidenceComplete bool                 `json:"evidence_complete"`
	Notes            []string             `json:"notes,omitempty"`
}

// HumanDecisionPayload records the reviewer's confirmation or override
type HumanDecisionPayload struct {
	Override     entity.Override `json:"override"`
	FinalOutcome entity.Outcome  `json:"final_outcome"`
}

// NotificationPayload is the rendered determination report
type NotificationPayload struct {
	Report     string    `json:"report"`
	NotifiedAt time.Time `json:"notified_at"`
}

// loadCheckpoint decodes the latest checkpoint of an upstream task into
// v. A missing checkpoint for a task that should already have completed
// is an ordering violation and fails loudly.
func loadCheckpoint(ctx context.Context, cps port.CheckpointRepository, runID, taskID string, v interface{}) error {
	cp, err := cps.Latest(ctx, runID, taskID)
	if err != nil {
		return fmt.Errorf("failed to read %s checkpoint: %w", taskID, err)
	}
	if cp == nil {
		return fmt.Errorf("missing %s checkpoint for run %s", taskID, runID)
	}
	if err := cp.Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s checkpoint: %w", taskID, err)
	}
	return nil
}

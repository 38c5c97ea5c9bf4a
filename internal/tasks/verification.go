package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/medbridge/priorauth/internal/application/port"
	"github.com/medbridge/priorauth/internal/domain/entity"
)

// VerificationHandler runs the provider and code lookups concurrently.
// A lookup failure does not halt the run: the check degrades to failed
// and the resolver's gate will pend the case with the reason recorded.
type VerificationHandler struct {
	checkpoints port.CheckpointRepository
	providers   port.ProviderRegistry
	codes       port.CodeValidator
	logger      *zap.Logger
}

// NewVerificationHandler creates the verification task handler
func NewVerificationHandler(
	checkpoints port.CheckpointRepository,
	providers port.ProviderRegistry,
	codes port.CodeValidator,
	logger *zap.Logger,
) *VerificationHandler {
	return &VerificationHandler{
		checkpoints: checkpoints,
		providers:   providers,
		codes:       codes,
		logger:      logger,
	}
}

func (h *VerificationHandler) ID() string {
	return entity.TaskVerification
}

func (h *VerificationHandler) Execute(ctx context.Context, run *entity.Run) (json.RawMessage, error) {
	var intake IntakePayload
	if err := loadCheckpoint(ctx, h.checkpoints, run.ID, entity.TaskIntake, &intake); err != nil {
		return nil, err
	}

	payload := VerificationPayload{}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wg.Add(2)

	go func() {
		defer wg.Done()
		check, err := h.providers.Verify(ctx, intake.Case.ProviderID, intake.Case.RequestedService)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			// degrade to a failed check
			payload.Provider = entity.ProviderCheck{ProviderID: intake.Case.ProviderID}
			payload.Notes = append(payload.Notes, fmt.Sprintf("provider lookup failed: %v", err))
			return
		}
		payload.Provider = *check
	}()

	go func() {
		defer wg.Done()
		allCodes := intake.Case.Codes()
		checks, err := h.codes.Validate(ctx, allCodes)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			for _, c := range allCodes {
				payload.Codes = append(payload.Codes, entity.CodeCheck{Code: c, Valid: false})
			}
			payload.Notes = append(payload.Notes, fmt.Sprintf("code lookup failed: %v", err))
			return
		}
		payload.Codes = checks
	}()

	wg.Wait()

	h.logger.Info("Verification completed",
		zap.String("run_id", run.ID),
		zap.Bool("provider_ok", payload.Provider.OK()),
		zap.Int("code_count", len(payload.Codes)),
		zap.Int("degraded_lookups", len(payload.Notes)))

	return json.Marshal(payload)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medbridge/priorauth/internal/application/dispatcher"
	"github.com/medbridge/priorauth/internal/application/port"
	"github.com/medbridge/priorauth/internal/application/sequencer"
	"github.com/medbridge/priorauth/internal/domain/entity"
	"github.com/medbridge/priorauth/internal/domain/event"
	"github.com/medbridge/priorauth/internal/tasks"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ErrRunAlreadyExists is returned when a case already has an active run
var ErrRunAlreadyExists = errors.New("case already has an active run")

// ErrNoDecisionYet is returned when the recommendation checkpoint does
// not exist yet
var ErrNoDecisionYet = errors.New("no candidate decision recorded yet")

// OverrideRequest carries the reviewer's decision for a run
type OverrideRequest struct {
	FinalOutcome  entity.Outcome `json:"final_outcome"`
	Justification string         `json:"justification"`
	ClinicalBasis string         `json:"clinical_basis"`
	ActorID       string         `json:"actor_id"`
	ActorRole     string         `json:"actor_role"`
}

// ReviewService manages the review pipeline for prior-authorization
// cases: run creation, execution, progress, and the human decision.
type ReviewService interface {
	// SubmitCase validates the intake, creates a run with its seeded
	// ledger, and stages the case for the intake task
	SubmitCase(ctx context.Context, intake *entity.CaseIntake) (*entity.Run, error)

	// Execute drives the run forward until it completes or halts. A
	// halt waiting on the human decision is reported through the
	// returned progress, not as an error.
	Execute(ctx context.Context, runID string) (*sequencer.Progress, error)

	// Progress reports the run's ledger state
	Progress(ctx context.Context, runID string) (*sequencer.Progress, error)

	// GetRun returns the run
	GetRun(ctx context.Context, runID string) (*entity.Run, error)

	// ListActiveRuns returns non-complete runs, oldest first
	ListActiveRuns(ctx context.Context, limit int) ([]*entity.Run, error)

	// GetDecision returns the candidate decision checkpoint
	GetDecision(ctx context.Context, runID string) (*tasks.RecommendationPayload, error)

	// GetReport returns the rendered determination report
	GetReport(ctx context.Context, runID string) (*tasks.NotificationPayload, error)

	// RecordOverride stores the reviewer's confirmation or override of
	// the candidate decision, then resumes the run
	RecordOverride(ctx context.Context, runID string, req OverrideRequest) (*entity.Override, error)
}

type reviewServiceImpl struct {
	runs        port.RunRepository
	ledger      port.LedgerRepository
	checkpoints port.CheckpointRepository
	overrides   port.OverrideRepository
	txManager   port.TransactionManager
	stage       *CaseStage
	seq         *sequencer.Sequencer
	dispatcher  dispatcher.Dispatcher
	logger      Logger
}

// NewReviewService creates a new ReviewService
func NewReviewService(
	runs port.RunRepository,
	ledger port.LedgerRepository,
	checkpoints port.CheckpointRepository,
	overrides port.OverrideRepository,
	txManager port.TransactionManager,
	stage *CaseStage,
	seq *sequencer.Sequencer,
	disp dispatcher.Dispatcher,
	logger Logger,
) ReviewService {
	return &reviewServiceImpl{
		runs:        runs,
		ledger:      ledger,
		checkpoints: checkpoints,
		overrides:   overrides,
		txManager:   txManager,
		stage:       stage,
		seq:         seq,
		dispatcher:  disp,
		logger:      logger,
	}
}

// SubmitCase validates the intake and creates the run with its ledger
// seeded in one transaction.
func (s *reviewServiceImpl) SubmitCase(ctx context.Context, intake *entity.CaseIntake) (*entity.Run, error) {
	if err := intake.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.runs.GetByCaseID(ctx, intake.CaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing run: %w", err)
	}
	if existing != nil && existing.Status != entity.RunStatusComplete {
		return nil, fmt.Errorf("%w: case %s is on run %s", ErrRunAlreadyExists, intake.CaseID, existing.ID)
	}

	run := entity.NewRun(intake.CaseID)

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.runs.Create(txCtx, run); err != nil {
			return err
		}
		return s.ledger.InitTasks(txCtx, run.ID, entity.TaskOrder())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	s.stage.Stage(intake)

	s.logger.Info("Run created",
		"run_id", run.ID,
		"case_id", run.CaseID)

	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeRunCreated, run.ID, run.CaseID, nil))
	}

	return run, nil
}

// Execute drives the run. The human-decision halt is expected and
// surfaces as progress; any other halt propagates.
func (s *reviewServiceImpl) Execute(ctx context.Context, runID string) (*sequencer.Progress, error) {
	err := s.seq.Run(ctx, runID)
	if err != nil && !errors.Is(err, tasks.ErrHumanDecisionPending) {
		return nil, err
	}

	progress, perr := s.seq.Resume(ctx, runID)
	if perr != nil {
		return nil, perr
	}

	if progress.Done() {
		s.stage.Remove(progress.CaseID)
	}

	return progress, nil
}

// Progress reports the run's ledger state
func (s *reviewServiceImpl) Progress(ctx context.Context, runID string) (*sequencer.Progress, error) {
	return s.seq.Resume(ctx, runID)
}

// GetRun returns the run
func (s *reviewServiceImpl) GetRun(ctx context.Context, runID string) (*entity.Run, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, sequencer.ErrRunNotFound
	}
	return run, nil
}

// ListActiveRuns returns non-complete runs, oldest first
func (s *reviewServiceImpl) ListActiveRuns(ctx context.Context, limit int) ([]*entity.Run, error) {
	return s.runs.ListByStatus(ctx, []string{
		entity.RunStatusInitialized,
		entity.RunStatusInProgress,
		entity.RunStatusSectionsComplete,
	}, limit)
}

// GetDecision returns the candidate decision from the recommendation
// checkpoint.
func (s *reviewServiceImpl) GetDecision(ctx context.Context, runID string) (*tasks.RecommendationPayload, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	cp, err := s.checkpoints.Latest(ctx, runID, entity.TaskRecommendation)
	if err != nil {
		return nil, fmt.Errorf("failed to read recommendation checkpoint: %w", err)
	}
	if cp == nil {
		return nil, ErrNoDecisionYet
	}

	var payload tasks.RecommendationPayload
	if err := cp.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode recommendation checkpoint: %w", err)
	}

	return &payload, nil
}

// GetReport returns the rendered determination report
func (s *reviewServiceImpl) GetReport(ctx context.Context, runID string) (*tasks.NotificationPayload, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	cp, err := s.checkpoints.Latest(ctx, runID, entity.TaskNotification)
	if err != nil {
		return nil, fmt.Errorf("failed to read notification checkpoint: %w", err)
	}
	if cp == nil {
		return nil, fmt.Errorf("determination report not available yet for run %s", runID)
	}

	var payload tasks.NotificationPayload
	if err := cp.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode notification checkpoint: %w", err)
	}

	return &payload, nil
}

// RecordOverride stores the reviewer's decision against the candidate
// and resumes the run so the human-decision task can complete.
func (s *reviewServiceImpl) RecordOverride(ctx context.Context, runID string, req OverrideRequest) (*entity.Override, error) {
	rec, err := s.GetDecision(ctx, runID)
	if err != nil {
		return nil, err
	}

	existing, err := s.overrides.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing override: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("run %s already has a recorded decision by %s", runID, existing.ActorID)
	}

	override := &entity.Override{
		RunID:         runID,
		PriorOutcome:  rec.Decision.Outcome,
		FinalOutcome:  req.FinalOutcome,
		Justification: req.Justification,
		ClinicalBasis: req.ClinicalBasis,
		ActorID:       req.ActorID,
		ActorRole:     req.ActorRole,
		CreatedAt:     time.Now().UTC(),
	}
	if err := override.Validate(); err != nil {
		return nil, err
	}

	if err := s.overrides.Create(ctx, override); err != nil {
		return nil, err
	}

	s.logger.Info("Override recorded",
		"run_id", runID,
		"prior_outcome", string(override.PriorOutcome),
		"final_outcome", string(override.FinalOutcome),
		"actor_id", override.ActorID)

	if s.dispatcher != nil {
		run, _ := s.runs.GetByID(ctx, runID)
		caseID := ""
		if run != nil {
			caseID = run.CaseID
		}
		evt := event.NewEvent(event.TypeOverrideRecorded, runID, caseID, map[string]interface{}{
			"prior_outcome": string(override.PriorOutcome),
			"final_outcome": string(override.FinalOutcome),
			"actor_id":      override.ActorID,
		})
		s.dispatcher.DispatchAsync(ctx, evt)
	}

	if _, err := s.Execute(ctx, runID); err != nil {
		s.logger.Error("Failed to resume run after override",
			"run_id", runID,
			"error", err)
		return override, fmt.Errorf("override recorded but resume failed: %w", err)
	}

	return override, nil
}

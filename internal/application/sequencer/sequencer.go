package sequencer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/medbridge/priorauth/internal/application/dispatcher"
	"github.com/medbridge/priorauth/internal/application/port"
	"github.com/medbridge/priorauth/internal/domain/entity"
	"github.com/medbridge/priorauth/internal/domain/event"
	"github.com/medbridge/priorauth/internal/domain/workflow"
)

// Sequencer drives a run's tasks through the ledger in the fixed total
// order: exactly one task in flight per run, checkpoint written before
// the ledger is updated, and resume from the first non-completed task
// after any interruption. Distinct runs are independent and may be
// driven concurrently.
type Sequencer struct {
	runs        port.RunRepository
	ledger      port.LedgerRepository
	checkpoints port.CheckpointRepository
	registry    Registry
	dispatcher  dispatcher.Dispatcher
	logger      *zap.Logger
}

// Option configures the sequencer
type Option func(*Sequencer)

// WithDispatcher sets the event dispatcher for the audit trail
func WithDispatcher(d dispatcher.Dispatcher) Option {
	return func(s *Sequencer) {
		s.dispatcher = d
	}
}

// New creates a sequencer
func New(
	runs port.RunRepository,
	ledger port.LedgerRepository,
	checkpoints port.CheckpointRepository,
	registry Registry,
	logger *zap.Logger,
	opts ...Option,
) *Sequencer {
	s := &Sequencer{
		runs:        runs,
		ledger:      ledger,
		checkpoints: checkpoints,
		registry:    registry,
		logger:      logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Advance selects the first task in order whose status is not
// completed and returns it ready for execution. A not-started task is
// transitioned to in-progress; a task already in-progress (crash
// recovery) is returned unchanged unless its checkpoint already
// exists, in which case the ledger is reconciled and advancing
// continues. Returns (nil, nil) when the run is done.
func (s *Sequencer) Advance(ctx context.Context, runID string) (*entity.TaskRecord, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	for {
		tasks, err := s.ledger.GetTasks(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("failed to load ledger: %w", err)
		}
		if len(tasks) == 0 {
			return nil, fmt.Errorf("%w: run %s has an empty ledger", ErrInvariantViolation, runID)
		}

		inProgress := 0
		for _, t := range tasks {
			if t.Status == entity.TaskInProgress {
				inProgress++
			}
		}
		if inProgress > 1 {
			return nil, fmt.Errorf("%w: run %s has %d in-progress tasks", ErrInvariantViolation, runID, inProgress)
		}

		var next *entity.TaskRecord
		for _, t := range tasks {
			if t.Status != entity.TaskCompleted {
				next = t
				break
			}
		}

		if next == nil {
			if run.Status != entity.RunStatusComplete {
				if err := s.transition(ctx, run, workflow.TriggerFinalize); err != nil {
					return nil, err
				}
				s.emit(ctx, event.NewEvent(event.TypeRunCompleted, run.ID, run.CaseID, nil))
			}
			return nil, nil
		}

		switch next.Status {
		case entity.TaskNotStarted:
			if run.Status == entity.RunStatusInitialized {
				if err := s.transition(ctx, run, workflow.TriggerStart); err != nil {
					return nil, err
				}
				s.emit(ctx, event.NewEvent(event.TypeRunStarted, run.ID, run.CaseID, nil))
			}

			now := time.Now().UTC()
			ok, err := s.ledger.MarkInProgress(ctx, runID, next.TaskID, now)
			if err != nil {
				return nil, fmt.Errorf("failed to mark task in-progress: %w", err)
			}
			if !ok {
				// lost a compare-and-set race; re-read the ledger
				continue
			}

			next.Status = entity.TaskInProgress
			next.StartedAt = &now

			s.logger.Info("Task started",
				zap.String("run_id", runID),
				zap.String("task_id", next.TaskID))
			s.emit(ctx, event.NewEvent(event.TypeTaskStarted, run.ID, run.CaseID,
				map[string]interface{}{"task_id": next.TaskID}))

			return next, nil

		case entity.TaskInProgress:
			// Crash-recovery reconciliation: the checkpoint write
			// precedes the ledger update, so a checkpoint under an
			// in-progress task means the update was lost. Complete the
			// task once and keep advancing.
			cp, err := s.checkpoints.Latest(ctx, runID, next.TaskID)
			if err != nil {
				return nil, fmt.Errorf("failed to read checkpoint: %w", err)
			}
			if cp != nil {
				s.logger.Info("Reconciling completed task after interrupted update",
					zap.String("run_id", runID),
					zap.String("task_id", next.TaskID),
					zap.Int("checkpoint_version", cp.Version))
				if _, err := s.ledger.MarkCompleted(ctx, runID, next.TaskID, time.Now().UTC()); err != nil {
					return nil, fmt.Errorf("failed to reconcile ledger: %w", err)
				}
				if err := s.afterComplete(ctx, run, next.TaskID, cp.Payload); err != nil {
					return nil, err
				}
				continue
			}
			return next, nil

		default:
			return nil, fmt.Errorf("%w: task %s has status %q", ErrInvariantViolation, next.TaskID, next.Status)
		}
	}
}

// Complete persists the task's checkpoint and then marks the ledger
// entry completed, in that order. A crash between the two writes is
// repaired by the reconciliation step in Advance, so the pair behaves
// as a single atomic unit.
func (s *Sequencer) Complete(ctx context.Context, runID, taskID string, payload json.RawMessage) error {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	task, err := s.ledger.GetTask(ctx, runID, taskID)
	if err != nil {
		return fmt.Errorf("failed to load task: %w", err)
	}
	if task == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	if task.Status != entity.TaskInProgress {
		return fmt.Errorf("%w: %s is %s", ErrTaskNotInProgress, taskID, task.Status)
	}

	now := time.Now().UTC()
	cp := &entity.Checkpoint{
		RunID:     runID,
		TaskID:    taskID,
		WrittenAt: now,
		Payload:   payload,
	}
	if err := s.checkpoints.Write(ctx, cp); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	ok, err := s.ledger.MarkCompleted(ctx, runID, taskID, now)
	if err != nil {
		return fmt.Errorf("failed to mark task completed: %w", err)
	}
	if !ok {
		// already completed by a concurrent reconciliation
		s.logger.Warn("Task completion raced with reconciliation",
			zap.String("run_id", runID),
			zap.String("task_id", taskID))
		return nil
	}

	s.logger.Info("Task completed",
		zap.String("run_id", runID),
		zap.String("task_id", taskID),
		zap.Int("checkpoint_version", cp.Version))

	return s.afterComplete(ctx, run, taskID, payload)
}

// Run drives the run until it completes or a task halts it. A halted
// run leaves the failing task in-progress and remains resumable; the
// task will be retried from scratch on the next invocation.
func (s *Sequencer) Run(ctx context.Context, runID string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := s.Advance(ctx, runID)
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}

		handler, ok := s.registry.Handler(rec.TaskID)
		if !ok {
			return fmt.Errorf("%w: no handler registered for %s", ErrInvariantViolation, rec.TaskID)
		}

		run, err := s.runs.GetByID(ctx, runID)
		if err != nil {
			return fmt.Errorf("failed to load run: %w", err)
		}

		payload, err := handler.Execute(ctx, run)
		if err != nil {
			s.logger.Warn("Task execution halted the run",
				zap.String("run_id", runID),
				zap.String("task_id", rec.TaskID),
				zap.Error(err))
			s.emit(ctx, event.NewEvent(event.TypeRunHalted, run.ID, run.CaseID,
				map[string]interface{}{"task_id": rec.TaskID, "reason": err.Error()}))
			return fmt.Errorf("task %s halted: %w", rec.TaskID, err)
		}

		if err := s.Complete(ctx, runID, rec.TaskID, payload); err != nil {
			return err
		}
	}
}

// Resume reloads the ledger and reports run progress: completed and
// remaining counts, the next task, and per-task timestamps. This is
// the only supported recovery view after interruption; re-invoking Run
// re-executes the in-progress task from scratch.
func (s *Sequencer) Resume(ctx context.Context, runID string) (*Progress, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	tasks, err := s.ledger.GetTasks(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	p := &Progress{
		RunID:  run.ID,
		CaseID: run.CaseID,
		Status: run.Status,
		Ledger: entity.Ledger{RunID: run.ID},
	}

	for _, t := range tasks {
		p.Ledger.Tasks = append(p.Ledger.Tasks, entity.LedgerEntry{
			ID:          t.TaskID,
			Status:      t.Status,
			StartedAt:   t.StartedAt,
			CompletedAt: t.CompletedAt,
		})
		if t.Status == entity.TaskCompleted {
			p.Completed++
		} else {
			p.Remaining++
			if p.NextTask == "" {
				p.NextTask = t.TaskID
			}
		}
	}

	return p, nil
}

// afterComplete emits the completion event and applies run-status
// transitions tied to task boundaries: the recommendation task closes
// the automated sections.
func (s *Sequencer) afterComplete(ctx context.Context, run *entity.Run, taskID string, payload json.RawMessage) error {
	s.emit(ctx, event.NewEvent(event.TypeTaskCompleted, run.ID, run.CaseID,
		map[string]interface{}{"task_id": taskID}))

	if taskID == entity.TaskRecommendation {
		s.emitDecisionProposed(ctx, run, payload)
		if run.Status == entity.RunStatusInProgress {
			if err := s.transition(ctx, run, workflow.TriggerCompleteSections); err != nil {
				return err
			}
			s.emit(ctx, event.NewEvent(event.TypeSectionsComplete, run.ID, run.CaseID, nil))
		}
	}

	return nil
}

// emitDecisionProposed surfaces the resolver outcome on the audit trail
func (s *Sequencer) emitDecisionProposed(ctx context.Context, run *entity.Run, payload json.RawMessage) {
	var rec struct {
		Decision struct {
			Outcome    string  `json:"outcome"`
			Confidence float64 `json:"confidence"`
			Flagged    bool    `json:"flagged"`
		} `json:"decision"`
	}
	if err := json.Unmarshal(payload, &rec); err != nil {
		return
	}
	s.emit(ctx, event.NewEvent(event.TypeDecisionProposed, run.ID, run.CaseID,
		map[string]interface{}{
			"outcome":    rec.Decision.Outcome,
			"confidence": rec.Decision.Confidence,
			"flagged":    rec.Decision.Flagged,
		}))
}

// transition fires the run state machine and persists the new status
func (s *Sequencer) transition(ctx context.Context, run *entity.Run, trigger workflow.Trigger) error {
	state := workflow.State(run.Status)
	if !state.IsValid() {
		return fmt.Errorf("%w: run %s has status %q", ErrInvariantViolation, run.ID, run.Status)
	}

	machine := workflow.BuildRunStateMachine(state)
	if err := machine.Fire(ctx, trigger); err != nil {
		return fmt.Errorf("run status transition failed: %w", err)
	}

	newState := machine.State()
	if err := s.runs.UpdateStatus(ctx, run.ID, newState.String()); err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	run.Status = newState.String()

	s.logger.Info("Run status changed",
		zap.String("run_id", run.ID),
		zap.String("status", newState.String()),
		zap.String("trigger", trigger.String()))

	return nil
}

func (s *Sequencer) emit(ctx context.Context, evt *event.Event) {
	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, evt)
	}
}

package port

import (
	"context"
	"time"

	"github.com/medbridge/priorauth/internal/domain/entity"
)

// RunRepository defines persistence operations for Run
type RunRepository interface {
	Create(ctx context.Context, run *entity.Run) error
	GetByID(ctx context.Context, id string) (*entity.Run, error)
	GetByCaseID(ctx context.Context, caseID string) (*entity.Run, error)
	UpdateStatus(ctx context.Context, id string, status string) error
	ListByStatus(ctx context.Context, statuses []string, limit int) ([]*entity.Run, error)
}

// LedgerRepository defines persistence operations for the task ledger.
// Status transitions are compare-and-set: a transition only applies if
// the row is still in the expected source status, which is the only
// lock the single-in-progress invariant needs within a run.
type LedgerRepository interface {
	// InitTasks seeds the ledger with every task in order, all not-started
	InitTasks(ctx context.Context, runID string, taskIDs []string) error

	// GetTasks returns all ledger entries for a run ordered by position
	GetTasks(ctx context.Context, runID string) ([]*entity.TaskRecord, error)

	// GetTask returns one ledger entry
	GetTask(ctx context.Context, runID, taskID string) (*entity.TaskRecord, error)

	// MarkInProgress transitions not-started to in-progress, recording
	// started_at. Returns false if the task was not in not-started.
	MarkInProgress(ctx context.Context, runID, taskID string, startedAt time.Time) (bool, error)

	// MarkCompleted transitions in-progress to completed, recording
	// completed_at. Returns false if the task was not in in-progress.
	MarkCompleted(ctx context.Context, runID, taskID string, completedAt time.Time) (bool, error)

	// CountInProgress returns how many tasks of the run are in-progress
	CountInProgress(ctx context.Context, runID string) (int, error)
}

// CheckpointRepository defines persistence for task checkpoints.
// Checkpoints are append-only: Write assigns the next version for the
// (run, task) key and existing versions are never mutated.
type CheckpointRepository interface {
	// Write persists a new checkpoint version and sets cp.Version
	Write(ctx context.Context, cp *entity.Checkpoint) error

	// Latest returns the highest-version checkpoint, or nil if none exists
	Latest(ctx context.Context, runID, taskID string) (*entity.Checkpoint, error)

	// History returns all versions for the key, oldest first
	History(ctx context.Context, runID, taskID string) ([]*entity.Checkpoint, error)
}

// OverrideRepository defines persistence operations for Override
type OverrideRepository interface {
	Create(ctx context.Context, o *entity.Override) error
	GetByRunID(ctx context.Context, runID string) (*entity.Override, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

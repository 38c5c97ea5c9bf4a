package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/medbridge/priorauth/internal/application/port"
	"github.com/medbridge/priorauth/internal/domain/entity"
)

// LedgerRepository implements port.LedgerRepository. The status
// transitions are compare-and-set UPDATEs guarded on the source status,
// so two concurrent drivers of the same run cannot both claim a task.
type LedgerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *sql.DB, logger *zap.Logger) port.LedgerRepository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// InitTasks seeds the ledger with every task in order, all not-started
func (r *LedgerRepository) InitTasks(ctx context.Context, runID string, taskIDs []string) error {
	query := `
		INSERT INTO run_tasks (run_id, task_id, position, status)
		VALUES (?, ?, ?, ?)
	`

	for i, taskID := range taskIDs {
		_, err := r.getExecutor(ctx).ExecContext(ctx, query, runID, taskID, i, entity.TaskNotStarted)
		if err != nil {
			r.logger.Error("Failed to seed ledger task",
				zap.String("run_id", runID),
				zap.String("task_id", taskID),
				zap.Error(err))
			return fmt.Errorf("failed to seed ledger: %w", err)
		}
	}

	return nil
}

// GetTasks returns all ledger entries for a run ordered by position
func (r *LedgerRepository) GetTasks(ctx context.Context, runID string) ([]*entity.TaskRecord, error) {
	query := `
		SELECT run_id, task_id, position, status, started_at, completed_at
		FROM run_tasks
		WHERE run_id = ?
		ORDER BY position
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, runID)
	if err != nil {
		r.logger.Error("Failed to get ledger tasks",
			zap.String("run_id", runID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get ledger tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*entity.TaskRecord
	for rows.Next() {
		task, err := scanTaskRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// GetTask returns one ledger entry
func (r *LedgerRepository) GetTask(ctx context.Context, runID, taskID string) (*entity.TaskRecord, error) {
	query := `
		SELECT run_id, task_id, position, status, started_at, completed_at
		FROM run_tasks
		WHERE run_id = ? AND task_id = ?
	`

	row := r.getExecutor(ctx).QueryRowContext(ctx, query, runID, taskID)
	task, err := scanTaskRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get ledger task",
			zap.String("run_id", runID),
			zap.String("task_id", taskID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get ledger task: %w", err)
	}

	return task, nil
}

// MarkInProgress transitions not-started to in-progress
func (r *LedgerRepository) MarkInProgress(ctx context.Context, runID, taskID string, startedAt time.Time) (bool, error) {
	query := `
		UPDATE run_tasks
		SET status = ?, started_at = ?
		WHERE run_id = ? AND task_id = ? AND status = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		entity.TaskInProgress, startedAt, runID, taskID, entity.TaskNotStarted)
	if err != nil {
		r.logger.Error("Failed to mark task in-progress",
			zap.String("run_id", runID),
			zap.String("task_id", taskID),
			zap.Error(err))
		return false, fmt.Errorf("failed to mark task in-progress: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected == 1, nil
}

// MarkCompleted transitions in-progress to completed
func (r *LedgerRepository) MarkCompleted(ctx context.Context, runID, taskID string, completedAt time.Time) (bool, error) {
	query := `
		UPDATE run_tasks
		SET status = ?, completed_at = ?
		WHERE run_id = ? AND task_id = ? AND status = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		entity.TaskCompleted, completedAt, runID, taskID, entity.TaskInProgress)
	if err != nil {
		r.logger.Error("Failed to mark task completed",
			zap.String("run_id", runID),
			zap.String("task_id", taskID),
			zap.Error(err))
		return false, fmt.Errorf("failed to mark task completed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected == 1, nil
}

// CountInProgress returns how many tasks of the run are in-progress
func (r *LedgerRepository) CountInProgress(ctx context.Context, runID string) (int, error) {
	query := `SELECT COUNT(*) FROM run_tasks WHERE run_id = ? AND status = ?`

	var count int
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, runID, entity.TaskInProgress).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count in-progress tasks: %w", err)
	}

	return count, nil
}

// scanTaskRecord scans one row through the given scan function
func scanTaskRecord(scan func(dest ...interface{}) error) (*entity.TaskRecord, error) {
	var task entity.TaskRecord
	var startedAt, completedAt sql.NullTime

	err := scan(
		&task.RunID,
		&task.TaskID,
		&task.Position,
		&task.Status,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if startedAt.Valid {
		task.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}

	return &task, nil
}

// getExecutor returns appropriate executor based on context
func (r *LedgerRepository) getExecutor(ctx context.Context) executor {
	return executorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.LedgerRepository = (*LedgerRepository)(nil)

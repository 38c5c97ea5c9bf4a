package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/medbridge/priorauth/internal/application/port"
	"github.com/medbridge/priorauth/internal/domain/entity"
)

// CheckpointRepository implements port.CheckpointRepository.
// Checkpoints are append-only: Write inserts the next version for the
// (run, task) key and nothing ever updates an existing row.
type CheckpointRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCheckpointRepository creates a new checkpoint repository
func NewCheckpointRepository(db *sql.DB, logger *zap.Logger) port.CheckpointRepository {
	return &CheckpointRepository{
		db:     db,
		logger: logger,
	}
}

// Write persists a new checkpoint version and sets cp.Version. The
// version subquery and the insert run in one statement, so concurrent
// writers for the same key collide on the primary key instead of
// silently sharing a version.
func (r *CheckpointRepository) Write(ctx context.Context, cp *entity.Checkpoint) error {
	query := `
		INSERT INTO checkpoints (run_id, task_id, version, written_at, payload)
		VALUES (?, ?,
			(SELECT COALESCE(MAX(version), 0) + 1 FROM checkpoints WHERE run_id = ? AND task_id = ?),
			?, ?)
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		cp.RunID, cp.TaskID, cp.RunID, cp.TaskID, cp.WrittenAt, []byte(cp.Payload))
	if err != nil {
		r.logger.Error("Failed to write checkpoint",
			zap.String("run_id", cp.RunID),
			zap.String("task_id", cp.TaskID),
			zap.Error(err))
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	versionQuery := `SELECT MAX(version) FROM checkpoints WHERE run_id = ? AND task_id = ?`
	if err := r.getExecutor(ctx).QueryRowContext(ctx, versionQuery, cp.RunID, cp.TaskID).Scan(&cp.Version); err != nil {
		return fmt.Errorf("failed to read checkpoint version: %w", err)
	}

	return nil
}

// Latest returns the highest-version checkpoint, or nil if none exists
func (r *CheckpointRepository) Latest(ctx context.Context, runID, taskID string) (*entity.Checkpoint, error) {
	query := `
		SELECT run_id, task_id, version, written_at, payload
		FROM checkpoints
		WHERE run_id = ? AND task_id = ?
		ORDER BY version DESC
		LIMIT 1
	`

	cp, err := r.scanCheckpoint(r.getExecutor(ctx).QueryRowContext(ctx, query, runID, taskID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get latest checkpoint",
			zap.String("run_id", runID),
			zap.String("task_id", taskID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	return cp, nil
}

// History returns all versions for the key, oldest first
func (r *CheckpointRepository) History(ctx context.Context, runID, taskID string) ([]*entity.Checkpoint, error) {
	query := `
		SELECT run_id, task_id, version, written_at, payload
		FROM checkpoints
		WHERE run_id = ? AND task_id = ?
		ORDER BY version
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, runID, taskID)
	if err != nil {
		r.logger.Error("Failed to get checkpoint history",
			zap.String("run_id", runID),
			zap.String("task_id", taskID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get checkpoint history: %w", err)
	}
	defer rows.Close()

	var cps []*entity.Checkpoint
	for rows.Next() {
		var cp entity.Checkpoint
		var payload []byte
		if err := rows.Scan(&cp.RunID, &cp.TaskID, &cp.Version, &cp.WrittenAt, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		cp.Payload = payload
		cps = append(cps, &cp)
	}

	return cps, rows.Err()
}

// scanCheckpoint scans a single checkpoint row
func (r *CheckpointRepository) scanCheckpoint(row *sql.Row) (*entity.Checkpoint, error) {
	var cp entity.Checkpoint
	var payload []byte

	err := row.Scan(&cp.RunID, &cp.TaskID, &cp.Version, &cp.WrittenAt, &payload)
	if err != nil {
		return nil, err
	}

	cp.Payload = payload
	return &cp, nil
}

// getExecutor returns appropriate executor based on context
func (r *CheckpointRepository) getExecutor(ctx context.Context) executor {
	return executorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.CheckpointRepository = (*CheckpointRepository)(nil)

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/medbridge/priorauth/internal/application/port"
	"github.com/medbridge/priorauth/internal/domain/entity"
)

// RunRepository implements port.RunRepository
type RunRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB, logger *zap.Logger) port.RunRepository {
	return &RunRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a new run
func (r *RunRepository) Create(ctx context.Context, run *entity.Run) error {
	query := `
		INSERT INTO runs (id, case_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		run.ID,
		run.CaseID,
		run.Status,
		run.CreatedAt,
		run.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create run",
			zap.String("run_id", run.ID),
			zap.String("case_id", run.CaseID),
			zap.Error(err))
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// GetByID retrieves a run by its ID
func (r *RunRepository) GetByID(ctx context.Context, id string) (*entity.Run, error) {
	query := `
		SELECT id, case_id, status, created_at, updated_at
		FROM runs
		WHERE id = ?
	`

	run, err := r.scanRun(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get run by ID",
			zap.String("run_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// GetByCaseID retrieves the run for a case
func (r *RunRepository) GetByCaseID(ctx context.Context, caseID string) (*entity.Run, error) {
	query := `
		SELECT id, case_id, status, created_at, updated_at
		FROM runs
		WHERE case_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`

	run, err := r.scanRun(r.getExecutor(ctx).QueryRowContext(ctx, query, caseID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get run by case ID",
			zap.String("case_id", caseID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// UpdateStatus updates the run status
func (r *RunRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	query := `UPDATE runs SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update run status",
			zap.String("run_id", id),
			zap.String("status", status),
			zap.Error(err))
		return fmt.Errorf("failed to update run status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", id)
	}

	return nil
}

// ListByStatus retrieves runs in any of the given statuses, oldest first
func (r *RunRepository) ListByStatus(ctx context.Context, statuses []string, limit int) ([]*entity.Run, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(statuses))
	placeholders = placeholders[:len(placeholders)-1]

	query := fmt.Sprintf(`
		SELECT id, case_id, status, created_at, updated_at
		FROM runs
		WHERE status IN (%s)
		ORDER BY created_at
		LIMIT ?
	`, placeholders)

	args := make([]interface{}, 0, len(statuses)+1)
	for _, s := range statuses {
		args = append(args, s)
	}
	args = append(args, limit)

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list runs by status",
			zap.Strings("statuses", statuses),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*entity.Run
	for rows.Next() {
		var run entity.Run
		if err := rows.Scan(&run.ID, &run.CaseID, &run.Status, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// scanRun scans a single run row
func (r *RunRepository) scanRun(row *sql.Row) (*entity.Run, error) {
	var run entity.Run
	err := row.Scan(&run.ID, &run.CaseID, &run.Status, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// getExecutor returns appropriate executor based on context
func (r *RunRepository) getExecutor(ctx context.Context) executor {
	return executorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.RunRepository = (*RunRepository)(nil)

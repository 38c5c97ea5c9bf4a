package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/medbridge/priorauth/internal/application/port"
	"github.com/medbridge/priorauth/internal/domain/entity"
)

// OverrideRepository implements port.OverrideRepository. One override
// per run; the UNIQUE constraint on run_id makes a second insert fail.
type OverrideRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOverrideRepository creates a new override repository
func NewOverrideRepository(db *sql.DB, logger *zap.Logger) port.OverrideRepository {
	return &OverrideRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a new override
func (r *OverrideRepository) Create(ctx context.Context, o *entity.Override) error {
	query := `
		INSERT INTO overrides (
			run_id, prior_outcome, final_outcome,
			justification, clinical_basis, actor_id, actor_role, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var clinicalBasis sql.NullString
	if o.ClinicalBasis != "" {
		clinicalBasis = sql.NullString{String: o.ClinicalBasis, Valid: true}
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		o.RunID,
		string(o.PriorOutcome),
		string(o.FinalOutcome),
		o.Justification,
		clinicalBasis,
		o.ActorID,
		o.ActorRole,
		o.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create override",
			zap.String("run_id", o.RunID),
			zap.Error(err))
		return fmt.Errorf("failed to create override: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	o.ID = id
	return nil
}

// GetByRunID retrieves the override for a run, or nil if none exists
func (r *OverrideRepository) GetByRunID(ctx context.Context, runID string) (*entity.Override, error) {
	query := `
		SELECT id, run_id, prior_outcome, final_outcome,
			justification, clinical_basis, actor_id, actor_role, created_at
		FROM overrides
		WHERE run_id = ?
	`

	var o entity.Override
	var clinicalBasis sql.NullString

	err := r.getExecutor(ctx).QueryRowContext(ctx, query, runID).Scan(
		&o.ID,
		&o.RunID,
		&o.PriorOutcome,
		&o.FinalOutcome,
		&o.Justification,
		&clinicalBasis,
		&o.ActorID,
		&o.ActorRole,
		&o.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get override",
			zap.String("run_id", runID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get override: %w", err)
	}

	if clinicalBasis.Valid {
		o.ClinicalBasis = clinicalBasis.String
	}

	return &o, nil
}

// getExecutor returns appropriate executor based on context
func (r *OverrideRepository) getExecutor(ctx context.Context) executor {
	return executorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.OverrideRepository = (*OverrideRepository)(nil)

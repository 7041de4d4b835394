package repository

import (
	"context"
	"fmt"

	"github.com/Decycle-IO/stakeledger/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SettlementRepository is the PostgreSQL implementation of SettlementStore.
type SettlementRepository struct {
	db *sqlx.DB
}

// NewSettlementRepository creates a new SettlementRepository.
func NewSettlementRepository(db *sqlx.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// Create enqueues a recorded settlement for distribution.
func (r *SettlementRepository) Create(ctx context.Context, s *domain.Settlement) error {
	query := `
		INSERT INTO settlements
			(id, target_id, proceeds, status, recorded_by, note, distributed, created_at)
		VALUES
			(:id, :target_id, :proceeds, :status, :recorded_by, :note, :distributed, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("settlement_repo.Create: %w", err)
	}
	return nil
}

// Pending returns all settlements awaiting distribution, oldest first.
func (r *SettlementRepository) Pending(ctx context.Context) ([]*domain.Settlement, error) {
	var settlements []*domain.Settlement
	err := r.db.SelectContext(ctx, &settlements, `
		SELECT * FROM settlements
		WHERE status = 'pending'
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("settlement_repo.Pending: %w", err)
	}
	return settlements, nil
}

// MarkProcessed records a completed distribution and the total credited.
func (r *SettlementRepository) MarkProcessed(ctx context.Context, id uuid.UUID, distributed int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE settlements
		SET status = 'processed', distributed = $1, processed_at = now()
		WHERE id = $2`, distributed, id)
	if err != nil {
		return fmt.Errorf("settlement_repo.MarkProcessed: %w", err)
	}
	return nil
}

// MarkFailed parks a settlement that could not be distributed; the note keeps
// the failure reason for the back office.
func (r *SettlementRepository) MarkFailed(ctx context.Context, id uuid.UUID, note string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE settlements
		SET status = 'failed', note = $1, processed_at = now()
		WHERE id = $2`, note, id)
	if err != nil {
		return fmt.Errorf("settlement_repo.MarkFailed: %w", err)
	}
	return nil
}

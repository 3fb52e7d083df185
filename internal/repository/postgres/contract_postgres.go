package postgres

import (
	"context"

	"github.com/KaiavN/Transac/internal/domain"
	"github.com/KaiavN/Transac/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const contractColumns = `
	id, user_id, organization_id, prompt, generated_code,
	is_validated, has_warnings, warnings, created_at`

type contractRepository struct {
	db *sqlx.DB
}

func NewContractRepository(db *sqlx.DB) repository.ContractRepository {
	return &contractRepository{db: db}
}

func (r *contractRepository) Create(ctx context.Context, contract *domain.Contract) error {
	query := `
		INSERT INTO contracts (` + contractColumns + `)
		VALUES (
			:id, :user_id, :organization_id, :prompt, :generated_code,
			:is_validated, :has_warnings, :warnings, :created_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, contract); err != nil {
		return wrapErr("failed to create contract", err)
	}
	return nil
}

func (r *contractRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`

	var contract domain.Contract
	if err := r.db.GetContext(ctx, &contract, query, id); err != nil {
		return nil, wrapErr("failed to get contract", err)
	}
	return &contract, nil
}

// ListByUser returns one page of the user's contracts, newest first, plus the total count.
func (r *contractRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Contract, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM contracts WHERE user_id = $1`, userID); err != nil {
		return nil, 0, wrapErr("failed to count contracts", err)
	}

	query := `
		SELECT ` + contractColumns + `
		FROM contracts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	contracts := []*domain.Contract{}
	if err := r.db.SelectContext(ctx, &contracts, query, userID, limit, offset); err != nil {
		return nil, 0, wrapErr("failed to list contracts", err)
	}
	return contracts, total, nil
}

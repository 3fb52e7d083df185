package repository

import (
	"context"

	"github.com/KaiavN/Transac/internal/domain"
	"github.com/google/uuid"
)

type ContractRepository interface {
	Create(ctx context.Context, contract *domain.Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Contract, int, error)
}

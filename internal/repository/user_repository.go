package repository

import (
	"context"

	"github.com/KaiavN/Transac/internal/domain"
	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByProvider(ctx context.Context, provider, providerID string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	UpdatePayment(ctx context.Context, id uuid.UUID, payment domain.PaymentInfo) error
	UpdateSignature(ctx context.Context, id uuid.UUID, encryptedSignature, passwordHash string) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
}

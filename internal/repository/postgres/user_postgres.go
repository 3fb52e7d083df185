package postgres

import (
	"context"
	"time"

	"github.com/KaiavN/Transac/internal/domain"
	"github.com/KaiavN/Transac/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const userColumns = `
	id, email, password_hash, full_name, is_business_account, organization_id,
	signature_key, signature_password_hash, provider, provider_id,
	routing_number, account_number_encrypted, account_last4, iban,
	created_at, updated_at, last_login_at`

type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user. A duplicate email is domain.ErrConflict.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (
			id, email, password_hash, full_name, is_business_account, organization_id,
			provider, provider_id, created_at, updated_at
		) VALUES (
			:id, :email, :password_hash, :full_name, :is_business_account, :organization_id,
			:provider, :provider_id, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return wrapErr("failed to create user", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, wrapErr("failed to get user by id", err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, wrapErr("failed to get user by email", err)
	}
	return &user, nil
}

func (r *userRepository) GetByProvider(ctx context.Context, provider, providerID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE provider = $1 AND provider_id = $2`

	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, provider, providerID); err != nil {
		return nil, wrapErr("failed to get user by provider", err)
	}
	return &user, nil
}

// Update writes the profile fields and the OAuth link.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users
		SET full_name = :full_name,
			is_business_account = :is_business_account,
			provider = :provider,
			provider_id = :provider_id,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return wrapErr("failed to update user", err)
	}
	return expectOneRow(result, "user not found")
}

func (r *userRepository) UpdatePayment(ctx context.Context, id uuid.UUID, payment domain.PaymentInfo) error {
	query := `
		UPDATE users
		SET routing_number = $1,
			account_number_encrypted = $2,
			account_last4 = $3,
			iban = $4,
			updated_at = $5
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		payment.RoutingNumber, payment.AccountNumberEncrypted, payment.AccountLast4, payment.IBAN,
		time.Now(), id,
	)
	if err != nil {
		return wrapErr("failed to update payment info", err)
	}
	return expectOneRow(result, "user not found")
}

func (r *userRepository) UpdateSignature(ctx context.Context, id uuid.UUID, encryptedSignature, passwordHash string) error {
	query := `
		UPDATE users
		SET signature_key = $1,
			signature_password_hash = $2,
			updated_at = $3
		WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query, encryptedSignature, passwordHash, time.Now(), id)
	if err != nil {
		return wrapErr("failed to update signature", err)
	}
	return expectOneRow(result, "user not found")
}

func (r *userRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $1,
			updated_at = $2
		WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return wrapErr("failed to update password hash", err)
	}
	return expectOneRow(result, "user not found")
}

// UpdateLastLogin updates the last login timestamp for a user
func (r *userRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET last_login_at = $1,
			updated_at = $1
		WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return wrapErr("failed to update last login", err)
	}
	return expectOneRow(result, "user not found")
}

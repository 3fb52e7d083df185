package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KaiavN/Transac/internal/domain"
	"github.com/KaiavN/Transac/internal/repository"
	"github.com/KaiavN/Transac/pkg/checksum"
	"github.com/KaiavN/Transac/pkg/crypto"
	"github.com/KaiavN/Transac/pkg/hash"
	"github.com/KaiavN/Transac/pkg/sanitize"
	"github.com/google/uuid"
)

type UserService struct {
	userRepo repository.UserRepository
	cipher   *crypto.Cipher
	hasher   *hash.Hasher
	log      *slog.Logger
}

// UserDTO is the public view of a user. Secrets never leave the service.
type UserDTO struct {
	ID                uuid.UUID  `json:"id"`
	Email             string     `json:"email"`
	FullName          string     `json:"full_name"`
	IsBusinessAccount bool       `json:"is_business_account"`
	OrganizationID    *uuid.UUID `json:"organization_id,omitempty"`
	Provider          *string    `json:"provider,omitempty"`
	RoutingNumber     *string    `json:"routing_number,omitempty"`
	AccountLast4      *string    `json:"account_last4,omitempty"`
	IBAN              *string    `json:"iban,omitempty"`
	HasSignature      bool       `json:"has_signature"`
	CreatedAt         time.Time  `json:"created_at"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
}

func NewUserDTO(u *domain.User) *UserDTO {
	return &UserDTO{
		ID:                u.ID,
		Email:             u.Email,
		FullName:          u.FullName,
		IsBusinessAccount: u.IsBusinessAccount,
		OrganizationID:    u.OrganizationID,
		Provider:          u.Provider,
		RoutingNumber:     u.RoutingNumber,
		AccountLast4:      u.AccountLast4,
		IBAN:              u.IBAN,
		HasSignature:      u.HasSignature(),
		CreatedAt:         u.CreatedAt,
		LastLoginAt:       u.LastLoginAt,
	}
}

type UpdateProfileRequest struct {
	FullName          *string `json:"full_name" validate:"omitempty,max=120"`
	IsBusinessAccount *bool   `json:"is_business_account"`
}

type PaymentRequest struct {
	RoutingNumber string `json:"routing_number" validate:"omitempty,routing"`
	AccountNumber string `json:"account_number" validate:"required,numeric,min=4,max=17"`
	IBAN          string `json:"iban" validate:"omitempty,iban"`
}

type SignatureRequest struct {
	Signature string `json:"signature" validate:"required,max=10000"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

type ViewSignatureRequest struct {
	Password string `json:"password" validate:"required"`
}

func NewUserService(userRepo repository.UserRepository, cipher *crypto.Cipher, hasher *hash.Hasher, log *slog.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		cipher:   cipher,
		hasher:   hasher,
		log:      log,
	}
}

func (s *UserService) Profile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, boundary(s.log, "failed to load profile", err, "user_id", userID)
	}
	return NewUserDTO(user), nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserDTO, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, boundary(s.log, "failed to load profile", err, "user_id", userID)
	}

	if req.FullName != nil {
		name := sanitize.Line(*req.FullName)
		if name == "" {
			return nil, domain.NewValidationError("full_name", "full_name cannot be empty")
		}
		user.FullName = name
	}
	if req.IsBusinessAccount != nil {
		user.IsBusinessAccount = *req.IsBusinessAccount
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, boundary(s.log, "failed to update profile", err, "user_id", userID)
	}
	return NewUserDTO(user), nil
}

// UpdatePayment stores the account number encrypted and keeps only its last four digits in clear.
func (s *UserService) UpdatePayment(ctx context.Context, userID uuid.UUID, req PaymentRequest) (*UserDTO, error) {
	if req.RoutingNumber != "" && !checksum.ValidRoutingNumber(req.RoutingNumber) {
		return nil, domain.NewValidationError("routing_number", "routing_number failed checksum validation")
	}

	var iban *string
	if req.IBAN != "" {
		if !checksum.ValidIBAN(req.IBAN) {
			return nil, domain.NewValidationError("iban", "iban failed checksum validation")
		}
		normalized := checksum.NormalizeIBAN(req.IBAN)
		iban = &normalized
	}

	encrypted, err := s.cipher.Encrypt(req.AccountNumber)
	if err != nil {
		return nil, boundary(s.log, "failed to encrypt account number", err, "user_id", userID)
	}

	last4 := req.AccountNumber[len(req.AccountNumber)-4:]
	payment := domain.PaymentInfo{
		RoutingNumber:          optional(req.RoutingNumber),
		AccountNumberEncrypted: &encrypted,
		AccountLast4:           &last4,
		IBAN:                   iban,
	}

	if err := s.userRepo.UpdatePayment(ctx, userID, payment); err != nil {
		return nil, boundary(s.log, "failed to update payment info", err, "user_id", userID)
	}
	s.log.Info("payment info updated", "user_id", userID)

	return s.Profile(ctx, userID)
}

// SetSignature replaces the stored signature and the password that guards it.
func (s *UserService) SetSignature(ctx context.Context, userID uuid.UUID, req SignatureRequest) error {
	encrypted, err := s.cipher.Encrypt(req.Signature)
	if err != nil {
		return boundary(s.log, "failed to encrypt signature", err, "user_id", userID)
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return boundary(s.log, "failed to hash signature password", err, "user_id", userID)
	}

	if err := s.userRepo.UpdateSignature(ctx, userID, encrypted, passwordHash); err != nil {
		return boundary(s.log, "failed to store signature", err, "user_id", userID)
	}
	s.log.Info("signature updated", "user_id", userID)
	return nil
}

// ViewSignature decrypts the signature when password matches the signature password.
func (s *UserService) ViewSignature(ctx context.Context, userID uuid.UUID, password string) (string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", boundary(s.log, "failed to load user", err, "user_id", userID)
	}
	if !user.HasSignature() {
		return "", fmt.Errorf("no signature on file: %w", domain.ErrNotFound)
	}

	ok, err := s.hasher.Verify(password, *user.SignaturePasswordHash)
	if err != nil {
		return "", boundary(s.log, "failed to verify signature password", err, "user_id", userID)
	}
	if !ok {
		s.log.Warn("signature password mismatch", "user_id", userID)
		return "", fmt.Errorf("signature password mismatch: %w", domain.ErrForbidden)
	}

	signature, err := s.cipher.Decrypt(*user.SignatureKey)
	if err != nil {
		if errors.Is(err, crypto.ErrLegacyDisabled) {
			s.log.Error("signature stored in legacy format and fallback is disabled", "user_id", userID)
		}
		return "", boundary(s.log, "failed to decrypt signature", err, "user_id", userID)
	}
	return signature, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

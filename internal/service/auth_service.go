package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/KaiavN/Transac/internal/domain"
	"github.com/KaiavN/Transac/internal/repository"
	"github.com/KaiavN/Transac/internal/session"
	"github.com/KaiavN/Transac/pkg/email"
	"github.com/KaiavN/Transac/pkg/hash"
	"github.com/KaiavN/Transac/pkg/oauth/google"
	"github.com/KaiavN/Transac/pkg/sanitize"
	"github.com/google/uuid"
)

type AuthService struct {
	userRepo repository.UserRepository
	sessions *session.Manager
	hasher   *hash.Hasher
	notifier email.Notifier
	log      *slog.Logger

	// dummyHash is verified against when the email is unknown so both paths cost the same.
	dummyOnce sync.Once
	dummyHash string
}

type RegisterRequest struct {
	Email             string `json:"email" validate:"required,email,max=254"`
	Password          string `json:"password" validate:"required,min=8,max=128"`
	FullName          string `json:"full_name" validate:"required,max=120"`
	IsBusinessAccount bool   `json:"is_business_account"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is a signed-in user and the session that was opened for them.
type AuthResult struct {
	User    *domain.User
	Session *session.Session
}

func NewAuthService(
	userRepo repository.UserRepository,
	sessions *session.Manager,
	hasher *hash.Hasher,
	notifier email.Notifier,
	log *slog.Logger,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		sessions: sessions,
		hasher:   hasher,
		notifier: notifier,
		log:      log,
	}
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest, meta session.Meta) (*AuthResult, error) {
	fullName := sanitize.Line(req.FullName)
	if fullName == "" {
		return nil, domain.NewValidationError("full_name", "full_name is required")
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, boundary(s.log, "failed to hash password", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:                uuid.New(),
		Email:             sanitize.Email(req.Email),
		PasswordHash:      &passwordHash,
		FullName:          fullName,
		IsBusinessAccount: req.IsBusinessAccount,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		return nil, boundary(s.log, "failed to create user", err)
	}

	s.log.Info("user registered", "user_id", user.ID)
	s.sendWelcome(ctx, user)

	return s.openSession(ctx, user, meta)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest, meta session.Meta) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, sanitize.Email(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.burnVerify(req.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, boundary(s.log, "failed to load user", err)
	}

	// OAuth-only accounts have no password to check.
	if user.PasswordHash == nil {
		s.burnVerify(req.Password)
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(req.Password, *user.PasswordHash)
	if err != nil {
		return nil, boundary(s.log, "failed to verify password", err, "user_id", user.ID)
	}
	if !ok {
		s.log.Info("login failed", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(*user.PasswordHash) {
		s.rehash(ctx, user, req.Password)
	}

	return s.openSession(ctx, user, meta)
}

// LoginWithGoogle finds the account for a verified Google identity, linking or
// creating one as needed, and opens a session.
func (s *AuthService) LoginWithGoogle(ctx context.Context, identity *google.Identity, meta session.Meta) (*AuthResult, error) {
	user, err := s.userRepo.GetByProvider(ctx, google.ProviderName, identity.Subject)
	if err == nil {
		return s.openSession(ctx, user, meta)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, boundary(s.log, "failed to load user by provider", err)
	}

	addr := sanitize.Email(identity.Email)
	user, err = s.userRepo.GetByEmail(ctx, addr)
	switch {
	case err == nil:
		// Linking an existing password account needs Google to vouch for the address.
		if !identity.EmailVerified {
			return nil, fmt.Errorf("google email not verified: %w", domain.ErrUnauthenticated)
		}
		provider, subject := google.ProviderName, identity.Subject
		user.Provider = &provider
		user.ProviderID = &subject
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, boundary(s.log, "failed to link google account", err, "user_id", user.ID)
		}
		s.log.Info("google account linked", "user_id", user.ID)

	case errors.Is(err, domain.ErrNotFound):
		user, err = s.createOAuthUser(ctx, identity, addr)
		if err != nil {
			return nil, err
		}

	default:
		return nil, boundary(s.log, "failed to load user by email", err)
	}

	return s.openSession(ctx, user, meta)
}

func (s *AuthService) createOAuthUser(ctx context.Context, identity *google.Identity, addr string) (*domain.User, error) {
	name := sanitize.Line(identity.Name)
	if name == "" {
		name, _, _ = strings.Cut(addr, "@")
	}

	now := time.Now()
	provider, subject := google.ProviderName, identity.Subject
	user := &domain.User{
		ID:         uuid.New(),
		Email:      addr,
		FullName:   name,
		Provider:   &provider,
		ProviderID: &subject,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, boundary(s.log, "failed to create google user", err)
	}

	s.log.Info("user registered via google", "user_id", user.ID)
	s.sendWelcome(ctx, user)
	return user, nil
}

// Logout revokes one session. Unknown ids are not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return boundary(s.log, "failed to revoke session", err)
	}
	return nil
}

// LogoutAll revokes every session the user holds and reports how many there were.
func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := s.sessions.RevokeUser(ctx, userID)
	if err != nil {
		return 0, boundary(s.log, "failed to revoke user sessions", err, "user_id", userID)
	}
	s.log.Info("user signed out everywhere", "user_id", userID, "sessions", n)
	return n, nil
}

func (s *AuthService) openSession(ctx context.Context, user *domain.User, meta session.Meta) (*AuthResult, error) {
	sess, err := s.sessions.Create(ctx, user.ID, meta)
	if err != nil {
		return nil, boundary(s.log, "failed to create session", err, "user_id", user.ID)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.log.Warn("failed to update last login", "user_id", user.ID, "err", err)
	}

	return &AuthResult{User: user, Session: sess}, nil
}

func (s *AuthService) sendWelcome(ctx context.Context, user *domain.User) {
	if err := s.notifier.SendWelcome(ctx, user.Email, user.FullName); err != nil {
		s.log.Warn("welcome email not delivered", "user_id", user.ID, "err", err)
	}
}

// rehash upgrades a hash made with weaker parameters. The login succeeds either way.
func (s *AuthService) rehash(ctx context.Context, user *domain.User, password string) {
	encoded, err := s.hasher.Hash(password)
	if err != nil {
		s.log.Warn("password rehash failed", "user_id", user.ID, "err", err)
		return
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, user.ID, encoded); err != nil {
		s.log.Warn("password rehash not saved", "user_id", user.ID, "err", err)
		return
	}
	user.PasswordHash = &encoded
	s.log.Info("password hash upgraded", "user_id", user.ID)
}

func (s *AuthService) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("not-a-real-password")
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}

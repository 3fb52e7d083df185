package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/KaiavN/Transac/internal/domain"
	"github.com/KaiavN/Transac/internal/repository"
	"github.com/KaiavN/Transac/pkg/jwt"
	"github.com/KaiavN/Transac/pkg/sanitize"
	"github.com/google/uuid"
)

const (
	CategoryDefault   = "default"
	CategoryEmergency = "emergency"
	CategoryRecurring = "recurring"
)

// Thresholds are the per-category ceilings a non-admin may approve up to.
type Thresholds struct {
	Default   float64
	Emergency float64
	Recurring float64
}

// Ceiling returns the ceiling for category; false for an unknown category.
func (t Thresholds) Ceiling(category string) (float64, bool) {
	switch category {
	case CategoryDefault:
		return t.Default, true
	case CategoryEmergency:
		return t.Emergency, true
	case CategoryRecurring:
		return t.Recurring, true
	}
	return 0, false
}

// TransactionInput is everything the approval rule looks at.
type TransactionInput struct {
	Cost             float64
	Category         string
	RequesterIsAdmin bool
}

type TransactionDecision struct {
	Approved bool
	Reason   string
	Category string
}

// EvaluateTransaction decides a transaction from its inputs alone. An empty
// category means default; an admin requester is always approved.
func EvaluateTransaction(th Thresholds, in TransactionInput) (TransactionDecision, error) {
	if math.IsNaN(in.Cost) || math.IsInf(in.Cost, 0) || in.Cost <= 0 {
		return TransactionDecision{}, domain.NewValidationError("cost", "cost must be a positive finite number")
	}

	category := strings.ToLower(strings.TrimSpace(in.Category))
	if category == "" {
		category = CategoryDefault
	}
	ceiling, ok := th.Ceiling(category)
	if !ok {
		return TransactionDecision{}, domain.NewValidationError("category", "category must be one of [default emergency recurring]")
	}

	switch {
	case in.RequesterIsAdmin:
		return TransactionDecision{Approved: true, Category: category, Reason: "approved: requester is an organization admin"}, nil
	case in.Cost <= ceiling:
		return TransactionDecision{
			Approved: true,
			Category: category,
			Reason:   fmt.Sprintf("approved: cost %.2f is within the %s ceiling of %.2f", in.Cost, category, ceiling),
		}, nil
	default:
		return TransactionDecision{
			Approved: false,
			Category: category,
			Reason:   fmt.Sprintf("rejected: cost %.2f exceeds the %s ceiling of %.2f", in.Cost, category, ceiling),
		}, nil
	}
}

type VerifyTransactionRequest struct {
	Cost        float64 `json:"cost" validate:"required,gt=0,finite"`
	Description string  `json:"description" validate:"max=500"`
	// Normalized and checked by EvaluateTransaction.
	Category string `json:"category" validate:"max=32"`
}

type CheckTokenRequest struct {
	Token string `json:"transaction_token" validate:"required,max=4096"`
}

// TokenCheckResult is what a genuine, unexpired transaction token attests.
type TokenCheckResult struct {
	TokenID        string    `json:"token_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	RequesterID    uuid.UUID `json:"requester_id"`
	Cost           float64   `json:"cost"`
	Category       string    `json:"category"`
	Approved       bool      `json:"approved"`
	IssuedAt       time.Time `json:"issued_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

type TransactionResult struct {
	Approved         bool   `json:"approved"`
	Reason           string `json:"reason"`
	Category         string `json:"category"`
	TransactionToken string `json:"transaction_token"`
}

type TransactionService struct {
	orgRepo    repository.OrganizationRepository
	thresholds Thresholds
	tokens     *jwt.TokenService
	log        *slog.Logger
}

func NewTransactionService(orgRepo repository.OrganizationRepository, thresholds Thresholds, tokens *jwt.TokenService, log *slog.Logger) *TransactionService {
	return &TransactionService{
		orgRepo:    orgRepo,
		thresholds: thresholds,
		tokens:     tokens,
		log:        log,
	}
}

// Verify runs the approval rule for an employee of orgID, records the outcome on
// the activity log, and returns a signed token describing it.
func (s *TransactionService) Verify(ctx context.Context, orgID, userID uuid.UUID, req VerifyTransactionRequest) (*TransactionResult, error) {
	membership, err := s.orgRepo.GetMembership(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("not a member of the organization: %w", domain.ErrForbidden)
		}
		return nil, boundary(s.log, "failed to load membership", err, "organization_id", orgID)
	}
	if !membership.IsEmployee() {
		return nil, fmt.Errorf("membership still pending: %w", domain.ErrForbidden)
	}

	decision, err := EvaluateTransaction(s.thresholds, TransactionInput{
		Cost:             req.Cost,
		Category:         req.Category,
		RequesterIsAdmin: membership.IsAdmin,
	})
	if err != nil {
		return nil, err
	}

	details, err := json.Marshal(map[string]any{
		"cost":        req.Cost,
		"category":    decision.Category,
		"description": sanitize.Line(req.Description),
		"approved":    decision.Approved,
		"reason":      decision.Reason,
	})
	if err != nil {
		return nil, boundary(s.log, "failed to encode activity details", err)
	}

	entry := &domain.ActivityEntry{
		OrganizationID: orgID,
		ActorID:        userID,
		Action:         domain.ActivityTransactionVerified,
		Details:        string(details),
		CreatedAt:      time.Now(),
	}
	if err := s.orgRepo.AppendActivity(ctx, entry); err != nil {
		return nil, boundary(s.log, "failed to record transaction", err, "organization_id", orgID)
	}

	token, err := s.tokens.IssueTransactionToken(jwt.TransactionInput{
		OrganizationID: orgID,
		RequesterID:    userID,
		Cost:           req.Cost,
		Category:       decision.Category,
		Approved:       decision.Approved,
	})
	if err != nil {
		return nil, boundary(s.log, "failed to sign transaction token", err)
	}

	s.log.Info("transaction verified",
		"organization_id", orgID, "user_id", userID,
		"category", decision.Category, "approved", decision.Approved)

	return &TransactionResult{
		Approved:         decision.Approved,
		Reason:           decision.Reason,
		Category:         decision.Category,
		TransactionToken: token,
	}, nil
}

// CheckToken confirms that token was signed by this service for orgID and has not
// expired. The settling side calls it before acting on an approval.
func (s *TransactionService) CheckToken(ctx context.Context, orgID uuid.UUID, token string) (*TokenCheckResult, error) {
	claims, err := s.tokens.ParseTransactionToken(token)
	if err != nil {
		s.log.Debug("transaction token rejected", "organization_id", orgID, "err", err)
		return nil, domain.NewValidationError("transaction_token", "transaction_token is invalid or expired")
	}
	if claims.OrganizationID != orgID {
		return nil, domain.NewValidationError("transaction_token", "transaction_token was issued for another organization")
	}

	res := &TokenCheckResult{
		TokenID:        claims.ID,
		OrganizationID: claims.OrganizationID,
		RequesterID:    claims.RequesterID,
		Cost:           claims.Cost,
		Category:       claims.Category,
		Approved:       claims.Approved,
	}
	if claims.IssuedAt != nil {
		res.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		res.ExpiresAt = claims.ExpiresAt.Time
	}
	return res, nil
}

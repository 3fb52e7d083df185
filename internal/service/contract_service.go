package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/KaiavN/Transac/internal/domain"
	"github.com/KaiavN/Transac/internal/repository"
	"github.com/KaiavN/Transac/pkg/contractgen"
	"github.com/KaiavN/Transac/pkg/sanitize"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const minPromptLength = 10

type ContractService struct {
	contractRepo repository.ContractRepository
	userRepo     repository.UserRepository
	generator    contractgen.Generator
	log          *slog.Logger
}

type CreateContractRequest struct {
	Prompt string `json:"prompt" validate:"required,min=10,max=4000"`
}

func NewContractService(
	contractRepo repository.ContractRepository,
	userRepo repository.UserRepository,
	generator contractgen.Generator,
	log *slog.Logger,
) *ContractService {
	return &ContractService{
		contractRepo: contractRepo,
		userRepo:     userRepo,
		generator:    generator,
		log:          log,
	}
}

// Create drafts a contract from the prompt and stores it for userID.
func (s *ContractService) Create(ctx context.Context, userID uuid.UUID, req CreateContractRequest) (*domain.Contract, error) {
	prompt := sanitize.Text(req.Prompt)
	if utf8.RuneCountInString(prompt) < minPromptLength {
		return nil, domain.NewValidationError("prompt", fmt.Sprintf("prompt must be at least %d characters", minPromptLength))
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, boundary(s.log, "failed to load user", err, "user_id", userID)
	}

	result, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.log.Error("contract generation failed", "user_id", userID, "err", err)
		return nil, fmt.Errorf("contract generation failed: %w", domain.ErrUpstream)
	}

	contract := &domain.Contract{
		ID:             uuid.New(),
		UserID:         userID,
		OrganizationID: user.OrganizationID,
		Prompt:         prompt,
		GeneratedCode:  result.Code,
		IsValidated:    result.IsValidated,
		HasWarnings:    len(result.Warnings) > 0,
		Warnings:       pq.StringArray(result.Warnings),
		CreatedAt:      time.Now(),
	}

	if err := s.contractRepo.Create(ctx, contract); err != nil {
		return nil, boundary(s.log, "failed to store contract", err, "user_id", userID)
	}

	s.log.Info("contract created", "contract_id", contract.ID, "user_id", userID, "validated", contract.IsValidated)
	return contract, nil
}

// Get returns a contract to its owner. Anyone else gets not-found.
func (s *ContractService) Get(ctx context.Context, id, userID uuid.UUID) (*domain.Contract, error) {
	contract, err := s.contractRepo.GetByID(ctx, id)
	if err != nil {
		return nil, boundary(s.log, "failed to load contract", err, "contract_id", id)
	}
	if contract.UserID != userID {
		return nil, fmt.Errorf("contract %s: %w", id, domain.ErrNotFound)
	}
	return contract, nil
}

func (s *ContractService) List(ctx context.Context, userID uuid.UUID, page Page) (*PageResult[*domain.Contract], error) {
	page = page.Normalize()
	contracts, total, err := s.contractRepo.ListByUser(ctx, userID, page.Size, page.Offset())
	if err != nil {
		return nil, boundary(s.log, "failed to list contracts", err, "user_id", userID)
	}
	return &PageResult[*domain.Contract]{Items: contracts, Total: total, Page: page.Number, PageSize: page.Size}, nil
}

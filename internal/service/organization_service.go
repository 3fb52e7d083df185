package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KaiavN/Transac/internal/domain"
	"github.com/KaiavN/Transac/internal/repository"
	"github.com/KaiavN/Transac/pkg/email"
	"github.com/KaiavN/Transac/pkg/sanitize"
	"github.com/google/uuid"
)

type OrganizationService struct {
	orgRepo  repository.OrganizationRepository
	userRepo repository.UserRepository
	notifier email.Notifier
	log      *slog.Logger
	now      func() time.Time
}

type CreateOrganizationRequest struct {
	Name               string `json:"name" validate:"required,min=2,max=120"`
	Country            string `json:"country" validate:"required,min=2,max=56"`
	RegistrationNumber string `json:"registration_number" validate:"required,max=64"`
	Address            string `json:"address" validate:"required,max=300"`
	BillingAccount     string `json:"billing_account" validate:"required,max=64"`
	ReceivingAccount   string `json:"receiving_account" validate:"required,max=64"`
}

type ResolveMembershipRequest struct {
	UserID string                  `json:"user_id" validate:"required,uuid"`
	Action domain.MembershipAction `json:"action" validate:"required,oneof=approve reject"`
}

func NewOrganizationService(
	orgRepo repository.OrganizationRepository,
	userRepo repository.UserRepository,
	notifier email.Notifier,
	log *slog.Logger,
) *OrganizationService {
	return &OrganizationService{
		orgRepo:  orgRepo,
		userRepo: userRepo,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Create makes creatorID the first admin and employee of a new organization.
func (s *OrganizationService) Create(ctx context.Context, creatorID uuid.UUID, req CreateOrganizationRequest) (*domain.Organization, error) {
	creator, err := s.userRepo.GetByID(ctx, creatorID)
	if err != nil {
		return nil, boundary(s.log, "failed to load creator", err, "user_id", creatorID)
	}
	if creator.OrganizationID != nil {
		return nil, fmt.Errorf("user already belongs to an organization: %w", domain.ErrConflict)
	}

	fields := map[string]string{
		"name":                sanitize.Line(req.Name),
		"country":             sanitize.Line(req.Country),
		"registration_number": sanitize.Line(req.RegistrationNumber),
		"address":             sanitize.Line(req.Address),
		"billing_account":     sanitize.Line(req.BillingAccount),
		"receiving_account":   sanitize.Line(req.ReceivingAccount),
	}
	verr := &domain.ValidationError{Fields: map[string]string{}}
	for k, v := range fields {
		if v == "" {
			verr.Fields[k] = k + " is required"
		}
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	now := s.now()
	org := &domain.Organization{
		ID:                 uuid.New(),
		Name:               fields["name"],
		Country:            fields["country"],
		RegistrationNumber: fields["registration_number"],
		Address:            fields["address"],
		BillingAccount:     fields["billing_account"],
		ReceivingAccount:   fields["receiving_account"],
		CreatedBy:          creatorID,
		CreatedAt:          now,
		UpdatedAt:          now,
		Employees:          []uuid.UUID{creatorID},
		EmployeeRequests:   []uuid.UUID{},
		AdminUsers:         []uuid.UUID{creatorID},
	}

	entry := &domain.ActivityEntry{
		OrganizationID: org.ID,
		ActorID:        creatorID,
		Action:         domain.ActivityOrganizationCreated,
		Details:        org.Name,
		CreatedAt:      now,
	}

	if err := s.orgRepo.Create(ctx, org, creatorID, entry); err != nil {
		return nil, boundary(s.log, "failed to create organization", err, "user_id", creatorID)
	}

	s.log.Info("organization created", "organization_id", org.ID, "user_id", creatorID)
	return org, nil
}

// Get returns the organization to one of its employees.
func (s *OrganizationService) Get(ctx context.Context, orgID, userID uuid.UUID) (*domain.Organization, error) {
	org, err := s.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		return nil, boundary(s.log, "failed to load organization", err, "organization_id", orgID)
	}
	if !org.IsEmployee(userID) {
		return nil, fmt.Errorf("not a member of the organization: %w", domain.ErrForbidden)
	}
	return org, nil
}

// Activity lists the organization's log, newest first, to one of its employees.
func (s *OrganizationService) Activity(ctx context.Context, orgID, userID uuid.UUID, page Page) (*PageResult[*domain.ActivityEntry], error) {
	if err := s.requireEmployee(ctx, orgID, userID); err != nil {
		return nil, err
	}

	page = page.Normalize()
	entries, total, err := s.orgRepo.ListActivity(ctx, orgID, page.Size, page.Offset())
	if err != nil {
		return nil, boundary(s.log, "failed to list activity", err, "organization_id", orgID)
	}

	return &PageResult[*domain.ActivityEntry]{Items: entries, Total: total, Page: page.Number, PageSize: page.Size}, nil
}

// RequestMembership moves userID from non-member to pending.
func (s *OrganizationService) RequestMembership(ctx context.Context, orgID, userID uuid.UUID) error {
	exists, err := s.orgRepo.Exists(ctx, orgID)
	if err != nil {
		return boundary(s.log, "failed to check organization", err, "organization_id", orgID)
	}
	if !exists {
		return fmt.Errorf("organization %s: %w", orgID, domain.ErrNotFound)
	}

	membership, err := s.orgRepo.GetMembership(ctx, orgID, userID)
	switch {
	case err == nil && membership.IsEmployee():
		return fmt.Errorf("already a member: %w", domain.ErrConflict)
	case err == nil:
		return fmt.Errorf("membership request already pending: %w", domain.ErrConflict)
	case !errors.Is(err, domain.ErrNotFound):
		return boundary(s.log, "failed to load membership", err, "organization_id", orgID, "user_id", userID)
	}

	applicant, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return boundary(s.log, "failed to load applicant", err, "user_id", userID)
	}
	if applicant.OrganizationID != nil {
		return fmt.Errorf("user already belongs to an organization: %w", domain.ErrConflict)
	}

	subject := userID
	entry := &domain.ActivityEntry{
		OrganizationID: orgID,
		ActorID:        userID,
		SubjectID:      &subject,
		Action:         domain.ActivityMembershipRequested,
		CreatedAt:      s.now(),
	}

	// A concurrent request for the same pair loses on the primary key and comes back as a conflict.
	if err := s.orgRepo.AddRequest(ctx, orgID, userID, entry); err != nil {
		return boundary(s.log, "failed to add membership request", err, "organization_id", orgID, "user_id", userID)
	}

	s.log.Info("membership requested", "organization_id", orgID, "user_id", userID)
	s.notifyAdmins(ctx, orgID, userID)
	return nil
}

// ResolveMembership approves or rejects a pending request. Only admins may resolve.
func (s *OrganizationService) ResolveMembership(ctx context.Context, orgID, actorID, employeeID uuid.UUID, action domain.MembershipAction) error {
	if action != domain.MembershipApprove && action != domain.MembershipReject {
		return domain.NewValidationError("action", "action must be one of [approve reject]")
	}

	actor, err := s.orgRepo.GetMembership(ctx, orgID, actorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("not a member of the organization: %w", domain.ErrForbidden)
		}
		return boundary(s.log, "failed to load actor membership", err, "organization_id", orgID)
	}
	if !actor.IsEmployee() || !actor.IsAdmin {
		return fmt.Errorf("only administrators can resolve requests: %w", domain.ErrForbidden)
	}

	subject := employeeID
	entry := &domain.ActivityEntry{
		OrganizationID: orgID,
		ActorID:        actorID,
		SubjectID:      &subject,
		CreatedAt:      s.now(),
	}

	if action == domain.MembershipApprove {
		entry.Action = domain.ActivityMembershipApproved
		err = s.orgRepo.ApproveRequest(ctx, orgID, employeeID, entry)
	} else {
		entry.Action = domain.ActivityMembershipRejected
		err = s.orgRepo.RejectRequest(ctx, orgID, employeeID, entry)
	}
	if err != nil {
		return boundary(s.log, "failed to resolve membership request", err,
			"organization_id", orgID, "user_id", employeeID, "action", action)
	}

	s.log.Info("membership resolved", "organization_id", orgID, "user_id", employeeID, "actor_id", actorID, "action", action)
	s.notifyApplicant(ctx, orgID, employeeID, action == domain.MembershipApprove)
	return nil
}

func (s *OrganizationService) requireEmployee(ctx context.Context, orgID, userID uuid.UUID) error {
	m, err := s.orgRepo.GetMembership(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("not a member of the organization: %w", domain.ErrForbidden)
		}
		return boundary(s.log, "failed to load membership", err, "organization_id", orgID)
	}
	if !m.IsEmployee() {
		return fmt.Errorf("membership still pending: %w", domain.ErrForbidden)
	}
	return nil
}

// Notifications are best-effort: the state change has already committed.

func (s *OrganizationService) notifyAdmins(ctx context.Context, orgID, applicantID uuid.UUID) {
	org, err := s.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		s.log.Warn("membership notice skipped", "organization_id", orgID, "err", err)
		return
	}
	applicant, err := s.userRepo.GetByID(ctx, applicantID)
	if err != nil {
		s.log.Warn("membership notice skipped", "organization_id", orgID, "err", err)
		return
	}

	recipients := make([]string, 0, len(org.AdminUsers))
	for _, adminID := range org.AdminUsers {
		admin, err := s.userRepo.GetByID(ctx, adminID)
		if err != nil {
			s.log.Warn("admin lookup failed", "organization_id", orgID, "user_id", adminID, "err", err)
			continue
		}
		recipients = append(recipients, admin.Email)
	}

	if err := s.notifier.SendMembershipRequested(ctx, recipients, org.Name, applicant.FullName, applicant.Email); err != nil {
		s.log.Warn("membership notice not delivered", "organization_id", orgID, "err", err)
	}
}

func (s *OrganizationService) notifyApplicant(ctx context.Context, orgID, applicantID uuid.UUID, approved bool) {
	org, err := s.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		s.log.Warn("membership decision notice skipped", "organization_id", orgID, "err", err)
		return
	}
	applicant, err := s.userRepo.GetByID(ctx, applicantID)
	if err != nil {
		s.log.Warn("membership decision notice skipped", "organization_id", orgID, "err", err)
		return
	}

	if err := s.notifier.SendMembershipResolved(ctx, applicant.Email, applicant.FullName, org.Name, approved); err != nil {
		s.log.Warn("membership decision notice not delivered", "organization_id", orgID, "err", err)
	}
}

package repository

import (
	"context"

	"github.com/KaiavN/Transac/internal/domain"
	"github.com/google/uuid"
)

// OrganizationRepository owns organizations, their membership rows, and the activity log.
// Methods that take an *domain.ActivityEntry write it in the same transaction as the change.
type OrganizationRepository interface {
	// Create inserts org, makes creatorID an admin employee, and points the creator's
	// organization_id at it.
	Create(ctx context.Context, org *domain.Organization, creatorID uuid.UUID, entry *domain.ActivityEntry) error
	// GetByID loads the organization with its employee, request, and admin lists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	// GetMembership returns domain.ErrNotFound for a non-member.
	GetMembership(ctx context.Context, orgID, userID uuid.UUID) (*domain.Membership, error)

	// AddRequest inserts a pending row. An existing row of any status is domain.ErrConflict.
	AddRequest(ctx context.Context, orgID, userID uuid.UUID, entry *domain.ActivityEntry) error
	// ApproveRequest turns a pending row into an employee row; no pending row is domain.ErrNotFound.
	ApproveRequest(ctx context.Context, orgID, userID uuid.UUID, entry *domain.ActivityEntry) error
	// RejectRequest deletes a pending row; no pending row is domain.ErrNotFound.
	RejectRequest(ctx context.Context, orgID, userID uuid.UUID, entry *domain.ActivityEntry) error

	AppendActivity(ctx context.Context, entry *domain.ActivityEntry) error
	ListActivity(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*domain.ActivityEntry, int, error)
}

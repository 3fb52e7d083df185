package domain

import (
	"time"

	"github.com/google/uuid"
)

// MemberStatus is the state of a (user, organization) pair that has a row at all.
// A user with no row is a non-member.
type MemberStatus string

const (
	MemberStatusPending  MemberStatus = "pending"
	MemberStatusEmployee MemberStatus = "employee"
)

// MembershipAction is the admin decision on a pending request.
type MembershipAction string

const (
	MembershipApprove MembershipAction = "approve"
	MembershipReject  MembershipAction = "reject"
)

// Activity log actions.
const (
	ActivityOrganizationCreated = "organization_created"
	ActivityMembershipRequested = "membership_requested"
	ActivityMembershipApproved  = "membership_approved"
	ActivityMembershipRejected  = "membership_rejected"
	ActivityTransactionVerified = "transaction_verified"
)

type Organization struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	Name               string    `json:"name" db:"name"`
	Country            string    `json:"country" db:"country"`
	RegistrationNumber string    `json:"registration_number" db:"registration_number"`
	Address            string    `json:"address" db:"address"`
	BillingAccount     string    `json:"billing_account" db:"billing_account"`
	ReceivingAccount   string    `json:"receiving_account" db:"receiving_account"`
	CreatedBy          uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`

	// Populated from organization_members by the repository.
	Employees        []uuid.UUID `json:"employees" db:"-"`
	EmployeeRequests []uuid.UUID `json:"employee_requests" db:"-"`
	AdminUsers       []uuid.UUID `json:"admin_users" db:"-"`
}

// Membership is one row of organization_members.
type Membership struct {
	OrganizationID uuid.UUID    `json:"organization_id" db:"organization_id"`
	UserID         uuid.UUID    `json:"user_id" db:"user_id"`
	Status         MemberStatus `json:"status" db:"status"`
	IsAdmin        bool         `json:"is_admin" db:"is_admin"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}

func (m *Membership) IsEmployee() bool {
	return m != nil && m.Status == MemberStatusEmployee
}

func (m *Membership) IsPending() bool {
	return m != nil && m.Status == MemberStatusPending
}

// ActivityEntry is an append-only record on an organization's activity log.
type ActivityEntry struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	OrganizationID uuid.UUID  `json:"organization_id" db:"organization_id"`
	ActorID        uuid.UUID  `json:"actor_id" db:"actor_id"`
	SubjectID      *uuid.UUID `json:"subject_id,omitempty" db:"subject_id"`
	Action         string     `json:"action" db:"action"`
	Details        string     `json:"details" db:"details"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

func (o *Organization) IsAdmin(userID uuid.UUID) bool {
	return containsID(o.AdminUsers, userID)
}

func (o *Organization) IsEmployee(userID uuid.UUID) bool {
	return containsID(o.Employees, userID)
}

func (o *Organization) HasPendingRequest(userID uuid.UUID) bool {
	return containsID(o.EmployeeRequests, userID)
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

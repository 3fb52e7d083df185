package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/KaiavN/Transac/internal/domain"
	"github.com/KaiavN/Transac/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type organizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository creates a new PostgreSQL organization repository
func NewOrganizationRepository(db *sqlx.DB) repository.OrganizationRepository {
	return &organizationRepository{db: db}
}

// withTx runs fn in a transaction and rolls back on any error.
func (r *organizationRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertActivity(ctx context.Context, ext sqlx.ExtContext, entry *domain.ActivityEntry) error {
	if entry == nil {
		return nil
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO organization_activity (
			id, organization_id, actor_id, subject_id, action, details, created_at
		) VALUES (
			:id, :organization_id, :actor_id, :subject_id, :action, :details, :created_at
		)`

	if _, err := sqlx.NamedExecContext(ctx, ext, query, entry); err != nil {
		return wrapErr("failed to append activity", err)
	}
	return nil
}

func (r *organizationRepository) Create(ctx context.Context, org *domain.Organization, creatorID uuid.UUID, entry *domain.ActivityEntry) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO organizations (
				id, name, country, registration_number, address,
				billing_account, receiving_account, created_by, created_at, updated_at
			) VALUES (
				:id, :name, :country, :registration_number, :address,
				:billing_account, :receiving_account, :created_by, :created_at, :updated_at
			)`
		if _, err := tx.NamedExecContext(ctx, query, org); err != nil {
			return wrapErr("failed to create organization", err)
		}

		member := `
			INSERT INTO organization_members (organization_id, user_id, status, is_admin, created_at, updated_at)
			VALUES ($1, $2, $3, TRUE, $4, $4)`
		if _, err := tx.ExecContext(ctx, member, org.ID, creatorID, domain.MemberStatusEmployee, org.CreatedAt); err != nil {
			return wrapErr("failed to add organization creator", err)
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE users SET organization_id = $1, updated_at = $2 WHERE id = $3 AND organization_id IS NULL`,
			org.ID, org.CreatedAt, creatorID,
		)
		if err != nil {
			return wrapErr("failed to link creator to organization", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("creator already belongs to an organization: %w", domain.ErrConflict)
		}

		return insertActivity(ctx, tx, entry)
	})
}

func (r *organizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	query := `
		SELECT id, name, country, registration_number, address,
			   billing_account, receiving_account, created_by, created_at, updated_at
		FROM organizations
		WHERE id = $1`

	var org domain.Organization
	if err := r.db.GetContext(ctx, &org, query, id); err != nil {
		return nil, wrapErr("failed to get organization", err)
	}

	var members []domain.Membership
	err := r.db.SelectContext(ctx, &members, `
		SELECT organization_id, user_id, status, is_admin, created_at, updated_at
		FROM organization_members
		WHERE organization_id = $1
		ORDER BY created_at`, id)
	if err != nil {
		return nil, wrapErr("failed to list organization members", err)
	}

	org.Employees = []uuid.UUID{}
	org.EmployeeRequests = []uuid.UUID{}
	org.AdminUsers = []uuid.UUID{}
	for _, m := range members {
		switch m.Status {
		case domain.MemberStatusEmployee:
			org.Employees = append(org.Employees, m.UserID)
		case domain.MemberStatusPending:
			org.EmployeeRequests = append(org.EmployeeRequests, m.UserID)
		}
		if m.IsAdmin {
			org.AdminUsers = append(org.AdminUsers, m.UserID)
		}
	}

	return &org, nil
}

func (r *organizationRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM organizations WHERE id = $1)`, id); err != nil {
		return false, wrapErr("failed to check organization", err)
	}
	return exists, nil
}

func (r *organizationRepository) GetMembership(ctx context.Context, orgID, userID uuid.UUID) (*domain.Membership, error) {
	query := `
		SELECT organization_id, user_id, status, is_admin, created_at, updated_at
		FROM organization_members
		WHERE organization_id = $1 AND user_id = $2`

	var m domain.Membership
	if err := r.db.GetContext(ctx, &m, query, orgID, userID); err != nil {
		return nil, wrapErr("failed to get membership", err)
	}
	return &m, nil
}

// AddRequest relies on the (organization_id, user_id) primary key: a second row for the
// same pair, pending or employee, is a unique violation and surfaces as domain.ErrConflict.
func (r *organizationRepository) AddRequest(ctx context.Context, orgID, userID uuid.UUID, entry *domain.ActivityEntry) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO organization_members (organization_id, user_id, status, is_admin, created_at, updated_at)
			VALUES ($1, $2, $3, FALSE, $4, $4)`,
			orgID, userID, domain.MemberStatusPending, now,
		)
		if err != nil {
			return wrapErr("failed to add membership request", err)
		}
		return insertActivity(ctx, tx, entry)
	})
}

func (r *organizationRepository) ApproveRequest(ctx context.Context, orgID, userID uuid.UUID, entry *domain.ActivityEntry) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now()
		result, err := tx.ExecContext(ctx, `
			UPDATE organization_members
			SET status = $1, updated_at = $2
			WHERE organization_id = $3 AND user_id = $4 AND status = $5`,
			domain.MemberStatusEmployee, now, orgID, userID, domain.MemberStatusPending,
		)
		if err != nil {
			return wrapErr("failed to approve membership request", err)
		}
		if err := expectOneRow(result, "no pending membership request"); err != nil {
			return err
		}

		// A user belongs to at most one organization.
		linked, err := tx.ExecContext(ctx,
			`UPDATE users SET organization_id = $1, updated_at = $2
			WHERE id = $3 AND (organization_id IS NULL OR organization_id = $1)`,
			orgID, now, userID,
		)
		if err != nil {
			return wrapErr("failed to link employee to organization", err)
		}
		rows, err := linked.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("employee already belongs to another organization: %w", domain.ErrConflict)
		}

		return insertActivity(ctx, tx, entry)
	})
}

func (r *organizationRepository) RejectRequest(ctx context.Context, orgID, userID uuid.UUID, entry *domain.ActivityEntry) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			DELETE FROM organization_members
			WHERE organization_id = $1 AND user_id = $2 AND status = $3`,
			orgID, userID, domain.MemberStatusPending,
		)
		if err != nil {
			return wrapErr("failed to reject membership request", err)
		}
		if err := expectOneRow(result, "no pending membership request"); err != nil {
			return err
		}
		return insertActivity(ctx, tx, entry)
	})
}

func (r *organizationRepository) AppendActivity(ctx context.Context, entry *domain.ActivityEntry) error {
	return insertActivity(ctx, r.db, entry)
}

func (r *organizationRepository) ListActivity(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*domain.ActivityEntry, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM organization_activity WHERE organization_id = $1`, orgID); err != nil {
		return nil, 0, wrapErr("failed to count activity", err)
	}

	query := `
		SELECT id, organization_id, actor_id, subject_id, action, details, created_at
		FROM organization_activity
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	entries := []*domain.ActivityEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, orgID, limit, offset); err != nil {
		return nil, 0, wrapErr("failed to list activity", err)
	}
	return entries, total, nil
}

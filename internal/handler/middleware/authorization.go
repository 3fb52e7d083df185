package middleware

import (
	"context"
	"errors"
	"log/slog"

	"github.com/KaiavN/Transac/internal/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// MembershipChecker is satisfied by the organization repository.
type MembershipChecker interface {
	GetMembership(ctx context.Context, orgID, userID uuid.UUID) (*domain.Membership, error)
}

// RequireOrgMember checks that the authenticated user is an employee of the
// organization named by the :orgId route parameter. With adminOnly the user must
// also be an administrator.
func RequireOrgMember(checker MembershipChecker, adminOnly bool, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := UserID(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}

		orgID, err := uuid.Parse(c.Params("orgId"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":  "validation failed",
				"fields": fiber.Map{"org_id": "org_id must be a valid UUID"},
			})
		}

		membership, err := checker.GetMembership(c.UserContext(), orgID, userID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.Error("membership check failed", "organization_id", orgID, "user_id", userID, "err", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "internal server error",
			})
		}

		if !membership.IsEmployee() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "forbidden: not a member of this organization",
			})
		}
		if adminOnly && !membership.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "forbidden: organization administrators only",
			})
		}

		c.Locals(LocalOrgID, orgID)
		c.Locals(LocalMembership, membership)
		return c.Next()
	}
}

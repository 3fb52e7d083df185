package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Keys under which middleware stores request-scoped values in fiber.Locals.
const (
	LocalUserID     = "user_id"
	LocalSessionID  = "session_id"
	LocalOrgID      = "org_id"
	LocalMembership = "membership"
	// Set by fiber's requestid middleware.
	LocalRequestID = "requestid"
)

// UserID returns the authenticated user. ok is false outside AuthMiddleware.
func UserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(LocalUserID).(uuid.UUID)
	return id, ok
}

func SessionID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalSessionID).(string)
	return id
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalRequestID).(string)
	return id
}

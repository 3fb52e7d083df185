package handler

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/KaiavN/Transac/internal/domain"
	"github.com/KaiavN/Transac/internal/handler/middleware"
	"github.com/KaiavN/Transac/internal/service"
	"github.com/KaiavN/Transac/internal/session"
	"github.com/KaiavN/Transac/pkg/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// respondError maps the error taxonomy onto status codes. Only internal faults
// are logged here; everything else is the caller's problem.
func respondError(c *fiber.Ctx, log *slog.Logger, err error) error {
	var verr *domain.ValidationError
	var rlErr *domain.RateLimitError

	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	case errors.As(err, &rlErr):
		secs := rlErr.RetryAfterSeconds()
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":       "too many requests",
			"retry_after": secs,
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid email or password"})
	case domain.IsAuthError(err):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": conflictMessage(err)})
	case errors.Is(err, domain.ErrUpstream):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upstream service failed"})
	}

	// ErrInternal was already logged where it was remapped.
	if !errors.Is(err, domain.ErrInternal) {
		log.Error("unhandled error", "path", c.Path(), "err", err)
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

// conflictMessage drops the sentinel suffix; services phrase conflicts for the caller.
func conflictMessage(err error) string {
	return strings.TrimSuffix(err.Error(), ": "+domain.ErrConflict.Error())
}

// parseBody decodes the JSON body into req and validates it.
func parseBody(c *fiber.Ctx, v *validator.Validator, req any) error {
	if err := c.BodyParser(req); err != nil {
		return domain.NewValidationError("body", "request body must be valid JSON")
	}
	return v.Validate(req)
}

func currentUser(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return uuid.Nil, domain.ErrUnauthenticated
	}
	return id, nil
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, domain.NewValidationError(name, name+" must be a valid UUID")
	}
	return id, nil
}

func pageFromQuery(c *fiber.Ctx) service.Page {
	return service.Page{
		Number: c.QueryInt("page", 1),
		Size:   c.QueryInt("page_size", 0),
	}
}

func sessionMeta(c *fiber.Ctx) session.Meta {
	return session.Meta{
		UserAgent:     c.Get(fiber.HeaderUserAgent),
		ClientAddress: c.IP(),
	}
}

package handler

import (
	"log/slog"

	"github.com/KaiavN/Transac/internal/service"
	"github.com/KaiavN/Transac/pkg/validator"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService *service.UserService
	validator   *validator.Validator
	log         *slog.Logger
}

func NewUserHandler(userService *service.UserService, validator *validator.Validator, log *slog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		validator:   validator,
		log:         log,
	}
}

// GetMe returns the current user's profile
// GET /api/v1/users/me
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	user, err := h.userService.Profile(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

// UpdateMe changes profile fields
// PUT /api/v1/users/me
func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	var req service.UpdateProfileRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return respondError(c, h.log, err)
	}

	user, err := h.userService.UpdateProfile(c.UserContext(), userID, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

// UpdatePayment stores bank details
// PUT /api/v1/users/me/payment
func (h *UserHandler) UpdatePayment(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	var req service.PaymentRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return respondError(c, h.log, err)
	}

	user, err := h.userService.UpdatePayment(c.UserContext(), userID, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

// SetSignature stores the signature behind its own password
// PUT /api/v1/users/me/signature
func (h *UserHandler) SetSignature(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	var req service.SignatureRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return respondError(c, h.log, err)
	}

	if err := h.userService.SetSignature(c.UserContext(), userID, req); err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "signature saved",
	})
}

// ViewSignature reveals the signature when the signature password matches
// POST /api/v1/users/me/signature/view
func (h *UserHandler) ViewSignature(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	var req service.ViewSignatureRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return respondError(c, h.log, err)
	}

	signature, err := h.userService.ViewSignature(c.UserContext(), userID, req.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"signature": signature,
	})
}

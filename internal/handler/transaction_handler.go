package handler

import (
	"log/slog"

	"github.com/KaiavN/Transac/internal/service"
	"github.com/KaiavN/Transac/pkg/validator"
	"github.com/gofiber/fiber/v2"
)

type TransactionHandler struct {
	txService *service.TransactionService
	validator *validator.Validator
	log       *slog.Logger
}

func NewTransactionHandler(txService *service.TransactionService, validator *validator.Validator, log *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		txService: txService,
		validator: validator,
		log:       log,
	}
}

// Verify evaluates a transaction against the organization's approval rule
// POST /api/v1/organizations/:orgId/transactions/verify
func (h *TransactionHandler) Verify(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	orgID, err := uuidParam(c, "orgId")
	if err != nil {
		return respondError(c, h.log, err)
	}

	var req service.VerifyTransactionRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return respondError(c, h.log, err)
	}

	res, err := h.txService.Verify(c.UserContext(), orgID, userID, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

// CheckToken confirms a transaction token was issued for this organization
// POST /api/v1/organizations/:orgId/transactions/check
func (h *TransactionHandler) CheckToken(c *fiber.Ctx) error {
	orgID, err := uuidParam(c, "orgId")
	if err != nil {
		return respondError(c, h.log, err)
	}

	var req service.CheckTokenRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return respondError(c, h.log, err)
	}

	res, err := h.txService.CheckToken(c.UserContext(), orgID, req.Token)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

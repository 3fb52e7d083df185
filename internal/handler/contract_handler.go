package handler

import (
	"log/slog"

	"github.com/KaiavN/Transac/internal/service"
	"github.com/KaiavN/Transac/pkg/validator"
	"github.com/gofiber/fiber/v2"
)

type ContractHandler struct {
	contractService *service.ContractService
	validator       *validator.Validator
	log             *slog.Logger
}

func NewContractHandler(contractService *service.ContractService, validator *validator.Validator, log *slog.Logger) *ContractHandler {
	return &ContractHandler{
		contractService: contractService,
		validator:       validator,
		log:             log,
	}
}

// Create drafts a contract from a prompt
// POST /api/v1/contracts
func (h *ContractHandler) Create(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	var req service.CreateContractRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return respondError(c, h.log, err)
	}

	contract, err := h.contractService.Create(c.UserContext(), userID, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(contract)
}

// Get returns one of the caller's contracts
// GET /api/v1/contracts/:id
func (h *ContractHandler) Get(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}

	contract, err := h.contractService.Get(c.UserContext(), id, userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusOK).JSON(contract)
}

// List pages through the caller's contracts
// GET /api/v1/contracts?page=&page_size=
func (h *ContractHandler) List(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	page, err := h.contractService.List(c.UserContext(), userID, pageFromQuery(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusOK).JSON(page)
}

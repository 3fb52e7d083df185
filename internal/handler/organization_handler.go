package handler

import (
	"log/slog"

	"github.com/KaiavN/Transac/internal/service"
	"github.com/KaiavN/Transac/pkg/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type OrganizationHandler struct {
	orgService *service.OrganizationService
	validator  *validator.Validator
	log        *slog.Logger
}

func NewOrganizationHandler(orgService *service.OrganizationService, validator *validator.Validator, log *slog.Logger) *OrganizationHandler {
	return &OrganizationHandler{
		orgService: orgService,
		validator:  validator,
		log:        log,
	}
}

// Create registers a new organization with the caller as admin
// POST /api/v1/organizations
func (h *OrganizationHandler) Create(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	var req service.CreateOrganizationRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return respondError(c, h.log, err)
	}

	org, err := h.orgService.Create(c.UserContext(), userID, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(org)
}

// Get returns the organization with its member lists
// GET /api/v1/organizations/:orgId
func (h *OrganizationHandler) Get(c *fiber.Ctx) error {
	userID, orgID, err := h.userAndOrg(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	org, err := h.orgService.Get(c.UserContext(), orgID, userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusOK).JSON(org)
}

// Activity pages through the organization's log
// GET /api/v1/organizations/:orgId/activity?page=&page_size=
func (h *OrganizationHandler) Activity(c *fiber.Ctx) error {
	userID, orgID, err := h.userAndOrg(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	page, err := h.orgService.Activity(c.UserContext(), orgID, userID, pageFromQuery(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusOK).JSON(page)
}

// RequestMembership asks to join the organization
// POST /api/v1/organizations/:orgId/requests
func (h *OrganizationHandler) RequestMembership(c *fiber.Ctx) error {
	userID, orgID, err := h.userAndOrg(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	if err := h.orgService.RequestMembership(c.UserContext(), orgID, userID); err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "membership requested",
		"status":  "pending",
	})
}

// ResolveMembership approves or rejects a pending request
// POST /api/v1/organizations/:orgId/requests/resolve
func (h *OrganizationHandler) ResolveMembership(c *fiber.Ctx) error {
	actorID, orgID, err := h.userAndOrg(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	var req service.ResolveMembershipRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return respondError(c, h.log, err)
	}
	employeeID := uuid.MustParse(req.UserID)

	if err := h.orgService.ResolveMembership(c.UserContext(), orgID, actorID, employeeID, req.Action); err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"user_id": employeeID,
		"action":  req.Action,
	})
}

func (h *OrganizationHandler) userAndOrg(c *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	userID, err := currentUser(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	orgID, err := uuidParam(c, "orgId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, orgID, nil
}

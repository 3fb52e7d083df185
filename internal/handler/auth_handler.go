package handler

import (
	"log/slog"

	"github.com/KaiavN/Transac/internal/handler/middleware"
	"github.com/KaiavN/Transac/internal/service"
	"github.com/KaiavN/Transac/pkg/crypto"
	"github.com/KaiavN/Transac/pkg/validator"
	"github.com/gofiber/fiber/v2"
)

const csrfTokenBytes = 32

type AuthHandler struct {
	authService *service.AuthService
	validator   *validator.Validator
	cookies     middleware.SessionCookieConfig
	csrf        middleware.CSRFConfig
	log         *slog.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	validator *validator.Validator,
	cookies middleware.SessionCookieConfig,
	csrf middleware.CSRFConfig,
	log *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validator:   validator,
		cookies:     cookies,
		csrf:        csrf,
		log:         log,
	}
}

// CSRFToken mints a double-submit token
// GET /api/v1/auth/csrf
func (h *AuthHandler) CSRFToken(c *fiber.Ctx) error {
	token, err := crypto.GenerateToken(csrfTokenBytes)
	if err != nil {
		return respondError(c, h.log, err)
	}

	middleware.SetCSRFCookie(c, h.csrf, token)
	c.Set(h.csrf.HeaderName, token)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"csrf_token": token,
	})
}

// Register creates an account and signs it in
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req service.RegisterRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return respondError(c, h.log, err)
	}

	res, err := h.authService.Register(c.UserContext(), req, sessionMeta(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	middleware.SetSessionCookie(c, h.cookies, res.Session.ID, res.Session.ExpiresAt)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":       service.NewUserDTO(res.User),
		"expires_at": res.Session.ExpiresAt,
	})
}

// Login handles password login
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req service.LoginRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return respondError(c, h.log, err)
	}

	res, err := h.authService.Login(c.UserContext(), req, sessionMeta(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	middleware.SetSessionCookie(c, h.cookies, res.Session.ID, res.Session.ExpiresAt)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"user":       service.NewUserDTO(res.User),
		"expires_at": res.Session.ExpiresAt,
	})
}

// Logout revokes the current session
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.authService.Logout(c.UserContext(), middleware.SessionID(c)); err != nil {
		return respondError(c, h.log, err)
	}

	middleware.ClearSessionCookie(c, h.cookies)
	c.Set(h.cookies.HeaderName, "")

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "logged out",
	})
}

// LogoutAll revokes every session of the current user
// POST /api/v1/auth/logout-all
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	n, err := h.authService.LogoutAll(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	middleware.ClearSessionCookie(c, h.cookies)
	c.Set(h.cookies.HeaderName, "")

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":          "logged out everywhere",
		"revoked_sessions": n,
	})
}

package handler

import (
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	OAuth        *OAuthHandler // nil when Google sign-in is not configured
	User         *UserHandler
	Organization *OrganizationHandler
	Transaction  *TransactionHandler
	Contract     *ContractHandler
}

type Middleware struct {
	RateLimit     fiber.Handler
	CSRF          fiber.Handler
	Auth          fiber.Handler
	RequireMember fiber.Handler
	RequireAdmin  fiber.Handler
}

// SetupRoutes wires the API. Every /api/v1 request passes the rate limiter and
// then the CSRF guard before any authentication.
func SetupRoutes(app *fiber.App, h Handlers, mw Middleware) {
	// Health checks (public)
	app.Get("/health", h.Health.Health)
	app.Get("/ready", h.Health.Ready)

	api := app.Group("/api/v1", mw.RateLimit, mw.CSRF)

	// Auth routes
	auth := api.Group("/auth")
	auth.Get("/csrf", h.Auth.CSRFToken)
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/logout", mw.Auth, h.Auth.Logout)
	auth.Post("/logout-all", mw.Auth, h.Auth.LogoutAll)
	if h.OAuth != nil {
		auth.Get("/google", h.OAuth.Login)
		auth.Get("/google/callback", h.OAuth.Callback)
	}

	// User routes (protected)
	users := api.Group("/users", mw.Auth)
	users.Get("/me", h.User.GetMe)
	users.Put("/me", h.User.UpdateMe)
	users.Put("/me/payment", h.User.UpdatePayment)
	users.Put("/me/signature", h.User.SetSignature)
	users.Post("/me/signature/view", h.User.ViewSignature)

	// Organization routes (protected)
	orgs := api.Group("/organizations", mw.Auth)
	orgs.Post("/", h.Organization.Create)
	orgs.Get("/:orgId", mw.RequireMember, h.Organization.Get)
	orgs.Get("/:orgId/activity", mw.RequireMember, h.Organization.Activity)
	orgs.Post("/:orgId/requests", h.Organization.RequestMembership)
	orgs.Post("/:orgId/requests/resolve", mw.RequireAdmin, h.Organization.ResolveMembership)
	orgs.Post("/:orgId/transactions/verify", mw.RequireMember, h.Transaction.Verify)
	orgs.Post("/:orgId/transactions/check", mw.RequireMember, h.Transaction.CheckToken)

	// Contract routes (protected)
	contracts := api.Group("/contracts", mw.Auth)
	contracts.Post("/", h.Contract.Create)
	contracts.Get("/", h.Contract.List)
	contracts.Get("/:id", h.Contract.Get)
}

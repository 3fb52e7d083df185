package handler

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/KaiavN/Transac/internal/handler/middleware"
	"github.com/KaiavN/Transac/internal/service"
	"github.com/KaiavN/Transac/pkg/crypto"
	"github.com/KaiavN/Transac/pkg/oauth/google"
	"github.com/gofiber/fiber/v2"
)

const (
	stateCookieName = "__oauth_state"
	pkceCookieName  = "__oauth_pkce"
	oauthCookieTTL  = 5 * time.Minute
	stateBytes      = 32
)

// googleProvider is the slice of *google.Provider the handler drives.
type googleProvider interface {
	AuthCodeURL(state, codeVerifier string) string
	Exchange(ctx context.Context, code, codeVerifier string) (*google.Identity, error)
}

type OAuthHandler struct {
	provider    googleProvider
	authService *service.AuthService
	cookies     middleware.SessionCookieConfig
	frontendURL string
	log         *slog.Logger
}

func NewOAuthHandler(
	provider googleProvider,
	authService *service.AuthService,
	cookies middleware.SessionCookieConfig,
	frontendURL string,
	log *slog.Logger,
) *OAuthHandler {
	return &OAuthHandler{
		provider:    provider,
		authService: authService,
		cookies:     cookies,
		frontendURL: frontendURL,
		log:         log,
	}
}

// Login starts the Google flow
// GET /api/v1/auth/google
func (h *OAuthHandler) Login(c *fiber.Ctx) error {
	state, err := crypto.GenerateToken(stateBytes)
	if err != nil {
		return respondError(c, h.log, err)
	}
	verifier := google.NewVerifier()

	h.setFlowCookie(c, stateCookieName, state, oauthCookieTTL)
	h.setFlowCookie(c, pkceCookieName, verifier, oauthCookieTTL)

	return c.Redirect(h.provider.AuthCodeURL(state, verifier), fiber.StatusFound)
}

// Callback finishes the Google flow and signs the user in
// GET /api/v1/auth/google/callback
func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	state := c.Cookies(stateCookieName)
	verifier := c.Cookies(pkceCookieName)

	// The flow cookies are single-use.
	h.setFlowCookie(c, stateCookieName, "", -1)
	h.setFlowCookie(c, pkceCookieName, "", -1)

	if !crypto.EqualTokens(state, c.Query("state")) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid state",
		})
	}

	if errParam := c.Query("error"); errParam != "" {
		h.log.Warn("google callback returned error", "error", errParam, "desc", c.Query("error_description"))
		return c.Redirect(h.frontendPath("/login", url.Values{"error": {"oauth"}}), fiber.StatusFound)
	}

	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing authorization code",
		})
	}
	if verifier == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "missing pkce verifier",
		})
	}

	identity, err := h.provider.Exchange(c.UserContext(), code, verifier)
	if err != nil {
		h.log.Warn("google exchange failed", "err", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication failed",
		})
	}

	res, err := h.authService.LoginWithGoogle(c.UserContext(), identity, sessionMeta(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	middleware.SetSessionCookie(c, h.cookies, res.Session.ID, res.Session.ExpiresAt)
	return c.Redirect(h.frontendURL, fiber.StatusFound)
}

func (h *OAuthHandler) setFlowCookie(c *fiber.Ctx, name, value string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HTTPOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *OAuthHandler) frontendPath(path string, q url.Values) string {
	u, err := url.Parse(h.frontendURL)
	if err != nil {
		return path
	}
	u.Path = path
	u.RawQuery = q.Encode()
	return u.String()
}

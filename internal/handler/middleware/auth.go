package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/KaiavN/Transac/internal/domain"
	"github.com/KaiavN/Transac/internal/session"
	"github.com/gofiber/fiber/v2"
)

// SessionCookieConfig names where the session token travels.
type SessionCookieConfig struct {
	CookieName string
	HeaderName string
	Secure     bool
}

// AuthMiddleware validates the session token from the cookie or header and
// slides its expiry. The refreshed cookie and header go out on the response.
func AuthMiddleware(sessions *session.Manager, cfg SessionCookieConfig, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(cfg.CookieName)
		if token == "" {
			token = c.Get(cfg.HeaderName)
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}

		sess, err := sessions.Validate(c.UserContext(), token)
		if err != nil {
			if domain.IsAuthError(err) {
				msg := "authentication required"
				if errors.Is(err, domain.ErrSessionExpired) {
					msg = "session expired"
				}
				ClearSessionCookie(c, cfg)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": msg,
				})
			}

			log.Error("session validation failed", "err", err, "request_id", requestID(c))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "internal server error",
			})
		}

		c.Locals(LocalUserID, sess.UserID)
		c.Locals(LocalSessionID, sess.ID)

		SetSessionCookie(c, cfg, sess.ID, sess.ExpiresAt)

		return c.Next()
	}
}

// SetSessionCookie issues the session cookie and mirrors the token in the header.
func SetSessionCookie(c *fiber.Ctx, cfg SessionCookieConfig, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   cfg.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Set(cfg.HeaderName, token)
}

func ClearSessionCookie(c *fiber.Ctx, cfg SessionCookieConfig) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   cfg.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

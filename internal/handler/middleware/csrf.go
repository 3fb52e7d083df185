package middleware

import (
	"strings"

	"github.com/KaiavN/Transac/pkg/crypto"
	"github.com/gofiber/fiber/v2"
)

type CSRFConfig struct {
	CookieName  string
	HeaderName  string
	SafeMethods []string
	Secure      bool
}

// CSRF enforces double-submit on unsafe methods: the header token must equal the cookie token.
func CSRF(cfg CSRFConfig) fiber.Handler {
	safe := make(map[string]struct{}, len(cfg.SafeMethods))
	for _, m := range cfg.SafeMethods {
		safe[strings.ToUpper(m)] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		if _, ok := safe[c.Method()]; ok {
			return c.Next()
		}

		if !crypto.EqualTokens(c.Cookies(cfg.CookieName), c.Get(cfg.HeaderName)) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "invalid csrf token",
			})
		}

		return c.Next()
	}
}

// SetCSRFCookie stores token where client script can read it back into the header.
func SetCSRFCookie(c *fiber.Ctx, cfg CSRFConfig, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: false,
		Secure:   cfg.Secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORSMiddleware allows the configured origins. Credentials (the session and
// CSRF cookies) are only allowed with an explicit origin list.
func CORSMiddleware(allowedOrigins, sessionHeader, csrfHeader string) fiber.Handler {
	origins := strings.TrimSpace(allowedOrigins)
	if origins == "" {
		origins = "*"
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     strings.Join([]string{"Content-Type", sessionHeader, csrfHeader}, ","),
		ExposeHeaders:    strings.Join([]string{sessionHeader, csrfHeader, fiber.HeaderRetryAfter}, ","),
		AllowCredentials: origins != "*",
	})
}

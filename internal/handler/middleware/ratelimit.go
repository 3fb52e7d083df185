package middleware

import (
	"log/slog"
	"strconv"

	"github.com/KaiavN/Transac/internal/domain"
	"github.com/KaiavN/Transac/internal/ratelimit"
	"github.com/gofiber/fiber/v2"
)

// RateLimit counts requests per client address. A store failure lets the request through.
func RateLimit(limiter *ratelimit.Limiter, log *slog.Logger) fiber.Handler {
	limit := strconv.Itoa(limiter.Policy().MaxRequests)

	return func(c *fiber.Ctx) error {
		decision, err := limiter.Allow(c.UserContext(), c.IP())
		if err != nil {
			log.Warn("rate limiter unavailable, allowing request", "ip", c.IP(), "err", err)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", limit)
		c.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			rlErr := &domain.RateLimitError{RetryAfter: decision.RetryAfter}
			secs := rlErr.RetryAfterSeconds()

			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "too many requests",
				"retry_after": secs,
			})
		}

		return c.Next()
	}
}

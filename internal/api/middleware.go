package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tsudoi-app/tsudoi/internal/auth"
)

// requireAuth validates the bearer token and stores the user id in locals.
// Websocket upgrades may carry the token as a query parameter instead,
// browsers cannot set headers on ws connections.
func requireAuth(v *auth.Validator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := ""
		if hdr := c.Get("Authorization"); hdr != "" {
			parts := strings.SplitN(hdr, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization"})
			}
			token = parts[1]
		} else {
			token = c.Query("token")
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization"})
		}
		uid, err := v.Validate(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		c.Locals("user_id", uid)
		return c.Next()
	}
}

func userID(c *fiber.Ctx) string {
	uid, _ := c.Locals("user_id").(string)
	return uid
}

type rateLimiter struct {
	redis  *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func newRateLimiter(r *redis.Client, prefix string, limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{redis: r, prefix: prefix, limit: limit, window: window}
}

// middleware counts requests per user in a fixed Redis window. When Redis is
// unavailable the request passes; rate limiting is protective, not load-bearing.
func (r *rateLimiter) middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if r.redis == nil {
			return c.Next()
		}
		key := fmt.Sprintf("%s:%s", r.prefix, userID(c))
		count, err := r.redis.Incr(c.Context(), key).Result()
		if err != nil {
			return c.Next()
		}
		if count == 1 {
			r.redis.Expire(c.Context(), key, r.window)
		}
		if count > int64(r.limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}

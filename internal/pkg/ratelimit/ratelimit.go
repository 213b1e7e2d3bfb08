package ratelimit

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/TableFox/internal/pkg/cache"
	"github.com/ManuelReschke/TableFox/internal/pkg/env"
)

// limiterDatabase keeps rate limit counters apart from the job queue (DB 0).
const limiterDatabase = 1

// NewRedisStorage builds limiter storage on the same Redis server as the
// cache client.
func NewRedisStorage() fiber.Storage {
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: limiterDatabase,
		Reset:    false,
	})
}

// StatusPoll limits the public order status endpoint per client IP and order.
// A nil storage keeps the counters in memory.
func StatusPoll(storage fiber.Storage) fiber.Handler {
	limit := env.GetEnvInt("STATUS_POLL_RATE_LIMIT", 30)
	window := time.Duration(env.GetEnvInt("STATUS_POLL_RATE_WINDOW_SECONDS", 60)) * time.Second

	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: window,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "status_poll:" + c.IP() + ":" + c.Params("id")
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "rate_limited",
				"message": "Too many status requests, slow down",
			})
		},
	})
}

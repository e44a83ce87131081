package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/database"
)

// Pinger reports whether the generation backend is reachable.
type Pinger interface {
	Health(ctx context.Context) error
}

// HealthCheck handles GET /health. It reports per-dependency status and
// returns 503 when any dependency is down.
func HealthCheck(db *database.DB, backend Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()

		status := fiber.StatusOK
		dbStatus := "ok"
		if err := db.PingContext(ctx); err != nil {
			dbStatus = "unavailable"
			status = fiber.StatusServiceUnavailable
		}

		modelStatus := "ok"
		if err := backend.Health(ctx); err != nil {
			modelStatus = "unavailable"
			status = fiber.StatusServiceUnavailable
		}

		overall := "ok"
		if status != fiber.StatusOK {
			overall = "degraded"
		}

		return c.Status(status).JSON(fiber.Map{
			"status": overall,
			"checks": fiber.Map{
				"database": dbStatus,
				"model":    modelStatus,
			},
		})
	}
}

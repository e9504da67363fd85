package server

import (
	"context"
	"time"

	"quill/internal/database"
	"quill/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// LivenessCheck handles GET /health/live
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} object{status=string}
// @Router /health/live [get]
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "up"})
}

// ReadinessCheck handles GET /health/ready. The database is required; redis
// only degrades the report since every redis-backed feature has a fallback.
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} object{status=string,checks=object}
// @Failure 503 {object} object{status=string,checks=object}
// @Router /health/ready [get]
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	checks := fiber.Map{}
	status := "ready"

	if err := database.Ping(ctx, s.db); err != nil {
		middleware.Logger.WarnContext(ctx, "readiness: database unavailable", "error", err)
		checks["database"] = "down"
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "checks": checks})
	}
	checks["database"] = "up"

	switch {
	case s.redis == nil:
		checks["redis"] = "disabled"
	case s.redis.Ping(ctx).Err() != nil:
		checks["redis"] = "down"
		status = "degraded"
	default:
		checks["redis"] = "up"
	}

	return c.JSON(fiber.Map{"status": status, "checks": checks})
}

package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/collabkit/ticketdesk/internal/persistence"
)

const probeTimeout = 2 * time.Second

type dependencyProbe struct {
	name string
	ping func(context.Context) error
}

// HealthHandler serves liveness and readiness probes. Liveness is
// unconditional; readiness pings every registered dependency.
type HealthHandler struct {
	serviceName string
	version     string
	probes      []dependencyProbe
}

func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		probes: []dependencyProbe{
			{name: "postgres", ping: postgres.Ping},
			{name: "redis", ping: redis.Ping},
		},
	}
}

func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), probeTimeout)
	defer cancel()

	deps := fiber.Map{}
	healthy := true
	for _, probe := range h.probes {
		start := time.Now()
		status := fiber.Map{}
		if err := probe.ping(ctx); err != nil {
			healthy = false
			status["status"] = "down"
			status["error"] = err.Error()
		} else {
			status["status"] = "ok"
		}
		status["latency_ms"] = time.Since(start).Milliseconds()
		deps[probe.name] = status
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": deps,
			},
		})
	}
	return c.JSON(fiber.Map{
		"status":       "ready",
		"dependencies": deps,
	})
}

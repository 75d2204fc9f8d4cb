package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
)

// Pinger reports backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness endpoints.
type HealthHandler struct {
	appName string
	version string
	checks  map[string]Pinger
}

// NewHealthHandler creates a health handler. Each check is pinged by /healthz.
func NewHealthHandler(appName, version string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{appName: appName, version: version, checks: checks}
}

// Register sets up health routes on the root router.
func (h *HealthHandler) Register(app fiber.Router) {
	app.Get("/", h.Root)
	app.Get("/healthz", h.Healthz)
	app.Get("/v1/health", h.Health)
}

func (h *HealthHandler) Root(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Welcome to " + h.appName + " - AI-Powered Job Matching"})
}

// Health is the liveness probe.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"app":     h.appName,
		"version": h.version,
	})
}

// Healthz pings every dependency and answers 503 when one is down.
func (h *HealthHandler) Healthz(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	status := fiber.StatusOK
	results := make(fiber.Map, len(h.checks))
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			results[name] = err.Error()
			status = fiber.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	overall := "healthy"
	if status != fiber.StatusOK {
		overall = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{"status": overall, "checks": results})
}

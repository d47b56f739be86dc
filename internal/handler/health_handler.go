package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/agenda-api/internal/config"
	"github.com/noah-isme/agenda-api/internal/utils"
)

const probeTimeout = 2 * time.Second

// Health statuses reported by the health endpoint.
const (
	HealthOK          = "ok"
	HealthDegraded    = "degraded"
	HealthUnavailable = "unavailable"
)

// DependencyCheck names a backing service and how to reach it. A failing
// required dependency makes the API unavailable; an optional one degrades it.
type DependencyCheck struct {
	Name     string
	Required bool
	Probe    func(ctx context.Context) error
}

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Service      string            `json:"service"`
	Environment  string            `json:"environment"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// HealthHandler serves GET /health.
type HealthHandler struct {
	cfg    config.Config
	checks []DependencyCheck
}

// NewHealthHandler builds the handler; checks may be empty.
func NewHealthHandler(cfg config.Config, checks ...DependencyCheck) *HealthHandler {
	return &HealthHandler{cfg: cfg, checks: checks}
}

// Check probes every dependency and answers 503 when a required one is down.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	payload := HealthResponse{
		Status:      HealthOK,
		Timestamp:   time.Now().UTC(),
		Service:     h.cfg.AppName,
		Environment: h.cfg.AppEnv,
	}

	if len(h.checks) > 0 {
		payload.Dependencies = make(map[string]string, len(h.checks))
	}
	for _, check := range h.checks {
		ctx, cancel := context.WithTimeout(c.UserContext(), probeTimeout)
		err := check.Probe(ctx)
		cancel()

		if err == nil {
			payload.Dependencies[check.Name] = HealthOK
			continue
		}
		payload.Dependencies[check.Name] = err.Error()
		if check.Required {
			payload.Status = HealthUnavailable
		} else if payload.Status == HealthOK {
			payload.Status = HealthDegraded
		}
	}

	if payload.Status == HealthUnavailable {
		return utils.Fail(c, fiber.StatusServiceUnavailable, "service unavailable", payload)
	}
	return utils.SendSuccess(c, "service healthy", payload)
}

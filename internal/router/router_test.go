package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/internal/config"
	"github.com/noah-isme/agenda-api/internal/handler"
	"github.com/noah-isme/agenda-api/internal/service"
)

func TestRegisterKeepsHealthPublicAndGuardsTheRest(t *testing.T) {
	app := fiber.New()
	Register(app, config.Config{AppName: "Agenda API", AppEnv: "test"}, Dependencies{
		AuditHandler: &handler.AuditHandler{},
		JWTMiddleware: func(c *fiber.Ctx) error {
			if c.Get("Authorization") == "" {
				return c.SendStatus(fiber.StatusUnauthorized)
			}
			c.Locals("user_id", "42")
			c.Locals("user_role", service.RoleSpeaker)
			return c.Next()
		},
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "Agenda API", resp.Header.Get("X-Application"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/audit-logs", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-logs", nil)
	req.Header.Set("Authorization", "Bearer x")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

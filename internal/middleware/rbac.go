package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/agenda-api/internal/utils"
)

// RequireRole lets the request through when the caller holds one of roles.
// Admins always pass.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := normalizeRoleValue(role); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		if !roleAllowed(normalizeRoleValue(c.Locals("user_role")), allowed) {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}
		return c.Next()
	}
}

func roleAllowed(role string, allowed map[string]struct{}) bool {
	if role == "" {
		return false
	}
	if role == AuthRoleAdmin {
		return true
	}
	_, ok := allowed[role]
	return ok
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		return ""
	}
}

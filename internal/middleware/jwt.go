package middleware

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/agenda-api/internal/utils"
)

var errBadSubject = errors.New("invalid subject")

// JWTProtected validates HMAC signed bearer tokens and exposes the caller as
// the string locals user_id and user_role.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(secret), nil }

	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return utils.Fail(c, fiber.StatusUnauthorized, "bearer token required", nil)
		}

		claims := jwt.MapClaims{}
		token, err := parser.ParseWithClaims(raw, claims, keyFunc)
		if err != nil || !token.Valid {
			return utils.Fail(c, fiber.StatusUnauthorized, "invalid token", nil)
		}

		userID := subjectFromClaims(claims)
		if userID == "" {
			return utils.Fail(c, fiber.StatusUnauthorized, "token carries no subject", nil)
		}

		c.Locals("user_id", userID)
		if role := roleFromClaims(claims); role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func subjectFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"sub", "user_id", "id"} {
		if value, ok := claims[key]; ok {
			if id, err := normalizeUserID(value); err == nil {
				return id
			}
		}
	}
	return ""
}

// normalizeUserID renders numeric and string subjects identically so
// recipient ids compare equal however the issuer encoded them.
func normalizeUserID(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed, nil
		}
	case float64:
		if v >= 0 && v == math.Trunc(v) {
			return strconv.FormatUint(uint64(v), 10), nil
		}
	case int:
		if v >= 0 {
			return strconv.Itoa(v), nil
		}
	}
	return "", errBadSubject
}

// roleFromClaims accepts "role" as a string or "roles" as a list and keeps the first non-empty value.
func roleFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"role", "roles"} {
		switch v := claims[key].(type) {
		case string:
			if role := normalizeRoleValue(v); role != "" {
				return role
			}
		case []interface{}:
			for _, item := range v {
				if role, _ := item.(string); normalizeRoleValue(role) != "" {
					return normalizeRoleValue(role)
				}
			}
		}
	}
	return ""
}

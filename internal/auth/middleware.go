package auth

import (
	"strings"

	"backend-meetspot/internal/shared/httpx"

	"github.com/gofiber/fiber/v2"
)

const userIDKey = "user_id"

// JWTMiddleware accepts access tokens signed with secret and stores the caller's id
// for UserID.
func JWTMiddleware(secret string) fiber.Handler {
	tokens := newSigner(secret)
	return func(c *fiber.Ctx) error {
		token := bearer(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		claims, err := tokens.parse(token, useAccess)
		if err != nil {
			return httpx.Error(err)
		}
		c.Locals(userIDKey, claims.UserID)
		return c.Next()
	}
}

// UserID returns the authenticated caller, or "" outside JWTMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}

func bearer(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

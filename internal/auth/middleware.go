package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	PermUploadFile = "upload_file"
	PermViewFiles  = "view_files"

	localUserID      = "user_id"
	localPermissions = "permissions"
)

// JWTMiddleware validates bearer tokens and stores user_id and permissions
// in locals.
func JWTMiddleware(secret string) fiber.Handler {
	svc := NewService(secret)
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims, err := svc.ParseToken(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		c.Locals(localUserID, claims.UserID)
		c.Locals(localPermissions, claims.Permissions)
		return c.Next()
	}
}

// RequirePermission rejects requests whose token lacks name. Must run after
// JWTMiddleware.
func RequirePermission(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		perms, _ := c.Locals(localPermissions).([]string)
		if !HasPermission(perms, name) {
			return fiber.NewError(fiber.StatusForbidden, "Forbidden: Missing permission '"+name+"'")
		}
		return c.Next()
	}
}

// HasPermission matches case-insensitively.
func HasPermission(perms []string, name string) bool {
	for _, p := range perms {
		if strings.EqualFold(strings.TrimSpace(p), name) {
			return true
		}
	}
	return false
}

// UserID returns the authenticated user, or "" outside JWTMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

package auth

import "github.com/gofiber/fiber/v2"

// RegisterRoutes exposes GET /me describing the caller's token.
func RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler) {
	r.Get("/me", authMiddleware, func(c *fiber.Ctx) error {
		perms, _ := c.Locals(localPermissions).([]string)
		if perms == nil {
			perms = []string{}
		}
		return c.JSON(fiber.Map{
			"user_id":     UserID(c),
			"permissions": perms,
		})
	})
}

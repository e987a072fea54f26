package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"segment-engine/models"
	"segment-engine/services"
)

func RequireAuth(c *fiber.Ctx) error {
	// Get session ID from cookie
	sessionID := c.Cookies(services.SessionCookieName)
	if sessionID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	// Get session from database
	session, err := services.GetSessionByID(c.Context(), sessionID)
	if err != nil {
		slog.Error("Failed to get session", "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	if session == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired session",
		})
	}

	// Set user information in locals for downstream handlers
	c.Locals("user_id", session.UserID)
	c.Locals("email", session.Email)
	c.Locals("role", session.Role)
	c.Locals("username", session.Username)

	// Extend session expiration on activity
	services.ExtendSession(c.Context(), sessionID)

	return c.Next()
}

// RequireRole limits a route to the given roles, admin always allowed
func RequireRole(roles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals("role").(string)
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Access denied",
			})
		}

		currentRole := models.UserRole(role)
		if currentRole == models.RoleAdmin {
			return c.Next()
		}
		for _, allowed := range roles {
			if currentRole == allowed {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}
}

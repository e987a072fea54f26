package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"segment-engine/models"
	"segment-engine/services"
)

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register creates a new operator account
func Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if !models.IsValidRole(req.Role) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid role",
		})
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Role:     models.UserRole(req.Role),
	}
	if err := services.CreateUser(c.Context(), user, req.Password); err != nil {
		slog.Error("Failed to create user", "error", err, "email", req.Email)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created",
		"user":    user,
	})
}

// Login authenticates an operator and opens a cookie session
func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	user, err := services.GetUserByEmail(c.Context(), req.Email)
	if err != nil {
		slog.Error("Failed to get user", "error", err, "email", req.Email)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Login failed",
		})
	}
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	if err := services.CheckPassword(req.Password, user.PasswordHash); err != nil {
		slog.Info("Invalid password attempt", "email", req.Email)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	session, err := services.CreateSession(c.Context(), user, c.IP(), c.Get("User-Agent"))
	if err != nil {
		slog.Error("Failed to create session", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Login failed",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     services.SessionCookieName,
		Value:    session.SessionID,
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})

	if err := services.UpdateLastLogin(c.Context(), user.UserID); err != nil {
		slog.Error("Failed to update last login", "error", err)
	}

	slog.Info("User logged in", "userID", user.UserID, "email", user.Email)
	return c.JSON(fiber.Map{
		"message": "Logged in",
		"user":    user,
	})
}

// Logout invalidates the current session
func Logout(c *fiber.Ctx) error {
	sessionID := c.Cookies(services.SessionCookieName)
	if sessionID != "" {
		if err := services.InvalidateSession(c.Context(), sessionID); err != nil {
			slog.Error("Failed to invalidate session", "error", err)
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     services.SessionCookieName,
		Value:    "",
		HTTPOnly: true,
		MaxAge:   -1,
		Path:     "/",
	})

	return c.JSON(fiber.Map{
		"message": "Logged out",
	})
}

package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"foodgram/internal/services"
)

// Locals keys set by the auth middleware.
const (
	LocalUserID   = "user_id"
	LocalUsername = "username"
	LocalRole     = "role"
	LocalClaims   = "claims"
)

// RequireUser rejects requests that AuthOptional did not authenticate.
func RequireUser(c *fiber.Ctx) error {
	if CurrentActor(c).Authenticated() {
		return c.Next()
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": "Authentication credentials were not provided.",
	})
}

// AuthOptional authenticates the caller when a token is sent and lets
// anonymous requests through. A malformed or invalid token is still rejected.
func AuthOptional(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Next()
		}
		return authenticate(c, authService)
	}
}

func authenticate(c *fiber.Ctx, authService *services.AuthService) error {
	// Expected format: "Token <jwt>" or "Bearer <jwt>"
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || (parts[0] != "Token" && parts[0] != "Bearer") || parts[1] == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authorization header format must be 'Token <token>'",
		})
	}

	claims, err := authService.ValidateToken(c.UserContext(), parts[1])
	if err != nil {
		slog.Debug("token validation failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid or expired token",
			"error":   err.Error(),
		})
	}

	// Store claims in Fiber context for subsequent handlers
	c.Locals(LocalUserID, claims.UserID)
	c.Locals(LocalUsername, claims.Username)
	c.Locals(LocalRole, claims.Role)
	c.Locals(LocalClaims, claims)

	return c.Next()
}

// CurrentActor returns the authenticated caller, or an anonymous Actor.
func CurrentActor(c *fiber.Ctx) services.Actor {
	id, _ := c.Locals(LocalUserID).(uint)
	username, _ := c.Locals(LocalUsername).(string)
	role, _ := c.Locals(LocalRole).(string)
	return services.Actor{ID: id, Username: username, Role: role}
}

// CurrentClaims returns the validated token claims, or nil for anonymous requests.
func CurrentClaims(c *fiber.Ctx) *services.Claims {
	claims, _ := c.Locals(LocalClaims).(*services.Claims)
	return claims
}

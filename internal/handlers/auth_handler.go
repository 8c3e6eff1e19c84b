package handlers

import (
	"github.com/gofiber/fiber/v2"

	"foodgram/internal/middleware"
	"foodgram/internal/services"
)

// AuthHandler handles HTTP requests for token authentication.
type AuthHandler struct {
	authService *services.AuthService
	limiter     *middleware.RateLimiter
}

// NewAuthHandler creates a new AuthHandler. Login attempts are throttled by limiter.
func NewAuthHandler(authService *services.AuthService, limiter *middleware.RateLimiter) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		limiter:     limiter,
	}
}

// RegisterRoutes registers the authentication routes.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth/token")
	authRoutes.Post("/login", middleware.RateLimit(h.limiter), h.HandleLogin)
	authRoutes.Post("/logout", middleware.RequireUser, h.HandleLogout)
}

// HandleLogin exchanges email and password for a token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req services.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	token, err := h.authService.Login(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"auth_token": token})
}

// HandleLogout revokes the token used for this request.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	if err := h.authService.Logout(c.UserContext(), middleware.CurrentClaims(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"foodgram/internal/services"
)

// respondError maps service errors onto HTTP statuses. Only unexpected
// failures are logged.
func respondError(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  verr.Fields,
		})
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  fiber.Map{"non_field_errors": "Unable to log in with provided credentials."},
		})
	case errors.Is(err, services.ErrAlreadyExists):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Already exists",
			"error":   err.Error(),
		})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Not found.",
		})
	case errors.Is(err, services.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authentication credentials were not provided.",
		})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "You do not have permission to perform this action.",
		})
	default:
		slog.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
			"error":   err.Error(),
		})
	}
}

func badBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

// idParam reads the :id route parameter. Anything but a positive integer is 404.
func idParam(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, services.ErrNotFound
	}
	return uint(id), nil
}

package handler

import (
	"errors"

	"go-inventory-uom/internal/repository"
	"go-inventory-uom/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Helper untuk ambil User Info dari JWT Context (set by auth middleware)
func getUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals("user_id").(string)
	return userID
}

func getUserName(c *fiber.Ctx) string {
	userName, _ := c.Locals("user_name").(string)
	return userName
}

func getUserEmail(c *fiber.Ctx) string {
	userEmail, _ := c.Locals("user_email").(string)
	return userEmail
}

// actor names the operator recorded on audit entries.
func actor(c *fiber.Ctx) string {
	for _, v := range []string{getUserName(c), getUserEmail(c), getUserID(c)} {
		if v != "" {
			return v
		}
	}
	return "system"
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrValidationFailed),
		errors.Is(err, service.ErrInvalidArgument),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInvalidCalculation):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrRatioNotFound),
		errors.Is(err, repository.ErrRecordNotFound),
		errors.Is(err, repository.ErrNoBackup):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrNotInitialized):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		return c.Status(status).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

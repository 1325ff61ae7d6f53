package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ilivehere/backend/internal/dto"
	"github.com/ilivehere/backend/internal/permissions"
)

// StaffRequired lets through users flagged as staff in the database or
// listed in STAFF_EMAILS / STAFF_USER_IDS. Runs after LoadUser.
func StaffRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return unauthorized(c, "Unauthorized")
		}
		if !permissions.CanModerate(user) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Staff access required",
			})
		}
		return c.Next()
	}
}

package handlers

import (
	"errors"
	"log/slog"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ilivehere/backend/internal/dto"
	"github.com/ilivehere/backend/internal/oops"
	"github.com/ilivehere/backend/internal/services"
)

// respondError maps service errors to a status. Anything unexpected is a 500
// and goes to Sentry; its details stay in the logs.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, oops.ErrValidation):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, oops.ErrPermission):
		status, message = fiber.StatusForbidden, err.Error()
	case errors.Is(err, oops.ErrNotFound):
		status, message = fiber.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrAlreadyModerated):
		status, message = fiber.StatusConflict, err.Error()
	default:
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
	}

	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: message,
	})
}

func storyID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, oops.Validation("invalid story id")
	}
	return id, nil
}

func eventID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, oops.Validation("invalid event id")
	}
	return id, nil
}

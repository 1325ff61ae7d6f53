package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ilivehere/backend/internal/dto"
	"github.com/ilivehere/backend/internal/middleware"
	"github.com/ilivehere/backend/internal/services"
)

// ModerationHandler serves the staff endpoints. StaffRequired guards the
// group; the service checks again.
type ModerationHandler struct {
	stories *StoryHandler
}

func NewModerationHandler(stories *StoryHandler) *ModerationHandler {
	return &ModerationHandler{stories: stories}
}

func (h *ModerationHandler) service() *services.StoryService {
	return h.stories.stories
}

func (h *ModerationHandler) Moderate(c *fiber.Ctx) error {
	id, err := storyID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req dto.ModerateStoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	moderator := middleware.CurrentUser(c)
	story, message, err := h.service().Moderate(id, moderator, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ModerateStoryResponse{
		Message: message,
		Story:   h.stories.toResponse(story, moderator),
	})
}

func (h *ModerationHandler) Events(c *fiber.Ctx) error {
	id, err := storyID(c)
	if err != nil {
		return respondError(c, err)
	}

	events, err := h.service().Events(id, middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": events})
}

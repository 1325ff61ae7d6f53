package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/ilivehere/backend/internal/dto"
	"github.com/ilivehere/backend/internal/middleware"
	"github.com/ilivehere/backend/internal/models"
	"github.com/ilivehere/backend/internal/permissions"
	"github.com/ilivehere/backend/internal/services"
)

type EventHandler struct {
	events *services.EventService
}

func NewEventHandler(events *services.EventService) *EventHandler {
	return &EventHandler{events: events}
}

func (h *EventHandler) CreateAnonymous(c *fiber.Ctx) error {
	var req dto.AnonymousEventRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	event, err := h.events.CreateAnonymous(&req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(eventResponse(event, nil))
}

func (h *EventHandler) CreateTrusted(c *fiber.Ctx) error {
	var req dto.TrustedEventRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user := middleware.CurrentUser(c)
	event, err := h.events.CreateTrusted(user, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(eventResponse(event, user))
}

func (h *EventHandler) List(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	events, total, err := h.events.List(user, dto.ListStoriesQuery{
		State:  c.Query("state"),
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
	})
	if err != nil {
		return respondError(c, err)
	}

	data := make([]dto.EventResponse, 0, len(events))
	for i := range events {
		data = append(data, eventResponse(&events[i], user))
	}
	return c.JSON(fiber.Map{"data": data, "total": total})
}

func (h *EventHandler) Get(c *fiber.Ctx) error {
	id, err := eventID(c)
	if err != nil {
		return respondError(c, err)
	}

	user := middleware.CurrentUser(c)
	event, err := h.events.Get(id, user)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(eventResponse(event, user))
}

// Moderate is mounted under the staff-only admin group.
func (h *EventHandler) Moderate(c *fiber.Ctx) error {
	id, err := eventID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req dto.ModerateStoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	moderator := middleware.CurrentUser(c)
	event, message, err := h.events.Moderate(id, moderator, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ModerateEventResponse{
		Message: message,
		Event:   eventResponse(event, moderator),
	})
}

func (h *EventHandler) Trail(c *fiber.Ctx) error {
	id, err := eventID(c)
	if err != nil {
		return respondError(c, err)
	}

	entries, err := h.events.Trail(id, middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": entries})
}

func eventResponse(event *models.Event, viewer *models.User) dto.EventResponse {
	author, err := event.AuthorLabel()
	if err != nil {
		slog.Warn("event has no author label", "event_id", event.ID.String(), "error", err)
	}

	resp := dto.EventResponse{
		ID:            event.ID,
		Author:        author,
		UserID:        event.UserID,
		Name:          event.Name,
		Area:          dto.AreaResponse{ID: event.Area.ID, Name: event.Area.Name, Slug: event.Area.Slug},
		Title:         event.Title,
		Description:   event.Description,
		ModerateState: event.ModerateState.String(),
		Published:     event.IsPublished(),
		ModeratedAt:   event.ModeratedAt,
		ModeratedBy:   event.ModeratedByID,
		CreatedAt:     event.CreatedAt,
		ModifiedAt:    event.ModifiedAt,
	}
	if permissions.CanModerate(viewer) {
		resp.Email = event.Email
	}
	return resp
}

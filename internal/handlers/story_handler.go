package handlers

import (
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/ilivehere/backend/internal/dto"
	"github.com/ilivehere/backend/internal/middleware"
	"github.com/ilivehere/backend/internal/models"
	"github.com/ilivehere/backend/internal/permissions"
	"github.com/ilivehere/backend/internal/services"
)

type StoryHandler struct {
	stories *services.StoryService
}

func NewStoryHandler(stories *services.StoryService) *StoryHandler {
	return &StoryHandler{stories: stories}
}

func (h *StoryHandler) CreateAnonymous(c *fiber.Ctx) error {
	var req dto.AnonymousStoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	story, err := h.stories.CreateAnonymous(&req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.toResponse(story, nil))
}

func (h *StoryHandler) CreateTrusted(c *fiber.Ctx) error {
	var req dto.TrustedStoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user := middleware.CurrentUser(c)
	story, err := h.stories.CreateTrusted(user, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.toResponse(story, user))
}

func (h *StoryHandler) List(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	stories, total, err := h.stories.List(user, dto.ListStoriesQuery{
		State:  c.Query("state"),
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
	})
	if err != nil {
		return respondError(c, err)
	}

	data := make([]dto.StoryResponse, 0, len(stories))
	for i := range stories {
		data = append(data, h.toResponse(&stories[i], user))
	}
	return c.JSON(fiber.Map{"data": data, "total": total})
}

func (h *StoryHandler) Get(c *fiber.Ctx) error {
	id, err := storyID(c)
	if err != nil {
		return respondError(c, err)
	}

	user := middleware.CurrentUser(c)
	story, err := h.stories.Get(id, user)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.toResponse(story, user))
}

func (h *StoryHandler) Update(c *fiber.Ctx) error {
	id, err := storyID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req dto.UpdateStoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user := middleware.CurrentUser(c)
	story, err := h.stories.Update(id, user, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.toResponse(story, user))
}

func (h *StoryHandler) SetPicture(c *fiber.Ctx) error {
	id, err := storyID(c)
	if err != nil {
		return respondError(c, err)
	}

	fh, err := c.FormFile("picture")
	if err != nil {
		return badRequest(c, "picture is required")
	}
	f, err := fh.Open()
	if err != nil {
		return respondError(c, err)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return respondError(c, err)
	}

	user := middleware.CurrentUser(c)
	story, err := h.stories.SetPicture(c.UserContext(), id, user, fh.Filename, content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.toResponse(story, user))
}

func (h *StoryHandler) ListAreas(c *fiber.Ctx) error {
	areas, err := h.stories.ListAreas()
	if err != nil {
		return respondError(c, err)
	}
	data := make([]dto.AreaResponse, 0, len(areas))
	for _, a := range areas {
		data = append(data, dto.AreaResponse{ID: a.ID, Name: a.Name, Slug: a.Slug})
	}
	return c.JSON(fiber.Map{"data": data})
}

func (h *StoryHandler) toResponse(story *models.Story, viewer *models.User) dto.StoryResponse {
	author, err := story.AuthorLabel()
	if err != nil {
		slog.Warn("story has no author label", "story_id", story.ID.String(), "error", err)
	}

	resp := dto.StoryResponse{
		ID:            story.ID,
		Author:        author,
		UserID:        story.UserID,
		Name:          story.Name,
		Area:          dto.AreaResponse{ID: story.Area.ID, Name: story.Area.Name, Slug: story.Area.Slug},
		Title:         story.Title,
		Description:   story.Description,
		PictureURL:    h.stories.PictureURL(story),
		ModerateState: story.ModerateState.String(),
		Published:     story.IsPublished(),
		Rejected:      story.IsRejected(),
		ModeratedAt:   story.ModeratedAt,
		ModeratedBy:   story.ModeratedByID,
		CanEdit:       permissions.CanEdit(viewer, story),
		CreatedAt:     story.CreatedAt,
		ModifiedAt:    story.ModifiedAt,
	}
	// contact details are for staff only
	if permissions.CanModerate(viewer) {
		resp.Email = story.Email
	}
	return resp
}

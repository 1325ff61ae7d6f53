package dto

import (
	"time"

	"github.com/google/uuid"
)

type AnonymousStoryRequest struct {
	Name        string    `json:"name" validate:"max=100"`
	Email       string    `json:"email" validate:"omitempty,email,max=254"`
	AreaID      uuid.UUID `json:"area_id" validate:"required"`
	Title       string    `json:"title" validate:"required,max=100"`
	Description string    `json:"description" validate:"required"`
}

type TrustedStoryRequest struct {
	AreaID      uuid.UUID `json:"area_id" validate:"required"`
	Title       string    `json:"title" validate:"required,max=100"`
	Description string    `json:"description" validate:"required"`
}

// UpdateStoryRequest changes only the fields that are present.
type UpdateStoryRequest struct {
	AreaID      *uuid.UUID `json:"area_id"`
	Title       *string    `json:"title" validate:"omitempty,max=100"`
	Description *string    `json:"description"`
}

type ModerateStoryRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=published rejected"`
}

type ListStoriesQuery struct {
	State  string
	Limit  int
	Offset int
}

type AreaResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

type StoryResponse struct {
	ID            uuid.UUID    `json:"id"`
	Author        string       `json:"author"`
	UserID        *uuid.UUID   `json:"user_id,omitempty"`
	Name          string       `json:"name,omitempty"`
	Email         string       `json:"email,omitempty"`
	Area          AreaResponse `json:"area"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	PictureURL    string       `json:"picture_url,omitempty"`
	ModerateState string       `json:"moderate_state"`
	Published     bool         `json:"published"`
	Rejected      bool         `json:"rejected"`
	ModeratedAt   *time.Time   `json:"moderated_at"`
	ModeratedBy   *uuid.UUID   `json:"moderated_by,omitempty"`
	CanEdit       bool         `json:"can_edit"`
	CreatedAt     time.Time    `json:"created_at"`
	ModifiedAt    time.Time    `json:"modified_at"`
}

type ModerateStoryResponse struct {
	Message string        `json:"message"`
	Story   StoryResponse `json:"story"`
}

package dto

import (
	"time"

	"github.com/google/uuid"
)

type AnonymousEventRequest struct {
	Name        string    `json:"name" validate:"max=100"`
	Email       string    `json:"email" validate:"omitempty,email,max=254"`
	AreaID      uuid.UUID `json:"area_id" validate:"required"`
	Title       string    `json:"title" validate:"required,max=100"`
	Description string    `json:"description"`
}

type TrustedEventRequest struct {
	AreaID      uuid.UUID `json:"area_id" validate:"required"`
	Title       string    `json:"title" validate:"required,max=100"`
	Description string    `json:"description"`
}

type EventResponse struct {
	ID            uuid.UUID    `json:"id"`
	Author        string       `json:"author"`
	UserID        *uuid.UUID   `json:"user_id,omitempty"`
	Name          string       `json:"name,omitempty"`
	Email         string       `json:"email,omitempty"`
	Area          AreaResponse `json:"area"`
	Title         string       `json:"title"`
	Description   string       `json:"description,omitempty"`
	ModerateState string       `json:"moderate_state"`
	Published     bool         `json:"published"`
	ModeratedAt   *time.Time   `json:"moderated_at"`
	ModeratedBy   *uuid.UUID   `json:"moderated_by,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	ModifiedAt    time.Time    `json:"modified_at"`
}

type ModerateEventResponse struct {
	Message string        `json:"message"`
	Event   EventResponse `json:"event"`
}

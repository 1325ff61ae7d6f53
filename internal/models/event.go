package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ilivehere/backend/internal/oops"
)

// Event is a local happening listed by a visitor or a signed-in user.
// It goes through the same moderation as a story but has no picture and
// the description is optional.
type Event struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        *uuid.UUID          `gorm:"type:uuid;index" json:"user_id,omitempty"`
	User          *User               `gorm:"foreignKey:UserID" json:"-"`
	Email         string              `gorm:"size:254" json:"email,omitempty"`
	Name          string              `gorm:"size:100" json:"name,omitempty"`
	AreaID        uuid.UUID           `gorm:"type:uuid;not null;index" json:"area_id"`
	Area          Area                `gorm:"foreignKey:AreaID" json:"-"`
	Title         string              `gorm:"size:100;not null" json:"title"`
	Description   string              `gorm:"type:text" json:"description,omitempty"`
	ModerateState ModerateState       `gorm:"size:100;not null;index" json:"moderate_state"`
	State         ModerateStateRecord `gorm:"foreignKey:ModerateState;references:Slug" json:"-"`
	ModeratedAt   *time.Time          `json:"moderated_at"`
	ModeratedByID *uuid.UUID          `gorm:"type:uuid" json:"moderated_by,omitempty"`
	ModeratedBy   *User               `gorm:"foreignKey:ModeratedByID" json:"-"`
	CreatedAt     time.Time           `json:"created_at"`
	ModifiedAt    time.Time           `gorm:"index" json:"modified_at"`
}

func NewEvent(submitter Submitter, areaID uuid.UUID, title, description string) (*Event, error) {
	event := &Event{
		AreaID:        areaID,
		Title:         title,
		Description:   description,
		ModerateState: StatePending,
	}
	if err := event.SetSubmitter(submitter); err != nil {
		return nil, err
	}
	return event, nil
}

func (e *Event) SetSubmitter(submitter Submitter) error {
	c := contact{userID: e.UserID, name: e.Name, email: e.Email}
	if err := c.set(submitter, ErrEventOwnerRequired); err != nil {
		return err
	}
	e.UserID, e.Name, e.Email = c.userID, c.name, c.email
	return nil
}

func (e *Event) Submitter() (Submitter, error) {
	return contact{userID: e.UserID, name: e.Name, email: e.Email}.submitter(ErrEventOwnerRequired)
}

func (e *Event) OwnerID() *uuid.UUID {
	if e == nil {
		return nil
	}
	return e.UserID
}

func (e *Event) IsPublished() bool {
	return e.ModerateState == StatePublished
}

func (e *Event) IsModerated() bool {
	return e != nil && e.ModeratedAt != nil
}

func (e *Event) SetModerated(outcome ModerateState, moderatorID uuid.UUID, at time.Time) error {
	if !outcome.IsOutcome() {
		return oops.Validation("%q is not a moderation outcome", outcome)
	}
	e.ModerateState = outcome
	e.ModeratedAt = &at
	e.ModeratedByID = &moderatorID
	return nil
}

func (e *Event) Validate() error {
	if _, err := e.Submitter(); err != nil {
		return err
	}
	if e.AreaID == uuid.Nil {
		return oops.Validation("area is required")
	}
	if e.Title == "" {
		return oops.Validation("title is required")
	}
	return validateModeration(e.ModerateState, e.ModeratedAt, e.ModeratedByID)
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (e *Event) BeforeSave(tx *gorm.DB) error {
	if e.ModerateState == "" {
		e.ModerateState = StatePending
	}
	return e.Validate()
}

func (e *Event) AuthorLabel() (string, error) {
	if e.Name != "" {
		return e.Name, nil
	}
	if e.User != nil && e.User.Username != "" {
		return e.User.Username, nil
	}
	return "", oops.New(errors.New("event has neither a name nor a user"), "cannot label author of event %s", e.ID)
}

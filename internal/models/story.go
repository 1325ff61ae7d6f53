package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ilivehere/backend/internal/oops"
)

// Story is a local news item submitted for moderation.
type Story struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        *uuid.UUID          `gorm:"type:uuid;index" json:"user_id,omitempty"`
	User          *User               `gorm:"foreignKey:UserID" json:"-"`
	Email         string              `gorm:"size:254" json:"email,omitempty"`
	Name          string              `gorm:"size:100" json:"name,omitempty"`
	AreaID        uuid.UUID           `gorm:"type:uuid;not null;index" json:"area_id"`
	Area          Area                `gorm:"foreignKey:AreaID" json:"-"`
	Title         string              `gorm:"size:100;not null" json:"title"`
	Description   string              `gorm:"type:text;not null" json:"description"`
	Picture       string              `gorm:"size:255" json:"picture,omitempty"`
	ModerateState ModerateState       `gorm:"size:100;not null;index" json:"moderate_state"`
	State         ModerateStateRecord `gorm:"foreignKey:ModerateState;references:Slug" json:"-"`
	ModeratedAt   *time.Time          `json:"moderated_at"`
	ModeratedByID *uuid.UUID          `gorm:"type:uuid" json:"moderated_by,omitempty"`
	ModeratedBy   *User               `gorm:"foreignKey:ModeratedByID" json:"-"`
	CreatedAt     time.Time           `gorm:"index" json:"created_at"`
	ModifiedAt    time.Time           `json:"modified_at"`
}

// NewStory builds a pending story for the given submitter.
func NewStory(submitter Submitter, areaID uuid.UUID, title, description string) (*Story, error) {
	story := &Story{
		AreaID:        areaID,
		Title:         title,
		Description:   description,
		ModerateState: StatePending,
	}
	if err := story.SetSubmitter(submitter); err != nil {
		return nil, err
	}
	return story, nil
}

func (s *Story) SetSubmitter(submitter Submitter) error {
	c := contact{userID: s.UserID, name: s.Name, email: s.Email}
	if err := c.set(submitter, ErrStoryOwnerRequired); err != nil {
		return err
	}
	s.UserID, s.Name, s.Email = c.userID, c.name, c.email
	return nil
}

// Submitter reports who sent the story in. A linked user wins over contact details.
func (s *Story) Submitter() (Submitter, error) {
	return contact{userID: s.UserID, name: s.Name, email: s.Email}.submitter(ErrStoryOwnerRequired)
}

func (s *Story) OwnerID() *uuid.UUID {
	if s == nil {
		return nil
	}
	return s.UserID
}

func (s *Story) IsPublished() bool {
	return s.ModerateState == StatePublished
}

func (s *Story) IsRejected() bool {
	return s.ModerateState == StateRejected
}

func (s *Story) IsModerated() bool {
	return s != nil && s.ModeratedAt != nil
}

// SetModerated moves the story to outcome and stamps the moderator.
func (s *Story) SetModerated(outcome ModerateState, moderatorID uuid.UUID, at time.Time) error {
	if !outcome.IsOutcome() {
		return oops.Validation("%q is not a moderation outcome", outcome)
	}
	s.ModerateState = outcome
	s.ModeratedAt = &at
	s.ModeratedByID = &moderatorID
	return nil
}

// AuthorLabel is the submitter's display name, falling back to the linked
// user's username. User must be loaded for registered submissions.
func (s *Story) AuthorLabel() (string, error) {
	if s.Name != "" {
		return s.Name, nil
	}
	if s.User != nil && s.User.Username != "" {
		return s.User.Username, nil
	}
	return "", oops.New(errors.New("story has neither a name nor a user"), "cannot label author of story %s", s.ID)
}

// Validate checks the invariants every stored story must hold.
func (s *Story) Validate() error {
	if _, err := s.Submitter(); err != nil {
		return err
	}
	if s.AreaID == uuid.Nil {
		return oops.Validation("area is required")
	}
	if s.Title == "" {
		return oops.Validation("title is required")
	}
	if s.Description == "" {
		return oops.Validation("description is required")
	}
	return validateModeration(s.ModerateState, s.ModeratedAt, s.ModeratedByID)
}

func (s *Story) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// BeforeSave runs ahead of BeforeCreate, so the pending default lives here.
func (s *Story) BeforeSave(tx *gorm.DB) error {
	if s.ModerateState == "" {
		s.ModerateState = StatePending
	}
	return s.Validate()
}

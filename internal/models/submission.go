package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ilivehere/backend/internal/oops"
)

var (
	ErrStoryOwnerRequired = oops.Validation("story requires an owning user or a name and email")
	ErrEventOwnerRequired = oops.Validation("event requires an owning user or a name and email")
)

// Submitter is either a RegisteredSubmitter or an AnonymousSubmitter.
type Submitter interface {
	submitter()
}

// RegisteredSubmitter is a signed-in ("trusted") user.
type RegisteredSubmitter struct {
	UserID uuid.UUID
}

// AnonymousSubmitter is a visitor who left a name and email address.
type AnonymousSubmitter struct {
	Name  string
	Email string
}

func (RegisteredSubmitter) submitter() {}
func (AnonymousSubmitter) submitter()  {}

// The constructors report a missing owner with ErrStoryOwnerRequired; event
// callers translate it to ErrEventOwnerRequired.
func NewRegisteredSubmitter(userID uuid.UUID) (Submitter, error) {
	if userID == uuid.Nil {
		return nil, ErrStoryOwnerRequired
	}
	return RegisteredSubmitter{UserID: userID}, nil
}

func NewAnonymousSubmitter(name, email string) (Submitter, error) {
	if name == "" || email == "" {
		return nil, ErrStoryOwnerRequired
	}
	return AnonymousSubmitter{Name: name, Email: email}, nil
}

// Submission is anything a user sends in for moderation: stories and events.
// Implementations must accept a nil receiver.
type Submission interface {
	OwnerID() *uuid.UUID
	IsModerated() bool
}

// contact holds the owner columns shared by stories and events.
type contact struct {
	userID *uuid.UUID
	name   string
	email  string
}

// set fills the owner columns, failing with missing when submitter is incomplete.
func (c *contact) set(submitter Submitter, missing error) error {
	switch sub := submitter.(type) {
	case RegisteredSubmitter:
		if sub.UserID == uuid.Nil {
			return missing
		}
		id := sub.UserID
		c.userID = &id
	case AnonymousSubmitter:
		if sub.Name == "" || sub.Email == "" {
			return missing
		}
		c.userID = nil
		c.name = sub.Name
		c.email = sub.Email
	default:
		return missing
	}
	return nil
}

// submitter reports who sent the item in. A linked user wins over contact details.
func (c contact) submitter(missing error) (Submitter, error) {
	if c.userID != nil && *c.userID != uuid.Nil {
		return RegisteredSubmitter{UserID: *c.userID}, nil
	}
	if c.name != "" && c.email != "" {
		return AnonymousSubmitter{Name: c.name, Email: c.email}, nil
	}
	return nil, missing
}

// validateModeration checks the state and stamp columns agree.
func validateModeration(state ModerateState, at *time.Time, by *uuid.UUID) error {
	if !state.Valid() {
		return oops.Validation("unknown moderate state %q", state)
	}
	if (at == nil) != (by == nil) {
		return oops.Validation("moderation time and moderator must be set together")
	}
	if (state == StatePending) != (at == nil) {
		return oops.Validation("moderated_at must be set once a submission leaves pending")
	}
	return nil
}

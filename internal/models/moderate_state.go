package models

import (
	"github.com/ilivehere/backend/internal/oops"
)

// ModerateState is the moderation outcome of a story. The set is closed;
// the moderate_states table only mirrors it for reporting and foreign keys.
type ModerateState string

const (
	StatePending   ModerateState = "pending"
	StatePublished ModerateState = "published"
	StateRejected  ModerateState = "rejected"
)

// ModerateStates lists the canonical states in display order.
var ModerateStates = []ModerateState{StatePending, StatePublished, StateRejected}

func (s ModerateState) String() string {
	return string(s)
}

func (s ModerateState) Name() string {
	switch s {
	case StatePending:
		return "Pending"
	case StatePublished:
		return "Published"
	case StateRejected:
		return "Rejected"
	}
	return "Unknown"
}

func (s ModerateState) Valid() bool {
	switch s {
	case StatePending, StatePublished, StateRejected:
		return true
	default:
		return false
	}
}

// IsOutcome reports whether s is a state a moderator can move a story into.
func (s ModerateState) IsOutcome() bool {
	return s == StatePublished || s == StateRejected
}

// LookupModerateState resolves a slug to one of the canonical states.
// Any other slug means the deployment and the code disagree.
func LookupModerateState(slug string) (ModerateState, error) {
	s := ModerateState(slug)
	if !s.Valid() {
		return "", oops.Configuration("moderate state %q is not provisioned", slug)
	}
	return s, nil
}

// ModerateStateRecord is the storage row for a ModerateState.
type ModerateStateRecord struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"size:100;not null" json:"name"`
	Slug string `gorm:"size:100;not null;uniqueIndex" json:"slug"`
}

func (ModerateStateRecord) TableName() string {
	return "moderate_states"
}

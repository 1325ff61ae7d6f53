// Package permissions decides who may view, edit and moderate stories and events.
// Every function is pure; callers load the user and submission first.
package permissions

import (
	"github.com/ilivehere/backend/internal/models"
	"github.com/ilivehere/backend/internal/oops"
)

var (
	ErrNotStaff        = oops.Permission("staff access required")
	ErrNotCreator      = oops.Permission("the user did not create the story")
	ErrCannotEdit      = oops.Permission("the story can no longer be edited by this user")
	ErrNotEventCreator = oops.Permission("the user did not create the event")
	ErrCannotEditEvent = oops.Permission("the event can no longer be edited by this user")
)

func CanModerate(user *models.User) bool {
	return user != nil && user.IsStaff
}

// IsOwner is true when user is the registered submitter. Anonymous submissions have no owner.
func IsOwner(sub models.Submission, user *models.User) bool {
	if sub == nil || user == nil {
		return false
	}
	owner := sub.OwnerID()
	return owner != nil && *owner == user.ID
}

func CanView(user *models.User, sub models.Submission) bool {
	return CanModerate(user) || IsOwner(sub, user)
}

// CanEdit lets staff edit anything. Other active users may edit their own
// submission until it has been moderated.
func CanEdit(user *models.User, sub models.Submission) bool {
	if CanModerate(user) {
		return true
	}
	if user == nil || !user.IsActive || sub == nil || sub.IsModerated() {
		return false
	}
	return IsOwner(sub, user)
}

func RequireModerate(user *models.User) error {
	if !CanModerate(user) {
		return ErrNotStaff
	}
	return nil
}

func RequireView(user *models.User, sub models.Submission) error {
	if !CanView(user, sub) {
		return notCreator(sub)
	}
	return nil
}

func RequireEdit(user *models.User, sub models.Submission) error {
	if CanEdit(user, sub) {
		return nil
	}
	if !IsOwner(sub, user) {
		return notCreator(sub)
	}
	if _, ok := sub.(*models.Event); ok {
		return ErrCannotEditEvent
	}
	return ErrCannotEdit
}

func notCreator(sub models.Submission) error {
	if _, ok := sub.(*models.Event); ok {
		return ErrNotEventCreator
	}
	return ErrNotCreator
}

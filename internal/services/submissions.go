package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ilivehere/backend/internal/models"
	"github.com/ilivehere/backend/internal/oops"
)

var (
	ErrUnknownArea      = oops.Validation("area does not exist")
	ErrAlreadyModerated = errors.New("already moderated")
)

// Clock supplies the moderation and creation timestamps.
type Clock func() time.Time

func findArea(db *gorm.DB, id uuid.UUID) (*models.Area, error) {
	if id == uuid.Nil {
		return nil, oops.Validation("area_id is required")
	}
	var area models.Area
	err := db.First(&area, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownArea
	}
	if err != nil {
		return nil, oops.New(err, "failed to load area %s", id)
	}
	return &area, nil
}

// saveError keeps invariant failures from the save hooks as validation errors.
func saveError(err error, message string) error {
	if errors.Is(err, oops.ErrValidation) {
		return err
	}
	return oops.New(err, "%s", message)
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit actions.
const (
	ActionCreated        = "created"
	ActionUpdated        = "updated"
	ActionPictureChanged = "picture_changed"
	ActionPublished      = "published"
	ActionRejected       = "rejected"
)

// Audit subjects.
const (
	SubjectStory = "story"
	SubjectEvent = "event"
)

// AuditEntry is one line of the trail kept for a story or an event.
type AuditEntry struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SubjectType string         `gorm:"size:20;not null;index:idx_audit_subject" json:"subject_type"`
	SubjectID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_audit_subject" json:"subject_id"`
	ActorID     *uuid.UUID     `gorm:"type:uuid" json:"actor_id,omitempty"`
	Action      string         `gorm:"size:50;not null;index" json:"action"`
	Message     string         `gorm:"size:500;not null" json:"message"`
	Details     datatypes.JSON `json:"details,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (e *AuditEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

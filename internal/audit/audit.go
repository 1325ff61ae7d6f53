// Package audit records what happened to each story or event and by whom.
package audit

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ilivehere/backend/internal/models"
	"github.com/ilivehere/backend/internal/oops"
)

// Entry is one change to a subject, models.SubjectStory or models.SubjectEvent.
type Entry struct {
	Subject   string
	SubjectID uuid.UUID
	ActorID   *uuid.UUID
	Action    string
	Message   string
	Details   map[string]interface{}
	At        time.Time
}

type Recorder struct {
	db *gorm.DB
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record stores the entry using tx when given, so it commits with the change itself.
func (r *Recorder) Record(tx *gorm.DB, e Entry) error {
	if tx == nil {
		tx = r.db
	}

	row := models.AuditEntry{
		SubjectType: e.Subject,
		SubjectID:   e.SubjectID,
		ActorID:     e.ActorID,
		Action:      e.Action,
		Message:     e.Message,
		CreatedAt:   e.At,
	}
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return oops.New(err, "failed to encode details of %s audit entry", e.Subject)
		}
		row.Details = datatypes.JSON(b)
	}

	if err := tx.Create(&row).Error; err != nil {
		return oops.New(err, "failed to record %s audit entry", e.Subject)
	}

	attrs := []any{e.Subject + "_id", e.SubjectID.String(), "action", e.Action}
	if e.ActorID != nil {
		attrs = append(attrs, "user_id", e.ActorID.String())
	}
	slog.Info(e.Message, attrs...)
	return nil
}

// ForSubject returns the trail of one story or event, oldest first.
func (r *Recorder) ForSubject(subject string, id uuid.UUID) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := r.db.Where("subject_type = ? AND subject_id = ?", subject, id).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, oops.New(err, "failed to load audit trail of %s %s", subject, id)
	}
	return entries, nil
}

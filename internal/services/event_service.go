package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ilivehere/backend/internal/audit"
	"github.com/ilivehere/backend/internal/dto"
	"github.com/ilivehere/backend/internal/models"
	"github.com/ilivehere/backend/internal/oops"
	"github.com/ilivehere/backend/internal/permissions"
)

var ErrEventNotFound = oops.NotFound("event not found")

// EventService lists local events. Events share the submitter rules,
// moderation and audit trail of stories.
type EventService struct {
	db       *gorm.DB
	audit    *audit.Recorder
	now      Clock
	terminal bool
}

func NewEventService(db *gorm.DB, recorder *audit.Recorder, now Clock, terminal bool) *EventService {
	if now == nil {
		now = time.Now
	}
	return &EventService{db: db, audit: recorder, now: now, terminal: terminal}
}

func (s *EventService) CreateAnonymous(req *dto.AnonymousEventRequest) (*models.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)

	submitter, err := models.NewAnonymousSubmitter(req.Name, req.Email)
	if err != nil {
		return nil, models.ErrEventOwnerRequired
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.create(submitter, nil, req.AreaID, req.Title, req.Description)
}

func (s *EventService) CreateTrusted(user *models.User, req *dto.TrustedEventRequest) (*models.Event, error) {
	if user == nil {
		return nil, models.ErrEventOwnerRequired
	}
	submitter, err := models.NewRegisteredSubmitter(user.ID)
	if err != nil {
		return nil, models.ErrEventOwnerRequired
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	event, err := s.create(submitter, &user.ID, req.AreaID, req.Title, req.Description)
	if err != nil {
		return nil, err
	}
	event.User = user
	return event, nil
}

func (s *EventService) create(submitter models.Submitter, actorID *uuid.UUID, areaID uuid.UUID, title, description string) (*models.Event, error) {
	area, err := findArea(s.db, areaID)
	if err != nil {
		return nil, err
	}

	event, err := models.NewEvent(submitter, area.ID, title, description)
	if err != nil {
		return nil, err
	}
	event.CreatedAt = s.now()
	event.ModifiedAt = event.CreatedAt

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(event).Error; err != nil {
			return saveError(err, "failed to create event")
		}
		return s.audit.Record(tx, audit.Entry{
			Subject:   models.SubjectEvent,
			SubjectID: event.ID,
			ActorID:   actorID,
			Action:    models.ActionCreated,
			Message:   fmt.Sprintf("Created event %s, %s", event.ID, event.Title),
			Details:   map[string]interface{}{"area": area.Slug},
			At:        event.CreatedAt,
		})
	})
	if err != nil {
		return nil, err
	}

	event.Area = *area
	return event, nil
}

func (s *EventService) Get(id uuid.UUID, user *models.User) (*models.Event, error) {
	event, err := s.load(s.db, id)
	if err != nil {
		return nil, err
	}
	if err := permissions.RequireView(user, event); err != nil {
		return nil, err
	}
	return event, nil
}

// List returns events least recently modified first. Staff see every event,
// everyone else only their own.
func (s *EventService) List(user *models.User, q dto.ListStoriesQuery) ([]models.Event, int64, error) {
	if user == nil {
		return nil, 0, permissions.ErrNotEventCreator
	}

	query := s.db.Model(&models.Event{})
	if !permissions.CanModerate(user) {
		query = query.Where("user_id = ?", user.ID)
	}
	if q.State != "" {
		state := models.ModerateState(q.State)
		if !state.Valid() {
			return nil, 0, oops.Validation("state must be one of: pending, published, rejected")
		}
		query = query.Where("moderate_state = ?", state)
	}

	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, oops.New(err, "failed to count events")
	}

	var events []models.Event
	err := query.Preload("User").Preload("Area").
		Order("modified_at ASC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&events).Error
	if err != nil {
		return nil, 0, oops.New(err, "failed to list events")
	}
	return events, total, nil
}

// Moderate publishes or rejects an event, following the same terminal rule as stories.
func (s *EventService) Moderate(id uuid.UUID, moderator *models.User, req *dto.ModerateStoryRequest) (*models.Event, string, error) {
	if err := permissions.RequireModerate(moderator); err != nil {
		return nil, "", err
	}
	if err := validateRequest(req); err != nil {
		return nil, "", err
	}
	outcome, err := models.LookupModerateState(req.Outcome)
	if err != nil {
		return nil, "", err
	}

	var event *models.Event
	var message string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		event, err = s.load(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
		if err != nil {
			return err
		}
		if s.terminal && event.IsModerated() {
			return ErrAlreadyModerated
		}

		at := s.now()
		if err := event.SetModerated(outcome, moderator.ID, at); err != nil {
			return err
		}
		event.ModifiedAt = at
		if err := tx.Omit(clause.Associations).Save(event).Error; err != nil {
			return saveError(err, "failed to moderate event")
		}

		action := models.ActionPublished
		message = fmt.Sprintf("Published event %s, %s", event.ID, event.Title)
		if outcome == models.StateRejected {
			action = models.ActionRejected
			message = fmt.Sprintf("Rejected event %s, %s", event.ID, event.Title)
		}
		return s.audit.Record(tx, audit.Entry{
			Subject:   models.SubjectEvent,
			SubjectID: event.ID,
			ActorID:   &moderator.ID,
			Action:    action,
			Message:   message,
			At:        at,
		})
	})
	if err != nil {
		return nil, "", err
	}
	event.ModeratedBy = moderator
	return event, message, nil
}

// Trail returns the audit trail of an event. Staff only.
func (s *EventService) Trail(id uuid.UUID, user *models.User) ([]models.AuditEntry, error) {
	if err := permissions.RequireModerate(user); err != nil {
		return nil, err
	}
	if _, err := s.load(s.db, id); err != nil {
		return nil, err
	}
	return s.audit.ForSubject(models.SubjectEvent, id)
}

func (s *EventService) load(db *gorm.DB, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := db.Preload("User").Preload("Area").First(&event, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, oops.New(err, "failed to load event %s", id)
	}
	return &event, nil
}

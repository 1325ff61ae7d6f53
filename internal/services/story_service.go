package services

import (
	"context"
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
	"github.com/ilivehere/backend/internal/storage"
)

var (
	ErrStoryNotFound = oops.NotFound("story not found")
)

type StoryServiceOptions struct {
	// Terminal makes published and rejected final. Otherwise staff may
	// moderate again, overwriting the outcome and the stamp.
	Terminal        bool
	MaxPictureBytes int
}

type StoryService struct {
	db       *gorm.DB
	audit    *audit.Recorder
	pictures storage.PictureStore
	now      Clock
	opts     StoryServiceOptions
}

func NewStoryService(db *gorm.DB, recorder *audit.Recorder, pictures storage.PictureStore, now Clock, opts StoryServiceOptions) *StoryService {
	if now == nil {
		now = time.Now
	}
	if pictures == nil {
		pictures = storage.DisabledStore{}
	}
	return &StoryService{db: db, audit: recorder, pictures: pictures, now: now, opts: opts}
}

func (s *StoryService) PictureURL(story *models.Story) string {
	return s.pictures.URL(story.Picture)
}

// CreateAnonymous stores a story sent in by a visitor who left a name and email.
func (s *StoryService) CreateAnonymous(req *dto.AnonymousStoryRequest) (*models.Story, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)

	submitter, err := models.NewAnonymousSubmitter(req.Name, req.Email)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.create(submitter, nil, req.AreaID, req.Title, req.Description)
}

// CreateTrusted stores a story owned by the signed-in user.
func (s *StoryService) CreateTrusted(user *models.User, req *dto.TrustedStoryRequest) (*models.Story, error) {
	if user == nil {
		return nil, models.ErrStoryOwnerRequired
	}
	submitter, err := models.NewRegisteredSubmitter(user.ID)
	if err != nil {
		return nil, err
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	story, err := s.create(submitter, &user.ID, req.AreaID, req.Title, req.Description)
	if err != nil {
		return nil, err
	}
	story.User = user
	return story, nil
}

func (s *StoryService) create(submitter models.Submitter, actorID *uuid.UUID, areaID uuid.UUID, title, description string) (*models.Story, error) {
	area, err := findArea(s.db, areaID)
	if err != nil {
		return nil, err
	}

	story, err := models.NewStory(submitter, area.ID, title, description)
	if err != nil {
		return nil, err
	}
	story.CreatedAt = s.now()
	story.ModifiedAt = story.CreatedAt

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(story).Error; err != nil {
			return saveError(err, "failed to create story")
		}
		return s.audit.Record(tx, audit.Entry{
			Subject:   models.SubjectStory,
			SubjectID: story.ID,
			ActorID:   actorID,
			Action:    models.ActionCreated,
			Message:   fmt.Sprintf("Created story %s, %s", story.ID, story.Title),
			Details:   map[string]interface{}{"area": area.Slug},
			At:        story.CreatedAt,
		})
	})
	if err != nil {
		return nil, err
	}

	story.Area = *area
	return story, nil
}

// Get returns a story the user is allowed to see.
func (s *StoryService) Get(id uuid.UUID, user *models.User) (*models.Story, error) {
	story, err := s.load(s.db, id)
	if err != nil {
		return nil, err
	}
	if err := permissions.RequireView(user, story); err != nil {
		return nil, err
	}
	return story, nil
}

// List returns stories newest first. Staff see every story, everyone else only their own.
func (s *StoryService) List(user *models.User, q dto.ListStoriesQuery) ([]models.Story, int64, error) {
	if user == nil {
		return nil, 0, permissions.ErrNotCreator
	}

	query := s.db.Model(&models.Story{})
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
		return nil, 0, oops.New(err, "failed to count stories")
	}

	var stories []models.Story
	err := query.Preload("User").Preload("Area").
		Order("created_at DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&stories).Error
	if err != nil {
		return nil, 0, oops.New(err, "failed to list stories")
	}
	return stories, total, nil
}

// Update changes title, description or area. Owners lose the right once the story is moderated.
func (s *StoryService) Update(id uuid.UUID, user *models.User, req *dto.UpdateStoryRequest) (*models.Story, error) {
	story, err := s.load(s.db, id)
	if err != nil {
		return nil, err
	}
	if err := permissions.RequireEdit(user, story); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	changed := []string{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, oops.Validation("title is required")
		}
		if title != story.Title {
			story.Title = title
			changed = append(changed, "title")
		}
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			return nil, oops.Validation("description is required")
		}
		if description != story.Description {
			story.Description = description
			changed = append(changed, "description")
		}
	}
	if req.AreaID != nil && *req.AreaID != story.AreaID {
		area, err := findArea(s.db, *req.AreaID)
		if err != nil {
			return nil, err
		}
		story.AreaID = area.ID
		story.Area = *area
		changed = append(changed, "area")
	}

	if len(changed) == 0 {
		return story, nil
	}

	now := s.now()
	story.ModifiedAt = now
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(story).Error; err != nil {
			return saveError(err, "failed to update story")
		}
		return s.audit.Record(tx, audit.Entry{
			Subject:   models.SubjectStory,
			SubjectID: story.ID,
			ActorID:   &user.ID,
			Action:    models.ActionUpdated,
			Message:   fmt.Sprintf("Updated story %s, %s", story.ID, story.Title),
			Details:   map[string]interface{}{"fields": changed},
			At:        now,
		})
	})
	if err != nil {
		return nil, err
	}
	return story, nil
}

// SetPicture uploads a picture and attaches it to the story. Same rights as Update.
// The upload runs last inside the transaction, so a failed save never leaves
// an object behind and a failed upload rolls the row back.
func (s *StoryService) SetPicture(ctx context.Context, id uuid.UUID, user *models.User, filename string, content []byte) (*models.Story, error) {
	story, err := s.load(s.db, id)
	if err != nil {
		return nil, err
	}
	if err := permissions.RequireEdit(user, story); err != nil {
		return nil, err
	}

	if s.opts.MaxPictureBytes > 0 && len(content) > s.opts.MaxPictureBytes {
		return nil, oops.Validation("picture must be at most %d bytes", s.opts.MaxPictureBytes)
	}
	contentType, err := storage.DetectPictureType(content)
	if err != nil {
		return nil, err
	}

	now := s.now()
	key := storage.PictureKey(now, filename)
	previous := story.Picture
	story.Picture = key
	story.ModifiedAt = now
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(story).Error; err != nil {
			return saveError(err, "failed to attach picture")
		}
		err := s.audit.Record(tx, audit.Entry{
			Subject:   models.SubjectStory,
			SubjectID: story.ID,
			ActorID:   &user.ID,
			Action:    models.ActionPictureChanged,
			Message:   fmt.Sprintf("Changed picture of story %s, %s", story.ID, story.Title),
			Details:   map[string]interface{}{"picture": key, "previous": previous, "content_type": contentType},
			At:        now,
		})
		if err != nil {
			return err
		}
		if err := s.pictures.Put(ctx, key, contentType, content); err != nil {
			if errors.Is(err, storage.ErrPicturesDisabled) {
				return oops.Validation("picture uploads are not available")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return story, nil
}

// Moderate publishes or rejects a story. Only staff may moderate; ownership does not matter.
// The returned message is the notice shown to the moderator.
func (s *StoryService) Moderate(id uuid.UUID, moderator *models.User, req *dto.ModerateStoryRequest) (*models.Story, string, error) {
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

	var story *models.Story
	var message string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		story, err = s.load(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
		if err != nil {
			return err
		}
		if s.opts.Terminal && story.IsModerated() {
			return ErrAlreadyModerated
		}

		at := s.now()
		if err := story.SetModerated(outcome, moderator.ID, at); err != nil {
			return err
		}
		story.ModifiedAt = at
		if err := tx.Omit(clause.Associations).Save(story).Error; err != nil {
			return saveError(err, "failed to moderate story")
		}

		action := models.ActionPublished
		message = fmt.Sprintf("Published story %s, %s", story.ID, story.Title)
		if outcome == models.StateRejected {
			action = models.ActionRejected
			message = fmt.Sprintf("Rejected story %s, %s", story.ID, story.Title)
		}
		return s.audit.Record(tx, audit.Entry{
			Subject:   models.SubjectStory,
			SubjectID: story.ID,
			ActorID:   &moderator.ID,
			Action:    action,
			Message:   message,
			At:        at,
		})
	})
	if err != nil {
		return nil, "", err
	}
	story.ModeratedBy = moderator
	return story, message, nil
}

// Events returns the audit trail of a story. Staff only.
func (s *StoryService) Events(id uuid.UUID, user *models.User) ([]models.AuditEntry, error) {
	if err := permissions.RequireModerate(user); err != nil {
		return nil, err
	}
	if _, err := s.load(s.db, id); err != nil {
		return nil, err
	}
	return s.audit.ForSubject(models.SubjectStory, id)
}

func (s *StoryService) ListAreas() ([]models.Area, error) {
	var areas []models.Area
	if err := s.db.Order("name ASC").Find(&areas).Error; err != nil {
		return nil, oops.New(err, "failed to list areas")
	}
	return areas, nil
}

func (s *StoryService) load(db *gorm.DB, id uuid.UUID) (*models.Story, error) {
	var story models.Story
	err := db.Preload("User").Preload("Area").First(&story, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStoryNotFound
	}
	if err != nil {
		return nil, oops.New(err, "failed to load story %s", id)
	}
	return &story, nil
}

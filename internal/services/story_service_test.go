package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ilivehere/backend/internal/audit"
	"github.com/ilivehere/backend/internal/dto"
	"github.com/ilivehere/backend/internal/models"
	"github.com/ilivehere/backend/internal/oops"
	"github.com/ilivehere/backend/internal/testutil"
)

type memoryStore struct {
	puts map[string][]byte
	err  error
}

func (m *memoryStore) Put(_ context.Context, key, _ string, content []byte) error {
	if m.err != nil {
		return m.err
	}
	if m.puts == nil {
		m.puts = map[string][]byte{}
	}
	m.puts[key] = content
	return nil
}

func (m *memoryStore) URL(key string) string {
	if key == "" {
		return ""
	}
	return "https://pictures.test/" + key
}

// steppingClock moves a minute forward on every call so creation order is visible.
func steppingClock() Clock {
	at := testutil.Now
	return func() time.Time {
		at = at.Add(time.Minute)
		return at
	}
}

func newStoryService(t *testing.T, opts StoryServiceOptions) (*StoryService, *testutil.Scenario, *memoryStore) {
	t.Helper()
	sc := testutil.NewScenario(t)
	store := &memoryStore{}
	svc := NewStoryService(sc.DB, audit.NewRecorder(sc.DB), store, testutil.Clock, opts)
	return svc, sc, store
}

func createAnonymous(t *testing.T, svc *StoryService, sc *testutil.Scenario, title string) *models.Story {
	t.Helper()
	story, err := svc.CreateAnonymous(&dto.AnonymousStoryRequest{
		Name:        "Patrick",
		Email:       "code@pkimber.net",
		AreaID:      sc.Hatherleigh.ID,
		Title:       title,
		Description: "Hot, hot, hot...",
	})
	require.NoError(t, err)
	return story
}

func createTrusted(t *testing.T, svc *StoryService, sc *testutil.Scenario, user *models.User, title string) *models.Story {
	t.Helper()
	story, err := svc.CreateTrusted(user, &dto.TrustedStoryRequest{
		AreaID:      sc.Okehampton.ID,
		Title:       title,
		Description: "Bring a torch.",
	})
	require.NoError(t, err)
	return story
}

func TestCreateAnonymous(t *testing.T) {
	svc, sc, _ := newStoryService(t, StoryServiceOptions{})

	story := createAnonymous(t, svc, sc, "Chilli Night")
	assert.Equal(t, models.StatePending, story.ModerateState)
	assert.Nil(t, story.UserID)
	assert.Nil(t, story.ModeratedAt)
	assert.Equal(t, testutil.Now, story.CreatedAt)
	assert.Equal(t, testutil.Now, story.ModifiedAt)
	assert.Equal(t, "hatherleigh", story.Area.Slug)

	label, err := story.AuthorLabel()
	require.NoError(t, err)
	assert.Equal(t, "Patrick", label)

	var stored models.Story
	require.NoError(t, sc.DB.First(&stored, "id = ?", story.ID).Error)
	assert.Equal(t, "Chilli Night", stored.Title)
	assert.Equal(t, models.StatePending, stored.ModerateState)

	events, err := svc.Events(story.ID, sc.Staff)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.ActionCreated, events[0].Action)
	assert.Nil(t, events[0].ActorID)
}

func TestCreateAnonymousRequiresSubmitter(t *testing.T) {
	svc, sc, _ := newStoryService(t, StoryServiceOptions{})

	cases := []struct {
		name  string
		who   string
		email string
	}{
		{"no name or email", "", ""},
		{"name only", "Patrick", ""},
		{"email only", "", "code@pkimber.net"},
		{"blank name", "   ", "code@pkimber.net"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateAnonymous(&dto.AnonymousStoryRequest{
				Name:        tc.who,
				Email:       tc.email,
				AreaID:      sc.Hatherleigh.ID,
				Title:       "Chilli Night",
				Description: "Hot, hot, hot...",
			})
			assert.ErrorIs(t, err, oops.ErrValidation)
			assert.ErrorIs(t, err, models.ErrStoryOwnerRequired)
		})
	}

	var count int64
	require.NoError(t, sc.DB.Model(&models.Story{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateAnonymousValidation(t *testing.T) {
	svc, sc, _ := newStoryService(t, StoryServiceOptions{})

	_, err := svc.CreateAnonymous(&dto.AnonymousStoryRequest{
		Name:        "Patrick",
		Email:       "not-an-email",
		AreaID:      sc.Hatherleigh.ID,
		Title:       "Chilli Night",
		Description: "Hot, hot, hot...",
	})
	assert.ErrorIs(t, err, oops.ErrValidation)
	assert.Contains(t, err.Error(), "email")

	_, err = svc.CreateAnonymous(&dto.AnonymousStoryRequest{
		Name:        "Patrick",
		Email:       "code@pkimber.net",
		AreaID:      sc.Hatherleigh.ID,
		Title:       "  ",
		Description: "Hot, hot, hot...",
	})
	assert.ErrorIs(t, err, oops.ErrValidation)
	assert.Contains(t, err.Error(), "title")

	_, err = svc.CreateAnonymous(&dto.AnonymousStoryRequest{
		Name:        "Patrick",
		Email:       "code@pkimber.net",
		AreaID:      uuid.New(),
		Title:       "Chilli Night",
		Description: "Hot, hot, hot...",
	})
	assert.ErrorIs(t, err, ErrUnknownArea)
}

func TestCreateTrusted(t *testing.T) {
	svc, sc, _ := newStoryService(t, StoryServiceOptions{})

	story := createTrusted(t, svc, sc, sc.Web, "Bonfire")
	require.NotNil(t, story.UserID)
	assert.Equal(t, sc.Web.ID, *story.UserID)
	assert.Empty(t, story.Name)
	assert.Equal(t, models.StatePending, story.ModerateState)

	label, err := story.AuthorLabel()
	require.NoError(t, err)
	assert.Equal(t, "web", label)

	_, err = svc.CreateTrusted(nil, &dto.TrustedStoryRequest{
		AreaID:      sc.Okehampton.ID,
		Title:       "Bonfire",
		Description: "Bring a torch.",
	})
	assert.ErrorIs(t, err, models.ErrStoryOwnerRequired)
}

func TestGetStory(t *testing.T) {
	svc, sc, _ := newStoryService(t, StoryServiceOptions{})
	story := createTrusted(t, svc, sc, sc.Web, "Bonfire")

	got, err := svc.Get(story.ID, sc.Web)
	require.NoError(t, err)
	assert.Equal(t, "Bonfire", got.Title)
	require.NotNil(t, got.User)
	assert.Equal(t, "web", got.User.Username)

	_, err = svc.Get(story.ID, sc.Staff)
	assert.NoError(t, err)

	_, err = svc.Get(story.ID, sc.Contractor)
	assert.ErrorIs(t, err, oops.ErrPermission)

	_, err = svc.Get(uuid.New(), sc.Staff)
	assert.ErrorIs(t, err, oops.ErrNotFound)
}

func TestListStories(t *testing.T) {
	sc := testutil.NewScenario(t)
	svc := NewStoryService(sc.DB, audit.NewRecorder(sc.DB), nil, steppingClock(), StoryServiceOptions{})

	first := createTrusted(t, svc, sc, sc.Web, "First")
	createTrusted(t, svc, sc, sc.Contractor, "Second")
	third := createTrusted(t, svc, sc, sc.Web, "Third")
	createAnonymous(t, svc, sc, "Chilli Night")

	t.Run("staff see every story newest first", func(t *testing.T) {
		stories, total, err := svc.List(sc.Staff, dto.ListStoriesQuery{})
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)
		require.Len(t, stories, 4)
		assert.Equal(t, "Chilli Night", stories[0].Title)
		assert.Equal(t, "First", stories[3].Title)
	})

	t.Run("users see their own", func(t *testing.T) {
		stories, total, err := svc.List(sc.Web, dto.ListStoriesQuery{})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		require.Len(t, stories, 2)
		assert.Equal(t, third.ID, stories[0].ID)
		assert.Equal(t, first.ID, stories[1].ID)
	})

	t.Run("paging", func(t *testing.T) {
		stories, total, err := svc.List(sc.Staff, dto.ListStoriesQuery{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)
		require.Len(t, stories, 1)
		assert.Equal(t, "Third", stories[0].Title)
	})

	t.Run("state filter", func(t *testing.T) {
		_, _, err := svc.Moderate(first.ID, sc.Staff, &dto.ModerateStoryRequest{Outcome: "published"})
		require.NoError(t, err)

		stories, total, err := svc.List(sc.Staff, dto.ListStoriesQuery{State: "published"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, stories, 1)
		assert.Equal(t, first.ID, stories[0].ID)

		_, _, err = svc.List(sc.Staff, dto.ListStoriesQuery{State: "archived"})
		assert.ErrorIs(t, err, oops.ErrValidation)
	})
}

func TestUpdateStory(t *testing.T) {
	sc := testutil.NewScenario(t)
	svc := NewStoryService(sc.DB, audit.NewRecorder(sc.DB), nil, steppingClock(), StoryServiceOptions{})
	story := createTrusted(t, svc, sc, sc.Web, "Bonfire")

	title := "Bonfire Night"
	updated, err := svc.Update(story.ID, sc.Web, &dto.UpdateStoryRequest{Title: &title, AreaID: &sc.Hatherleigh.ID})
	require.NoError(t, err)
	assert.Equal(t, "Bonfire Night", updated.Title)
	assert.Equal(t, sc.Hatherleigh.ID, updated.AreaID)

	_, err = svc.Update(story.ID, sc.Contractor, &dto.UpdateStoryRequest{Title: &title})
	assert.ErrorIs(t, err, oops.ErrPermission)

	blank := " "
	_, err = svc.Update(story.ID, sc.Web, &dto.UpdateStoryRequest{Description: &blank})
	assert.ErrorIs(t, err, oops.ErrValidation)

	_, _, err = svc.Moderate(story.ID, sc.Staff, &dto.ModerateStoryRequest{Outcome: "published"})
	require.NoError(t, err)

	late := "Too late"
	_, err = svc.Update(story.ID, sc.Web, &dto.UpdateStoryRequest{Title: &late})
	assert.ErrorIs(t, err, oops.ErrPermission)

	staffTitle := "Bonfire Night, corrected"
	updated, err = svc.Update(story.ID, sc.Staff, &dto.UpdateStoryRequest{Title: &staffTitle})
	require.NoError(t, err)
	assert.Equal(t, staffTitle, updated.Title)
	assert.True(t, updated.IsPublished())

	events, err := svc.Events(story.ID, sc.Staff)
	require.NoError(t, err)
	actions := []string{}
	for _, ev := range events {
		actions = append(actions, ev.Action)
	}
	assert.Equal(t, []string{models.ActionCreated, models.ActionUpdated, models.ActionPublished, models.ActionUpdated}, actions)
}

func TestUpdateChecksPermissionFirst(t *testing.T) {
	svc, sc, _ := newStoryService(t, StoryServiceOptions{})
	story := createTrusted(t, svc, sc, sc.Web, "Bonfire")

	tooLong := strings.Repeat("x", 101)
	_, err := svc.Update(story.ID, sc.Contractor, &dto.UpdateStoryRequest{Title: &tooLong})
	assert.ErrorIs(t, err, oops.ErrPermission)
	assert.False(t, errors.Is(err, oops.ErrValidation))

	_, err = svc.Update(story.ID, sc.Web, &dto.UpdateStoryRequest{Title: &tooLong})
	assert.ErrorIs(t, err, oops.ErrValidation)
}

func TestModifiedAtFollowsClock(t *testing.T) {
	sc := testutil.NewScenario(t)
	clock := steppingClock()
	svc := NewStoryService(sc.DB, audit.NewRecorder(sc.DB), &memoryStore{}, clock, StoryServiceOptions{})
	story := createTrusted(t, svc, sc, sc.Web, "Bonfire")
	created := testutil.Now.Add(time.Minute)

	stored := func() models.Story {
		var s models.Story
		require.NoError(t, sc.DB.First(&s, "id = ?", story.ID).Error)
		return s
	}
	s := stored()
	assert.True(t, created.Equal(s.CreatedAt))
	assert.True(t, created.Equal(s.ModifiedAt))

	title := "Bonfire Night"
	_, err := svc.Update(story.ID, sc.Web, &dto.UpdateStoryRequest{Title: &title})
	require.NoError(t, err)
	s = stored()
	assert.True(t, created.Add(time.Minute).Equal(s.ModifiedAt))
	assert.True(t, created.Equal(s.CreatedAt))

	_, err = svc.SetPicture(context.Background(), story.ID, sc.Web, "bonfire.png", pngHeader)
	require.NoError(t, err)
	assert.True(t, created.Add(2*time.Minute).Equal(stored().ModifiedAt))

	moderated, _, err := svc.Moderate(story.ID, sc.Staff, &dto.ModerateStoryRequest{Outcome: "published"})
	require.NoError(t, err)
	s = stored()
	assert.True(t, created.Add(3*time.Minute).Equal(s.ModifiedAt))
	assert.True(t, moderated.ModeratedAt.Equal(s.ModifiedAt))
	assert.False(t, s.ModifiedAt.Before(s.CreatedAt))
}

func TestModerateStory(t *testing.T) {
	svc, sc, _ := newStoryService(t, StoryServiceOptions{})
	story := createAnonymous(t, svc, sc, "Chilli Night")

	t.Run("users cannot moderate", func(t *testing.T) {
		_, _, err := svc.Moderate(story.ID, sc.Web, &dto.ModerateStoryRequest{Outcome: "published"})
		assert.ErrorIs(t, err, oops.ErrPermission)

		_, _, err = svc.Moderate(story.ID, nil, &dto.ModerateStoryRequest{Outcome: "published"})
		assert.ErrorIs(t, err, oops.ErrPermission)
	})

	t.Run("pending is not an outcome", func(t *testing.T) {
		_, _, err := svc.Moderate(story.ID, sc.Staff, &dto.ModerateStoryRequest{Outcome: "pending"})
		assert.ErrorIs(t, err, oops.ErrValidation)
	})

	t.Run("missing story", func(t *testing.T) {
		_, _, err := svc.Moderate(uuid.New(), sc.Staff, &dto.ModerateStoryRequest{Outcome: "published"})
		assert.ErrorIs(t, err, oops.ErrNotFound)
	})

	t.Run("staff publish", func(t *testing.T) {
		moderated, message, err := svc.Moderate(story.ID, sc.Staff, &dto.ModerateStoryRequest{Outcome: "published"})
		require.NoError(t, err)
		assert.True(t, moderated.IsPublished())
		assert.False(t, moderated.IsRejected())
		require.NotNil(t, moderated.ModeratedAt)
		assert.True(t, testutil.Now.Equal(*moderated.ModeratedAt))
		require.NotNil(t, moderated.ModeratedByID)
		assert.Equal(t, sc.Staff.ID, *moderated.ModeratedByID)
		assert.Equal(t, "Published story "+story.ID.String()+", Chilli Night", message)

		var stored models.Story
		require.NoError(t, sc.DB.First(&stored, "id = ?", story.ID).Error)
		assert.Equal(t, models.StatePublished, stored.ModerateState)
		require.NotNil(t, stored.ModeratedAt)
		assert.True(t, testutil.Now.Equal(*stored.ModeratedAt))
	})

	t.Run("moderating again overwrites", func(t *testing.T) {
		moderated, message, err := svc.Moderate(story.ID, sc.Staff, &dto.ModerateStoryRequest{Outcome: "rejected"})
		require.NoError(t, err)
		assert.True(t, moderated.IsRejected())
		assert.Equal(t, "Rejected story "+story.ID.String()+", Chilli Night", message)
	})
}

func TestModerateTerminal(t *testing.T) {
	svc, sc, _ := newStoryService(t, StoryServiceOptions{Terminal: true})
	story := createAnonymous(t, svc, sc, "Chilli Night")

	// sqlite drops FOR UPDATE from the SQL, so look for the clause itself
	locked := false
	require.NoError(t, sc.DB.Callback().Query().Before("gorm:query").Register("test:row_lock", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Clauses["FOR"]; ok && tx.Statement.Table == "stories" {
			locked = true
		}
	}))

	_, _, err := svc.Moderate(story.ID, sc.Staff, &dto.ModerateStoryRequest{Outcome: "rejected"})
	require.NoError(t, err)

	_, _, err = svc.Moderate(story.ID, sc.Staff, &dto.ModerateStoryRequest{Outcome: "published"})
	assert.ErrorIs(t, err, ErrAlreadyModerated)

	var stored models.Story
	require.NoError(t, sc.DB.First(&stored, "id = ?", story.ID).Error)
	assert.Equal(t, models.StateRejected, stored.ModerateState)
	assert.True(t, locked, "moderation must lock the story row")
}

func TestEventsStaffOnly(t *testing.T) {
	svc, sc, _ := newStoryService(t, StoryServiceOptions{})
	story := createTrusted(t, svc, sc, sc.Web, "Bonfire")

	_, err := svc.Events(story.ID, sc.Web)
	assert.ErrorIs(t, err, oops.ErrPermission)

	_, err = svc.Events(uuid.New(), sc.Staff)
	assert.ErrorIs(t, err, oops.ErrNotFound)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestSetPicture(t *testing.T) {
	svc, sc, store := newStoryService(t, StoryServiceOptions{MaxPictureBytes: 64})
	story := createTrusted(t, svc, sc, sc.Web, "Bonfire")

	updated, err := svc.SetPicture(context.Background(), story.ID, sc.Web, "bonfire night.png", pngHeader)
	require.NoError(t, err)
	assert.Regexp(t, `^story/2026/10/15/[0-9a-f-]{36}/bonfire_night\.png$`, updated.Picture)
	assert.Equal(t, pngHeader, store.puts[updated.Picture])
	assert.Equal(t, "https://pictures.test/"+updated.Picture, svc.PictureURL(updated))

	_, err = svc.SetPicture(context.Background(), story.ID, sc.Web, "notes.txt", []byte("plain text notes"))
	assert.ErrorIs(t, err, oops.ErrValidation)

	_, err = svc.SetPicture(context.Background(), story.ID, sc.Web, "huge.png", append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...))
	assert.ErrorIs(t, err, oops.ErrValidation)

	_, err = svc.SetPicture(context.Background(), story.ID, sc.Contractor, "bonfire.png", pngHeader)
	assert.ErrorIs(t, err, oops.ErrPermission)
}

func TestSetPictureDisabled(t *testing.T) {
	sc := testutil.NewScenario(t)
	svc := NewStoryService(sc.DB, audit.NewRecorder(sc.DB), nil, testutil.Clock, StoryServiceOptions{})
	story := createTrusted(t, svc, sc, sc.Web, "Bonfire")

	_, err := svc.SetPicture(context.Background(), story.ID, sc.Web, "bonfire.png", pngHeader)
	assert.ErrorIs(t, err, oops.ErrValidation)
	assert.False(t, errors.Is(err, oops.ErrPermission))

	var stored models.Story
	require.NoError(t, sc.DB.First(&stored, "id = ?", story.ID).Error)
	assert.Empty(t, stored.Picture)
}

func TestSetPictureUploadFailureRollsBack(t *testing.T) {
	svc, sc, store := newStoryService(t, StoryServiceOptions{})
	story := createTrusted(t, svc, sc, sc.Web, "Bonfire")
	store.err = errors.New("bucket unreachable")

	_, err := svc.SetPicture(context.Background(), story.ID, sc.Web, "bonfire.png", pngHeader)
	assert.ErrorContains(t, err, "bucket unreachable")

	var stored models.Story
	require.NoError(t, sc.DB.First(&stored, "id = ?", story.ID).Error)
	assert.Empty(t, stored.Picture)

	events, err := svc.Events(story.ID, sc.Staff)
	require.NoError(t, err)
	for _, ev := range events {
		assert.NotEqual(t, models.ActionPictureChanged, ev.Action)
	}
}

func TestSetPictureSaveFailureSkipsUpload(t *testing.T) {
	svc, sc, store := newStoryService(t, StoryServiceOptions{})
	story := createTrusted(t, svc, sc, sc.Web, "Bonfire")

	require.NoError(t, sc.DB.Callback().Update().Before("gorm:update").Register("test:fail_update", func(tx *gorm.DB) {
		if tx.Statement.Table == "stories" {
			tx.AddError(errors.New("disk full"))
		}
	}))

	_, err := svc.SetPicture(context.Background(), story.ID, sc.Web, "bonfire.png", pngHeader)
	assert.ErrorContains(t, err, "failed to attach picture")
	assert.Empty(t, store.puts)
}

func TestSaveErrorKeepsMessage(t *testing.T) {
	err := saveError(errors.New("boom"), "failed 100% of saves")
	assert.EqualError(t, err, "failed 100% of saves: boom")

	invalid := oops.Validation("title is required")
	assert.Same(t, invalid, saveError(invalid, "failed to save"))
}

func TestListAreas(t *testing.T) {
	svc, _, _ := newStoryService(t, StoryServiceOptions{})
	areas, err := svc.ListAreas()
	require.NoError(t, err)
	require.Len(t, areas, 2)
	assert.Equal(t, "Hatherleigh", areas[0].Name)
	assert.Equal(t, "Okehampton", areas[1].Name)
}

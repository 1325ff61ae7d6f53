package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilivehere/backend/internal/oops"
)

func TestNewStoryRequiresOwner(t *testing.T) {
	areaID := uuid.New()

	t.Run("anonymous with name and email", func(t *testing.T) {
		sub, err := NewAnonymousSubmitter("Patrick", "code@pkimber.net")
		require.NoError(t, err)
		story, err := NewStory(sub, areaID, "Chilli Night", "Hot, hot, hot...")
		require.NoError(t, err)
		assert.Equal(t, StatePending, story.ModerateState)
		assert.Nil(t, story.ModeratedAt)
		assert.Nil(t, story.UserID)
		assert.NoError(t, story.Validate())
	})
	t.Run("anonymous missing email", func(t *testing.T) {
		_, err := NewAnonymousSubmitter("Patrick", "")
		assert.True(t, errors.Is(err, oops.ErrValidation))
		assert.EqualError(t, err, "story requires an owning user or a name and email")
	})
	t.Run("anonymous missing name", func(t *testing.T) {
		_, err := NewAnonymousSubmitter("", "code@pkimber.net")
		assert.True(t, errors.Is(err, ErrStoryOwnerRequired))
	})
	t.Run("registered", func(t *testing.T) {
		userID := uuid.New()
		sub, err := NewRegisteredSubmitter(userID)
		require.NoError(t, err)
		story, err := NewStory(sub, areaID, "Market fire", "The market is on fire")
		require.NoError(t, err)
		require.NotNil(t, story.UserID)
		assert.Equal(t, userID, *story.UserID)
	})
	t.Run("registered without id", func(t *testing.T) {
		_, err := NewRegisteredSubmitter(uuid.Nil)
		assert.True(t, errors.Is(err, ErrStoryOwnerRequired))
	})
	t.Run("nil submitter", func(t *testing.T) {
		_, err := NewStory(nil, areaID, "Title", "Description")
		assert.True(t, errors.Is(err, ErrStoryOwnerRequired))
	})
}

func TestStoryValidate(t *testing.T) {
	valid := func() *Story {
		return &Story{
			Name:          "Patrick",
			Email:         "code@pkimber.net",
			AreaID:        uuid.New(),
			Title:         "Chilli Night",
			Description:   "Hot, hot, hot...",
			ModerateState: StatePending,
		}
	}

	assert.NoError(t, valid().Validate())

	s := valid()
	s.Email = ""
	assert.True(t, errors.Is(s.Validate(), ErrStoryOwnerRequired))

	s = valid()
	s.Title = ""
	assert.True(t, errors.Is(s.Validate(), oops.ErrValidation))

	s = valid()
	s.AreaID = uuid.Nil
	assert.True(t, errors.Is(s.Validate(), oops.ErrValidation))

	s = valid()
	s.ModerateState = StatePublished
	assert.Error(t, s.Validate(), "published without a stamp")

	s = valid()
	now := time.Now()
	s.ModeratedAt = &now
	assert.Error(t, s.Validate(), "stamp without moderator")

	s = valid()
	require.NoError(t, s.SetModerated(StatePublished, uuid.New(), now))
	assert.NoError(t, s.Validate())
}

func TestSetModerated(t *testing.T) {
	sub, _ := NewAnonymousSubmitter("Patrick", "code@pkimber.net")
	story, err := NewStory(sub, uuid.New(), "Chilli Night", "Hot, hot, hot...")
	require.NoError(t, err)

	staffID := uuid.New()
	at := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	require.NoError(t, story.SetModerated(StatePublished, staffID, at))
	assert.True(t, story.IsPublished())
	assert.False(t, story.IsRejected())
	assert.True(t, story.IsModerated())
	assert.Equal(t, at, *story.ModeratedAt)
	assert.Equal(t, staffID, *story.ModeratedByID)

	require.NoError(t, story.SetModerated(StateRejected, staffID, at.Add(time.Hour)))
	assert.True(t, story.IsRejected())

	err = story.SetModerated(StatePending, staffID, at)
	assert.True(t, errors.Is(err, oops.ErrValidation))
}

func TestAuthorLabel(t *testing.T) {
	story := &Story{Name: "Patrick"}
	label, err := story.AuthorLabel()
	require.NoError(t, err)
	assert.Equal(t, "Patrick", label)

	userID := uuid.New()
	story = &Story{UserID: &userID, User: &User{ID: userID, Username: "web"}}
	label, err = story.AuthorLabel()
	require.NoError(t, err)
	assert.Equal(t, "web", label)

	_, err = (&Story{}).AuthorLabel()
	assert.Error(t, err)
}

func TestLookupModerateState(t *testing.T) {
	for _, slug := range []string{"pending", "published", "rejected"} {
		state, err := LookupModerateState(slug)
		require.NoError(t, err)
		assert.Equal(t, slug, state.String())
	}

	_, err := LookupModerateState("deleted")
	assert.True(t, errors.Is(err, oops.ErrConfiguration))

	assert.Equal(t, "Published", StatePublished.Name())
	assert.False(t, StatePending.IsOutcome())
	assert.True(t, StateRejected.IsOutcome())
}

package oops

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	err := Validation("story requires an owning user or a name and email")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrPermission))
	assert.Equal(t, "story requires an owning user or a name and email", err.Error())

	wrapped := fmt.Errorf("update story: %w", Permission("the user did not create the story"))
	assert.True(t, errors.Is(wrapped, ErrPermission))

	assert.True(t, errors.Is(NotFound("story not found"), ErrNotFound))
	assert.True(t, errors.Is(Configuration("missing state"), ErrConfiguration))
}

func TestNewKeepsStackAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := New(cause, "failed to save story %d", 3)

	assert.Equal(t, "failed to save story 3: connection refused", err.Error())
	assert.True(t, errors.Is(err, cause))

	var oopsErr *Error
	if assert.True(t, errors.As(err, &oopsErr)) {
		fromTest := false
		for _, frame := range oopsErr.Stack {
			if strings.HasSuffix(frame.File, "oops_test.go") {
				fromTest = true
			}
		}
		assert.True(t, fromTest, "stack should include the caller")
	}
}

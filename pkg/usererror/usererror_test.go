package usererror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeUserError struct{ facing bool }

func (e *fakeUserError) Error() string     { return "boom" }
func (e *fakeUserError) UserFacing() bool { return e.facing }

func TestIsUserFacing(t *testing.T) {
	assert.True(t, IsUserFacing(&fakeUserError{facing: true}))
	assert.False(t, IsUserFacing(&fakeUserError{facing: false}))
	assert.False(t, IsUserFacing(errors.New("plain")))
}

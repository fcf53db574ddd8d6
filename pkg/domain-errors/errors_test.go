package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	cause := errors.New("connection reset")
	inner := Wrap(cause, CodeInternal, "rewrite posts")
	outer := fmt.Errorf("update profile: %w", Wrap(inner, CodeTimeout, "deadline"))

	assert.True(t, HasCode(outer, CodeTimeout))
	assert.True(t, HasCode(outer, CodeInternal))
	assert.False(t, HasCode(outer, CodeNotFound))
	assert.ErrorIs(t, outer, cause)
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "nothing"))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "bad entity")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

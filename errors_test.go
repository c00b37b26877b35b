package secondfactor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrategyError_UserFacingFlag(t *testing.T) {
	assert.True(t, IsUserFacing(NewUserFacingError("bad code")))
	assert.False(t, IsUserFacing(NewInternalError("corrupted context")))
	assert.False(t, IsUserFacing(errors.New("plain error")))
	assert.False(t, IsUserFacing(nil))
}

func TestStrategyError_SurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("while validating: %w", NewUserFacingError("bad code"))
	assert.True(t, IsUserFacing(wrapped))
}

func TestStrategyError_UnwrapsCause(t *testing.T) {
	err := WrapInternalError("failed deserializing context", ErrCiphertextInvalid)

	assert.ErrorIs(t, err, ErrCiphertextInvalid)
	assert.False(t, IsUserFacing(err))
	assert.Contains(t, err.Error(), "failed deserializing context")
	assert.Contains(t, err.Error(), ErrCiphertextInvalid.Error())
}

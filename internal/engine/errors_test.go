package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	err := notFound(OpOverrideContext, "no bundle for %s", "u1")
	assert.Equal(t, "OverrideContext: NOT_FOUND: no bundle for u1", err.Error())

	cause := errors.New("disk I/O error")
	err = internal(OpComputeContext, "build context bundle", cause)
	assert.Equal(t, "ComputeContext: INTERNAL: build context bundle: disk I/O error", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestError_Predicates(t *testing.T) {
	wrapped := fmt.Errorf("cli: %w", notFound(OpFilterActions, "gone"))

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsInvalidArgument(wrapped))
	assert.False(t, IsInternal(wrapped))
	assert.True(t, IsInvalidArgument(invalidArgument(OpFilterActions, "bad")))
	assert.True(t, IsInternal(internal(OpFilterActions, "boom", nil)))
	assert.False(t, IsNotFound(errors.New("plain")))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
	assert.Equal(t, ErrCodeNotFound, CodeOf(fmt.Errorf("x: %w", notFound("op", "gone"))))
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("plain")))
}

package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodes(t *testing.T) {
	t.Run("wrapped code survives fmt wrapping", func(t *testing.T) {
		base := New(CodeNotFound, "order not found")
		err := fmt.Errorf("load: %w", base)
		assert.True(t, HasCode(err, CodeNotFound))
		assert.Equal(t, CodeNotFound, CodeOf(err))
	})

	t.Run("plain errors default to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, HasCode(nil, CodeInternal))
	})

	t.Run("wrap keeps cause for errors.Is", func(t *testing.T) {
		cause := errors.New("db down")
		err := Wrap(cause, CodeUnavailable, "failed to load order")
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "failed to load order", MessageOf(err))
		assert.Nil(t, Wrap(nil, CodeInternal, "ignored"))
	})
}

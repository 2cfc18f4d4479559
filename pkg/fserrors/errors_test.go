package fserrors

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	t.Run("WithPath", func(t *testing.T) {
		err := New(NotFound, "file does not exist").WithPath("docs/a.txt")
		assert.Equal(t, "not found: file does not exist: docs/a.txt", err.Error())
	})

	t.Run("WithCause", func(t *testing.T) {
		err := Wrap(Internal, io.ErrUnexpectedEOF, "read failed")
		assert.Contains(t, err.Error(), "internal error: read failed")
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}

func TestCategoryMatching(t *testing.T) {
	err := fmt.Errorf("resolve: %w", New(PermissionDenied, "directory %q not found", "x"))

	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, PermissionDenied, CodeOf(err))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, Code(0), CodeOf(nil))
	assert.Equal(t, Internal, CodeOf(errors.New("disk on fire")))
	assert.Equal(t, InvalidPath, CodeOf(New(InvalidPath, "traversal")))
}

package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{ErrNotFound, "NOT_FOUND"},
		{ErrForbidden, "FORBIDDEN"},
		{ErrPermissionDenied, "PERMISSION_DENIED"},
		{ErrBadInput, "BAD_INPUT"},
		{ErrFileExists, "FILE_EXISTS"},
		{ErrDuplicatePermission, "DUPLICATE_PERMISSION"},
		{ErrCycle, "CYCLE"},
		{ErrGone, "GONE"},
		{ErrUnauthorized, "UNAUTHORIZED"},
		{ErrInternal, "INTERNAL_ERROR"},
		{errors.New("something else"), "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, CodeOf(tt.err))
	}
}

func TestCodeOfWrappedError(t *testing.T) {
	err := fmt.Errorf("%w: folder name is required", ErrBadInput)
	assert.Equal(t, "BAD_INPUT", CodeOf(err))
}

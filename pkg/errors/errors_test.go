package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCauseAndCode(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeStorageError, "failed to load question", cause)

	require.EqualError(t, err, "failed to load question: connection refused")
	require.ErrorIs(t, err, cause)
	require.True(t, IsCode(err, CodeStorageError))
	require.False(t, IsCode(err, CodeNotFound))
}

func TestCodeOfFindsWrappedAppError(t *testing.T) {
	err := fmt.Errorf("handler: %w", Invalid("query cannot be empty"))

	require.Equal(t, CodeInvalidInput, CodeOf(err))
	require.Equal(t, "", CodeOf(errors.New("plain")))
}

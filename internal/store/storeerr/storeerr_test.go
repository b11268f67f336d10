package storeerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	err := New(NotFound, "store.Get")
	require.Equal(t, "store.Get: NotFound", err.Error())

	wrapped := Wrap(StoreFailed, "catalogue.InsertSource", errors.New("disk full"))
	require.Equal(t, "catalogue.InsertSource: StoreFailed: disk full", wrapped.Error())
}

func TestWrap_NilError(t *testing.T) {
	require.Nil(t, Wrap(Internal, "op", nil))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(Internal, "op", cause)
	require.ErrorIs(t, err, cause)
}

func TestCodeOf(t *testing.T) {
	require.Equal(t, NotFound, CodeOf(New(NotFound, "op")))
	require.Equal(t, Internal, CodeOf(errors.New("plain error")))

	wrapped := fmt.Errorf("context: %w", New(InvalidName, "op"))
	require.Equal(t, InvalidName, CodeOf(wrapped))
}

func TestCode_String(t *testing.T) {
	require.Equal(t, "NotFound", NotFound.String())
	require.Equal(t, "Unknown", Code(0).String())
}

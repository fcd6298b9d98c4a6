package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Wrap(cause, CodeInternal, "create user failed")

	require.ErrorIs(t, err, cause)
	require.True(t, IsCode(err, CodeInternal))
	require.Equal(t, "internal: create user failed: connection reset", err.Error())
}

func TestAsFindsWrappedAppError(t *testing.T) {
	inner := New(CodeNotFound, "Job post not found")
	outer := fmt.Errorf("load job: %w", inner)

	ae, ok := As(outer)
	require.True(t, ok)
	require.Equal(t, "Job post not found", ae.Message)

	_, ok = As(stderrors.New("plain"))
	require.False(t, ok)
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalid:       http.StatusBadRequest,
		CodeConflict:      http.StatusBadRequest,
		CodeAlreadyExists: http.StatusConflict,
		CodeNotFound:      http.StatusNotFound,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeForbidden:     http.StatusForbidden,
		CodeUnavailable:   http.StatusServiceUnavailable,
		CodeInternal:      http.StatusInternalServerError,
		CodeUnknown:       http.StatusInternalServerError,
	}
	for code, want := range cases {
		require.Equal(t, want, HTTPStatus(code), "code %s", code)
	}
}

func TestWithMeta(t *testing.T) {
	err := New(CodeInvalid, "bad").WithMeta("field", "email")
	require.Equal(t, "email", err.Meta["field"])
}

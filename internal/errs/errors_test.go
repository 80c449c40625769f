package errs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	plain := New(ErrKindNotFound, "schema missing")
	assert.Equal(t, "[not_found] schema missing", plain.Error())

	wrapped := Wrap(ErrKindTimeout, "fetch schemas", context.DeadlineExceeded)
	assert.Equal(t, "[timeout] fetch schemas: context deadline exceeded", wrapped.Error())
	assert.True(t, errors.Is(wrapped, context.DeadlineExceeded))
}

func TestPredicates_TraverseChain(t *testing.T) {
	err := fmt.Errorf("inspect public: %w", New(ErrKindPermissionDenied, "denied"))

	assert.True(t, IsPermissionDenied(err))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, ErrKindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, ErrKindUnknown, KindOf(nil))
}

func TestParseKind_RoundTrip(t *testing.T) {
	kinds := []ErrKind{
		ErrKindUnknown,
		ErrKindNotFound,
		ErrKindConnectionFailed,
		ErrKindTimeout,
		ErrKindQueryFailed,
		ErrKindInvalidInput,
		ErrKindPermissionDenied,
	}
	for _, k := range kinds {
		assert.Equal(t, k, ParseKind(k.String()))
	}
	assert.Equal(t, ErrKindUnknown, ParseKind("teapot"))
}

func TestHTTPMapping(t *testing.T) {
	tests := []struct {
		kind   ErrKind
		status int
	}{
		{ErrKindNotFound, http.StatusNotFound},
		{ErrKindInvalidInput, http.StatusBadRequest},
		{ErrKindPermissionDenied, http.StatusForbidden},
		{ErrKindTimeout, http.StatusGatewayTimeout},
		{ErrKindConnectionFailed, http.StatusServiceUnavailable},
		{ErrKindQueryFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			status := HTTPStatus(New(tt.kind, "x"))
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.kind, FromHTTPStatus(status))
		})
	}

	assert.Equal(t, ErrKindPermissionDenied, FromHTTPStatus(http.StatusUnauthorized))
	assert.Equal(t, ErrKindInvalidInput, FromHTTPStatus(http.StatusMethodNotAllowed))
	assert.Equal(t, ErrKindQueryFailed, FromHTTPStatus(http.StatusNotImplemented))
}

func TestBody_RoundTrip(t *testing.T) {
	b := ToBody(Wrap(ErrKindNotFound, "table users not found", errors.New("pg: no rows")))
	assert.Equal(t, "not_found", b.Error.Kind)
	assert.Equal(t, "table users not found", b.Error.Message)

	e := FromBody(404, b, nil)
	assert.True(t, IsNotFound(e))
	assert.Equal(t, "table users not found", e.Message)

	b = ToBody(errors.New("boom"))
	assert.Equal(t, Body{Error: BodyError{Kind: "unknown", Message: "internal error"}}, b)
}

func TestFromBody_FallsBackToStatus(t *testing.T) {
	e := FromBody(503, Body{}, nil)
	assert.True(t, IsConnectionFailed(e))
	assert.Equal(t, "Service Unavailable", e.Message)

	e = FromBody(499, Body{Error: BodyError{Kind: "weird"}}, nil)
	assert.True(t, IsInvalidInput(e))
	assert.Equal(t, "unexpected status 499", e.Message)
}

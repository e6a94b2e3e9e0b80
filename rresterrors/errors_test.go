package rresterrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigError(t *testing.T) {
	t.Run("Error message with all fields", func(t *testing.T) {
		err := &ConfigError{
			Option:  "responses",
			Value:   []string{"200", "201"},
			Message: "only one success status code is allowed",
			Cause:   errors.New("underlying"),
		}
		assert.Equal(t, "configuration error for responses (value: [200 201]): only one success status code is allowed: underlying", err.Error())
	})

	t.Run("Error message with minimal fields", func(t *testing.T) {
		assert.Equal(t, "configuration error", (&ConfigError{}).Error())
	})

	t.Run("Unwrap returns cause", func(t *testing.T) {
		cause := errors.New("underlying")
		err := &ConfigError{Cause: cause}
		assert.ErrorIs(t, err, cause)
	})

	t.Run("Is matches ErrConfig", func(t *testing.T) {
		err := fmt.Errorf("register: %w", &ConfigError{Message: "x"})
		assert.ErrorIs(t, err, ErrConfig)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestTypedErrorsMatchSentinels(t *testing.T) {
	batch := []Error{New("a is required", KindRequired)}

	tests := []struct {
		name     string
		err      error
		sentinel error
		status   int
	}{
		{"invalid parameter", &InvalidParameterError{Errors: batch}, ErrInvalidParameter, http.StatusUnprocessableEntity},
		{"invalid json", &InvalidJSONError{Errors: batch}, ErrInvalidJSON, http.StatusBadRequest},
		{"invalid xml", &InvalidXMLError{Errors: batch}, ErrInvalidXML, http.StatusBadRequest},
		{"invalid request body", &InvalidRequestBodyError{Errors: batch}, ErrInvalidRequestBody, http.StatusUnprocessableEntity},
		{"invalid response body", &InvalidResponseBodyError{Errors: batch}, ErrInvalidResponseBody, http.StatusInternalServerError},
		{"unsupported media type", &UnsupportedMediaTypeError{ContentType: "text/plain"}, ErrUnsupportedMediaType, http.StatusUnsupportedMediaType},
		{"not acceptable", &NotAcceptableError{Accept: "text/html"}, ErrNotAcceptable, http.StatusNotAcceptable},
		{"access denied", &AccessDeniedError{Protocol: "http"}, ErrAccessDenied, http.StatusForbidden},
		{"not found", &NotFoundError{Path: "/x"}, ErrNotFound, http.StatusNotFound},
		{"method not allowed", &MethodNotAllowedError{Method: "DELETE"}, ErrMethodNotAllowed, http.StatusMethodNotAllowed},
		{"body too large", &BodyTooLargeError{Limit: 10}, ErrBodyTooLarge, http.StatusRequestEntityTooLarge},
		{"config", &ConfigError{}, ErrConfig, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("serve: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Equal(t, tt.status, StatusCode(wrapped))
		})
	}
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusCode(nil))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("boom")))
}

func TestList(t *testing.T) {
	batch := []Error{
		New("title is required", KindRequired),
		New("artist is required", KindRequired),
	}
	err := fmt.Errorf("body: %w", &InvalidRequestBodyError{Errors: batch})

	got := List(err)
	require.Len(t, got, 2)
	assert.Equal(t, batch, got)
	assert.Nil(t, List(errors.New("plain")))
	assert.Nil(t, List(&NotFoundError{}))
}

func TestErrorMessages(t *testing.T) {
	t.Run("summary counts extra errors", func(t *testing.T) {
		err := &InvalidParameterError{Errors: []Error{
			New("a is required", KindRequired),
			New("b is not a boolean", KindType),
			New("c is required", KindRequired),
		}}
		assert.Equal(t, "invalid parameter: a is required (and 2 more)", err.Error())
	})

	t.Run("response body names its format", func(t *testing.T) {
		err := &InvalidResponseBodyError{Format: "json", Errors: []Error{New("Data is not valid", KindUnknown)}}
		assert.Equal(t, "invalid JSON response body: Data is not valid", err.Error())
	})

	t.Run("method not allowed lists allowed methods", func(t *testing.T) {
		err := &MethodNotAllowedError{Method: "PUT", Path: "/songs", Allowed: []string{"GET", "POST"}}
		assert.Equal(t, "method PUT not allowed on /songs (allow: GET, POST)", err.Error())
	})

	t.Run("negotiation errors list available values", func(t *testing.T) {
		err := &NotAcceptableError{Accept: "text/html", Available: []string{"Application/JSON"}}
		assert.Equal(t, "not acceptable: text/html (available: application/json)", err.Error())
	})
}

func TestErrorValue(t *testing.T) {
	e := Newf(KindMinLength, &Context{Field: "title", Constraint: 3}, "The field %s must be at least %d characters long", "title", 3)
	assert.Equal(t, "[min-length] The field title must be at least 3 characters long", e.String())
	assert.True(t, HasKind([]Error{e}, KindMinLength))
	assert.False(t, HasKind([]Error{e}, KindMaxLength))
	assert.Equal(t, []string{e.Message}, Messages([]Error{e}))
}

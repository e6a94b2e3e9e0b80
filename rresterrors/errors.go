// Package rresterrors provides the error taxonomy for rrest.
//
// Validation failures are reported as ordered batches of [Error] values,
// each classified by an [ErrorKind]. Batches travel inside typed errors, one
// type per failure category, so callers can distinguish a malformed body from
// a well-formed body of the wrong shape, a client error from a handler
// contract violation, and a per-request failure from a configuration defect.
//
// # Error Categories
//
//   - ConfigError: fatal registration-time defects (ambiguous success status, unknown format)
//   - NotAcceptableError, UnsupportedMediaTypeError, AccessDeniedError: negotiation failures
//   - InvalidParameterError: accumulated parameter failures
//   - InvalidJSONError, InvalidXMLError: malformed request bodies
//   - InvalidRequestBodyError: well-formed request bodies violating their schema
//   - InvalidResponseBodyError: handler output violating its declared schema
//   - NotFoundError, MethodNotAllowedError: route resolution failures
//   - BodyTooLargeError: request bodies over the configured limit
//
// # Usage
//
//	if err := endpoint.Serve(ctx, req); err != nil {
//	    var paramErr *rresterrors.InvalidParameterError
//	    if errors.As(err, &paramErr) {
//	        for _, e := range paramErr.Errors {
//	            log.Println(e.Code, e.Message)
//	        }
//	    }
//	    w.WriteHeader(rresterrors.StatusCode(err))
//	}
package rresterrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrConfig indicates an invalid configuration or spec defect.
	ErrConfig = errors.New("configuration error")

	// ErrInvalidParameter indicates one or more parameters failed validation.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidJSON indicates a body that is not valid JSON.
	ErrInvalidJSON = errors.New("invalid json")

	// ErrInvalidXML indicates a body that is not well-formed XML.
	ErrInvalidXML = errors.New("invalid xml")

	// ErrInvalidRequestBody indicates a request body that violates its schema.
	ErrInvalidRequestBody = errors.New("invalid request body")

	// ErrInvalidResponseBody indicates a response body that violates its schema.
	ErrInvalidResponseBody = errors.New("invalid response body")

	// ErrUnsupportedMediaType indicates a rejected Content-Type.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrNotAcceptable indicates no declared response type satisfies Accept.
	ErrNotAcceptable = errors.New("not acceptable")

	// ErrAccessDenied indicates a rejected transport protocol.
	ErrAccessDenied = errors.New("access denied")

	// ErrNotFound indicates no resource matches the request path.
	ErrNotFound = errors.New("not found")

	// ErrMethodNotAllowed indicates the resource does not declare the method.
	ErrMethodNotAllowed = errors.New("method not allowed")

	// ErrBodyTooLarge indicates a request body over the configured limit.
	ErrBodyTooLarge = errors.New("request body too large")
)

// Phase tells whether a body failed to parse or failed its schema.
type Phase string

// Body validation phases.
const (
	PhaseNone   Phase = ""
	PhaseParse  Phase = "parse"
	PhaseSchema Phase = "schema"
)

// ConfigError represents an invalid configuration or spec defect detected
// at registration time. It is never produced while serving a request.
type ConfigError struct {
	// Option is the name of the problematic setting or spec element
	Option string
	// Value is the invalid value that was provided (may be nil)
	Value any
	// Message describes the configuration error
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *ConfigError) Error() string {
	msg := "configuration error"
	if e.Option != "" {
		msg += " for " + e.Option
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// StatusCode returns 500.
func (e *ConfigError) StatusCode() int {
	return http.StatusInternalServerError
}

// InvalidParameterError carries every parameter failure of a request.
type InvalidParameterError struct {
	Errors []Error
}

// Error returns a human-readable error message.
func (e *InvalidParameterError) Error() string {
	return summarize("invalid parameter", e.Errors)
}

// Is reports whether target matches this error type.
func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// StatusCode returns 422.
func (e *InvalidParameterError) StatusCode() int {
	return http.StatusUnprocessableEntity
}

// List returns the ordered failures.
func (e *InvalidParameterError) List() []Error {
	return e.Errors
}

// InvalidJSONError reports a request body that could not be parsed as JSON.
type InvalidJSONError struct {
	Errors []Error
}

// Error returns a human-readable error message.
func (e *InvalidJSONError) Error() string {
	return summarize("invalid json", e.Errors)
}

// Is reports whether target matches this error type.
func (e *InvalidJSONError) Is(target error) bool {
	return target == ErrInvalidJSON
}

// StatusCode returns 400.
func (e *InvalidJSONError) StatusCode() int {
	return http.StatusBadRequest
}

// List returns the ordered failures.
func (e *InvalidJSONError) List() []Error {
	return e.Errors
}

// InvalidXMLError reports a request body that is not well-formed XML.
type InvalidXMLError struct {
	Errors []Error
}

// Error returns a human-readable error message.
func (e *InvalidXMLError) Error() string {
	return summarize("invalid xml", e.Errors)
}

// Is reports whether target matches this error type.
func (e *InvalidXMLError) Is(target error) bool {
	return target == ErrInvalidXML
}

// StatusCode returns 400.
func (e *InvalidXMLError) StatusCode() int {
	return http.StatusBadRequest
}

// List returns the ordered failures.
func (e *InvalidXMLError) List() []Error {
	return e.Errors
}

// InvalidRequestBodyError reports a well-formed request body that violates
// its declared schema.
type InvalidRequestBodyError struct {
	// ContentType is the request content type the schema was selected for
	ContentType string
	Errors      []Error
}

// Error returns a human-readable error message.
func (e *InvalidRequestBodyError) Error() string {
	return summarize("invalid request body", e.Errors)
}

// Is reports whether target matches this error type.
func (e *InvalidRequestBodyError) Is(target error) bool {
	return target == ErrInvalidRequestBody
}

// StatusCode returns 422.
func (e *InvalidRequestBodyError) StatusCode() int {
	return http.StatusUnprocessableEntity
}

// List returns the ordered failures.
func (e *InvalidRequestBodyError) List() []Error {
	return e.Errors
}

// InvalidResponseBodyError reports handler output that does not satisfy the
// declared response schema. It is a server-side failure.
type InvalidResponseBodyError struct {
	// Format is the response format (json or xml)
	Format string
	// Phase tells whether the serialized body failed to parse or failed its schema
	Phase  Phase
	Errors []Error
}

// Error returns a human-readable error message.
func (e *InvalidResponseBodyError) Error() string {
	prefix := "invalid response body"
	if e.Format != "" {
		prefix = "invalid " + strings.ToUpper(e.Format) + " response body"
	}
	return summarize(prefix, e.Errors)
}

// Is reports whether target matches this error type.
func (e *InvalidResponseBodyError) Is(target error) bool {
	return target == ErrInvalidResponseBody
}

// StatusCode returns 500.
func (e *InvalidResponseBodyError) StatusCode() int {
	return http.StatusInternalServerError
}

// List returns the ordered failures.
func (e *InvalidResponseBodyError) List() []Error {
	return e.Errors
}

// UnsupportedMediaTypeError reports a Content-Type outside the declared set.
type UnsupportedMediaTypeError struct {
	ContentType string
	Available   []string
}

// Error returns a human-readable error message.
func (e *UnsupportedMediaTypeError) Error() string {
	msg := "unsupported media type"
	if e.ContentType != "" {
		msg += " " + e.ContentType
	}
	if len(e.Available) > 0 {
		msg += " (available: " + joinLower(e.Available) + ")"
	}
	return msg
}

// Is reports whether target matches this error type.
func (e *UnsupportedMediaTypeError) Is(target error) bool {
	return target == ErrUnsupportedMediaType
}

// StatusCode returns 415.
func (e *UnsupportedMediaTypeError) StatusCode() int {
	return http.StatusUnsupportedMediaType
}

// NotAcceptableError reports an Accept header no declared response type satisfies.
type NotAcceptableError struct {
	Accept    string
	Available []string
}

// Error returns a human-readable error message.
func (e *NotAcceptableError) Error() string {
	msg := "not acceptable"
	if e.Accept != "" {
		msg += ": " + e.Accept
	}
	if len(e.Available) > 0 {
		msg += " (available: " + joinLower(e.Available) + ")"
	}
	return msg
}

// Is reports whether target matches this error type.
func (e *NotAcceptableError) Is(target error) bool {
	return target == ErrNotAcceptable
}

// StatusCode returns 406.
func (e *NotAcceptableError) StatusCode() int {
	return http.StatusNotAcceptable
}

// AccessDeniedError reports a request made over an undeclared protocol.
type AccessDeniedError struct {
	Protocol  string
	Available []string
}

// Error returns a human-readable error message.
func (e *AccessDeniedError) Error() string {
	msg := "access denied"
	if e.Protocol != "" {
		msg += ": protocol " + e.Protocol + " is not supported"
	}
	if len(e.Available) > 0 {
		msg += " (available: " + joinLower(e.Available) + ")"
	}
	return msg
}

// Is reports whether target matches this error type.
func (e *AccessDeniedError) Is(target error) bool {
	return target == ErrAccessDenied
}

// StatusCode returns 403.
func (e *AccessDeniedError) StatusCode() int {
	return http.StatusForbidden
}

// NotFoundError reports a path that matches no declared resource.
type NotFoundError struct {
	Method string
	Path   string
}

// Error returns a human-readable error message.
func (e *NotFoundError) Error() string {
	if e.Path == "" {
		return "not found"
	}
	return fmt.Sprintf("no route found for %q", strings.TrimSpace(e.Method+" "+e.Path))
}

// Is reports whether target matches this error type.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// StatusCode returns 404.
func (e *NotFoundError) StatusCode() int {
	return http.StatusNotFound
}

// MethodNotAllowedError reports a resource that does not declare the method.
type MethodNotAllowedError struct {
	Method  string
	Path    string
	Allowed []string
}

// Error returns a human-readable error message.
func (e *MethodNotAllowedError) Error() string {
	msg := "method not allowed"
	if e.Method != "" {
		msg = fmt.Sprintf("method %s not allowed", e.Method)
		if e.Path != "" {
			msg += " on " + e.Path
		}
	}
	if len(e.Allowed) > 0 {
		msg += " (allow: " + strings.Join(e.Allowed, ", ") + ")"
	}
	return msg
}

// Is reports whether target matches this error type.
func (e *MethodNotAllowedError) Is(target error) bool {
	return target == ErrMethodNotAllowed
}

// StatusCode returns 405.
func (e *MethodNotAllowedError) StatusCode() int {
	return http.StatusMethodNotAllowed
}

// BodyTooLargeError reports a request body over the configured limit.
type BodyTooLargeError struct {
	Limit int64
}

// Error returns a human-readable error message.
func (e *BodyTooLargeError) Error() string {
	return fmt.Sprintf("request body exceeds %d bytes", e.Limit)
}

// Is reports whether target matches this error type.
func (e *BodyTooLargeError) Is(target error) bool {
	return target == ErrBodyTooLarge
}

// StatusCode returns 413.
func (e *BodyTooLargeError) StatusCode() int {
	return http.StatusRequestEntityTooLarge
}

type statusCoder interface {
	StatusCode() int
}

type lister interface {
	List() []Error
}

// StatusCode returns the HTTP status associated with err, or 500 when err
// does not carry one. A nil error maps to 200.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// List returns the ordered failures carried by err, or nil.
func List(err error) []Error {
	var l lister
	if errors.As(err, &l) {
		return l.List()
	}
	return nil
}

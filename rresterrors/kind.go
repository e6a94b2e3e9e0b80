package rresterrors

import (
	"fmt"
	"strings"
)

// ErrorKind is the machine-readable classification of a validation failure.
type ErrorKind string

// Validation failure kinds.
const (
	KindInvalidJSON   ErrorKind = "invalid-json"
	KindInvalidXML    ErrorKind = "invalid-xml"
	KindXMLSchema     ErrorKind = "xml-schema"
	KindRequired      ErrorKind = "required"
	KindRequiredAnyOf ErrorKind = "required-anyof"
	KindUnknown       ErrorKind = "unknown"
	KindMinLength     ErrorKind = "min-length"
	KindMaxLength     ErrorKind = "max-length"
	KindMinimum       ErrorKind = "minimum"
	KindMaximum       ErrorKind = "maximum"
	KindFormat        ErrorKind = "format"
	KindType          ErrorKind = "type"
	KindEnum          ErrorKind = "enum"
	KindMinItems      ErrorKind = "min-items"
	KindMaxItems      ErrorKind = "max-items"
	KindUniqueItems   ErrorKind = "unique-items"
	KindOneOf         ErrorKind = "one-of"
	KindPattern       ErrorKind = "pattern"
)

// String returns the kind as it appears on the wire.
func (k ErrorKind) String() string {
	return string(k)
}

// Context carries the structured details of a single failure.
// Every field is optional.
type Context struct {
	// Field is the dotted path of the offending field (e.g. "album.title")
	Field string `json:"field,omitempty"`
	// Fields lists alternative fields for required-anyof failures
	Fields []string `json:"fields,omitempty"`
	// Value is the offending value as observed
	Value any `json:"currentValue,omitempty"`
	// Constraint is the violated constraint parameter (limit, pattern, allowed values)
	Constraint any `json:"constraint,omitempty"`
	// Line is the 1-based source line for XML failures
	Line int `json:"line,omitempty"`
}

// Error is a single validation failure. Errors are values and are always
// reported in ordered batches.
type Error struct {
	Message string    `json:"message"`
	Code    ErrorKind `json:"code"`
	Context *Context  `json:"context,omitempty"`
}

// New returns an Error without context.
func New(message string, code ErrorKind) Error {
	return Error{Message: message, Code: code}
}

// Newf returns an Error with a formatted message and the given context.
func Newf(code ErrorKind, ctx *Context, format string, args ...any) Error {
	return Error{Message: fmt.Sprintf(format, args...), Code: code, Context: ctx}
}

// String formats the error as "[code] message".
func (e Error) String() string {
	return "[" + string(e.Code) + "] " + e.Message
}

// Messages returns the messages of errs in order.
func Messages(errs []Error) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Message)
	}
	return out
}

// HasKind reports whether any error in errs has the given code.
func HasKind(errs []Error, kind ErrorKind) bool {
	for _, e := range errs {
		if e.Code == kind {
			return true
		}
	}
	return false
}

func summarize(prefix string, errs []Error) string {
	switch len(errs) {
	case 0:
		return prefix
	case 1:
		return prefix + ": " + errs[0].Message
	default:
		return fmt.Sprintf("%s: %s (and %d more)", prefix, errs[0].Message, len(errs)-1)
	}
}

func joinLower(values []string) string {
	return strings.ToLower(strings.Join(values, ", "))
}

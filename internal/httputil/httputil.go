// Package httputil provides HTTP status, method and media type helpers
// shared by the apispec adapters, the negotiators and the dispatcher.
package httputil

import (
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// HTTP Status Code Constants
const (
	StatusCodeLength = 3   // Standard length of HTTP status codes (e.g., "200", "404")
	MinStatusCode    = 100 // Minimum valid HTTP status code
	MaxStatusCode    = 599 // Maximum valid HTTP status code
)

// HTTP Method Constants, as spelled in spec documents.
const (
	MethodGet     = "get"
	MethodPut     = "put"
	MethodPost    = "post"
	MethodDelete  = "delete"
	MethodOptions = "options"
	MethodHead    = "head"
	MethodPatch   = "patch"
	MethodTrace   = "trace"
)

// Methods lists the document method keys in the order routes are listed.
var Methods = []string{
	MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodHead, MethodOptions, MethodTrace,
}

// IsMethod reports whether key names an HTTP operation in a spec document.
func IsMethod(key string) bool {
	switch strings.ToLower(key) {
	case MethodGet, MethodPut, MethodPost, MethodDelete, MethodOptions, MethodHead, MethodPatch, MethodTrace:
		return true
	}
	return false
}

// ParseStatusCode parses a numeric status code key such as "201". Keys
// like "default" or "2XX" are not concrete codes and are rejected.
func ParseStatusCode(code string) (int, bool) {
	code = strings.TrimSpace(code)
	if len(code) != StatusCodeLength {
		return 0, false
	}
	n, err := strconv.Atoi(code)
	if err != nil || n < MinStatusCode || n > MaxStatusCode {
		return 0, false
	}
	return n, true
}

// IsSuccessStatus reports whether code is a 2xx or 3xx status.
func IsSuccessStatus(code int) bool {
	return code >= http.StatusOK && code < http.StatusBadRequest
}

// SuccessStatuses returns the 2xx and 3xx codes among codes, in order.
func SuccessStatuses(codes []int) []int {
	var out []int
	for _, c := range codes {
		if IsSuccessStatus(c) {
			out = append(out, c)
		}
	}
	return out
}

// IsValidMediaType validates a media type string according to RFC 2045/2046.
// Handles wildcards (*/* and type/*) and prevents invalid combinations (*/subtype).
func IsValidMediaType(mediaType string) bool {
	if mediaType == "*/*" {
		return true
	}

	if strings.HasSuffix(mediaType, "/*") {
		// Check format: type/* (e.g., application/*)
		parts := strings.Split(mediaType, "/")
		if len(parts) == 2 && parts[0] != "" && parts[0] != "*" {
			return true
		}
		return false
	}

	// Use standard MIME type parser for regular types
	_, _, err := mime.ParseMediaType(mediaType)
	return err == nil
}

// MediaType returns the lower-cased media type of a Content-Type or Accept
// value with its parameters stripped. Unparseable values are returned
// lower-cased and trimmed.
func MediaType(value string) string {
	mt, _, err := mime.ParseMediaType(value)
	if err != nil {
		if i := strings.IndexByte(value, ';'); i >= 0 {
			value = value[:i]
		}
		return strings.ToLower(strings.TrimSpace(value))
	}
	return mt
}

// IsMultipart reports whether value is a multipart/form-data content type.
func IsMultipart(value string) bool {
	return strings.Contains(strings.ToLower(value), "multipart/form-data")
}

// Response and request body formats.
const (
	FormatJSON   = "json"
	FormatXML    = "xml"
	FormatCSV    = "csv"
	FormatXLSX   = "xlsx"
	FormatBinary = "binary"
)

// MediaTypeXLSX is the media type of Office Open XML workbooks.
const MediaTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// formatAliases maps media types to the format they carry.
var formatAliases = map[string]string{
	"application/json":         FormatJSON,
	"application/x-json":       FormatJSON,
	"text/json":                FormatJSON,
	"text/xml":                 FormatXML,
	"application/xml":          FormatXML,
	"application/x-xml":        FormatXML,
	"text/csv":                 FormatCSV,
	"application/csv":          FormatCSV,
	MediaTypeXLSX:              FormatXLSX,
	"application/octet-stream": FormatBinary,
}

// Format returns the body format for a content type. Structured syntax
// suffixes (+json, +xml) are honored.
func Format(contentType string) (string, bool) {
	mt := MediaType(contentType)
	if f, ok := formatAliases[mt]; ok {
		return f, true
	}
	switch {
	case strings.HasSuffix(mt, "+json"):
		return FormatJSON, true
	case strings.HasSuffix(mt, "+xml"):
		return FormatXML, true
	}
	return "", false
}

// IsStructured reports whether format is serialized and schema checked
// rather than passed through.
func IsStructured(format string) bool {
	return format == FormatJSON || format == FormatXML
}

// Package parameter provides typed, constrained descriptors for the scalar
// parameters a route declares (path, query, header and form values).
//
// A [Parameter] is built once when a spec is adapted and is immutable
// afterwards, so it can be shared by concurrent requests. Validation is a
// two step contract: [Parameter.Cast] turns the raw transport value into the
// declared Go type, then [Parameter.Check] asserts every constraint and
// returns the accumulated failures.
//
//	p, err := parameter.New("limit", parameter.TypeInteger, true,
//	    parameter.WithMinimum(1), parameter.WithMaximum(100))
//	if err != nil {
//	    return err // invalid descriptor
//	}
//	typed, errs := p.Validate("30")
//
// Pattern and date layout constraints are evaluated against the raw string;
// type and range constraints against the cast value.
package parameter

import (
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/erraggy/rrest/rresterrors"
)

// Type is the primitive type of a parameter.
type Type string

// Supported parameter types.
const (
	TypeString       Type = "string"
	TypeNumber       Type = "number"
	TypeInteger      Type = "integer"
	TypeBoolean      Type = "boolean"
	TypeDate         Type = "date"
	TypeDateTime     Type = "datetime"
	TypeDateOnly     Type = "date-only"
	TypeTimeOnly     Type = "time-only"
	TypeDateTimeOnly Type = "datetime-only"
	TypeFile         Type = "file"
)

var validTypes = []Type{
	TypeNumber,
	TypeString,
	TypeBoolean,
	TypeDate,
	TypeDateOnly,
	TypeTimeOnly,
	TypeDateTimeOnly,
	TypeDateTime,
	TypeFile,
	TypeInteger,
}

// Fixed layouts for the RAML 1.0 date types.
const (
	LayoutDateOnly     = "2006-01-02"
	LayoutTimeOnly     = "15:04:05"
	LayoutDateTimeOnly = "2006-01-02T15:04:05"
)

// DefaultDateFormat is the layout used by date and datetime parameters
// unless WithDateFormat overrides it (RFC 2616).
const DefaultDateFormat = http.TimeFormat

// Location hints where a parameter is read from.
type Location string

// Parameter locations. LocationAny searches every source.
const (
	LocationAny    Location = ""
	LocationPath   Location = "path"
	LocationQuery  Location = "query"
	LocationHeader Location = "header"
	LocationForm   Location = "form"
	LocationCookie Location = "cookie"
)

// ParseType returns the Type named by s. Matching is case-insensitive.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(validTypes, t) {
		return t, nil
	}
	names := make([]string, len(validTypes))
	for i, vt := range validTypes {
		names[i] = string(vt)
	}
	return "", fmt.Errorf("%s is not a valid type (%s)", s, strings.Join(names, ","))
}

// Parameter describes a single declared parameter.
type Parameter struct {
	name       string
	typ        Type
	required   bool
	enum       []any
	enumRaw    []string
	pattern    *regexp.Regexp
	minimum    *float64
	maximum    *float64
	dateFormat string
	location   Location
}

// Option configures a Parameter.
type Option func(*Parameter) error

// WithEnum restricts the parameter to the given values. Each value must
// cast to the parameter type.
func WithEnum(values ...string) Option {
	return func(p *Parameter) error {
		p.enumRaw = append([]string(nil), values...)
		return nil
	}
}

// WithPattern requires the raw value to match the regular expression.
func WithPattern(pattern string) Option {
	return func(p *Parameter) error {
		if pattern == "" {
			return nil
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		p.pattern = re
		return nil
	}
}

// WithMinimum sets the minimum length (string) or value (number, integer).
func WithMinimum(minimum float64) Option {
	return func(p *Parameter) error {
		p.minimum = &minimum
		return nil
	}
}

// WithMaximum sets the maximum length (string) or value (number, integer).
func WithMaximum(maximum float64) Option {
	return func(p *Parameter) error {
		p.maximum = &maximum
		return nil
	}
}

// WithDateFormat sets the Go time layout for date and datetime parameters.
func WithDateFormat(layout string) Option {
	return func(p *Parameter) error {
		if layout != "" {
			p.dateFormat = layout
		}
		return nil
	}
}

// WithLocation restricts where the parameter value is looked up.
func WithLocation(loc Location) Option {
	return func(p *Parameter) error {
		p.location = loc
		return nil
	}
}

// New creates a parameter descriptor. It fails when the type is unknown,
// the pattern does not compile, an enum value does not cast to the type,
// or minimum exceeds maximum.
func New(name string, typ Type, required bool, opts ...Option) (*Parameter, error) {
	if name == "" {
		return nil, &rresterrors.ConfigError{Option: "parameter", Message: "name cannot be empty"}
	}
	t, err := ParseType(string(typ))
	if err != nil {
		return nil, &rresterrors.ConfigError{Option: "parameter " + name, Message: err.Error()}
	}

	p := &Parameter{
		name:       name,
		typ:        t,
		required:   required,
		dateFormat: DefaultDateFormat,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, &rresterrors.ConfigError{Option: "parameter " + name, Cause: err}
		}
	}

	if p.minimum != nil && p.maximum != nil && *p.minimum > *p.maximum {
		return nil, &rresterrors.ConfigError{
			Option:  "parameter " + name,
			Message: fmt.Sprintf("minimum %s is greater than maximum %s", formatLimit(*p.minimum), formatLimit(*p.maximum)),
		}
	}

	for _, raw := range p.enumRaw {
		v, err := p.Cast(raw)
		if err != nil {
			return nil, &rresterrors.ConfigError{Option: "parameter " + name, Value: raw, Message: "enum value does not match type " + string(p.typ), Cause: err}
		}
		p.enum = append(p.enum, v)
	}

	return p, nil
}

// MustNew is like New but panics on error. Intended for tests and static
// route tables.
func MustNew(name string, typ Type, required bool, opts ...Option) *Parameter {
	p, err := New(name, typ, required, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Name returns the parameter name.
func (p *Parameter) Name() string { return p.name }

// Type returns the parameter type.
func (p *Parameter) Type() Type { return p.typ }

// Required reports whether the parameter must be present.
func (p *Parameter) Required() bool { return p.required }

// Location returns the lookup hint.
func (p *Parameter) Location() Location { return p.location }

// DateFormat returns the layout used for date and datetime values.
func (p *Parameter) DateFormat() string { return p.dateFormat }

// Enum returns the allowed values as declared.
func (p *Parameter) Enum() []string { return slices.Clone(p.enumRaw) }

// Pattern returns the configured pattern, or "".
func (p *Parameter) Pattern() string {
	if p.pattern == nil {
		return ""
	}
	return p.pattern.String()
}

// Minimum returns the configured minimum and whether it is set.
func (p *Parameter) Minimum() (float64, bool) {
	if p.minimum == nil {
		return 0, false
	}
	return *p.minimum, true
}

// Maximum returns the configured maximum and whether it is set.
func (p *Parameter) Maximum() (float64, bool) {
	if p.maximum == nil {
		return 0, false
	}
	return *p.maximum, true
}

// String returns a short description such as "limit (integer, required)".
func (p *Parameter) String() string {
	if p.required {
		return fmt.Sprintf("%s (%s, required)", p.name, p.typ)
	}
	return fmt.Sprintf("%s (%s)", p.name, p.typ)
}

// layout returns the time layout for date types.
func (p *Parameter) layout() string {
	switch p.typ {
	case TypeDateOnly:
		return LayoutDateOnly
	case TypeTimeOnly:
		return LayoutTimeOnly
	case TypeDateTimeOnly:
		return LayoutDateTimeOnly
	default:
		return p.dateFormat
	}
}

func (p *Parameter) isDate() bool {
	switch p.typ {
	case TypeDate, TypeDateTime, TypeDateOnly, TypeTimeOnly, TypeDateTimeOnly:
		return true
	}
	return false
}

func (p *Parameter) hasRange() bool {
	return p.typ == TypeString || p.typ == TypeNumber || p.typ == TypeInteger
}

func formatLimit(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// IsEmpty reports whether v counts as absent: nil, the empty string or an
// empty slice. Zero values such as false and 0 are present.
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case []string:
		return len(x) == 0
	case []any:
		return len(x) == 0
	case []byte:
		return len(x) == 0
	case time.Time:
		return x.IsZero()
	}
	return false
}

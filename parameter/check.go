package parameter

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/erraggy/rrest/rresterrors"
)

// Validate casts raw and checks every constraint. On a cast failure the raw
// value is checked as is, which yields the type error for the parameter.
func (p *Parameter) Validate(raw any) (any, []rresterrors.Error) {
	typed, err := p.Cast(raw)
	if err != nil {
		return raw, p.Check(raw, raw)
	}
	return typed, p.Check(typed, raw)
}

// AssertValue checks typed and raw and returns an
// *rresterrors.InvalidParameterError carrying every failure, or nil.
func (p *Parameter) AssertValue(typed, raw any) error {
	if errs := p.Check(typed, raw); len(errs) > 0 {
		return &rresterrors.InvalidParameterError{Errors: errs}
	}
	return nil
}

// Check asserts every constraint against the cast value typed and the raw
// transport value raw, and returns the failures in evaluation order: type,
// minimum, maximum, pattern, enum. An absent value yields a single required
// failure when the parameter is required and nothing otherwise.
func (p *Parameter) Check(typed, raw any) []rresterrors.Error {
	if raw == nil {
		raw = typed
	}
	if IsEmpty(raw) && IsEmpty(typed) {
		if p.required {
			return []rresterrors.Error{p.fail(rresterrors.KindRequired, raw, nil, "%s is required", p.name)}
		}
		return nil
	}

	var errs []rresterrors.Error

	typeOK := p.checkType(typed, raw)
	if !typeOK {
		errs = append(errs, p.fail(rresterrors.KindType, raw, string(p.typ), "%s", p.typeMessage()))
	}

	if typeOK && p.hasRange() {
		errs = append(errs, p.checkRange(typed, raw)...)
	}

	if p.pattern != nil {
		s := p.patternSubject(typed, raw)
		if !p.pattern.MatchString(s) {
			errs = append(errs, p.fail(rresterrors.KindPattern, raw, p.pattern.String(),
				"%s does not match the specified pattern: %s", p.name, p.pattern.String()))
		}
	}

	if len(p.enum) > 0 && !p.inEnum(typed) {
		errs = append(errs, p.fail(rresterrors.KindEnum, raw, p.Enum(),
			"%s must be one of the following: %s", p.name, strings.Join(p.enumRaw, ", ")))
	}

	return errs
}

func (p *Parameter) checkType(typed, raw any) bool {
	switch p.typ {
	case TypeBoolean:
		_, ok := typed.(bool)
		return ok
	case TypeString:
		_, ok := typed.(string)
		return ok
	case TypeInteger:
		return isInteger(typed)
	case TypeNumber:
		_, ok := toFloat(typed)
		return ok
	case TypeFile:
		return true
	}
	if p.isDate() {
		if _, ok := typed.(time.Time); !ok {
			return false
		}
		// The raw string must honour the declared layout as well.
		if s, ok := rawString(raw); ok {
			if _, err := time.Parse(p.layout(), s); err != nil {
				return false
			}
		}
		return true
	}
	return false
}

func (p *Parameter) typeMessage() string {
	switch p.typ {
	case TypeBoolean:
		return p.name + " is not a boolean"
	case TypeString:
		return p.name + " is not a string"
	case TypeInteger:
		return p.name + " is not an integer"
	case TypeNumber:
		return p.name + " is not a number"
	case TypeTimeOnly:
		return p.name + " is not a valid time"
	}
	return p.name + " is not a valid date"
}

func (p *Parameter) checkRange(typed, raw any) []rresterrors.Error {
	var (
		size     float64
		minKind  = rresterrors.KindMinimum
		maxKind  = rresterrors.KindMaximum
		measured bool
	)
	if s, ok := typed.(string); ok {
		size = float64(utf8.RuneCountInString(s))
		minKind, maxKind = rresterrors.KindMinLength, rresterrors.KindMaxLength
		measured = true
	} else {
		size, measured = toFloat(typed)
	}
	if !measured {
		return nil
	}

	var errs []rresterrors.Error
	if p.minimum != nil && size < *p.minimum {
		errs = append(errs, p.fail(minKind, raw, *p.minimum, "%s minimum size is %s", p.name, formatLimit(*p.minimum)))
	}
	if p.maximum != nil && size > *p.maximum {
		errs = append(errs, p.fail(maxKind, raw, *p.maximum, "%s maximum size is %s", p.name, formatLimit(*p.maximum)))
	}
	return errs
}

func (p *Parameter) inEnum(typed any) bool {
	for _, allowed := range p.enum {
		if t, ok := allowed.(time.Time); ok {
			if v, ok := typed.(time.Time); ok && v.Equal(t) {
				return true
			}
			continue
		}
		if allowed == typed {
			return true
		}
	}
	return false
}

func (p *Parameter) fail(kind rresterrors.ErrorKind, value, constraint any, format string, args ...any) rresterrors.Error {
	return rresterrors.Error{
		Message: fmt.Sprintf(format, args...),
		Code:    kind,
		Context: &rresterrors.Context{Field: p.name, Value: value, Constraint: constraint},
	}
}

// patternSubject is the raw string when there is one, otherwise the cast
// value formatted the way it arrives on the wire.
func (p *Parameter) patternSubject(typed, raw any) string {
	if s, ok := rawString(raw); ok {
		return s
	}
	if t, ok := typed.(time.Time); ok && p.isDate() {
		return t.Format(p.layout())
	}
	return fmt.Sprint(typed)
}

package parameter

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// CastError reports a raw value that cannot be converted to the parameter type.
type CastError struct {
	Name  string
	Type  Type
	Value any
	Cause error
}

// Error returns a human-readable error message.
func (e *CastError) Error() string {
	msg := fmt.Sprintf("cannot cast %v to %s", e.Value, e.Type)
	if e.Name != "" {
		msg += " for parameter " + e.Name
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *CastError) Unwrap() error {
	return e.Cause
}

// Cast converts a raw transport value to the parameter type:
//
//	string                              -> string
//	integer                             -> int64 (float64 when the value has a fraction,
//	                                       an error outside the int64 range)
//	number                              -> float64
//	boolean                             -> bool ("true", "false", "1", "0")
//	date, datetime, *-only              -> time.Time
//	file                                -> unchanged
//
// Empty values are returned unchanged. Values that already have the target
// Go type pass through, so casting a hinted value is a no-op.
func (p *Parameter) Cast(raw any) (any, error) {
	if IsEmpty(raw) {
		return raw, nil
	}
	if p.typ == TypeFile {
		return raw, nil
	}

	s, ok := rawString(raw)
	if !ok {
		if p.accepts(raw) {
			return raw, nil
		}
		return raw, p.castError(raw, nil)
	}

	switch p.typ {
	case TypeString:
		return s, nil

	case TypeInteger:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err == nil {
			return i, nil
		}
		if errors.Is(err, strconv.ErrRange) {
			return raw, p.castError(raw, err)
		}
		f, err := parseFinite(s)
		if err != nil {
			return raw, p.castError(raw, err)
		}
		if f != math.Trunc(f) {
			return f, nil
		}
		// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
		if f < -(1<<63) || f >= 1<<63 {
			return raw, p.castError(raw, strconv.ErrRange)
		}
		return int64(f), nil

	case TypeNumber:
		f, err := parseFinite(s)
		if err != nil {
			return raw, p.castError(raw, err)
		}
		return f, nil

	case TypeBoolean:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return raw, p.castError(raw, nil)

	default:
		if p.isDate() {
			t, err := time.Parse(p.layout(), s)
			if err != nil {
				return raw, p.castError(raw, err)
			}
			return t, nil
		}
	}
	return raw, p.castError(raw, nil)
}

func (p *Parameter) castError(raw any, cause error) *CastError {
	return &CastError{Name: p.name, Type: p.typ, Value: raw, Cause: cause}
}

// accepts reports whether v already has the Go type the parameter casts to.
func (p *Parameter) accepts(v any) bool {
	switch p.typ {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeInteger:
		return isInteger(v)
	case TypeNumber:
		_, ok := toFloat(v)
		return ok
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	default:
		if p.isDate() {
			_, ok := v.(time.Time)
			return ok
		}
	}
	return false
}

// rawString extracts the string form of a transport value. Single element
// slices, as produced by url.Values, are unwrapped.
func rawString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []string:
		if len(x) == 1 {
			return x[0], true
		}
	case []byte:
		return string(x), true
	}
	return "", false
}

func parseFinite(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return f, nil
}

func isInteger(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Package payload validates request and response bodies against the JSON
// Schema or XML Schema declared for them and reports failures as
// rresterrors.Error values.
//
// A validator is built for one body and one schema. It validates lazily on
// first use and memoizes the outcome, so Fails, Errors, Phase and Value may
// be called in any order without repeating the work.
package payload

import (
	"fmt"
	"slices"
	"strings"

	"github.com/erraggy/rrest/internal/stringutil"
	"github.com/erraggy/rrest/jsonschema"
	"github.com/erraggy/rrest/rresterrors"
)

// converter turns one schema violation into domain errors.
type converter func(v jsonschema.Violation) []rresterrors.Error

// converters maps a JSON Schema keyword to its converter. Keywords without
// an entry fall back to unknownError.
var converters = map[string]converter{
	"required":    convertRequired,
	"anyOf":       convertAnyOf,
	"oneOf":       convertOneOf,
	"type":        convertType,
	"enum":        convertEnum,
	"format":      convertFormat,
	"pattern":     convertPattern,
	"minLength":   convertMinLength,
	"maxLength":   convertMaxLength,
	"minimum":     convertMinimum,
	"maximum":     convertMaximum,
	"minItems":    convertMinItems,
	"maxItems":    convertMaxItems,
	"uniqueItems": convertUniqueItems,
}

// Convert maps a violation to one or more errors. It never returns an
// empty slice.
func Convert(v jsonschema.Violation) []rresterrors.Error {
	if conv, ok := converters[v.Keyword]; ok {
		if errs := conv(v); len(errs) > 0 {
			return errs
		}
	}
	return []rresterrors.Error{unknownError(v)}
}

// ConvertAll converts violations in order.
func ConvertAll(vs []jsonschema.Violation) []rresterrors.Error {
	var out []rresterrors.Error
	for _, v := range vs {
		out = append(out, Convert(v)...)
	}
	return out
}

func unknownError(v jsonschema.Violation) rresterrors.Error {
	return rresterrors.Error{
		Message: "Data is not valid",
		Code:    rresterrors.KindUnknown,
		Context: &rresterrors.Context{
			Field:      field(v),
			Value:      v.Data,
			Constraint: v.Keyword,
		},
	}
}

func field(v jsonschema.Violation) string {
	return stringutil.DotPath(v.Pointer, "")
}

// single builds the context shared by the one-error converters.
func single(code rresterrors.ErrorKind, v jsonschema.Violation, format string, args ...any) []rresterrors.Error {
	ctx := &rresterrors.Context{Field: field(v), Value: v.Data, Constraint: v.Parameter}
	return []rresterrors.Error{rresterrors.Newf(code, ctx, format, args...)}
}

func convertRequired(v jsonschema.Violation) []rresterrors.Error {
	missing, _ := v.Parameter.([]string)
	out := make([]rresterrors.Error, 0, len(missing))
	for _, name := range missing {
		path := stringutil.DotPath(v.Pointer, name)
		out = append(out, rresterrors.Newf(rresterrors.KindRequired,
			&rresterrors.Context{Field: path},
			"The field %s is required", path))
	}
	return out
}

// convertAnyOf reports the union of the fields required by the
// alternatives as a single error.
func convertAnyOf(v jsonschema.Violation) []rresterrors.Error {
	subs, _ := v.Parameter.([]any)
	var fields []string
	for _, sub := range subs {
		m, _ := sub.(map[string]any)
		required, _ := m["required"].([]any)
		for _, name := range required {
			path := stringutil.DotPath(v.Pointer, fmt.Sprint(name))
			if !slices.Contains(fields, path) {
				fields = append(fields, path)
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return []rresterrors.Error{rresterrors.Newf(rresterrors.KindRequiredAnyOf,
		&rresterrors.Context{Fields: fields},
		"The field %s is required", strings.Join(fields, " or/and "))}
}

func convertOneOf(v jsonschema.Violation) []rresterrors.Error {
	ctx := &rresterrors.Context{Field: field(v), Value: v.Data}
	return []rresterrors.Error{rresterrors.Newf(rresterrors.KindOneOf, ctx,
		"The field %s don't follow any rules", ctx.Field)}
}

func convertType(v jsonschema.Violation) []rresterrors.Error {
	types, _ := v.Parameter.([]string)
	return single(rresterrors.KindType, v,
		"The type of the field %s is not valid, must be a/an %s", field(v), strings.Join(types, " or "))
}

func convertEnum(v jsonschema.Violation) []rresterrors.Error {
	allowed, _ := v.Parameter.([]any)
	values := make([]string, len(allowed))
	for i, a := range allowed {
		values[i] = fmt.Sprint(a)
	}
	return single(rresterrors.KindEnum, v,
		"The field %s must be one of this values: %s", field(v), strings.Join(values, ", "))
}

var formatMessages = map[string]string{
	"date-time": "The field %s must be a valid date, following RFC3339 (example: 2017-11-08T15:37:26+00:00)",
	"date":      "The field %s must be a valid date (example: 2017-11-08)",
	"uri":       "The field %s must be a valid URL",
	"email":     "The field %s must be a valid email",
	"ipv4":      "The field %s must be a valid ipv4",
	"ipv6":      "The field %s must be a valid ipv6",
	"hostname":  "The field %s must be a valid hostname",
	"uuid":      "The field %s must be a valid UUID",
}

func convertFormat(v jsonschema.Violation) []rresterrors.Error {
	format, _ := v.Parameter.(string)
	msg, ok := formatMessages[format]
	if !ok {
		return single(rresterrors.KindFormat, v, "Invalid format")
	}
	return single(rresterrors.KindFormat, v, msg, field(v))
}

func convertPattern(v jsonschema.Violation) []rresterrors.Error {
	return single(rresterrors.KindPattern, v, "The field %s must match the pattern %v", field(v), v.Parameter)
}

func convertMinLength(v jsonschema.Violation) []rresterrors.Error {
	return single(rresterrors.KindMinLength, v, "The field %s must be at least %v characters long", field(v), v.Parameter)
}

func convertMaxLength(v jsonschema.Violation) []rresterrors.Error {
	return single(rresterrors.KindMaxLength, v, "The field %s must be less than %v characters long", field(v), v.Parameter)
}

func convertMinimum(v jsonschema.Violation) []rresterrors.Error {
	return single(rresterrors.KindMinimum, v, "The field %s must be greater than or equal to %v", field(v), v.Parameter)
}

func convertMaximum(v jsonschema.Violation) []rresterrors.Error {
	return single(rresterrors.KindMaximum, v, "The field %s must be less than or equal to %v", field(v), v.Parameter)
}

func convertMinItems(v jsonschema.Violation) []rresterrors.Error {
	return single(rresterrors.KindMinItems, v, "The field %s must contain at least %v item(s)", field(v), v.Parameter)
}

func convertMaxItems(v jsonschema.Violation) []rresterrors.Error {
	return single(rresterrors.KindMaxItems, v, "The field %s must contain less than %v item(s)", field(v), v.Parameter)
}

func convertUniqueItems(v jsonschema.Violation) []rresterrors.Error {
	ctx := &rresterrors.Context{Field: field(v), Value: v.Data}
	return []rresterrors.Error{rresterrors.Newf(rresterrors.KindUniqueItems, ctx,
		"The field %s must not contain duplicates values", ctx.Field)}
}

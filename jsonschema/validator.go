package jsonschema

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	jschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Violation is a single schema keyword that the data failed.
type Violation struct {
	// Keyword is the failing schema keyword (e.g. "required", "minLength")
	Keyword string
	// Pointer is the JSON pointer of the offending data; "" is the root
	Pointer string
	// Parameter is the keyword value from the schema (limit, pattern, types,
	// missing property names for required, sub-schemas for anyOf/oneOf)
	Parameter any
	// Data is the offending value
	Data any
}

func (v Violation) String() string {
	ptr := v.Pointer
	if ptr == "" {
		ptr = "/"
	}
	return fmt.Sprintf("%s: %s (%v)", ptr, v.Keyword, v.Parameter)
}

// composite keywords are reported as one violation instead of their causes.
var composite = map[string]bool{
	"anyOf": true,
	"oneOf": true,
	"not":   true,
}

// exclusive limits are reported under their plain keyword. Draft 4 stores
// the bound there and flags exclusivity with a boolean.
var exclusiveBounds = map[string]string{
	"exclusiveMinimum": "minimum",
	"exclusiveMaximum": "maximum",
}

// Validate evaluates data against schema and returns every violation,
// ordered by data pointer. Data is expected in the shape produced by
// decoding JSON into an any: map[string]any, []any, float64, string, bool
// and nil.
func Validate(schema *Schema, data any) []Violation {
	if schema == nil {
		return nil
	}
	err := schema.compiled.Validate(data)
	if err == nil {
		return nil
	}
	var ve *jschema.ValidationError
	if !errors.As(err, &ve) {
		return []Violation{{Parameter: err.Error(), Data: data}}
	}

	var out []Violation
	schema.flatten(ve, data, &out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Pointer < out[j].Pointer })
	return out
}

func (s *Schema) flatten(ve *jschema.ValidationError, data any, out *[]Violation) {
	node, keyword := splitKeyword(ve.AbsoluteKeywordLocation)
	if len(ve.Causes) > 0 && !composite[keyword] {
		for _, cause := range ve.Causes {
			s.flatten(cause, data, out)
		}
		return
	}
	*out = append(*out, s.violation(node, keyword, ve.InstanceLocation, data))
}

func (s *Schema) violation(node, keyword, pointer string, data any) Violation {
	value, _ := pointerGet(data, pointer)
	param, _ := pointerGet(s.doc, node+"/"+keyword)
	if bound, ok := exclusiveBounds[keyword]; ok {
		if _, flag := param.(bool); flag {
			param, _ = pointerGet(s.doc, node+"/"+bound)
		}
		keyword = bound
	}

	v := Violation{Keyword: keyword, Pointer: pointer, Data: value}
	switch keyword {
	case "required":
		v.Parameter = missingFields(param, value)
	case "type":
		v.Parameter = stringList(param)
	case "anyOf", "oneOf", "enum":
		v.Parameter = param
	default:
		v.Parameter = integral(param)
	}
	return v
}

// splitKeyword splits an absolute keyword location ("mem:schema#/a/minLength")
// into the schema node pointer ("/a") and the keyword ("minLength"). Property
// and definition names are not keywords.
func splitKeyword(location string) (node, keyword string) {
	var ptr string
	if i := strings.LastIndexByte(location, '#'); i >= 0 {
		ptr = location[i+1:]
	}
	i := strings.LastIndexByte(ptr, '/')
	if i < 0 {
		return ptr, ""
	}
	node, keyword = ptr[:i], unescapePointer(ptr[i+1:])
	parent := node[strings.LastIndexByte(node, '/')+1:]
	switch parent {
	case "properties", "patternProperties", "definitions", "schemas":
		return ptr, ""
	}
	return node, keyword
}

func missingFields(required, value any) []string {
	names := stringList(required)
	obj, _ := value.(map[string]any)
	missing := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := obj[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// integral turns whole float64 limits back into ints so that messages read
// "50" rather than "5e+01".
func integral(v any) any {
	if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return v
}

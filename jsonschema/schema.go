// Package jsonschema compiles JSON Schema documents (draft 4 semantics, plus
// the OpenAPI nullable extension) and flattens validation failures into
// keyword records.
//
// Compilation and evaluation are done by santhosh-tekuri/jsonschema. This
// package reshapes its error tree: each [Violation] names the failing
// keyword, the JSON pointer of the offending data and the keyword parameter
// read back from the schema document, so callers can render failures in
// their own vocabulary.
package jsonschema

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	jschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// resourceURL names the in-memory resource every schema is compiled from.
// Local $ref pointers resolve against it.
const resourceURL = "mem:schema"

// Schema is a compiled JSON Schema document.
type Schema struct {
	compiled *jschema.Schema
	doc      any
}

// Compile parses a JSON Schema document. Local $ref pointers ("#",
// "#/definitions/x", "#/components/schemas/x", ...) are resolved; remote
// references are rejected.
func Compile(raw []byte) (*Schema, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("jsonschema: invalid schema document: %w", err)
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, fmt.Errorf("jsonschema: schema must be an object, got %T", doc)
	}
	doc = expandNullable(doc)

	src, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: invalid schema document: %w", err)
	}

	c := jschema.NewCompiler()
	c.Draft = jschema.Draft4
	c.LoadURL = func(u string) (io.ReadCloser, error) {
		return nil, fmt.Errorf("unsupported $ref %q: only local references are resolved", u)
	}
	if err := c.AddResource(resourceURL, bytes.NewReader(src)); err != nil {
		return nil, fmt.Errorf("jsonschema: invalid schema document: %w", err)
	}
	compiled, err := c.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: invalid schema: %w", err)
	}
	return &Schema{compiled: compiled, doc: doc}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(raw string) *Schema {
	s, err := Compile([]byte(raw))
	if err != nil {
		panic(err)
	}
	return s
}

// expandNullable rewrites {"type": "x", "nullable": true} into
// {"type": ["x", "null"]} throughout the document.
func expandNullable(node any) any {
	switch n := node.(type) {
	case map[string]any:
		for k, v := range n {
			n[k] = expandNullable(v)
		}
		if nullable, _ := n["nullable"].(bool); nullable {
			switch t := n["type"].(type) {
			case string:
				n["type"] = []any{t, "null"}
			case []any:
				if !containsString(t, "null") {
					n["type"] = append(t, "null")
				}
			}
		}
	case []any:
		for i, v := range n {
			n[i] = expandNullable(v)
		}
	}
	return node
}

func containsString(values []any, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

// pointerGet evaluates an RFC 6901 JSON pointer against a decoded document.
func pointerGet(doc any, pointer string) (any, error) {
	if pointer == "" {
		return doc, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, fmt.Errorf("invalid JSON pointer %q", pointer)
	}
	cur := doc
	for _, tok := range strings.Split(pointer[1:], "/") {
		tok = unescapePointer(tok)
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[tok]
			if !ok {
				return nil, fmt.Errorf("%q not found", tok)
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("index %q out of range", tok)
			}
			cur = node[idx]
		default:
			return nil, fmt.Errorf("cannot descend into %T at %q", cur, tok)
		}
	}
	return cur, nil
}

func unescapePointer(tok string) string {
	return strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
}

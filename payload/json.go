package payload

import (
	"errors"
	"strings"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/erraggy/rrest/jsonschema"
	"github.com/erraggy/rrest/rresterrors"
)

// JSONValidator validates one JSON body against one JSON Schema.
type JSONValidator struct {
	body   []byte
	schema string

	once   sync.Once
	err    error
	phase  rresterrors.Phase
	errors []rresterrors.Error
	value  any
}

// NewJSONValidator returns a validator for body against schema, the raw
// JSON Schema document. Nothing is parsed until the first call.
func NewJSONValidator(body []byte, schema string) *JSONValidator {
	return &JSONValidator{body: body, schema: schema}
}

// Validate runs the validation once. It returns a *rresterrors.ConfigError
// when the schema itself cannot be compiled; body failures are reported by
// Errors, not by the returned error.
func (v *JSONValidator) Validate() error {
	v.once.Do(v.run)
	return v.err
}

func (v *JSONValidator) run() {
	schema, err := compileJSONSchema(v.schema)
	if err != nil {
		v.err = err
		return
	}

	if err := json.Unmarshal(v.body, &v.value); err != nil {
		v.value = nil
		v.phase = rresterrors.PhaseParse
		v.errors = []rresterrors.Error{rresterrors.New(jsonErrorMessage(err), rresterrors.KindInvalidJSON)}
		return
	}

	if errs := ConvertAll(jsonschema.Validate(schema, v.value)); len(errs) > 0 {
		v.phase = rresterrors.PhaseSchema
		v.errors = errs
	}
}

// Fails reports whether the body is malformed or violates the schema.
func (v *JSONValidator) Fails() bool {
	return len(v.Errors()) > 0
}

// Errors returns the validation failures in order.
func (v *JSONValidator) Errors() []rresterrors.Error {
	_ = v.Validate()
	return v.errors
}

// Phase tells whether the failures come from parsing or from the schema.
// It is PhaseNone for a valid body.
func (v *JSONValidator) Phase() rresterrors.Phase {
	_ = v.Validate()
	return v.phase
}

// Value returns the decoded body, or nil when it is not valid JSON.
func (v *JSONValidator) Value() any {
	_ = v.Validate()
	return v.value
}

// Err returns the typed error for the outcome: *rresterrors.InvalidJSONError
// for a malformed body, *rresterrors.InvalidRequestBodyError for a schema
// violation, the compile error for a broken schema, or nil.
func (v *JSONValidator) Err() error {
	if err := v.Validate(); err != nil {
		return err
	}
	switch v.phase {
	case rresterrors.PhaseParse:
		return &rresterrors.InvalidJSONError{Errors: v.errors}
	case rresterrors.PhaseSchema:
		return &rresterrors.InvalidRequestBodyError{ContentType: "application/json", Errors: v.errors}
	}
	return nil
}

// jsonErrorMessage drops the decoder's package prefix. Syntax errors are
// reported as "Invalid JSON: ..."; other decoder messages are kept verbatim.
func jsonErrorMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), "json: ")
	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		return "Invalid JSON: " + msg
	}
	return msg
}

package payload

import (
	"fmt"
	"sync"

	"github.com/clbanning/mxj/v2"

	"github.com/erraggy/rrest/rresterrors"
	"github.com/erraggy/rrest/xsd"
)

// XMLValidator validates one XML body against one XML Schema.
type XMLValidator struct {
	body   []byte
	schema string

	once   sync.Once
	err    error
	phase  rresterrors.Phase
	errors []rresterrors.Error
	value  any
}

// NewXMLValidator returns a validator for body against schema, the raw XSD
// document.
func NewXMLValidator(body []byte, schema string) *XMLValidator {
	return &XMLValidator{body: body, schema: schema}
}

// Validate runs the validation once. It returns a *rresterrors.ConfigError
// when the schema cannot be parsed.
func (v *XMLValidator) Validate() error {
	v.once.Do(v.run)
	return v.err
}

func (v *XMLValidator) run() {
	schema, err := compileXMLSchema(v.schema)
	if err != nil {
		v.err = err
		return
	}

	doc, problems := xsd.ParseDocument(v.body)
	if len(problems) > 0 {
		v.phase = rresterrors.PhaseParse
		v.errors = problemErrors(problems, rresterrors.KindInvalidXML)
		return
	}
	if problems := schema.Validate(doc); len(problems) > 0 {
		v.phase = rresterrors.PhaseSchema
		v.errors = problemErrors(problems, rresterrors.KindXMLSchema)
		return
	}
	v.value = decodeXML(v.body)
}

// Fails reports whether the body is malformed or violates the schema.
func (v *XMLValidator) Fails() bool {
	return len(v.Errors()) > 0
}

// Errors returns the validation failures in document order.
func (v *XMLValidator) Errors() []rresterrors.Error {
	_ = v.Validate()
	return v.errors
}

// Phase tells whether the failures come from parsing or from the schema.
func (v *XMLValidator) Phase() rresterrors.Phase {
	_ = v.Validate()
	return v.phase
}

// Value returns the valid body as a generic value: the content of the
// document element, with attributes keyed by "-name" and repeated elements
// collected into slices. It is nil when validation failed.
func (v *XMLValidator) Value() any {
	_ = v.Validate()
	return v.value
}

// Err returns the typed error for the outcome: *rresterrors.InvalidXMLError
// for a malformed body, *rresterrors.InvalidRequestBodyError for a schema
// violation, the compile error for a broken schema, or nil.
func (v *XMLValidator) Err() error {
	if err := v.Validate(); err != nil {
		return err
	}
	switch v.phase {
	case rresterrors.PhaseParse:
		return &rresterrors.InvalidXMLError{Errors: v.errors}
	case rresterrors.PhaseSchema:
		return &rresterrors.InvalidRequestBodyError{ContentType: "application/xml", Errors: v.errors}
	}
	return nil
}

func problemErrors(problems []xsd.Problem, code rresterrors.ErrorKind) []rresterrors.Error {
	out := make([]rresterrors.Error, len(problems))
	for i, p := range problems {
		out[i] = rresterrors.Error{
			Message: fmt.Sprintf("%s (line: %d)", p.Message, p.Line),
			Code:    code,
			Context: &rresterrors.Context{Line: p.Line},
		}
	}
	return out
}

// decodeXML converts a well-formed document to a generic value. The
// conversion is best effort and ignores the schema.
func decodeXML(body []byte) any {
	m, err := mxj.NewMapXml(body)
	if err != nil {
		return nil
	}
	for _, root := range m {
		return root
	}
	return nil
}

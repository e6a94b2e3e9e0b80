package payload

import (
	"strings"

	"github.com/erraggy/rrest/rresterrors"
)

// Validator is implemented by JSONValidator and XMLValidator.
type Validator interface {
	Validate() error
	Fails() bool
	Errors() []rresterrors.Error
	Phase() rresterrors.Phase
	Value() any
	Err() error
}

var (
	_ Validator = (*JSONValidator)(nil)
	_ Validator = (*XMLValidator)(nil)
)

// For returns the validator matching contentType, picked by substring so
// that vendor types such as application/vnd.api+json are covered. It
// returns false when the content type is neither JSON nor XML.
func For(contentType string, body []byte, schema string) (Validator, bool) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return NewJSONValidator(body, schema), true
	case strings.Contains(ct, "xml"):
		return NewXMLValidator(body, schema), true
	}
	return nil, false
}

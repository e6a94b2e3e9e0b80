package dispatch

import (
	"fmt"
	"net/http"

	"github.com/clbanning/mxj/v2"
	"github.com/goccy/go-json"

	"github.com/erraggy/rrest/internal/httputil"
	"github.com/erraggy/rrest/payload"
	"github.com/erraggy/rrest/rresterrors"
)

// xmlRoot names the root element of serialized XML responses.
const xmlRoot = "response"

// Response is the response contract of one request: format, success status,
// content type and, optionally, the schema its content must satisfy.
// Handlers fill it through SetContent, SetLocation and SetFile; the
// transport writes it.
type Response struct {
	format      string
	contentType string
	status      int
	schema      string
	assert      bool

	content  any
	body     []byte
	location string
	file     string
	header   http.Header
	err      error
}

func newResponse(format, contentType string, status int, schema string, assert bool) *Response {
	return &Response{
		format:      format,
		contentType: contentType,
		status:      status,
		schema:      schema,
		assert:      assert,
		header:      make(http.Header),
	}
}

// Format returns the response format (json, xml, csv, xlsx, binary).
func (r *Response) Format() string { return r.format }

// ContentType returns the negotiated Content-Type.
func (r *Response) ContentType() string { return r.contentType }

// Status returns the declared success status.
func (r *Response) Status() int { return r.status }

// Schema returns the declared schema of the content, if any.
func (r *Response) Schema() string { return r.schema }

// Content returns the value given to SetContent.
func (r *Response) Content() any { return r.content }

// Body returns the serialized content.
func (r *Response) Body() []byte { return r.body }

// Header returns extra headers to send. Content-Type and Location are set
// by the transport.
func (r *Response) Header() http.Header { return r.header }

// SetLocation sets the Location header value.
func (r *Response) SetLocation(url string) { r.location = url }

// Location returns the Location header value.
func (r *Response) Location() string { return r.location }

// SetFile makes the transport serve the file at path as the body.
func (r *Response) SetFile(path string) { r.file = path }

// File returns the path set by SetFile.
func (r *Response) File() string { return r.file }

// Err returns the error of the last SetContent call.
func (r *Response) Err() error { return r.err }

// SetContent serializes v in the response format. When assertion is on and
// a schema is declared, the serialized body is validated and a violation
// is returned as *rresterrors.InvalidResponseBodyError.
func (r *Response) SetContent(v any) error {
	r.content = v
	r.body = nil
	r.err = r.setContent(v)
	return r.err
}

func (r *Response) setContent(v any) error {
	body, err := serialize(r.format, v)
	if err != nil {
		return err
	}
	r.body = body

	if !r.assert || r.schema == "" {
		return nil
	}
	validator, ok := payload.For(r.contentType, body, r.schema)
	if !ok {
		return nil
	}
	if err := validator.Validate(); err != nil {
		return err
	}
	if validator.Fails() {
		return &rresterrors.InvalidResponseBodyError{
			Format: r.format,
			Phase:  validator.Phase(),
			Errors: validator.Errors(),
		}
	}
	return nil
}

func serialize(format string, v any) ([]byte, error) {
	switch format {
	case httputil.FormatJSON:
		data, err := json.MarshalNoEscape(v)
		if err != nil {
			return nil, &rresterrors.ConfigError{Option: "response", Message: "cannot serialize content as json", Cause: err}
		}
		return data, nil

	case httputil.FormatXML:
		if raw, ok := passthrough(v); ok {
			return raw, nil
		}
		data, err := mxj.AnyXml(v, xmlRoot)
		if err != nil {
			return nil, &rresterrors.ConfigError{Option: "response", Message: "cannot serialize content as xml", Cause: err}
		}
		return data, nil

	default:
		if raw, ok := passthrough(v); ok {
			return raw, nil
		}
		return nil, &rresterrors.ConfigError{
			Option:  "response",
			Value:   fmt.Sprintf("%T", v),
			Message: format + " content must be a string or []byte",
		}
	}
}

// passthrough returns already serialized content unchanged.
func passthrough(v any) ([]byte, bool) {
	switch x := v.(type) {
	case nil:
		return nil, true
	case []byte:
		return x, true
	case string:
		return []byte(x), true
	}
	return nil, false
}

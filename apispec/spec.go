// Package apispec defines the read-only view of an API contract consumed by
// the dispatcher, and the route catalog shared by the format adapters.
//
// The adapters in the raml, openapi and swagger subpackages decode a
// document in their format and describe every (resource, method) pair as an
// [Operation]. The resulting [Catalog] answers route lookups and hands out
// [Spec] values.
//
// # Usage
//
//	doc, err := raml.Parse(data)
//	if err != nil {
//	    return err
//	}
//	for _, s := range doc.Routes() {
//	    fmt.Println(s.Method(), s.RoutePath())
//	}
//	s, vars, err := doc.Resolve("GET", "/v1/songs/42")
package apispec

import (
	"strings"

	"github.com/erraggy/rrest/internal/httputil"
	"github.com/erraggy/rrest/parameter"
)

// Spec describes one route of an API contract.
type Spec interface {
	// RoutePath is the path template the route is served under, including
	// any version or base path prefix (e.g. "/v1/songs/{songId}").
	RoutePath() string
	// ResourcePath is the resource template as declared in the document.
	ResourcePath() string
	// Method is the upper-case HTTP method.
	Method() string
	// AuthTypes lists the security scheme types guarding the route.
	AuthTypes() []string
	// StatusCodes lists every declared response status.
	StatusCodes() []int
	// Protocols lists the accepted schemes (http, https). Empty means any.
	Protocols() []string
	// Parameters lists the declared parameters in declaration order.
	Parameters() []*parameter.Parameter
	// RequestBodyContentTypes lists the accepted request content types.
	RequestBodyContentTypes() []string
	// RequestBodySchema returns the schema for a request content type. The
	// boolean is false when the content type declares no schema.
	RequestBodySchema(contentType string) (string, bool)
	// ResponseBodyContentTypes lists the content types of every response.
	ResponseBodyContentTypes() []string
	// ResponseBodySchema returns the schema of a response body.
	ResponseBodySchema(status int, contentType string) (string, bool)
}

// Document is a parsed API contract.
type Document interface {
	// Info describes the document.
	Info() Info
	// Routes returns every route, ordered by path then method.
	Routes() []Spec
	// Resolve finds the route serving method and path and returns the
	// values of its path variables. It fails with a
	// *rresterrors.NotFoundError or *rresterrors.MethodNotAllowedError.
	Resolve(method, path string) (Spec, map[string]string, error)
}

// Info holds document level metadata.
type Info struct {
	Title   string
	Version string
	BaseURI string
	// Format names the source format (raml, openapi, swagger)
	Format string
}

// Body is a payload declaration.
type Body struct {
	ContentType string
	// Schema is the raw JSON Schema or XSD text, empty when undeclared
	Schema string
}

// Response is a declared response.
type Response struct {
	Status int
	Bodies []Body
}

// Operation is the format-independent description of a route. Adapters
// fill it in; it implements Spec.
type Operation struct {
	Route     string
	Resource  string
	Verb      string
	Security  []string
	Schemes   []string
	Params    []*parameter.Parameter
	Requests  []Body
	Responses []Response
}

var _ Spec = (*Operation)(nil)

// RoutePath implements Spec.
func (o *Operation) RoutePath() string { return o.Route }

// ResourcePath implements Spec.
func (o *Operation) ResourcePath() string { return o.Resource }

// Method implements Spec.
func (o *Operation) Method() string { return strings.ToUpper(o.Verb) }

// AuthTypes implements Spec.
func (o *Operation) AuthTypes() []string { return o.Security }

// Protocols implements Spec.
func (o *Operation) Protocols() []string { return o.Schemes }

// Parameters implements Spec.
func (o *Operation) Parameters() []*parameter.Parameter { return o.Params }

// StatusCodes implements Spec.
func (o *Operation) StatusCodes() []int {
	codes := make([]int, len(o.Responses))
	for i, r := range o.Responses {
		codes[i] = r.Status
	}
	return codes
}

// RequestBodyContentTypes implements Spec.
func (o *Operation) RequestBodyContentTypes() []string {
	return contentTypes(o.Requests)
}

// RequestBodySchema implements Spec.
func (o *Operation) RequestBodySchema(contentType string) (string, bool) {
	return findSchema(o.Requests, contentType)
}

// ResponseBodyContentTypes implements Spec. Duplicates across responses are
// listed once.
func (o *Operation) ResponseBodyContentTypes() []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range o.Responses {
		for _, ct := range contentTypes(r.Bodies) {
			if !seen[ct] {
				seen[ct] = true
				out = append(out, ct)
			}
		}
	}
	return out
}

// ResponseBodySchema implements Spec.
func (o *Operation) ResponseBodySchema(status int, contentType string) (string, bool) {
	for _, r := range o.Responses {
		if r.Status == status {
			return findSchema(r.Bodies, contentType)
		}
	}
	return "", false
}

func contentTypes(bodies []Body) []string {
	out := make([]string, len(bodies))
	for i, b := range bodies {
		out[i] = b.ContentType
	}
	return out
}

// findSchema matches content types case-insensitively and ignores
// parameters such as charset.
func findSchema(bodies []Body, contentType string) (string, bool) {
	want := httputil.MediaType(contentType)
	for _, b := range bodies {
		if httputil.MediaType(b.ContentType) == want {
			return b.Schema, b.Schema != ""
		}
	}
	return "", false
}

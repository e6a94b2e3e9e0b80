package dispatch

import "maps"

// Request is what a handler receives: the typed parameter values and the
// decoded body of a request that passed every check.
type Request struct {
	route  *Route
	rc     RequestContext
	params map[string]any
	body   any
	raw    []byte
}

// Route returns the route serving the request.
func (r *Request) Route() *Route { return r.route }

// Context returns the transport context of the request.
func (r *Request) Context() RequestContext { return r.rc }

// Param returns the typed value of a declared parameter. Absent optional
// parameters report false.
func (r *Request) Param(name string) (any, bool) {
	v, ok := r.params[name]
	return v, ok
}

// Params returns a copy of every present parameter value.
func (r *Request) Params() map[string]any {
	return maps.Clone(r.params)
}

// Body returns the decoded body: a JSON value, or the generic map of an
// XML document. It is nil when no schema applies to the request body.
func (r *Request) Body() any { return r.body }

// RawBody returns the body as received.
func (r *Request) RawBody() []byte { return r.raw }

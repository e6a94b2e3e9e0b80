// Package muxprovider binds dispatch routes to a gorilla/mux router.
//
//	router := mux.NewRouter()
//	p := muxprovider.New(router, muxprovider.WithCORS("*", "", "Content-Type"))
//	d, err := dispatch.New(dispatch.WithProvider(p))
//	...
//	http.ListenAndServe(":8080", p)
//
// Unmatched paths and methods are answered with the same JSON error body
// the dispatcher writes for rejected requests.
package muxprovider

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/mux"

	"github.com/erraggy/rrest/dispatch"
	"github.com/erraggy/rrest/rresterrors"
)

// DefaultCORSMethods is the Access-Control-Allow-Methods value used when
// WithCORS is given no methods.
const DefaultCORSMethods = "GET,POST,PUT,DELETE,OPTIONS"

// CORS holds the headers sent in answer to a pre-flight OPTIONS request.
type CORS struct {
	Origin  string
	Methods string
	Headers string
}

// Option configures a Provider.
type Option func(*Provider)

// WithCORS answers every OPTIONS request with 200 and the given
// Access-Control-Allow-* headers. An empty origin means "*" and empty
// methods mean DefaultCORSMethods.
func WithCORS(origin, methods, headers string) Option {
	return func(p *Provider) {
		p.ApplyCORS(origin, methods, headers)
	}
}

// Provider implements dispatch.Provider over a *mux.Router.
type Provider struct {
	router *mux.Router
	cors   *CORS
}

var _ dispatch.Provider = (*Provider)(nil)

// New wraps router and installs JSON not-found and method-not-allowed
// handlers on it.
func New(router *mux.Router, opts ...Option) *Provider {
	p := &Provider{router: router}
	router.NotFoundHandler = http.HandlerFunc(p.notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(p.methodNotAllowed)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Router returns the wrapped router.
func (p *Provider) Router() *mux.Router { return p.router }

// Handle implements dispatch.Provider.
func (p *Provider) Handle(method, path string, rt *dispatch.Route) error {
	route := p.router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		rt.Handle(w, r, mux.Vars(r))
	}).Methods(strings.ToUpper(method))
	return route.GetError()
}

// ApplyCORS enables pre-flight handling. See WithCORS.
func (p *Provider) ApplyCORS(origin, methods, headers string) {
	if origin == "" {
		origin = "*"
	}
	if methods == "" {
		methods = DefaultCORSMethods
	}
	p.cors = &CORS{Origin: origin, Methods: methods, Headers: headers}
}

// ServeHTTP answers pre-flight requests when CORS is enabled and hands
// everything else to the router.
func (p *Provider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p.cors != nil && r.Method == http.MethodOptions {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", p.cors.Origin)
		h.Set("Access-Control-Allow-Methods", p.cors.Methods)
		h.Set("Access-Control-Allow-Headers", p.cors.Headers)
		w.WriteHeader(http.StatusOK)
		return
	}
	p.router.ServeHTTP(w, r)
}

func (p *Provider) notFound(w http.ResponseWriter, r *http.Request) {
	dispatch.WriteError(w, &rresterrors.NotFoundError{Method: r.Method, Path: r.URL.Path})
}

func (p *Provider) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	dispatch.WriteError(w, &rresterrors.MethodNotAllowedError{
		Method:  r.Method,
		Path:    r.URL.Path,
		Allowed: p.allowed(r),
	})
}

// allowed lists the methods of the routes whose path matches r.
func (p *Provider) allowed(r *http.Request) []string {
	var out []string
	_ = p.router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		var m mux.RouteMatch
		if route.Match(r, &m) || m.MatchErr == mux.ErrMethodMismatch {
			methods, _ := route.GetMethods()
			out = append(out, methods...)
		}
		return nil
	})
	slices.Sort(out)
	return slices.Compact(out)
}

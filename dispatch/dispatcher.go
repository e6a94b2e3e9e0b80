package dispatch

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/erraggy/rrest/apispec"
	"github.com/erraggy/rrest/internal/httputil"
	"github.com/erraggy/rrest/negotiate"
	"github.com/erraggy/rrest/parameter"
	"github.com/erraggy/rrest/payload"
	"github.com/erraggy/rrest/rresterrors"
)

// Provider binds routes to a transport. Register binds each route under
// its path with and without a trailing slash.
type Provider interface {
	Handle(method, path string, route *Route) error
}

// Pipeline stages, in order. They appear in log records.
const (
	StageResolve       = "resolve-spec"
	StageAccept        = "negotiate-accept"
	StageContentType   = "negotiate-content-type"
	StageProtocol      = "negotiate-protocol"
	StageSuccessStatus = "determine-success-status"
	StageParameters    = "validate-parameters"
	StageBody          = "validate-body"
	StageHint          = "hint-values"
	StageDispatch      = "dispatch"
)

// Dispatcher registers routes and runs the validation pipeline in front of
// their handlers. Register and Mount are meant for startup; once serving,
// a Dispatcher is read-only and safe for concurrent use.
type Dispatcher struct {
	cfg *config

	mu     sync.RWMutex
	index  apispec.Catalog
	routes map[string]*Route
}

// New creates a Dispatcher.
func New(opts ...Option) (*Dispatcher, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return &Dispatcher{cfg: cfg, routes: make(map[string]*Route)}, nil
}

// Register validates the route contract of spec and binds handler to it.
// The route must declare exactly one success status (2xx or 3xx) and at
// least one response content type, each in a supported format.
func (d *Dispatcher) Register(spec apispec.Spec, handler Handler) (*Route, error) {
	if handler == nil {
		return nil, &rresterrors.ConfigError{Option: "handler", Value: spec.Method() + " " + spec.RoutePath(), Message: "handler cannot be nil"}
	}
	status, err := successStatus(spec)
	if err != nil {
		return nil, err
	}
	if err := checkFormats(spec); err != nil {
		return nil, err
	}

	rt := &Route{
		spec:    spec,
		handler: handler,
		status:  status,
		cfg:     d.cfg,
		logger:  d.cfg.logger.With("method", spec.Method(), "route", spec.RoutePath()),
	}

	d.mu.Lock()
	if err := d.index.Add(spec); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	d.routes[routeKey(spec.Method(), spec.RoutePath())] = rt
	d.mu.Unlock()

	if p := d.cfg.provider; p != nil {
		for _, path := range pathVariants(spec.RoutePath()) {
			if err := p.Handle(spec.Method(), path, rt); err != nil {
				d.mu.Lock()
				d.index.Remove(spec.RoutePath(), spec.Method())
				delete(d.routes, routeKey(spec.Method(), spec.RoutePath()))
				d.mu.Unlock()
				return nil, err
			}
		}
	}

	d.cfg.logger.Info("route registered",
		"method", spec.Method(),
		"route", spec.RoutePath(),
		"status", status,
		"auth", spec.AuthTypes(),
	)
	return rt, nil
}

// Mount registers every route of doc, looking handlers up in reg by naming
// convention. The first failure aborts the mount.
func (d *Dispatcher) Mount(doc apispec.Document, reg *Registry) ([]*Route, error) {
	var out []*Route
	for _, spec := range doc.Routes() {
		h, err := reg.Handler(spec.ResourcePath(), spec.Method())
		if err != nil {
			return nil, err
		}
		rt, err := d.Register(spec, h)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, nil
}

// Routes returns the registered routes ordered by path then method.
func (d *Dispatcher) Routes() []*Route {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Route, 0, len(d.routes))
	for _, rt := range d.routes {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path() != out[j].Path() {
			return out[i].Path() < out[j].Path()
		}
		return out[i].Method() < out[j].Method()
	})
	return out
}

// Resolve finds the registered route serving method and path.
func (d *Dispatcher) Resolve(method, path string) (*Route, map[string]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	spec, vars, err := d.index.Resolve(method, path)
	if err != nil {
		d.cfg.logger.Debug("request rejected", "stage", StageResolve, "path", path, "error", err)
		return nil, nil, err
	}
	return d.routes[routeKey(spec.Method(), spec.RoutePath())], vars, nil
}

// ServeHTTP resolves the route itself, for use without a router.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt, vars, err := d.Resolve(r.Method, r.URL.Path)
	if err != nil {
		WriteError(w, err)
		return
	}
	rt.Handle(w, r, vars)
}

func routeKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

func pathVariants(path string) []string {
	if path == "/" || path == "" {
		return []string{"/"}
	}
	if trimmed, ok := strings.CutSuffix(path, "/"); ok {
		return []string{path, trimmed}
	}
	return []string{path, path + "/"}
}

// successStatus returns the single 2xx/3xx status declared by spec.
func successStatus(spec apispec.Spec) (int, error) {
	codes := httputil.SuccessStatuses(spec.StatusCodes())
	if len(codes) != 1 {
		return 0, &rresterrors.ConfigError{
			Option:  "responses",
			Value:   spec.Method() + " " + spec.RoutePath(),
			Message: "exactly one success status (2xx or 3xx) must be declared",
		}
	}
	return codes[0], nil
}

func checkFormats(spec apispec.Spec) error {
	types := spec.ResponseBodyContentTypes()
	if len(types) == 0 {
		return &rresterrors.ConfigError{Option: "responses", Value: spec.Method() + " " + spec.RoutePath(), Message: "no content type defined for this response"}
	}
	for _, ct := range types {
		if _, ok := httputil.Format(ct); !ok {
			return &rresterrors.ConfigError{Option: "responses", Value: ct, Message: "unsupported response format"}
		}
	}
	return nil
}

// Route is a registered (path, method) pair and its handler.
type Route struct {
	spec    apispec.Spec
	handler Handler
	status  int
	cfg     *config
	logger  Logger
}

// Spec returns the route description.
func (rt *Route) Spec() apispec.Spec { return rt.spec }

// Path returns the route template.
func (rt *Route) Path() string { return rt.spec.RoutePath() }

// Method returns the upper-case HTTP method.
func (rt *Route) Method() string { return rt.spec.Method() }

// AuthTypes returns the security scheme types guarding the route.
func (rt *Route) AuthTypes() []string { return rt.spec.AuthTypes() }

// SuccessStatus returns the status of successful responses.
func (rt *Route) SuccessStatus() int { return rt.status }

// Handle runs the route for an HTTP request and writes the outcome.
// vars holds the path variables extracted by the router.
func (rt *Route) Handle(w http.ResponseWriter, r *http.Request, vars map[string]string) {
	rc, err := NewHTTPContext(r, vars, rt.cfg.maxBodySize)
	if err != nil {
		WriteError(w, err)
		return
	}
	resp, err := rt.Serve(r.Context(), rc)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteResponse(w, resp)
}

// Serve runs the validation pipeline and, when every check passes, the
// handler. Negotiation failures stop the pipeline at once; parameter and
// body failures are reported as a whole.
func (rt *Route) Serve(ctx context.Context, rc RequestContext) (*Response, error) {
	spec := rt.spec
	snap := TakeSnapshot(rc, spec.Parameters())

	responseTypes := spec.ResponseBodyContentTypes()
	accept, err := negotiate.NewAccept(snap.Accept, responseTypes, rt.cfg.acceptPolicy)
	if err != nil {
		return nil, rt.reject(StageAccept, err)
	}
	if accept.Fails() {
		return nil, rt.reject(StageAccept, accept.Err())
	}
	contentType := accept.Best()
	if contentType == "" {
		contentType = responseTypes[0]
	}

	if c := negotiate.NewContentType(snap.ContentType, spec.RequestBodyContentTypes()); c.Fails() {
		return nil, rt.reject(StageContentType, c.Err())
	}
	if p := negotiate.NewProtocol(snap.Protocol, spec.Protocols()); p.Fails() {
		return nil, rt.reject(StageProtocol, p.Err())
	}

	format, _ := httputil.Format(contentType)
	schema, _ := spec.ResponseBodySchema(rt.status, contentType)
	resp := newResponse(format, contentType, rt.status, schema, rt.cfg.assertResponse)

	params, err := validateParameters(spec.Parameters(), snap)
	if err != nil {
		return nil, rt.reject(StageParameters, err)
	}
	body, err := validateBody(spec, snap)
	if err != nil {
		return nil, rt.reject(StageBody, err)
	}

	for name, v := range params {
		rc.SetParam(name, v)
	}
	if body != nil {
		rc.SetBody(body)
	}

	req := &Request{route: rt, rc: rc, params: params, body: body, raw: snap.Body}
	if err := rt.handler.Serve(ctx, req, resp); err != nil {
		return nil, rt.reject(StageDispatch, err)
	}
	if err := resp.Err(); err != nil {
		return nil, rt.reject(StageDispatch, err)
	}
	return resp, nil
}

func (rt *Route) reject(stage string, err error) error {
	attrs := []any{"stage", stage, "status", rresterrors.StatusCode(err), "error", err}
	if errs := rresterrors.List(err); len(errs) > 0 {
		attrs = append(attrs, "kind", errs[0].Code.String())
	}
	var respErr *rresterrors.InvalidResponseBodyError
	if errors.As(err, &respErr) {
		rt.logger.Error("response contract violated", attrs...)
	} else {
		rt.logger.Debug("request rejected", attrs...)
	}
	return err
}

// validateParameters casts and checks every declared parameter. Present
// values are returned typed; failures accumulate into one error.
func validateParameters(params []*parameter.Parameter, snap *Snapshot) (map[string]any, error) {
	typed := make(map[string]any, len(params))
	var errs []rresterrors.Error
	for _, p := range params {
		raw := snap.Raw[p.Name()]
		v, perrs := p.Validate(raw)
		errs = append(errs, perrs...)
		if !parameter.IsEmpty(v) {
			typed[p.Name()] = v
		}
	}
	if len(errs) > 0 {
		return nil, &rresterrors.InvalidParameterError{Errors: errs}
	}
	return typed, nil
}

// validateBody checks the body against the schema declared for its
// content type. Without a schema nothing is checked and nil is returned.
func validateBody(spec apispec.Spec, snap *Snapshot) (any, error) {
	schema, ok := spec.RequestBodySchema(snap.ContentType)
	if !ok {
		return nil, nil
	}
	v, ok := payload.For(snap.ContentType, snap.Body, schema)
	if !ok {
		return nil, &rresterrors.UnsupportedMediaTypeError{
			ContentType: snap.ContentType,
			Available:   spec.RequestBodyContentTypes(),
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	return v.Value(), nil
}

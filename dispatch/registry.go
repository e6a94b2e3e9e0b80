package dispatch

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/erraggy/rrest/rresterrors"
)

// Handler serves a validated request.
type Handler interface {
	Serve(ctx context.Context, req *Request, resp *Response) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *Request, resp *Response) error

// Serve implements Handler.
func (f HandlerFunc) Serve(ctx context.Context, req *Request, resp *Response) error {
	return f(ctx, req, resp)
}

// Controller maps action names (getAction, postAction, ...) to handlers.
type Controller map[string]Handler

// Registry finds handlers by naming convention: the resource path
// "/item/{itemId}/comment" is served by controller "Item.Comment", and
// the GET method by its action "getAction".
type Registry struct {
	mu          sync.RWMutex
	controllers map[string]Controller
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{controllers: make(map[string]Controller)}
}

// Add registers a controller under name, replacing any previous one.
func (r *Registry) Add(name string, c Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controllers[name] = c
}

// Handler returns the handler for a resource path and method.
func (r *Registry) Handler(resource, method string) (Handler, error) {
	name := ControllerName(resource)
	action := ActionName(method)

	r.mu.RLock()
	c, ok := r.controllers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &rresterrors.ConfigError{Option: "controller", Value: resource, Message: name + " not found"}
	}
	h, ok := c[action]
	if !ok || h == nil {
		return nil, &rresterrors.ConfigError{Option: "controller", Value: resource, Message: name + "::" + action + " method not found"}
	}
	return h, nil
}

// ControllerName derives the controller name of a resource path. Variable
// segments are dropped and every remaining segment is title-cased, with
// "-" and "_" acting as word separators.
func ControllerName(resource string) string {
	titler := cases.Title(language.Und, cases.NoLower)
	var parts []string
	for _, seg := range strings.Split(resource, "/") {
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		words := strings.FieldsFunc(seg, func(r rune) bool { return r == '-' || r == '_' })
		var b strings.Builder
		for _, w := range words {
			b.WriteString(titler.String(w))
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, ".")
}

// ActionName derives the action name of a method: GET gives "getAction".
func ActionName(method string) string {
	return strings.ToLower(method) + "Action"
}

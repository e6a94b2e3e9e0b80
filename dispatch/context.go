package dispatch

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/erraggy/rrest/internal/httputil"
	"github.com/erraggy/rrest/parameter"
	"github.com/erraggy/rrest/rresterrors"
)

// RequestContext is the transport's view of one request.
type RequestContext interface {
	// Param returns the raw value of a parameter. With parameter.LocationAny
	// path variables, the query string and form values are searched in that
	// order. Hinted values set by SetParam take precedence.
	Param(name string, loc parameter.Location) (any, bool)
	// SetParam records the typed value of a parameter.
	SetParam(name string, value any)
	// Body returns the raw request body.
	Body() []byte
	// SetBody records the decoded request body.
	SetBody(value any)
	// Protocol is "http" or "https".
	Protocol() string
	// Header returns the first value of a request header.
	Header(name string) string
}

// HTTPContext implements RequestContext over a *http.Request.
type HTTPContext struct {
	req      *http.Request
	vars     map[string]string
	body     []byte
	form     url.Values
	files    map[string][]*multipart.FileHeader
	protocol string

	mu      sync.RWMutex
	hinted  map[string]any
	decoded any
}

var _ RequestContext = (*HTTPContext)(nil)

// NewHTTPContext reads the request body, at most maxBody bytes, and the
// form values of url-encoded and multipart requests. vars holds the path
// variables extracted by the router.
func NewHTTPContext(r *http.Request, vars map[string]string, maxBody int64) (*HTTPContext, error) {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}
	c := &HTTPContext{
		req:      r,
		vars:     vars,
		form:     url.Values{},
		protocol: detectProtocol(r),
		hinted:   make(map[string]any),
	}

	ct := httputil.MediaType(r.Header.Get("Content-Type"))
	switch {
	case ct == "application/x-www-form-urlencoded":
		if err := c.readBody(maxBody); err != nil {
			return nil, err
		}
		form, err := url.ParseQuery(string(c.body))
		if err != nil {
			return nil, fmt.Errorf("dispatch: malformed form body: %w", err)
		}
		c.form = form
	case httputil.IsMultipart(ct) && r.Body != nil:
		r.Body = http.MaxBytesReader(nil, r.Body, maxBody)
		if err := r.ParseMultipartForm(maxBody); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, &rresterrors.BodyTooLargeError{Limit: maxBody}
			}
			return nil, fmt.Errorf("dispatch: malformed multipart body: %w", err)
		}
		if r.MultipartForm != nil {
			c.form = url.Values(r.MultipartForm.Value)
			c.files = r.MultipartForm.File
		}
	default:
		if err := c.readBody(maxBody); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *HTTPContext) readBody(maxBody int64) error {
	if c.req.Body == nil {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(c.req.Body, maxBody+1))
	if err != nil {
		return fmt.Errorf("dispatch: reading request body: %w", err)
	}
	if int64(len(data)) > maxBody {
		return &rresterrors.BodyTooLargeError{Limit: maxBody}
	}
	c.body = data
	return nil
}

// detectProtocol honours TLS and the X-Forwarded-Proto and X-Forwarded-Ssl
// headers set by proxies.
func detectProtocol(r *http.Request) string {
	switch {
	case r.TLS != nil:
		return "https"
	case strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https"):
		return "https"
	case strings.EqualFold(r.Header.Get("X-Forwarded-Ssl"), "on"):
		return "https"
	}
	return "http"
}

// Request returns the underlying request.
func (c *HTTPContext) Request() *http.Request { return c.req }

// Param implements RequestContext.
func (c *HTTPContext) Param(name string, loc parameter.Location) (any, bool) {
	c.mu.RLock()
	v, ok := c.hinted[name]
	c.mu.RUnlock()
	if ok {
		return v, true
	}

	lookups := map[parameter.Location]func(string) (any, bool){
		parameter.LocationPath:   c.pathVar,
		parameter.LocationQuery:  c.query,
		parameter.LocationForm:   c.formValue,
		parameter.LocationHeader: c.header,
		parameter.LocationCookie: c.cookie,
	}
	if lookup, ok := lookups[loc]; ok {
		return lookup(name)
	}
	for _, lookup := range []func(string) (any, bool){c.pathVar, c.query, c.formValue} {
		if v, ok := lookup(name); ok {
			return v, true
		}
	}
	return nil, false
}

func (c *HTTPContext) pathVar(name string) (any, bool) {
	v, ok := c.vars[name]
	return v, ok
}

func (c *HTTPContext) query(name string) (any, bool) {
	return values(c.req.URL.Query(), name)
}

func (c *HTTPContext) formValue(name string) (any, bool) {
	if fh := c.files[name]; len(fh) > 0 {
		return fh[0], true
	}
	return values(c.form, name)
}

func (c *HTTPContext) header(name string) (any, bool) {
	vs := c.req.Header.Values(name)
	if len(vs) == 0 {
		return nil, false
	}
	return vs[0], true
}

func (c *HTTPContext) cookie(name string) (any, bool) {
	ck, err := c.req.Cookie(name)
	if errors.Is(err, http.ErrNoCookie) || ck == nil {
		return nil, false
	}
	return ck.Value, true
}

// values unwraps single values; repeated keys stay a []string.
func values(v url.Values, name string) (any, bool) {
	vs, ok := v[name]
	if !ok || len(vs) == 0 {
		return nil, false
	}
	if len(vs) == 1 {
		return vs[0], true
	}
	return vs, true
}

// SetParam implements RequestContext.
func (c *HTTPContext) SetParam(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hinted[name] = value
}

// Body implements RequestContext.
func (c *HTTPContext) Body() []byte { return c.body }

// SetBody implements RequestContext.
func (c *HTTPContext) SetBody(value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decoded = value
}

// Decoded returns the body recorded by SetBody.
func (c *HTTPContext) Decoded() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.decoded
}

// Protocol implements RequestContext.
func (c *HTTPContext) Protocol() string { return c.protocol }

// Header implements RequestContext.
func (c *HTTPContext) Header(name string) string { return c.req.Header.Get(name) }

// Snapshot is the immutable view of a request taken before validation:
// negotiation inputs, the raw body and the raw value of every declared
// parameter.
type Snapshot struct {
	Protocol    string
	Accept      string
	ContentType string
	Body        []byte
	// Raw maps declared parameter names to their raw values; absent
	// parameters map to nil
	Raw map[string]any
}

// TakeSnapshot reads everything the pipeline needs from rc, once.
func TakeSnapshot(rc RequestContext, params []*parameter.Parameter) *Snapshot {
	s := &Snapshot{
		Protocol:    rc.Protocol(),
		Accept:      rc.Header("Accept"),
		ContentType: rc.Header("Content-Type"),
		Body:        rc.Body(),
		Raw:         make(map[string]any, len(params)),
	}
	for _, p := range params {
		v, _ := rc.Param(p.Name(), p.Location())
		s.Raw[p.Name()] = v
	}
	return s
}

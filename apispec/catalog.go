package apispec

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/erraggy/rrest/rresterrors"
)

// routeMatcher matches request paths against one route template such as
// "/v1/songs/{songId}" and extracts the variable values.
type routeMatcher struct {
	// template is the route template
	template string

	// regex is the compiled pattern for matching
	regex *regexp.Regexp

	// varNames are the variable names in order of appearance
	varNames []string

	// specificity is used for sorting matchers (higher = more specific)
	specificity int

	// ops maps upper-case methods to routes
	ops map[string]Spec
}

// newRouteMatcher compiles a route template. It fails on unclosed, empty or
// duplicate variables.
func newRouteMatcher(template string) (*routeMatcher, error) {
	if template == "" {
		return nil, fmt.Errorf("apispec: route template cannot be empty")
	}

	var regexBuf strings.Builder
	regexBuf.WriteString("^")

	var varNames []string
	specificity := 0

	i := 0
	for i < len(template) {
		if template[i] == '{' {
			end := strings.Index(template[i:], "}")
			if end == -1 {
				return nil, fmt.Errorf("apispec: unclosed path variable at position %d in route %q", i, template)
			}

			name := template[i+1 : i+end]
			if name == "" {
				return nil, fmt.Errorf("apispec: empty path variable at position %d in route %q", i, template)
			}
			if slices.Contains(varNames, name) {
				return nil, fmt.Errorf("apispec: duplicate path variable %q in route %q", name, template)
			}
			varNames = append(varNames, name)

			// a variable spans one path segment
			regexBuf.WriteString("([^/]+)")

			i += end + 1
			specificity--
		} else {
			c := template[i]
			if strings.ContainsRune(`\.+*?()|[]{}^$`, rune(c)) {
				regexBuf.WriteByte('\\')
			}
			regexBuf.WriteByte(c)
			i++

			if c != '/' {
				specificity++
			}
		}
	}

	regexBuf.WriteString("$")

	regex, err := regexp.Compile(regexBuf.String())
	if err != nil {
		return nil, fmt.Errorf("apispec: failed to compile pattern for route %q: %w", template, err)
	}

	return &routeMatcher{
		template:    template,
		regex:       regex,
		varNames:    varNames,
		specificity: specificity,
		ops:         make(map[string]Spec),
	}, nil
}

// match reports whether path matches the template and extracts the
// variables.
func (m *routeMatcher) match(path string) (bool, map[string]string) {
	matches := m.regex.FindStringSubmatch(path)
	if matches == nil || len(matches) != len(m.varNames)+1 {
		return false, nil
	}

	vars := make(map[string]string, len(m.varNames))
	for i, name := range m.varNames {
		vars[name] = matches[i+1]
	}
	return true, vars
}

func (m *routeMatcher) methods() []string {
	out := make([]string, 0, len(m.ops))
	for method := range m.ops {
		out = append(out, method)
	}
	sort.Strings(out)
	return out
}

// Catalog is the Document implementation shared by every adapter, and the
// route index of the dispatcher. The zero value is an empty catalog. Once
// filled it is safe for concurrent use.
type Catalog struct {
	info Info

	// matchers sorted by specificity, most specific first
	matchers []*routeMatcher
	byRoute  map[string]*routeMatcher
}

var _ Document = (*Catalog)(nil)

// NewCatalog indexes operations. Two operations with the same route and
// method, or a malformed route template, are configuration errors.
func NewCatalog(info Info, ops []*Operation) (*Catalog, error) {
	c := &Catalog{info: info, byRoute: make(map[string]*routeMatcher)}
	for _, op := range ops {
		if err := c.Add(op); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add indexes one more route. It must not run concurrently with lookups;
// catalogs are filled during setup and read-only afterwards.
func (c *Catalog) Add(s Spec) error {
	if c.byRoute == nil {
		c.byRoute = make(map[string]*routeMatcher)
	}
	route := s.RoutePath()
	m, ok := c.byRoute[route]
	if !ok {
		var err error
		if m, err = newRouteMatcher(route); err != nil {
			return &rresterrors.ConfigError{Option: "route", Value: route, Message: "invalid route template", Cause: err}
		}
		c.byRoute[route] = m
		c.matchers = append(c.matchers, m)
		c.sortMatchers()
	}
	method := s.Method()
	if _, dup := m.ops[method]; dup {
		return &rresterrors.ConfigError{Option: "route", Value: method + " " + route, Message: "duplicate operation"}
	}
	m.ops[method] = s
	return nil
}

// Remove drops the operation indexed for route and method. A route left
// without operations stops matching.
func (c *Catalog) Remove(route, method string) {
	m, ok := c.byRoute[route]
	if !ok {
		return
	}
	delete(m.ops, strings.ToUpper(method))
	if len(m.ops) > 0 {
		return
	}
	delete(c.byRoute, route)
	for i, other := range c.matchers {
		if other == m {
			c.matchers = append(c.matchers[:i], c.matchers[i+1:]...)
			break
		}
	}
}

// sortMatchers orders by specificity (highest first), then by template
// length (longest first), then alphabetically for stability.
func (c *Catalog) sortMatchers() {
	sort.Slice(c.matchers, func(i, j int) bool {
		a, b := c.matchers[i], c.matchers[j]
		if a.specificity != b.specificity {
			return a.specificity > b.specificity
		}
		if len(a.template) != len(b.template) {
			return len(a.template) > len(b.template)
		}
		return a.template < b.template
	})
}

// Info implements Document.
func (c *Catalog) Info() Info {
	return c.info
}

// Routes implements Document.
func (c *Catalog) Routes() []Spec {
	templates := make([]string, 0, len(c.byRoute))
	for t := range c.byRoute {
		templates = append(templates, t)
	}
	sort.Strings(templates)

	var out []Spec
	for _, t := range templates {
		m := c.byRoute[t]
		for _, method := range m.methods() {
			out = append(out, m.ops[method])
		}
	}
	return out
}

// Resolve implements Document. A path that only differs from a route by a
// trailing slash resolves to that route.
func (c *Catalog) Resolve(method, path string) (Spec, map[string]string, error) {
	m, vars := c.lookup(path)
	if m == nil {
		return nil, nil, &rresterrors.NotFoundError{Method: strings.ToUpper(method), Path: path}
	}
	op, ok := m.ops[strings.ToUpper(method)]
	if !ok {
		return nil, nil, &rresterrors.MethodNotAllowedError{
			Method:  strings.ToUpper(method),
			Path:    path,
			Allowed: m.methods(),
		}
	}
	return op, vars, nil
}

// Lookup returns the route declared for a template and method.
func (c *Catalog) Lookup(route, method string) (Spec, bool) {
	m, ok := c.byRoute[route]
	if !ok {
		return nil, false
	}
	op, ok := m.ops[strings.ToUpper(method)]
	return op, ok
}

// Allowed lists the methods declared for the route serving path.
func (c *Catalog) Allowed(path string) []string {
	if m, _ := c.lookup(path); m != nil {
		return m.methods()
	}
	return nil
}

func (c *Catalog) lookup(path string) (*routeMatcher, map[string]string) {
	candidates := []string{path}
	if trimmed := strings.TrimSuffix(path, "/"); trimmed != path && trimmed != "" {
		candidates = append(candidates, trimmed)
	} else {
		candidates = append(candidates, path+"/")
	}
	for _, p := range candidates {
		for _, m := range c.matchers {
			if ok, vars := m.match(p); ok {
				return m, vars
			}
		}
	}
	return nil, nil
}

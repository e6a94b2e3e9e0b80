// Package openapi adapts OpenAPI 3.x documents, in YAML or JSON, to the
// apispec view.
//
// Routes are served under the path of the first server URL. JSON bodies
// carry their schema with the document's components embedded, so local
// "#/components/..." references resolve during validation. XML and other
// bodies are declared without a schema.
package openapi

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"go.yaml.in/yaml/v4"

	"github.com/erraggy/rrest/apispec"
	"github.com/erraggy/rrest/internal/httputil"
	"github.com/erraggy/rrest/internal/yamlutil"
	"github.com/erraggy/rrest/parameter"
	"github.com/erraggy/rrest/rresterrors"
)

// IsOpenAPI reports whether the decoded root declares an OpenAPI 3 version.
func IsOpenAPI(root *yaml.Node) bool {
	return strings.HasPrefix(yamlutil.String(yamlutil.Get(root, "openapi")), "3.")
}

// Parse adapts an OpenAPI 3 document.
func Parse(data []byte) (*apispec.Catalog, error) {
	root, err := yamlutil.Root(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: %w", err)
	}
	if !IsOpenAPI(root) {
		return nil, &rresterrors.ConfigError{Option: "openapi", Message: "missing or unsupported openapi version"}
	}

	a := &adapter{
		root:       root,
		components: yamlutil.Get(root, "components"),
		security:   yamlutil.Get(root, "security"),
		schemes:    make(map[string]string),
	}
	if err := a.readServers(yamlutil.Items(yamlutil.Get(root, "servers"))); err != nil {
		return nil, err
	}
	for _, p := range yamlutil.Pairs(yamlutil.Get(a.components, "securitySchemes")) {
		a.schemes[p.Key] = schemeType(a.deref(p.Value))
	}

	for _, p := range yamlutil.Pairs(yamlutil.Get(root, "paths")) {
		if err := a.pathItem(p.Key, a.deref(p.Value)); err != nil {
			return nil, err
		}
	}

	info := yamlutil.Get(root, "info")
	return apispec.NewCatalog(apispec.Info{
		Title:   yamlutil.String(yamlutil.Get(info, "title")),
		Version: yamlutil.String(yamlutil.Get(info, "version")),
		BaseURI: a.baseURI,
		Format:  "openapi",
	}, a.ops)
}

type adapter struct {
	root       *yaml.Node
	components *yaml.Node
	security   *yaml.Node
	schemes    map[string]string

	baseURI   string
	prefix    string
	protocols []string

	ops []*apispec.Operation
}

func (a *adapter) readServers(servers []*yaml.Node) error {
	for i, s := range servers {
		raw := yamlutil.String(yamlutil.Get(s, "url"))
		// server variables keep their default value
		for _, v := range yamlutil.Pairs(yamlutil.Get(s, "variables")) {
			raw = strings.ReplaceAll(raw, "{"+v.Key+"}", yamlutil.String(yamlutil.Get(v.Value, "default")))
		}
		u, err := url.Parse(raw)
		if err != nil {
			return &rresterrors.ConfigError{Option: "servers", Value: raw, Message: "invalid server url", Cause: err}
		}
		if i == 0 {
			a.baseURI = raw
			a.prefix = strings.TrimSuffix(u.Path, "/")
		}
		if scheme := strings.ToLower(u.Scheme); scheme != "" && !slices.Contains(a.protocols, scheme) {
			a.protocols = append(a.protocols, scheme)
		}
	}
	return nil
}

// deref resolves a local "#/..." reference against the document root.
// Unresolvable references yield nil.
func (a *adapter) deref(n *yaml.Node) *yaml.Node {
	for range 32 {
		ref := yamlutil.String(yamlutil.Get(n, "$ref"))
		if ref == "" {
			return n
		}
		n = pointer(a.root, ref)
	}
	return nil
}

func pointer(root *yaml.Node, ref string) *yaml.Node {
	path, ok := strings.CutPrefix(ref, "#/")
	if !ok {
		return nil
	}
	n := root
	for _, tok := range strings.Split(path, "/") {
		tok = strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
		if n = yamlutil.Get(n, tok); n == nil {
			return nil
		}
	}
	return n
}

func (a *adapter) pathItem(resource string, item *yaml.Node) error {
	shared := yamlutil.Items(yamlutil.Get(item, "parameters"))
	for _, m := range yamlutil.Pairs(item) {
		if !httputil.IsMethod(m.Key) {
			continue
		}
		op, err := a.operation(resource, m.Key, m.Value, shared)
		if err != nil {
			return fmt.Errorf("openapi: %s %s: %w", strings.ToUpper(m.Key), resource, err)
		}
		a.ops = append(a.ops, op)
	}
	return nil
}

func (a *adapter) operation(resource, verb string, n *yaml.Node, shared []*yaml.Node) (*apispec.Operation, error) {
	op := &apispec.Operation{
		Route:    a.prefix + resource,
		Resource: resource,
		Verb:     verb,
		Schemes:  a.protocols,
	}

	security := yamlutil.Get(n, "security")
	if security == nil {
		security = a.security
	}
	op.Security = a.authTypes(security)

	params, err := a.parameters(shared, yamlutil.Items(yamlutil.Get(n, "parameters")))
	if err != nil {
		return nil, err
	}
	op.Params = params

	if rb := a.deref(yamlutil.Get(n, "requestBody")); rb != nil {
		bodies, err := a.content(yamlutil.Get(rb, "content"))
		if err != nil {
			return nil, err
		}
		op.Requests = bodies
	}

	for _, r := range yamlutil.Pairs(yamlutil.Get(n, "responses")) {
		status, ok := httputil.ParseStatusCode(r.Key)
		if !ok {
			// default and range responses describe no concrete status
			continue
		}
		bodies, err := a.content(yamlutil.Get(a.deref(r.Value), "content"))
		if err != nil {
			return nil, err
		}
		op.Responses = append(op.Responses, apispec.Response{Status: status, Bodies: bodies})
	}
	return op, nil
}

// parameters merges path-level and operation-level parameters. An
// operation parameter replaces the path parameter with the same name and
// location.
func (a *adapter) parameters(shared, own []*yaml.Node) ([]*parameter.Parameter, error) {
	type key struct{ name, in string }
	var (
		order []key
		decls = make(map[key]*yaml.Node)
	)
	for _, group := range [][]*yaml.Node{shared, own} {
		for _, n := range group {
			n = a.deref(n)
			k := key{yamlutil.String(yamlutil.Get(n, "name")), yamlutil.String(yamlutil.Get(n, "in"))}
			if _, ok := decls[k]; !ok {
				order = append(order, k)
			}
			decls[k] = n
		}
	}

	out := make([]*parameter.Parameter, 0, len(order))
	for _, k := range order {
		p, err := a.parameter(k.name, k.in, decls[k])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

var locations = map[string]parameter.Location{
	"path":   parameter.LocationPath,
	"query":  parameter.LocationQuery,
	"header": parameter.LocationHeader,
	"cookie": parameter.LocationCookie,
}

func (a *adapter) parameter(name, in string, n *yaml.Node) (*parameter.Parameter, error) {
	loc, ok := locations[in]
	if !ok {
		return nil, &rresterrors.ConfigError{Option: "parameter " + name, Value: in, Message: "unknown location"}
	}
	required := in == "path" || yamlutil.Bool(yamlutil.Get(n, "required"), false)
	return schemaParameter(name, a.deref(yamlutil.Get(n, "schema")), loc, required)
}

// schemaParameter maps a primitive JSON Schema to a parameter descriptor.
// Arrays and objects are kept as their raw string.
func schemaParameter(name string, schema *yaml.Node, loc parameter.Location, required bool) (*parameter.Parameter, error) {
	typ := parameter.TypeString
	opts := []parameter.Option{parameter.WithLocation(loc)}

	switch yamlutil.String(yamlutil.Get(schema, "type")) {
	case "integer":
		typ = parameter.TypeInteger
	case "number":
		typ = parameter.TypeNumber
	case "boolean":
		typ = parameter.TypeBoolean
	case "string":
		switch yamlutil.String(yamlutil.Get(schema, "format")) {
		case "date":
			typ = parameter.TypeDateOnly
		case "date-time":
			typ = parameter.TypeDateTime
			opts = append(opts, parameter.WithDateFormat(time.RFC3339))
		case "binary":
			typ = parameter.TypeFile
		}
	}

	if enum := yamlutil.Strings(yamlutil.Get(schema, "enum")); len(enum) > 0 {
		opts = append(opts, parameter.WithEnum(enum...))
	}
	if pattern := yamlutil.String(yamlutil.Get(schema, "pattern")); pattern != "" {
		opts = append(opts, parameter.WithPattern(pattern))
	}
	minKey, maxKey := "minimum", "maximum"
	if typ == parameter.TypeString {
		minKey, maxKey = "minLength", "maxLength"
	}
	if v, ok := yamlutil.Float(yamlutil.Get(schema, minKey)); ok {
		opts = append(opts, parameter.WithMinimum(v))
	}
	if v, ok := yamlutil.Float(yamlutil.Get(schema, maxKey)); ok {
		opts = append(opts, parameter.WithMaximum(v))
	}
	return parameter.New(name, typ, required, opts...)
}

// content reads a media type map. Only JSON media types carry a schema.
func (a *adapter) content(n *yaml.Node) ([]apispec.Body, error) {
	var out []apispec.Body
	for _, p := range yamlutil.Pairs(n) {
		body := apispec.Body{ContentType: p.Key}
		if format, _ := httputil.Format(p.Key); format == httputil.FormatJSON {
			if schema := yamlutil.Get(p.Value, "schema"); schema != nil {
				text, err := a.schemaJSON(schema)
				if err != nil {
					return nil, err
				}
				body.Schema = text
			}
		}
		out = append(out, body)
	}
	return out, nil
}

// dialect2020 is the JSON Schema dialect of OpenAPI 3.1 schema objects.
const dialect2020 = "https://json-schema.org/draft/2020-12/schema"

// schemaJSON renders a schema as a standalone JSON document with the
// document components attached. OpenAPI 3.1 schemas are tagged with their
// 2020-12 dialect; 3.0 schemas are evaluated as draft 4.
func (a *adapter) schemaJSON(schema *yaml.Node) (string, error) {
	doc := schema
	if schema.Kind == yaml.MappingNode {
		doc = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		doc.Content = append(doc.Content, schema.Content...)
		if a.is31() && yamlutil.Get(schema, "$schema") == nil {
			doc.Content = append(doc.Content, strNode("$schema"), strNode(dialect2020))
		}
		if a.components != nil {
			doc.Content = append(doc.Content, strNode("components"), a.components)
		}
	}
	data, err := yamlutil.ToJSON(doc)
	if err != nil {
		return "", &rresterrors.ConfigError{Option: "schema", Message: "cannot encode schema as JSON", Cause: err}
	}
	return string(data), nil
}

func (a *adapter) is31() bool {
	return strings.HasPrefix(yamlutil.String(yamlutil.Get(a.root, "openapi")), "3.1")
}

func strNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// authTypes lists the scheme types of a security requirement list. An
// empty requirement allows anonymous access and adds nothing.
func (a *adapter) authTypes(security *yaml.Node) []string {
	var out []string
	for _, req := range yamlutil.Items(security) {
		for _, p := range yamlutil.Pairs(req) {
			typ, ok := a.schemes[p.Key]
			if !ok {
				typ = p.Key
			}
			if !slices.Contains(out, typ) {
				out = append(out, typ)
			}
		}
	}
	return out
}

// schemeType names a security scheme: the HTTP auth scheme for http
// schemes (basic, bearer), the scheme type otherwise.
func schemeType(n *yaml.Node) string {
	typ := yamlutil.String(yamlutil.Get(n, "type"))
	if typ == "http" {
		if scheme := yamlutil.String(yamlutil.Get(n, "scheme")); scheme != "" {
			return strings.ToLower(scheme)
		}
	}
	return typ
}

// Package raml adapts RAML 0.8 and 1.0 documents to the apispec view.
//
// Routes are served under "/{version}{resourceUri}". Query, URI, base URI,
// header and form parameters become parameter descriptors; bodies reference
// a named schema, a RAML 1.0 type holding a schema, or an inline JSON
// Schema / XSD document. Values tagged !include are read relative to the
// directory given with WithBaseDir.
package raml

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v4"

	"github.com/erraggy/rrest/apispec"
	"github.com/erraggy/rrest/internal/httputil"
	"github.com/erraggy/rrest/internal/yamlutil"
	"github.com/erraggy/rrest/parameter"
	"github.com/erraggy/rrest/rresterrors"
)

// Header is the comment line every RAML document starts with.
const Header = "#%RAML"

// Option configures Parse.
type Option func(*config)

type config struct {
	baseDir string
}

// WithBaseDir sets the directory !include paths are resolved against.
// Without it, !include values are rejected.
func WithBaseDir(dir string) Option {
	return func(c *config) {
		c.baseDir = dir
	}
}

// IsRAML reports whether data starts with the RAML header.
func IsRAML(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte(Header))
}

// Parse adapts a RAML document.
func Parse(data []byte, opts ...Option) (*apispec.Catalog, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if !IsRAML(data) {
		return nil, &rresterrors.ConfigError{Option: "raml", Message: "missing " + Header + " header"}
	}

	root, err := yamlutil.Root(data)
	if err != nil {
		return nil, fmt.Errorf("raml: %w", err)
	}

	a := &adapter{
		cfg:           cfg,
		version:       yamlutil.String(yamlutil.Get(root, "version")),
		mediaType:     yamlutil.String(yamlutil.Get(root, "mediaType")),
		protocols:     lower(yamlutil.Strings(yamlutil.Get(root, "protocols"))),
		securedBy:     yamlutil.Get(root, "securedBy"),
		baseURIParams: yamlutil.Get(root, "baseUriParameters"),
		schemes:       make(map[string]string),
		schemas:       make(map[string]string),
	}
	if err := a.collectSecuritySchemes(yamlutil.Get(root, "securitySchemes")); err != nil {
		return nil, err
	}
	for _, key := range []string{"schemas", "types"} {
		if err := a.collectSchemas(yamlutil.Get(root, key)); err != nil {
			return nil, err
		}
	}

	if err := a.walk(root, "", nil); err != nil {
		return nil, err
	}

	info := apispec.Info{
		Title:   yamlutil.String(yamlutil.Get(root, "title")),
		Version: a.version,
		BaseURI: yamlutil.String(yamlutil.Get(root, "baseUri")),
		Format:  "raml",
	}
	return apispec.NewCatalog(info, a.ops)
}

type adapter struct {
	cfg           *config
	version       string
	mediaType     string
	protocols     []string
	securedBy     *yaml.Node
	baseURIParams *yaml.Node

	// schemes maps security scheme names to their type
	schemes map[string]string

	// schemas maps schema and type names to their text
	schemas map[string]string

	ops []*apispec.Operation
}

// entries accepts both the RAML 0.8 list-of-maps form and the RAML 1.0 map
// form of named declarations.
func entries(n *yaml.Node) []yamlutil.Pair {
	if items := yamlutil.Items(n); items != nil {
		var out []yamlutil.Pair
		for _, item := range items {
			out = append(out, yamlutil.Pairs(item)...)
		}
		return out
	}
	return yamlutil.Pairs(n)
}

func (a *adapter) collectSecuritySchemes(n *yaml.Node) error {
	for _, p := range entries(n) {
		v, err := a.include(p.Value)
		if err != nil {
			return err
		}
		typ := p.Key
		if t := yamlutil.String(yamlutil.Get(v, "type")); t != "" {
			typ = t
		}
		a.schemes[p.Key] = typ
	}
	return nil
}

func (a *adapter) collectSchemas(n *yaml.Node) error {
	for _, p := range entries(n) {
		v, err := a.include(p.Value)
		if err != nil {
			return err
		}
		// RAML 1.0 types may wrap the schema: {type: <schema>}
		if inner := yamlutil.Get(v, "type"); inner != nil {
			if v, err = a.include(inner); err != nil {
				return err
			}
		}
		if text := yamlutil.String(v); isSchemaText(text) {
			a.schemas[p.Key] = text
		}
	}
	return nil
}

// include replaces an !include scalar by a scalar holding the file content.
func (a *adapter) include(n *yaml.Node) (*yaml.Node, error) {
	if n == nil || n.Tag != "!include" {
		return n, nil
	}
	if a.cfg.baseDir == "" {
		return nil, &rresterrors.ConfigError{Option: "raml", Value: n.Value, Message: "!include needs a base directory"}
	}
	data, err := os.ReadFile(filepath.Join(a.cfg.baseDir, filepath.FromSlash(n.Value)))
	if err != nil {
		return nil, &rresterrors.ConfigError{Option: "raml", Value: n.Value, Message: "cannot read included file", Cause: err}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(data)}, nil
}

// walk visits the resources under n. inherited holds the URI parameters of
// the parent resources.
func (a *adapter) walk(n *yaml.Node, prefix string, inherited []*yaml.Node) error {
	for _, p := range yamlutil.Pairs(n) {
		if !strings.HasPrefix(p.Key, "/") {
			continue
		}
		uri := prefix + p.Key
		res := p.Value

		uriParams := inherited
		if up := yamlutil.Get(res, "uriParameters"); up != nil {
			uriParams = append(append([]*yaml.Node(nil), inherited...), up)
		}

		for _, m := range yamlutil.Pairs(res) {
			if !httputil.IsMethod(m.Key) {
				continue
			}
			op, err := a.operation(uri, res, m.Key, m.Value, uriParams)
			if err != nil {
				return fmt.Errorf("raml: %s %s: %w", strings.ToUpper(m.Key), uri, err)
			}
			a.ops = append(a.ops, op)
		}

		if err := a.walk(res, uri, uriParams); err != nil {
			return err
		}
	}
	return nil
}

func (a *adapter) operation(uri string, res *yaml.Node, verb string, method *yaml.Node, uriParams []*yaml.Node) (*apispec.Operation, error) {
	route := uri
	if a.version != "" {
		route = "/" + a.version + uri
	}
	op := &apispec.Operation{
		Route:    route,
		Resource: uri,
		Verb:     verb,
		Schemes:  a.protocols,
	}
	if p := lower(yamlutil.Strings(yamlutil.Get(method, "protocols"))); len(p) > 0 {
		op.Schemes = p
	}
	op.Security = a.authTypes(method, res)

	type group struct {
		node     *yaml.Node
		loc      parameter.Location
		required bool
	}
	groups := []group{{yamlutil.Get(method, "queryParameters"), parameter.LocationQuery, false}}
	for _, up := range uriParams {
		groups = append(groups, group{up, parameter.LocationPath, true})
	}
	groups = append(groups,
		group{a.baseURIParams, parameter.LocationPath, true},
		group{yamlutil.Get(res, "baseUriParameters"), parameter.LocationPath, true},
		group{yamlutil.Get(method, "baseUriParameters"), parameter.LocationPath, true},
		group{yamlutil.Get(method, "headers"), parameter.LocationHeader, false},
	)
	seen := make(map[string]bool)
	for _, g := range groups {
		for _, p := range yamlutil.Pairs(g.node) {
			// version is part of the route, not a request variable
			if p.Key == "version" && g.loc == parameter.LocationPath && a.version != "" {
				continue
			}
			if seen[p.Key] {
				continue
			}
			seen[p.Key] = true
			param, err := namedParameter(p.Key, p.Value, g.loc, g.required)
			if err != nil {
				return nil, err
			}
			op.Params = append(op.Params, param)
		}
	}

	bodies, form, err := a.bodies(yamlutil.Get(method, "body"))
	if err != nil {
		return nil, err
	}
	op.Requests = bodies
	for _, p := range form {
		if !seen[p.Name()] {
			seen[p.Name()] = true
			op.Params = append(op.Params, p)
		}
	}

	for _, r := range yamlutil.Pairs(yamlutil.Get(method, "responses")) {
		status, ok := httputil.ParseStatusCode(r.Key)
		if !ok {
			return nil, &rresterrors.ConfigError{Option: "responses", Value: r.Key, Message: "invalid status code"}
		}
		bodies, _, err := a.bodies(yamlutil.Get(r.Value, "body"))
		if err != nil {
			return nil, err
		}
		op.Responses = append(op.Responses, apispec.Response{Status: status, Bodies: bodies})
	}
	return op, nil
}

// authTypes resolves securedBy (method, then resource, then root) to
// security scheme types. A null entry stands for anonymous access.
func (a *adapter) authTypes(method, res *yaml.Node) []string {
	n := yamlutil.Get(method, "securedBy")
	if n == nil {
		n = yamlutil.Get(res, "securedBy")
	}
	if n == nil {
		n = a.securedBy
	}
	var out []string
	for _, item := range yamlutil.Items(n) {
		name := yamlutil.String(item)
		if item.Kind == yaml.MappingNode {
			if pairs := yamlutil.Pairs(item); len(pairs) > 0 {
				name = pairs[0].Key
			}
		}
		if name == "" {
			continue
		}
		if typ, ok := a.schemes[name]; ok {
			out = append(out, typ)
		} else {
			out = append(out, name)
		}
	}
	return out
}

// bodies reads a body declaration. Form content types contribute their
// formParameters as form parameters instead of a schema.
func (a *adapter) bodies(n *yaml.Node) ([]apispec.Body, []*parameter.Parameter, error) {
	if yamlutil.IsNull(n) {
		return nil, nil, nil
	}
	pairs := yamlutil.Pairs(n)
	if len(pairs) > 0 && !strings.Contains(pairs[0].Key, "/") && a.mediaType != "" {
		// body declared without media type: the root default applies
		pairs = []yamlutil.Pair{{Key: a.mediaType, Value: n}}
	}

	var (
		out  []apispec.Body
		form []*parameter.Parameter
	)
	for _, p := range pairs {
		body := apispec.Body{ContentType: p.Key}
		schemaNode := yamlutil.Get(p.Value, "schema")
		if schemaNode == nil {
			schemaNode = yamlutil.Get(p.Value, "type")
		}
		schemaNode, err := a.include(schemaNode)
		if err != nil {
			return nil, nil, err
		}
		body.Schema = a.schemaText(yamlutil.String(schemaNode))
		out = append(out, body)

		for _, fp := range yamlutil.Pairs(yamlutil.Get(p.Value, "formParameters")) {
			param, err := namedParameter(fp.Key, fp.Value, parameter.LocationForm, false)
			if err != nil {
				return nil, nil, err
			}
			form = append(form, param)
		}
	}
	return out, form, nil
}

// schemaText resolves a schema reference: a declared name, or the inline
// document itself. Anything else (RAML 1.0 type expressions) has no
// schema.
func (a *adapter) schemaText(ref string) string {
	if text, ok := a.schemas[ref]; ok {
		return text
	}
	if isSchemaText(ref) {
		return ref
	}
	return ""
}

func isSchemaText(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "<")
}

func lower(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

// Package swagger adapts Swagger 2.0 documents to the apispec view, using
// the go-openapi object model. YAML input is converted to JSON first.
package swagger

import (
	"bytes"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/go-openapi/spec"
	"github.com/goccy/go-json"
	"sigs.k8s.io/yaml"

	"github.com/erraggy/rrest/apispec"
	"github.com/erraggy/rrest/internal/httputil"
	"github.com/erraggy/rrest/parameter"
	"github.com/erraggy/rrest/rresterrors"
)

// defaultMediaType applies when neither the operation nor the document
// declares consumes or produces.
const defaultMediaType = "application/json"

// Parse adapts a Swagger 2.0 document in JSON or YAML.
func Parse(data []byte) (*apispec.Catalog, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] != '{' {
		converted, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("swagger: %w", err)
		}
		data = converted
	}

	var sw spec.Swagger
	if err := json.Unmarshal(data, &sw); err != nil {
		return nil, fmt.Errorf("swagger: %w", err)
	}
	if sw.Swagger != "2.0" {
		return nil, &rresterrors.ConfigError{Option: "swagger", Value: sw.Swagger, Message: "unsupported swagger version"}
	}

	a := &adapter{doc: &sw, prefix: strings.TrimSuffix(sw.BasePath, "/")}
	if sw.Paths != nil {
		resources := make([]string, 0, len(sw.Paths.Paths))
		for r := range sw.Paths.Paths {
			resources = append(resources, r)
		}
		sort.Strings(resources)
		for _, r := range resources {
			if err := a.pathItem(r, sw.Paths.Paths[r]); err != nil {
				return nil, err
			}
		}
	}

	info := apispec.Info{BaseURI: sw.Host + sw.BasePath, Format: "swagger"}
	if sw.Info != nil {
		info.Title = sw.Info.Title
		info.Version = sw.Info.Version
	}
	return apispec.NewCatalog(info, a.ops)
}

type adapter struct {
	doc    *spec.Swagger
	prefix string
	ops    []*apispec.Operation
}

func (a *adapter) pathItem(resource string, item spec.PathItem) error {
	methods := []struct {
		verb string
		op   *spec.Operation
	}{
		{httputil.MethodGet, item.Get},
		{httputil.MethodPut, item.Put},
		{httputil.MethodPost, item.Post},
		{httputil.MethodDelete, item.Delete},
		{httputil.MethodOptions, item.Options},
		{httputil.MethodHead, item.Head},
		{httputil.MethodPatch, item.Patch},
	}
	for _, m := range methods {
		if m.op == nil {
			continue
		}
		op, err := a.operation(resource, m.verb, m.op, item.Parameters)
		if err != nil {
			return fmt.Errorf("swagger: %s %s: %w", strings.ToUpper(m.verb), resource, err)
		}
		a.ops = append(a.ops, op)
	}
	return nil
}

func (a *adapter) operation(resource, verb string, o *spec.Operation, shared []spec.Parameter) (*apispec.Operation, error) {
	op := &apispec.Operation{
		Route:    a.prefix + resource,
		Resource: resource,
		Verb:     verb,
		Schemes:  lower(firstNonEmpty(o.Schemes, a.doc.Schemes)),
	}

	security := o.Security
	if security == nil {
		security = a.doc.Security
	}
	for _, req := range security {
		names := make([]string, 0, len(req))
		for name := range req {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			typ := name
			if s, ok := a.doc.SecurityDefinitions[name]; ok && s != nil {
				typ = s.Type
			}
			if !slices.Contains(op.Security, typ) {
				op.Security = append(op.Security, typ)
			}
		}
	}

	params, err := a.parameters(shared, o.Parameters)
	if err != nil {
		return nil, err
	}

	var (
		bodySchema *spec.Schema
		hasForm    bool
	)
	for _, p := range params {
		switch p.In {
		case "body":
			bodySchema = p.Schema
			if bodySchema == nil {
				bodySchema = &spec.Schema{}
			}
			continue
		case "formData":
			hasForm = true
		}
		param, err := simpleParameter(p)
		if err != nil {
			return nil, err
		}
		op.Params = append(op.Params, param)
	}

	if bodySchema != nil || hasForm {
		for _, ct := range firstNonEmpty(o.Consumes, a.doc.Consumes, []string{defaultMediaType}) {
			body := apispec.Body{ContentType: ct}
			if bodySchema != nil {
				if body.Schema, err = a.schemaFor(ct, bodySchema); err != nil {
					return nil, err
				}
			}
			op.Requests = append(op.Requests, body)
		}
	}

	if o.Responses != nil {
		produces := firstNonEmpty(o.Produces, a.doc.Produces, []string{defaultMediaType})
		statuses := make([]int, 0, len(o.Responses.StatusCodeResponses))
		for status := range o.Responses.StatusCodeResponses {
			statuses = append(statuses, status)
		}
		sort.Ints(statuses)
		for _, status := range statuses {
			resp := o.Responses.StatusCodeResponses[status]
			if resp.Ref.String() != "" {
				resolved, err := spec.ResolveResponse(a.doc, resp.Ref)
				if err != nil {
					return nil, &rresterrors.ConfigError{Option: "responses", Value: resp.Ref.String(), Message: "unresolved reference", Cause: err}
				}
				resp = *resolved
			}
			r := apispec.Response{Status: status}
			if status != 204 {
				for _, ct := range produces {
					body := apispec.Body{ContentType: ct}
					if resp.Schema != nil {
						if body.Schema, err = a.schemaFor(ct, resp.Schema); err != nil {
							return nil, err
						}
					}
					r.Bodies = append(r.Bodies, body)
				}
			}
			op.Responses = append(op.Responses, r)
		}
	}
	return op, nil
}

// parameters resolves references and lets operation parameters replace
// path parameters with the same name and location.
func (a *adapter) parameters(shared, own []spec.Parameter) ([]spec.Parameter, error) {
	var out []spec.Parameter
	index := make(map[string]int)
	for _, group := range [][]spec.Parameter{shared, own} {
		for _, p := range group {
			if p.Ref.String() != "" {
				resolved, err := spec.ResolveParameter(a.doc, p.Ref)
				if err != nil {
					return nil, &rresterrors.ConfigError{Option: "parameters", Value: p.Ref.String(), Message: "unresolved reference", Cause: err}
				}
				p = *resolved
			}
			key := p.In + ":" + p.Name
			if i, ok := index[key]; ok {
				out[i] = p
				continue
			}
			index[key] = len(out)
			out = append(out, p)
		}
	}
	return out, nil
}

var locations = map[string]parameter.Location{
	"path":     parameter.LocationPath,
	"query":    parameter.LocationQuery,
	"header":   parameter.LocationHeader,
	"formData": parameter.LocationForm,
}

func simpleParameter(p spec.Parameter) (*parameter.Parameter, error) {
	loc, ok := locations[p.In]
	if !ok {
		return nil, &rresterrors.ConfigError{Option: "parameter " + p.Name, Value: p.In, Message: "unknown location"}
	}

	typ := parameter.TypeString
	opts := []parameter.Option{parameter.WithLocation(loc)}
	switch p.Type {
	case "integer":
		typ = parameter.TypeInteger
	case "number":
		typ = parameter.TypeNumber
	case "boolean":
		typ = parameter.TypeBoolean
	case "file":
		typ = parameter.TypeFile
	case "string":
		switch p.Format {
		case "date":
			typ = parameter.TypeDateOnly
		case "date-time":
			typ = parameter.TypeDateTime
			opts = append(opts, parameter.WithDateFormat(time.RFC3339))
		}
	}

	if len(p.Enum) > 0 {
		enum := make([]string, len(p.Enum))
		for i, v := range p.Enum {
			enum[i] = fmt.Sprint(v)
		}
		opts = append(opts, parameter.WithEnum(enum...))
	}
	if p.Pattern != "" {
		opts = append(opts, parameter.WithPattern(p.Pattern))
	}
	if typ == parameter.TypeString {
		if p.MinLength != nil {
			opts = append(opts, parameter.WithMinimum(float64(*p.MinLength)))
		}
		if p.MaxLength != nil {
			opts = append(opts, parameter.WithMaximum(float64(*p.MaxLength)))
		}
	} else {
		if p.Minimum != nil {
			opts = append(opts, parameter.WithMinimum(*p.Minimum))
		}
		if p.Maximum != nil {
			opts = append(opts, parameter.WithMaximum(*p.Maximum))
		}
	}

	return parameter.New(p.Name, typ, p.In == "path" || p.Required, opts...)
}

// schemaFor renders a JSON schema with the document definitions attached.
// Non-JSON content types get no schema.
func (a *adapter) schemaFor(contentType string, schema *spec.Schema) (string, error) {
	if format, _ := httputil.Format(contentType); format != httputil.FormatJSON {
		return "", nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return "", &rresterrors.ConfigError{Option: "schema", Message: "cannot encode schema", Cause: err}
	}
	if len(a.doc.Definitions) == 0 {
		return string(raw), nil
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", &rresterrors.ConfigError{Option: "schema", Message: "cannot encode schema", Cause: err}
	}
	doc["definitions"] = a.doc.Definitions
	if raw, err = json.Marshal(doc); err != nil {
		return "", &rresterrors.ConfigError{Option: "schema", Message: "cannot encode schema", Cause: err}
	}
	return string(raw), nil
}

func firstNonEmpty(lists ...[]string) []string {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}

func lower(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

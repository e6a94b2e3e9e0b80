package raml

import (
	"strings"
	"time"

	"go.yaml.in/yaml/v4"

	"github.com/erraggy/rrest/internal/yamlutil"
	"github.com/erraggy/rrest/parameter"
)

// datetime format facet values
var dateFormats = map[string]string{
	"rfc3339": time.RFC3339,
	"rfc2616": parameter.DefaultDateFormat,
}

// namedParameter converts a RAML named parameter declaration. The RAML 1.0
// shorthands "name: type" and "name?:" are accepted.
func namedParameter(name string, n *yaml.Node, loc parameter.Location, required bool) (*parameter.Parameter, error) {
	if optional, ok := strings.CutSuffix(name, "?"); ok {
		name = optional
		required = false
	}

	typ := parameter.TypeString
	if s := yamlutil.String(n); s != "" && n.Kind == yaml.ScalarNode {
		typ = parameter.Type(s)
		return parameter.New(name, typ, required, parameter.WithLocation(loc))
	}
	if t := yamlutil.String(yamlutil.Get(n, "type")); t != "" {
		typ = parameter.Type(t)
	}
	required = yamlutil.Bool(yamlutil.Get(n, "required"), required)

	opts := []parameter.Option{parameter.WithLocation(loc)}
	if enum := yamlutil.Strings(yamlutil.Get(n, "enum")); len(enum) > 0 {
		opts = append(opts, parameter.WithEnum(enum...))
	}
	if pattern := yamlutil.String(yamlutil.Get(n, "pattern")); pattern != "" {
		opts = append(opts, parameter.WithPattern(pattern))
	}

	minKey, maxKey := "minimum", "maximum"
	if typ == parameter.TypeString {
		minKey, maxKey = "minLength", "maxLength"
	}
	if v, ok := yamlutil.Float(yamlutil.Get(n, minKey)); ok {
		opts = append(opts, parameter.WithMinimum(v))
	}
	if v, ok := yamlutil.Float(yamlutil.Get(n, maxKey)); ok {
		opts = append(opts, parameter.WithMaximum(v))
	}

	if typ == parameter.TypeDateTime {
		format := strings.ToLower(yamlutil.String(yamlutil.Get(n, "format")))
		if layout, ok := dateFormats[format]; ok {
			opts = append(opts, parameter.WithDateFormat(layout))
		}
	}

	return parameter.New(name, typ, required, opts...)
}

package payload

import (
	"sync"
	"sync/atomic"

	"github.com/erraggy/rrest/jsonschema"
	"github.com/erraggy/rrest/rresterrors"
	"github.com/erraggy/rrest/xsd"
)

// maxSchemaCacheSize bounds each compiled schema cache. The cache is
// cleared when it fills up.
const maxSchemaCacheSize = 256

// schemaCache memoizes compiled schemas by their source text. Specs are
// immutable once loaded, so the same few sources are compiled on every
// request otherwise.
type schemaCache struct {
	entries sync.Map // map[string]any
	count   atomic.Int32
}

func (c *schemaCache) load(src string, compile func() (any, error)) (any, error) {
	if v, ok := c.entries.Load(src); ok {
		return v, nil
	}
	v, err := compile()
	if err != nil {
		return nil, err
	}
	if c.count.Load() >= maxSchemaCacheSize {
		c.entries.Clear()
		c.count.Store(0)
	}
	if _, loaded := c.entries.LoadOrStore(src, v); !loaded {
		c.count.Add(1)
	}
	return v, nil
}

var (
	jsonSchemas schemaCache
	xmlSchemas  schemaCache
)

func compileJSONSchema(src string) (*jsonschema.Schema, error) {
	v, err := jsonSchemas.load(src, func() (any, error) {
		s, err := jsonschema.Compile([]byte(src))
		if err != nil {
			return nil, &rresterrors.ConfigError{Option: "schema", Message: "invalid JSON schema", Cause: err}
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*jsonschema.Schema), nil
}

func compileXMLSchema(src string) (*xsd.Schema, error) {
	v, err := xmlSchemas.load(src, func() (any, error) {
		s, err := xsd.Parse([]byte(src))
		if err != nil {
			return nil, &rresterrors.ConfigError{Option: "schema", Message: "invalid XML schema", Cause: err}
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*xsd.Schema), nil
}

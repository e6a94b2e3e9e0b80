package openapi

import (
	"os"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/rrest/apispec"
	"github.com/erraggy/rrest/jsonschema"
	"github.com/erraggy/rrest/parameter"
)

func loadSongs(t *testing.T) *apispec.Catalog {
	t.Helper()
	data, err := os.ReadFile("../../testdata/songs-openapi.yaml")
	require.NoError(t, err)
	doc, err := Parse(data)
	require.NoError(t, err)
	return doc
}

func TestParse_Info(t *testing.T) {
	doc := loadSongs(t)
	assert.Equal(t, apispec.Info{
		Title:   "Songs API",
		Version: "1.0.0",
		BaseURI: "https://api.example.com/v1/",
		Format:  "openapi",
	}, doc.Info())

	var routes []string
	for _, s := range doc.Routes() {
		routes = append(routes, s.Method()+" "+s.RoutePath())
	}
	assert.Equal(t, []string{
		"GET /v1/songs",
		"POST /v1/songs",
		"DELETE /v1/songs/{songId}",
		"GET /v1/songs/{songId}",
	}, routes)
}

func TestParse_Parameters(t *testing.T) {
	doc := loadSongs(t)

	t.Run("referenced and inline", func(t *testing.T) {
		op, ok := doc.Lookup("/v1/songs", "GET")
		require.True(t, ok)
		params := op.Parameters()
		require.Len(t, params, 3)

		assert.Equal(t, "limit", params[0].Name())
		assert.Equal(t, parameter.TypeInteger, params[0].Type())
		hi, ok := params[0].Maximum()
		require.True(t, ok)
		assert.Equal(t, 100.0, hi)

		assert.Equal(t, []string{"rock", "jazz", "pop"}, params[1].Enum())
		assert.Equal(t, parameter.TypeDateTime, params[2].Type())
		_, errs := params[2].Validate("2024-05-01T10:00:00Z")
		assert.Empty(t, errs)
	})

	t.Run("path level parameters", func(t *testing.T) {
		op, ok := doc.Lookup("/v1/songs/{songId}", "GET")
		require.True(t, ok)
		require.Len(t, op.Parameters(), 1)
		p := op.Parameters()[0]
		assert.True(t, p.Required())
		assert.Equal(t, parameter.LocationPath, p.Location())
		assert.Equal(t, parameter.TypeInteger, p.Type())
	})

	t.Run("operation overrides path parameter", func(t *testing.T) {
		op, ok := doc.Lookup("/v1/songs/{songId}", "DELETE")
		require.True(t, ok)
		params := op.Parameters()
		require.Len(t, params, 2)
		assert.Equal(t, parameter.TypeString, params[0].Type())
		assert.Equal(t, "^[0-9]+$", params[0].Pattern())

		assert.Equal(t, "X-Request-Id", params[1].Name())
		assert.Equal(t, parameter.LocationHeader, params[1].Location())
		assert.True(t, params[1].Required())
	})
}

func TestParse_Security(t *testing.T) {
	doc := loadSongs(t)
	tests := []struct {
		route, method string
		want          []string
	}{
		{"/v1/songs", "GET", nil},
		{"/v1/songs", "POST", []string{"bearer"}},
		{"/v1/songs/{songId}", "GET", []string{"apiKey"}},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.route, func(t *testing.T) {
			op, ok := doc.Lookup(tt.route, tt.method)
			require.True(t, ok)
			assert.Equal(t, tt.want, op.AuthTypes())
			assert.Equal(t, []string{"https", "http"}, op.Protocols())
		})
	}
}

func TestParse_Bodies(t *testing.T) {
	doc := loadSongs(t)

	post, ok := doc.Lookup("/v1/songs", "POST")
	require.True(t, ok)
	assert.Equal(t, []string{"application/json"}, post.RequestBodyContentTypes())
	assert.Equal(t, []int{201}, post.StatusCodes())

	text, ok := post.RequestBodySchema("application/json")
	require.True(t, ok)
	schema, err := jsonschema.Compile([]byte(text))
	require.NoError(t, err)

	var valid, invalid any
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Blue","artist":"Joni"}`), &valid))
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Blue","year":1800}`), &invalid))
	assert.Empty(t, jsonschema.Validate(schema, valid))
	assert.Len(t, jsonschema.Validate(schema, invalid), 2)

	get, ok := doc.Lookup("/v1/songs/{songId}", "GET")
	require.True(t, ok)
	assert.Equal(t, []int{200, 404}, get.StatusCodes())
	assert.Equal(t, []string{"application/json", "application/xml"}, get.ResponseBodyContentTypes())
	_, ok = get.ResponseBodySchema(200, "application/json")
	assert.True(t, ok)
	_, ok = get.ResponseBodySchema(200, "application/xml")
	assert.False(t, ok, "xml bodies carry no schema")

	list, ok := doc.Lookup("/v1/songs", "GET")
	require.True(t, ok)
	assert.Equal(t, []int{200}, list.StatusCodes(), "default response is skipped")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "swagger document", doc: "swagger: '2.0'\n"},
		{name: "invalid yaml", doc: "openapi: [\n"},
		{name: "unknown location", doc: "openapi: 3.0.0\npaths:\n  /a:\n    get:\n      parameters:\n        - name: a\n          in: body\n"},
		{name: "bad enum", doc: "openapi: 3.0.0\npaths:\n  /a:\n    get:\n      parameters:\n        - name: a\n          in: query\n          schema: {type: integer, enum: [x]}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_JSONInput(t *testing.T) {
	doc := `{"openapi": "3.1.0", "info": {"title": "T", "version": "2"},
  "paths": {"/ping": {"get": {"responses": {"200": {"description": "ok"}}}}}}`
	c, err := Parse([]byte(doc))
	require.NoError(t, err)
	_, vars, err := c.Resolve("get", "/ping")
	require.NoError(t, err)
	assert.Empty(t, vars)
}

func TestParse_Dialect(t *testing.T) {
	tests := []struct {
		name    string
		version string
		bound   string
	}{
		{name: "3.0 boolean exclusive bound", version: "3.0.3", bound: "minimum: 0\n                  exclusiveMinimum: true"},
		{name: "3.1 numeric exclusive bound", version: "3.1.0", bound: "exclusiveMinimum: 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `openapi: ` + tt.version + `
info: {title: T, version: "1"}
paths:
  /songs:
    post:
      requestBody:
        content:
          application/json:
            schema:
              type: object
              properties:
                rating:
                  type: number
                  ` + tt.bound + `
      responses:
        "201": {description: created}
`
			c, err := Parse([]byte(doc))
			require.NoError(t, err)
			op, ok := c.Lookup("/songs", "POST")
			require.True(t, ok)
			text, ok := op.RequestBodySchema("application/json")
			require.True(t, ok)

			schema, err := jsonschema.Compile([]byte(text))
			require.NoError(t, err)
			vs := jsonschema.Validate(schema, map[string]any{"rating": 0.0})
			require.Len(t, vs, 1)
			assert.Equal(t, "minimum", vs[0].Keyword)
			assert.Equal(t, int64(0), vs[0].Parameter)
			assert.Empty(t, jsonschema.Validate(schema, map[string]any{"rating": 0.5}))
		})
	}
}

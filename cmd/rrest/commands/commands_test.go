package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/rrest/loader"
)

const ramlFixture = "../../../testdata/songs.raml"

func TestListRoutes(t *testing.T) {
	doc, err := loader.Load(context.Background(), ramlFixture)
	require.NoError(t, err)

	routes := ListRoutes(doc)
	require.Len(t, routes, 4)
	assert.Equal(t, "GET", routes[0].Method)
	assert.Equal(t, "/v1/songs", routes[0].Path)
	assert.Equal(t, "/songs", routes[0].Resource)
	assert.Equal(t, 200, routes[0].SuccessStatus)
	assert.Empty(t, routes[0].AuthTypes)
	assert.Equal(t, []string{"OAuth 2.0"}, routes[1].AuthTypes)
}

func TestHandleRoutes(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, HandleRoutes(context.Background(), &buf, ramlFixture, FormatText))
		assert.Contains(t, buf.String(), "Songs API v1 (raml)")
		assert.Contains(t, buf.String(), "METHOD")
		assert.Regexp(t, `POST\s+/v1/songs\s+201\s+OAuth 2.0`, buf.String())
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, HandleRoutes(context.Background(), &buf, ramlFixture, FormatJSON))
		var routes []RouteInfo
		require.NoError(t, json.Unmarshal(buf.Bytes(), &routes))
		assert.Len(t, routes, 4)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, HandleRoutes(context.Background(), &buf, ramlFixture, FormatYAML))
		assert.Contains(t, buf.String(), "method: GET")
	})

	t.Run("bad format", func(t *testing.T) {
		assert.Error(t, HandleRoutes(context.Background(), &bytes.Buffer{}, ramlFixture, "xml"))
	})
}

func TestRunValidate(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{}`), 0o600))
	song := filepath.Join(dir, "song.json")
	require.NoError(t, os.WriteFile(song, []byte(`{"title":"Blue","artist":"Joni","year":1971}`), 0o600))

	tests := []struct {
		name   string
		req    ValidateRequest
		status int
	}{
		{name: "valid query", req: ValidateRequest{Path: "/v1/songs?limit=5&genre=jazz"}, status: 200},
		{name: "out of range", req: ValidateRequest{Path: "/v1/songs?limit=500"}, status: 422},
		{name: "bad enum", req: ValidateRequest{Path: "/v1/songs?genre=metal"}, status: 422},
		{name: "unknown path", req: ValidateRequest{Path: "/v1/albums"}, status: 404},
		{name: "unknown method", req: ValidateRequest{Method: "DELETE", Path: "/v1/songs"}, status: 405},
		{
			name:   "valid body",
			req:    ValidateRequest{Method: "POST", Path: "/v1/songs", BodyFile: song, Headers: []string{"Content-Type: application/json"}},
			status: 201,
		},
		{
			name:   "missing fields",
			req:    ValidateRequest{Method: "POST", Path: "/v1/songs", BodyFile: empty, Headers: []string{"Content-Type: application/json"}},
			status: 422,
		},
		{
			name:   "not acceptable",
			req:    ValidateRequest{Path: "/v1/songs", Headers: []string{"Accept: text/csv"}},
			status: 406,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Source = ramlFixture
			res, err := RunValidate(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, res.Status, "%v", res.Body)
			assert.Equal(t, tt.status < 400, res.Valid())
		})
	}

	t.Run("typed echo", func(t *testing.T) {
		res, err := RunValidate(context.Background(), ValidateRequest{Source: ramlFixture, Path: "/v1/songs?limit=5"})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"params": map[string]any{"limit": float64(5)}, "body": nil}, res.Body)
	})

	t.Run("route without response body", func(t *testing.T) {
		_, err := RunValidate(context.Background(), ValidateRequest{
			Source: ramlFixture, Method: "POST", Path: "/v1/songs/1/comments", Scheme: "https",
		})
		assert.Error(t, err)
	})

	t.Run("malformed header", func(t *testing.T) {
		_, err := RunValidate(context.Background(), ValidateRequest{Source: ramlFixture, Path: "/v1/songs", Headers: []string{"nocolon"}})
		assert.Error(t, err)
	})

	for _, tt := range []struct {
		name string
		req  ValidateRequest
	}{
		{name: "relative path", req: ValidateRequest{Path: "v1/songs"}},
		{name: "malformed escape", req: ValidateRequest{Path: "/v1/songs/%zz"}},
		{name: "invalid method", req: ValidateRequest{Method: "GE T", Path: "/v1/songs"}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Source = ramlFixture
			_, err := RunValidate(context.Background(), tt.req)
			assert.Error(t, err)
		})
	}
}

func TestHandleValidate(t *testing.T) {
	var buf bytes.Buffer
	err := HandleValidate(context.Background(), &buf, ValidateRequest{Source: ramlFixture, Path: "/v1/songs?limit=0"})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "HTTP 422 Unprocessable Entity")
	assert.Contains(t, buf.String(), "limit minimum size is 1")

	buf.Reset()
	err = HandleValidate(context.Background(), &buf, ValidateRequest{Source: ramlFixture, Path: "/v1/songs", Format: FormatJSON})
	require.NoError(t, err)
	var res ValidateResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &res))
	assert.Equal(t, 200, res.Status)
}

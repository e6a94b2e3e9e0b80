package muxprovider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/rrest/apispec"
	"github.com/erraggy/rrest/dispatch"
	"github.com/erraggy/rrest/parameter"
)

func songRoutes() []*apispec.Operation {
	jsonBody := []apispec.Body{{ContentType: "application/json"}}
	return []*apispec.Operation{
		{
			Route: "/v1/songs/{songId}", Resource: "/songs/{songId}", Verb: "get",
			Params: []*parameter.Parameter{
				parameter.MustNew("songId", parameter.TypeInteger, true, parameter.WithLocation(parameter.LocationPath)),
			},
			Responses: []apispec.Response{{Status: 200, Bodies: jsonBody}},
		},
		{
			Route: "/v1/songs/{songId}", Resource: "/songs/{songId}", Verb: "delete",
			Responses: []apispec.Response{{Status: 204, Bodies: jsonBody}},
		},
	}
}

func setup(t *testing.T, opts ...Option) *Provider {
	t.Helper()
	p := New(mux.NewRouter(), opts...)
	d, err := dispatch.New(dispatch.WithProvider(p))
	require.NoError(t, err)

	echo := dispatch.HandlerFunc(func(_ context.Context, req *dispatch.Request, resp *dispatch.Response) error {
		return resp.SetContent(req.Params())
	})
	for _, op := range songRoutes() {
		_, err := d.Register(op, echo)
		require.NoError(t, err)
	}
	return p
}

func TestProvider(t *testing.T) {
	p := setup(t)

	tests := []struct {
		name   string
		method string
		target string
		status int
		body   string
		allow  string
	}{
		{name: "path variable", method: "GET", target: "/v1/songs/12", status: http.StatusOK, body: `{"songId":12}`},
		{name: "trailing slash", method: "GET", target: "/v1/songs/12/", status: http.StatusOK, body: `{"songId":12}`},
		{name: "invalid variable", method: "GET", target: "/v1/songs/twelve", status: http.StatusUnprocessableEntity},
		{name: "delete", method: "DELETE", target: "/v1/songs/12", status: http.StatusNoContent},
		{name: "unknown path", method: "GET", target: "/v1/albums", status: http.StatusNotFound},
		{name: "unknown method", method: "PATCH", target: "/v1/songs/12", status: http.StatusMethodNotAllowed, allow: "DELETE, GET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			p.ServeHTTP(w, httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.body != "" {
				assert.JSONEq(t, tt.body, w.Body.String())
			}
			if tt.allow != "" {
				assert.Equal(t, tt.allow, w.Header().Get("Allow"))
			}
			if tt.status >= 400 {
				assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			}
		})
	}
}

func TestProvider_CORS(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		p := setup(t)
		w := httptest.NewRecorder()
		p.ServeHTTP(w, httptest.NewRequest("OPTIONS", "/v1/songs/1", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("enabled", func(t *testing.T) {
		p := setup(t, WithCORS("", "", "Content-Type"))
		w := httptest.NewRecorder()
		p.ServeHTTP(w, httptest.NewRequest("OPTIONS", "/v1/songs/1", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, DefaultCORSMethods, w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
	})
}

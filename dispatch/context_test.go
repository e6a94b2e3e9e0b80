package dispatch

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/rrest/apispec"
	"github.com/erraggy/rrest/parameter"
	"github.com/erraggy/rrest/rresterrors"
)

func TestHTTPContext_Protocol(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		tls    bool
		want   string
	}{
		{name: "plain", want: "http"},
		{name: "tls", tls: true, want: "https"},
		{name: "forwarded proto", header: map[string]string{"X-Forwarded-Proto": "HTTPS"}, want: "https"},
		{name: "forwarded ssl", header: map[string]string{"X-Forwarded-Ssl": "on"}, want: "https"},
		{name: "forwarded http", header: map[string]string{"X-Forwarded-Proto": "http"}, want: "http"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			if tt.tls {
				r.TLS = &tls.ConnectionState{}
			}
			rc, err := NewHTTPContext(r, nil, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rc.Protocol())
		})
	}
}

func TestHTTPContext_Param(t *testing.T) {
	r := httptest.NewRequest("POST", "/songs/9?q=one&tag=a&tag=b&id=query",
		strings.NewReader("author=ann&id=form"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-Trace", "abc")
	r.AddCookie(&http.Cookie{Name: "session", Value: "s1"})

	rc, err := NewHTTPContext(r, map[string]string{"id": "9"}, 0)
	require.NoError(t, err)

	tests := []struct {
		name  string
		loc   parameter.Location
		want  any
		found bool
	}{
		{name: "id", loc: parameter.LocationAny, want: "9", found: true},
		{name: "id", loc: parameter.LocationQuery, want: "query", found: true},
		{name: "id", loc: parameter.LocationForm, want: "form", found: true},
		{name: "q", loc: parameter.LocationAny, want: "one", found: true},
		{name: "tag", loc: parameter.LocationQuery, want: []string{"a", "b"}, found: true},
		{name: "author", loc: parameter.LocationAny, want: "ann", found: true},
		{name: "X-Trace", loc: parameter.LocationHeader, want: "abc", found: true},
		{name: "session", loc: parameter.LocationCookie, want: "s1", found: true},
		{name: "missing", loc: parameter.LocationAny},
		{name: "author", loc: parameter.LocationHeader},
	}
	for _, tt := range tests {
		t.Run(string(tt.loc)+"/"+tt.name, func(t *testing.T) {
			v, ok := rc.Param(tt.name, tt.loc)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, v)
		})
	}

	t.Run("hinted values win", func(t *testing.T) {
		rc.SetParam("q", 42)
		v, ok := rc.Param("q", parameter.LocationQuery)
		require.True(t, ok)
		assert.Equal(t, 42, v)
	})
}

func TestHTTPContext_BodyLimit(t *testing.T) {
	t.Run("raw body", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("x", 11)))
		_, err := NewHTTPContext(r, nil, 10)
		assert.True(t, errors.Is(err, rresterrors.ErrBodyTooLarge))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rresterrors.StatusCode(err))
	})

	t.Run("at the limit", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("x", 10)))
		rc, err := NewHTTPContext(r, nil, 10)
		require.NoError(t, err)
		assert.Len(t, rc.Body(), 10)
	})
}

func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("cover", "cover.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestServe_Multipart(t *testing.T) {
	op := &apispec.Operation{
		Route:    "/songs/{songId}/cover",
		Resource: "/songs/{songId}/cover",
		Verb:     "put",
		Params: []*parameter.Parameter{
			parameter.MustNew("songId", parameter.TypeInteger, true, parameter.WithLocation(parameter.LocationPath)),
			parameter.MustNew("caption", parameter.TypeString, true, parameter.WithLocation(parameter.LocationForm)),
			parameter.MustNew("cover", parameter.TypeFile, true, parameter.WithLocation(parameter.LocationForm)),
		},
		Requests:  []apispec.Body{{ContentType: "multipart/form-data"}},
		Responses: []apispec.Response{{Status: 204, Bodies: []apispec.Body{{ContentType: "application/json"}}}},
	}

	var got map[string]any
	d, err := New()
	require.NoError(t, err)
	_, err = d.Register(op, HandlerFunc(func(_ context.Context, req *Request, _ *Response) error {
		got = req.Params()
		return nil
	}))
	require.NoError(t, err)

	body, ct := multipartBody(t, map[string]string{"caption": "front"})
	r := httptest.NewRequest("PUT", "/songs/3/cover", body)
	r.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	d.ServeHTTP(w, r)

	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	assert.Equal(t, int64(3), got["songId"])
	assert.Equal(t, "front", got["caption"])
	fh, ok := got["cover"].(*multipart.FileHeader)
	require.True(t, ok)
	assert.Equal(t, "cover.png", fh.Filename)

	t.Run("missing field", func(t *testing.T) {
		body, ct := multipartBody(t, nil)
		r := httptest.NewRequest("PUT", "/songs/3/cover", body)
		r.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		d.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestTakeSnapshot(t *testing.T) {
	r := httptest.NewRequest("GET", "/?limit=5", nil)
	r.Header.Set("Accept", "application/json")
	rc, err := NewHTTPContext(r, nil, 0)
	require.NoError(t, err)

	snap := TakeSnapshot(rc, []*parameter.Parameter{
		parameter.MustNew("limit", parameter.TypeInteger, false),
		parameter.MustNew("offset", parameter.TypeInteger, false),
	})
	assert.Equal(t, "http", snap.Protocol)
	assert.Equal(t, "application/json", snap.Accept)
	assert.Equal(t, map[string]any{"limit": "5", "offset": nil}, snap.Raw)
}

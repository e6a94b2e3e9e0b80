package loader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ramlFixture    = "../testdata/songs.raml"
	openapiFixture = "../testdata/songs-openapi.yaml"
	swaggerFixture = "../testdata/songs-swagger.yaml"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Format
		wantErr bool
	}{
		{name: "raml", data: "#%RAML 1.0\ntitle: x\n", want: FormatRAML},
		{name: "openapi yaml", data: "openapi: 3.1.0\ninfo: {}\n", want: FormatOpenAPI},
		{name: "openapi json", data: `{"openapi": "3.0.0", "paths": {}}`, want: FormatOpenAPI},
		{name: "swagger", data: "swagger: '2.0'\n", want: FormatSwagger},
		{name: "openapi 2", data: "openapi: 2.0\n", wantErr: true},
		{name: "other yaml", data: "title: x\n", wantErr: true},
		{name: "not a mapping", data: "- a\n- b\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_Files(t *testing.T) {
	tests := []struct {
		source string
		format string
	}{
		{ramlFixture, "raml"},
		{openapiFixture, "openapi"},
		{swaggerFixture, "swagger"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			doc, err := Load(context.Background(), tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.format, doc.Info().Format)
			assert.Equal(t, "Songs API", doc.Info().Title)
			assert.NotEmpty(t, doc.Routes())
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(context.Background(), "../testdata/missing.raml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read file")
	})
}

func TestLoad_URL(t *testing.T) {
	data, err := os.ReadFile(openapiFixture)
	require.NoError(t, err)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/flaky.yaml":
			if hits.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write(data)
		case "/api.yaml":
			assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
			_, _ = w.Write(data)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := New(WithUserAgent("test-agent"), WithRetryMax(1), WithTimeout(5*time.Second))

	t.Run("ok", func(t *testing.T) {
		doc, err := l.Load(context.Background(), srv.URL+"/api.yaml")
		require.NoError(t, err)
		assert.Equal(t, "openapi", doc.Info().Format)
	})

	t.Run("retried", func(t *testing.T) {
		doc, err := New(WithRetryMax(1)).Load(context.Background(), srv.URL+"/flaky.yaml")
		require.NoError(t, err)
		assert.NotNil(t, doc)
		assert.Equal(t, int32(2), hits.Load())
	})

	t.Run("not found", func(t *testing.T) {
		_, err := l.Load(context.Background(), srv.URL+"/missing.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 404")
	})
}

func TestLoadAll(t *testing.T) {
	l := New()

	docs, err := l.LoadAll(context.Background(), []string{ramlFixture, openapiFixture, swaggerFixture})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "raml", docs[0].Info().Format)
	assert.Equal(t, "openapi", docs[1].Info().Format)
	assert.Equal(t, "swagger", docs[2].Info().Format)

	_, err = l.LoadAll(context.Background(), []string{ramlFixture, "../testdata/missing.yaml"})
	assert.Error(t, err)
}

func ExampleDetect() {
	format, _ := Detect([]byte("#%RAML 0.8\ntitle: Songs\n"))
	fmt.Println(format)
	// Output: raml
}

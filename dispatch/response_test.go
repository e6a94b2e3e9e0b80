package dispatch

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/rrest/rresterrors"
)

func TestResponse_SetContent(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		ct      string
		schema  string
		assert  bool
		content any
		want    string
		wantErr error
	}{
		{name: "json", format: "json", ct: "application/json", content: map[string]any{"a": "<b>"}, want: `{"a":"<b>"}`},
		{name: "json passthrough is encoded", format: "json", ct: "application/json", content: "x", want: `"x"`},
		{name: "xml string", format: "xml", ct: "application/xml", content: "<a/>", want: "<a/>"},
		{name: "csv string", format: "csv", ct: "text/csv", content: "a,b\n", want: "a,b\n"},
		{name: "csv map", format: "csv", ct: "text/csv", content: map[string]any{}, wantErr: rresterrors.ErrConfig},
		{name: "json func", format: "json", ct: "application/json", content: func() {}, wantErr: rresterrors.ErrConfig},
		{
			name: "assertion passes", format: "json", ct: "application/json", assert: true,
			schema: songSchema, content: map[string]string{"title": "t", "artist": "a"},
			want: `{"artist":"a","title":"t"}`,
		},
		{
			name: "assertion fails", format: "json", ct: "application/json", assert: true,
			schema: songSchema, content: map[string]string{"title": "t"},
			wantErr: rresterrors.ErrInvalidResponseBody,
		},
		{
			name: "assertion off", format: "json", ct: "application/json",
			schema: songSchema, content: map[string]string{"title": "t"}, want: `{"title":"t"}`,
		},
		{
			name: "xml assertion fails", format: "xml", ct: "application/xml", assert: true,
			schema: songXSD, content: "<song><title>t</title></song>", wantErr: rresterrors.ErrInvalidResponseBody,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := newResponse(tt.format, tt.ct, 200, tt.schema, tt.assert)
			err := resp.SetContent(tt.content)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), err.Error())
				assert.Equal(t, err, resp.Err())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(resp.Body()))
		})
	}
}

func TestResponse_XMLMap(t *testing.T) {
	resp := newResponse("xml", "application/xml", 200, "", false)
	require.NoError(t, resp.SetContent(map[string]any{"title": "Blue"}))
	assert.Equal(t, "<response><title>Blue</title></response>", string(resp.Body()))
}

func TestWriteResponse(t *testing.T) {
	t.Run("body", func(t *testing.T) {
		resp := newResponse("json", "application/json", http.StatusCreated, "", false)
		require.NoError(t, resp.SetContent(map[string]int{"id": 1}))
		resp.SetLocation("/songs/1")
		resp.Header().Set("X-Request-Id", "r1")

		w := httptest.NewRecorder()
		WriteResponse(w, resp)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "/songs/1", w.Header().Get("Location"))
		assert.Equal(t, "r1", w.Header().Get("X-Request-Id"))
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"id":1}`, w.Body.String())
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "export.csv")
		require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o600))
		resp := newResponse("csv", "text/csv", http.StatusOK, "", false)
		resp.SetFile(path)

		w := httptest.NewRecorder()
		WriteResponse(w, resp)
		assert.Equal(t, "a,b\n", w.Body.String())
		assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	})
}

func TestWriteError(t *testing.T) {
	err := &rresterrors.InvalidParameterError{Errors: []rresterrors.Error{
		rresterrors.New("limit minimum size is 50", rresterrors.KindMinimum),
	}}
	w := httptest.NewRecorder()
	WriteError(w, err)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
		"status": 422,
		"message": "`+err.Error()+`",
		"errors": [{"message": "limit minimum size is 50", "code": "minimum"}]
	}`, w.Body.String())
}

func TestZerologAdapter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologAdapter(zerolog.New(&buf).Level(zerolog.InfoLevel))

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.With("route", "/songs").Info("route registered", "status", 200, "error", errors.New("boom"), "dangling")
	assert.JSONEq(t, `{
		"level": "info",
		"route": "/songs",
		"status": 200,
		"error": "boom",
		"!BADKEY": "dangling",
		"message": "route registered"
	}`, buf.String())
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, nil)))
	logger.With("route", "/songs").Warn("slow", "ms", 12)
	assert.Contains(t, buf.String(), `"route":"/songs"`)
	assert.Contains(t, buf.String(), `"ms":12`)

	var nop Logger = NopLogger{}
	nop.With("a", 1).Error("ignored")
}

func TestOptions(t *testing.T) {
	_, err := New(WithMaxBodySize(0))
	assert.Error(t, err)
	_, err = New(WithProvider(nil))
	assert.Error(t, err)

	d, err := New(WithLogger(nil), WithMaxBodySize(1<<10), WithAssertResponse(false))
	require.NoError(t, err)
	assert.Equal(t, int64(1<<10), d.cfg.maxBodySize)
	assert.False(t, d.cfg.assertResponse)
	assert.IsType(t, NopLogger{}, d.cfg.logger)
}

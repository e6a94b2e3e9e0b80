package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/erraggy/rrest/dispatch"
	"github.com/erraggy/rrest/loader"
)

// ValidateRequest is a request to run through the pipeline offline.
type ValidateRequest struct {
	Source   string
	Method   string
	Path     string
	Headers  []string
	BodyFile string
	Scheme   string
	Format   string
	Options  []dispatch.Option
}

// ValidateResult is the outcome of ValidateRequest.
type ValidateResult struct {
	Status      int    `json:"status" yaml:"status"`
	ContentType string `json:"contentType,omitempty" yaml:"contentType,omitempty"`
	Body        any    `json:"body,omitempty" yaml:"body,omitempty"`
}

// Valid reports whether the request passed every check.
func (r ValidateResult) Valid() bool {
	return r.Status < http.StatusBadRequest
}

// RunValidate resolves the route serving req and runs the request through
// the validation pipeline with the Echo handler. Response assertion is off:
// the echo does not follow the declared response schema.
func RunValidate(ctx context.Context, req ValidateRequest) (ValidateResult, error) {
	doc, err := loader.Load(ctx, req.Source)
	if err != nil {
		return ValidateResult{}, err
	}

	r, err := buildRequest(ctx, req)
	if err != nil {
		return ValidateResult{}, err
	}

	d, err := dispatch.New(append(req.Options, dispatch.WithAssertResponse(false))...)
	if err != nil {
		return ValidateResult{}, err
	}
	w := httptest.NewRecorder()
	if spec, _, err := doc.Resolve(r.Method, r.URL.Path); err != nil {
		dispatch.WriteError(w, err)
	} else {
		if _, err := d.Register(spec, Echo); err != nil {
			return ValidateResult{}, err
		}
		d.ServeHTTP(w, r)
	}

	res := ValidateResult{Status: w.Code, ContentType: w.Header().Get("Content-Type")}
	if body := w.Body.Bytes(); len(body) > 0 {
		var v any
		if json.Unmarshal(body, &v) == nil {
			res.Body = v
		} else {
			res.Body = string(body)
		}
	}
	return res, nil
}

func buildRequest(ctx context.Context, req ValidateRequest) (*http.Request, error) {
	if !strings.HasPrefix(req.Path, "/") {
		return nil, fmt.Errorf("path must start with '/', got %q", req.Path)
	}
	var body io.Reader = http.NoBody
	if req.BodyFile != "" {
		data, err := os.ReadFile(req.BodyFile)
		if err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	r, err := http.NewRequestWithContext(ctx, method, req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for _, h := range req.Headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}
		r.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	if strings.EqualFold(req.Scheme, "https") {
		r.Header.Set("X-Forwarded-Proto", "https")
	}
	return r, nil
}

// HandleValidate runs RunValidate and writes the result to w. A rejected
// request is reported as an error after the result is written.
func HandleValidate(ctx context.Context, w io.Writer, req ValidateRequest) error {
	if req.Format == "" {
		req.Format = FormatText
	}
	if err := ValidateOutputFormat(req.Format); err != nil {
		return err
	}
	res, err := RunValidate(ctx, req)
	if err != nil {
		return err
	}

	if req.Format == FormatText {
		if _, err := fmt.Fprintf(w, "HTTP %d %s\n", res.Status, http.StatusText(res.Status)); err != nil {
			return err
		}
		if res.Body != nil {
			if err := OutputStructured(w, res.Body, FormatJSON); err != nil {
				return err
			}
		}
	} else if err := OutputStructured(w, res, req.Format); err != nil {
		return err
	}

	if !res.Valid() {
		return fmt.Errorf("request rejected with status %d", res.Status)
	}
	return nil
}

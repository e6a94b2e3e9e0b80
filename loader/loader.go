// Package loader reads API documents from files or URLs, detects their
// format and hands them to the matching apispec adapter.
//
// Three formats are recognized from content alone:
//
//   - RAML, by its "#%RAML" header line
//   - OpenAPI 3.x, by a top-level "openapi" key
//   - Swagger 2.0, by a top-level "swagger" key
//
// Remote documents are fetched with retries on transient failures.
package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"

	"github.com/erraggy/rrest"
	"github.com/erraggy/rrest/apispec"
	"github.com/erraggy/rrest/apispec/openapi"
	"github.com/erraggy/rrest/apispec/raml"
	"github.com/erraggy/rrest/apispec/swagger"
	"github.com/erraggy/rrest/internal/yamlutil"
)

// Format identifies the language of an API document.
type Format string

const (
	FormatUnknown Format = ""
	FormatRAML    Format = "raml"
	FormatOpenAPI Format = "openapi"
	FormatSwagger Format = "swagger"
)

// Defaults for remote fetches.
const (
	DefaultRetryMax = 3
	DefaultTimeout  = 30 * time.Second
)

// Loader loads API documents. The zero value is not usable; use New.
type Loader struct {
	client    *http.Client
	userAgent string
	logger    retryablehttp.LeveledLogger
	retryMax  int
	timeout   time.Duration
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the client used under the retrying transport.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithUserAgent overrides the User-Agent header of remote fetches.
func WithUserAgent(ua string) Option {
	return func(l *Loader) { l.userAgent = ua }
}

// WithRetryMax sets how many times a failed fetch is retried.
func WithRetryMax(n int) Option {
	return func(l *Loader) { l.retryMax = n }
}

// WithTimeout bounds each fetch attempt.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) { l.timeout = d }
}

// WithLogger receives the retry log of remote fetches.
func WithLogger(logger retryablehttp.LeveledLogger) Option {
	return func(l *Loader) { l.logger = logger }
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		userAgent: rrest.UserAgent(),
		retryMax:  DefaultRetryMax,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the document at source, a file path or an http(s) URL.
func Load(ctx context.Context, source string) (*apispec.Catalog, error) {
	return New().Load(ctx, source)
}

// Load reads the document at source, a file path or an http(s) URL.
func (l *Loader) Load(ctx context.Context, source string) (*apispec.Catalog, error) {
	var (
		data    []byte
		baseDir string
		err     error
	)
	if isURL(source) {
		data, err = l.fetch(ctx, source)
	} else {
		data, err = os.ReadFile(source)
		if err != nil {
			err = fmt.Errorf("loader: failed to read file: %w", err)
		}
		baseDir = filepath.Dir(source)
	}
	if err != nil {
		return nil, err
	}

	doc, err := Parse(data, baseDir)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", source, err)
	}
	return doc, nil
}

// LoadAll loads every source concurrently. Documents are returned in the
// order of sources; the first failure cancels the remaining loads.
func (l *Loader) LoadAll(ctx context.Context, sources []string) ([]*apispec.Catalog, error) {
	docs := make([]*apispec.Catalog, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, source := range sources {
		g.Go(func() error {
			doc, err := l.Load(ctx, source)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// Parse detects the format of data and adapts it. baseDir resolves RAML
// !include references; empty means the working directory.
func Parse(data []byte, baseDir string) (*apispec.Catalog, error) {
	format, err := Detect(data)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatRAML:
		var opts []raml.Option
		if baseDir != "" {
			opts = append(opts, raml.WithBaseDir(baseDir))
		}
		return raml.Parse(data, opts...)
	case FormatOpenAPI:
		return openapi.Parse(data)
	default:
		return swagger.Parse(data)
	}
}

// Detect reports the format of data.
func Detect(data []byte) (Format, error) {
	if raml.IsRAML(data) {
		return FormatRAML, nil
	}
	root, err := yamlutil.Root(data)
	if err != nil {
		return FormatUnknown, fmt.Errorf("loader: unrecognized document: %w", err)
	}
	switch {
	case openapi.IsOpenAPI(root):
		return FormatOpenAPI, nil
	case yamlutil.String(yamlutil.Get(root, "swagger")) != "":
		return FormatSwagger, nil
	}
	return FormatUnknown, fmt.Errorf("loader: unrecognized document: expected a RAML header, an openapi 3.x or a swagger key")
}

func isURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	rc := retryablehttp.NewClient()
	rc.RetryMax = l.retryMax
	rc.Logger = l.logger
	if l.client != nil {
		rc.HTTPClient = l.client
	} else {
		rc.HTTPClient = &http.Client{Timeout: l.timeout}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("loader: failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := rc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("loader: failed to fetch URL: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("loader: HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("loader: failed to read response body: %w", err)
	}
	return data, nil
}

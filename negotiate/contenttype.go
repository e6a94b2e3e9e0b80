package negotiate

import (
	"slices"
	"strings"
	"sync"

	"github.com/erraggy/rrest/internal/httputil"
	"github.com/erraggy/rrest/rresterrors"
)

// ContentType checks the request Content-Type against the request body
// types a route declares.
type ContentType struct {
	value     string
	available []string

	once sync.Once
	err  error
}

// NewContentType returns a ContentType negotiator. An empty available set
// places no restriction on the request.
func NewContentType(value string, available []string) *ContentType {
	return &ContentType{
		value:     strings.ToLower(strings.TrimSpace(value)),
		available: lowerAll(available),
	}
}

// Fails reports whether the content type was rejected.
func (c *ContentType) Fails() bool {
	return c.Err() != nil
}

// Err returns a *rresterrors.UnsupportedMediaTypeError when the content
// type is not declared.
func (c *ContentType) Err() error {
	c.once.Do(c.check)
	return c.err
}

// Matched returns the declared content type the request matched, or "".
func (c *ContentType) Matched() string {
	if c.Err() != nil {
		return ""
	}
	return c.match()
}

func (c *ContentType) check() {
	if len(c.available) == 0 || c.match() != "" {
		return
	}
	c.err = &rresterrors.UnsupportedMediaTypeError{ContentType: c.value, Available: c.available}
}

func (c *ContentType) match() string {
	if c.value == "" {
		return ""
	}
	// multipart values carry a boundary parameter
	if httputil.IsMultipart(c.value) {
		for _, a := range c.available {
			if strings.Contains(c.value, a) {
				return a
			}
		}
		return ""
	}
	if slices.Contains(c.available, c.value) {
		return c.value
	}
	mt := httputil.MediaType(c.value)
	for _, a := range c.available {
		if httputil.MediaType(a) == mt {
			return a
		}
	}
	return ""
}

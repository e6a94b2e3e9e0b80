// Package negotiate checks the Accept header, the Content-Type header and
// the transport protocol of a request against the values a route declares.
//
// Each negotiator is built for a single request, evaluates on first use and
// memoizes its outcome. None of them hold shared state.
package negotiate

import (
	"fmt"
	"strings"
)

// AcceptPolicy decides how an empty Accept header is treated.
type AcceptPolicy int

const (
	// AcceptLenient lets a request without an Accept header through.
	AcceptLenient AcceptPolicy = iota
	// AcceptStrict rejects a request without an Accept header.
	AcceptStrict
)

// ParseAcceptPolicy parses "lenient" or "strict", case-insensitively.
func ParseAcceptPolicy(s string) (AcceptPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lenient":
		return AcceptLenient, nil
	case "strict":
		return AcceptStrict, nil
	}
	return AcceptLenient, fmt.Errorf("negotiate: unknown accept policy %q (lenient, strict)", s)
}

func (p AcceptPolicy) String() string {
	if p == AcceptStrict {
		return "strict"
	}
	return "lenient"
}

// Negotiator is implemented by Accept, ContentType and Protocol.
type Negotiator interface {
	// Fails reports whether the observed value was rejected.
	Fails() bool
	// Err returns the typed rejection, or nil.
	Err() error
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

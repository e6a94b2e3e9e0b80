package negotiate

import (
	"slices"
	"strings"
	"sync"

	"github.com/erraggy/rrest/rresterrors"
)

// Protocol checks the request scheme (http or https) against the protocols
// a route declares.
type Protocol struct {
	value     string
	available []string

	once sync.Once
	err  error
}

// NewProtocol returns a Protocol negotiator. An empty available set accepts
// any protocol.
func NewProtocol(value string, available []string) *Protocol {
	return &Protocol{
		value:     strings.ToLower(strings.TrimSpace(value)),
		available: lowerAll(available),
	}
}

// Fails reports whether the protocol was rejected.
func (p *Protocol) Fails() bool {
	return p.Err() != nil
}

// Err returns a *rresterrors.AccessDeniedError for an undeclared protocol.
func (p *Protocol) Err() error {
	p.once.Do(func() {
		if len(p.available) == 0 || slices.Contains(p.available, p.value) {
			return
		}
		p.err = &rresterrors.AccessDeniedError{Protocol: p.value, Available: p.available}
	})
	return p.err
}

package negotiate

import (
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/erraggy/rrest/internal/httputil"
	"github.com/erraggy/rrest/rresterrors"
)

// Accept negotiates the Accept header against the response content types
// a route declares.
type Accept struct {
	header    string
	available []string
	policy    AcceptPolicy

	once sync.Once
	best string
	err  error
}

// NewAccept returns an Accept negotiator. A route must declare at least one
// response content type; an empty set is a configuration error.
func NewAccept(header string, available []string, policy AcceptPolicy) (*Accept, error) {
	avail := lowerAll(available)
	if len(avail) == 0 {
		return nil, &rresterrors.ConfigError{
			Option:  "responses",
			Message: "no content type defined for this response",
		}
	}
	return &Accept{
		header:    strings.ToLower(strings.TrimSpace(header)),
		available: avail,
		policy:    policy,
	}, nil
}

// Best returns the negotiated response content type. It is empty when the
// request expressed no preference or negotiation failed.
func (a *Accept) Best() string {
	a.once.Do(a.negotiate)
	return a.best
}

// Fails reports whether no declared type satisfies the header.
func (a *Accept) Fails() bool {
	return a.Err() != nil
}

// Err returns a *rresterrors.NotAcceptableError when negotiation failed.
func (a *Accept) Err() error {
	a.once.Do(a.negotiate)
	return a.err
}

func (a *Accept) negotiate() {
	if a.header == "" {
		if a.policy == AcceptStrict {
			a.err = a.reject()
		}
		return
	}

	ranges, ok := parseAccept(a.header)
	if !ok {
		// Unparseable header: only an exact declared value is accepted.
		if slices.Contains(a.available, a.header) {
			a.best = a.header
			return
		}
		a.err = a.reject()
		return
	}

	bestQ, bestSpec := 0.0, -1
	for _, candidate := range a.available {
		q, spec := quality(ranges, httputil.MediaType(candidate))
		if q > bestQ || (q == bestQ && q > 0 && spec > bestSpec) {
			a.best, bestQ, bestSpec = candidate, q, spec
		}
	}
	if a.best == "" {
		a.err = a.reject()
	}
}

func (a *Accept) reject() error {
	return &rresterrors.NotAcceptableError{Accept: a.header, Available: a.available}
}

// mediaRange is one element of an Accept header.
type mediaRange struct {
	typ, sub string
	q        float64
}

// matches reports whether r covers typ/sub. The specificity ranks exact
// types over type/* over */*.
func (r mediaRange) matches(typ, sub string) (bool, int) {
	switch {
	case r.typ == "*" && r.sub == "*":
		return true, 0
	case r.typ == typ && r.sub == "*":
		return true, 1
	case r.typ == typ && r.sub == sub:
		return true, 2
	}
	return false, 0
}

func parseAccept(header string) ([]mediaRange, bool) {
	var ranges []mediaRange
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ";")
		mt := strings.TrimSpace(fields[0])
		if !httputil.IsValidMediaType(mt) {
			return nil, false
		}
		typ, sub, found := strings.Cut(mt, "/")
		if !found || typ == "" || sub == "" {
			return nil, false
		}

		r := mediaRange{typ: typ, sub: sub, q: 1}
		for _, param := range fields[1:] {
			k, v, _ := strings.Cut(strings.TrimSpace(param), "=")
			if strings.TrimSpace(k) != "q" {
				continue
			}
			q, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || q < 0 || q > 1 {
				return nil, false
			}
			r.q = q
		}
		ranges = append(ranges, r)
	}
	return ranges, len(ranges) > 0
}

// quality returns the q-value the most specific matching range assigns to
// the media type, and that range's specificity.
func quality(ranges []mediaRange, mediaType string) (float64, int) {
	typ, sub, _ := strings.Cut(mediaType, "/")
	q, spec := 0.0, -1
	for _, r := range ranges {
		ok, s := r.matches(typ, sub)
		if ok && s > spec {
			q, spec = r.q, s
		}
	}
	return q, spec
}

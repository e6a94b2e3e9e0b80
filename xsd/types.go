package xsd

import (
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

type builtinKind int

const (
	kindString builtinKind = iota
	kindBoolean
	kindDecimal
	kindInteger
	kindFloat
	kindDate
	kindDateTime
	kindTime
	kindURI
	kindAny
)

type builtin struct {
	kind builtinKind
	// bounds for derived integer types, nil when unbounded
	min, max *big.Int
}

func bounded(lo, hi string) builtin {
	b := builtin{kind: kindInteger}
	if lo != "" {
		b.min, _ = new(big.Int).SetString(lo, 10)
	}
	if hi != "" {
		b.max, _ = new(big.Int).SetString(hi, 10)
	}
	return b
}

var builtins = map[string]builtin{
	"anyType":            {kind: kindAny},
	"anySimpleType":      {kind: kindAny},
	"string":             {kind: kindString},
	"normalizedString":   {kind: kindString},
	"token":              {kind: kindString},
	"language":           {kind: kindString},
	"Name":               {kind: kindString},
	"NCName":             {kind: kindString},
	"ID":                 {kind: kindString},
	"IDREF":              {kind: kindString},
	"NMTOKEN":            {kind: kindString},
	"base64Binary":       {kind: kindString},
	"hexBinary":          {kind: kindString},
	"QName":              {kind: kindString},
	"duration":           {kind: kindString},
	"boolean":            {kind: kindBoolean},
	"decimal":            {kind: kindDecimal},
	"float":              {kind: kindFloat},
	"double":             {kind: kindFloat},
	"integer":            bounded("", ""),
	"long":               bounded("-9223372036854775808", "9223372036854775807"),
	"int":                bounded("-2147483648", "2147483647"),
	"short":              bounded("-32768", "32767"),
	"byte":               bounded("-128", "127"),
	"nonNegativeInteger": bounded("0", ""),
	"positiveInteger":    bounded("1", ""),
	"nonPositiveInteger": bounded("", "0"),
	"negativeInteger":    bounded("", "-1"),
	"unsignedLong":       bounded("0", "18446744073709551615"),
	"unsignedInt":        bounded("0", "4294967295"),
	"unsignedShort":      bounded("0", "65535"),
	"unsignedByte":       bounded("0", "255"),
	"date":               {kind: kindDate},
	"dateTime":           {kind: kindDateTime},
	"time":               {kind: kindTime},
	"anyURI":             {kind: kindURI},
}

var (
	decimalRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
	integerRegex = regexp.MustCompile(`^[+-]?\d+$`)
	tzSuffix     = regexp.MustCompile(`(Z|[+-]\d{2}:\d{2})$`)
)

// validBuiltin reports whether the lexical value v belongs to the built-in type.
func validBuiltin(b builtin, v string) bool {
	if b.kind != kindString && b.kind != kindAny {
		v = strings.TrimSpace(v)
	}
	switch b.kind {
	case kindBoolean:
		return v == "true" || v == "false" || v == "1" || v == "0"
	case kindDecimal:
		return decimalRegex.MatchString(v)
	case kindInteger:
		if !integerRegex.MatchString(v) {
			return false
		}
		n, ok := new(big.Int).SetString(strings.TrimPrefix(v, "+"), 10)
		if !ok {
			return false
		}
		return (b.min == nil || n.Cmp(b.min) >= 0) && (b.max == nil || n.Cmp(b.max) <= 0)
	case kindFloat:
		switch v {
		case "INF", "-INF", "NaN":
			return true
		}
		_, err := strconv.ParseFloat(v, 64)
		return err == nil
	case kindDate:
		return parsesWithOptionalZone("2006-01-02", v)
	case kindDateTime:
		return parsesWithOptionalZone("2006-01-02T15:04:05", v)
	case kindTime:
		return parsesWithOptionalZone("15:04:05", v)
	case kindURI:
		_, err := url.Parse(v)
		return err == nil
	}
	return true
}

func parsesWithOptionalZone(layout, v string) bool {
	if tzSuffix.MatchString(v) {
		layout += "Z07:00"
	}
	_, err := time.Parse(layout, v)
	return err == nil
}

// resolveSimple walks the derivation chain of a type name down to its
// built-in base and returns the restrictions to apply, outermost last.
func (s *Schema) resolveSimple(st *simpleType) (builtin, []*simpleType, string) {
	var chain []*simpleType
	for depth := 0; st != nil && depth < 32; depth++ {
		chain = append(chain, st)
		if st.parent != nil {
			st = st.parent
			continue
		}
		if next, ok := s.simpleTypes[st.base]; ok && next != st {
			st = next
			continue
		}
		b, ok := builtins[st.base]
		if !ok {
			b = builtin{kind: kindAny}
		}
		return b, chain, "xs:" + st.base
	}
	return builtin{kind: kindAny}, chain, "xs:anySimpleType"
}

// checkValue validates a text or attribute value against a named type or
// an anonymous simple type. subject prefixes every message, e.g.
// "Element 'year'" or "Element 'song', attribute 'id'".
func (s *Schema) checkValue(subject, typeName string, anon *simpleType, value string) []string {
	st := anon
	if st == nil {
		if u, ok := s.simpleTypes[typeName]; ok {
			st = u
		} else if b, ok := builtins[typeName]; ok {
			if !validBuiltin(b, value) {
				return []string{fmt.Sprintf("%s: '%s' is not a valid value of the atomic type 'xs:%s'.", subject, value, typeName)}
			}
			return nil
		} else {
			return nil
		}
	}

	b, chain, baseName := s.resolveSimple(st)
	if !validBuiltin(b, value) {
		return []string{fmt.Sprintf("%s: '%s' is not a valid value of the atomic type '%s'.", subject, value, baseName)}
	}

	var msgs []string
	// Facets of every restriction in the chain apply.
	for i := len(chain) - 1; i >= 0; i-- {
		msgs = append(msgs, checkFacets(subject, b, &chain[i].facets, value)...)
	}
	return msgs
}

func checkFacets(subject string, b builtin, f *facets, value string) []string {
	var msgs []string
	v := value
	if b.kind != kindString {
		v = strings.TrimSpace(v)
	}
	length := utf8.RuneCountInString(v)

	if len(f.enumeration) > 0 {
		found := false
		for _, e := range f.enumeration {
			if e == v {
				found = true
				break
			}
		}
		if !found {
			quoted := make([]string, len(f.enumeration))
			for i, e := range f.enumeration {
				quoted[i] = "'" + e + "'"
			}
			msgs = append(msgs, fmt.Sprintf("%s: [facet 'enumeration'] The value '%s' is not an element of the set {%s}.", subject, v, strings.Join(quoted, ", ")))
		}
	}
	for i, re := range f.patterns {
		if !re.MatchString(v) {
			msgs = append(msgs, fmt.Sprintf("%s: [facet 'pattern'] The value '%s' is not accepted by the pattern '%s'.", subject, v, f.patternSrc[i]))
		}
	}
	if f.length != nil && length != *f.length {
		msgs = append(msgs, fmt.Sprintf("%s: [facet 'length'] The value has a length of '%d'; this differs from the allowed length of '%d'.", subject, length, *f.length))
	}
	if f.minLength != nil && length < *f.minLength {
		msgs = append(msgs, fmt.Sprintf("%s: [facet 'minLength'] The value has a length of '%d'; this underruns the allowed minimum length of '%d'.", subject, length, *f.minLength))
	}
	if f.maxLength != nil && length > *f.maxLength {
		msgs = append(msgs, fmt.Sprintf("%s: [facet 'maxLength'] The value has a length of '%d'; this exceeds the allowed maximum length of '%d'.", subject, length, *f.maxLength))
	}

	if f.minInclusive != nil && compare(b, v, *f.minInclusive) < 0 {
		msgs = append(msgs, fmt.Sprintf("%s: [facet 'minInclusive'] The value '%s' is less than the minimum value allowed ('%s').", subject, v, *f.minInclusive))
	}
	if f.maxInclusive != nil && compare(b, v, *f.maxInclusive) > 0 {
		msgs = append(msgs, fmt.Sprintf("%s: [facet 'maxInclusive'] The value '%s' is greater than the maximum value allowed ('%s').", subject, v, *f.maxInclusive))
	}
	if f.minExclusive != nil && compare(b, v, *f.minExclusive) <= 0 {
		msgs = append(msgs, fmt.Sprintf("%s: [facet 'minExclusive'] The value '%s' must be greater than '%s'.", subject, v, *f.minExclusive))
	}
	if f.maxExclusive != nil && compare(b, v, *f.maxExclusive) >= 0 {
		msgs = append(msgs, fmt.Sprintf("%s: [facet 'maxExclusive'] The value '%s' must be less than '%s'.", subject, v, *f.maxExclusive))
	}
	return msgs
}

// compare orders two lexical values of the same built-in type. Numbers
// compare by value, everything else lexically (which is correct for the
// fixed-width date formats).
func compare(b builtin, a, c string) int {
	switch b.kind {
	case kindDecimal, kindInteger, kindFloat:
		x, okA := new(big.Float).SetString(strings.TrimPrefix(a, "+"))
		y, okC := new(big.Float).SetString(strings.TrimPrefix(c, "+"))
		if okA && okC {
			return x.Cmp(y)
		}
	}
	return strings.Compare(a, c)
}

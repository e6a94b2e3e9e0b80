// Package xsd compiles a practical subset of W3C XML Schema 1.0 and
// validates instance documents against it.
//
// Supported: global and local element declarations, element references,
// named and anonymous complex and simple types, sequence, choice and all
// groups with minOccurs/maxOccurs, named model groups and attribute groups,
// global and local attributes with use="required",
// simpleContent extensions, mixed content, and simple type restrictions with
// the enumeration, pattern, length, minLength, maxLength, minInclusive,
// maxInclusive, minExclusive and maxExclusive facets over the common
// built-in types.
//
// Names are matched on their local part; target namespaces, imports,
// substitution groups, identity constraints and wildcards are not
// supported, and schemas using them fail to compile. Messages follow the
// wording of libxml2 so they read the same as those of other XML toolchains.
package xsd

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const unbounded = -1

// Schema is a compiled XML Schema.
type Schema struct {
	elements        map[string]*element
	complexTypes    map[string]*complexType
	simpleTypes     map[string]*simpleType
	groups          map[string]*particle
	attributes      map[string]*attribute
	attributeGroups map[string]*attributeGroup
}

type element struct {
	name      string
	ref       string
	typeName  string
	minOccurs int
	maxOccurs int
	complex   *complexType
	simple    *simpleType
	nillable  bool
}

type particleKind int

const (
	particleElement particleKind = iota
	particleSequence
	particleChoice
	particleAll
	// particleGroupRef is replaced by the referenced group in check
	particleGroupRef
)

type particle struct {
	kind      particleKind
	elem      *element
	ref       string
	children  []*particle
	minOccurs int
	maxOccurs int
}

type complexType struct {
	name       string
	mixed      bool
	content    *particle
	attributes []*attribute
	attrGroups []string
	// simpleContent base type, when the type carries text plus attributes
	textType string
	text     *simpleType
	// complexContent derivation
	base      string
	restricts bool
}

type attribute struct {
	name     string
	ref      string
	typeName string
	simple   *simpleType
	required bool
	fixed    string
}

type attributeGroup struct {
	name       string
	attributes []*attribute
	refs       []string
}

type simpleType struct {
	name   string
	base   string
	parent *simpleType
	facets facets
}

type facets struct {
	enumeration  []string
	patterns     []*regexp.Regexp
	patternSrc   []string
	length       *int
	minLength    *int
	maxLength    *int
	minInclusive *string
	maxInclusive *string
	minExclusive *string
	maxExclusive *string
}

// Parse compiles an XML Schema document.
func Parse(src []byte) (*Schema, error) {
	root, problems := parseTree(src)
	if len(problems) > 0 {
		return nil, fmt.Errorf("xsd: schema is not well-formed: %s (line: %d)", problems[0].Message, problems[0].Line)
	}
	if root.name != "schema" {
		return nil, fmt.Errorf("xsd: root element must be schema, got %s", root.name)
	}

	s := &Schema{
		elements:        make(map[string]*element),
		complexTypes:    make(map[string]*complexType),
		simpleTypes:     make(map[string]*simpleType),
		groups:          make(map[string]*particle),
		attributes:      make(map[string]*attribute),
		attributeGroups: make(map[string]*attributeGroup),
	}

	for _, child := range root.children {
		var err error
		switch child.name {
		case "element":
			var e *element
			if e, err = s.parseElement(child); err == nil {
				s.elements[e.name] = e
			}
		case "complexType":
			var ct *complexType
			if ct, err = s.parseComplexType(child); err == nil {
				s.complexTypes[ct.name] = ct
			}
		case "simpleType":
			var st *simpleType
			if st, err = s.parseSimpleType(child); err == nil {
				s.simpleTypes[st.name] = st
			}
		case "group":
			err = s.parseNamedGroup(child)
		case "attributeGroup":
			var ag *attributeGroup
			if ag, err = s.parseAttributeGroup(child); err == nil {
				s.attributeGroups[ag.name] = ag
			}
		case "attribute":
			var a *attribute
			if a, err = s.parseAttribute(child); err == nil {
				s.attributes[a.name] = a
			}
		case "annotation", "notation":
		case "import", "include", "redefine":
			err = fmt.Errorf("xsd: %s (line %d) is not supported", child.name, child.line)
		default:
			err = fmt.Errorf("xsd: unexpected top level element %s", child.name)
		}
		if err != nil {
			return nil, err
		}
	}

	if len(s.elements) == 0 {
		return nil, fmt.Errorf("xsd: schema declares no global element")
	}
	return s, s.check()
}

// MustParse is like Parse but panics on error.
func MustParse(src string) *Schema {
	s, err := Parse([]byte(src))
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) parseElement(n *node) (*element, error) {
	e := &element{minOccurs: 1, maxOccurs: 1}
	e.name, _ = n.attr("name")
	e.ref, _ = n.attr("ref")
	e.ref = localName(e.ref)
	if e.name == "" && e.ref == "" {
		return nil, fmt.Errorf("xsd: element (line %d) needs a name or a ref", n.line)
	}
	if t, ok := n.attr("type"); ok {
		e.typeName = localName(t)
	}
	if v, ok := n.attr("nillable"); ok {
		e.nillable = v == "true"
	}

	var err error
	if e.minOccurs, e.maxOccurs, err = occurs(n); err != nil {
		return nil, err
	}

	for _, child := range n.children {
		switch child.name {
		case "complexType":
			if e.complex, err = s.parseComplexType(child); err != nil {
				return nil, err
			}
		case "simpleType":
			if e.simple, err = s.parseSimpleType(child); err != nil {
				return nil, err
			}
		}
	}
	return e, nil
}

func (s *Schema) parseComplexType(n *node) (*complexType, error) {
	ct := &complexType{}
	ct.name, _ = n.attr("name")
	if v, ok := n.attr("mixed"); ok {
		ct.mixed = v == "true"
	}

	for _, child := range n.children {
		switch child.name {
		case "sequence", "choice", "all", "group":
			p, err := s.parseGroup(child)
			if err != nil {
				return nil, err
			}
			ct.content = p
		case "attribute", "attributeGroup":
			if err := s.parseAttributeUse(ct, child); err != nil {
				return nil, err
			}
		case "anyAttribute":
			return nil, fmt.Errorf("xsd: wildcard (line %d) is not supported", child.line)
		case "simpleContent":
			if err := s.parseSimpleContent(ct, child); err != nil {
				return nil, err
			}
		case "complexContent":
			if err := s.parseComplexContent(ct, child); err != nil {
				return nil, err
			}
		}
	}
	return ct, nil
}

func (s *Schema) parseSimpleContent(ct *complexType, n *node) error {
	for _, ext := range n.children {
		if ext.name != "extension" && ext.name != "restriction" {
			continue
		}
		base, _ := ext.attr("base")
		ct.textType = localName(base)
		for _, child := range ext.children {
			switch child.name {
			case "attribute", "attributeGroup":
				if err := s.parseAttributeUse(ct, child); err != nil {
					return err
				}
			case "anyAttribute":
				return fmt.Errorf("xsd: wildcard (line %d) is not supported", child.line)
			}
		}
		if ext.name == "restriction" {
			st, err := s.parseRestriction(&simpleType{}, ext)
			if err != nil {
				return err
			}
			ct.text = st
		}
	}
	return nil
}

// parseComplexContent records the base type of a derivation. The content
// model is merged with the base in check.
func (s *Schema) parseComplexContent(ct *complexType, n *node) error {
	for _, ext := range n.children {
		if ext.name != "extension" && ext.name != "restriction" {
			continue
		}
		base, _ := ext.attr("base")
		if b := localName(base); b != "anyType" {
			ct.base = b
		}
		ct.restricts = ext.name == "restriction"
		for _, child := range ext.children {
			switch child.name {
			case "sequence", "choice", "all", "group":
				p, err := s.parseGroup(child)
				if err != nil {
					return err
				}
				ct.content = p
			case "attribute", "attributeGroup":
				if err := s.parseAttributeUse(ct, child); err != nil {
					return err
				}
			case "anyAttribute":
				return fmt.Errorf("xsd: wildcard (line %d) is not supported", child.line)
			}
		}
	}
	return nil
}

// parseGroup parses a compositor or a group reference.
func (s *Schema) parseGroup(n *node) (*particle, error) {
	p := &particle{}
	switch n.name {
	case "sequence":
		p.kind = particleSequence
	case "choice":
		p.kind = particleChoice
	case "all":
		p.kind = particleAll
	case "group":
		p.kind = particleGroupRef
		ref, _ := n.attr("ref")
		if p.ref = localName(ref); p.ref == "" {
			return nil, fmt.Errorf("xsd: group (line %d) needs a ref", n.line)
		}
	}
	var err error
	if p.minOccurs, p.maxOccurs, err = occurs(n); err != nil {
		return nil, err
	}
	if p.kind == particleGroupRef {
		return p, nil
	}

	for _, child := range n.children {
		switch child.name {
		case "element":
			e, err := s.parseElement(child)
			if err != nil {
				return nil, err
			}
			p.children = append(p.children, &particle{kind: particleElement, elem: e, minOccurs: e.minOccurs, maxOccurs: e.maxOccurs})
		case "sequence", "choice", "all", "group":
			sub, err := s.parseGroup(child)
			if err != nil {
				return nil, err
			}
			p.children = append(p.children, sub)
		case "any":
			return nil, fmt.Errorf("xsd: wildcard (line %d) is not supported", child.line)
		}
	}
	return p, nil
}

// parseNamedGroup registers a top-level model group. Its single compositor
// becomes the group content.
func (s *Schema) parseNamedGroup(n *node) error {
	name, _ := n.attr("name")
	if name == "" {
		return fmt.Errorf("xsd: group (line %d) needs a name", n.line)
	}
	for _, child := range n.children {
		switch child.name {
		case "sequence", "choice", "all":
			p, err := s.parseGroup(child)
			if err != nil {
				return err
			}
			s.groups[name] = p
			return nil
		}
	}
	return fmt.Errorf("xsd: group %q (line %d) has no sequence, choice or all", name, n.line)
}

func (s *Schema) parseAttributeGroup(n *node) (*attributeGroup, error) {
	ag := &attributeGroup{}
	ag.name, _ = n.attr("name")
	if ag.name == "" {
		return nil, fmt.Errorf("xsd: attributeGroup (line %d) needs a name", n.line)
	}
	for _, child := range n.children {
		switch child.name {
		case "attribute":
			a, err := s.parseAttribute(child)
			if err != nil {
				return nil, err
			}
			ag.attributes = append(ag.attributes, a)
		case "attributeGroup":
			ref, _ := child.attr("ref")
			ag.refs = append(ag.refs, localName(ref))
		case "anyAttribute":
			return nil, fmt.Errorf("xsd: wildcard (line %d) is not supported", child.line)
		}
	}
	return ag, nil
}

// parseAttributeUse adds a local attribute or an attribute group reference
// to ct.
func (s *Schema) parseAttributeUse(ct *complexType, n *node) error {
	if n.name == "attributeGroup" {
		ref, _ := n.attr("ref")
		if ref == "" {
			return fmt.Errorf("xsd: attributeGroup (line %d) needs a ref", n.line)
		}
		ct.attrGroups = append(ct.attrGroups, localName(ref))
		return nil
	}
	a, err := s.parseAttribute(n)
	if err != nil {
		return err
	}
	ct.attributes = append(ct.attributes, a)
	return nil
}

func (s *Schema) parseAttribute(n *node) (*attribute, error) {
	a := &attribute{typeName: "string"}
	a.name, _ = n.attr("name")
	if a.name == "" {
		a.ref, _ = n.attr("ref")
		a.name = localName(a.ref)
	}
	if a.name == "" {
		return nil, fmt.Errorf("xsd: attribute (line %d) needs a name", n.line)
	}
	if t, ok := n.attr("type"); ok {
		a.typeName = localName(t)
	}
	if use, ok := n.attr("use"); ok {
		a.required = use == "required"
	}
	a.fixed, _ = n.attr("fixed")
	for _, child := range n.children {
		if child.name == "simpleType" {
			st, err := s.parseSimpleType(child)
			if err != nil {
				return nil, err
			}
			a.simple = st
		}
	}
	return a, nil
}

func (s *Schema) parseSimpleType(n *node) (*simpleType, error) {
	st := &simpleType{base: "string"}
	st.name, _ = n.attr("name")
	for _, child := range n.children {
		switch child.name {
		case "restriction":
			return s.parseRestriction(st, child)
		case "list", "union":
			// values are checked as plain strings
			return st, nil
		}
	}
	return st, nil
}

func (s *Schema) parseRestriction(st *simpleType, n *node) (*simpleType, error) {
	if base, ok := n.attr("base"); ok {
		st.base = localName(base)
	}
	f := &st.facets
	for _, child := range n.children {
		value, _ := child.attr("value")
		switch child.name {
		case "simpleType":
			inner, err := s.parseSimpleType(child)
			if err != nil {
				return nil, err
			}
			st.parent = inner
		case "enumeration":
			f.enumeration = append(f.enumeration, value)
		case "pattern":
			re, err := regexp.Compile("^(?:" + value + ")$")
			if err != nil {
				return nil, fmt.Errorf("xsd: invalid pattern %q (line %d): %w", value, child.line, err)
			}
			f.patterns = append(f.patterns, re)
			f.patternSrc = append(f.patternSrc, value)
		case "length", "minLength", "maxLength":
			v, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("xsd: invalid %s %q (line %d)", child.name, value, child.line)
			}
			switch child.name {
			case "length":
				f.length = &v
			case "minLength":
				f.minLength = &v
			default:
				f.maxLength = &v
			}
		case "minInclusive":
			f.minInclusive = &value
		case "maxInclusive":
			f.maxInclusive = &value
		case "minExclusive":
			f.minExclusive = &value
		case "maxExclusive":
			f.maxExclusive = &value
		}
	}
	return st, nil
}

// check resolves type names and element references.
func (s *Schema) check() error {
	seen := make(map[*complexType]bool)
	for _, g := range s.groups {
		if err := s.checkParticle(g, seen); err != nil {
			return err
		}
	}
	for _, e := range s.elements {
		if err := s.checkElement(e, seen); err != nil {
			return err
		}
	}
	for _, ct := range s.complexTypes {
		if err := s.checkComplex(ct, seen); err != nil {
			return err
		}
	}
	for _, st := range s.simpleTypes {
		if err := s.checkSimple(st, 0); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) checkElement(e *element, seen map[*complexType]bool) error {
	if e.ref != "" {
		if _, ok := s.elements[e.ref]; !ok {
			return fmt.Errorf("xsd: element ref %q does not resolve to a global element", e.ref)
		}
		return nil
	}
	if e.complex != nil {
		return s.checkComplex(e.complex, seen)
	}
	if e.simple != nil {
		return s.checkSimple(e.simple, 0)
	}
	if e.typeName != "" && !s.knownType(e.typeName) {
		return fmt.Errorf("xsd: element %q has unknown type %q", e.name, e.typeName)
	}
	return nil
}

func (s *Schema) checkComplex(ct *complexType, seen map[*complexType]bool) error {
	if seen[ct] {
		return nil
	}
	seen[ct] = true
	for _, ref := range ct.attrGroups {
		attrs, err := s.expandAttributeGroup(ref, map[string]bool{})
		if err != nil {
			return err
		}
		ct.attributes = append(ct.attributes, attrs...)
	}
	ct.attrGroups = nil
	for i, a := range ct.attributes {
		resolved, err := s.resolveAttribute(a)
		if err != nil {
			return err
		}
		ct.attributes[i] = resolved
	}
	if ct.base != "" {
		base, ok := s.complexTypes[ct.base]
		if !ok {
			return fmt.Errorf("xsd: unknown complex content base %q", ct.base)
		}
		if err := s.checkComplex(base, seen); err != nil {
			return err
		}
		// An extension appends its group to the base content; a restriction
		// replaces it.
		if !ct.restricts && base.content != nil {
			if ct.content == nil {
				ct.content = base.content
			} else {
				ct.content = &particle{kind: particleSequence, minOccurs: 1, maxOccurs: 1,
					children: []*particle{base.content, ct.content}}
			}
		}
		ct.attributes = append(append([]*attribute(nil), base.attributes...), ct.attributes...)
		ct.mixed = ct.mixed || base.mixed
		ct.base = ""
	}
	if ct.textType != "" && !s.knownType(ct.textType) {
		return fmt.Errorf("xsd: unknown simple content base %q", ct.textType)
	}
	for _, a := range ct.attributes {
		if a.simple != nil {
			if err := s.checkSimple(a.simple, 0); err != nil {
				return err
			}
		} else if !s.knownType(a.typeName) {
			return fmt.Errorf("xsd: attribute %q has unknown type %q", a.name, a.typeName)
		}
	}
	return s.checkParticle(ct.content, seen)
}

func (s *Schema) checkParticle(p *particle, seen map[*complexType]bool) error {
	if p == nil {
		return nil
	}
	if err := s.resolveGroupRef(p, map[string]bool{}); err != nil {
		return err
	}
	if p.kind == particleElement {
		return s.checkElement(p.elem, seen)
	}
	for _, c := range p.children {
		if err := s.checkParticle(c, seen); err != nil {
			return err
		}
	}
	return nil
}

// resolveGroupRef replaces every group reference under p with the content
// of the referenced group, keeping the occurrence bounds of the reference.
func (s *Schema) resolveGroupRef(p *particle, stack map[string]bool) error {
	if p.kind != particleGroupRef {
		for _, c := range p.children {
			if err := s.resolveGroupRef(c, stack); err != nil {
				return err
			}
		}
		return nil
	}
	if stack[p.ref] {
		return fmt.Errorf("xsd: group %q references itself", p.ref)
	}
	g, ok := s.groups[p.ref]
	if !ok {
		return fmt.Errorf("xsd: group ref %q does not resolve to a global group", p.ref)
	}
	stack[p.ref] = true
	if err := s.resolveGroupRef(g, stack); err != nil {
		return err
	}
	delete(stack, p.ref)
	p.kind, p.children, p.ref = g.kind, g.children, ""
	return nil
}

func (s *Schema) expandAttributeGroup(name string, stack map[string]bool) ([]*attribute, error) {
	if stack[name] {
		return nil, fmt.Errorf("xsd: attributeGroup %q references itself", name)
	}
	ag, ok := s.attributeGroups[name]
	if !ok {
		return nil, fmt.Errorf("xsd: attributeGroup ref %q does not resolve to a global attributeGroup", name)
	}
	stack[name] = true
	defer delete(stack, name)
	out := append([]*attribute(nil), ag.attributes...)
	for _, ref := range ag.refs {
		attrs, err := s.expandAttributeGroup(ref, stack)
		if err != nil {
			return nil, err
		}
		out = append(out, attrs...)
	}
	return out, nil
}

// resolveAttribute copies the declaration of a global attribute into a
// reference. References into the xml namespace are plain strings.
func (s *Schema) resolveAttribute(a *attribute) (*attribute, error) {
	if a.ref == "" {
		return a, nil
	}
	global, ok := s.attributes[a.name]
	if !ok {
		if strings.HasPrefix(a.ref, "xml:") {
			return a, nil
		}
		return nil, fmt.Errorf("xsd: attribute ref %q does not resolve to a global attribute", a.ref)
	}
	resolved := *global
	resolved.required = a.required
	if a.fixed != "" {
		resolved.fixed = a.fixed
	}
	return &resolved, nil
}

func (s *Schema) checkSimple(st *simpleType, depth int) error {
	if depth > 32 {
		return fmt.Errorf("xsd: simple type %q derives from itself", st.name)
	}
	if st.parent != nil {
		return s.checkSimple(st.parent, depth+1)
	}
	if u, ok := s.simpleTypes[st.base]; ok && u != st {
		return s.checkSimple(u, depth+1)
	}
	if _, ok := builtins[st.base]; !ok {
		return fmt.Errorf("xsd: simple type %q has unknown base %q", st.name, st.base)
	}
	return nil
}

func (s *Schema) knownType(name string) bool {
	if _, ok := s.complexTypes[name]; ok {
		return true
	}
	if _, ok := s.simpleTypes[name]; ok {
		return true
	}
	_, ok := builtins[name]
	return ok
}

func occurs(n *node) (int, int, error) {
	minOccurs, maxOccurs := 1, 1
	if v, ok := n.attr("minOccurs"); ok {
		i, err := strconv.Atoi(v)
		if err != nil || i < 0 {
			return 0, 0, fmt.Errorf("xsd: invalid minOccurs %q (line %d)", v, n.line)
		}
		minOccurs = i
	}
	if v, ok := n.attr("maxOccurs"); ok {
		if v == "unbounded" {
			maxOccurs = unbounded
		} else {
			i, err := strconv.Atoi(v)
			if err != nil || i < 0 {
				return 0, 0, fmt.Errorf("xsd: invalid maxOccurs %q (line %d)", v, n.line)
			}
			maxOccurs = i
		}
	}
	if maxOccurs != unbounded && minOccurs > maxOccurs {
		return 0, 0, fmt.Errorf("xsd: minOccurs %d is greater than maxOccurs %d (line %d)", minOccurs, maxOccurs, n.line)
	}
	return minOccurs, maxOccurs, nil
}

func localName(qname string) string {
	if i := strings.LastIndexByte(qname, ':'); i >= 0 {
		return qname[i+1:]
	}
	return qname
}

package xsd

import (
	"fmt"
	"slices"
	"strings"
)

const xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"

// Document is a parsed, well-formed XML instance.
type Document struct {
	root *node
}

// ParseDocument parses data. It returns the problems that make data not
// well-formed, in which case the Document is nil.
func ParseDocument(data []byte) (*Document, []Problem) {
	root, problems := parseTree(data)
	if len(problems) > 0 {
		return nil, problems
	}
	return &Document{root: root}, nil
}

// Root returns the local name of the document element.
func (d *Document) Root() string {
	return d.root.name
}

// Validate checks a well-formed document against the schema and returns
// every validity problem found, in document order.
func (s *Schema) Validate(d *Document) []Problem {
	v := &validation{s: s}
	decl, ok := s.elements[d.root.name]
	if !ok {
		v.add(d.root, "Element '%s': No matching global declaration available for the validation root.", d.root.name)
		return v.problems
	}
	v.element(d.root, decl)
	return v.problems
}

type validation struct {
	s        *Schema
	problems []Problem
}

func (v *validation) add(n *node, format string, args ...any) {
	v.problems = append(v.problems, Problem{Message: fmt.Sprintf(format, args...), Line: n.line})
}

func (v *validation) addAll(n *node, msgs []string) {
	for _, m := range msgs {
		v.problems = append(v.problems, Problem{Message: m, Line: n.line})
	}
}

// deref follows an element reference to the global declaration.
func (s *Schema) deref(e *element) *element {
	if e.ref != "" {
		if g, ok := s.elements[e.ref]; ok {
			return g
		}
	}
	return e
}

func (v *validation) element(n *node, decl *element) {
	decl = v.s.deref(decl)
	subject := fmt.Sprintf("Element '%s'", n.name)

	if decl.nillable && xsiNil(n) {
		if len(n.children) > 0 || strings.TrimSpace(n.text.String()) != "" {
			v.add(n, "%s: The element cannot have character or element information items, because it is nilled.", subject)
		}
		return
	}

	switch {
	case decl.complex != nil:
		v.complex(n, decl.complex)
	case decl.simple != nil:
		v.simple(n, subject, "", decl.simple)
	case decl.typeName != "":
		if ct, ok := v.s.complexTypes[decl.typeName]; ok {
			v.complex(n, ct)
			return
		}
		if decl.typeName == "anyType" {
			return
		}
		v.simple(n, subject, decl.typeName, nil)
	}
	// No type: anyType, anything goes.
}

func (v *validation) simple(n *node, subject, typeName string, anon *simpleType) {
	for _, a := range n.attrs {
		if ignoredAttr(a.Name.Space, a.Name.Local) {
			continue
		}
		v.add(n, "%s, attribute '%s': The attribute '%s' is not allowed.", subject, a.Name.Local, a.Name.Local)
	}
	if len(n.children) > 0 {
		v.add(n, "%s: Element content is not allowed, because the content type is a simple type definition.", subject)
		return
	}
	v.addAll(n, v.s.checkValue(subject, typeName, anon, n.text.String()))
}

func (v *validation) complex(n *node, ct *complexType) {
	subject := fmt.Sprintf("Element '%s'", n.name)
	v.attributes(n, subject, ct)

	if ct.textType != "" || ct.text != nil {
		if len(n.children) > 0 {
			v.add(n, "%s: Element content is not allowed, because the content type is a simple type definition.", subject)
			return
		}
		v.addAll(n, v.s.checkValue(subject, ct.textType, ct.text, n.text.String()))
		return
	}

	if !ct.mixed && strings.TrimSpace(n.text.String()) != "" {
		if ct.content == nil {
			v.add(n, "%s: Character content is not allowed, because the content type is empty.", subject)
		} else {
			v.add(n, "%s: Character content other than whitespace is not allowed because the content type is 'element-only'.", subject)
		}
	}

	if ct.content == nil {
		if len(n.children) > 0 {
			v.add(n.children[0], "Element '%s': This element is not expected.", n.children[0].name)
		}
		return
	}

	pos := v.particle(ct.content, n, n.children, 0)
	if pos < len(n.children) {
		extra := n.children[pos]
		v.add(extra, "Element '%s': This element is not expected.", extra.name)
	}
}

func (v *validation) attributes(n *node, subject string, ct *complexType) {
	present := make(map[string]bool)
	for _, a := range n.attrs {
		if ignoredAttr(a.Name.Space, a.Name.Local) {
			continue
		}
		present[a.Name.Local] = true
		idx := slices.IndexFunc(ct.attributes, func(d *attribute) bool { return d.name == a.Name.Local })
		if idx < 0 {
			v.add(n, "%s, attribute '%s': The attribute '%s' is not allowed.", subject, a.Name.Local, a.Name.Local)
			continue
		}
		decl := ct.attributes[idx]
		attrSubject := fmt.Sprintf("%s, attribute '%s'", subject, a.Name.Local)
		v.addAll(n, v.s.checkValue(attrSubject, decl.typeName, decl.simple, a.Value))
		if decl.fixed != "" && a.Value != decl.fixed {
			v.add(n, "%s: The value '%s' does not match the fixed value constraint '%s'.", attrSubject, a.Value, decl.fixed)
		}
	}
	for _, decl := range ct.attributes {
		if decl.required && !present[decl.name] {
			v.add(n, "%s: The attribute '%s' is required but missing.", subject, decl.name)
		}
	}
}

// particle matches p against kids starting at pos and returns the position
// after the last consumed child. Matching is greedy.
func (v *validation) particle(p *particle, parent *node, kids []*node, pos int) int {
	switch p.kind {
	case particleElement:
		decl := v.s.deref(p.elem)
		count := 0
		for pos < len(kids) && kids[pos].name == decl.name && (p.maxOccurs == unbounded || count < p.maxOccurs) {
			v.element(kids[pos], decl)
			pos++
			count++
		}
		if count < p.minOccurs {
			v.missing(parent, []string{decl.name}, false)
		}
		return pos

	case particleAll:
		seen := make(map[string]bool)
		for pos < len(kids) {
			name := kids[pos].name
			idx := slices.IndexFunc(p.children, func(c *particle) bool {
				return c.kind == particleElement && v.s.deref(c.elem).name == name
			})
			if idx < 0 || seen[name] {
				break
			}
			seen[name] = true
			v.element(kids[pos], p.children[idx].elem)
			pos++
		}
		if len(seen) == 0 && p.minOccurs == 0 {
			return pos
		}
		var missing []string
		for _, c := range p.children {
			name := v.s.deref(c.elem).name
			if c.minOccurs > 0 && !seen[name] {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			v.missing(parent, missing, false)
		}
		return pos

	default:
		count := 0
		for p.maxOccurs == unbounded || count < p.maxOccurs {
			if pos >= len(kids) || !slices.Contains(v.firsts(p), kids[pos].name) {
				break
			}
			next := v.once(p, parent, kids, pos)
			count++
			if next == pos {
				break
			}
			pos = next
		}
		if count < p.minOccurs {
			if p.kind == particleChoice {
				v.missing(parent, v.firsts(p), true)
			} else {
				pos = v.once(p, parent, kids, pos)
			}
		}
		return pos
	}
}

// once matches a single occurrence of a sequence or choice group.
func (v *validation) once(p *particle, parent *node, kids []*node, pos int) int {
	if p.kind == particleSequence {
		for _, c := range p.children {
			pos = v.particle(c, parent, kids, pos)
		}
		return pos
	}
	if pos < len(kids) {
		for _, c := range p.children {
			if slices.Contains(v.firsts(c), kids[pos].name) {
				return v.particle(c, parent, kids, pos)
			}
		}
	}
	return pos
}

// firsts returns the element names that can start p.
func (v *validation) firsts(p *particle) []string {
	switch p.kind {
	case particleElement:
		return []string{v.s.deref(p.elem).name}
	case particleSequence:
		var out []string
		for _, c := range p.children {
			out = append(out, v.firsts(c)...)
			if !v.nullable(c) {
				break
			}
		}
		return out
	default:
		var out []string
		for _, c := range p.children {
			out = append(out, v.firsts(c)...)
		}
		return out
	}
}

func (v *validation) nullable(p *particle) bool {
	if p.minOccurs == 0 {
		return true
	}
	switch p.kind {
	case particleElement:
		return false
	case particleChoice:
		return slices.ContainsFunc(p.children, v.nullable)
	default:
		for _, c := range p.children {
			if !v.nullable(c) {
				return false
			}
		}
		return true
	}
}

func (v *validation) missing(parent *node, names []string, oneOf bool) {
	expected := "( " + strings.Join(names, ", ") + " )"
	if oneOf && len(names) > 1 {
		expected = "one of " + expected
	}
	v.add(parent, "Element '%s': Missing child element(s). Expected is %s.", parent.name, expected)
}

func ignoredAttr(space, local string) bool {
	return space == "xmlns" || local == "xmlns" || space == xsiNamespace || space == "xml" ||
		space == "http://www.w3.org/XML/1998/namespace"
}

func xsiNil(n *node) bool {
	for _, a := range n.attrs {
		if a.Name.Space == xsiNamespace && a.Name.Local == "nil" {
			return a.Value == "true" || a.Value == "1"
		}
	}
	return false
}

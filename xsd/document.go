package xsd

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// Problem is a single XML parse or schema validity failure.
type Problem struct {
	Message string
	// Line is the 1-based line in the instance document, 0 when unknown
	Line int
}

func (p Problem) String() string {
	return p.Message
}

// node is a parsed element with its position.
type node struct {
	space    string
	name     string
	attrs    []xml.Attr
	children []*node
	text     strings.Builder
	line     int
}

func (n *node) attr(local string) (string, bool) {
	for _, a := range n.attrs {
		if a.Name.Local == local && a.Name.Space == "" {
			return a.Value, true
		}
	}
	return "", false
}

// CheckWellFormed parses doc and reports why it is not well-formed XML.
// It returns nil for a well-formed document.
func CheckWellFormed(doc []byte) []Problem {
	_, problems := parseTree(doc)
	return problems
}

// parseTree decodes doc into an element tree. The decoder stops at the
// first syntax error, so at most one problem is reported per document.
func parseTree(doc []byte) (*node, []Problem) {
	if len(bytes.TrimSpace(doc)) == 0 {
		return nil, []Problem{{Message: "Document is empty", Line: 1}}
	}

	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.Strict = true

	var (
		root   *node
		stack  []*node
		closed bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, []Problem{syntaxProblem(dec, err)}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			line, _ := dec.InputPos()
			if closed {
				return nil, []Problem{{Message: "Extra content at the end of the document", Line: line}}
			}
			n := &node{space: t.Name.Space, name: t.Name.Local, attrs: t.Attr, line: line}
			if len(stack) == 0 {
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				closed = true
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
				continue
			}
			if len(bytes.TrimSpace(t)) > 0 {
				line, _ := dec.InputPos()
				if closed {
					return nil, []Problem{{Message: "Extra content at the end of the document", Line: line}}
				}
				return nil, []Problem{{Message: "Start tag expected, '<' not found", Line: line}}
			}
		}
	}

	if root == nil {
		return nil, []Problem{{Message: "Start tag expected, '<' not found", Line: 1}}
	}
	return root, nil
}

func syntaxProblem(dec *xml.Decoder, err error) Problem {
	var syn *xml.SyntaxError
	if errors.As(err, &syn) {
		return Problem{Message: syn.Msg, Line: syn.Line}
	}
	line, _ := dec.InputPos()
	return Problem{Message: err.Error(), Line: line}
}

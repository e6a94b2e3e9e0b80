// Package yamlutil provides order-preserving helpers over yaml.Node trees
// for the RAML and OpenAPI adapters.
package yamlutil

import (
	"fmt"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v4"
	k8syaml "sigs.k8s.io/yaml"
)

// Pair is one key/value entry of a mapping node.
type Pair struct {
	Key   string
	Value *yaml.Node
}

// Root parses data and returns the top-level mapping node.
func Root(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, fmt.Errorf("document is empty")
		}
		root = root.Content[0]
	}
	root = Deref(root)
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("document root must be a mapping")
	}
	return root, nil
}

// Deref follows alias nodes.
func Deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// Pairs returns the entries of a mapping node in document order. It
// returns nil for any other node kind.
func Pairs(n *yaml.Node) []Pair {
	n = Deref(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	out := make([]Pair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, Pair{Key: n.Content[i].Value, Value: Deref(n.Content[i+1])})
	}
	return out
}

// Get returns the value stored under key in a mapping node, or nil.
func Get(n *yaml.Node, key string) *yaml.Node {
	for _, p := range Pairs(n) {
		if p.Key == key {
			return p.Value
		}
	}
	return nil
}

// IsNull reports whether n is absent or an explicit null.
func IsNull(n *yaml.Node) bool {
	n = Deref(n)
	return n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

// String returns the value of a scalar node, or "".
func String(n *yaml.Node) string {
	n = Deref(n)
	if n == nil || n.Kind != yaml.ScalarNode || IsNull(n) {
		return ""
	}
	return n.Value
}

// Strings returns a scalar as a one element slice, or the scalar items of
// a sequence. Null items are skipped.
func Strings(n *yaml.Node) []string {
	n = Deref(n)
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.ScalarNode:
		if s := String(n); s != "" {
			return []string{s}
		}
	case yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			if s := String(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Bool parses a boolean scalar, returning def when absent or invalid.
func Bool(n *yaml.Node, def bool) bool {
	b, err := strconv.ParseBool(strings.ToLower(String(n)))
	if err != nil {
		return def
	}
	return b
}

// Float parses a numeric scalar.
func Float(n *yaml.Node) (float64, bool) {
	s := String(n)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// Items returns the children of a sequence node.
func Items(n *yaml.Node) []*yaml.Node {
	n = Deref(n)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	out := make([]*yaml.Node, len(n.Content))
	for i, c := range n.Content {
		out[i] = Deref(c)
	}
	return out
}

// ToJSON re-encodes a node as JSON text. Schemas written as YAML mappings
// go through it before compilation.
func ToJSON(n *yaml.Node) ([]byte, error) {
	data, err := yaml.Marshal(Deref(n))
	if err != nil {
		return nil, err
	}
	return k8syaml.YAMLToJSON(data)
}

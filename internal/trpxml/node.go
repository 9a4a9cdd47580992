// Package trpxml decodes TRP documents into a generic element tree.
package trpxml

import (
	"strings"

	"backend-trpreport/internal/shared/optional"
)

// Node is one XML element. Children keep document order, so repeated
// elements such as event or trkpt can be read back as ordered sequences.
type Node struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*Node
}

// Child returns the first direct child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// All returns every direct child with the given name, in document order.
func (n *Node) All(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Find follows a path of first-match children. Nil when any step is absent.
func (n *Node) Find(path ...string) *Node {
	cur := n
	for _, name := range path {
		cur = cur.Child(name)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Attr returns an attribute value if the element carries it.
func (n *Node) Attr(name string) optional.Value[string] {
	if n == nil {
		return optional.None[string]()
	}
	v, ok := n.Attrs[name]
	if !ok {
		return optional.None[string]()
	}
	return optional.Some(v)
}

// TextAt returns the trimmed character data of the element at path.
// An element that exists but is empty is reported as present.
func (n *Node) TextAt(path ...string) optional.Value[string] {
	target := n.Find(path...)
	if target == nil {
		return optional.None[string]()
	}
	return optional.Some(strings.TrimSpace(target.Text))
}

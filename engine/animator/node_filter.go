package animator

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// NodeFilter is an immutable membership predicate over hierarchy nodes, used to restrict which
// bones an overriding layer may replace.
type NodeFilter struct {
	nodes map[*model.Node]struct{}
}

// NewExplicitFilter captures exactly the given nodes. Nil entries are ignored.
//
// Parameters:
//   - nodes: the nodes to allow
//
// Returns:
//   - *NodeFilter: the filter
func NewExplicitFilter(nodes ...*model.Node) *NodeFilter {
	f := &NodeFilter{nodes: make(map[*model.Node]struct{}, len(nodes))}
	for _, n := range nodes {
		if n != nil {
			f.nodes[n] = struct{}{}
		}
	}
	return f
}

// NewTreeFilter captures root and all of its descendants.
//
// Parameters:
//   - root: the subtree root, nil yields an empty filter
//
// Returns:
//   - *NodeFilter: the filter
func NewTreeFilter(root *model.Node) *NodeFilter {
	f := &NodeFilter{nodes: make(map[*model.Node]struct{})}
	root.Walk(func(n *model.Node) bool {
		f.nodes[n] = struct{}{}
		return true
	})
	return f
}

// Allows reports whether n was captured by the filter. It is false for a nil node.
func (f *NodeFilter) Allows(n *model.Node) bool {
	if f == nil || n == nil {
		return false
	}
	_, ok := f.nodes[n]
	return ok
}

// Len returns the number of captured nodes.
func (f *NodeFilter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.nodes)
}

// Remap captures the nodes under root whose names match a node captured by f. It carries a filter
// over to another version of the same hierarchy, such as a reloaded model.
//
// Parameters:
//   - root: the root of the target hierarchy
//
// Returns:
//   - *NodeFilter: the remapped filter
func (f *NodeFilter) Remap(root *model.Node) *NodeFilter {
	names := make(map[string]struct{}, f.Len())
	if f != nil {
		for n := range f.nodes {
			names[n.Name] = struct{}{}
		}
	}

	out := &NodeFilter{nodes: make(map[*model.Node]struct{}, len(names))}
	root.Walk(func(n *model.Node) bool {
		if _, ok := names[n.Name]; ok {
			out.nodes[n] = struct{}{}
		}
		return true
	})
	return out
}

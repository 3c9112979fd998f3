package tree

import (
	"path/filepath"
	"sort"
	"time"
)

// File is a relevant source file directly inside a directory.
type File struct {
	Path    string
	ModTime time.Time
}

// Node is a directory retained in the pruned tree.
type Node struct {
	Path        string
	Name        string
	Depth       int
	Children    map[string]*Node
	Files       []File
	HasOwnFiles bool

	parent *Node
}

func newNode(path string, parent *Node) *Node {
	n := &Node{
		Path:     path,
		Name:     filepath.Base(path),
		Children: make(map[string]*Node),
		parent:   parent,
	}
	if parent != nil {
		n.Depth = parent.Depth + 1
	}
	return n
}

// Parent returns the enclosing directory node, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// IsPassThrough reports whether the node only exists to hold descendants.
func (n *Node) IsPassThrough() bool {
	return !n.HasOwnFiles
}

// Rel returns the node path relative to the root of its tree.
func (n *Node) Rel() string {
	root := n
	for root.parent != nil {
		root = root.parent
	}
	rel, err := filepath.Rel(root.Path, n.Path)
	if err != nil {
		return n.Path
	}
	return filepath.ToSlash(rel)
}

// SortedChildren returns children ordered by name.
func (n *Node) SortedChildren() []*Node {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Node, 0, len(names))
	for _, name := range names {
		out = append(out, n.Children[name])
	}
	return out
}

// Walk visits n and its descendants in pre-order, children by name.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, child := range n.SortedChildren() {
		child.Walk(fn)
	}
}

// Find returns the node at relPath ("." for the root), or nil.
func (n *Node) Find(relPath string) *Node {
	relPath = filepath.ToSlash(filepath.Clean(relPath))
	var found *Node
	n.Walk(func(candidate *Node) {
		if found == nil && candidate.Rel() == relPath {
			found = candidate
		}
	})
	return found
}

// GroupByDepth buckets every node by depth; index i holds the nodes at depth i.
func GroupByDepth(root *Node) [][]*Node {
	var buckets [][]*Node
	root.Walk(func(n *Node) {
		for len(buckets) <= n.Depth {
			buckets = append(buckets, nil)
		}
		buckets[n.Depth] = append(buckets[n.Depth], n)
	})
	return buckets
}

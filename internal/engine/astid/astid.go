package astid

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeID is a small positional identifier for an item-bearing syntax node,
// scoped to one file. IDs are assigned breadth-first, so an edit inside one
// item's body cannot shift the IDs of items outside it, and reordering at
// one nesting level leaves deeper levels' relative numbering intact.
type NodeID uint32

// itemKinds are the node kinds that receive stable IDs. Only nodes the
// lowered representation refers back to need one.
var itemKinds = map[string]bool{
	"mod_item":                 true,
	"use_declaration":          true,
	"extern_crate_declaration": true,
	"struct_item":              true,
	"union_item":               true,
	"enum_item":                true,
	"function_item":            true,
	"function_signature_item":  true,
	"trait_item":               true,
	"type_item":                true,
	"const_item":               true,
	"static_item":              true,
	"impl_item":                true,
	"macro_invocation":         true,
	"macro_definition":         true,
	"foreign_mod_item":         true,
}

type nodeKey struct {
	start uint
	end   uint
	kind  string
}

// Map assigns stable positional IDs to one file's item nodes. Build it once
// per (file, tree) pair; lookups are read-only afterward and safe for
// concurrent use.
type Map struct {
	byKey map[nodeKey]NodeID
	nodes []*sitter.Node
}

// NewMap numbers every item-bearing node reachable from root, level by
// level.
func NewMap(root *sitter.Node) *Map {
	m := &Map{byKey: make(map[nodeKey]NodeID)}
	if root == nil {
		return m
	}

	queue := []*sitter.Node{root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		if itemKinds[node.Kind()] {
			id := NodeID(len(m.nodes))
			m.byKey[keyOf(node)] = id
			m.nodes = append(m.nodes, node)
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			queue = append(queue, node.Child(i))
		}
	}
	return m
}

// ID returns the stable ID for node. Asking for a node that was not part of
// the walked tree is a contract violation and panics.
func (m *Map) ID(node *sitter.Node) NodeID {
	id, ok := m.byKey[keyOf(node)]
	if !ok {
		panic(fmt.Sprintf("astid: node %s@%d is not part of this file's id map", node.Kind(), node.StartByte()))
	}
	return id
}

// Node resolves an ID back to its syntax node. Panics on an ID from a
// different map or out of range.
func (m *Map) Node(id NodeID) *sitter.Node {
	if int(id) >= len(m.nodes) {
		panic(fmt.Sprintf("astid: id %d out of range (%d nodes)", id, len(m.nodes)))
	}
	return m.nodes[id]
}

// Len reports how many nodes carry IDs.
func (m *Map) Len() int {
	return len(m.nodes)
}

func keyOf(node *sitter.Node) nodeKey {
	return nodeKey{start: node.StartByte(), end: node.EndByte(), kind: node.Kind()}
}

package syntax

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Tree is one parsed file: the tree-sitter tree plus the source bytes every
// node refers back into. Nodes are only valid until Close is called.
type Tree struct {
	Path   string
	Source []byte
	inner  *sitter.Tree
}

func (t *Tree) Root() *sitter.Node {
	return t.inner.RootNode()
}

func (t *Tree) Close() {
	if t.inner != nil {
		t.inner.Close()
		t.inner = nil
	}
}

func (t *Tree) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(t.Source[node.StartByte():node.EndByte()])
}

// Item is one item syntax node together with the outer attribute nodes that
// decorate it. The grammar emits `attribute_item` nodes as siblings
// preceding the item they attach to, so iteration reassembles the pairing.
type Item struct {
	Node  *sitter.Node
	Attrs []*sitter.Node
}

// ItemOwner is anything exposing an ordered list of item syntax nodes: a
// whole-file root or a macro-produced item-list fragment. A module body's
// declaration_list satisfies it too via NodeItemOwner.
type ItemOwner interface {
	Items() []Item
}

// NodeItemOwner adapts any container node (source_file, declaration_list,
// macro fragment) to ItemOwner.
type NodeItemOwner struct {
	Node *sitter.Node
}

func (o NodeItemOwner) Items() []Item {
	return collectItems(o.Node)
}

func collectItems(container *sitter.Node) []Item {
	if container == nil {
		return nil
	}

	var items []Item
	var pendingAttrs []*sitter.Node

	for i := uint(0); i < container.ChildCount(); i++ {
		child := container.Child(i)
		switch child.Kind() {
		case "attribute_item":
			pendingAttrs = append(pendingAttrs, child)
		case "inner_attribute_item", "empty_statement", "line_comment", "block_comment", "{", "}", ";":
			// Inner attributes target the container, not a member item.
		case "expression_statement":
			// `path!();` at item level sometimes parses as an expression
			// statement wrapping the invocation; unwrap it.
			if inner := ChildOfKind(child, "macro_invocation"); inner != nil {
				items = append(items, Item{Node: inner, Attrs: pendingAttrs})
			}
			pendingAttrs = nil
		default:
			items = append(items, Item{Node: child, Attrs: pendingAttrs})
			pendingAttrs = nil
		}
	}
	return items
}

// FieldChild returns the named field child, or nil.
func FieldChild(node *sitter.Node, field string) *sitter.Node {
	if node == nil {
		return nil
	}
	return node.ChildByFieldName(field)
}

// ChildOfKind returns the first direct child with the given kind.
func ChildOfKind(node *sitter.Node, kind string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == kind {
			return child
		}
	}
	return nil
}

// HasTokenChild reports whether node has a direct child of the given kind
// that is actually present in the source (error recovery can fabricate
// missing tokens; those do not count).
func HasTokenChild(node *sitter.Node, kind string) bool {
	if node == nil {
		return false
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == kind && !child.IsMissing() {
			return true
		}
	}
	return false
}

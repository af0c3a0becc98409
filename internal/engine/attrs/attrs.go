package attrs

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"rawlower/internal/engine/hygiene"
)

// Attr is one parsed `#[...]` attribute: its key path and the identifier
// tokens found inside its argument token tree, if any.
type Attr struct {
	Key       string
	ArgIdents []string
	HasArgs   bool
	ValueText string
}

// Set is the queryable attribute collection of one item. Immutable once
// parsed; cheap to copy (the backing slice is shared, never mutated).
type Set struct {
	attrs []Attr
}

// Parse turns an item's `attribute_item` nodes into a Set. Attribute shapes
// the grammar could not fully parse contribute nothing; lowering never
// fails on malformed attributes.
func Parse(nodes []*sitter.Node, src []byte, hyg *hygiene.Context) Set {
	if len(nodes) == 0 {
		return Set{}
	}

	parsed := make([]Attr, 0, len(nodes))
	for _, node := range nodes {
		attr, ok := parseOne(node, src)
		if !ok {
			continue
		}
		parsed = append(parsed, attr)
	}
	return Set{attrs: parsed}
}

func parseOne(item *sitter.Node, src []byte) (Attr, bool) {
	var inner *sitter.Node
	for i := uint(0); i < item.ChildCount(); i++ {
		child := item.Child(i)
		if child.Kind() == "attribute" {
			inner = child
			break
		}
	}
	if inner == nil {
		return Attr{}, false
	}

	out := Attr{}
	for i := uint(0); i < inner.ChildCount(); i++ {
		child := inner.Child(i)
		switch child.Kind() {
		case "identifier", "scoped_identifier", "crate", "super", "self":
			if out.Key == "" {
				out.Key = lastPathSegment(string(src[child.StartByte():child.EndByte()]))
			}
		case "token_tree":
			out.HasArgs = true
			collectIdents(child, src, &out.ArgIdents)
		case "string_literal":
			out.ValueText = string(src[child.StartByte():child.EndByte()])
		}
	}
	if out.Key == "" {
		return Attr{}, false
	}
	return out, true
}

func collectIdents(node *sitter.Node, src []byte, out *[]string) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "identifier" {
			*out = append(*out, string(src[child.StartByte():child.EndByte()]))
			continue
		}
		collectIdents(child, src, out)
	}
}

func lastPathSegment(path string) string {
	path = strings.TrimSpace(path)
	if idx := strings.LastIndex(path, "::"); idx >= 0 {
		return path[idx+2:]
	}
	return path
}

// ByKey returns the query handle for one attribute key.
func (s Set) ByKey(key string) Query {
	return Query{set: s, key: key}
}

// Len reports the number of parsed attributes.
func (s Set) Len() int {
	return len(s.attrs)
}

// Query inspects every attribute in a set that matches one key.
type Query struct {
	set Set
	key string
}

// Exists reports whether any attribute carries the queried key.
func (q Query) Exists() bool {
	for _, attr := range q.set.attrs {
		if attr.Key == q.key {
			return true
		}
	}
	return false
}

// ArgIdents returns the identifier tokens inside the argument lists of all
// matching attributes, in source order.
func (q Query) ArgIdents() []string {
	var out []string
	for _, attr := range q.set.attrs {
		if attr.Key == q.key {
			out = append(out, attr.ArgIdents...)
		}
	}
	return out
}

// AnyArgIdentContains reports whether any argument identifier of a matching
// attribute contains sub as a substring. Substring, not equality: marker
// tokens embedded in longer identifiers still count.
func (q Query) AnyArgIdentContains(sub string) bool {
	for _, ident := range q.ArgIdents() {
		if strings.Contains(ident, sub) {
			return true
		}
	}
	return false
}

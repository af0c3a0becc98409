package modpath

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"rawlower/internal/engine/hygiene"
)

// PathKind distinguishes how a path anchors its first segment.
type PathKind int

const (
	// KindPlain paths resolve relative to the current scope.
	KindPlain PathKind = iota
	// KindCrate paths start at the crate root (`crate::...`).
	KindCrate
	// KindSuper paths climb Supers parent modules before resolving.
	KindSuper
	// KindSelf paths are explicit `self::...` anchors.
	KindSelf
	// KindAbs paths start with a leading `::`.
	KindAbs
)

// Path is a lowered module path: an anchor kind plus named segments.
type Path struct {
	Kind     PathKind
	Supers   int
	Segments []hygiene.Name
}

// FromName builds a single-segment plain path, as used for extern-crate
// statements.
func FromName(name hygiene.Name) Path {
	return Path{Kind: KindPlain, Segments: []hygiene.Name{name}}
}

// FromSyntax lowers a path syntax node (identifier, scoped_identifier or a
// leading crate/super/self anchor). Returns false for shapes that do not
// form a usable path.
func FromSyntax(node *sitter.Node, src []byte, hyg *hygiene.Context) (Path, bool) {
	if node == nil {
		return Path{}, false
	}

	var path Path
	if !appendSyntax(&path, node, src, hyg) {
		return Path{}, false
	}
	if len(path.Segments) == 0 && path.Kind == KindPlain {
		return Path{}, false
	}
	return path, true
}

// appendSyntax flattens node onto path, left to right.
func appendSyntax(path *Path, node *sitter.Node, src []byte, hyg *hygiene.Context) bool {
	switch node.Kind() {
	case "identifier", "type_identifier", "field_identifier":
		path.Segments = append(path.Segments, hyg.ResolveName(node, src))
		return true
	case "crate":
		if len(path.Segments) == 0 {
			path.Kind = KindCrate
			return true
		}
		return false
	case "super":
		if len(path.Segments) == 0 && (path.Kind == KindPlain || path.Kind == KindSuper) {
			path.Kind = KindSuper
			path.Supers++
			return true
		}
		return false
	case "self":
		if len(path.Segments) == 0 && path.Kind == KindPlain {
			path.Kind = KindSelf
			return true
		}
		return false
	case "scoped_identifier", "scoped_type_identifier":
		qualifier := node.ChildByFieldName("path")
		if qualifier != nil {
			if !appendSyntax(path, qualifier, src, hyg) {
				return false
			}
		} else {
			// `::name` with no qualifier is an absolute path.
			path.Kind = KindAbs
		}
		name := node.ChildByFieldName("name")
		if name == nil {
			return false
		}
		// The name field can itself be an anchor keyword (`super::super`
		// parses with `super` in the name slot), so dispatch on it too.
		return appendSyntax(path, name, src, hyg)
	default:
		return false
	}
}

// Join returns prefix extended by suffix. The suffix must be plain or
// self-anchored; other anchors cannot follow an existing prefix and
// return false.
func Join(prefix Path, suffix Path) (Path, bool) {
	if len(prefix.Segments) == 0 && prefix.Kind == KindPlain && prefix.Supers == 0 {
		return suffix, true
	}
	switch suffix.Kind {
	case KindPlain:
	case KindSelf:
		// `prefix::self` names the prefix itself.
	default:
		return Path{}, false
	}
	out := Path{
		Kind:     prefix.Kind,
		Supers:   prefix.Supers,
		Segments: make([]hygiene.Name, 0, len(prefix.Segments)+len(suffix.Segments)),
	}
	out.Segments = append(out.Segments, prefix.Segments...)
	out.Segments = append(out.Segments, suffix.Segments...)
	return out, true
}

// IsEmpty reports whether the path names nothing at all.
func (p Path) IsEmpty() bool {
	return p.Kind == KindPlain && p.Supers == 0 && len(p.Segments) == 0
}

func (p Path) String() string {
	var b strings.Builder
	switch p.Kind {
	case KindCrate:
		b.WriteString("crate")
	case KindSelf:
		b.WriteString("self")
	case KindAbs:
		b.WriteString("::")
	case KindSuper:
		for i := 0; i < p.Supers; i++ {
			if i > 0 {
				b.WriteString("::")
			}
			b.WriteString("super")
		}
	}
	for i, seg := range p.Segments {
		if i > 0 || p.Kind == KindCrate || p.Kind == KindSelf || p.Kind == KindSuper {
			b.WriteString("::")
		}
		b.WriteString(string(seg))
	}
	return b.String()
}

// Alias is an import rename: either a named alias or the `_` placeholder.
type Alias struct {
	Name       hygiene.Name
	Underscore bool
}

func (a Alias) String() string {
	if a.Underscore {
		return "_"
	}
	return string(a.Name)
}

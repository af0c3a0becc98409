package modpath

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"rawlower/internal/engine/hygiene"
)

// VisitFunc receives one flattened use-tree leaf. alias is nil when the
// leaf carries no rename.
type VisitFunc func(path Path, alias *Alias, isGlob bool)

// ExpandUseTree flattens the use-tree of one `use` declaration into leaf
// paths, invoking visit once per leaf. Grouped trees (`a::{b, c}`) expand
// into one call per branch, glob trees (`a::*`) into one call with isGlob
// set, and `as` clauses carry their alias. Branches the grammar could not
// parse into a usable path are skipped silently.
func ExpandUseTree(useDecl *sitter.Node, src []byte, hyg *hygiene.Context, visit VisitFunc) {
	if useDecl == nil {
		return
	}
	arg := useDecl.ChildByFieldName("argument")
	if arg == nil {
		return
	}
	expand(Path{}, arg, src, hyg, visit)
}

func expand(prefix Path, node *sitter.Node, src []byte, hyg *hygiene.Context, visit VisitFunc) {
	switch node.Kind() {
	case "use_list":
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			switch child.Kind() {
			case "{", "}", ",", "line_comment", "block_comment":
			default:
				expand(prefix, child, src, hyg, visit)
			}
		}

	case "scoped_use_list":
		next := prefix
		if qualifier := node.ChildByFieldName("path"); qualifier != nil {
			parsed, ok := FromSyntax(qualifier, src, hyg)
			if !ok {
				return
			}
			joined, ok := Join(prefix, parsed)
			if !ok {
				return
			}
			next = joined
		}
		if list := node.ChildByFieldName("list"); list != nil {
			expand(next, list, src, hyg, visit)
		}

	case "use_as_clause":
		parsed, ok := FromSyntax(node.ChildByFieldName("path"), src, hyg)
		if !ok {
			return
		}
		full, ok := Join(prefix, parsed)
		if !ok {
			return
		}
		visit(full, aliasOf(node, src, hyg), false)

	case "use_wildcard":
		next := prefix
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() == "*" || child.Kind() == "::" {
				continue
			}
			parsed, ok := FromSyntax(child, src, hyg)
			if !ok {
				return
			}
			joined, ok := Join(next, parsed)
			if !ok {
				return
			}
			next = joined
		}
		visit(next, nil, true)

	case "self":
		// `use a::{self}` imports the prefix under its own name.
		if !prefix.IsEmpty() {
			visit(prefix, nil, false)
			return
		}
		parsed, ok := FromSyntax(node, src, hyg)
		if !ok {
			return
		}
		visit(parsed, nil, false)

	default:
		parsed, ok := FromSyntax(node, src, hyg)
		if !ok {
			return
		}
		full, ok := Join(prefix, parsed)
		if !ok {
			return
		}
		visit(full, nil, false)
	}
}

// aliasOf resolves the alias of a use_as_clause: a named alias, or the
// underscore placeholder when the clause renames to `_`.
func aliasOf(clause *sitter.Node, src []byte, hyg *hygiene.Context) *Alias {
	aliasNode := clause.ChildByFieldName("alias")
	if aliasNode == nil {
		// `as` with no usable name still counts as a discard rename.
		for i := uint(0); i < clause.ChildCount(); i++ {
			if clause.Child(i).Kind() == "as" {
				return &Alias{Underscore: true}
			}
		}
		return nil
	}
	text := string(src[aliasNode.StartByte():aliasNode.EndByte()])
	if text == "_" {
		return &Alias{Underscore: true}
	}
	return &Alias{Name: hyg.ResolveName(aliasNode, src)}
}

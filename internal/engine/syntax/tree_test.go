package syntax

import (
	"testing"
)

func parse(t *testing.T, source string) *Tree {
	t.Helper()
	loader := NewGrammarLoader()
	tree, err := loader.Parse("test.rs", []byte(source))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(tree.Close)
	return tree
}

func TestItemsPairsAttributes(t *testing.T) {
	tree := parse(t, `
// leading comment
#[derive(Debug)]
#[repr(C)]
struct Tagged;

struct Bare;
`)

	items := NodeItemOwner{Node: tree.Root()}.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	if items[0].Node.Kind() != "struct_item" {
		t.Errorf("expected struct_item, got %s", items[0].Node.Kind())
	}
	if len(items[0].Attrs) != 2 {
		t.Errorf("expected 2 attributes on first item, got %d", len(items[0].Attrs))
	}
	if len(items[1].Attrs) != 0 {
		t.Errorf("expected no attributes on second item, got %d", len(items[1].Attrs))
	}
}

func TestItemsSkipsInnerAttributesAndComments(t *testing.T) {
	tree := parse(t, `
#![allow(dead_code)]
// comment
fn only() {}
`)

	items := NodeItemOwner{Node: tree.Root()}.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Node.Kind() != "function_item" {
		t.Errorf("expected function_item, got %s", items[0].Node.Kind())
	}
	if len(items[0].Attrs) != 0 {
		t.Error("inner attribute must not attach to a member item")
	}
}

func TestItemsUnwrapsMacroInvocationStatements(t *testing.T) {
	tree := parse(t, `
foo::bar!();
fn after() {}
`)

	items := NodeItemOwner{Node: tree.Root()}.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Node.Kind() != "macro_invocation" {
		t.Errorf("expected macro_invocation, got %s", items[0].Node.Kind())
	}
}

func TestItemsOverDeclarationList(t *testing.T) {
	tree := parse(t, `
mod wrapper {
    fn inner_a() {}
    #[cfg(test)]
    fn inner_b() {}
}
`)

	outer := NodeItemOwner{Node: tree.Root()}.Items()
	if len(outer) != 1 {
		t.Fatalf("expected 1 outer item, got %d", len(outer))
	}
	body := FieldChild(outer[0].Node, "body")
	if body == nil {
		t.Fatal("expected module body")
	}

	inner := NodeItemOwner{Node: body}.Items()
	if len(inner) != 2 {
		t.Fatalf("expected 2 inner items, got %d", len(inner))
	}
	if len(inner[1].Attrs) != 1 {
		t.Errorf("expected 1 attribute on second inner item, got %d", len(inner[1].Attrs))
	}
}

func TestFieldChildAndText(t *testing.T) {
	tree := parse(t, `mod named;`)

	items := NodeItemOwner{Node: tree.Root()}.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	name := FieldChild(items[0].Node, "name")
	if name == nil {
		t.Fatal("expected name field")
	}
	if tree.Text(name) != "named" {
		t.Errorf("expected text named, got %q", tree.Text(name))
	}
	if FieldChild(items[0].Node, "body") != nil {
		t.Error("declaration must not have a body field")
	}
}

func TestHasTokenChild(t *testing.T) {
	tree := parse(t, `
mod declared;
mod broken
fn after() {}
`)

	items := NodeItemOwner{Node: tree.Root()}.Items()
	var declared, broken bool
	for _, item := range items {
		if item.Node.Kind() != "mod_item" {
			continue
		}
		name := FieldChild(item.Node, "name")
		switch {
		case name != nil && tree.Text(name) == "declared":
			declared = HasTokenChild(item.Node, ";")
		case name != nil && tree.Text(name) == "broken":
			broken = HasTokenChild(item.Node, ";")
		}
	}

	if !declared {
		t.Error("expected real semicolon on declared module")
	}
	if broken {
		t.Error("error-recovery token must not count as a real semicolon")
	}
}

func TestParseRejectsNilTree(t *testing.T) {
	loader := NewGrammarLoader()
	tree, err := loader.Parse("empty.rs", []byte(""))
	if err != nil {
		t.Fatalf("empty input should still parse: %v", err)
	}
	defer tree.Close()
	if tree.Root() == nil {
		t.Fatal("expected root node")
	}
	if len(NodeItemOwner{Node: tree.Root()}.Items()) != 0 {
		t.Error("empty file must have no items")
	}
}

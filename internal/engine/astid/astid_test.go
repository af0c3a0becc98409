package astid

import (
	"testing"

	"rawlower/internal/engine/syntax"
)

func parseRoot(t *testing.T, source string) (*syntax.Tree, *Map) {
	t.Helper()
	loader := syntax.NewGrammarLoader()
	tree, err := loader.Parse("test.rs", []byte(source))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(tree.Close)
	return tree, NewMap(tree.Root())
}

func TestNewMapNumbersItems(t *testing.T) {
	tree, m := parseRoot(t, `
fn a() {}
struct B;
mod c {
    fn nested() {}
}
`)

	// Three top-level items plus the nested function.
	if m.Len() != 4 {
		t.Fatalf("expected 4 numbered nodes, got %d", m.Len())
	}

	items := syntax.NodeItemOwner{Node: tree.Root()}.Items()
	for i, item := range items {
		id := m.ID(item.Node)
		if int(id) != i {
			t.Errorf("top-level item %d: expected id %d, got %d", i, i, id)
		}
		// The binding hands out a fresh wrapper per traversal, so compare
		// node identity by span and kind rather than by pointer.
		got := m.Node(id)
		if got.StartByte() != item.Node.StartByte() ||
			got.EndByte() != item.Node.EndByte() ||
			got.Kind() != item.Node.Kind() {
			t.Errorf("id %d did not round-trip to its node", id)
		}
	}
}

func TestBreadthFirstKeepsOuterIDsStable(t *testing.T) {
	before := `
fn first() {}
mod holder {
    fn inner() {}
}
fn last() {}
`
	after := `
fn first() {}
mod holder {
    fn inner() {}
    fn added() {}
}
fn last() {}
`
	treeA, mapA := parseRoot(t, before)
	treeB, mapB := parseRoot(t, after)

	itemsA := syntax.NodeItemOwner{Node: treeA.Root()}.Items()
	itemsB := syntax.NodeItemOwner{Node: treeB.Root()}.Items()
	if len(itemsA) != 3 || len(itemsB) != 3 {
		t.Fatalf("expected 3 top-level items in both trees")
	}

	// Adding a nested item must not renumber items outside the module:
	// all top-level ids come before any nested id.
	for i := range itemsA {
		if mapA.ID(itemsA[i].Node) != mapB.ID(itemsB[i].Node) {
			t.Errorf("top-level item %d changed id after nested edit", i)
		}
	}
}

func TestIDPanicsOnForeignNode(t *testing.T) {
	tree, m := parseRoot(t, `fn solo() {}`)

	defer func() {
		if recover() == nil {
			t.Error("expected panic for a node outside the map")
		}
	}()
	// The file root is not an item-bearing node.
	m.ID(tree.Root())
}

func TestNodePanicsOutOfRange(t *testing.T) {
	_, m := parseRoot(t, `fn solo() {}`)

	defer func() {
		if recover() == nil {
			t.Error("expected panic for an out-of-range id")
		}
	}()
	m.Node(NodeID(42))
}

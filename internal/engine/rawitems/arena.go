package rawitems

import "fmt"

// arena is an append-only store handing out small stable indices. There is
// no removal: an index stays valid for the lifetime of the owning ItemSet.
// Out-of-range access is a programmer error and panics.
type arena[T any] struct {
	items []T
}

func (a *arena[T]) alloc(value T) uint32 {
	idx := uint32(len(a.items))
	a.items = append(a.items, value)
	return idx
}

func (a *arena[T]) get(idx uint32) *T {
	if int(idx) >= len(a.items) {
		panic(fmt.Sprintf("rawitems: index %d out of range (%d entries); index is from another store or item set", idx, len(a.items)))
	}
	return &a.items[idx]
}

func (a *arena[T]) len() int {
	return len(a.items)
}

// ModuleID indexes the module store of one ItemSet.
type ModuleID uint32

// ImportID indexes the import store of one ItemSet.
type ImportID uint32

// DefID indexes the definition store of one ItemSet.
type DefID uint32

// MacroID indexes the macro-call store of one ItemSet.
type MacroID uint32

// ImplID indexes the impl-block store of one ItemSet.
type ImplID uint32

// Package rawitems lowers one file's syntax tree into a raw description of
// its top-level items, without attaching semantics to them.
//
// Raw items are just syntax, but unlike the syntax tree they do not change
// under trivial edits (whitespace, comments, statement bodies), which makes
// the produced ItemSet a recomputation firewall: downstream name resolution
// reads it instead of the tree and is only invalidated when the item
// structure itself changes.
package rawitems

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"rawlower/internal/engine/astid"
	"rawlower/internal/engine/attrs"
	"rawlower/internal/engine/hygiene"
	"rawlower/internal/engine/modpath"
)

// ItemTag identifies which entity store an Item points into.
type ItemTag int

const (
	TagModule ItemTag = iota
	TagImport
	TagDef
	TagMacro
	TagImpl
)

// ItemKind is the closed five-way tag of one raw item: which entity kind it
// is plus the index into that kind's store.
type ItemKind struct {
	tag ItemTag
	raw uint32
}

func ModuleKindOf(id ModuleID) ItemKind { return ItemKind{tag: TagModule, raw: uint32(id)} }
func ImportKindOf(id ImportID) ItemKind { return ItemKind{tag: TagImport, raw: uint32(id)} }
func DefKindOf(id DefID) ItemKind       { return ItemKind{tag: TagDef, raw: uint32(id)} }
func MacroKindOf(id MacroID) ItemKind   { return ItemKind{tag: TagMacro, raw: uint32(id)} }
func ImplKindOf(id ImplID) ItemKind     { return ItemKind{tag: TagImpl, raw: uint32(id)} }

func (k ItemKind) Tag() ItemTag { return k.tag }

func (k ItemKind) AsModule() (ModuleID, bool) { return ModuleID(k.raw), k.tag == TagModule }
func (k ItemKind) AsImport() (ImportID, bool) { return ImportID(k.raw), k.tag == TagImport }
func (k ItemKind) AsDef() (DefID, bool)       { return DefID(k.raw), k.tag == TagDef }
func (k ItemKind) AsMacro() (MacroID, bool)   { return MacroID(k.raw), k.tag == TagMacro }
func (k ItemKind) AsImpl() (ImplID, bool)     { return ImplID(k.raw), k.tag == TagImpl }

// Item is one scoped-list entry: the item's attribute set plus its tag.
type Item struct {
	Attrs attrs.Set
	Kind  ItemKind
}

// ModuleKind tells a module declaration (`mod m;`) from an inline
// definition (`mod m { ... }`). The choice is made once at construction
// and never changes.
type ModuleKind int

const (
	ModuleDeclaration ModuleKind = iota
	ModuleDefinition
)

// ModuleData is one module node. Items is only populated for
// ModuleDefinition and is mutated exclusively during the single recursive
// visit that creates the module; it is frozen afterward.
type ModuleData struct {
	Kind       ModuleKind
	Name       hygiene.Name
	Visibility hygiene.Visibility
	NodeID     astid.NodeID
	Items      []Item
}

// ImportData is one flattened import. A single use declaration produces
// zero or more of these, sharing visibility and the prelude flag but each
// carrying its own path and alias.
type ImportData struct {
	Path          modpath.Path
	Alias         *modpath.Alias
	IsGlob        bool
	IsPrelude     bool
	IsExternCrate bool
	IsMacroUse    bool
	Visibility    hygiene.Visibility
}

// StructShape classifies a struct definition's field syntax.
type StructShape int

const (
	ShapeRecord StructShape = iota
	ShapeTuple
	ShapeUnit
)

// DefTag is the closed variant of definition kinds.
type DefTag int

const (
	DefFunction DefTag = iota
	DefStruct
	DefUnion
	DefEnum
	DefConst
	DefStatic
	DefTrait
	DefTypeAlias
)

// DefKind carries a definition's kind tag, its node id, and for structs the
// field-shape classification.
type DefKind struct {
	Tag    DefTag
	NodeID astid.NodeID
	Shape  StructShape
}

// DefData is one named definition. Definitions found inside an external
// linkage block land here too; their block membership is not retained.
type DefData struct {
	Name       hygiene.Name
	Kind       DefKind
	Visibility hygiene.Visibility
}

// MacroData is one macro call site (or macro_rules definition).
type MacroData struct {
	NodeID     astid.NodeID
	Path       modpath.Path
	Name       hygiene.Name
	HasName    bool
	Export     bool
	LocalInner bool
	Builtin    bool
}

// ImplData is one impl block. Nothing beyond its identity is retained at
// this stage.
type ImplData struct {
	NodeID astid.NodeID
}

// ItemSet is the lowered output for one file: all five entity stores plus
// the top-level scoped item list. It is immutable once Lower returns and
// safe to share across concurrent readers.
type ItemSet struct {
	modules arena[ModuleData]
	imports arena[ImportData]
	defs    arena[DefData]
	macros  arena[MacroData]
	impls   arena[ImplData]
	items   []Item
}

// Items returns the top-level scoped item list in source order.
func (s *ItemSet) Items() []Item {
	return s.items
}

// Module resolves a module index. Panics on an index from another set.
func (s *ItemSet) Module(id ModuleID) *ModuleData {
	return s.modules.get(uint32(id))
}

func (s *ItemSet) Import(id ImportID) *ImportData {
	return s.imports.get(uint32(id))
}

func (s *ItemSet) Def(id DefID) *DefData {
	return s.defs.get(uint32(id))
}

func (s *ItemSet) Macro(id MacroID) *MacroData {
	return s.macros.get(uint32(id))
}

func (s *ItemSet) Impl(id ImplID) *ImplData {
	return s.impls.get(uint32(id))
}

// Counts reports the entity store sizes, in tag order.
func (s *ItemSet) Counts() (modules, imports, defs, macros, impls int) {
	return s.modules.len(), s.imports.len(), s.defs.len(), s.macros.len(), s.impls.len()
}

// Fingerprint hashes the structural content of the set: entity records and
// tag sequences, nothing positional. Two lowers of structurally identical
// files produce equal fingerprints even when bodies or comments differ.
func (s *ItemSet) Fingerprint() string {
	h := sha256.New()
	for i := range s.modules.items {
		m := &s.modules.items[i]
		fmt.Fprintf(h, "mod/%d/%s/%d/%d;", m.Kind, m.Name, m.Visibility.Kind, m.NodeID)
		writeItems(h, m.Items)
	}
	for i := range s.imports.items {
		imp := &s.imports.items[i]
		fmt.Fprintf(h, "imp/%s/%v/%t/%t/%t/%t/%d;",
			imp.Path, imp.Alias, imp.IsGlob, imp.IsPrelude, imp.IsExternCrate, imp.IsMacroUse, imp.Visibility.Kind)
	}
	for i := range s.defs.items {
		d := &s.defs.items[i]
		fmt.Fprintf(h, "def/%s/%d/%d/%d/%d;", d.Name, d.Kind.Tag, d.Kind.Shape, d.Kind.NodeID, d.Visibility.Kind)
	}
	for i := range s.macros.items {
		m := &s.macros.items[i]
		fmt.Fprintf(h, "mac/%s/%s/%t/%t/%t/%t/%d;", m.Path, m.Name, m.HasName, m.Export, m.LocalInner, m.Builtin, m.NodeID)
	}
	for i := range s.impls.items {
		fmt.Fprintf(h, "impl/%d;", s.impls.items[i].NodeID)
	}
	writeItems(h, s.items)
	return hex.EncodeToString(h.Sum(nil))
}

func writeItems(h hash.Hash, items []Item) {
	for _, item := range items {
		fmt.Fprintf(h, "it/%d/%d/%d;", item.Kind.tag, item.Kind.raw, item.Attrs.Len())
	}
}

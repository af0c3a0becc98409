package rawitems

import (
	"math"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"rawlower/internal/engine/astid"
	"rawlower/internal/engine/attrs"
	"rawlower/internal/engine/hygiene"
	"rawlower/internal/engine/modpath"
	"rawlower/internal/engine/syntax"
)

// noModule marks the file's top-level scope in collector calls.
const noModule = ModuleID(math.MaxUint32)

// Lower walks one file's items and produces its ItemSet. The owner is
// either the whole-file root or a macro-produced item-list fragment; either
// way items are visited in source order, exactly once.
//
// Lowering never fails: every malformed item (missing name, missing path,
// module with neither semicolon nor body) is silently omitted, so even a
// broken tree yields a usable, possibly emptier, set. Diagnosing such
// source belongs to a later pass over the original tree.
func Lower(owner syntax.ItemOwner, src []byte, ids *astid.Map, hyg *hygiene.Context) *ItemSet {
	c := &collector{
		set: &ItemSet{},
		src: src,
		ids: ids,
		hyg: hyg,
	}
	c.processScope(noModule, owner)
	return c.set
}

type collector struct {
	set *ItemSet
	src []byte
	ids *astid.Map
	hyg *hygiene.Context
}

// resolveVisibility reads an item's own visibility modifier. Only
// branches that record visibility call it; impls and macros carry none.
func (c *collector) resolveVisibility(node *sitter.Node) hygiene.Visibility {
	return c.hyg.ResolveVisibility(syntax.ChildOfKind(node, "visibility_modifier"), c.src)
}

func (c *collector) processScope(current ModuleID, owner syntax.ItemOwner) {
	for _, item := range owner.Items() {
		c.addItem(current, item)
	}
}

func (c *collector) addItem(current ModuleID, item syntax.Item) {
	node := item.Node
	attrSet := attrs.Parse(item.Attrs, c.src, c.hyg)

	var kind DefKind
	var nameNode *sitter.Node

	switch node.Kind() {
	case "mod_item":
		c.addModule(current, node, attrSet)
		return
	case "use_declaration":
		c.addUse(current, node, attrSet, c.resolveVisibility(node))
		return
	case "extern_crate_declaration":
		c.addExternCrate(current, node, attrSet, c.resolveVisibility(node))
		return
	case "impl_item":
		c.addImpl(current, node, attrSet)
		return
	case "macro_invocation", "macro_definition":
		c.addMacro(current, node, attrSet)
		return
	case "foreign_mod_item":
		c.addForeignBlock(current, node)
		return
	case "struct_item":
		kind = DefKind{Tag: DefStruct, NodeID: c.ids.ID(node), Shape: structShape(node)}
		nameNode = syntax.FieldChild(node, "name")
	case "union_item":
		kind = DefKind{Tag: DefUnion, NodeID: c.ids.ID(node)}
		nameNode = syntax.FieldChild(node, "name")
	case "enum_item":
		kind = DefKind{Tag: DefEnum, NodeID: c.ids.ID(node)}
		nameNode = syntax.FieldChild(node, "name")
	case "function_item":
		kind = DefKind{Tag: DefFunction, NodeID: c.ids.ID(node)}
		nameNode = syntax.FieldChild(node, "name")
	case "trait_item":
		kind = DefKind{Tag: DefTrait, NodeID: c.ids.ID(node)}
		nameNode = syntax.FieldChild(node, "name")
	case "type_item":
		kind = DefKind{Tag: DefTypeAlias, NodeID: c.ids.ID(node)}
		nameNode = syntax.FieldChild(node, "name")
	case "const_item":
		kind = DefKind{Tag: DefConst, NodeID: c.ids.ID(node)}
		nameNode = syntax.FieldChild(node, "name")
	case "static_item":
		kind = DefKind{Tag: DefStatic, NodeID: c.ids.ID(node)}
		nameNode = syntax.FieldChild(node, "name")
	default:
		// Not an item kind this stage lowers.
		return
	}

	if nameNode == nil {
		return
	}
	def := DefID(c.set.defs.alloc(DefData{
		Name:       c.hyg.ResolveName(nameNode, c.src),
		Kind:       kind,
		Visibility: c.resolveVisibility(node),
	}))
	c.pushItem(current, attrSet, DefKindOf(def))
}

// addModule handles both declaration and definition shapes. A module
// without a name emits nothing; a module with neither semicolon nor body is
// malformed and is dropped from its parent's list without a trace.
func (c *collector) addModule(current ModuleID, node *sitter.Node, attrSet attrs.Set) {
	nameNode := syntax.FieldChild(node, "name")
	if nameNode == nil {
		return
	}
	name := c.hyg.ResolveName(nameNode, c.src)
	visibility := c.resolveVisibility(node)
	nodeID := c.ids.ID(node)

	if body := syntax.FieldChild(node, "body"); body != nil {
		id := ModuleID(c.set.modules.alloc(ModuleData{
			Kind:       ModuleDefinition,
			Name:       name,
			Visibility: visibility,
			NodeID:     nodeID,
		}))
		// The child scope appends into the module entity through its
		// handle while this frame still holds the parent scope.
		c.processScope(id, syntax.NodeItemOwner{Node: body})
		c.pushItem(current, attrSet, ModuleKindOf(id))
		return
	}

	if syntax.HasTokenChild(node, ";") {
		id := ModuleID(c.set.modules.alloc(ModuleData{
			Kind:       ModuleDeclaration,
			Name:       name,
			Visibility: visibility,
			NodeID:     nodeID,
		}))
		c.pushItem(current, attrSet, ModuleKindOf(id))
	}
}

func (c *collector) addUse(current ModuleID, node *sitter.Node, attrSet attrs.Set, visibility hygiene.Visibility) {
	isPrelude := attrSet.ByKey("prelude_import").Exists()

	modpath.ExpandUseTree(node, c.src, c.hyg, func(path modpath.Path, alias *modpath.Alias, isGlob bool) {
		c.pushImport(current, attrSet, ImportData{
			Path:       path,
			Alias:      alias,
			IsGlob:     isGlob,
			IsPrelude:  isPrelude,
			Visibility: visibility,
		})
	})
}

func (c *collector) addExternCrate(current ModuleID, node *sitter.Node, attrSet attrs.Set, visibility hygiene.Visibility) {
	nameNode := syntax.FieldChild(node, "name")
	if nameNode == nil {
		return
	}

	var alias *modpath.Alias
	if aliasNode := syntax.FieldChild(node, "alias"); aliasNode != nil {
		text := c.src[aliasNode.StartByte():aliasNode.EndByte()]
		if string(text) == "_" {
			alias = &modpath.Alias{Underscore: true}
		} else {
			alias = &modpath.Alias{Name: c.hyg.ResolveName(aliasNode, c.src)}
		}
	} else if syntax.HasTokenChild(node, "as") {
		// `as` with no usable name defaults to the discard placeholder.
		alias = &modpath.Alias{Underscore: true}
	}

	c.pushImport(current, attrSet, ImportData{
		Path:          modpath.FromName(c.hyg.ResolveName(nameNode, c.src)),
		Alias:         alias,
		IsExternCrate: true,
		IsMacroUse:    attrSet.ByKey("macro_use").Exists(),
		Visibility:    visibility,
	})
}

func (c *collector) addImpl(current ModuleID, node *sitter.Node, attrSet attrs.Set) {
	id := ImplID(c.set.impls.alloc(ImplData{NodeID: c.ids.ID(node)}))
	c.pushItem(current, attrSet, ImplKindOf(id))
}

// addMacro lowers both call sites (`path!(...)`) and macro_rules
// definitions; the latter get the single-segment path `macro_rules` and
// carry the defined name.
func (c *collector) addMacro(current ModuleID, node *sitter.Node, attrSet attrs.Set) {
	var path modpath.Path
	var name hygiene.Name
	hasName := false

	switch node.Kind() {
	case "macro_definition":
		nameNode := syntax.FieldChild(node, "name")
		if nameNode == nil {
			return
		}
		path = modpath.FromName("macro_rules")
		name = c.hyg.ResolveName(nameNode, c.src)
		hasName = true
	default:
		parsed, ok := modpath.FromSyntax(syntax.FieldChild(node, "macro"), c.src, c.hyg)
		if !ok {
			return
		}
		path = parsed
	}

	exportAttr := attrSet.ByKey("macro_export")
	export := exportAttr.Exists()
	localInner := false
	if export {
		localInner = exportAttr.AnyArgIdentContains("local_inner_macros")
	}

	id := MacroID(c.set.macros.alloc(MacroData{
		NodeID:     c.ids.ID(node),
		Path:       path,
		Name:       name,
		HasName:    hasName,
		Export:     export,
		LocalInner: localInner,
		Builtin:    attrSet.ByKey("rustc_builtin_macro").Exists(),
	}))
	c.pushItem(current, attrSet, MacroKindOf(id))
}

// addForeignBlock folds an extern block's functions and statics into the
// current scope. The block introduces no scope of its own and its
// membership is not retained.
func (c *collector) addForeignBlock(current ModuleID, node *sitter.Node) {
	body := syntax.FieldChild(node, "body")
	if body == nil {
		return
	}
	for _, item := range (syntax.NodeItemOwner{Node: body}).Items() {
		inner := item.Node
		var tag DefTag
		switch inner.Kind() {
		case "function_item", "function_signature_item":
			tag = DefFunction
		case "static_item":
			tag = DefStatic
		default:
			continue
		}
		nameNode := syntax.FieldChild(inner, "name")
		if nameNode == nil {
			continue
		}
		attrSet := attrs.Parse(item.Attrs, c.src, c.hyg)
		visibility := c.hyg.ResolveVisibility(syntax.ChildOfKind(inner, "visibility_modifier"), c.src)
		def := DefID(c.set.defs.alloc(DefData{
			Name:       c.hyg.ResolveName(nameNode, c.src),
			Kind:       DefKind{Tag: tag, NodeID: c.ids.ID(inner)},
			Visibility: visibility,
		}))
		c.pushItem(current, attrSet, DefKindOf(def))
	}
}

func (c *collector) pushImport(current ModuleID, attrSet attrs.Set, data ImportData) {
	id := ImportID(c.set.imports.alloc(data))
	c.pushItem(current, attrSet, ImportKindOf(id))
}

// pushItem appends to the current scope's item list: either the top-level
// list or, through its handle, the item list of the module definition being
// visited. Appending into a declaration is unreachable.
func (c *collector) pushItem(current ModuleID, attrSet attrs.Set, kind ItemKind) {
	entry := Item{Attrs: attrSet, Kind: kind}
	if current == noModule {
		c.set.items = append(c.set.items, entry)
		return
	}
	module := c.set.modules.get(uint32(current))
	if module.Kind != ModuleDefinition {
		panic("rawitems: items pushed into a module declaration")
	}
	module.Items = append(module.Items, entry)
}

func structShape(node *sitter.Node) StructShape {
	if body := syntax.FieldChild(node, "body"); body != nil {
		switch body.Kind() {
		case "field_declaration_list":
			return ShapeRecord
		case "ordered_field_declaration_list":
			return ShapeTuple
		}
	}
	return ShapeUnit
}

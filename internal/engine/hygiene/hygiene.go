package hygiene

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Name is a normalized identifier: raw-identifier prefixes are stripped so
// `r#match` and a hypothetical plain `match` compare equal.
type Name string

// AsName normalizes raw identifier text.
func AsName(text string) Name {
	return Name(strings.TrimPrefix(strings.TrimSpace(text), "r#"))
}

func (n Name) String() string {
	return string(n)
}

type VisibilityKind int

const (
	// VisPrivate is the default when no visibility modifier is present:
	// restricted to the defining module.
	VisPrivate VisibilityKind = iota
	VisPublic
	VisCrate
	VisSuper
	// VisRestricted covers `pub(in some::path)`.
	VisRestricted
)

// Visibility is a hygiene-resolved visibility value. For VisRestricted the
// In field holds the restriction path segments.
type Visibility struct {
	Kind VisibilityKind
	In   []Name
}

func (v Visibility) IsPublic() bool {
	return v.Kind == VisPublic
}

// Context is the macro-expansion-aware naming environment for one file.
// It is immutable and safe for concurrent use across lowering runs.
//
// Plain (non macro-expanded) files carry no expansion ancestry, so name
// resolution degenerates to identifier normalization. The type still owns
// every name/visibility decision so that a macro-aware resolver can slot in
// without touching the collector.
type Context struct {
	fileID      uint32
	inExpansion bool
}

func NewContext(fileID uint32) *Context {
	return &Context{fileID: fileID}
}

// NewExpansionContext marks names as originating from a macro-produced
// fragment of the given file.
func NewExpansionContext(fileID uint32) *Context {
	return &Context{fileID: fileID, inExpansion: true}
}

func (c *Context) FileID() uint32 {
	return c.fileID
}

func (c *Context) InExpansion() bool {
	return c.inExpansion
}

// ResolveName resolves a raw identifier node into a hygiene-qualified name.
func (c *Context) ResolveName(node *sitter.Node, src []byte) Name {
	if node == nil {
		return ""
	}
	return AsName(string(src[node.StartByte():node.EndByte()]))
}

// ResolveVisibility resolves an optional `visibility_modifier` node.
// A nil node resolves to module-private, matching the language default.
func (c *Context) ResolveVisibility(node *sitter.Node, src []byte) Visibility {
	if node == nil {
		return Visibility{Kind: VisPrivate}
	}

	text := strings.TrimSpace(string(src[node.StartByte():node.EndByte()]))
	switch {
	case text == "pub":
		return Visibility{Kind: VisPublic}
	case text == "pub(crate)":
		return Visibility{Kind: VisCrate}
	case text == "pub(super)":
		return Visibility{Kind: VisSuper}
	case text == "pub(self)":
		return Visibility{Kind: VisPrivate}
	case strings.HasPrefix(text, "pub(in ") && strings.HasSuffix(text, ")"):
		inner := strings.TrimSuffix(strings.TrimPrefix(text, "pub(in "), ")")
		segments := make([]Name, 0, 2)
		for _, seg := range strings.Split(inner, "::") {
			seg = strings.TrimSpace(seg)
			if seg == "" {
				continue
			}
			segments = append(segments, AsName(seg))
		}
		return Visibility{Kind: VisRestricted, In: segments}
	default:
		// Unrecognized modifier shapes resolve to private rather than
		// failing; lowering never rejects malformed source.
		return Visibility{Kind: VisPrivate}
	}
}

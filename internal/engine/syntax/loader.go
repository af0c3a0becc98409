package syntax

import (
	"errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
)

// GrammarLoader owns the tree-sitter language handle. The grammar is loaded
// once and shared by every parse; sitter.Language is safe for concurrent use.
type GrammarLoader struct {
	language *sitter.Language
}

func NewGrammarLoader() *GrammarLoader {
	return &GrammarLoader{
		language: sitter.NewLanguage(tree_sitter_rust.Language()),
	}
}

func (gl *GrammarLoader) Language() *sitter.Language {
	return gl.language
}

// Parse parses one file's content into a Tree. Parsing never reports syntax
// errors: tree-sitter produces a best-effort tree for malformed input and
// downstream lowering silently drops ill-formed items.
func (gl *GrammarLoader) Parse(path string, content []byte) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(gl.language)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, errors.New("parse failed")
	}

	return &Tree{Path: path, Source: content, inner: tree}, nil
}

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"rawlower/internal/core/app"
	"rawlower/internal/core/config"
	"rawlower/internal/data/journal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestCrate(t *testing.T, tmpDir string) {
	libRS := `
pub mod parser;
pub use parser::{Token, Lexer as TokenLexer};

#[macro_export]
macro_rules! tokens { () => {} }

pub struct Span {
    start: usize,
    end: usize,
}

impl Span {
    pub fn len(&self) -> usize { self.end - self.start }
}
`
	err := os.WriteFile(filepath.Join(tmpDir, "lib.rs"), []byte(libRS), 0644)
	require.NoError(t, err)

	err = os.Mkdir(filepath.Join(tmpDir, "parser"), 0755)
	require.NoError(t, err)

	parserRS := `
pub struct Token;
pub struct Lexer;

pub fn lex(input: &str) -> Vec<Token> {
    Vec::new()
}
`
	err = os.WriteFile(filepath.Join(tmpDir, "parser", "mod.rs"), []byte(parserRS), 0644)
	require.NoError(t, err)
}

func TestFullPipelineIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	createTestCrate(t, tmpDir)

	cfg := config.Default()
	cfg.WatchPaths = []string{tmpDir}
	cfg.Journal.Enabled = true
	cfg.Journal.Path = filepath.Join(tmpDir, "state", "journal.db")

	appInstance, err := app.New(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	defer appInstance.Close(ctx)

	err = appInstance.InitialScan(ctx)
	require.NoError(t, err)

	paths := appInstance.TrackedPaths()
	require.Len(t, paths, 2)

	libEntry, ok := appInstance.Entry(filepath.Join(tmpDir, "lib.rs"))
	require.True(t, ok)
	modules, imports, defs, macros, impls := libEntry.Set.Counts()
	assert.Equal(t, 1, modules, "mod parser declaration")
	assert.Equal(t, 2, imports, "flattened use branches")
	assert.Equal(t, 1, defs, "Span struct")
	assert.Equal(t, 1, macros, "tokens macro_rules")
	assert.Equal(t, 1, impls, "impl Span")

	parserEntry, ok := appInstance.Entry(filepath.Join(tmpDir, "parser", "mod.rs"))
	require.True(t, ok)
	_, _, parserDefs, _, _ := parserEntry.Set.Counts()
	assert.Equal(t, 3, parserDefs, "Token, Lexer, lex")

	// Journal captured one run per file.
	store, err := journal.Open(cfg.Journal.Path)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.RunsForPath(filepath.Join(tmpDir, "lib.rs"))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, libEntry.Fingerprint, runs[0].Fingerprint)

	// A body-only edit re-lowers but does not record a new fingerprint.
	editedLib := `
pub mod parser;
pub use parser::{Token, Lexer as TokenLexer};

#[macro_export]
macro_rules! tokens { () => {} }

pub struct Span {
    start: usize,
    end: usize,
    // a field comment
}

impl Span {
    pub fn len(&self) -> usize { self.end - self.start + 0 }
}
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "lib.rs"), []byte(editedLib), 0644))
	require.NoError(t, appInstance.ProcessFile(ctx, filepath.Join(tmpDir, "lib.rs")))

	after, ok := appInstance.Entry(filepath.Join(tmpDir, "lib.rs"))
	require.True(t, ok)
	assert.Equal(t, libEntry.Fingerprint, after.Fingerprint)
	assert.Same(t, libEntry.Set, after.Set)
}

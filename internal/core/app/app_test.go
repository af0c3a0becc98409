package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"rawlower/internal/core/config"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Journal.Enabled = false
	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestProcessFileCachesResult(t *testing.T) {
	a := newTestApp(t)
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "lib.rs")
	writeFile(t, path, "fn hello() {}\nstruct S;")

	if err := a.ProcessFile(context.Background(), path); err != nil {
		t.Fatalf("process file: %v", err)
	}

	entry, ok := a.Entry(path)
	if !ok {
		t.Fatal("expected cached entry")
	}
	_, _, defs, _, _ := entry.Set.Counts()
	if defs != 2 {
		t.Errorf("expected 2 defs, got %d", defs)
	}
	if entry.Fingerprint == "" {
		t.Error("expected non-empty fingerprint")
	}
}

func TestProcessFileFirewall(t *testing.T) {
	a := newTestApp(t)
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "lib.rs")
	writeFile(t, path, "fn work() { let x = 1; }")

	if err := a.ProcessFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	first, _ := a.Entry(path)

	// Body-only edit: cached item set must survive untouched.
	writeFile(t, path, "fn work() { let x = 2; let y = 3; }")
	if err := a.ProcessFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	second, _ := a.Entry(path)
	if first.Set != second.Set {
		t.Error("body edit replaced the cached item set")
	}

	// Structural edit: a new item set must land.
	writeFile(t, path, "fn work() {}\nfn extra() {}")
	if err := a.ProcessFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	third, _ := a.Entry(path)
	if third.Set == second.Set {
		t.Error("structural edit did not replace the cached item set")
	}
	if third.Fingerprint == second.Fingerprint {
		t.Error("structural edit did not change the fingerprint")
	}
}

func TestProcessFileMissing(t *testing.T) {
	a := newTestApp(t)
	err := a.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "absent.rs"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestScanDirectories(t *testing.T) {
	a := newTestApp(t)
	tmpDir := t.TempDir()

	writeFile(t, filepath.Join(tmpDir, "lib.rs"), "fn a() {}")
	writeFile(t, filepath.Join(tmpDir, "notes.txt"), "nope")
	writeFile(t, filepath.Join(tmpDir, "skip.generated.rs"), "fn g() {}")

	target := filepath.Join(tmpDir, "target")
	if err := os.MkdirAll(target, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(target, "buried.rs"), "fn b() {}")

	files, err := a.ScanDirectories([]string{tmpDir}, []string{"target"}, []string{"*.generated.rs"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "lib.rs" {
		t.Errorf("unexpected scan result: %v", files)
	}
}

func TestInitialScanAndTrackedPaths(t *testing.T) {
	cfg := config.Default()
	cfg.Journal.Enabled = false
	tmpDir := t.TempDir()
	cfg.WatchPaths = []string{tmpDir}

	writeFile(t, filepath.Join(tmpDir, "a.rs"), "fn a() {}")
	writeFile(t, filepath.Join(tmpDir, "b.rs"), "mod b_mod;")

	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close(context.Background())

	if err := a.InitialScan(context.Background()); err != nil {
		t.Fatalf("initial scan: %v", err)
	}

	paths := a.TrackedPaths()
	if len(paths) != 2 {
		t.Fatalf("expected 2 tracked paths, got %v", paths)
	}
	if filepath.Base(paths[0]) != "a.rs" || filepath.Base(paths[1]) != "b.rs" {
		t.Errorf("expected sorted paths, got %v", paths)
	}
}

func TestHandleChangesEvictsDeleted(t *testing.T) {
	a := newTestApp(t)
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "lib.rs")
	writeFile(t, path, "fn a() {}")

	if err := a.ProcessFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	a.HandleChanges([]string{path})

	if _, ok := a.Entry(path); ok {
		t.Error("deleted file still cached")
	}
}

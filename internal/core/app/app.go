package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"rawlower/internal/core/config"
	"rawlower/internal/core/errors"
	"rawlower/internal/core/watcher"
	"rawlower/internal/data/journal"
	"rawlower/internal/engine/astid"
	"rawlower/internal/engine/hygiene"
	"rawlower/internal/engine/rawitems"
	"rawlower/internal/engine/syntax"
	"rawlower/internal/shared/observability"
	"rawlower/internal/shared/util"
)

// FileEntry is the cached lowering result for one file.
type FileEntry struct {
	Set         *rawitems.ItemSet
	Fingerprint string
	LoweredAt   time.Time
}

type App struct {
	Config  *config.Config
	loader  *syntax.GrammarLoader
	journal *journal.Store
	limiter *util.Limiter

	cacheMu sync.RWMutex
	cache   map[string]*FileEntry

	// Stable per-path file ids, assigned on first sight.
	idsMu   sync.Mutex
	fileIDs map[string]uint32
	nextID  uint32

	watcherMu     sync.Mutex
	activeWatcher *watcher.Watcher
}

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	a := &App{
		Config:  cfg,
		loader:  syntax.NewGrammarLoader(),
		limiter: util.NewLimiter(cfg.Limits.FilesPerSecond, cfg.Limits.Burst),
		cache:   make(map[string]*FileEntry),
		fileIDs: make(map[string]uint32),
		nextID:  1,
	}

	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeJournal, "open journal")
		}
		a.journal = store
	}

	return a, nil
}

func (a *App) Close(ctx context.Context) error {
	a.watcherMu.Lock()
	if a.activeWatcher != nil {
		_ = a.activeWatcher.Close()
		a.activeWatcher = nil
	}
	a.watcherMu.Unlock()

	if a.journal != nil {
		return a.journal.Close()
	}
	return nil
}

// ProcessFile lowers one file and refreshes the cache. When the new item
// set's fingerprint matches the cached one, the cached set is kept so that
// downstream consumers see an identical value.
func (a *App) ProcessFile(ctx context.Context, path string) error {
	ctx, span := observability.Tracer.Start(ctx, "app.ProcessFile",
		trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	if err := a.limiter.Wait(ctx, 1); err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		observability.ProcessErrorsTotal.WithLabelValues(string(errors.CodeNotFound)).Inc()
		return errors.Wrap(err, errors.CodeNotFound, "read source file")
	}

	parseStart := time.Now()
	tree, err := a.loader.Parse(path, content)
	if err != nil {
		observability.ProcessErrorsTotal.WithLabelValues(string(errors.CodeParseFailed)).Inc()
		return errors.AddContext(
			errors.Wrap(err, errors.CodeParseFailed, "parse source file"),
			errors.CtxPath, path,
		)
	}
	defer tree.Close()
	observability.ParsingDuration.Observe(time.Since(parseStart).Seconds())

	lowerStart := time.Now()
	ids := astid.NewMap(tree.Root())
	hyg := hygiene.NewContext(a.fileID(path))
	set := rawitems.Lower(syntax.NodeItemOwner{Node: tree.Root()}, tree.Source, ids, hyg)
	duration := time.Since(lowerStart)
	observability.LoweringDuration.Observe(duration.Seconds())

	fingerprint := set.Fingerprint()

	a.cacheMu.Lock()
	prev := a.cache[path]
	if prev != nil && prev.Fingerprint == fingerprint {
		prev.LoweredAt = time.Now()
		a.cacheMu.Unlock()
		observability.FirewallHitsTotal.Inc()
		slog.Debug("item set unchanged", "path", path, "fingerprint", fingerprint[:12])
		return nil
	}
	a.cache[path] = &FileEntry{
		Set:         set,
		Fingerprint: fingerprint,
		LoweredAt:   time.Now(),
	}
	a.cacheMu.Unlock()
	observability.FirewallMissesTotal.Inc()
	a.updateEntityGauges()

	modules, imports, defs, macros, impls := set.Counts()
	slog.Info("lowered file",
		"path", path,
		"modules", modules,
		"imports", imports,
		"defs", defs,
		"macros", macros,
		"impls", impls,
		"duration", duration,
	)

	if a.journal != nil {
		err := a.journal.SaveRun(journal.Run{
			Path:        path,
			Fingerprint: fingerprint,
			Duration:    duration,
			ModuleCount: modules,
			ImportCount: imports,
			DefCount:    defs,
			MacroCount:  macros,
			ImplCount:   impls,
		})
		if err != nil {
			observability.ProcessErrorsTotal.WithLabelValues(string(errors.CodeJournal)).Inc()
			slog.Warn("failed to journal run", "path", path, "error", err)
		}
	}

	return nil
}

// Entry returns the cached lowering for a path, if any.
func (a *App) Entry(path string) (*FileEntry, bool) {
	a.cacheMu.RLock()
	defer a.cacheMu.RUnlock()
	entry, ok := a.cache[path]
	return entry, ok
}

// TrackedPaths returns every cached path in sorted order.
func (a *App) TrackedPaths() []string {
	a.cacheMu.RLock()
	defer a.cacheMu.RUnlock()
	return util.SortedStringKeys(a.cache)
}

func (a *App) ScanDirectories(paths []string, excludeDirs, excludeFiles []string) ([]string, error) {
	var files []string

	dirGlobs := make([]glob.Glob, 0, len(excludeDirs))
	for _, p := range excludeDirs {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude dir pattern %q: %w", p, err)
		}
		dirGlobs = append(dirGlobs, g)
	}

	fileGlobs := make([]glob.Glob, 0, len(excludeFiles))
	for _, p := range excludeFiles {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude file pattern %q: %w", p, err)
		}
		fileGlobs = append(fileGlobs, g)
	}

	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			base := filepath.Base(path)
			if d.IsDir() {
				for _, g := range dirGlobs {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
				return nil
			}

			if !strings.HasSuffix(base, ".rs") {
				return nil
			}

			for _, g := range fileGlobs {
				if g.Match(base) {
					return nil
				}
			}

			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

// InitialScan lowers every Rust file under the configured watch paths
// using a small worker pool.
func (a *App) InitialScan(ctx context.Context) error {
	ctx, span := observability.Tracer.Start(ctx, "app.InitialScan")
	defer span.End()

	files, err := a.ScanDirectories(a.Config.WatchPaths, a.Config.Exclude.Dirs, a.Config.Exclude.Files)
	if err != nil {
		return errors.AddContext(err, errors.CtxOperation, "scan_directories")
	}

	start := time.Now()
	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < a.Config.Limits.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if err := a.ProcessFile(ctx, path); err != nil {
					slog.Warn("failed to process file", "path", path, "error", err)
				}
			}
		}()
	}

	for _, path := range files {
		select {
		case jobs <- path:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	slog.Info("initial scan complete", "files", len(files), "duration", time.Since(start))
	return nil
}

// HandleChanges re-lowers changed paths and evicts deleted ones. Used as
// the watcher callback.
func (a *App) HandleChanges(paths []string) {
	slog.Info("detected changes", "count", len(paths))
	ctx := context.Background()

	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			a.cacheMu.Lock()
			delete(a.cache, path)
			a.cacheMu.Unlock()
			a.updateEntityGauges()
			slog.Info("evicted deleted file", "path", path)
			continue
		}

		if err := a.ProcessFile(ctx, path); err != nil {
			slog.Warn("failed to re-process file", "path", path, "error", err)
		}
	}
}

func (a *App) fileID(path string) uint32 {
	a.idsMu.Lock()
	defer a.idsMu.Unlock()
	if id, ok := a.fileIDs[path]; ok {
		return id
	}
	id := a.nextID
	a.nextID++
	a.fileIDs[path] = id
	return id
}

func (a *App) updateEntityGauges() {
	a.cacheMu.RLock()
	var modules, imports, defs, macros, impls int
	for _, entry := range a.cache {
		m, i, d, mc, im := entry.Set.Counts()
		modules += m
		imports += i
		defs += d
		macros += mc
		impls += im
	}
	tracked := len(a.cache)
	a.cacheMu.RUnlock()

	observability.FilesTracked.Set(float64(tracked))
	observability.ItemSetEntities.WithLabelValues("module").Set(float64(modules))
	observability.ItemSetEntities.WithLabelValues("import").Set(float64(imports))
	observability.ItemSetEntities.WithLabelValues("def").Set(float64(defs))
	observability.ItemSetEntities.WithLabelValues("macro").Set(float64(macros))
	observability.ItemSetEntities.WithLabelValues("impl").Set(float64(impls))
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"rawlower/internal/core/app"
	"rawlower/internal/core/config"
	"rawlower/internal/shared/observability"
)

var (
	configPath = flag.String("config", "./rawlower.toml", "Path to config file")
	once       = flag.Bool("once", false, "Run single scan and exit")
	dump       = flag.Bool("dump", false, "Print per-file entity counts after the scan")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("rawlower v%s\n", VERSION)
		os.Exit(0)
	}

	// Setup logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load config; fall back to defaults when no file is present.
	cfg, err := config.Load(*configPath)
	if err != nil {
		if os.IsNotExist(err) && *configPath == "./rawlower.toml" {
			cfg = config.Default()
		} else {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	if flag.NArg() > 0 {
		cfg.WatchPaths = flag.Args()
	}

	ctx := context.Background()

	if cfg.Tracing.Enabled {
		shutdown, err := observability.InitTracing(ctx, cfg.Tracing.Endpoint)
		if err != nil {
			slog.Error("failed to initialize tracing", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Warn("tracing shutdown failed", "error", err)
			}
		}()
	}

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer application.Close(ctx)

	var obsServer *observability.Server
	if cfg.Metrics.Enabled {
		obsServer = observability.NewServer(cfg.Metrics.Address, application.Health())
		if err := obsServer.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "error", err)
			os.Exit(1)
		}
		defer obsServer.Stop(ctx)
	}

	if err := application.InitialScan(ctx); err != nil {
		slog.Error("initial scan failed", "error", err)
		os.Exit(1)
	}

	if *dump {
		printSummary(application)
	}

	if *once {
		return
	}

	// Watch mode
	if err := application.StartWatcher(); err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}

	// Block forever
	select {}
}

func printSummary(application *app.App) {
	for _, path := range application.TrackedPaths() {
		entry, ok := application.Entry(path)
		if !ok {
			continue
		}
		modules, imports, defs, macros, impls := entry.Set.Counts()
		fmt.Printf("%s  modules=%d imports=%d defs=%d macros=%d impls=%d fingerprint=%s\n",
			path, modules, imports, defs, macros, impls, entry.Fingerprint[:12])
	}
}

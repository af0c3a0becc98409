package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Version    int      `toml:"version"`
	WatchPaths []string `toml:"watch_paths"`
	Exclude    Exclude  `toml:"exclude"`
	Watch      Watch    `toml:"watch"`
	Journal    Journal  `toml:"journal"`
	Metrics    Metrics  `toml:"metrics"`
	Tracing    Tracing  `toml:"tracing"`
	Limits     Limits   `toml:"limits"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Journal struct {
	Enabled     bool          `toml:"enabled"`
	Driver      string        `toml:"driver"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

type Tracing struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
}

type Limits struct {
	FilesPerSecond float64 `toml:"files_per_second"`
	Burst          int     `toml:"burst"`
	Workers        int     `toml:"workers"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

func Parse(data string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateJournal(&cfg); err != nil {
		return nil, err
	}
	if err := validateLimits(&cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if len(cfg.WatchPaths) == 0 {
		cfg.WatchPaths = []string{"."}
	}
	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{"target", ".git"}
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}

	if strings.TrimSpace(cfg.Journal.Driver) == "" {
		cfg.Journal.Driver = "sqlite"
	}
	if strings.TrimSpace(cfg.Journal.Path) == "" {
		cfg.Journal.Path = "journal.db"
	}
	if cfg.Journal.BusyTimeout <= 0 {
		cfg.Journal.BusyTimeout = 5 * time.Second
	}

	if strings.TrimSpace(cfg.Metrics.Address) == "" {
		cfg.Metrics.Address = "127.0.0.1:9137"
	}

	if cfg.Limits.FilesPerSecond <= 0 {
		cfg.Limits.FilesPerSecond = 200
	}
	if cfg.Limits.Burst <= 0 {
		cfg.Limits.Burst = 50
	}
	if cfg.Limits.Workers <= 0 {
		cfg.Limits.Workers = 4
	}
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateJournal(cfg *Config) error {
	driver := strings.ToLower(strings.TrimSpace(cfg.Journal.Driver))
	if driver != "sqlite" {
		return fmt.Errorf("journal.driver must be sqlite, got %q", cfg.Journal.Driver)
	}
	if strings.TrimSpace(cfg.Journal.Path) == "" {
		return fmt.Errorf("journal.path must not be empty")
	}
	return nil
}

func validateLimits(cfg *Config) error {
	if cfg.Limits.FilesPerSecond <= 0 {
		return fmt.Errorf("limits.files_per_second must be positive, got %v", cfg.Limits.FilesPerSecond)
	}
	if cfg.Limits.Burst <= 0 {
		return fmt.Errorf("limits.burst must be positive, got %d", cfg.Limits.Burst)
	}
	if cfg.Limits.Workers <= 0 || cfg.Limits.Workers > 256 {
		return fmt.Errorf("limits.workers must be in 1..256, got %d", cfg.Limits.Workers)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	for i, p := range cfg.WatchPaths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("watch_paths[%d] must not be empty", i)
		}
	}
	return nil
}

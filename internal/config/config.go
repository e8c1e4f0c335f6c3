// Package config loads the console and daemon settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/subnetlabs/console/internal/simulator"
	"github.com/subnetlabs/console/internal/timeline"
	"github.com/subnetlabs/console/pkg/logger"
)

// Config is the full settings tree shared by the daemon and the console.
type Config struct {
	// APIAddr is the base URL the console and CLI talk to.
	APIAddr string `yaml:"api_addr"`
	// Listen is the daemon's bind address.
	Listen string `yaml:"listen"`
	DBPath string `yaml:"db_path"`

	Log       LogConfig        `yaml:"log"`
	Timeline  timeline.Config  `yaml:"timeline"`
	Simulator simulator.Config `yaml:"simulator"`
	Console   ConsoleConfig    `yaml:"console"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
	// File is where the console writes logs; the daemon logs to stdout.
	File string `yaml:"file"`
}

// ConsoleConfig holds terminal-only presentation settings.
type ConsoleConfig struct {
	SearchDebounce time.Duration `yaml:"search_debounce"`
	NowTick        time.Duration `yaml:"now_tick"`
	RefreshEvery   time.Duration `yaml:"refresh_every"`
	// CellWidthPx is how many layout pixels one terminal column represents.
	CellWidthPx float64 `yaml:"cell_width_px"`
	// CacheTTL bounds how long fetched timelines are reused.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Dir is the per-user state directory.
func Dir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".subnet")
}

// DefaultPath is where Load looks when no --config flag is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultConfig returns sensible defaults in case no configuration file is provided.
func DefaultConfig() Config {
	return Config{
		APIAddr: "http://127.0.0.1:7480",
		Listen:  "127.0.0.1:7480",
		DBPath:  filepath.Join(Dir(), "subnet.db"),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File:   filepath.Join(Dir(), "console.log"),
		},
		Timeline:  timeline.DefaultConfig(),
		Simulator: simulator.DefaultConfig(),
		Console: ConsoleConfig{
			SearchDebounce: 300 * time.Millisecond,
			NowTick:        time.Second,
			RefreshEvery:   2 * time.Second,
			CellWidthPx:    10,
			CacheTTL:       5 * time.Second,
		},
	}
}

// Load reads configuration from a yaml file. Missing files fall back to defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.repair()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) repair() {
	d := DefaultConfig()
	if c.APIAddr == "" {
		c.APIAddr = d.APIAddr
	}
	c.APIAddr = strings.TrimRight(c.APIAddr, "/")
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.DBPath == "" {
		c.DBPath = d.DBPath
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	c.Timeline = c.Timeline.Sanitize()
	if c.Simulator.Interval <= 0 {
		c.Simulator.Interval = d.Simulator.Interval
	}
	if c.Console.SearchDebounce <= 0 {
		c.Console.SearchDebounce = d.Console.SearchDebounce
	}
	if c.Console.NowTick <= 0 {
		c.Console.NowTick = d.Console.NowTick
	}
	if c.Console.RefreshEvery <= 0 {
		c.Console.RefreshEvery = d.Console.RefreshEvery
	}
	if c.Console.CellWidthPx <= 0 {
		c.Console.CellWidthPx = d.Console.CellWidthPx
	}
	if c.Console.CacheTTL < 0 {
		c.Console.CacheTTL = 0
	}
}

// Validate rejects settings that cannot be repaired.
func (c Config) Validate() error {
	if !strings.HasPrefix(c.APIAddr, "http://") && !strings.HasPrefix(c.APIAddr, "https://") {
		return fmt.Errorf("api_addr must be an http(s) URL, got %q", c.APIAddr)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Simulator.FailureRate < 0 || c.Simulator.FailureRate > 1 {
		return errors.New("simulator.failure_rate must be between 0 and 1")
	}
	return nil
}

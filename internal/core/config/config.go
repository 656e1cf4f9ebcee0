package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
)

// Config is the top-level application config.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Timeline TimelineConfig `koanf:"timeline"`
	Source   SourceConfig   `koanf:"source"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

// DatabaseConfig holds the itinerary store settings. An empty DSN disables
// the store; sessions then work only on documents posted directly.
type DatabaseConfig struct {
	Type         string `koanf:"type"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// Enabled reports whether a store is configured.
func (c DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(c.DSN) != ""
}

// TimelineConfig holds the engine and grid parameters.
type TimelineConfig struct {
	// Timezone is the IANA zone all wall-clock timestamps are read in.
	// Empty means the process-local zone.
	Timezone string `koanf:"timezone"`
	// FadeHours is the default fade window width when a document does
	// not set its own.
	FadeHours float64 `koanf:"fade_hours"`
	// ChunkWeeks is the fixed chunk size of the windowed renderer.
	ChunkWeeks int `koanf:"chunk_weeks"`
	// MaxChunks caps the materialized chunk set per session.
	MaxChunks int `koanf:"max_chunks"`
	// RowHeightPx is the pixel height of one week row.
	RowHeightPx float64 `koanf:"row_height_px"`
	// EdgeBufferPx is the scroll-trigger distance from a rendered edge.
	EdgeBufferPx float64 `koanf:"edge_buffer_px"`
	// ThrottleMs rate-limits scroll-triggered extension.
	ThrottleMs int `koanf:"throttle_ms"`
}

// Location resolves the configured timezone.
func (c TimelineConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timeline.timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SourceConfig describes an optional file-based itinerary source that is
// loaded at startup and refreshed on a cron schedule.
type SourceConfig struct {
	// Path to a JSON or YAML document. Empty disables the source.
	Path string `koanf:"path"`
	// Name the document is published under in the store/session API.
	Name string `koanf:"name"`
	// RefreshCron is a cron-style schedule for reloading the file.
	// Empty disables periodic refresh.
	RefreshCron string `koanf:"refresh_cron"`
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if c.Database.Enabled() {
		if c.Database.Type != "" && c.Database.Type != "postgres" {
			return fmt.Errorf("unsupported database.type %q", c.Database.Type)
		}
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
	}

	if _, err := c.Timeline.Location(); err != nil {
		return err
	}
	if c.Timeline.FadeHours < 0 {
		return fmt.Errorf("timeline.fade_hours must be >= 0")
	}
	if c.Timeline.ChunkWeeks <= 0 {
		return fmt.Errorf("timeline.chunk_weeks must be > 0")
	}
	if c.Timeline.MaxChunks < c.Timeline.ChunkWeeks {
		return fmt.Errorf("timeline.max_chunks %d is smaller than one screen of chunks", c.Timeline.MaxChunks)
	}
	if c.Timeline.RowHeightPx <= 0 {
		return fmt.Errorf("timeline.row_height_px must be > 0")
	}
	if c.Timeline.EdgeBufferPx <= 0 {
		return fmt.Errorf("timeline.edge_buffer_px must be > 0")
	}
	if c.Timeline.ThrottleMs <= 0 {
		return fmt.Errorf("timeline.throttle_ms must be > 0")
	}

	if c.Source.RefreshCron != "" {
		if c.Source.Path == "" {
			return fmt.Errorf("source.refresh_cron set without source.path")
		}
		if _, err := cron.ParseStandard(c.Source.RefreshCron); err != nil {
			return fmt.Errorf("invalid source.refresh_cron %q: %w", c.Source.RefreshCron, err)
		}
	}
	if c.Source.Path != "" && strings.TrimSpace(c.Source.Name) == "" {
		return fmt.Errorf("source.name is required when source.path is set")
	}

	return nil
}

// Load parses config from file + env and validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":             8080,
		"server.host":             "0.0.0.0",
		"server.max_body_size_mb": 1,
		"server.mode":             "release",
		"database.type":           "postgres",
		"database.dsn":            "",
		"database.max_open_conns": 25,
		"database.max_idle_conns": 25,
		"database.auto_migrate":   true,
		"timeline.timezone":       "",
		"timeline.fade_hours":     48,
		"timeline.chunk_weeks":    4,
		"timeline.max_chunks":     40,
		"timeline.row_height_px":  96,
		"timeline.edge_buffer_px": 600,
		"timeline.throttle_ms":    16,
		"source.path":             "",
		"source.name":             "default",
		"source.refresh_cron":     "",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("WAYLINE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "WAYLINE_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

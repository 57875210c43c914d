// Package config defines service configuration and its loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tinoosan/stealth/internal/downloadcfg"
	"github.com/tinoosan/stealth/internal/downloader/ytdlp"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`
	// LogFile, when set, also writes logs to a size-rotated file.
	LogFile       string `koanf:"log_file"`
	LogMaxSizeMB  int    `koanf:"log_max_size_mb"`
	LogMaxBackups int    `koanf:"log_max_backups"`

	Port int `koanf:"port"`

	// StorageDriver selects the persistence gateway: postgres or memory.
	StorageDriver string `koanf:"storage_driver"`
	DatabaseURL   string `koanf:"database_url"`
	DatabaseName  string `koanf:"database_name"`

	// ScratchRoot is the parent of per-request scratch directories.
	ScratchRoot string `koanf:"scratch_root"`
	// EngineBinary is the retrieval engine executable name or path.
	EngineBinary string `koanf:"engine_binary"`
	EngineFormat string `koanf:"engine_format"`
	MergeFormat  string `koanf:"merge_format"`
	// FetchTimeoutSeconds bounds a single engine run; 0 disables the bound.
	FetchTimeoutSeconds int `koanf:"fetch_timeout_seconds"`
	// AllowedHosts are the accepted source URL hosts.
	AllowedHosts []string `koanf:"allowed_hosts"`

	DefaultLeaderboardLimit int `koanf:"default_leaderboard_limit"`
	// MaxLeaderboardLimit caps ?limit; 0 leaves it unbounded.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	CORSOrigins []string `koanf:"cors_origins"`

	ShutdownTimeoutSeconds int `koanf:"shutdown_timeout_seconds"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		LogMaxSizeMB:            50,
		LogMaxBackups:           3,
		Port:                    8000,
		StorageDriver:           DriverPostgres,
		ScratchRoot:             os.TempDir(),
		EngineBinary:            ytdlp.DefaultBinary,
		EngineFormat:            downloadcfg.DefaultFormat,
		MergeFormat:             downloadcfg.DefaultContainer,
		AllowedHosts:            append([]string(nil), downloadcfg.DefaultHosts...),
		DefaultLeaderboardLimit: 20,
		CORSOrigins:             []string{"*"},
		ShutdownTimeoutSeconds:  30,
	}
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// FormatPolicy is the engine preference derived from configuration.
func (c *Config) FormatPolicy() downloadcfg.FormatPolicy {
	return downloadcfg.NewFormatPolicy(c.EngineFormat, c.MergeFormat)
}

// Validate rejects values the defaults cannot rule out.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	switch c.StorageDriver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("%w: unknown storage_driver %q", ErrInvalidConfig, c.StorageDriver)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.DefaultLeaderboardLimit < 1 {
		return fmt.Errorf("%w: default_leaderboard_limit must be positive", ErrInvalidConfig)
	}
	if c.MaxLeaderboardLimit < 0 {
		return fmt.Errorf("%w: max_leaderboard_limit must not be negative", ErrInvalidConfig)
	}
	if c.MaxLeaderboardLimit > 0 && c.DefaultLeaderboardLimit > c.MaxLeaderboardLimit {
		return fmt.Errorf("%w: default_leaderboard_limit exceeds max_leaderboard_limit", ErrInvalidConfig)
	}
	if c.FetchTimeoutSeconds < 0 {
		return fmt.Errorf("%w: fetch_timeout_seconds must not be negative", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.ScratchRoot) == "" {
		return fmt.Errorf("%w: scratch_root must not be empty", ErrInvalidConfig)
	}
	c.ScratchRoot = filepath.Clean(c.ScratchRoot)
	return nil
}

package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Backend  BackendConfig  `toml:"backend"`
	Player   PlayerConfig   `toml:"player"`
	Gallery  GalleryConfig  `toml:"gallery"`
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
}

// BackendConfig locates the similarity-search backend.
type BackendConfig struct {
	BaseURL           string  `toml:"base_url"`
	APIPrefix         string  `toml:"api_prefix"`
	CoverAssetPrefix  string  `toml:"cover_asset_prefix"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"` // 0 disables the client timeout
}

// Timeout returns the HTTP client timeout; zero means none.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// PlayerConfig configures the external MIDI transport engine and the simulated progress clock.
type PlayerConfig struct {
	Command                  string   `toml:"command"`
	Args                     []string `toml:"args"`
	EstimatedDurationSeconds int      `toml:"estimated_duration_seconds"`
	TickSeconds              int      `toml:"tick_seconds"`
}

// GalleryConfig configures catalog browsing.
type GalleryConfig struct {
	PageSize int `toml:"page_size"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoggingConfig contains log level and the TUI log file.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their embedded defaults. A missing file
// returns [ErrMissingConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate checks the values the client cannot run without.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: backend.base_url %q is not an absolute URL", ErrInvalidConfig, c.Backend.BaseURL)
	}
	if c.Gallery.PageSize < 1 {
		return fmt.Errorf("%w: gallery.page_size must be positive", ErrInvalidConfig)
	}
	if c.Player.EstimatedDurationSeconds < 1 {
		return fmt.Errorf("%w: player.estimated_duration_seconds must be positive", ErrInvalidConfig)
	}
	if c.Player.TickSeconds < 1 {
		return fmt.Errorf("%w: player.tick_seconds must be positive", ErrInvalidConfig)
	}
	if c.Backend.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: backend.requests_per_second cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

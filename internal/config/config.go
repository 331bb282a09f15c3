package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fenilsonani/media-dedup/internal/security"
	"github.com/fenilsonani/media-dedup/pkg/utils"
	"github.com/go-ini/ini"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Extensions      []string `yaml:"extensions"`       // registered on top of the defaults
	ExcludePatterns []string `yaml:"exclude_patterns"` // globs matched against names and paths
	BufferSize      string   `yaml:"buffer_size"`      // e.g. "64KB"
	ProgressSteps   int      `yaml:"progress_steps"`
	Verbose         bool     `yaml:"verbose"`
}

// Load loads configuration from a file. Files ending in .ini are read as INI,
// everything else as YAML.
func Load(configPath string) (*Config, error) {
	// If config doesn't exist, return default config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefault(), nil
	}

	config := GetDefault()

	if strings.EqualFold(filepath.Ext(configPath), ".ini") {
		if err := loadINI(configPath, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Validate config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadINI reads the [media] and [scan] sections of an INI file over cfg
func loadINI(configPath string, cfg *Config) error {
	file, err := ini.Load(configPath)
	if err != nil {
		return err
	}

	cfg.Verbose = file.Section("").Key("verbose").MustBool(cfg.Verbose)

	media := file.Section("media")
	if media.HasKey("extensions") {
		cfg.Extensions = media.Key("extensions").Strings(",")
	}

	scan := file.Section("scan")
	if scan.HasKey("exclude_patterns") {
		cfg.ExcludePatterns = scan.Key("exclude_patterns").Strings(",")
	}
	if scan.HasKey("buffer_size") {
		cfg.BufferSize = scan.Key("buffer_size").String()
	}
	if scan.HasKey("progress_steps") {
		steps, err := scan.Key("progress_steps").Int()
		if err != nil {
			return fmt.Errorf("progress_steps: %w", err)
		}
		cfg.ProgressSteps = steps
	}

	return nil
}

// Save saves configuration to a file
func Save(config *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := c.MediaExtensions(); err != nil {
		return err
	}

	if _, err := c.BufferBytes(); err != nil {
		return err
	}

	if c.ProgressSteps < 1 || c.ProgressSteps > 1000 {
		return &ConfigError{Field: "progress_steps", Value: fmt.Sprint(c.ProgressSteps), Reason: "must be between 1 and 1000"}
	}

	// Validate exclude patterns (glob syntax)
	for _, pattern := range c.ExcludePatterns {
		if err := security.ValidateGlobPattern(pattern); err != nil {
			return &ConfigError{Field: "exclude pattern", Value: pattern, Reason: err.Error()}
		}
	}

	return nil
}

// MediaExtensions builds the extension set: defaults first, then the
// configured extras. A duplicate registration is a ConfigError.
func (c *Config) MediaExtensions() (ExtensionSet, error) {
	return NewExtensionSet(DefaultExtensions(), c.Extensions...)
}

// BufferBytes returns the hashing buffer size in bytes
func (c *Config) BufferBytes() (int, error) {
	if c.BufferSize == "" {
		return int(utils.DefaultBufferSize), nil
	}

	size, err := utils.ParseSize(strings.TrimSpace(c.BufferSize))
	if err != nil {
		return 0, &ConfigError{Field: "buffer_size", Value: c.BufferSize, Reason: err.Error()}
	}
	if size < 512 || size > 64*utils.MB {
		return 0, &ConfigError{Field: "buffer_size", Value: c.BufferSize, Reason: "must be between 512B and 64MB"}
	}

	return int(size), nil
}

// GetConfigPath returns the default config path
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(homeDir, ".config", "media-dedup")
	return filepath.Join(configDir, "config.yaml"), nil
}

// EnsureConfigExists creates a default config file at configPath if it doesn't exist
func EnsureConfigExists(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Save(GetDefault(), configPath)
	}
	return nil
}

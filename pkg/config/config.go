package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for asaclean.
type Config struct {
	// Pipeline settings
	Cleanup CleanupConfig `koanf:"cleanup" toml:"cleanup" yaml:"cleanup" json:"cleanup"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output" yaml:"output" json:"output"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache" yaml:"cache" json:"cache"`

	Watch WatchConfig `koanf:"watch" toml:"watch" yaml:"watch" json:"watch"`
	Batch BatchConfig `koanf:"batch" toml:"batch" yaml:"batch" json:"batch"`
}

// CleanupConfig controls how dead objects are detected.
type CleanupConfig struct {
	MatchMode      string   `koanf:"match_mode" toml:"match_mode" yaml:"match_mode" json:"match_mode"` // substring, token
	Fixpoint       bool     `koanf:"fixpoint" toml:"fixpoint" yaml:"fixpoint" json:"fixpoint"`
	Strict         bool     `koanf:"strict" toml:"strict" yaml:"strict" json:"strict"`
	ProtectedNames []string `koanf:"protected_names" toml:"protected_names" yaml:"protected_names" json:"protected_names"`
	MaxCycles      int      `koanf:"max_cycles" toml:"max_cycles" yaml:"max_cycles" json:"max_cycles"`
}

// OutputConfig controls output formatting and artifact naming.
type OutputConfig struct {
	Format          string `koanf:"format" toml:"format" yaml:"format" json:"format"` // text, json, markdown, toon
	Color           bool   `koanf:"color" toml:"color" yaml:"color" json:"color"`
	Dir             string `koanf:"dir" toml:"dir" yaml:"dir" json:"dir"`
	WriteConfig     bool   `koanf:"write_config" toml:"write_config" yaml:"write_config" json:"write_config"`
	ReportSuffix    string `koanf:"report_suffix" toml:"report_suffix" yaml:"report_suffix" json:"report_suffix"`
	ConfigSuffix    string `koanf:"config_suffix" toml:"config_suffix" yaml:"config_suffix" json:"config_suffix"`
	TimestampLayout string `koanf:"timestamp_layout" toml:"timestamp_layout" yaml:"timestamp_layout" json:"timestamp_layout"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled" yaml:"enabled" json:"enabled"`
	Dir     string `koanf:"dir" toml:"dir" yaml:"dir" json:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl" yaml:"ttl" json:"ttl"` // TTL in hours
}

// WatchConfig controls the file watcher.
type WatchConfig struct {
	DebounceMS int `koanf:"debounce_ms" toml:"debounce_ms" yaml:"debounce_ms" json:"debounce_ms"`
}

// BatchConfig controls multi-file runs.
type BatchConfig struct {
	Extensions []string `koanf:"extensions" toml:"extensions" yaml:"extensions" json:"extensions"`
	Workers    int      `koanf:"workers" toml:"workers" yaml:"workers" json:"workers"`
	Exclude    []string `koanf:"exclude" toml:"exclude" yaml:"exclude" json:"exclude"` // gitignore syntax
	Gitignore  bool     `koanf:"gitignore" toml:"gitignore" yaml:"gitignore" json:"gitignore"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Cleanup: CleanupConfig{
			MatchMode:      "substring",
			Fixpoint:       false,
			Strict:         false,
			ProtectedNames: []string{},
			MaxCycles:      64,
		},
		Output: OutputConfig{
			Format:          "text",
			Color:           true,
			Dir:             "",
			WriteConfig:     true,
			ReportSuffix:    "CLEANUP",
			ConfigSuffix:    "PRUNED",
			TimestampLayout: "2006-01-02-150405",
		},
		Cache: CacheConfig{
			Enabled: false,
			Dir:     ".asaclean/cache",
			TTL:     24,
		},
		Watch: WatchConfig{
			DebounceMS: 500,
		},
		Batch: BatchConfig{
			Extensions: []string{".cfg", ".conf", ".txt"},
			Workers:    0,
			Exclude:    []string{},
			Gitignore:  true,
		},
	}
}

// DebounceDuration returns the watcher debounce as a duration.
func (c *Config) DebounceDuration() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// Validate checks semantic rules that the schema cannot express.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Cleanup.MatchMode) {
	case "substring", "token":
	default:
		errs = append(errs, fmt.Errorf("cleanup.match_mode: unknown mode %q", c.Cleanup.MatchMode))
	}
	if c.Cleanup.MaxCycles < 1 {
		errs = append(errs, fmt.Errorf("cleanup.max_cycles: must be at least 1, got %d", c.Cleanup.MaxCycles))
	}
	for _, name := range c.Cleanup.ProtectedNames {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, " \t") {
			errs = append(errs, fmt.Errorf("cleanup.protected_names: invalid name %q", name))
		}
	}
	switch strings.ToLower(c.Output.Format) {
	case "text", "json", "markdown", "md", "toon":
	default:
		errs = append(errs, fmt.Errorf("output.format: unknown format %q", c.Output.Format))
	}
	if c.Output.ReportSuffix == "" || c.Output.ConfigSuffix == "" {
		errs = append(errs, errors.New("output: report_suffix and config_suffix must not be empty"))
	} else if c.Output.ReportSuffix == c.Output.ConfigSuffix {
		errs = append(errs, errors.New("output: report_suffix and config_suffix must differ"))
	}
	if c.Output.TimestampLayout == "" {
		errs = append(errs, errors.New("output.timestamp_layout: must not be empty"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl: must not be negative, got %d", c.Cache.TTL))
	}
	if c.Watch.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce_ms: must not be negative, got %d", c.Watch.DebounceMS))
	}
	if c.Batch.Workers < 0 {
		errs = append(errs, fmt.Errorf("batch.workers: must not be negative, got %d", c.Batch.Workers))
	}
	return errors.Join(errs...)
}

// HasExtension reports whether path should be picked up by batch runs.
func (c *Config) HasExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range c.Batch.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// IsProtected reports whether name is listed in cleanup.protected_names.
func (c *Config) IsProtected(name string) bool {
	for _, p := range c.Cleanup.ProtectedNames {
		if p == name {
			return true
		}
	}
	return false
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return json.Parser()
	default:
		return toml.Parser()
	}
}

// Load loads configuration from a file on top of the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// configNames are searched, in order, in each search directory.
var configNames = []string{
	"asaclean.toml",
	"asaclean.yaml",
	"asaclean.yml",
	"asaclean.json",
	".asaclean.toml",
	".asaclean.yaml",
	".asaclean.yml",
	".asaclean.json",
}

var searchDirs = []string{".", ".asaclean"}

// Find returns the first config file found in the standard locations under
// root, or "" when there is none.
func Find(root string) string {
	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(root, dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	if path := Find("."); path != "" {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

type loadOptions struct {
	path string
	root string
}

// WithPath loads the given file instead of searching the standard locations.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// WithRoot searches the standard locations relative to root.
func WithRoot(root string) LoadOption {
	return func(o *loadOptions) {
		o.root = root
	}
}

// LoadResult is an effective configuration and the file it came from.
// Source is empty when only defaults were used.
type LoadResult struct {
	Config *Config
	Source string
}

// LoadConfig resolves, schema-checks, loads and validates the configuration.
// An explicit path that does not exist is an error; a missing file in the
// standard locations falls back to defaults.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := loadOptions{root: "."}
	for _, opt := range opts {
		opt(&o)
	}

	path := o.path
	if path == "" {
		path = Find(o.root)
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if path == "" {
		cfg := DefaultConfig()
		return &LoadResult{Config: cfg}, cfg.Validate()
	}

	if err := ValidateFile(path); err != nil {
		return nil, err
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &LoadResult{Config: cfg, Source: path}, nil
}

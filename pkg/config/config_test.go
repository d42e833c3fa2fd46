package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}

	if cfg.Cleanup.MatchMode != "substring" {
		t.Errorf("Cleanup.MatchMode = %s, want substring", cfg.Cleanup.MatchMode)
	}
	if cfg.Cleanup.Fixpoint {
		t.Error("Cleanup.Fixpoint should be false by default")
	}
	if cfg.Cleanup.Strict {
		t.Error("Cleanup.Strict should be false by default")
	}
	if cfg.Cleanup.MaxCycles != 64 {
		t.Errorf("Cleanup.MaxCycles = %d, want 64", cfg.Cleanup.MaxCycles)
	}

	if cfg.Output.Format != "text" {
		t.Errorf("Output.Format = %s, want text", cfg.Output.Format)
	}
	if cfg.Output.ReportSuffix != "CLEANUP" || cfg.Output.ConfigSuffix != "PRUNED" {
		t.Errorf("Output suffixes = %s/%s, want CLEANUP/PRUNED", cfg.Output.ReportSuffix, cfg.Output.ConfigSuffix)
	}
	if cfg.Output.TimestampLayout != "2006-01-02-150405" {
		t.Errorf("Output.TimestampLayout = %s", cfg.Output.TimestampLayout)
	}
	if !cfg.Output.WriteConfig {
		t.Error("Output.WriteConfig should be true by default")
	}

	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled should be false by default")
	}
	if !cfg.Batch.Gitignore {
		t.Error("Batch.Gitignore should be true by default")
	}
	if cfg.Cache.TTL != 24 {
		t.Errorf("Cache.TTL = %d, want 24", cfg.Cache.TTL)
	}

	if cfg.DebounceDuration() != 500*time.Millisecond {
		t.Errorf("DebounceDuration() = %v, want 500ms", cfg.DebounceDuration())
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error: %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "asaclean.toml", `
[cleanup]
match_mode = "token"
fixpoint = true
protected_names = ["CORE_NET", "MGMT_ACL"]

[output]
format = "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Cleanup.MatchMode != "token" {
		t.Errorf("Cleanup.MatchMode = %s, want token", cfg.Cleanup.MatchMode)
	}
	if !cfg.Cleanup.Fixpoint {
		t.Error("Cleanup.Fixpoint should be true")
	}
	if !cfg.IsProtected("MGMT_ACL") || cfg.IsProtected("OTHER") {
		t.Errorf("protected names not loaded: %v", cfg.Cleanup.ProtectedNames)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Output.Format = %s, want json", cfg.Output.Format)
	}
	// Untouched keys keep their defaults.
	if cfg.Cleanup.MaxCycles != 64 {
		t.Errorf("Cleanup.MaxCycles = %d, want default 64", cfg.Cleanup.MaxCycles)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "asaclean.yaml", `
cleanup:
  strict: true
output:
  format: markdown
  dir: reports
watch:
  debounce_ms: 250
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !cfg.Cleanup.Strict {
		t.Error("Cleanup.Strict should be true")
	}
	if cfg.Output.Format != "markdown" {
		t.Errorf("Output.Format = %s, want markdown", cfg.Output.Format)
	}
	if cfg.Output.Dir != "reports" {
		t.Errorf("Output.Dir = %s, want reports", cfg.Output.Dir)
	}
	if cfg.DebounceDuration() != 250*time.Millisecond {
		t.Errorf("DebounceDuration() = %v, want 250ms", cfg.DebounceDuration())
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "asaclean.json", `{
  "batch": {"extensions": [".asa"], "workers": 2},
  "cache": {"enabled": true, "ttl": 1}
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !cfg.HasExtension("edge.ASA") {
		t.Error("HasExtension should match case-insensitively")
	}
	if cfg.HasExtension("edge.cfg") {
		t.Error("HasExtension should only use the configured extensions")
	}
	if cfg.Batch.Workers != 2 {
		t.Errorf("Batch.Workers = %d, want 2", cfg.Batch.Workers)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != 1 {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/asaclean.toml")
	if err == nil {
		t.Error("Load() should return error for non-existent file")
	}
}

func TestLoadInvalidFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "asaclean.toml", `[cleanup
invalid toml`)

	_, err := Load(path)
	if err == nil {
		t.Error("Load() should return error for invalid config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown match mode", func(c *Config) { c.Cleanup.MatchMode = "regex" }},
		{"zero max cycles", func(c *Config) { c.Cleanup.MaxCycles = 0 }},
		{"blank protected name", func(c *Config) { c.Cleanup.ProtectedNames = []string{" "} }},
		{"protected name with space", func(c *Config) { c.Cleanup.ProtectedNames = []string{"A B"} }},
		{"unknown format", func(c *Config) { c.Output.Format = "html" }},
		{"same suffixes", func(c *Config) { c.Output.ConfigSuffix = c.Output.ReportSuffix }},
		{"empty suffix", func(c *Config) { c.Output.ReportSuffix = "" }},
		{"empty layout", func(c *Config) { c.Output.TimestampLayout = "" }},
		{"negative ttl", func(c *Config) { c.Cache.TTL = -1 }},
		{"negative debounce", func(c *Config) { c.Watch.DebounceMS = -1 }},
		{"negative workers", func(c *Config) { c.Batch.Workers = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr bool
	}{
		{"valid toml", "a.toml", "[cleanup]\nmatch_mode = \"token\"\nmax_cycles = 3\n", false},
		{"valid yaml", "b.yaml", "output:\n  format: toon\n", false},
		{"unknown section", "c.toml", "[analysis]\ncomplexity = true\n", true},
		{"unknown key", "d.toml", "[cleanup]\nmode = \"token\"\n", true},
		{"wrong type", "e.json", `{"cleanup": {"fixpoint": "yes"}}`, true},
		{"bad enum", "f.yaml", "cleanup:\n  match_mode: fuzzy\n", true},
		{"bad extension", "g.toml", "[batch]\nextensions = [\"cfg\"]\n", true},
		{"negative ttl", "h.toml", "[cache]\nttl = -2\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, dir, tt.file, tt.content)
			err := ValidateFile(path)
			if tt.wantErr {
				var schemaErr *SchemaError
				if !errors.As(err, &schemaErr) {
					t.Fatalf("ValidateFile() error = %v, want *SchemaError", err)
				}
				if schemaErr.Path != path {
					t.Errorf("SchemaError.Path = %s, want %s", schemaErr.Path, path)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateFile() error: %v", err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults without file", func(t *testing.T) {
		result, err := LoadConfig(WithRoot(t.TempDir()))
		if err != nil {
			t.Fatalf("LoadConfig() error: %v", err)
		}
		if result.Source != "" {
			t.Errorf("Source = %q, want empty", result.Source)
		}
		if result.Config.Cleanup.MatchMode != "substring" {
			t.Errorf("MatchMode = %s, want substring", result.Config.Cleanup.MatchMode)
		}
	})

	t.Run("finds dot directory config", func(t *testing.T) {
		root := t.TempDir()
		path := writeConfig(t, root, filepath.Join(".asaclean", "asaclean.yml"), "cleanup:\n  fixpoint: true\n")

		result, err := LoadConfig(WithRoot(root))
		if err != nil {
			t.Fatalf("LoadConfig() error: %v", err)
		}
		if result.Source != path {
			t.Errorf("Source = %q, want %q", result.Source, path)
		}
		if !result.Config.Cleanup.Fixpoint {
			t.Error("Fixpoint should be loaded from file")
		}
	})

	t.Run("root file wins over dot directory", func(t *testing.T) {
		root := t.TempDir()
		writeConfig(t, root, filepath.Join(".asaclean", "asaclean.toml"), "[cleanup]\nstrict = false\n")
		path := writeConfig(t, root, ".asaclean.toml", "[cleanup]\nstrict = true\n")

		result, err := LoadConfig(WithRoot(root))
		if err != nil {
			t.Fatalf("LoadConfig() error: %v", err)
		}
		if result.Source != path || !result.Config.Cleanup.Strict {
			t.Errorf("got %+v from %s", result.Config.Cleanup, result.Source)
		}
	})

	t.Run("explicit path", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "custom.toml", "[output]\nformat = \"json\"\n")

		result, err := LoadConfig(WithPath(path))
		if err != nil {
			t.Fatalf("LoadConfig() error: %v", err)
		}
		if result.Config.Output.Format != "json" {
			t.Errorf("Format = %s, want json", result.Config.Output.Format)
		}
	})

	t.Run("explicit path missing", func(t *testing.T) {
		_, err := LoadConfig(WithPath(filepath.Join(t.TempDir(), "missing.toml")))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("LoadConfig() error = %v, want not exist", err)
		}
	})

	t.Run("schema violation", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "bad.toml", "[cleanup]\nmatch_mode = \"fuzzy\"\n")

		_, err := LoadConfig(WithPath(path))
		var schemaErr *SchemaError
		if !errors.As(err, &schemaErr) {
			t.Errorf("LoadConfig() error = %v, want *SchemaError", err)
		}
	})

	t.Run("semantic violation", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "dup.toml", "[output]\nreport_suffix = \"X\"\nconfig_suffix = \"X\"\n")

		if _, err := LoadConfig(WithPath(path)); err == nil {
			t.Error("LoadConfig() should reject identical suffixes")
		}
	})
}

func TestLoadOrDefault(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd)

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}

	cfg := LoadOrDefault()
	if cfg.Cleanup.MaxCycles != 64 {
		t.Errorf("LoadOrDefault() returned non-default MaxCycles: %d", cfg.Cleanup.MaxCycles)
	}

	writeConfig(t, tmpDir, "asaclean.toml", "[cleanup]\nmax_cycles = 7\n")
	cfg = LoadOrDefault()
	if cfg.Cleanup.MaxCycles != 7 {
		t.Errorf("LoadOrDefault() should load from file, got MaxCycles=%d", cfg.Cleanup.MaxCycles)
	}
}

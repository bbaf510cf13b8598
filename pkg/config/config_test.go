package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/panbanda/lcom/pkg/analyzer/lcom"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
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

	if cfg.Analysis.InheritedMethods != "strict" {
		t.Errorf("Analysis.InheritedMethods = %q, want strict", cfg.Analysis.InheritedMethods)
	}
	if cfg.Analysis.BackingFields != "attribute" {
		t.Errorf("Analysis.BackingFields = %q, want attribute", cfg.Analysis.BackingFields)
	}
	if cfg.Filter.PublicOnly {
		t.Error("Filter.PublicOnly should be false by default")
	}
	if !cfg.Filter.ExcludeGenerated || !cfg.Filter.ExcludeInterfaces {
		t.Error("generated types and interfaces should be excluded by default")
	}
	if cfg.Thresholds.LCOMWarning != 1 || cfg.Thresholds.LCOMHigh != 10 {
		t.Errorf("Thresholds = %+v, want warning 1 / high 10", cfg.Thresholds)
	}
	if !cfg.Exclude.Gitignore {
		t.Error("Exclude.Gitignore should be true by default")
	}
	if cfg.Cache.Dir != ".lcom/cache" || cfg.Cache.TTL != 24 {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Output.Format != "text" {
		t.Errorf("Output.Format = %s, want text", cfg.Output.Format)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "lcom.toml", `
[analysis]
inherited_methods = "permissive"
backing_fields = "ignore"
workers = 4

[filter]
public_only = true

[thresholds]
lcom_high = 25

[exclude]
dirs = ["bin", "Generated"]

[cache]
enabled = false

[output]
format = "csv"
top = 10
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Analysis.InheritedMethods != "permissive" {
		t.Errorf("Analysis.InheritedMethods = %q", cfg.Analysis.InheritedMethods)
	}
	if cfg.Analysis.Workers != 4 {
		t.Errorf("Analysis.Workers = %d, want 4", cfg.Analysis.Workers)
	}
	if !cfg.Filter.PublicOnly {
		t.Error("Filter.PublicOnly should be true")
	}
	// Unset keys keep their defaults.
	if !cfg.Filter.ExcludeGenerated {
		t.Error("Filter.ExcludeGenerated should keep its default")
	}
	if cfg.Thresholds.LCOMHigh != 25 || cfg.Thresholds.LCOMWarning != 1 {
		t.Errorf("Thresholds = %+v", cfg.Thresholds)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled should be false")
	}
	if cfg.Output.Format != "csv" || cfg.Output.Top != 10 {
		t.Errorf("Output = %+v", cfg.Output)
	}

	calc := cfg.Calculator()
	if calc.InheritancePolicy() != lcom.InheritPermissive {
		t.Errorf("Calculator().InheritancePolicy() = %v", calc.InheritancePolicy())
	}
	if calc.BackingFieldPolicy() != lcom.BackingFieldIgnore {
		t.Errorf("Calculator().BackingFieldPolicy() = %v", calc.BackingFieldPolicy())
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "lcom.yaml", `
filter:
  exclude_interfaces: false
output:
  format: json
  sort: lcom
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Filter.ExcludeInterfaces {
		t.Error("Filter.ExcludeInterfaces should be false")
	}
	if cfg.Output.Format != "json" || cfg.Output.Sort != "lcom" {
		t.Errorf("Output = %+v", cfg.Output)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "lcom.json", `{
  "analysis": {"max_file_size": 1024},
  "exclude": {"patterns": ["*Tests.cs"]}
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Analysis.MaxFileSize != 1024 {
		t.Errorf("Analysis.MaxFileSize = %d, want 1024", cfg.Analysis.MaxFileSize)
	}
	if len(cfg.Exclude.Patterns) == 0 || cfg.Exclude.Patterns[0] != "*Tests.cs" {
		t.Errorf("Exclude.Patterns = %v", cfg.Exclude.Patterns)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	if _, err := Load("/nonexistent/lcom.toml"); err == nil {
		t.Error("Load() should return error for non-existent file")
	}
}

func TestLoadInvalidFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "lcom.toml", "[analysis\nworkers = ")
	if _, err := Load(path); err == nil {
		t.Error("Load() should return error for invalid config")
	}
}

func TestLoadOrDefault(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := LoadOrDefault()
	if cfg == nil {
		t.Fatal("LoadOrDefault() returned nil")
	}
	if cfg.Output.Format != "text" {
		t.Errorf("LoadOrDefault() returned non-default format: %s", cfg.Output.Format)
	}
}

func TestLoadOrDefaultWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, filepath.Join(".lcom", "lcom.toml"), "[output]\ntop = 7\n")
	t.Chdir(dir)

	cfg := LoadOrDefault()
	if cfg.Output.Top != 7 {
		t.Errorf("LoadOrDefault() should load from .lcom/lcom.toml, got Top=%d", cfg.Output.Top)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults when nothing is found", func(t *testing.T) {
		t.Chdir(t.TempDir())

		result, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() error: %v", err)
		}
		if result.Source != "" {
			t.Errorf("Source = %q, want empty", result.Source)
		}
	})

	t.Run("discovered file", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, ".lcom.yaml", "output:\n  format: markdown\n")
		t.Chdir(dir)

		result, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() error: %v", err)
		}
		if result.Source != ".lcom.yaml" {
			t.Errorf("Source = %q, want .lcom.yaml", result.Source)
		}
		if result.Config.Output.Format != "markdown" {
			t.Errorf("Output.Format = %q", result.Config.Output.Format)
		}
	})

	t.Run("explicit path", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "custom.toml", "[thresholds]\nlcom_high = 3\n")

		result, err := LoadConfig(WithPath(path))
		if err != nil {
			t.Fatalf("LoadConfig() error: %v", err)
		}
		if result.Source != path || result.Config.Thresholds.LCOMHigh != 3 {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("invalid values are errors", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "lcom.toml", "[analysis]\ninherited_methods = \"sometimes\"\n")

		if _, err := LoadConfig(WithPath(path)); err == nil {
			t.Error("LoadConfig() should reject an unknown inheritance policy")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"permissive", func(c *Config) { c.Analysis.InheritedMethods = "Permissive" }, ""},
		{"bad backing policy", func(c *Config) { c.Analysis.BackingFields = "merge" }, "analysis.backing_fields"},
		{"negative workers", func(c *Config) { c.Analysis.Workers = -1 }, "analysis.workers"},
		{"negative max size", func(c *Config) { c.Analysis.MaxFileSize = -1 }, "analysis.max_file_size"},
		{"warning above high", func(c *Config) { c.Thresholds.LCOMWarning = 20 }, "exceeds"},
		{"negative ttl", func(c *Config) { c.Cache.TTL = -1 }, "cache.ttl"},
		{"unknown format", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"unknown sort", func(c *Config) { c.Output.Sort = "size" }, "output.sort"},
		{"negative top", func(c *Config) { c.Output.Top = -5 }, "output.top"},
		{"bad pattern", func(c *Config) { c.Exclude.Patterns = []string{"[x"} }, "exclude.patterns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Format = "xml"
	cfg.Cache.TTL = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"output.format", "cache.ttl"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() = %v, missing %q", err, want)
		}
	}
}

func TestShouldExclude(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		path string
		want bool
	}{
		// Excluded directories
		{"bin/Debug/App.cs", true},
		{"src/obj/Gen.cs", true},
		{"target/classes/A.java", true},
		{".git/objects/file", true},

		// Excluded patterns
		{"Resources.Designer.cs", true},
		{"src/Model.g.cs", true},
		{"Properties/AssemblyInfo.cs", true},
		{"src/main/java/com/acme/package-info.java", true},

		// Not excluded
		{"src/Order.cs", false},
		{"src/main/java/com/acme/Order.java", false},
		{"dump/types.lcom.yaml", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := cfg.ShouldExclude(filepath.FromSlash(tt.path))
			if got != tt.want {
				t.Errorf("ShouldExclude(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestShouldExcludeCustomExtensions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exclude.Extensions = []string{".java"}

	if !cfg.ShouldExclude("A.java") {
		t.Error("ShouldExclude(A.java) should be true with .java excluded")
	}
	if cfg.ShouldExclude("A.cs") {
		t.Error("ShouldExclude(A.cs) should be false")
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/panbanda/lcom/pkg/analyzer/lcom"
)

// Config holds all configuration options for lcom.
type Config struct {
	// Engine and driver settings
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis"`

	// Which types are analyzed
	Filter FilterConfig `koanf:"filter" toml:"filter"`

	// Reporting thresholds
	Thresholds ThresholdConfig `koanf:"thresholds" toml:"thresholds"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// AnalysisConfig controls how LCOM is computed.
type AnalysisConfig struct {
	InheritedMethods string `koanf:"inherited_methods" toml:"inherited_methods"` // strict, permissive
	BackingFields    string `koanf:"backing_fields" toml:"backing_fields"`       // attribute, ignore
	MaxFileSize      int64  `koanf:"max_file_size" toml:"max_file_size"`         // bytes, 0 = no limit
	Workers          int    `koanf:"workers" toml:"workers"`                     // 0 = 2x NumCPU
}

// FilterConfig selects types.
type FilterConfig struct {
	PublicOnly        bool `koanf:"public_only" toml:"public_only"`
	ExcludeGenerated  bool `koanf:"exclude_generated" toml:"exclude_generated"`
	ExcludeInterfaces bool `koanf:"exclude_interfaces" toml:"exclude_interfaces"`
}

// ThresholdConfig defines LCOM severity thresholds.
type ThresholdConfig struct {
	LCOMWarning int `koanf:"lcom_warning" toml:"lcom_warning"`
	LCOMHigh    int `koanf:"lcom_high" toml:"lcom_high"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns   []string `koanf:"patterns" toml:"patterns"`
	Extensions []string `koanf:"extensions" toml:"extensions"`
	Dirs       []string `koanf:"dirs" toml:"dirs"`
	Gitignore  bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format"` // text, json, markdown, toon, csv
	Color  bool   `koanf:"color" toml:"color"`
	Sort   string `koanf:"sort" toml:"sort"` // discovery, lcom, name, methods
	Top    int    `koanf:"top" toml:"top"`   // 0 = all
}

// Formats lists the accepted output formats.
var Formats = []string{"text", "json", "markdown", "toon", "csv"}

// SortOrders lists the accepted sort orders.
var SortOrders = []string{"discovery", "lcom", "name", "methods"}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			InheritedMethods: lcom.InheritStrict.String(),
			BackingFields:    lcom.BackingFieldAttribute.String(),
			MaxFileSize:      2 << 20,
			Workers:          0,
		},
		Filter: FilterConfig{
			PublicOnly:        false,
			ExcludeGenerated:  true,
			ExcludeInterfaces: true,
		},
		Thresholds: ThresholdConfig{
			LCOMWarning: 1,
			LCOMHigh:    10,
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.g.cs",
				"*.g.i.cs",
				"*.Designer.cs",
				"AssemblyInfo.cs",
				"package-info.java",
				"module-info.java",
			},
			Extensions: []string{},
			Dirs: []string{
				".git",
				".lcom",
				"bin",
				"obj",
				"target",
				"build",
				"out",
				"node_modules",
				"packages",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".lcom/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
			Sort:   "discovery",
			Top:    0,
		},
	}
}

// Load loads configuration from a file over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// configNames are searched, in order, in each of searchDirs.
var configNames = []string{
	"lcom.toml",
	"lcom.yaml",
	"lcom.yml",
	"lcom.json",
	".lcom.toml",
	".lcom.yaml",
	".lcom.yml",
	".lcom.json",
}

var searchDirs = []string{".", ".lcom"}

// FindConfigFile returns the first config file found in the standard
// locations, or "" if there is none.
func FindConfigFile() string {
	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault tries to load config from standard locations or returns
// defaults. Invalid files are ignored.
func LoadOrDefault() *Config {
	if path := FindConfigFile(); path != "" {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

// LoadResult is a loaded configuration and where it came from.
type LoadResult struct {
	Config *Config
	Source string // empty when defaults were used
}

type loadOptions struct {
	path string
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

// WithPath loads from path instead of searching the standard locations.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// LoadConfig loads and validates configuration. Unlike LoadOrDefault, a
// config file that exists but cannot be parsed or fails validation is an
// error.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	path := o.path
	if path == "" {
		path = FindConfigFile()
	}
	if path == "" {
		return &LoadResult{Config: DefaultConfig()}, nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &LoadResult{Config: cfg, Source: path}, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if _, err := lcom.ParseInheritancePolicy(c.Analysis.InheritedMethods); err != nil {
		errs = append(errs, fmt.Errorf("analysis.inherited_methods: %w", err))
	}
	if _, err := lcom.ParseBackingFieldPolicy(c.Analysis.BackingFields); err != nil {
		errs = append(errs, fmt.Errorf("analysis.backing_fields: %w", err))
	}
	if c.Analysis.MaxFileSize < 0 {
		errs = append(errs, errors.New("analysis.max_file_size must not be negative"))
	}
	if c.Analysis.Workers < 0 {
		errs = append(errs, errors.New("analysis.workers must not be negative"))
	}
	if c.Thresholds.LCOMWarning < 0 || c.Thresholds.LCOMHigh < 0 {
		errs = append(errs, errors.New("thresholds must not be negative"))
	}
	if c.Thresholds.LCOMHigh > 0 && c.Thresholds.LCOMWarning > c.Thresholds.LCOMHigh {
		errs = append(errs, fmt.Errorf("thresholds.lcom_warning (%d) exceeds thresholds.lcom_high (%d)",
			c.Thresholds.LCOMWarning, c.Thresholds.LCOMHigh))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}
	if !oneOf(c.Output.Format, Formats) {
		errs = append(errs, fmt.Errorf("output.format %q must be one of %s", c.Output.Format, strings.Join(Formats, ", ")))
	}
	if c.Output.Sort != "" && !oneOf(c.Output.Sort, SortOrders) {
		errs = append(errs, fmt.Errorf("output.sort %q must be one of %s", c.Output.Sort, strings.Join(SortOrders, ", ")))
	}
	if c.Output.Top < 0 {
		errs = append(errs, errors.New("output.top must not be negative"))
	}
	for _, p := range c.Exclude.Patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			errs = append(errs, fmt.Errorf("exclude.patterns %q: %w", p, err))
		}
	}

	return errors.Join(errs...)
}

// Calculator builds the engine configured by the analysis section.
// Call Validate first; unknown policy names fall back to the defaults.
func (c *Config) Calculator() *lcom.Calculator {
	inherit, err := lcom.ParseInheritancePolicy(c.Analysis.InheritedMethods)
	if err != nil {
		inherit = lcom.InheritStrict
	}
	backing, err := lcom.ParseBackingFieldPolicy(c.Analysis.BackingFields)
	if err != nil {
		backing = lcom.BackingFieldAttribute
	}
	return lcom.New(lcom.WithInheritancePolicy(inherit), lcom.WithBackingFieldPolicy(backing))
}

// ShouldExclude checks if a path should be excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	// Check directory exclusions
	sep := string(filepath.Separator)
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, sep+dir+sep) || strings.HasPrefix(path, dir+sep) {
			return true
		}
	}

	// Check extension exclusions
	ext := filepath.Ext(path)
	for _, excludeExt := range c.Exclude.Extensions {
		if ext == excludeExt {
			return true
		}
	}

	// Check pattern exclusions
	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}

func oneOf(s string, options []string) bool {
	for _, o := range options {
		if strings.EqualFold(s, o) {
			return true
		}
	}
	return false
}

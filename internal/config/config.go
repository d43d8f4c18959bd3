// Package config loads facter-lookup settings from a YAML file and the
// environment and converts them into facter.Options and logging.Config.
//
// Precedence, lowest to highest: built-in defaults, the config file,
// FACTER_LOOKUP_* environment variables, and finally CLI flags (applied by
// the cli package).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rshade/facter-lookup/internal/facter"
)

// Environment variables recognised by Load.
const (
	EnvConfigFile   = "FACTER_LOOKUP_CONFIG"
	EnvPath         = "FACTER_LOOKUP_PATH"
	EnvExternalDir  = "FACTER_LOOKUP_EXTERNAL_DIR"
	EnvPuppetFacts  = "FACTER_LOOKUP_PUPPET"
	EnvCacheEnabled = "FACTER_LOOKUP_CACHE_ENABLED"
	EnvLegacy       = "FACTER_LOOKUP_LEGACY"
	EnvFormat       = "FACTER_LOOKUP_FORMAT"
	EnvTimeout      = "FACTER_LOOKUP_TIMEOUT"
)

// configDirName is created under the user's home directory.
const configDirName = ".facter-lookup"

// Config is the full facter-lookup configuration.
type Config struct {
	Facter  FacterConfig  `yaml:"facter"`
	Logging LoggingConfig `yaml:"logging"`
}

// FacterConfig mirrors facter.Options in file form.
type FacterConfig struct {
	Path          string            `yaml:"path"`
	ExternalDir   string            `yaml:"external_dir"`
	PuppetFacts   bool              `yaml:"puppet_facts"`
	CacheEnabled  *bool             `yaml:"cache_enabled,omitempty"`
	Legacy        bool              `yaml:"legacy"`
	LegacyAliases map[string]string `yaml:"legacy_aliases,omitempty"`
	Format        string            `yaml:"format"`
	Timeout       string            `yaml:"timeout"`

	// Deprecated: kept so old config files still load; see facter.Options.UseYAML.
	UseYAML bool `yaml:"use_yaml,omitempty"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// New returns the built-in defaults.
func New() *Config {
	return &Config{
		Facter: FacterConfig{
			Path: facter.DefaultPath,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultPath returns ~/.facter-lookup/config.yaml, or an empty string when
// the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, configDirName, "config.yaml")
}

// Load builds a Config from defaults, the file at path (or the default
// location when path is empty) and the environment. A missing file is not
// an error.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	explicit := path != ""
	if path == "" {
		path = DefaultPath()
	}

	if path != "" {
		err := ShallowMergeYAML(cfg, path)
		switch {
		case err == nil:
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with FACTER_LOOKUP_* variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvPath); v != "" {
		c.Facter.Path = v
	}
	if v := os.Getenv(EnvExternalDir); v != "" {
		c.Facter.ExternalDir = v
	}
	if v := os.Getenv(EnvFormat); v != "" {
		c.Facter.Format = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		c.Facter.Timeout = v
	}

	boolVars := []struct {
		name string
		set  func(bool)
	}{
		{EnvPuppetFacts, func(b bool) { c.Facter.PuppetFacts = b }},
		{EnvCacheEnabled, func(b bool) { c.Facter.CacheEnabled = &b }},
		{EnvLegacy, func(b bool) { c.Facter.Legacy = b }},
	}
	for _, bv := range boolVars {
		raw := os.Getenv(bv.name)
		if raw == "" {
			continue
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", bv.name, raw, err)
		}
		bv.set(b)
	}
	return nil
}

// Validate checks values that cannot be caught by YAML decoding.
func (c *Config) Validate() error {
	var errs []error
	if _, err := facter.ParseFormat(c.Facter.Format); err != nil {
		errs = append(errs, err)
	}
	if c.Facter.UseYAML && c.Facter.Format != "" && !strings.EqualFold(c.Facter.Format, "auto") {
		errs = append(errs, errors.New("use_yaml cannot be combined with format"))
	}
	if _, err := c.timeout(); err != nil {
		errs = append(errs, err)
	}
	for name, path := range c.Facter.LegacyAliases {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("legacy alias for %q has an empty name", path))
		}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown logging format %q (want console or json)", c.Logging.Format))
	}
	return errors.Join(errs...)
}

func (c *Config) timeout() (time.Duration, error) {
	if c.Facter.Timeout == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(c.Facter.Timeout); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("timeout must not be negative, got %d", secs)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(c.Facter.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Facter.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout must not be negative, got %s", d)
	}
	return d, nil
}

// cacheEnabled reports the effective cache setting; caching defaults to on.
func (fc FacterConfig) cacheEnabled() bool {
	return fc.CacheEnabled == nil || *fc.CacheEnabled
}

// ToOptions converts the facter section into facter.Options.
func (c *Config) ToOptions() (facter.Options, error) {
	if err := c.Validate(); err != nil {
		return facter.Options{}, err
	}
	format, _ := facter.ParseFormat(c.Facter.Format)
	timeout, _ := c.timeout()

	return facter.Options{
		Path:          c.Facter.Path,
		ExternalDir:   c.Facter.ExternalDir,
		PuppetFacts:   c.Facter.PuppetFacts,
		CacheDisabled: !c.Facter.cacheEnabled(),
		Legacy:        c.Facter.Legacy,
		LegacyAliases: c.Facter.LegacyAliases,
		Format:        format,
		UseYAML:       c.Facter.UseYAML,
		Timeout:       timeout,
	}, nil
}

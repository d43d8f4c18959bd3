package facter

import (
	"errors"
	"maps"
	"time"
)

// Options configure a Facter. The zero value runs "facter" from PATH in
// auto format with caching enabled.
type Options struct {
	// Path to the facter executable. Empty means "facter" resolved via PATH.
	Path string

	// ExternalDir is passed as --external-dir when set.
	ExternalDir string

	// PuppetFacts adds --puppet so facts contributed by puppet are included.
	PuppetFacts bool

	// CacheDisabled makes every lookup run facter and never stores results.
	CacheDisabled bool

	// Legacy requests legacy fact names (--show-legacy) and adds legacy
	// aliases for structured facts after parsing.
	Legacy bool

	// LegacyAliases extends or overrides the built-in alias table. An empty
	// path removes a built-in alias.
	LegacyAliases map[string]string

	// Format forces an output format. FormatAuto tries JSON then text.
	Format Format

	// Deprecated: UseYAML is accepted for compatibility only. Setting it
	// logs a warning and selects plain text output.
	UseYAML bool

	// Timeout bounds a single facter run. Zero means no limit.
	Timeout time.Duration

	// Runner overrides the package-level Runner.
	Runner CommandRunner
}

// Config is the effective, immutable configuration of a Facter, resolved
// once at construction.
type Config struct {
	Path          string
	ExternalDir   string
	PuppetFacts   bool
	CacheEnabled  bool
	Legacy        bool
	Format        Format
	Timeout       time.Duration
	Deprecations  []string
	legacyAliases map[string]string
}

// LegacyAliases returns a copy of the effective alias table.
func (c Config) LegacyAliases() map[string]string {
	return maps.Clone(c.legacyAliases)
}

// deprecationUseYAML is recorded in Config.Deprecations when UseYAML is set.
const deprecationUseYAML = "UseYAML is deprecated; facter output is parsed as plain text instead"

var errYAMLWithFormat = errors.New("UseYAML cannot be combined with an explicit Format")

// resolve validates o and produces the effective Config.
func (o Options) resolve() (Config, error) {
	format, err := ParseFormat(string(o.Format))
	if err != nil {
		return Config{}, err
	}
	if o.Timeout < 0 {
		return Config{}, errors.New("timeout must not be negative")
	}

	cfg := Config{
		Path:         ResolvePath(o.Path),
		ExternalDir:  o.ExternalDir,
		PuppetFacts:  o.PuppetFacts,
		CacheEnabled: !o.CacheDisabled,
		Legacy:       o.Legacy,
		Format:       format,
		Timeout:      o.Timeout,
	}

	if o.UseYAML {
		if format != FormatAuto {
			return Config{}, errYAMLWithFormat
		}
		cfg.Format = FormatText
		cfg.Deprecations = append(cfg.Deprecations, deprecationUseYAML)
	}

	if o.Legacy {
		cfg.legacyAliases = aliasTable(o.LegacyAliases)
	}
	return cfg, nil
}

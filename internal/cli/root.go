package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/facter-lookup/internal/config"
	"github.com/rshade/facter-lookup/internal/facter"
	"github.com/rshade/facter-lookup/internal/logging"
	"github.com/rshade/facter-lookup/internal/metrics"
)

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

type facterKey struct{}

// facterFromContext returns the Facter built by the root command.
func facterFromContext(ctx context.Context) (*facter.Facter, error) {
	f, ok := ctx.Value(facterKey{}).(*facter.Facter)
	if !ok || f == nil {
		return nil, fmt.Errorf("facter accessor not initialised")
	}
	return f, nil
}

// rootFlags holds the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath  string
	debug       bool
	facterPath  string
	externalDir string
	puppet      bool
	legacy      bool
	noCache     bool
	format      string
	timeout     time.Duration
	useYAML     bool
	metrics     bool
}

// NewRootCmd creates the root Cobra command for the facter-lookup CLI.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithRunner(ver, nil)
}

// NewRootCmdWithRunner creates the root command with an explicit facter
// CommandRunner for testability. A nil runner uses facter.Runner.
func NewRootCmdWithRunner(ver string, runner facter.CommandRunner) *cobra.Command {
	var (
		flags     rootFlags
		logResult *logging.Result
	)

	cmd := &cobra.Command{
		Use:           "facter-lookup",
		Short:         "Cached lookups over facter output",
		Long:          "facter-lookup runs facter, parses its JSON (or plain text) output and answers fact lookups from a per-process cache.",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath)
			switch {
			case err == nil:
			case isConfigCmd(cmd) && errors.Is(err, os.ErrNotExist):
				cfg = config.New()
			default:
				return fmt.Errorf("loading configuration: %w", err)
			}
			applyFlagOverrides(cmd, cfg, &flags)

			result := setupLogging(cmd, cfg, flags.debug)
			logResult = &result

			// config subcommands work on the file itself.
			if isConfigCmd(cmd) {
				return nil
			}

			f, err := newFacter(cmd, cfg, &flags, runner)
			if err != nil {
				_ = logResult.Close()
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), facterKey{}, f))
			return nil
		},
	}

	// finish runs after every command body, failed or not.
	finish := func(cmd *cobra.Command) error {
		var metricsErr error
		if flags.metrics {
			metricsErr = metrics.WriteText(cmd.ErrOrStderr())
		}
		return errors.Join(metricsErr, logResult.Close())
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.facter-lookup/config.yaml)")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")
	pf.StringVar(&flags.facterPath, "facter-path", "", "path to the facter executable")
	pf.StringVar(&flags.externalDir, "external-dir", "", "directory of external fact definitions")
	pf.BoolVar(&flags.puppet, "puppet", false, "include facts contributed by puppet")
	pf.BoolVar(&flags.legacy, "legacy", false, "include legacy (flat) fact names")
	pf.BoolVar(&flags.noCache, "no-cache", false, "disable the fact cache")
	pf.StringVar(&flags.format, "format", "", "facter output format: auto, json, text or yaml")
	pf.DurationVar(&flags.timeout, "timeout", 0, "maximum time for one facter run (0 = no limit)")
	pf.BoolVar(&flags.metrics, "metrics", false, "print invocation and cache metrics to stderr on exit")
	pf.BoolVar(&flags.useYAML, "use-yaml", false, "request YAML output")
	_ = pf.MarkDeprecated("use-yaml", "facter output is parsed as plain text; use --format instead")

	cmd.AddCommand(
		NewGetCmd(), NewAllCmd(), NewJSONCmd(), NewQueryCmd(),
		NewVersionCmd(), newConfigCmd(),
	)
	withFinish(cmd, finish)
	return cmd
}

// newFacter builds the accessor from the loaded configuration and flags.
func newFacter(cmd *cobra.Command, cfg *config.Config, flags *rootFlags, runner facter.CommandRunner) (*facter.Facter, error) {
	opts, err := cfg.ToOptions()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if flags.timeout != 0 {
		opts.Timeout = flags.timeout
	}
	opts.Runner = runner
	return facter.New(cmd.Context(), opts)
}

// withFinish wraps the RunE of cmd and all its descendants so finish runs
// whether or not the command failed. A command error takes precedence over
// an error from finish.
func withFinish(cmd *cobra.Command, finish func(*cobra.Command) error) {
	for _, sub := range cmd.Commands() {
		withFinish(sub, finish)
	}
	if cmd.RunE == nil {
		return
	}
	run := cmd.RunE
	cmd.RunE = func(c *cobra.Command, args []string) error {
		err := run(c, args)
		if finishErr := finish(c); err == nil {
			err = finishErr
		}
		return err
	}
}

// applyFlagOverrides copies explicitly set flags onto cfg.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config, flags *rootFlags) {
	changed := cmd.Flags().Changed
	if changed("facter-path") {
		cfg.Facter.Path = flags.facterPath
	}
	if changed("external-dir") {
		cfg.Facter.ExternalDir = flags.externalDir
	}
	if changed("puppet") {
		cfg.Facter.PuppetFacts = flags.puppet
	}
	if changed("legacy") {
		cfg.Facter.Legacy = flags.legacy
	}
	if changed("no-cache") {
		enabled := !flags.noCache
		cfg.Facter.CacheEnabled = &enabled
	}
	if changed("format") {
		cfg.Facter.Format = flags.format
	}
	if changed("use-yaml") {
		cfg.Facter.UseYAML = flags.useYAML
	}
}

// isConfigCmd reports whether cmd is a config subcommand.
func isConfigCmd(cmd *cobra.Command) bool {
	return cmd.HasParent() && cmd.Parent().Name() == "config"
}

// newConfigCmd creates the config command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration commands"}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigValidateCmd())
	return cmd
}

const rootCmdExample = `  # Look up one fact
  facter-lookup get os

  # Look up a legacy fact name, with a fallback value
  facter-lookup get architecture --legacy --default unknown

  # Print every fact as a table, JSON or YAML
  facter-lookup all
  facter-lookup all -o yaml

  # Ask facter directly for specific facts, bypassing the cache
  facter-lookup query networking.ip kernel

  # Use a non-standard facter and external facts directory
  facter-lookup --facter-path /opt/puppetlabs/bin/facter --external-dir /etc/facts.d all`

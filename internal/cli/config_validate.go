package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/facter-lookup/internal/config"
)

// NewConfigValidateCmd creates the config validate command.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Long: `Loads the configuration file (default ~/.facter-lookup/config.yaml), applies
FACTER_LOOKUP_* environment overrides and checks the result.`,
		Example: `  # Validate current configuration
  facter-lookup config validate

  # Validate and show the effective settings
  facter-lookup config validate --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			return runConfigValidate(cmd, configPath, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show the effective settings")
	return cmd
}

func runConfigValidate(cmd *cobra.Command, configPath string, verbose bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
	if verbose {
		opts, _ := cfg.ToOptions()
		fmt.Fprintf(cmd.OutOrStdout(), "  facter path:   %s\n", opts.Path)
		fmt.Fprintf(cmd.OutOrStdout(), "  external dir:  %s\n", opts.ExternalDir)
		fmt.Fprintf(cmd.OutOrStdout(), "  puppet facts:  %t\n", opts.PuppetFacts)
		fmt.Fprintf(cmd.OutOrStdout(), "  cache enabled: %t\n", !opts.CacheDisabled)
		fmt.Fprintf(cmd.OutOrStdout(), "  legacy:        %t\n", opts.Legacy)
		fmt.Fprintf(cmd.OutOrStdout(), "  format:        %s\n", opts.Format)
		fmt.Fprintf(cmd.OutOrStdout(), "  timeout:       %s\n", opts.Timeout)
		fmt.Fprintf(cmd.OutOrStdout(), "  log level:     %s\n", cfg.Logging.Level)
	}
	return nil
}

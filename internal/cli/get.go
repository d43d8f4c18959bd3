package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/facter-lookup/internal/facter"
	"github.com/rshade/facter-lookup/internal/logging"
)

// NewGetCmd creates the "get" command, which looks facts up through the cache.
func NewGetCmd() *cobra.Command {
	var (
		noCache bool
		def     string
	)

	cmd := &cobra.Command{
		Use:   "get NAME...",
		Short: "Print the value of one or more facts",
		Long: `Print the value of one or more facts. Strings are printed as is, structured
values as JSON. With several names each line is prefixed with "name => ".

A missing fact is an error unless --default is given.`,
		Example: `  # Print the architecture
  facter-lookup get architecture --legacy

  # Force a fresh facter run for this lookup
  facter-lookup get system_uptime --fresh

  # Fall back to a default value
  facter-lookup get ec2_metadata --default none`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, args, !noCache, def, cmd.Flags().Changed("default"))
		},
	}

	cmd.Flags().BoolVar(&noCache, "fresh", false, "bypass the cache for this lookup")
	cmd.Flags().StringVar(&def, "default", "", "value printed when a fact is missing")

	return cmd
}

func runGet(cmd *cobra.Command, names []string, useCache bool, def string, hasDefault bool) error {
	ctx := cmd.Context()
	f, err := facterFromContext(ctx)
	if err != nil {
		return err
	}
	log := logging.FromContext(ctx)

	for i, name := range names {
		// Only the first lookup may need to bypass the cache; the rest read
		// the snapshot it produced.
		opt := facter.WithCache(useCache || i > 0)

		var v facter.Value
		if hasDefault {
			v, err = f.Get(ctx, name, facter.String(def), opt)
		} else {
			v, err = f.Lookup(ctx, name, opt)
		}
		if err != nil {
			log.Debug().Ctx(ctx).Str("fact", name).Err(err).Msg("lookup failed")
			return err
		}

		if len(names) == 1 {
			fmt.Fprintln(cmd.OutOrStdout(), formatValue(v))
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s => %s\n", name, formatValue(v))
	}
	return nil
}

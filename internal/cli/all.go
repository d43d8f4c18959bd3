package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewAllCmd creates the "all" command, which prints every fact.
func NewAllCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Print every fact",
		Example: `  # Table of all facts
  facter-lookup all

  # Show Go value types, useful when debugging text fallback
  facter-lookup all -o dump`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			f, err := facterFromContext(ctx)
			if err != nil {
				return err
			}
			facts, err := f.All(ctx)
			if err != nil {
				return err
			}
			return renderFacts(cmd.OutOrStdout(), facts, output, isTerminal(cmd.OutOrStdout()))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json, yaml or dump")
	return cmd
}

// NewJSONCmd creates the "json" command, which dumps all facts as JSON.
func NewJSONCmd() *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "json",
		Short: "Print every fact as a JSON object",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			f, err := facterFromContext(ctx)
			if err != nil {
				return err
			}
			if pretty {
				facts, allErr := f.All(ctx)
				if allErr != nil {
					return allErr
				}
				return renderJSON(cmd.OutOrStdout(), facts, true)
			}
			data, err := f.JSON(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the output")
	return cmd
}

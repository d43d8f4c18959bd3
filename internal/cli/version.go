package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCmd creates the "version" command, which reports both this
// tool's version and the facter version.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print facter-lookup and facter versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			fmt.Fprintf(cmd.OutOrStdout(), "facter-lookup %s\n", cmd.Root().Version)

			f, err := facterFromContext(ctx)
			if err != nil {
				return err
			}
			v, err := f.ToolVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "facter %s (%s)\n", v, f.Config().Path)
			return nil
		},
	}
}

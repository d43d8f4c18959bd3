package cli

import (
	"github.com/spf13/cobra"
)

// NewQueryCmd creates the "query" command, which passes fact names straight
// to facter and never uses the cache.
func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query NAME...",
		Short: "Run facter for specific facts, bypassing the cache",
		Long: `Run facter with the given fact names as arguments and print what it reports
as JSON. Dotted names (os.release.major) are resolved by facter itself.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := facterFromContext(ctx)
			if err != nil {
				return err
			}
			facts, err := f.Query(ctx, args...)
			if err != nil {
				return err
			}
			return renderJSON(cmd.OutOrStdout(), facts, true)
		},
	}
	return cmd
}

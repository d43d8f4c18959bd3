package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/facter-lookup/internal/config"
	"github.com/rshade/facter-lookup/internal/logging"
)

// setupLogging configures logging from the config file, environment and the
// --debug flag, and stores the logger in the command context.
func setupLogging(cmd *cobra.Command, cfg *config.Config, debug bool) logging.Result {
	loggingCfg := cfg.Logging.ToLoggingConfig()
	if debug {
		loggingCfg.Level = "debug"
		loggingCfg.Format = logging.FormatConsole
		loggingCfg.Output = logging.OutputStderr
		loggingCfg.File = ""
	}

	result := logging.NewLogger(loggingCfg)
	if result.FallbackUsed {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: logging to stderr: %s\n", result.FallbackReason)
	}
	logger = logging.ComponentLogger(result.Logger, "cli")

	ctx := logging.WithContext(cmd.Context(), logger)
	cmd.SetContext(ctx)

	logger.Debug().Ctx(ctx).Str("command", cmd.Name()).Msg("command started")
	return result
}

package config

import (
	"os"
	"strings"

	"github.com/rshade/facter-lookup/internal/logging"
)

// ToLoggingConfig converts LoggingConfig to logging.Config. The
// FACTER_LOOKUP_LOG_LEVEL and FACTER_LOOKUP_LOG_FORMAT variables win over
// file values.
//
//   - If File is set, Output becomes "file".
//   - If File is empty, Output defaults to "stderr".
func (lc LoggingConfig) ToLoggingConfig() logging.Config {
	cfg := logging.Config{
		Level:  lc.Level,
		Format: lc.Format,
		Output: logging.OutputStderr,
		File:   lc.File,
	}
	if lc.File != "" {
		cfg.Output = logging.OutputFile
	}
	if v := os.Getenv(logging.EnvLogLevel); v != "" {
		cfg.Level = strings.ToLower(v)
	}
	if v := os.Getenv(logging.EnvLogFormat); v != "" {
		cfg.Format = strings.ToLower(v)
	}
	return cfg
}

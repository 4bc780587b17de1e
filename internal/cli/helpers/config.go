package helpers

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coral-mesh/listquery/internal/config"
	"github.com/coral-mesh/listquery/internal/logging"
)

// Persistent flag names registered on the root command.
const (
	FlagConfig   = "config"
	FlagLogLevel = "log-level"
)

// LoadConfig loads the configuration named by --config, $LISTQUERY_CONFIG or
// the default path.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(FlagConfig)
	return config.NewLoader().Load(path)
}

// NewLogger builds the process logger from cfg. --log-level overrides the
// configured level. Logs go to stderr so command output stays parseable.
func NewLogger(cmd *cobra.Command, cfg *config.Config) zerolog.Logger {
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	if level, _ := cmd.Flags().GetString(FlagLogLevel); level != "" {
		logCfg.Level = level
	}
	logCfg.Pretty = cfg.Logging.Pretty || logging.IsTerminal(os.Stderr)
	return logging.New(logCfg)
}

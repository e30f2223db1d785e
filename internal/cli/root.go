package cli

import (
	"github.com/rbarrantes/triage/internal/config"
	"github.com/rbarrantes/triage/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "triage",
		Short: "triage — JIRA backlog triage on a local LLM",
		Long:  "triage pulls unfinished tickets from JIRA, summarizes them, and runs an AI analyst over the backlog using a locally running Ollama runtime.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.triage/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newProjectsCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// rootLogger rebuilds the logger from the loaded config unless the user
// forced a level on the command line.
func rootLogger(cfg *config.Config) *logging.Logger {
	if logLevel != "" {
		return log
	}
	l, err := logging.NewFromOptions(logging.Options{
		Level:        cfg.Logging.Level,
		ConsoleStyle: cfg.Logging.ConsoleStyle,
		File:         cfg.Logging.File,
	})
	if err != nil {
		log.Warn().Err(err).Msg("falling back to console logger")
		return log
	}
	return l
}

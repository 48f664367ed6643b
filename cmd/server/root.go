package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DoyleJ11/teamfinder/internal/config"
	"github.com/DoyleJ11/teamfinder/internal/logging"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "teamfinder",
	Short: "Discord bot for finding Warzone teams",
	Long: `teamfinder runs the Warzone Team Finder Discord bot: team searches, private matches
and tournaments with a small status site alongside.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv(envFile)
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional file of environment variables to load first")
}

// newLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func newLogger(level, format string) (*zap.Logger, error) {
	log, err := logging.New(level, format)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	return log, nil
}

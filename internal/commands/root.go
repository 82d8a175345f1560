package commands

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	appconfig "github.com/takeshq/takes/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "takes",
	Short: "A Slack bot for tracking timed work sessions",
	Long: `takes is a Slack bot that lets users start, pause, resume and stop timed
work sessions, collect completion uploads in a thread, and nudges them
when a session is about to run out of time.`,
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the configuration for any command that needs it.
func loadConfig() (*appconfig.Config, error) {
	return appconfig.Load(configPath)
}

// setupLogger builds the root logger from the logging config.
func setupLogger(cfg appconfig.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

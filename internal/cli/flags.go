package cli

import (
	"github.com/spf13/cobra"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
	Output     string
	NoProgress bool
	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

var globalFlags GlobalFlags

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&globalFlags.ConfigFile,
		"config",
		"",
		"config file (default is $HOME/.config/duopane/config.yaml)",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Verbose,
		"verbose",
		"v",
		false,
		"verbose output",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Quiet,
		"quiet",
		"q",
		false,
		"suppress non-error output",
	)
	cmd.PersistentFlags().StringVarP(
		&globalFlags.Output,
		"output",
		"o",
		"",
		"output format: human, json (default from config)",
	)
	cmd.PersistentFlags().BoolVar(
		&globalFlags.NoProgress,
		"no-progress",
		false,
		"print one line per item instead of a progress bar",
	)
	cmd.PersistentFlags().StringVar(&globalFlags.LogFile, "log-file", "", "write logs to file (enables logging)")
	cmd.PersistentFlags().StringVar(&globalFlags.LogFormat, "log-format", "", "log format: text, json")
	cmd.PersistentFlags().StringVar(&globalFlags.LogLevel, "log-level", "", "log level: debug, info, warn, error")
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() *GlobalFlags {
	return &globalFlags
}

// addConflictFlag registers --on-conflict on commands that may hit existing destinations
func addConflictFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "on-conflict", "",
		"answer for every conflict: ask, overwrite, skip (default from config)")
}

// addPasswordFlags registers --password and --ask-password
func addPasswordFlags(cmd *cobra.Command, password *string, ask *bool) {
	cmd.Flags().StringVarP(password, "password", "p", "", "archive password")
	cmd.Flags().BoolVar(ask, "ask-password", false, "prompt for the archive password")
}

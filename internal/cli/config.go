package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/sdejongh/duopane/pkg/config"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View or modify duopane configuration.`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "On Conflict: %s\n", cfg.Operations.OnConflict)
			fmt.Fprintf(w, "Use Trash: %t\n", cfg.Operations.UseTrash)
			fmt.Fprintf(w, "Archive Format: %s\n", cfg.Archive.DefaultFormat)
			fmt.Fprintf(w, "7z Binary: %s\n", orDefault(cfg.Archive.SevenZipBinary, "(search PATH)"))
			fmt.Fprintf(w, "Archive Exclude: %s\n", orDefault(strings.Join(cfg.Archive.Exclude, ", "), "(none)"))
			fmt.Fprintf(w, "Progress Queue: %d\n", cfg.Archive.QueueSize)
			fmt.Fprintf(w, "Output Format: %s\n", cfg.Output.Format)
			fmt.Fprintf(w, "Logging: %t\n", cfg.Logging.Enabled)
			fmt.Fprintf(w, "Log Format: %s\n", cfg.Logging.Format)
			fmt.Fprintf(w, "Log Level: %s\n", cfg.Logging.Level)
			fmt.Fprintf(w, "Log File: %s\n", orDefault(cfg.Logging.File, "(stderr)"))

			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := globalFlags.ConfigFile
			if path == "" {
				var err error
				path, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}

			if _, err := os.Stat(path); err == nil && !force {
				return errors.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
			}

			cfg := config.Default()
			if err := config.SaveToFile(cfg, path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	return cmd
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

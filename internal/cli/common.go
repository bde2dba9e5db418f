package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sdejongh/duopane/pkg/config"
	"github.com/sdejongh/duopane/pkg/engine"
	"github.com/sdejongh/duopane/pkg/logging"
	"github.com/sdejongh/duopane/pkg/output"
	"github.com/sdejongh/duopane/pkg/storage"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

// session bundles what every command needs: configuration, logger,
// formatter and an orchestrator rooted at the working directory
type session struct {
	cfg     *config.Config
	logger  logging.Logger
	out     output.Formatter
	stdout  io.Writer
	backend *storage.Local
	engine  *engine.Orchestrator
	cwd     string
}

// newSession loads configuration, applies global flags and wires the engine
func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, errors.Errorf("failed to load config: %w", err)
	}
	applyGlobalFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("invalid configuration: %w", err)
	}

	logger, err := createLogger(cfg)
	if err != nil {
		return nil, errors.Errorf("failed to create logger: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		logger.Close()
		return nil, errors.WithStack(err)
	}
	backend, err := storage.NewLocal(cwd)
	if err != nil {
		logger.Close()
		return nil, err
	}

	var stdout io.Writer = cmd.OutOrStdout()
	if cfg.Output.Quiet {
		stdout = io.Discard
	}

	s := &session{
		cfg:     cfg,
		logger:  logger,
		out:     output.New(cfg.Output.Format, cfg.Output.Progress),
		stdout:  stdout,
		backend: backend,
		cwd:     cwd,
	}
	s.engine = engine.New(backend, engine.StaticPanels{Active: cwd, Inactive: cwd}, logger, engine.Options{
		QueueSize:      cfg.Archive.QueueSize,
		SevenZipBinary: cfg.Archive.SevenZipBinary,
		Exclude:        cfg.Archive.Exclude,
	})
	return s, nil
}

// Close releases the logger and the backend
func (s *session) Close() {
	s.backend.Close()
	s.logger.Close()
}

// interruptible returns a context cancelled on Ctrl+C or SIGTERM
func interruptible(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.LoadFromFile(globalFlags.ConfigFile)
	}
	return config.LoadDefault()
}

// applyGlobalFlags overrides config values with command-line flags
func applyGlobalFlags(cfg *config.Config) {
	if globalFlags.Output != "" {
		cfg.Output.Format = globalFlags.Output
	}
	if globalFlags.NoProgress {
		cfg.Output.Progress = false
	}
	if globalFlags.Quiet {
		cfg.Output.Quiet = true
	}

	if globalFlags.LogFile != "" {
		cfg.Logging.Enabled = true
		cfg.Logging.File = globalFlags.LogFile
	}
	if globalFlags.LogFormat != "" {
		cfg.Logging.Format = globalFlags.LogFormat
	}
	if globalFlags.LogLevel != "" {
		cfg.Logging.Level = globalFlags.LogLevel
	}
}

// createLogger builds the logger described by the configuration.
// --verbose without a log file logs to stderr.
func createLogger(cfg *config.Config) (logging.Logger, error) {
	level := logging.ParseLevel(cfg.Logging.Level)

	if !cfg.Logging.Enabled || cfg.Logging.File == "" {
		if globalFlags.Verbose {
			return logging.NewConsoleLogger(os.Stderr, logging.DebugLevel), nil
		}
		return logging.NewNullLogger(), nil
	}

	format := logging.FormatText
	if cfg.Logging.Format == "json" {
		format = logging.FormatJSON
	}

	return logging.NewFileLogger(logging.FileLoggerConfig{
		Path:       cfg.Logging.File,
		Format:     format,
		Level:      level,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	})
}

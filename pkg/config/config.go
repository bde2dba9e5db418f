package config

import (
	"github.com/sdejongh/duopane/pkg/archive"
	"github.com/sdejongh/duopane/pkg/models"
)

// Config represents the application configuration
type Config struct {
	Operations OperationsConfig `yaml:"operations"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// OperationsConfig holds copy, move and delete settings
type OperationsConfig struct {
	OnConflict string `yaml:"on_conflict"` // "ask", "overwrite" or "skip"
	UseTrash   bool   `yaml:"use_trash"`   // Delete moves to the trash instead of removing
}

// ArchiveConfig holds archive settings
type ArchiveConfig struct {
	DefaultFormat  string   `yaml:"default_format"`
	SevenZipBinary string   `yaml:"sevenzip_binary"` // Empty = search 7z, 7za, 7zz in PATH
	Exclude        []string `yaml:"exclude"`
	QueueSize      int      `yaml:"queue_size"` // Progress events buffered before dropping
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human" or "json"
	Progress bool   `yaml:"progress"` // Show progress bars
	Quiet    bool   `yaml:"quiet"`    // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Format     string `yaml:"format"` // "json" or "text"
	Level      string `yaml:"level"`  // "debug", "info", "warn", "error"
	File       string `yaml:"file"`   // Log file path (empty = stderr)
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Operations: OperationsConfig{
			OnConflict: "ask",
			UseTrash:   false,
		},
		Archive: ArchiveConfig{
			DefaultFormat: string(models.FormatZip),
			Exclude:       []string{},
			QueueSize:     archive.DefaultQueueSize,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
			Quiet:    false,
		},
		Logging: LoggingConfig{
			Enabled:    false,
			Format:     "json",
			Level:      "info",
			File:       "",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// ConflictDecision maps operations.on_conflict to the sticky decision used
// for non-interactive runs. ok is false for "ask".
func (c *Config) ConflictDecision() (models.ConflictDecision, bool) {
	switch c.Operations.OnConflict {
	case "overwrite":
		return models.DecisionOverwriteAll, true
	case "skip":
		return models.DecisionSkipAll, true
	default:
		return "", false
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validConflicts := map[string]bool{"ask": true, "overwrite": true, "skip": true}
	if !validConflicts[c.Operations.OnConflict] {
		return &models.ValidationError{
			Field:   "operations.on_conflict",
			Message: "must be 'ask', 'overwrite', or 'skip'",
		}
	}

	if _, ok := archive.ParseFormat(c.Archive.DefaultFormat); !ok {
		return &models.ValidationError{
			Field:   "archive.default_format",
			Message: "unsupported archive format " + c.Archive.DefaultFormat,
		}
	}

	if err := archive.ValidateExcludePatterns(c.Archive.Exclude); err != nil {
		return &models.ValidationError{
			Field:   "archive.exclude",
			Message: err.Error(),
		}
	}

	if c.Archive.QueueSize < 1 {
		return &models.ValidationError{
			Field:   "archive.queue_size",
			Message: "must be at least 1",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 {
		return &models.ValidationError{
			Field:   "logging.max_size_mb",
			Message: "rotation limits cannot be negative",
		}
	}

	return nil
}

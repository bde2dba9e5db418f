package archive

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/sdejongh/duopane/pkg/models"
	"gitlab.com/tozd/go/errors"
)

// CreateOptions tunes archive creation
type CreateOptions struct {
	// SevenZipBinary overrides the 7z executable looked up on PATH
	SevenZipBinary string
}

// Create writes a new archive from req.Sources. The output must not exist:
// an existing archive is a precondition failure, never a conflict.
// Zip, tar, tar.gz and tar.zst write one entry at a time and isolate
// per-entry failures; 7z is compressed in one call from a staging copy.
func Create(ctx context.Context, req models.ArchiveCreateRequest, progress ProgressFunc, cancel *atomic.Bool) (models.ArchiveSummary, error) {
	return CreateWithOptions(ctx, req, CreateOptions{}, progress, cancel)
}

// CreateWithOptions is Create with explicit options
func CreateWithOptions(ctx context.Context, req models.ArchiveCreateRequest, opts CreateOptions, progress ProgressFunc, cancel *atomic.Bool) (models.ArchiveSummary, error) {
	format, ok := DetectFormat(req.OutputPath)
	if !ok {
		return models.ArchiveSummary{}, &models.PreconditionError{Op: "create", Path: req.OutputPath, Err: ErrUnsupportedFormat}
	}

	if len(req.Sources) == 0 {
		return models.ArchiveSummary{}, &models.PreconditionError{Op: "create", Path: req.OutputPath, Message: "no source selected"}
	}

	if _, err := os.Lstat(req.OutputPath); err == nil {
		return models.ArchiveSummary{}, &models.PreconditionError{Op: "create", Path: req.OutputPath, Message: "destination archive already exists"}
	}

	if req.Password != "" && !SupportsPassword(format) {
		return models.ArchiveSummary{}, &models.PreconditionError{
			Op:      "create",
			Path:    req.OutputPath,
			Message: "format " + string(format) + " does not support passwords",
		}
	}

	if err := ValidateExcludePatterns(req.Exclude); err != nil {
		return models.ArchiveSummary{}, &models.PreconditionError{Op: "create", Path: req.OutputPath, Err: err}
	}

	items, err := collectSourceItems(ctx, req.Sources, req.Exclude)
	if err != nil {
		return models.ArchiveSummary{}, errors.Errorf("failed to collect sources: %w", err)
	}

	t := newTracker(ctx, len(items), totalSize(items), progress, cancel)
	t.emit("", 0)

	switch {
	case format.IsZipFamily():
		err = createZip(req.OutputPath, items, req.Password, t)
	case format.IsTarFamily():
		err = createTar(ctx, req.OutputPath, format, items, t)
	default:
		err = createSevenZip(ctx, opts.SevenZipBinary, req.OutputPath, items, req.Password, t)
	}
	if err != nil {
		return t.summary, err
	}

	return t.summary, nil
}

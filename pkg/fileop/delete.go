package fileop

import (
	"context"

	"github.com/sdejongh/duopane/pkg/logging"
	"github.com/sdejongh/duopane/pkg/models"
	"github.com/sdejongh/duopane/pkg/storage"
)

// StartDelete prepares a permanent delete. Sources are stepped over as
// given, one per Advance, without flattening: a directory goes in a single
// recursive removal.
func StartDelete(ctx context.Context, backend storage.Backend, sources []string, logger logging.Logger) (*PendingOperation, error) {
	sources, _, err := absolutePaths(sources, "")
	if err != nil {
		return nil, err
	}

	if err := Validate(ctx, backend, models.OpDelete, sources, ""); err != nil {
		return nil, err
	}

	op := newOperation(backend, models.OpDelete, sources, "", logger)
	for _, source := range sources {
		info, err := backend.Lstat(ctx, source)
		if err != nil {
			return nil, err
		}

		entry := models.FlattenedEntry{Kind: models.KindFile, Source: source}
		switch {
		case info.IsSymlink:
			entry.Kind = models.KindSymlinkFile
		case info.IsDir:
			entry.Kind = models.KindDirectory
		}

		size, _, err := backend.CalculateTotalSize(ctx, []string{source})
		if err != nil {
			return nil, err
		}
		entry.Size = size
		op.Flattened = append(op.Flattened, entry)
	}

	op.Progress.ItemsTotal = len(op.Flattened)
	op.Progress.BytesTotal = models.TotalSize(op.Flattened)
	return op, nil
}

func (op *PendingOperation) deleteEntry(ctx context.Context, entry models.FlattenedEntry) error {
	if entry.Kind == models.KindDirectory {
		return op.backend.RemoveAll(ctx, entry.Source)
	}
	return op.backend.Remove(ctx, entry.Source)
}

// Trash moves sources to the trash in one call. It is not incremental:
// the result is final when it returns.
func Trash(ctx context.Context, backend storage.Backend, sources []string, logger logging.Logger) (models.OperationResult, error) {
	sources, _, err := absolutePaths(sources, "")
	if err != nil {
		return models.OperationResult{}, err
	}
	if err := Validate(ctx, backend, models.OpDelete, sources, ""); err != nil {
		return models.OperationResult{}, err
	}
	logger = logging.OrNull(logger)

	result := models.OperationResult{Kind: models.OpDelete, Total: len(sources)}
	moved, err := backend.Trash(ctx, sources)
	result.Succeeded = moved
	if err != nil {
		result.Failed = len(sources) - moved
		result.Errors = append(result.Errors, err.Error())
		logger.Error(ctx, "trash failed", err, logging.Fields{"sources": len(sources), "moved": moved})
		return result, err
	}

	logger.Info(ctx, "moved to trash", logging.Fields{"sources": len(sources)})
	return result, nil
}

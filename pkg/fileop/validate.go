package fileop

import (
	"context"

	"github.com/sdejongh/duopane/internal/platform"
	"github.com/sdejongh/duopane/pkg/models"
	"github.com/sdejongh/duopane/pkg/storage"
)

// Validate checks a request before anything is scanned or written.
// Copy and move need an existing destination directory and may not place a
// directory inside itself.
func Validate(ctx context.Context, backend storage.Backend, kind models.OperationKind, sources []string, destDir string) error {
	if len(sources) == 0 {
		return &models.PreconditionError{Op: string(kind), Message: "no source selected"}
	}

	for _, source := range sources {
		if err := platform.ValidatePath(source); err != nil {
			return &models.PreconditionError{Op: string(kind), Path: source, Err: err}
		}
		exists, err := backend.Exists(ctx, source)
		if err != nil {
			return &models.PreconditionError{Op: string(kind), Path: source, Err: err}
		}
		if !exists {
			return &models.PreconditionError{Op: string(kind), Path: source, Message: "source does not exist"}
		}
	}

	if kind == models.OpDelete {
		return nil
	}

	isDir, err := backend.IsDir(ctx, destDir)
	if err != nil || !isDir {
		return &models.PreconditionError{Op: string(kind), Path: destDir, Message: "destination directory does not exist"}
	}

	return checkRecursive(ctx, backend, kind, sources, destDir)
}

// checkRecursive rejects copying or moving a directory into itself or one
// of its descendants, comparing canonical paths so symlinked spellings of
// the same location are caught
func checkRecursive(ctx context.Context, backend storage.Backend, kind models.OperationKind, sources []string, destDir string) error {
	canonDest, err := platform.Canonicalize(destDir)
	if err != nil {
		return &models.PreconditionError{Op: string(kind), Path: destDir, Err: err}
	}

	for _, source := range sources {
		info, err := backend.Lstat(ctx, source)
		if err != nil || info.IsSymlink || !info.IsDir {
			continue
		}
		canonSource, err := platform.Canonicalize(source)
		if err != nil {
			return &models.PreconditionError{Op: string(kind), Path: source, Err: err}
		}
		if platform.IsWithin(canonSource, canonDest) {
			return &models.PreconditionError{
				Op:      string(kind),
				Path:    source,
				Message: "cannot " + string(kind) + " a directory into itself",
			}
		}
	}
	return nil
}

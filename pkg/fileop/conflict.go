package fileop

import (
	"context"

	"github.com/sdejongh/duopane/pkg/models"
	"github.com/sdejongh/duopane/pkg/storage"
)

// NeedsConflictResolution reports whether writing entry would collide with
// something already at its destination. An existing directory absorbs a
// directory entry; any other existing path, dangling links included,
// conflicts.
func NeedsConflictResolution(ctx context.Context, backend storage.Backend, entry models.FlattenedEntry) (bool, error) {
	exists, err := backend.Exists(ctx, entry.Dest)
	if err != nil || !exists {
		return false, err
	}

	if entry.Kind != models.KindDirectory {
		return true, nil
	}

	isDir, err := backend.IsDir(ctx, entry.Dest)
	if err != nil {
		return false, err
	}
	return !isDir, nil
}

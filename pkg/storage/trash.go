package storage

import (
	"context"
	"os"

	"github.com/Bios-Marcel/wastebasket/v2"
	"gitlab.com/tozd/go/errors"
)

// Trash moves every path to the platform trash can and returns how many
// were moved. It stops at the first failure; paths before it stay trashed.
func (l *Local) Trash(ctx context.Context, paths []string) (int, error) {
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return i, errors.WithStack(err)
		}
		abs := l.resolve(p)
		// The trash silently ignores missing paths
		if _, err := os.Lstat(abs); err != nil {
			return i, errors.Errorf("failed to trash %s: %w", p, err)
		}
		if err := wastebasket.Trash(abs); err != nil {
			return i, errors.Errorf("failed to trash %s: %w", p, err)
		}
	}
	return len(paths), nil
}

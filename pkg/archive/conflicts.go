package archive

import (
	"context"
	"os"
	"sort"

	"github.com/sdejongh/duopane/pkg/models"
)

// ListExtractConflicts returns the archive paths whose destination under
// destDir already exists and cannot absorb the entry. A directory entry over
// an existing directory is not a conflict. Unsafe names are left out since
// extraction will block them anyway. The result is sorted and unique.
func ListExtractConflicts(ctx context.Context, archivePath, destDir, password string) ([]string, error) {
	format, ok := DetectFormat(archivePath)
	if !ok {
		return nil, &models.PreconditionError{Op: "list", Path: archivePath, Err: ErrUnsupportedFormat}
	}

	entries, err := listRaw(ctx, archivePath, format, password)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, e := range entries {
		dest, ok := SanitizeExtractPath(destDir, e.name)
		if !ok || dest == destDir {
			continue
		}
		existing, err := os.Lstat(dest)
		if err != nil {
			continue
		}
		if e.isDir && (existing.IsDir() || isDir(dest)) {
			continue
		}
		seen[NormalizeEntryName(e.name)] = struct{}{}
	}

	conflicts := make([]string, 0, len(seen))
	for name := range seen {
		conflicts = append(conflicts, name)
	}
	sort.Strings(conflicts)
	return conflicts, nil
}

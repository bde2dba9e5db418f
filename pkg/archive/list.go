package archive

import (
	"context"

	"github.com/sdejongh/duopane/pkg/models"
)

// rawEntry is a listing entry with its name exactly as stored in the archive
type rawEntry struct {
	name  string
	size  int64
	isDir bool
}

// ListEntries enumerates the archive. The password only matters for zip
// and 7z. Failures are ErrPasswordRequired, ErrInvalidPassword or *ListError.
func ListEntries(ctx context.Context, path, password string) ([]models.ArchiveEntry, error) {
	format, ok := DetectFormat(path)
	if !ok {
		return nil, &models.PreconditionError{Op: "list", Path: path, Err: ErrUnsupportedFormat}
	}

	raw, err := listRaw(ctx, path, format, password)
	if err != nil {
		return nil, err
	}

	entries := make([]models.ArchiveEntry, 0, len(raw))
	for _, r := range raw {
		entries = append(entries, models.ArchiveEntry{
			Path:  NormalizeEntryName(r.name),
			Size:  r.size,
			IsDir: r.isDir,
		})
	}
	return entries, nil
}

func listRaw(ctx context.Context, path string, format models.ArchiveFormat, password string) ([]rawEntry, error) {
	switch {
	case format.IsZipFamily():
		return listZip(path, password)
	case format.IsTarFamily():
		return listTar(ctx, path, format)
	default:
		return listSevenZip(ctx, path, password)
	}
}

func rawTotals(entries []rawEntry) (int, int64) {
	var total int64
	for _, e := range entries {
		total += e.size
	}
	return len(entries), total
}

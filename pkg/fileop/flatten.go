package fileop

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sdejongh/duopane/pkg/models"
	"github.com/sdejongh/duopane/pkg/storage"
	"gitlab.com/tozd/go/errors"
)

// Flatten expands sources into the ordered list of entries a copy or move
// works through. Every source keeps its base name under destDir and
// directories come before their children. Symlinks are classified by target
// and never traversed. Any scan error aborts the whole call.
func Flatten(ctx context.Context, backend storage.Backend, sources []string, destDir string) ([]models.FlattenedEntry, error) {
	var entries []models.FlattenedEntry
	for _, source := range sources {
		dest := filepath.Join(destDir, filepath.Base(filepath.Clean(source)))
		if err := flattenPath(ctx, backend, filepath.Clean(source), dest, &entries); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func flattenPath(ctx context.Context, backend storage.Backend, source, dest string, out *[]models.FlattenedEntry) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	info, err := backend.Lstat(ctx, source)
	if err != nil {
		return errors.Errorf("failed to scan %s: %w", source, err)
	}

	if info.IsSymlink {
		*out = append(*out, classifySymlink(ctx, backend, source, dest))
		return nil
	}

	if !info.IsDir {
		*out = append(*out, models.FlattenedEntry{
			Kind:   models.KindFile,
			Source: source,
			Dest:   dest,
			Size:   info.Size,
		})
		return nil
	}

	*out = append(*out, models.FlattenedEntry{
		Kind:   models.KindDirectory,
		Source: source,
		Dest:   dest,
	})

	children, err := backend.ReadDir(ctx, source)
	if err != nil {
		return errors.Errorf("failed to scan %s: %w", source, err)
	}
	for _, child := range children {
		if err := flattenPath(ctx, backend, filepath.Join(source, child.Name), filepath.Join(dest, child.Name), out); err != nil {
			return err
		}
	}
	return nil
}

// classifySymlink sizes a link after its target when that is a regular file.
// A dangling link is an ordinary symlink file.
func classifySymlink(ctx context.Context, backend storage.Backend, source, dest string) models.FlattenedEntry {
	entry := models.FlattenedEntry{Kind: models.KindSymlinkFile, Source: source, Dest: dest}

	target, err := backend.Stat(ctx, source)
	if err != nil {
		return entry
	}
	if target.IsDir {
		entry.Kind = models.KindSymlinkDirectory
		return entry
	}
	entry.Size = target.Size
	return entry
}

// CollectMoveCleanupDirs returns the directory sources of a move, unique and
// deepest first, so that emptied parents are removed after their children
func CollectMoveCleanupDirs(entries []models.FlattenedEntry) []string {
	seen := make(map[string]struct{})
	var dirs []string
	for _, e := range entries {
		if e.Kind != models.KindDirectory {
			continue
		}
		if _, ok := seen[e.Source]; ok {
			continue
		}
		seen[e.Source] = struct{}{}
		dirs = append(dirs, e.Source)
	}

	sep := string(filepath.Separator)
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := strings.Count(dirs[i], sep), strings.Count(dirs[j], sep)
		if di != dj {
			return di > dj
		}
		return dirs[i] > dirs[j]
	})
	return dirs
}

package archive

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"gitlab.com/tozd/go/errors"
)

// errDirectorySymlink is recorded for symlinks to directories, which are never followed
var errDirectorySymlink = errors.Base("directory symlink is not supported")

// sourceItem is one file or directory to be written into a new archive
type sourceItem struct {
	sourcePath  string
	archivePath string
	isDir       bool
	dirSymlink  bool
	size        int64
	info        fs.FileInfo
}

// collectSourceItems walks the sources parent-first. Each source's own base
// name becomes its root segment inside the archive.
func collectSourceItems(ctx context.Context, sources []string, exclude []string) ([]sourceItem, error) {
	var items []sourceItem
	for _, source := range sources {
		name := filepath.Base(filepath.Clean(source))
		if name == "." || name == string(filepath.Separator) {
			return nil, errors.Errorf("invalid source name: %s", source)
		}
		if err := collectSourceItem(ctx, source, name, exclude, &items); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func collectSourceItem(ctx context.Context, sourcePath, archivePath string, exclude []string, out *[]sourceItem) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	if shouldExclude(archivePath, exclude) {
		return nil
	}

	info, err := os.Lstat(sourcePath)
	if err != nil {
		return errors.Errorf("failed to stat %s: %w", sourcePath, err)
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		item := sourceItem{sourcePath: sourcePath, archivePath: archivePath, info: info}
		if target, err := os.Stat(sourcePath); err == nil {
			if target.IsDir() {
				item.dirSymlink = true
			} else {
				item.info = target
				item.size = target.Size()
			}
		}
		*out = append(*out, item)
		return nil
	}

	if !info.IsDir() {
		*out = append(*out, sourceItem{
			sourcePath:  sourcePath,
			archivePath: archivePath,
			size:        info.Size(),
			info:        info,
		})
		return nil
	}

	*out = append(*out, sourceItem{
		sourcePath:  sourcePath,
		archivePath: archivePath,
		isDir:       true,
		info:        info,
	})

	children, err := os.ReadDir(sourcePath)
	if err != nil {
		return errors.Errorf("failed to read directory %s: %w", sourcePath, err)
	}
	for _, child := range children {
		childSource := filepath.Join(sourcePath, child.Name())
		childArchive := path.Join(archivePath, child.Name())
		if err := collectSourceItem(ctx, childSource, childArchive, exclude, out); err != nil {
			return err
		}
	}
	return nil
}

func totalSize(items []sourceItem) int64 {
	var total int64
	for _, item := range items {
		total += item.size
	}
	return total
}

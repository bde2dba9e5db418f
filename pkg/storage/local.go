package storage

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Local is a filesystem-based storage backend
type Local struct {
	rootPath string
}

// NewLocal creates a new local filesystem backend.
// Relative paths passed to the backend are resolved against rootPath.
func NewLocal(rootPath string) (*Local, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, errors.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, errors.Errorf("failed to access path: %w", err)
	}

	if !info.IsDir() {
		return nil, errors.Errorf("path is not a directory: %s", absPath)
	}

	return &Local{rootPath: absPath}, nil
}

// Root returns the directory relative paths are resolved against
func (l *Local) Root() string {
	return l.rootPath
}

func (l *Local) resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(l.rootPath, path)
}

// ReadDir lists the direct children of a directory
func (l *Local) ReadDir(ctx context.Context, path string) ([]FileInfo, error) {
	fullPath := l.resolve(path)

	dirEntries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, errors.Errorf("failed to read directory: %w", err)
	}

	entries := make([]FileInfo, 0, len(dirEntries))
	for _, d := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}

		entryPath := filepath.Join(fullPath, d.Name())
		linkInfo, err := os.Lstat(entryPath)
		if err != nil {
			// Entries that vanish between listing and stat are skipped
			continue
		}

		info := l.toFileInfo(entryPath, linkInfo)
		if info.IsSymlink {
			if target, err := os.Stat(entryPath); err == nil {
				info.IsDir = target.IsDir()
				info.ModTime = target.ModTime()
				info.Permissions = uint32(target.Mode().Perm())
				if target.Mode().IsRegular() {
					info.Size = target.Size()
				} else {
					info.Size = 0
				}
			}
		}
		entries = append(entries, *info)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	return entries, nil
}

// Read opens a file for reading
func (l *Local) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	file, err := os.Open(l.resolve(path))
	if err != nil {
		return nil, errors.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Write creates or overwrites a file
func (l *Local) Write(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error {
	fullPath := l.resolve(path)

	// Ensure parent directory exists
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return errors.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(file, reader)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return errors.Errorf("failed to write file: %w", err)
	}

	if size >= 0 && written != size {
		return errors.Errorf("incomplete write: expected %d bytes, wrote %d", size, written)
	}

	// Preserve metadata if provided
	if metadata != nil {
		if metadata.Permissions != 0 {
			if err := os.Chmod(fullPath, os.FileMode(metadata.Permissions)); err != nil {
				return errors.Errorf("failed to set permissions: %w", err)
			}
		}

		if !metadata.ModTime.IsZero() {
			if err := os.Chtimes(fullPath, metadata.ModTime, metadata.ModTime); err != nil {
				return errors.Errorf("failed to set modification time: %w", err)
			}
		}
	}

	return nil
}

// CopyFile copies src to dest, preserving permissions and modification time
func (l *Local) CopyFile(ctx context.Context, src, dest string) (int64, error) {
	srcPath, destPath := l.resolve(src), l.resolve(dest)
	if srcPath == destPath {
		return 0, errors.Errorf("source and destination are the same: %s", srcPath)
	}

	info, err := os.Stat(srcPath)
	if err != nil {
		return 0, errors.Errorf("failed to stat source: %w", err)
	}
	if info.IsDir() {
		return 0, errors.Errorf("source is a directory: %s", srcPath)
	}

	reader, err := l.Read(ctx, srcPath)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	meta := l.toFileInfo(srcPath, info)
	if err := l.Write(ctx, destPath, reader, info.Size(), meta); err != nil {
		return 0, err
	}

	return info.Size(), nil
}

// MoveFile renames src to dest. When rename fails (typically across
// filesystems) the file is copied and the source removed.
func (l *Local) MoveFile(ctx context.Context, src, dest string) (int64, error) {
	srcPath, destPath := l.resolve(src), l.resolve(dest)
	if srcPath == destPath {
		return 0, errors.Errorf("source and destination are the same: %s", srcPath)
	}

	info, err := os.Lstat(srcPath)
	if err != nil {
		return 0, errors.Errorf("failed to stat source: %w", err)
	}

	var size int64
	if target, err := os.Stat(srcPath); err == nil && target.Mode().IsRegular() {
		size = target.Size()
	}

	if err := os.Rename(srcPath, destPath); err == nil {
		return size, nil
	}

	if info.IsDir() {
		return 0, errors.Errorf("failed to move directory %s: rename not possible", srcPath)
	}

	written, err := l.CopyFile(ctx, srcPath, destPath)
	if err != nil {
		return 0, err
	}
	if err := os.Remove(srcPath); err != nil {
		return written, errors.Errorf("failed to remove source after copy: %w", err)
	}

	return written, nil
}

// Remove deletes a single file, symlink or empty directory
func (l *Local) Remove(ctx context.Context, path string) error {
	if err := os.Remove(l.resolve(path)); err != nil {
		return errors.Errorf("failed to delete: %w", err)
	}
	return nil
}

// RemoveAll deletes a path recursively
func (l *Local) RemoveAll(ctx context.Context, path string) error {
	if err := os.RemoveAll(l.resolve(path)); err != nil {
		return errors.Errorf("failed to delete: %w", err)
	}
	return nil
}

// Exists checks if a path exists. A dangling symlink exists.
func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Lstat(l.resolve(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, errors.Errorf("failed to check existence: %w", err)
}

// IsDir reports whether path resolves to a directory
func (l *Local) IsDir(ctx context.Context, path string) (bool, error) {
	info, err := os.Stat(l.resolve(path))
	if err == nil {
		return info.IsDir(), nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, errors.Errorf("failed to check directory: %w", err)
}

// Stat returns file metadata
func (l *Local) Stat(ctx context.Context, path string) (*FileInfo, error) {
	fullPath := l.resolve(path)

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, errors.Errorf("failed to stat file: %w", err)
	}

	return l.toFileInfo(fullPath, info), nil
}

// Lstat returns file metadata without following a final symlink
func (l *Local) Lstat(ctx context.Context, path string) (*FileInfo, error) {
	fullPath := l.resolve(path)

	info, err := os.Lstat(fullPath)
	if err != nil {
		return nil, errors.Errorf("failed to stat file: %w", err)
	}

	return l.toFileInfo(fullPath, info), nil
}

// MkdirAll creates a directory and all necessary parents
func (l *Local) MkdirAll(ctx context.Context, path string) error {
	if err := os.MkdirAll(l.resolve(path), 0755); err != nil {
		return errors.Errorf("failed to create directory: %w", err)
	}

	return nil
}

// CalculateTotalSize walks the given paths and sums regular file sizes.
// Symlinks are not followed; a symlink counts as one file sized after its
// target when the target is a regular file.
func (l *Local) CalculateTotalSize(ctx context.Context, paths []string) (int64, int, error) {
	var totalBytes int64
	var totalFiles int

	for _, p := range paths {
		err := filepath.WalkDir(l.resolve(p), func(walkPath string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			switch {
			case d.Type()&fs.ModeSymlink != 0:
				totalBytes += symlinkTargetSize(walkPath)
				totalFiles++
			case d.Type().IsRegular():
				info, err := d.Info()
				if err != nil {
					return err
				}
				totalBytes += info.Size()
				totalFiles++
			}
			return nil
		})
		if err != nil {
			return 0, 0, errors.Errorf("failed to calculate size: %w", err)
		}
	}

	return totalBytes, totalFiles, nil
}

// Close releases resources (no-op for local filesystem)
func (l *Local) Close() error {
	return nil
}

func (l *Local) toFileInfo(fullPath string, info fs.FileInfo) *FileInfo {
	relPath, err := filepath.Rel(l.rootPath, fullPath)
	if err != nil {
		relPath = fullPath
	}

	isSymlink := info.Mode()&fs.ModeSymlink != 0
	size := info.Size()
	if info.IsDir() {
		size = 0
	}

	return &FileInfo{
		Name:         info.Name(),
		Path:         fullPath,
		Size:         size,
		ModTime:      info.ModTime(),
		IsDir:        info.IsDir(),
		IsSymlink:    isSymlink,
		Hidden:       strings.HasPrefix(info.Name(), "."),
		Permissions:  uint32(info.Mode().Perm()),
		RelativePath: relPath,
	}
}

// symlinkTargetSize returns the target size for a link to a regular file, 0 otherwise
func symlinkTargetSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return 0
	}
	return info.Size()
}

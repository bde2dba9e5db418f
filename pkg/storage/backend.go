package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo represents metadata about a file
type FileInfo struct {
	Name         string
	Path         string
	Size         int64
	ModTime      time.Time
	IsDir        bool
	IsSymlink    bool
	Hidden       bool
	Permissions  uint32
	RelativePath string
}

// Backend defines the filesystem primitives the operation engine consumes.
// Relative paths are resolved against the backend root, absolute paths are
// used as given.
type Backend interface {
	// ReadDir lists the direct children of a directory, sorted by name.
	// Symlinks report the type, size and mtime of their target when it resolves.
	ReadDir(ctx context.Context, path string) ([]FileInfo, error)

	// Read opens a file for reading
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write creates or overwrites a file with the given content
	// If metadata is provided, attempts to preserve timestamps and permissions
	Write(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error

	// CopyFile copies a single file, following a symlink source, and returns
	// the number of bytes written
	CopyFile(ctx context.Context, src, dest string) (int64, error)

	// MoveFile renames a file, falling back to copy and remove across devices
	MoveFile(ctx context.Context, src, dest string) (int64, error)

	// Remove deletes a single file, symlink or empty directory
	Remove(ctx context.Context, path string) error

	// RemoveAll deletes a path and everything below it
	RemoveAll(ctx context.Context, path string) error

	// Exists checks if a path exists without following a final symlink
	Exists(ctx context.Context, path string) (bool, error)

	// IsDir reports whether path resolves to a directory
	IsDir(ctx context.Context, path string) (bool, error)

	// Stat returns file metadata, following symlinks
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// Lstat returns file metadata without following a final symlink
	Lstat(ctx context.Context, path string) (*FileInfo, error)

	// MkdirAll creates a directory and all necessary parents
	MkdirAll(ctx context.Context, path string) error

	// CalculateTotalSize returns the byte and file totals below the given paths
	CalculateTotalSize(ctx context.Context, paths []string) (int64, int, error)

	// Trash moves paths to the user's trash can and returns how many moved
	Trash(ctx context.Context, paths []string) (int, error)

	// Close releases any resources held by the backend
	Close() error
}

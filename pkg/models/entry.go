package models

import (
	"path/filepath"
)

// EntryKind classifies a concrete filesystem unit produced by flattening
type EntryKind string

const (
	// KindFile is a regular file
	KindFile EntryKind = "file"
	// KindDirectory is a real directory (never a link)
	KindDirectory EntryKind = "directory"
	// KindSymlinkFile is a symlink whose target is not a directory.
	// It is copied as an atomic unit and never dereferenced into a traversal.
	KindSymlinkFile EntryKind = "symlink-file"
	// KindSymlinkDirectory is a symlink pointing at a directory.
	// It is recognized but never followed; copy and move refuse it.
	KindSymlinkDirectory EntryKind = "symlink-directory"
)

// IsDir reports whether the kind denotes a real directory
func (k EntryKind) IsDir() bool {
	return k == KindDirectory
}

// FlattenedEntry is one unit of work for a copy or move operation
type FlattenedEntry struct {
	// Kind is the classified type of the source
	Kind EntryKind

	// Source is the absolute source path
	Source string

	// Dest is the computed destination path under the destination directory
	Dest string

	// Size in bytes (0 for directories and directory symlinks)
	Size int64
}

// Name returns the base name of the source, used for progress display
func (e FlattenedEntry) Name() string {
	return filepath.Base(e.Source)
}

// TotalSize sums the sizes of the given entries
func TotalSize(entries []FlattenedEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Size
	}
	return total
}

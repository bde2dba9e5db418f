package models

import (
	"fmt"
)

// ArchiveFormat identifies an archive container, derived from the file name
type ArchiveFormat string

const (
	FormatZip    ArchiveFormat = "zip"
	FormatTar    ArchiveFormat = "tar"
	FormatTarGz  ArchiveFormat = "tar.gz"
	FormatTarZst ArchiveFormat = "tar.zst"
	FormatSevenZ ArchiveFormat = "7z"
	FormatJar    ArchiveFormat = "jar"
	FormatWar    ArchiveFormat = "war"
)

// IsZipFamily reports whether the format is read and written as zip
func (f ArchiveFormat) IsZipFamily() bool {
	return f == FormatZip || f == FormatJar || f == FormatWar
}

// IsTarFamily reports whether the format is a (possibly compressed) tar stream
func (f ArchiveFormat) IsTarFamily() bool {
	return f == FormatTar || f == FormatTarGz || f == FormatTarZst
}

// ArchiveEntry is one entry of an archive listing.
// Path is archive-relative, uses forward slashes and has no leading or
// trailing slash.
type ArchiveEntry struct {
	Path  string
	Size  int64
	IsDir bool
}

// ArchiveCreateRequest describes an archive to create
type ArchiveCreateRequest struct {
	Sources    []string
	OutputPath string
	Password   string
	// Exclude holds doublestar glob patterns matched against archive paths
	Exclude []string
}

// ArchiveExtractRequest describes an extraction. The last four fields are
// the conflict decisions resolved before extraction starts.
type ArchiveExtractRequest struct {
	ArchivePath         string
	DestDir             string
	Password            string
	OverwriteExisting   bool
	OverwriteEntries    []string
	SkipExistingEntries []string
	SkipAllExisting     bool
}

// ArchiveSummary is returned once, when an archive operation ends
type ArchiveSummary struct {
	TotalFiles     int
	TotalBytes     int64
	ItemsProcessed int
	ItemsFailed    int
	Errors         []string
	Cancelled      bool
}

// Succeeded returns the number of items processed without failure
func (s ArchiveSummary) Succeeded() int {
	if s.ItemsFailed > s.ItemsProcessed {
		return 0
	}
	return s.ItemsProcessed - s.ItemsFailed
}

// RecordFailure counts a failed item and keeps its message
func (s *ArchiveSummary) RecordFailure(name string, err error) {
	s.ItemsProcessed++
	s.ItemsFailed++
	s.Errors = append(s.Errors, fmt.Sprintf("%s: %v", name, err))
}

// Message renders the user-facing completion text for the given operation
// name ("Archive create", "Archive extract")
func (s ArchiveSummary) Message(operation string) string {
	if s.Cancelled {
		return fmt.Sprintf("%s cancelled (%d/%d)", operation, s.ItemsProcessed, s.TotalFiles)
	}
	if len(s.Errors) == 0 {
		return fmt.Sprintf("%s completed: %s", operation, Pluralize(s.ItemsProcessed, "item", "items"))
	}
	return fmt.Sprintf("%s completed with errors.\nSucceeded: %d\nFailed: %d\n\n%s",
		operation, s.Succeeded(), s.ItemsFailed, ErrorPreview(s.Errors))
}

// ArchiveProgressEvent is a point-in-time snapshot pushed by the archive worker
type ArchiveProgressEvent struct {
	CurrentFile    string
	FilesCompleted int
	TotalFiles     int
	BytesProcessed int64
	TotalBytes     int64
	ItemsProcessed int
	ItemsFailed    int
}

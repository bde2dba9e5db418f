package output

import (
	"io"
	"time"

	"github.com/sdejongh/duopane/pkg/models"
)

// ProgressUpdate is a progress notification from a file operation or an
// archive worker
type ProgressUpdate struct {
	CurrentItem string
	ItemsDone   int
	ItemsTotal  int
	ItemsFailed int
	BytesDone   int64
	BytesTotal  int64
}

// FromOperation converts file operation progress
func FromOperation(p models.OperationProgress) ProgressUpdate {
	return ProgressUpdate{
		CurrentItem: p.CurrentItem,
		ItemsDone:   p.ItemsDone,
		ItemsTotal:  p.ItemsTotal,
		ItemsFailed: p.ItemsFailed,
		BytesDone:   p.BytesDone,
		BytesTotal:  p.BytesTotal,
	}
}

// FromArchive converts an archive worker event
func FromArchive(e models.ArchiveProgressEvent) ProgressUpdate {
	return ProgressUpdate{
		CurrentItem: e.CurrentFile,
		ItemsDone:   e.FilesCompleted,
		ItemsTotal:  e.TotalFiles,
		ItemsFailed: e.ItemsFailed,
		BytesDone:   e.BytesProcessed,
		BytesTotal:  e.TotalBytes,
	}
}

// Report is the final outcome of one operation
type Report struct {
	Operation string
	Message   string
	Succeeded int
	Failed    int
	Total     int
	Errors    []string
	Cancelled bool
	Duration  time.Duration
}

// ReportFromOperation builds a report from a file operation result
func ReportFromOperation(r models.OperationResult, d time.Duration) Report {
	return Report{
		Operation: r.Kind.Name(),
		Message:   r.Message(),
		Succeeded: r.Succeeded,
		Failed:    r.Failed,
		Total:     r.Total,
		Errors:    r.Errors,
		Cancelled: r.Cancelled,
		Duration:  d,
	}
}

// ReportFromArchive builds a report from an archive summary. operation is
// the user-facing name, e.g. "Archive create".
func ReportFromArchive(operation string, s models.ArchiveSummary, d time.Duration) Report {
	return Report{
		Operation: operation,
		Message:   s.Message(operation),
		Succeeded: s.Succeeded(),
		Failed:    s.ItemsFailed,
		Total:     s.TotalFiles,
		Errors:    s.Errors,
		Cancelled: s.Cancelled,
		Duration:  d,
	}
}

// Formatter defines the interface for output formatting
// Implementations include human-readable, progress bar and JSON formatters
type Formatter interface {
	// Start initializes the formatter for a new operation
	Start(writer io.Writer, operation string, totalItems int, totalBytes int64) error

	// Progress reports progress during the operation
	Progress(update ProgressUpdate) error

	// Complete finalizes output and displays summary
	Complete(report Report) error

	// Entries prints an archive listing
	Entries(writer io.Writer, entries []models.ArchiveEntry, truncated bool) error

	// Conflicts prints the paths that already exist at the destination
	Conflicts(writer io.Writer, paths []string) error

	// Error reports an error
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// New returns the formatter for the given output format. Progress bars are
// used for human output unless disabled.
func New(format string, progress bool) Formatter {
	switch {
	case format == "json":
		return NewJSONFormatter()
	case progress:
		return NewProgressFormatter()
	default:
		return NewHumanFormatter()
	}
}

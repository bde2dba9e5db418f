package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/sdejongh/duopane/pkg/models"
)

// JSONFormatter formats output as JSON for automation and scripting
type JSONFormatter struct {
	writer    io.Writer
	operation string
	startTime time.Time
}

// JSONReportData represents the final report data
type JSONReportData struct {
	Operation  string   `json:"operation"`
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	Succeeded  int      `json:"succeeded"`
	Failed     int      `json:"failed"`
	Total      int      `json:"total"`
	Duration   string   `json:"duration"`
	DurationMs int64    `json:"duration_ms"`
	Errors     []string `json:"errors,omitempty"`
}

// JSONEntryData represents one archive entry
type JSONEntryData struct {
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	IsDir bool   `json:"is_dir"`
}

// JSONListingData represents an archive listing
type JSONListingData struct {
	Entries   []JSONEntryData `json:"entries"`
	Truncated bool            `json:"truncated"`
}

// JSONConflictData represents the result of a conflict check
type JSONConflictData struct {
	Conflicts []string `json:"conflicts"`
}

// JSONErrorData represents a top-level error
type JSONErrorData struct {
	Error string `json:"error"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer, operation string, totalItems int, totalBytes int64) error {
	f.writer = writer
	f.operation = operation
	f.startTime = time.Now()
	return nil
}

// Progress reports progress during the operation
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	// Progress is not streamed to keep the output a single parseable document
	return nil
}

// Complete outputs the report as one JSON document
func (f *JSONFormatter) Complete(report Report) error {
	status := "completed"
	switch {
	case report.Cancelled:
		status = "cancelled"
	case report.Failed > 0:
		status = "completed_with_errors"
	}

	operation := report.Operation
	if operation == "" {
		operation = f.operation
	}

	return f.encode(JSONReportData{
		Operation:  operation,
		Status:     status,
		Message:    report.Message,
		Succeeded:  report.Succeeded,
		Failed:     report.Failed,
		Total:      report.Total,
		Duration:   report.Duration.Round(time.Millisecond).String(),
		DurationMs: report.Duration.Milliseconds(),
		Errors:     report.Errors,
	})
}

// Entries outputs an archive listing
func (f *JSONFormatter) Entries(writer io.Writer, entries []models.ArchiveEntry, truncated bool) error {
	f.writer = writer
	data := JSONListingData{Entries: make([]JSONEntryData, 0, len(entries)), Truncated: truncated}
	for _, e := range entries {
		data.Entries = append(data.Entries, JSONEntryData{Path: e.Path, Size: e.Size, IsDir: e.IsDir})
	}
	return f.encode(data)
}

// Conflicts outputs the conflicting paths
func (f *JSONFormatter) Conflicts(writer io.Writer, paths []string) error {
	f.writer = writer
	if paths == nil {
		paths = []string{}
	}
	return f.encode(JSONConflictData{Conflicts: paths})
}

// Error outputs a top-level error document
func (f *JSONFormatter) Error(err error) error {
	return f.encode(JSONErrorData{Error: err.Error()})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

func (f *JSONFormatter) encode(v any) error {
	if f.writer == nil {
		f.writer = os.Stdout
	}
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

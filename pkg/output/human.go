package output

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/sdejongh/duopane/pkg/models"
)

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed)
	warnColor = color.New(color.FgYellow)
	dirColor  = color.New(color.FgBlue, color.Bold)
)

func okMark() string   { return okColor.Sprint("✓") }
func failMark() string { return failColor.Sprint("✗") }
func warnMark() string { return warnColor.Sprint("!") }

// HumanFormatter formats output in human-readable format
type HumanFormatter struct {
	writer     io.Writer
	operation  string
	totalItems int
	lastDone   int
	lastFailed int
	startTime  time.Time
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, operation string, totalItems int, totalBytes int64) error {
	f.writer = writer
	f.operation = operation
	f.totalItems = totalItems
	f.lastDone = 0
	f.lastFailed = 0
	f.startTime = time.Now()

	if writer != nil {
		fmt.Fprintf(writer, "%s: %s, %s total\n",
			operation, models.Pluralize(totalItems, "item", "items"), formatBytes(totalBytes))
	}

	return nil
}

// Progress prints one line per item stepped past
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	if f.writer == nil || update.ItemsDone == f.lastDone || update.CurrentItem == "" {
		return nil
	}

	mark := okMark()
	if update.ItemsFailed > f.lastFailed {
		mark = failMark()
	}
	f.lastDone = update.ItemsDone
	f.lastFailed = update.ItemsFailed

	fmt.Fprintf(f.writer, "[%d/%d] %s %s\n", update.ItemsDone, update.ItemsTotal, mark, update.CurrentItem)
	return nil
}

// Complete finalizes output and displays summary
func (f *HumanFormatter) Complete(report Report) error {
	if f.writer == nil {
		f.writer = io.Discard
	}

	mark := okMark()
	switch {
	case report.Cancelled:
		mark = warnMark()
	case report.Failed > 0:
		mark = failMark()
	}

	fmt.Fprintf(f.writer, "\n%s %s\n", mark, report.Message)
	if report.Duration > 0 {
		fmt.Fprintf(f.writer, "  Duration: %s\n", formatDuration(report.Duration))
	}
	return nil
}

// Entries prints an archive listing, directories highlighted
func (f *HumanFormatter) Entries(writer io.Writer, entries []models.ArchiveEntry, truncated bool) error {
	f.writer = writer
	if f.writer == nil {
		return nil
	}

	var total int64
	for _, e := range entries {
		if e.IsDir {
			fmt.Fprintf(f.writer, "%10s  %s\n", "-", dirColor.Sprint(e.Path+"/"))
			continue
		}
		total += e.Size
		fmt.Fprintf(f.writer, "%10s  %s\n", formatBytes(e.Size), e.Path)
	}
	fmt.Fprintf(f.writer, "\n%s, %s\n", models.Pluralize(len(entries), "entry", "entries"), formatBytes(total))
	if truncated {
		fmt.Fprintf(f.writer, "%s listing truncated\n", warnMark())
	}
	return nil
}

// Conflicts prints the paths that already exist at the destination
func (f *HumanFormatter) Conflicts(writer io.Writer, paths []string) error {
	f.writer = writer
	if f.writer == nil {
		return nil
	}

	if len(paths) == 0 {
		fmt.Fprintf(f.writer, "%s no conflicts\n", okMark())
		return nil
	}
	for _, p := range paths {
		fmt.Fprintf(f.writer, "%s %s\n", warnMark(), p)
	}
	fmt.Fprintf(f.writer, "\n%s\n", models.Pluralize(len(paths), "conflict", "conflicts"))
	return nil
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	if f.writer != nil {
		fmt.Fprintf(f.writer, "%s Error: %v\n", failMark(), err)
	}
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatDuration formats duration in human-readable format
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

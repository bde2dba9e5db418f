package output

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/sdejongh/duopane/pkg/models"
	"golang.org/x/term"
)

const progressTemplate = `{{string . "op"}} {{string . "items"}} {{bar . "[" "=" ">" " " "]"}} {{percent . "%.0f%%"}} {{counters . }} {{string . "item"}}`

// getUpdateInterval returns the progress refresh interval based on OS
// Windows terminals have higher latency with ANSI sequences, so we use a longer interval
func getUpdateInterval() time.Duration {
	if runtime.GOOS == "windows" {
		return 300 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// ProgressFormatter draws a single byte-based progress bar and falls back
// to the human formatter for listings and the final summary
type ProgressFormatter struct {
	mu        sync.Mutex
	writer    io.Writer
	bar       *pb.ProgressBar
	termWidth int
	operation string
	human     *HumanFormatter
}

// NewProgressFormatter creates a new progress bar formatter
func NewProgressFormatter() *ProgressFormatter {
	return &ProgressFormatter{human: NewHumanFormatter()}
}

// Start initializes the formatter and starts the bar
func (f *ProgressFormatter) Start(writer io.Writer, operation string, totalItems int, totalBytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.operation = operation
	f.human.writer = writer
	f.human.startTime = time.Now()

	// Default to 120 if we can't detect (pipe, redirect, etc.)
	f.termWidth = 120
	if file, ok := writer.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			f.termWidth = width
		}
	}

	if f.bar != nil {
		f.bar.Finish()
	}
	bar := pb.New64(totalBytes)
	bar.SetWriter(writer)
	bar.SetTemplateString(progressTemplate)
	bar.SetMaxWidth(f.termWidth)
	bar.SetRefreshRate(getUpdateInterval())
	bar.Set(pb.Bytes, true)
	bar.Set("op", operation)
	bar.Set("items", fmt.Sprintf("0/%d", totalItems))
	bar.Set("item", "")
	f.bar = bar.Start()

	return nil
}

// Progress updates the bar
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar == nil {
		return nil
	}
	if update.BytesTotal != f.bar.Total() {
		f.bar.SetTotal(update.BytesTotal)
	}
	f.bar.SetCurrent(update.BytesDone)
	f.bar.Set("items", fmt.Sprintf("%d/%d", update.ItemsDone, update.ItemsTotal))
	f.bar.Set("item", f.truncate(update.CurrentItem))
	return nil
}

// truncate keeps the current item name from wrapping the bar line
func (f *ProgressFormatter) truncate(name string) string {
	limit := f.termWidth / 3
	if limit < 10 || len(name) <= limit {
		return name
	}
	return "..." + name[len(name)-limit+3:]
}

// Complete stops the bar and prints the summary
func (f *ProgressFormatter) Complete(report Report) error {
	f.stop()
	return f.human.Complete(report)
}

// Entries prints an archive listing
func (f *ProgressFormatter) Entries(writer io.Writer, entries []models.ArchiveEntry, truncated bool) error {
	f.stop()
	return f.human.Entries(writer, entries, truncated)
}

// Conflicts prints the conflicting paths
func (f *ProgressFormatter) Conflicts(writer io.Writer, paths []string) error {
	f.stop()
	return f.human.Conflicts(writer, paths)
}

// Error stops the bar and reports the error
func (f *ProgressFormatter) Error(err error) error {
	f.stop()
	return f.human.Error(err)
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}

func (f *ProgressFormatter) stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
	}
}

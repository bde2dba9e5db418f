package archive

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/sdejongh/duopane/pkg/models"
	"gitlab.com/tozd/go/errors"
)

// ProgressFunc receives progress snapshots in issuance order
type ProgressFunc func(models.ArchiveProgressEvent)

// Progress reporting thresholds for bytes copied inside a single entry
const (
	progressReportInterval = 50 * time.Millisecond
	progressReportBytes    = 256 * 1024
)

// tracker owns the summary and counters of one create or extract run
type tracker struct {
	ctx            context.Context
	summary        models.ArchiveSummary
	filesCompleted int
	bytesProcessed int64
	progress       ProgressFunc
	cancel         *atomic.Bool
}

func newTracker(ctx context.Context, totalFiles int, totalBytes int64, progress ProgressFunc, cancel *atomic.Bool) *tracker {
	return &tracker{
		ctx:      ctx,
		summary:  models.ArchiveSummary{TotalFiles: totalFiles, TotalBytes: totalBytes},
		progress: progress,
		cancel:   cancel,
	}
}

// cancelled polls the cancel flag and the context, and marks the summary
func (t *tracker) cancelled() bool {
	if (t.cancel != nil && t.cancel.Load()) || t.ctx.Err() != nil {
		t.summary.Cancelled = true
		return true
	}
	return false
}

func (t *tracker) emit(current string, bytesProcessed int64) {
	if t.progress == nil {
		return
	}
	t.progress(models.ArchiveProgressEvent{
		CurrentFile:    current,
		FilesCompleted: t.filesCompleted,
		TotalFiles:     t.summary.TotalFiles,
		BytesProcessed: bytesProcessed,
		TotalBytes:     t.summary.TotalBytes,
		ItemsProcessed: t.summary.ItemsProcessed,
		ItemsFailed:    t.summary.ItemsFailed,
	})
}

// succeed records a completed entry
func (t *tracker) succeed(name string, bytes int64) {
	t.filesCompleted++
	t.bytesProcessed += bytes
	t.summary.ItemsProcessed++
	t.emit(name, t.bytesProcessed)
}

// skip records an entry left alone on purpose
func (t *tracker) skip(name string) {
	t.summary.ItemsProcessed++
	t.emit(name, t.bytesProcessed)
}

// fail records a per-entry failure as "name: err"
func (t *tracker) fail(name string, err error) {
	t.summary.RecordFailure(name, err)
}

func (t *tracker) failf(name, format string, args ...any) {
	t.summary.RecordFailure(name, errors.Errorf(format, args...))
}

// reader wraps an entry stream so large entries report bytes while copying
func (t *tracker) reader(r io.Reader, name string) io.Reader {
	if t.progress == nil {
		return r
	}
	base := t.bytesProcessed
	return &progressReader{
		reader:         r,
		lastReportTime: time.Now(),
		onProgress: func(read int64) {
			t.emit(name, base+read)
		},
	}
}

// progressReader wraps an io.Reader to report progress
type progressReader struct {
	reader         io.Reader
	read           int64
	lastReported   int64
	lastReportTime time.Time
	onProgress     func(bytesRead int64)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.read += int64(n)

		// Report only every progressReportBytes or progressReportInterval;
		// the completion event comes from the tracker itself
		if pr.read-pr.lastReported >= progressReportBytes ||
			time.Since(pr.lastReportTime) >= progressReportInterval {
			pr.onProgress(pr.read)
			pr.lastReported = pr.read
			pr.lastReportTime = time.Now()
		}
	}
	return n, err
}

package archive

import (
	"context"
	"sync/atomic"

	"github.com/sdejongh/duopane/pkg/models"
	"gitlab.com/tozd/go/errors"
)

// DefaultQueueSize is the progress channel capacity used when none is configured
const DefaultQueueSize = 256

// WorkerOptions configures a background archive job
type WorkerOptions struct {
	// QueueSize bounds the progress channel. When the consumer falls behind,
	// new events are dropped rather than blocking the worker.
	QueueSize int

	// SevenZipBinary overrides the 7z executable for creation
	SevenZipBinary string
}

// Worker runs one archive create or extract call on its own goroutine.
// The caller reads Progress, may call Cancel at any time, and collects the
// summary with Wait once Done is closed.
type Worker struct {
	progress chan models.ArchiveProgressEvent
	done     chan struct{}
	cancel   atomic.Bool
	dropped  atomic.Int64

	summary models.ArchiveSummary
	err     error
}

// StartCreate runs Create in the background
func StartCreate(ctx context.Context, req models.ArchiveCreateRequest, opts WorkerOptions) *Worker {
	createOpts := CreateOptions{SevenZipBinary: opts.SevenZipBinary}
	return start(opts.QueueSize, func(progress ProgressFunc, cancel *atomic.Bool) (models.ArchiveSummary, error) {
		return CreateWithOptions(ctx, req, createOpts, progress, cancel)
	})
}

// StartExtract runs Extract in the background
func StartExtract(ctx context.Context, req models.ArchiveExtractRequest, opts WorkerOptions) *Worker {
	return start(opts.QueueSize, func(progress ProgressFunc, cancel *atomic.Bool) (models.ArchiveSummary, error) {
		return Extract(ctx, req, progress, cancel)
	})
}

type job func(progress ProgressFunc, cancel *atomic.Bool) (models.ArchiveSummary, error)

func start(queueSize int, run job) *Worker {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	w := &Worker{
		progress: make(chan models.ArchiveProgressEvent, queueSize),
		done:     make(chan struct{}),
	}
	go w.run(run)
	return w
}

func (w *Worker) run(run job) {
	defer func() {
		if r := recover(); r != nil {
			w.summary = models.ArchiveSummary{}
			w.err = errors.Errorf("%w: %v", ErrWorkerPanicked, r)
		}
		close(w.progress)
		close(w.done)
	}()

	w.summary, w.err = run(w.send, &w.cancel)
}

// send never blocks: a full queue drops the event
func (w *Worker) send(event models.ArchiveProgressEvent) {
	select {
	case w.progress <- event:
	default:
		w.dropped.Add(1)
	}
}

// Progress returns the event channel. It is closed when the worker finishes.
func (w *Worker) Progress() <-chan models.ArchiveProgressEvent {
	return w.progress
}

// Cancel asks the worker to stop before the next entry
func (w *Worker) Cancel() {
	w.cancel.Store(true)
}

// Cancelled reports whether Cancel was called
func (w *Worker) Cancelled() bool {
	return w.cancel.Load()
}

// Done is closed once the summary is available
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Finished reports whether the worker has completed, without blocking
func (w *Worker) Finished() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// Dropped returns how many progress events were discarded on a full queue
func (w *Worker) Dropped() int64 {
	return w.dropped.Load()
}

// Wait blocks until the worker completes and returns its result
func (w *Worker) Wait() (models.ArchiveSummary, error) {
	<-w.done
	return w.summary, w.err
}

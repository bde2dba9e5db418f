package engine

import (
	"context"

	"github.com/sdejongh/duopane/pkg/archive"
	"github.com/sdejongh/duopane/pkg/fileop"
	"github.com/sdejongh/duopane/pkg/logging"
	"github.com/sdejongh/duopane/pkg/models"
	"github.com/sdejongh/duopane/pkg/storage"
	"gitlab.com/tozd/go/errors"
)

// ErrBusy is returned when an operation of the same family is still running
var ErrBusy = errors.Base("an operation is already in progress")

// PanelPaths gives the orchestrator the directories shown by the host, used
// to pick default destinations
type PanelPaths interface {
	ActivePath() string
	InactivePath() string
}

// StaticPanels is a PanelPaths with fixed directories
type StaticPanels struct {
	Active   string
	Inactive string
}

func (p StaticPanels) ActivePath() string   { return p.Active }
func (p StaticPanels) InactivePath() string { return p.Inactive }

// Options configures an Orchestrator
type Options struct {
	// QueueSize bounds the archive progress channel
	QueueSize int
	// SevenZipBinary overrides the 7z executable used for creation
	SevenZipBinary string
	// Exclude holds default exclude patterns added to every archive creation
	Exclude []string
}

// Orchestrator owns at most one pending file operation and one archive
// worker. It builds requests from the host's intent and hands results back.
type Orchestrator struct {
	backend storage.Backend
	logger  logging.Logger
	panels  PanelPaths
	opts    Options

	pending *fileop.PendingOperation
	worker  *archive.Worker
	job     string
}

// New creates an orchestrator
func New(backend storage.Backend, panels PanelPaths, logger logging.Logger, opts Options) *Orchestrator {
	logger = logging.ForComponent(logger, "engine")
	return &Orchestrator{
		backend: backend,
		logger:  logger,
		panels:  panels,
		opts:    opts,
	}
}

// Pending returns the file operation in flight, or nil
func (o *Orchestrator) Pending() *fileop.PendingOperation {
	return o.pending
}

// Worker returns the archive worker in flight, or nil
func (o *Orchestrator) Worker() *archive.Worker {
	return o.worker
}

// StartFileOperation starts a copy or move into destDir, defaulting to the
// inactive panel. The operation is returned already processing.
func (o *Orchestrator) StartFileOperation(ctx context.Context, kind models.OperationKind, sources []string, destDir string) (*fileop.PendingOperation, error) {
	if o.pending != nil {
		return nil, errors.WithStack(ErrBusy)
	}
	if destDir == "" && o.panels != nil {
		destDir = o.panels.InactivePath()
	}

	op, err := fileop.Start(ctx, o.backend, kind, sources, destDir, o.logger)
	if err != nil {
		o.logger.Warn(ctx, "operation rejected", logging.Fields{logging.FieldKind: string(kind), "error": err.Error()})
		return nil, err
	}
	return o.adopt(ctx, op), nil
}

// StartDelete starts a permanent delete of sources
func (o *Orchestrator) StartDelete(ctx context.Context, sources []string) (*fileop.PendingOperation, error) {
	if o.pending != nil {
		return nil, errors.WithStack(ErrBusy)
	}

	op, err := fileop.StartDelete(ctx, o.backend, sources, o.logger)
	if err != nil {
		o.logger.Warn(ctx, "operation rejected", logging.Fields{logging.FieldKind: string(models.OpDelete), "error": err.Error()})
		return nil, err
	}
	return o.adopt(ctx, op), nil
}

// Trash moves sources to the trash in a single call
func (o *Orchestrator) Trash(ctx context.Context, sources []string) (models.OperationResult, error) {
	if o.pending != nil {
		return models.OperationResult{}, errors.WithStack(ErrBusy)
	}
	return fileop.Trash(ctx, o.backend, sources, o.logger)
}

func (o *Orchestrator) adopt(ctx context.Context, op *fileop.PendingOperation) *fileop.PendingOperation {
	op.Begin(ctx)
	o.pending = op
	return op
}

// Tick advances the pending operation by one entry. Once it completes, the
// result is returned and the slot is freed.
func (o *Orchestrator) Tick(ctx context.Context) (models.OperationResult, bool) {
	if o.pending == nil {
		return models.OperationResult{}, false
	}
	o.pending.Advance(ctx)
	return o.collect()
}

// ResolveConflict forwards a decision to the pending operation
func (o *Orchestrator) ResolveConflict(ctx context.Context, decision models.ConflictDecision) (models.OperationResult, bool, error) {
	if o.pending == nil {
		return models.OperationResult{}, false, errors.WithStack(ErrNoPendingConflict)
	}
	if err := o.pending.ResolveConflict(ctx, decision); err != nil {
		return models.OperationResult{}, false, err
	}
	result, done := o.collect()
	return result, done, nil
}

// CancelFileOperation stops the pending operation, keeping completed items
func (o *Orchestrator) CancelFileOperation(ctx context.Context) (models.OperationResult, bool) {
	if o.pending == nil {
		return models.OperationResult{}, false
	}
	o.pending.Cancel(ctx)
	return o.collect()
}

func (o *Orchestrator) collect() (models.OperationResult, bool) {
	result, ok := o.pending.Result()
	if !ok {
		return models.OperationResult{}, false
	}
	o.pending = nil
	return result, true
}

// Drive runs the pending operation to completion. decide answers conflicts
// and progress, when set, is called after every step.
func (o *Orchestrator) Drive(ctx context.Context, decide func(models.Conflict) models.ConflictDecision, progress func(models.OperationProgress)) (models.OperationResult, error) {
	for o.pending != nil {
		if ctx.Err() != nil {
			result, _ := o.CancelFileOperation(ctx)
			return result, nil
		}

		op := o.pending
		if c, ok := op.Conflict(); ok {
			result, done, err := o.ResolveConflict(ctx, decide(c))
			if err != nil {
				return models.OperationResult{}, err
			}
			if done {
				return result, nil
			}
			continue
		}

		result, done := o.Tick(ctx)
		if progress != nil {
			progress(op.Progress)
		}
		if done {
			return result, nil
		}
	}
	return models.OperationResult{}, errors.New("no operation in progress")
}

// StartCreateArchive launches archive creation on a worker. The configured
// exclude patterns are added to the request's own. The slot stays busy until
// the previous worker has been collected.
func (o *Orchestrator) StartCreateArchive(ctx context.Context, req models.ArchiveCreateRequest) (*archive.Worker, error) {
	if o.worker != nil {
		return nil, errors.WithStack(ErrBusy)
	}
	req.Exclude = append(append([]string{}, o.opts.Exclude...), req.Exclude...)

	o.worker = archive.StartCreate(ctx, req, o.workerOptions())
	o.job = "Archive create"
	o.logger.Info(ctx, "archive create started", logging.Fields{
		"output":  req.OutputPath,
		"sources": len(req.Sources),
	})
	return o.worker, nil
}

// StartExtract launches extraction on a worker. Like StartCreateArchive it
// refuses while an uncollected worker holds the slot.
func (o *Orchestrator) StartExtract(ctx context.Context, req models.ArchiveExtractRequest) (*archive.Worker, error) {
	if o.worker != nil {
		return nil, errors.WithStack(ErrBusy)
	}

	o.worker = archive.StartExtract(ctx, req, o.workerOptions())
	o.job = "Archive extract"
	o.logger.Info(ctx, "archive extract started", logging.Fields{
		"archive": req.ArchivePath,
		"dest":    req.DestDir,
	})
	return o.worker, nil
}

// CancelArchive asks the running worker to stop before its next entry
func (o *Orchestrator) CancelArchive() {
	if o.worker != nil {
		o.worker.Cancel()
	}
}

// CollectArchive returns the worker's result once it has finished and frees
// the slot. The message is the user-facing completion text.
func (o *Orchestrator) CollectArchive(ctx context.Context) (models.ArchiveSummary, string, error, bool) {
	if o.worker == nil || !o.worker.Finished() {
		return models.ArchiveSummary{}, "", nil, false
	}
	summary, err := o.worker.Wait()
	job := o.job
	o.worker = nil
	o.job = ""

	if err != nil {
		o.logger.Error(ctx, job+" failed", err, nil)
		return summary, job + " failed: " + err.Error(), err, true
	}
	o.logger.Info(ctx, job+" finished", logging.Fields{
		"processed": summary.ItemsProcessed,
		"failed":    summary.ItemsFailed,
		"cancelled": summary.Cancelled,
	})
	return summary, summary.Message(job), nil, true
}

func (o *Orchestrator) workerOptions() archive.WorkerOptions {
	return archive.WorkerOptions{
		QueueSize:      o.opts.QueueSize,
		SevenZipBinary: o.opts.SevenZipBinary,
	}
}

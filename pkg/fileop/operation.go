package fileop

import (
	"context"
	"io/fs"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/sdejongh/duopane/internal/platform"
	"github.com/sdejongh/duopane/pkg/logging"
	"github.com/sdejongh/duopane/pkg/models"
	"github.com/sdejongh/duopane/pkg/storage"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrNoConflict is returned by ResolveConflict when nothing is waiting for a decision
	ErrNoConflict = errors.Base("operation is not waiting for a conflict decision")

	// ErrUnknownDecision is returned for a decision outside the five known values
	ErrUnknownDecision = errors.Base("unknown conflict decision")

	errSamePath         = errors.Base("source and destination are the same")
	errDirectorySymlink = errors.Base("directory symlink is not supported")
)

// PendingOperation is one copy, move or delete in flight. It does no work
// on its own: the host calls Advance once per tick and answers conflicts
// with ResolveConflict. Only the stepping methods mutate it.
type PendingOperation struct {
	ID              string
	Kind            models.OperationKind
	Sources         []string
	DestDir         string
	Flattened       []models.FlattenedEntry
	MoveCleanupDirs []string
	Sticky          *models.ConflictDecision
	Cursor          int
	State           models.OperationState
	Progress        models.OperationProgress
	Errors          []string
	CompletedCount  int
	Cancelled       bool

	backend  storage.Backend
	logger   logging.Logger
	conflict *models.Conflict
	onFinish []func()
}

// Start validates a copy or move request and flattens its sources.
// The returned operation is Pending; call Begin before advancing it.
func Start(ctx context.Context, backend storage.Backend, kind models.OperationKind, sources []string, destDir string, logger logging.Logger) (*PendingOperation, error) {
	if kind != models.OpCopy && kind != models.OpMove {
		return nil, errors.Errorf("unsupported operation kind for Start: %s", kind)
	}

	sources, destDir, err := absolutePaths(sources, destDir)
	if err != nil {
		return nil, err
	}

	if err := Validate(ctx, backend, kind, sources, destDir); err != nil {
		return nil, err
	}

	entries, err := Flatten(ctx, backend, sources, destDir)
	if err != nil {
		return nil, err
	}

	op := newOperation(backend, kind, sources, destDir, logger)
	op.Flattened = entries
	if kind == models.OpMove {
		op.MoveCleanupDirs = CollectMoveCleanupDirs(entries)
	}
	op.Progress.ItemsTotal = len(entries)
	op.Progress.BytesTotal = models.TotalSize(entries)
	return op, nil
}

func newOperation(backend storage.Backend, kind models.OperationKind, sources []string, destDir string, logger logging.Logger) *PendingOperation {
	id := uuid.NewString()
	return &PendingOperation{
		ID:       id,
		Kind:     kind,
		Sources:  sources,
		DestDir:  destDir,
		State:    models.StatePending,
		Progress: models.OperationProgress{Kind: kind},
		backend:  backend,
		logger:   logging.ForOperation(logger, id, string(kind)),
	}
}

func absolutePaths(sources []string, destDir string) ([]string, string, error) {
	abs := make([]string, 0, len(sources))
	for _, s := range sources {
		p, err := filepath.Abs(s)
		if err != nil {
			return nil, "", errors.Errorf("failed to resolve %s: %w", s, err)
		}
		abs = append(abs, p)
	}
	if destDir == "" {
		return abs, "", nil
	}
	dest, err := filepath.Abs(destDir)
	if err != nil {
		return nil, "", errors.Errorf("failed to resolve %s: %w", destDir, err)
	}
	return abs, dest, nil
}

// OnFinish registers a hook run once when the operation completes or is cancelled
func (op *PendingOperation) OnFinish(fn func()) {
	op.onFinish = append(op.onFinish, fn)
}

// Begin moves a pending operation into processing and restarts accounting
func (op *PendingOperation) Begin(ctx context.Context) {
	if op.State != models.StatePending {
		return
	}
	op.State = models.StateProcessing
	op.Progress.Reset(len(op.Flattened), models.TotalSize(op.Flattened))
	op.logger.Info(ctx, "operation started", logging.Fields{
		"entries": len(op.Flattened),
		"bytes":   op.Progress.BytesTotal,
	})
}

// Done reports whether the operation reached its terminal state
func (op *PendingOperation) Done() bool {
	return op.State == models.StateCompleted
}

// Conflict returns the conflict waiting for a decision, if any
func (op *PendingOperation) Conflict() (models.Conflict, bool) {
	if op.State != models.StateWaitingConflict || op.conflict == nil {
		return models.Conflict{}, false
	}
	return *op.conflict, true
}

// Advance processes at most one entry. It does nothing unless the
// operation is processing. Per-entry failures are recorded and never stop
// the operation.
func (op *PendingOperation) Advance(ctx context.Context) {
	if op.State != models.StateProcessing {
		return
	}
	if op.Cursor >= len(op.Flattened) {
		op.finish(ctx)
		return
	}

	entry := op.Flattened[op.Cursor]
	op.Progress.CurrentItem = entry.Name()

	if op.Kind == models.OpDelete {
		op.record(ctx, entry, op.deleteEntry(ctx, entry))
		return
	}

	if entry.Kind != models.KindDirectory && platform.SamePath(entry.Source, entry.Dest) {
		op.record(ctx, entry, errSamePath)
		return
	}

	// Rejected before the conflict check so an existing destination is
	// never removed for an entry that cannot be written
	if entry.Kind == models.KindSymlinkDirectory {
		op.record(ctx, entry, errDirectorySymlink)
		return
	}

	conflict, err := NeedsConflictResolution(ctx, op.backend, entry)
	if err != nil {
		op.record(ctx, entry, err)
		return
	}
	if conflict {
		switch {
		case op.Sticky != nil && *op.Sticky == models.DecisionSkipAll:
			op.skip()
		case op.Sticky != nil && *op.Sticky == models.DecisionOverwriteAll:
			op.overwrite(ctx, entry)
		default:
			op.State = models.StateWaitingConflict
			op.conflict = &models.Conflict{Source: entry.Source, Dest: entry.Dest}
		}
		return
	}

	op.record(ctx, entry, op.execute(ctx, entry))
}

// ResolveConflict answers the pending conflict. Overwrite variants remove
// the existing destination first; the All variants become sticky for the
// rest of the operation; Cancel stops it, keeping completed items.
func (op *PendingOperation) ResolveConflict(ctx context.Context, decision models.ConflictDecision) error {
	if op.State != models.StateWaitingConflict {
		return errors.WithStack(ErrNoConflict)
	}

	entry := op.Flattened[op.Cursor]
	switch decision {
	case models.DecisionCancel:
		op.conflict = nil
		op.Cancel(ctx)
		return nil
	case models.DecisionSkip, models.DecisionSkipAll,
		models.DecisionOverwrite, models.DecisionOverwriteAll:
	default:
		return errors.Errorf("%w: %s", ErrUnknownDecision, decision)
	}

	op.State = models.StateProcessing
	op.conflict = nil
	if decision.IsSticky() {
		sticky := decision
		op.Sticky = &sticky
	}

	if decision.Skips() {
		op.skip()
	} else {
		op.overwrite(ctx, entry)
	}
	return nil
}

// Cancel stops the operation without rolling anything back
func (op *PendingOperation) Cancel(ctx context.Context) {
	if op.State == models.StateCompleted {
		return
	}
	op.Cancelled = true
	op.finish(ctx)
}

// Result returns the outcome once the operation has completed
func (op *PendingOperation) Result() (models.OperationResult, bool) {
	if op.State != models.StateCompleted {
		return models.OperationResult{}, false
	}
	return models.OperationResult{
		Kind:      op.Kind,
		Succeeded: op.CompletedCount,
		Failed:    op.Progress.ItemsFailed,
		Errors:    op.Errors,
		Cancelled: op.Cancelled,
		Total:     len(op.Flattened),
	}, true
}

func (op *PendingOperation) execute(ctx context.Context, entry models.FlattenedEntry) error {
	switch entry.Kind {
	case models.KindDirectory:
		return op.backend.MkdirAll(ctx, entry.Dest)
	case models.KindFile, models.KindSymlinkFile:
		var err error
		if op.Kind == models.OpMove {
			_, err = op.backend.MoveFile(ctx, entry.Source, entry.Dest)
		} else {
			_, err = op.backend.CopyFile(ctx, entry.Source, entry.Dest)
		}
		return err
	case models.KindSymlinkDirectory:
		return errDirectorySymlink
	default:
		return errors.Errorf("unknown entry kind: %s", entry.Kind)
	}
}

func (op *PendingOperation) overwrite(ctx context.Context, entry models.FlattenedEntry) {
	if err := op.backend.RemoveAll(ctx, entry.Dest); err != nil {
		op.record(ctx, entry, errors.Errorf("failed to remove existing destination: %w", err))
		return
	}
	op.record(ctx, entry, op.execute(ctx, entry))
}

// skip steps past the current entry without touching the filesystem
func (op *PendingOperation) skip() {
	entry := op.Flattened[op.Cursor]
	op.Progress.BytesDone += entry.Size
	op.Progress.ItemsDone++
	op.Cursor++
}

// record accounts for one processed entry and advances the cursor
func (op *PendingOperation) record(ctx context.Context, entry models.FlattenedEntry, err error) {
	op.Progress.ItemsDone++
	op.Progress.ItemsProcessed++
	op.Progress.BytesDone += entry.Size
	op.Cursor++

	if err != nil {
		op.Progress.ItemsFailed++
		op.Errors = append(op.Errors, entry.Name()+": "+err.Error())
		op.logger.Warn(ctx, "entry failed", logging.Fields{
			logging.FieldEntry: entry.Source,
			"error": err.Error(),
		})
		return
	}
	op.CompletedCount++
}

func (op *PendingOperation) finish(ctx context.Context) {
	if op.State == models.StateCompleted {
		return
	}
	op.State = models.StateCompleted
	op.Progress.CurrentItem = ""

	if op.Kind == models.OpMove && !op.Cancelled {
		op.cleanupMovedDirs(ctx)
	}

	for _, fn := range op.onFinish {
		fn()
	}
	op.onFinish = nil

	op.logger.Info(ctx, "operation finished", logging.Fields{
		"succeeded": op.CompletedCount,
		"failed":    op.Progress.ItemsFailed,
		"cancelled": op.Cancelled,
	})
}

// cleanupMovedDirs removes source directories emptied by the move, deepest
// first. Missing and non-empty directories are left alone silently.
func (op *PendingOperation) cleanupMovedDirs(ctx context.Context) {
	for _, dir := range op.MoveCleanupDirs {
		err := op.backend.Remove(ctx, dir)
		if err == nil || isBenignCleanupError(err) {
			continue
		}
		op.Errors = append(op.Errors, filepath.Base(dir)+": "+err.Error())
	}
}

func isBenignCleanupError(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, syscall.ENOTEMPTY) ||
		errors.Is(err, syscall.EEXIST)
}

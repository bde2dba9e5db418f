package engine

import (
	"context"
	"path/filepath"

	"github.com/sdejongh/duopane/pkg/archive"
	"github.com/sdejongh/duopane/pkg/models"
	"gitlab.com/tozd/go/errors"
)

// ErrExtractCancelled is returned when the user cancels conflict resolution
// before extraction started
var ErrExtractCancelled = errors.Base("extraction cancelled")

// ExtractFlow resolves every extraction conflict up front. Conflicts are
// walked in order; each answer is folded into the request so the worker
// never has to ask.
type ExtractFlow struct {
	request   models.ArchiveExtractRequest
	conflicts []string
	index     int
	cancelled bool
}

// NewExtractFlow lists the conflicts of req. When there are none the flow is
// immediately ready.
func NewExtractFlow(ctx context.Context, req models.ArchiveExtractRequest) (*ExtractFlow, error) {
	conflicts, err := archive.ListExtractConflicts(ctx, req.ArchivePath, req.DestDir, req.Password)
	if err != nil {
		return nil, err
	}
	return &ExtractFlow{request: req, conflicts: conflicts}, nil
}

// Conflicts returns every conflicting entry name, sorted
func (f *ExtractFlow) Conflicts() []string {
	return f.conflicts
}

// Current returns the conflict waiting for a decision
func (f *ExtractFlow) Current() (models.Conflict, bool) {
	if f.Ready() || f.cancelled {
		return models.Conflict{}, false
	}
	name := f.conflicts[f.index]
	return models.Conflict{
		Source: name,
		Dest:   filepath.Join(f.request.DestDir, filepath.FromSlash(name)),
	}, true
}

// Resolve answers the current conflict. The All variants settle the rest of
// the walk at once.
func (f *ExtractFlow) Resolve(decision models.ConflictDecision) error {
	if f.Ready() || f.cancelled {
		return errors.WithStack(ErrNoPendingConflict)
	}

	name := f.conflicts[f.index]
	switch decision {
	case models.DecisionOverwrite:
		f.request.OverwriteEntries = append(f.request.OverwriteEntries, name)
		f.index++
	case models.DecisionSkip:
		f.request.SkipExistingEntries = append(f.request.SkipExistingEntries, name)
		f.index++
	case models.DecisionOverwriteAll:
		f.request.OverwriteExisting = true
		f.index = len(f.conflicts)
	case models.DecisionSkipAll:
		f.request.SkipAllExisting = true
		f.index = len(f.conflicts)
	case models.DecisionCancel:
		f.cancelled = true
	default:
		return errors.Errorf("%w: %s", ErrUnknownDecision, decision)
	}
	return nil
}

// Ready reports whether every conflict has an answer
func (f *ExtractFlow) Ready() bool {
	return !f.cancelled && f.index >= len(f.conflicts)
}

// Cancelled reports whether the user cancelled the walk
func (f *ExtractFlow) Cancelled() bool {
	return f.cancelled
}

// Request returns the request carrying the resolved decisions
func (f *ExtractFlow) Request() (models.ArchiveExtractRequest, error) {
	if f.cancelled {
		return models.ArchiveExtractRequest{}, errors.WithStack(ErrExtractCancelled)
	}
	if !f.Ready() {
		return models.ArchiveExtractRequest{}, errors.Errorf("%d conflicts still unresolved", len(f.conflicts)-f.index)
	}
	return f.request, nil
}

// ResolveAll runs the walk with decide answering each conflict
func (f *ExtractFlow) ResolveAll(decide func(models.Conflict) models.ConflictDecision) (models.ArchiveExtractRequest, error) {
	for {
		c, ok := f.Current()
		if !ok {
			return f.Request()
		}
		if err := f.Resolve(decide(c)); err != nil {
			return models.ArchiveExtractRequest{}, err
		}
	}
}

package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sdejongh/duopane/pkg/archive"
	"github.com/sdejongh/duopane/pkg/fileop"
	"github.com/sdejongh/duopane/pkg/logging"
	"github.com/sdejongh/duopane/pkg/models"
	"gitlab.com/tozd/go/errors"
)

// PreviewLimit caps the number of entries kept by PreviewArchive
const PreviewLimit = 5000

// Preview is a bounded listing of an archive
type Preview struct {
	Entries      []models.ArchiveEntry
	TotalEntries int
	TotalSize    int64
	Truncated    bool
}

// PreviewArchive lists at most PreviewLimit entries of the archive
func PreviewArchive(ctx context.Context, path, password string) (Preview, error) {
	entries, err := archive.ListEntries(ctx, path, password)
	if err != nil {
		return Preview{}, err
	}

	p := Preview{TotalEntries: len(entries)}
	for _, e := range entries {
		p.TotalSize += e.Size
	}
	if len(entries) > PreviewLimit {
		entries = entries[:PreviewLimit]
		p.Truncated = true
	}
	p.Entries = entries
	return p, nil
}

// CopyFromArchive extracts the archive into a private temporary directory
// and starts a copy of the selected entries into destDir. The temporary
// directory is removed when the copy finishes, whatever the outcome.
func (o *Orchestrator) CopyFromArchive(ctx context.Context, archivePath, password string, entries []string, destDir string) (*fileop.PendingOperation, error) {
	if o.pending != nil {
		return nil, errors.WithStack(ErrBusy)
	}
	if len(entries) == 0 {
		return nil, &models.PreconditionError{Op: "copy", Path: archivePath, Message: "no source selected"}
	}
	if destDir == "" && o.panels != nil {
		destDir = o.panels.InactivePath()
	}

	tempDir := filepath.Join(os.TempDir(), "duopane-archive-"+uuid.NewString())
	if err := os.Mkdir(tempDir, 0o700); err != nil {
		return nil, errors.Errorf("failed to create staging directory: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(tempDir); err != nil {
			o.logger.Warn(ctx, "failed to remove staging directory", logging.Fields{logging.FieldPath: tempDir, "error": err.Error()})
		}
	}

	summary, err := archive.Extract(ctx, models.ArchiveExtractRequest{
		ArchivePath: archivePath,
		DestDir:     tempDir,
		Password:    password,
	}, nil, nil)
	if err != nil {
		cleanup()
		return nil, err
	}
	if summary.ItemsFailed > 0 {
		o.logger.Warn(ctx, "some archive entries could not be staged", logging.Fields{
			"archive": archivePath,
			"failed":  summary.ItemsFailed,
		})
	}

	sources := make([]string, 0, len(entries))
	for _, name := range entries {
		path, ok := archive.SanitizeExtractPath(tempDir, name)
		if !ok {
			cleanup()
			return nil, &models.PreconditionError{Op: "copy", Path: name, Message: "unsafe archive entry"}
		}
		sources = append(sources, path)
	}

	op, err := fileop.Start(ctx, o.backend, models.OpCopy, sources, destDir, o.logger)
	if err != nil {
		cleanup()
		return nil, err
	}
	op.OnFinish(cleanup)
	return o.adopt(ctx, op), nil
}

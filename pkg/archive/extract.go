package archive

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/sdejongh/duopane/pkg/models"
	"gitlab.com/tozd/go/errors"
)

// archiveFile is one entry handed over by a format reader during extraction
type archiveFile struct {
	name       string
	isDir      bool
	size       int64
	mode       fs.FileMode
	linkTarget string
	hardLink   bool
	open       func() (io.ReadCloser, error)
}

// Extract unpacks the archive into req.DestDir, which must exist.
// Every entry is sanitized before use and conflicts follow the resolved
// decisions carried by the request. Per-entry failures land in the summary;
// unreadable containers and password problems are returned as errors.
func Extract(ctx context.Context, req models.ArchiveExtractRequest, progress ProgressFunc, cancel *atomic.Bool) (models.ArchiveSummary, error) {
	format, ok := DetectFormat(req.ArchivePath)
	if !ok {
		return models.ArchiveSummary{}, &models.PreconditionError{Op: "extract", Path: req.ArchivePath, Err: ErrUnsupportedFormat}
	}

	if info, err := os.Stat(req.DestDir); err != nil || !info.IsDir() {
		return models.ArchiveSummary{}, &models.PreconditionError{
			Op:      "extract",
			Path:    req.DestDir,
			Message: "destination directory does not exist",
		}
	}

	root, err := filepath.EvalSymlinks(req.DestDir)
	if err != nil {
		return models.ArchiveSummary{}, &models.PreconditionError{Op: "extract", Path: req.DestDir, Err: err}
	}

	entries, err := listRaw(ctx, req.ArchivePath, format, req.Password)
	if err != nil {
		return models.ArchiveSummary{}, err
	}

	totalFiles, totalBytes := rawTotals(entries)
	t := newTracker(ctx, totalFiles, totalBytes, progress, cancel)
	t.emit("", 0)

	x := &extractor{req: req, root: root, t: t}
	switch {
	case format.IsZipFamily():
		err = extractZip(x)
	case format.IsTarFamily():
		err = extractTar(ctx, x, format)
	default:
		err = extractSevenZip(ctx, x)
	}
	if err != nil {
		return t.summary, err
	}

	return t.summary, nil
}

// extractor applies sanitization, conflict decisions and writing to each entry.
// root is DestDir with symlinks resolved.
type extractor struct {
	req  models.ArchiveExtractRequest
	root string
	t    *tracker
}

// entry processes one archive entry and returns false when extraction must stop
func (x *extractor) entry(f archiveFile) bool {
	if x.t.cancelled() {
		return false
	}

	name := strings.TrimSuffix(strings.ReplaceAll(f.name, `\`, "/"), "/")
	dest, ok := SanitizeExtractPath(x.req.DestDir, f.name)
	if !ok {
		x.t.failf(name, "blocked unsafe path")
		return true
	}

	// Links created by earlier entries must not carry this one outside
	parent, ok := x.confine(filepath.Dir(dest))
	if !ok {
		x.t.failf(name, "blocked unsafe path")
		return true
	}

	if existing, err := os.Lstat(dest); err == nil {
		existingDir := existing.IsDir() || isDir(dest)
		if f.isDir && existingDir {
			x.t.succeed(name, 0)
			return true
		}

		switch {
		case x.req.SkipAllExisting:
			x.t.skip(name)
			return true
		case x.req.OverwriteExisting:
			// replaced below
		case containsEntry(x.req.SkipExistingEntries, name):
			x.t.skip(name)
			return true
		case containsEntry(x.req.OverwriteEntries, name):
			// replaced below
		default:
			x.t.failf(name, "destination exists")
			return true
		}

		if err := removeExisting(dest, existing); err != nil {
			x.t.fail(name, err)
			return true
		}
	}

	if err := x.write(f, dest, parent, name); err != nil {
		x.t.fail(name, err)
		return true
	}

	if f.isDir {
		x.t.succeed(name, 0)
	} else {
		x.t.succeed(name, f.size)
	}
	return true
}

func (x *extractor) write(f archiveFile, dest, parent, name string) error {
	switch {
	case f.isDir:
		return os.MkdirAll(dest, 0755)
	case f.hardLink:
		return errors.New("unsupported entry type: hard link")
	case f.mode&fs.ModeSymlink != 0:
		return x.writeSymlink(f, dest, parent)
	case !f.mode.IsRegular() && f.mode.Type() != 0:
		return errors.Errorf("unsupported entry type: %s", f.mode.Type())
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	rc, err := f.open()
	if err != nil {
		return err
	}
	defer rc.Close()

	perm := f.mode.Perm()
	if perm == 0 {
		perm = 0644
	}
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, x.t.reader(rc, name))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return err
}

// writeSymlink creates a link only when its target, followed through the
// links already on disk, resolves inside the destination. Zip and 7z keep
// the target in the entry body.
func (x *extractor) writeSymlink(f archiveFile, dest, parent string) error {
	target := f.linkTarget
	if target == "" && f.open != nil {
		body, err := readLinkBody(f)
		if err != nil {
			return err
		}
		target = body
	}
	if target == "" || filepath.IsAbs(target) || strings.HasPrefix(target, "/") {
		return errors.New("blocked unsafe path")
	}
	resolved, err := resolveThroughLinks(parent, filepath.FromSlash(target))
	if err != nil || !within(x.root, resolved) {
		return errors.New("blocked unsafe path")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	return os.Symlink(target, dest)
}

// maxLinkTarget bounds how much of an entry body is read as a link target
const maxLinkTarget = 4096

func readLinkBody(f archiveFile) (string, error) {
	rc, err := f.open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxLinkTarget+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxLinkTarget {
		return "", errors.New("symlink target too long")
	}
	return string(data), nil
}

// confine resolves dir, a path below DestDir, against the real filesystem
// and reports whether it still lies inside the destination
func (x *extractor) confine(dir string) (string, bool) {
	rel, err := filepath.Rel(x.req.DestDir, dir)
	if err != nil {
		return "", false
	}
	resolved, err := resolveThroughLinks(x.root, rel)
	if err != nil || !within(x.root, resolved) {
		return "", false
	}
	return resolved, true
}

// resolveThroughLinks walks rel from base one component at a time, following
// every symlink that exists on disk. Components that do not exist yet are
// taken literally. A link that cannot be resolved is an error.
func resolveThroughLinks(base, rel string) (string, error) {
	current := base
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			current = filepath.Dir(current)
			continue
		}

		next := filepath.Join(current, part)
		info, err := os.Lstat(next)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			current = next
		case err != nil:
			return "", err
		case info.Mode()&fs.ModeSymlink != 0:
			resolved, err := filepath.EvalSymlinks(next)
			if err != nil {
				return "", err
			}
			current = resolved
		default:
			current = next
		}
	}
	return current, nil
}

func removeExisting(path string, info fs.FileInfo) error {
	if info.IsDir() {
		return os.RemoveAll(path)
	}
	return os.Remove(path)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

package archive

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/google/uuid"
	"github.com/mholt/archives"
	"gitlab.com/tozd/go/errors"
)

// SevenZipBinaries are the executables tried, in order, when creating 7z archives
var SevenZipBinaries = []string{"7z", "7zz", "7za"}

// FindSevenZip returns the path of the first available 7z executable.
// A non-empty preferred name is tried before the defaults.
func FindSevenZip(preferred string) (string, error) {
	candidates := SevenZipBinaries
	if preferred != "" {
		candidates = append([]string{preferred}, candidates...)
	}
	for _, name := range candidates {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", errors.WithStack(ErrSevenZipUnavailable)
}

// classifySevenZipError maps reader failures onto the password taxonomy
func classifySevenZipError(path, password string, err error) error {
	var readErr *sevenzip.ReadError
	encrypted := errors.As(err, &readErr) && readErr.Encrypted
	msg := strings.ToLower(err.Error())
	if encrypted || strings.Contains(msg, "password") || strings.Contains(msg, "aes7z") {
		if password == "" {
			return errors.WithStack(ErrPasswordRequired)
		}
		return errors.WithStack(ErrInvalidPassword)
	}
	return &ListError{Path: path, Err: err}
}

func listSevenZip(ctx context.Context, path, password string) ([]rawEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ListError{Path: path, Err: err}
	}
	defer f.Close()

	var entries []rawEntry
	var probe archives.FileInfo
	err = archives.SevenZip{Password: password}.Extract(ctx, f, func(_ context.Context, file archives.FileInfo) error {
		entries = append(entries, rawEntry{
			name:  file.NameInArchive,
			size:  sizeOf(file),
			isDir: file.IsDir(),
		})
		if !file.IsDir() && (probe.Open == nil || file.Size() < probe.Size()) {
			probe = file
		}
		return nil
	})
	if err != nil {
		return nil, classifySevenZipError(path, password, err)
	}

	// With plain headers an encrypted archive lists fine, so one entry is
	// decoded to validate the password
	if probe.Open != nil {
		rc, err := probe.Open()
		if err == nil {
			_, err = io.Copy(io.Discard, rc)
			rc.Close()
		}
		if err != nil {
			return nil, classifySevenZipError(path, password, err)
		}
	}

	return entries, nil
}

func extractSevenZip(ctx context.Context, x *extractor) error {
	f, err := os.Open(x.req.ArchivePath)
	if err != nil {
		return &ListError{Path: x.req.ArchivePath, Err: err}
	}
	defer f.Close()

	err = archives.SevenZip{Password: x.req.Password}.Extract(ctx, f, func(_ context.Context, file archives.FileInfo) error {
		entry := file
		ok := x.entry(archiveFile{
			name:  file.NameInArchive,
			isDir: file.IsDir(),
			size:  sizeOf(file),
			mode:  file.Mode(),
			open: func() (io.ReadCloser, error) {
				return entry.Open()
			},
		})
		if !ok {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		if x.t.cancelled() {
			return nil
		}
		return classifySevenZipError(x.req.ArchivePath, x.req.Password, err)
	}
	return nil
}

// createSevenZip stages the items in a uniquely named temp directory that
// mirrors the archive layout, then compresses it with one external call.
// The staging directory is removed whether or not compression succeeds.
func createSevenZip(ctx context.Context, binary, output string, items []sourceItem, password string, t *tracker) error {
	if t.cancelled() {
		return nil
	}

	exe, err := FindSevenZip(binary)
	if err != nil {
		return err
	}

	staging := filepath.Join(os.TempDir(), "duopane-7z-"+uuid.NewString())
	if err := os.Mkdir(staging, 0700); err != nil {
		return errors.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	roots := make(map[string]struct{})
	for _, item := range items {
		if err := stageItem(staging, item); err != nil {
			t.fail(item.archivePath, err)
			continue
		}
		roots[strings.SplitN(item.archivePath, "/", 2)[0]] = struct{}{}
	}
	if len(roots) == 0 {
		return errors.New("failed to create archive: nothing to compress")
	}

	absOutput, err := filepath.Abs(output)
	if err != nil {
		return errors.Errorf("failed to resolve output path: %w", err)
	}

	cmd := exec.CommandContext(ctx, exe, sevenZipArgs(absOutput, roots, password != "")...)
	cmd.Dir = staging
	if password != "" {
		cmd.Stdin = passwordPrompt(password)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		os.Remove(absOutput)
		return errors.Errorf("failed to create archive: %w: %s", err, strings.TrimSpace(out.String()))
	}

	t.filesCompleted = t.summary.TotalFiles - t.summary.ItemsFailed
	t.bytesProcessed = t.summary.TotalBytes
	t.summary.ItemsProcessed = t.summary.TotalFiles
	t.emit(filepath.Base(output), t.bytesProcessed)
	return nil
}

// sevenZipArgs builds the command line for compressing roots into output.
// A bare -p makes 7z prompt for the password, keeping it off the argv.
func sevenZipArgs(output string, roots map[string]struct{}, encrypt bool) []string {
	args := []string{"a", "-t7z", "-y", "-bd"}
	if encrypt {
		args = append(args, "-p", "-mhe=on")
	}
	args = append(args, output, "--")
	names := make([]string, 0, len(roots))
	for root := range roots {
		names = append(names, root)
	}
	sort.Strings(names)
	return append(args, names...)
}

// passwordPrompt answers the enter and verify prompts of 7z
func passwordPrompt(password string) io.Reader {
	return strings.NewReader(password + "\n" + password + "\n")
}

func stageItem(staging string, item sourceItem) error {
	if item.dirSymlink {
		return errDirectorySymlink
	}

	dest := filepath.Join(staging, filepath.FromSlash(item.archivePath))
	if item.isDir {
		return os.MkdirAll(dest, 0755)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	src, err := os.Open(item.sourcePath)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, item.info.Mode().Perm()|0600)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	return os.Chtimes(dest, item.info.ModTime(), item.info.ModTime())
}

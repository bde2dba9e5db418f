package archive

import (
	"io"
	"os"

	"github.com/yeka/zip"
	"gitlab.com/tozd/go/errors"
)

// listZip reads the central directory and validates the password against
// the smallest encrypted entry, since zip headers are never encrypted
func listZip(path, password string) ([]rawEntry, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, &ListError{Path: path, Err: err}
	}
	defer r.Close()

	if err := checkZipPassword(r.File, password); err != nil {
		return nil, err
	}

	entries := make([]rawEntry, 0, len(r.File))
	for _, f := range r.File {
		entries = append(entries, rawEntry{
			name:  f.Name,
			size:  int64(f.UncompressedSize64),
			isDir: f.FileInfo().IsDir(),
		})
	}
	return entries, nil
}

func checkZipPassword(files []*zip.File, password string) error {
	var probe *zip.File
	for _, f := range files {
		if !f.IsEncrypted() || f.FileInfo().IsDir() {
			continue
		}
		if probe == nil || f.UncompressedSize64 < probe.UncompressedSize64 {
			probe = f
		}
	}
	if probe == nil {
		return nil
	}
	if password == "" {
		return errors.WithStack(ErrPasswordRequired)
	}

	probe.SetPassword(password)
	rc, err := probe.Open()
	if err != nil {
		return errors.WithStack(ErrInvalidPassword)
	}
	defer rc.Close()

	// AES entries are authenticated at EOF, so the probe is read in full
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return errors.WithStack(ErrInvalidPassword)
	}
	return nil
}

func extractZip(x *extractor) error {
	r, err := zip.OpenReader(x.req.ArchivePath)
	if err != nil {
		return &ListError{Path: x.req.ArchivePath, Err: err}
	}
	defer r.Close()

	for _, f := range r.File {
		if f.IsEncrypted() {
			f.SetPassword(x.req.Password)
		}
		info := f.FileInfo()
		file := f
		ok := x.entry(archiveFile{
			name:  f.Name,
			isDir: info.IsDir(),
			size:  int64(f.UncompressedSize64),
			mode:  info.Mode(),
			open: func() (io.ReadCloser, error) {
				return file.Open()
			},
		})
		if !ok {
			break
		}
	}
	return nil
}

// createZip writes every item as its own entry. Sources are opened before the
// entry header is written so an unreadable file never leaves an empty entry.
func createZip(output string, items []sourceItem, password string, t *tracker) error {
	out, err := os.Create(output)
	if err != nil {
		return errors.Errorf("failed to create archive: %w", err)
	}

	w := zip.NewWriter(out)
	for _, item := range items {
		if t.cancelled() {
			break
		}
		if err := writeZipItem(w, item, password, t); err != nil {
			t.fail(item.archivePath, err)
			continue
		}
		t.succeed(item.archivePath, item.size)
	}

	if err := w.Close(); err != nil {
		out.Close()
		return errors.Errorf("failed to finish archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return errors.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

func writeZipItem(w *zip.Writer, item sourceItem, password string, t *tracker) error {
	if item.dirSymlink {
		return errDirectorySymlink
	}

	if item.isDir {
		fh, err := zip.FileInfoHeader(item.info)
		if err != nil {
			return err
		}
		fh.Name = item.archivePath + "/"
		fh.Method = zip.Store
		_, err = w.CreateHeader(fh)
		return err
	}

	src, err := os.Open(item.sourcePath)
	if err != nil {
		return err
	}
	defer src.Close()

	var dst io.Writer
	if password != "" {
		dst, err = w.Encrypt(item.archivePath, password, zip.AES256Encryption)
	} else {
		var fh *zip.FileHeader
		fh, err = zip.FileInfoHeader(item.info)
		if err != nil {
			return err
		}
		fh.Name = item.archivePath
		fh.Method = zip.Deflate
		dst, err = w.CreateHeader(fh)
	}
	if err != nil {
		return err
	}

	_, err = io.Copy(dst, t.reader(src, item.archivePath))
	return err
}

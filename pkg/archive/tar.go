package archive

import (
	"archive/tar"
	"context"
	"io"
	"io/fs"
	"os"

	"github.com/mholt/archives"
	"github.com/sdejongh/duopane/pkg/models"
	"gitlab.com/tozd/go/errors"
)

// tarCompression returns the stream compressor for a tar family format, or nil for plain tar
func tarCompression(format models.ArchiveFormat) archives.Compression {
	switch format {
	case models.FormatTarGz:
		return archives.Gz{}
	case models.FormatTarZst:
		return archives.Zstd{}
	default:
		return nil
	}
}

// stackedReader closes the decompressor and then the file under it
type stackedReader struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReader) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func openTarStream(path string, format models.ArchiveFormat) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	comp := tarCompression(format)
	if comp == nil {
		return f, nil
	}

	r, err := comp.OpenReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &stackedReader{Reader: r, closers: []io.Closer{r, f}}, nil
}

func listTar(ctx context.Context, path string, format models.ArchiveFormat) ([]rawEntry, error) {
	stream, err := openTarStream(path, format)
	if err != nil {
		return nil, &ListError{Path: path, Err: err}
	}
	defer stream.Close()

	var entries []rawEntry
	err = archives.Tar{}.Extract(ctx, stream, func(_ context.Context, f archives.FileInfo) error {
		entries = append(entries, rawEntry{
			name:  f.NameInArchive,
			size:  sizeOf(f),
			isDir: f.IsDir(),
		})
		return nil
	})
	if err != nil {
		return nil, &ListError{Path: path, Err: err}
	}
	return entries, nil
}

func extractTar(ctx context.Context, x *extractor, format models.ArchiveFormat) error {
	stream, err := openTarStream(x.req.ArchivePath, format)
	if err != nil {
		return &ListError{Path: x.req.ArchivePath, Err: err}
	}
	defer stream.Close()

	err = archives.Tar{}.Extract(ctx, stream, func(_ context.Context, f archives.FileInfo) error {
		file := f
		hardLink := false
		if hdr, ok := f.Header.(*tar.Header); ok {
			hardLink = hdr.Typeflag == tar.TypeLink
		}
		ok := x.entry(archiveFile{
			name:       f.NameInArchive,
			isDir:      f.IsDir(),
			size:       sizeOf(f),
			mode:       f.Mode(),
			linkTarget: f.LinkTarget,
			hardLink:   hardLink,
			open: func() (io.ReadCloser, error) {
				return file.Open()
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
		return &ListError{Path: x.req.ArchivePath, Err: err}
	}
	return nil
}

// createTar streams items through the archiver one job at a time so each
// entry reports its own result
func createTar(ctx context.Context, output string, format models.ArchiveFormat, items []sourceItem, t *tracker) error {
	out, err := os.Create(output)
	if err != nil {
		return errors.Errorf("failed to create archive: %w", err)
	}

	var w io.WriteCloser = nopWriteCloser{out}
	if comp := tarCompression(format); comp != nil {
		w, err = comp.OpenWriter(out)
		if err != nil {
			out.Close()
			return errors.Errorf("failed to open compressor: %w", err)
		}
	}

	jobs := make(chan archives.ArchiveAsyncJob)
	done := make(chan error, 1)
	go func() {
		done <- archives.Tar{}.ArchiveAsync(context.WithoutCancel(ctx), w, jobs)
	}()

	for _, item := range items {
		if t.cancelled() {
			break
		}
		if item.dirSymlink {
			t.fail(item.archivePath, errDirectorySymlink)
			continue
		}

		file, release, err := tarFileInfo(item, t)
		if err != nil {
			t.fail(item.archivePath, err)
			continue
		}

		result := make(chan error, 1)
		jobs <- archives.ArchiveAsyncJob{File: file, Result: result}
		err = <-result
		release()
		if err != nil {
			t.fail(item.archivePath, err)
			continue
		}
		t.succeed(item.archivePath, item.size)
	}
	close(jobs)

	archiveErr := <-done
	closeErr := w.Close()
	if err := out.Close(); closeErr == nil {
		closeErr = err
	}
	if archiveErr != nil {
		return errors.Errorf("failed to write archive: %w", archiveErr)
	}
	if closeErr != nil {
		return errors.Errorf("failed to finish archive: %w", closeErr)
	}
	return nil
}

// tarFileInfo opens regular files up front so a read failure is reported
// before the entry header is written. release closes the source in case
// the archiver never opened it.
func tarFileInfo(item sourceItem, t *tracker) (archives.FileInfo, func(), error) {
	file := archives.FileInfo{
		FileInfo:      item.info,
		NameInArchive: item.archivePath,
	}
	if item.isDir {
		return file, func() {}, nil
	}

	src, err := os.Open(item.sourcePath)
	if err != nil {
		return file, nil, err
	}
	file.Open = func() (fs.File, error) {
		return readerFile{File: src, reader: t.reader(src, item.archivePath)}, nil
	}
	return file, func() { src.Close() }, nil
}

// readerFile routes reads through a progress reader while keeping Stat and Close
type readerFile struct {
	*os.File
	reader io.Reader
}

func (f readerFile) Read(p []byte) (int, error) {
	return f.reader.Read(p)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func sizeOf(f archives.FileInfo) int64 {
	if f.IsDir() {
		return 0
	}
	return f.Size()
}

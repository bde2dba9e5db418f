package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sdejongh/duopane/pkg/models"
	"gitlab.com/tozd/go/errors"
)

// stripSuffixes are removed from archive names to derive an extraction folder
var stripSuffixes = []string{".tar.gz", ".tar.zst", ".tgz", ".tzst", ".zip", ".7z", ".jar", ".war", ".tar"}

// DetectSingleRoot reports whether every entry lives under one top-level
// folder. A lone top-level file does not count: the segment must be listed
// as a directory or have nested children.
func DetectSingleRoot(entries []models.ArchiveEntry) (string, bool) {
	root := ""
	folder := false
	for _, e := range entries {
		name := NormalizeEntryName(e.Path)
		if name == "" {
			continue
		}
		first, rest, nested := strings.Cut(name, "/")
		if root == "" {
			root = first
		} else if first != root {
			return "", false
		}
		if (nested && rest != "") || (e.IsDir && name == root) {
			folder = true
		}
	}
	if root == "" || !folder {
		return "", false
	}
	return root, true
}

// ExtractBaseName derives a folder name from an archive file name
func ExtractBaseName(archivePath string) string {
	name := filepath.Base(archivePath)
	lower := strings.ToLower(name)
	for _, suffix := range stripSuffixes {
		if strings.HasSuffix(lower, suffix) && len(name) > len(suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	if stem := strings.TrimSuffix(name, filepath.Ext(name)); stem != "" && stem != "." {
		return stem
	}
	return "archive"
}

// NextUniqueExtractDir returns baseDir/name, or the first free baseDir/name_(n)
func NextUniqueExtractDir(baseDir, name string) string {
	candidate := filepath.Join(baseDir, name)
	for i := 1; exists(candidate); i++ {
		candidate = filepath.Join(baseDir, fmt.Sprintf("%s_(%d)", name, i))
	}
	return candidate
}

// NextUniquePath returns baseDir/filename, or the first free stem_(n).ext variant
func NextUniquePath(baseDir, filename string) string {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	if stem == "" {
		stem = "archive"
	}

	candidate := filepath.Join(baseDir, stem+ext)
	for i := 1; exists(candidate); i++ {
		candidate = filepath.Join(baseDir, fmt.Sprintf("%s_(%d)%s", stem, i, ext))
	}
	return candidate
}

// SuggestArchiveName proposes a free output path for archiving sources into
// baseDir: "<name>.zip" for one source, "<dir>.zip" for several, and
// "archive.zip" when baseDir is the filesystem root.
func SuggestArchiveName(sources []string, baseDir string) string {
	return SuggestArchiveNameAs(sources, baseDir, models.FormatZip)
}

// SuggestArchiveNameAs is SuggestArchiveName for any format
func SuggestArchiveNameAs(sources []string, baseDir string, format models.ArchiveFormat) string {
	var stem string
	switch {
	case len(sources) == 1 && filepath.Base(sources[0]) != string(filepath.Separator):
		stem = filepath.Base(sources[0])
	default:
		stem = defaultMultiArchiveStem(baseDir)
	}
	return NextUniquePath(baseDir, stem+Extension(format))
}

func defaultMultiArchiveStem(dir string) string {
	clean := filepath.Clean(dir)
	if filepath.Dir(clean) == clean {
		return "archive"
	}
	base := strings.TrimSpace(filepath.Base(clean))
	if base == "" || base == "." {
		return "archive"
	}
	return base
}

// AutoExtractRequest picks the extraction target for archivePath: baseDir
// itself when the archive holds a single root folder, otherwise a freshly
// created unique subdirectory named after the archive.
func AutoExtractRequest(ctx context.Context, archivePath, baseDir, password string) (models.ArchiveExtractRequest, error) {
	if info, err := os.Stat(baseDir); err != nil || !info.IsDir() {
		return models.ArchiveExtractRequest{}, &models.PreconditionError{
			Op:      "extract",
			Path:    baseDir,
			Message: "destination directory does not exist",
		}
	}

	entries, err := ListEntries(ctx, archivePath, password)
	if err != nil {
		return models.ArchiveExtractRequest{}, err
	}

	req := models.ArchiveExtractRequest{
		ArchivePath: archivePath,
		DestDir:     baseDir,
		Password:    password,
	}
	if _, ok := DetectSingleRoot(entries); ok {
		return req, nil
	}

	req.DestDir = NextUniqueExtractDir(baseDir, ExtractBaseName(archivePath))
	if err := os.MkdirAll(req.DestDir, 0755); err != nil {
		return models.ArchiveExtractRequest{}, errors.Errorf("failed to create extraction directory: %w", err)
	}
	return req, nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

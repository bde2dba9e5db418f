package archive

import (
	"path/filepath"
	"strings"

	"github.com/sdejongh/duopane/pkg/models"
)

// compound suffixes are checked before single extensions
var formatSuffixes = []struct {
	suffix string
	format models.ArchiveFormat
}{
	{".tar.gz", models.FormatTarGz},
	{".tgz", models.FormatTarGz},
	{".tar.zst", models.FormatTarZst},
	{".tzst", models.FormatTarZst},
	{".zip", models.FormatZip},
	{".tar", models.FormatTar},
	{".7z", models.FormatSevenZ},
	{".jar", models.FormatJar},
	{".war", models.FormatWar},
}

// SupportedFormats lists every format name, for help and error texts
const SupportedFormats = "zip/tar/tar.gz/tar.zst/7z/jar/war"

// DetectFormat derives the archive format from the file name, case-insensitively
func DetectFormat(path string) (models.ArchiveFormat, bool) {
	name := strings.ToLower(filepath.Base(path))
	for _, s := range formatSuffixes {
		if strings.HasSuffix(name, s.suffix) && len(name) > len(s.suffix) {
			return s.format, true
		}
	}
	return "", false
}

// IsArchive reports whether path has a known archive suffix
func IsArchive(path string) bool {
	_, ok := DetectFormat(path)
	return ok
}

// SupportsPassword reports whether the format can be created and read with a password
func SupportsPassword(format models.ArchiveFormat) bool {
	return format == models.FormatZip || format == models.FormatSevenZ
}

// ParseFormat accepts a format name as printed by the CLI ("zip", "tar.gz", "tgz", ...)
func ParseFormat(name string) (models.ArchiveFormat, bool) {
	return DetectFormat("archive." + strings.TrimPrefix(strings.ToLower(name), "."))
}

// Extension returns the canonical file suffix for a format
func Extension(format models.ArchiveFormat) string {
	return "." + string(format)
}

package archive

import (
	"path/filepath"
	"strings"
)

// SanitizeExtractPath maps an archive entry name to a path below destRoot.
// Names with a parent reference, an absolute root or a drive prefix are
// rejected outright rather than cleaned, and "." components are dropped.
// The second return value is false for rejected names.
func SanitizeExtractPath(destRoot, rawName string) (string, bool) {
	name := strings.ReplaceAll(rawName, `\`, "/")
	if strings.HasPrefix(name, "/") {
		return "", false
	}

	parts := strings.Split(name, "/")
	clean := make([]string, 0, len(parts)+1)
	clean = append(clean, destRoot)
	for i, part := range parts {
		switch {
		case part == "" || part == ".":
			continue
		case part == "..":
			return "", false
		case i == 0 && hasDrivePrefix(part):
			return "", false
		}
		clean = append(clean, part)
	}

	out := filepath.Join(clean...)
	rel, err := filepath.Rel(destRoot, out)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return out, true
}

// hasDrivePrefix matches "C:" style volume names
func hasDrivePrefix(part string) bool {
	if len(part) < 2 || part[1] != ':' {
		return false
	}
	c := part[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// NormalizeEntryName converts backslashes and trims surrounding slashes
func NormalizeEntryName(name string) string {
	return strings.Trim(strings.ReplaceAll(name, `\`, "/"), "/")
}

func containsEntry(list []string, name string) bool {
	normalized := NormalizeEntryName(name)
	for _, item := range list {
		if NormalizeEntryName(item) == normalized {
			return true
		}
	}
	return false
}

package archive

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// shouldExclude checks if an archive path matches one of the patterns.
// Patterns use doublestar syntax:
//   - *.tmp matches the base name at any depth
//   - .git/ excludes a directory and everything below it
//   - build/** and **/test/* match against the full archive path
func shouldExclude(archivePath string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	base := path.Base(archivePath)
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		if dir, ok := strings.CutSuffix(pattern, "/"); ok {
			if matchAny(archivePath, dir) || matchAny(archivePath, dir+"/**") ||
				matchAny(archivePath, "**/"+dir) || matchAny(archivePath, "**/"+dir+"/**") {
				return true
			}
			continue
		}

		if !strings.Contains(pattern, "/") {
			if matchAny(base, pattern) {
				return true
			}
			continue
		}

		if matchAny(archivePath, pattern) {
			return true
		}
	}

	return false
}

func matchAny(name, pattern string) bool {
	matched, err := doublestar.Match(pattern, name)
	return err == nil && matched
}

// ValidateExcludePatterns reports the first malformed pattern
func ValidateExcludePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(strings.TrimSuffix(p, "/")) {
			return &PatternError{Pattern: p}
		}
	}
	return nil
}

// PatternError reports an invalid exclude pattern
type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string {
	return "invalid exclude pattern: " + e.Pattern
}

package models

import (
	"fmt"
	"strings"
)

// MaxErrorPreview is how many error messages a result message shows
const MaxErrorPreview = 5

// OperationResult is the final outcome of a file operation
type OperationResult struct {
	Kind      OperationKind
	Succeeded int
	Failed    int
	Errors    []string
	Cancelled bool
	Total     int
}

// HasErrors reports whether any item failed
func (r OperationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Message renders the user-facing completion text
func (r OperationResult) Message() string {
	name := r.Kind.Name()
	if r.Cancelled {
		return fmt.Sprintf("%s cancelled (%d/%d)", name, r.Succeeded, r.Total)
	}
	if !r.HasErrors() {
		return fmt.Sprintf("%s completed: %s", name, Pluralize(r.Succeeded, "file", "files"))
	}
	return fmt.Sprintf("%s completed with errors.\nSucceeded: %d\nFailed: %d\n\n%s",
		name, r.Succeeded, len(r.Errors), ErrorPreview(r.Errors))
}

// ErrorPreview joins the first MaxErrorPreview errors and notes the remainder
func ErrorPreview(errs []string) string {
	if len(errs) <= MaxErrorPreview {
		return strings.Join(errs, "\n")
	}
	return fmt.Sprintf("%s\n... and %d more errors",
		strings.Join(errs[:MaxErrorPreview], "\n"), len(errs)-MaxErrorPreview)
}

// Pluralize formats a count with the matching noun
func Pluralize(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}

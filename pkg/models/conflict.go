package models

import (
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ConflictDecision is the user's answer to a destination conflict.
// It is shared by file operations (resolved lazily, one entry at a time)
// and archive extraction (resolved eagerly, before anything is written).
type ConflictDecision string

const (
	// DecisionOverwrite replaces the existing destination for this item only
	DecisionOverwrite ConflictDecision = "overwrite"
	// DecisionSkip leaves the existing destination untouched for this item only
	DecisionSkip ConflictDecision = "skip"
	// DecisionOverwriteAll replaces this and every later conflict without asking
	DecisionOverwriteAll ConflictDecision = "overwrite-all"
	// DecisionSkipAll skips this and every later conflict without asking
	DecisionSkipAll ConflictDecision = "skip-all"
	// DecisionCancel aborts the remainder of the operation
	DecisionCancel ConflictDecision = "cancel"
)

// IsSticky reports whether the decision applies to all remaining conflicts
func (d ConflictDecision) IsSticky() bool {
	return d == DecisionOverwriteAll || d == DecisionSkipAll
}

// Overwrites reports whether the decision replaces the existing destination
func (d ConflictDecision) Overwrites() bool {
	return d == DecisionOverwrite || d == DecisionOverwriteAll
}

// Skips reports whether the decision leaves the existing destination alone
func (d ConflictDecision) Skips() bool {
	return d == DecisionSkip || d == DecisionSkipAll
}

// ParseConflictDecision parses the textual form of a decision.
// Single-letter shortcuts used by interactive prompts are accepted.
func ParseConflictDecision(s string) (ConflictDecision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "o", "overwrite":
		return DecisionOverwrite, nil
	case "s", "skip":
		return DecisionSkip, nil
	case "a", "overwrite-all", "overwriteall":
		return DecisionOverwriteAll, nil
	case "n", "skip-all", "skipall":
		return DecisionSkipAll, nil
	case "c", "cancel":
		return DecisionCancel, nil
	default:
		return "", errors.Errorf("unknown conflict decision: %q", s)
	}
}

// Conflict describes a destination that already exists and is incompatible
// with the entry about to be written there
type Conflict struct {
	// Source is the source path (or archive-relative path for extraction)
	Source string

	// Dest is the existing destination path
	Dest string
}
